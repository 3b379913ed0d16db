package runner

import (
	"fmt"
	"strings"

	"github.com/threatdesk/threatdesk/core"
	"github.com/threatdesk/threatdesk/registry"
)

// rolePrompts are the per-role working instructions appended to the shared
// persona preamble.
var rolePrompts = map[registry.Role]string{
	registry.RoleIncidentResponse: "Prioritize containment and eradication. Give concrete, ordered " +
		"steps the responder can execute immediately, and state what evidence to preserve before " +
		"any remediation destroys it. Use ioc_analysis for any indicators the user provides.",
	registry.RolePrevention: "Recommend specific, verifiable controls rather than generic advice. " +
		"When a product or version is named, check vulnerability_search for known CVEs before " +
		"recommending configuration changes.",
	registry.RoleThreatIntel: "Ground every attribution claim in observed TTPs or infrastructure " +
		"overlap and state your confidence level. Use threat_feeds and ioc_analysis to corroborate " +
		"before asserting actor involvement.",
	registry.RoleCompliance: "Cite the specific framework article or requirement behind each " +
		"obligation and always state notification deadlines explicitly. Use compliance_guidance " +
		"for framework details rather than recalling them.",
	registry.RoleGeneral: "Answer briefly and helpfully. For questions needing current information, " +
		"use web_search; for anything requiring deep security expertise, say so plainly rather " +
		"than guessing.",
}

// systemPrompt assembles the full system prompt for one specialist
// invocation. guidance carries quality-gate feedback on regeneration passes
// and is empty otherwise.
func systemPrompt(profile registry.Profile, guidance string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a cybersecurity advisor. %s\n\n", profile.AgentName, profile.Description)

	if p, ok := rolePrompts[profile.Role]; ok {
		b.WriteString(p)
		b.WriteString("\n\n")
	}

	if len(profile.Tools) > 0 {
		fmt.Fprintf(&b, "You may use these tools: %s. Call a tool when it would materially "+
			"improve your answer; otherwise answer directly.\n\n", strings.Join(profile.Tools, ", "))
	}

	b.WriteString("Respond with a clear, professional answer. Do not fabricate tool output or " +
		"indicators you have not verified.")

	if guidance != "" {
		b.WriteString("\n\nA reviewer flagged issues with a previous draft of this answer. " +
			"Address the following before responding:\n")
		b.WriteString(guidance)
	}
	return b.String()
}

// transcript converts prior session turns plus the current query into the
// model message sequence.
func transcript(history []core.Turn, query core.Query) []core.Message {
	var msgs []core.Message
	for _, turn := range history {
		msgs = append(msgs, core.UserMessage(turn.Query.Text))
		msgs = append(msgs, core.AssistantMessage(turn.Answer))
	}
	return append(msgs, core.UserMessage(query.Text))
}
