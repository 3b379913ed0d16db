package registry

import "time"

// Canonical tool names exposed to specialists. The concrete backends are
// collaborator implementations injected at wiring time.
const (
	ToolWebSearch           = "web_search"
	ToolVulnerabilitySearch = "vulnerability_search"
	ToolIOCAnalysis         = "ioc_analysis"
	ToolKnowledgeSearch     = "knowledge_search"
	ToolThreatFeeds         = "threat_feeds"
	ToolAttackSurface       = "attack_surface"
	ToolExposureChecker     = "exposure_checker"
	ToolComplianceGuidance  = "compliance_guidance"
)

// SpeakingOrder is the fixed precedence used when merge ordering needs a
// deterministic tie-break and when picking the primary specialist of a plan.
var SpeakingOrder = []Role{RoleIncidentResponse, RoleThreatIntel, RolePrevention, RoleCompliance}

// Default returns the built-in advisory team. Trigger terms are the keyword
// topic signatures scored by the router; tool sets follow the per-role
// permission table.
func Default() *Registry {
	r, err := New(
		Profile{
			ID:        string(RoleIncidentResponse),
			Role:      RoleIncidentResponse,
			AgentName: "Sarah Chen",
			Description: "Handles active security incidents, breaches, malware infections and " +
				"suspicious activities. Focuses on containment, eradication and recovery.",
			TriggerTerms: []string{
				"incident", "breach", "breached", "ransomware", "malware", "infection",
				"compromised", "hacked", "attack", "containment", "eradication",
				"forensics", "suspicious activity",
			},
			Tools: []string{ToolIOCAnalysis, ToolWebSearch, ToolKnowledgeSearch, ToolExposureChecker},
			Style: Style{Temperature: 0.1, MaxTokens: 3000, Timeout: 30 * time.Second, QualityThreshold: 6.0},
		},
		Profile{
			ID:        string(RolePrevention),
			Role:      RolePrevention,
			AgentName: "Alex Rodriguez",
			Description: "Focuses on proactive defense, secure architecture, vulnerability " +
				"management and risk mitigation. Designs and recommends security controls.",
			TriggerTerms: []string{
				"harden", "hardening", "patch", "patching", "vulnerability", "cve",
				"firewall", "architecture", "zero trust", "mfa", "misconfiguration",
				"secure design", "risk mitigation", "security controls",
			},
			Tools: []string{ToolVulnerabilitySearch, ToolWebSearch, ToolKnowledgeSearch, ToolThreatFeeds, ToolAttackSurface},
			Style: Style{Temperature: 0.2, MaxTokens: 3000, Timeout: 30 * time.Second, QualityThreshold: 5.5},
		},
		Profile{
			ID:        string(RoleThreatIntel),
			Role:      RoleThreatIntel,
			AgentName: "Dr. Kim Park",
			Description: "Analyzes threat actors, their tactics (TTPs) and campaigns. Provides " +
				"deep, contextualized intelligence on adversary motives and likely future actions.",
			TriggerTerms: []string{
				"threat actor", "apt", "campaign", "ttp", "tactics", "ioc", "indicator",
				"attribution", "adversary", "intelligence", "threat landscape",
			},
			Tools: []string{ToolIOCAnalysis, ToolThreatFeeds, ToolWebSearch, ToolKnowledgeSearch},
			Style: Style{Temperature: 0.3, MaxTokens: 3500, Timeout: 45 * time.Second, QualityThreshold: 6.0},
		},
		Profile{
			ID:        string(RoleCompliance),
			Role:      RoleCompliance,
			AgentName: "Maria Santos",
			Description: "Specializes in regulatory frameworks (GDPR, HIPAA, PCI-DSS), policies " +
				"and audits. Provides guidance on governance and compliance obligations.",
			TriggerTerms: []string{
				"gdpr", "hipaa", "pci", "pci-dss", "compliance", "regulation", "regulatory",
				"audit", "notification", "policy", "framework", "iso 27001", "nist",
				"governance", "obligation",
			},
			Tools: []string{ToolComplianceGuidance, ToolWebSearch, ToolKnowledgeSearch},
			Style: Style{Temperature: 0.0, MaxTokens: 2500, Timeout: 30 * time.Second, QualityThreshold: 6.5},
		},
		Profile{
			ID:        string(RoleGeneral),
			Role:      RoleGeneral,
			AgentName: "Advisory Assistant",
			Description: "General-purpose responder for greetings, generic knowledge and queries " +
				"requiring only real-time lookup rather than a cybersecurity specialty.",
			// Never routed by score; reached via the fallback dispatch mode.
			TriggerTerms: []string{},
			Tools:        []string{ToolWebSearch},
			Style:        Style{Temperature: 0.7, MaxTokens: 1500, Timeout: 20 * time.Second, QualityThreshold: 5.5},
		},
	)
	if err != nil {
		// The built-in table is static; a construction failure is a
		// programming error.
		panic(err)
	}
	return r
}

// OrderRoles sorts specialist ids by SpeakingOrder precedence, leaving
// unknown roles at the end in their incoming order.
func OrderRoles(ids []string) []string {
	rank := make(map[string]int, len(SpeakingOrder))
	for i, role := range SpeakingOrder {
		rank[string(role)] = i
	}
	ordered := make([]string, len(ids))
	copy(ordered, ids)
	// Stable insertion keeps incoming order for ids with equal rank.
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0; j-- {
			a, aok := rank[ordered[j-1]]
			b, bok := rank[ordered[j]]
			if !bok || (aok && a <= b) {
				break
			}
			ordered[j-1], ordered[j] = ordered[j], ordered[j-1]
		}
	}
	return ordered
}
