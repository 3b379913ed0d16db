package tool

import (
	"context"
	"sort"
	"strings"
)

// KnowledgeDocument is one entry in the curated advisory knowledge base.
type KnowledgeDocument struct {
	ID      string `json:"id"`
	Domain  string `json:"domain"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// KnowledgeHit is a scored search result.
type KnowledgeHit struct {
	Document KnowledgeDocument `json:"document"`
	Score    float64           `json:"score"`
}

// KnowledgeSearchResponse is the payload the knowledge_search tool returns.
type KnowledgeSearchResponse struct {
	Query   string         `json:"query"`
	Domain  string         `json:"domain,omitempty"`
	Results []KnowledgeHit `json:"results"`
}

// knowledgeSearchArgs declares the tool's argument schema; the executor
// validates calls against the schema derived from it.
type knowledgeSearchArgs struct {
	Query  string `json:"query" description:"Search query"`
	Domain string `json:"domain,omitempty" description:"Knowledge domain to search; all domains when omitted"`
	Limit  int    `json:"limit,omitempty" description:"Maximum number of results (default 5)"`
}

// NewKnowledgeSearchTool constructs the knowledge_search tool over the given
// corpus, falling back to the built-in playbook set when docs is empty.
// Scoring is term overlap: the fraction of query terms found in the document,
// with a bonus for title matches. The corpus is fixed at construction, so the
// tool is safe for concurrent use.
func NewKnowledgeSearchTool(docs []KnowledgeDocument) *FunctionTool {
	if len(docs) == 0 {
		docs = defaultKnowledgeBase
	}
	return NewFunctionToolFromStruct(
		"knowledge_search",
		"Search the internal cybersecurity knowledge base of playbooks and reference notes. Optionally restrict to a domain: incident_response, prevention, threat_intelligence, or compliance.",
		knowledgeSearchArgs{},
		func(_ context.Context, args map[string]any) (any, error) {
			return searchKnowledge(docs, args), nil
		},
	)
}

func searchKnowledge(docs []KnowledgeDocument, args map[string]any) KnowledgeSearchResponse {
	query := stringArg(args, "query")
	domain := stringArg(args, "domain")
	limit := intArg(args, "limit", 5)

	terms := strings.Fields(strings.ToLower(query))
	var hits []KnowledgeHit
	for _, doc := range docs {
		if domain != "" && doc.Domain != domain {
			continue
		}
		if score := scoreDocument(doc, terms); score > 0 {
			hits = append(hits, KnowledgeHit{Document: doc, Score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Document.ID < hits[j].Document.ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return KnowledgeSearchResponse{Query: query, Domain: domain, Results: hits}
}

func scoreDocument(doc KnowledgeDocument, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	title := strings.ToLower(doc.Title)
	content := strings.ToLower(doc.Content)

	var matched float64
	for _, term := range terms {
		switch {
		case strings.Contains(title, term):
			matched += 1.5
		case strings.Contains(content, term):
			matched++
		}
	}
	return matched / float64(len(terms))
}

// defaultKnowledgeBase seeds the corpus with the advisory team's core
// playbooks.
var defaultKnowledgeBase = []KnowledgeDocument{
	{
		ID:     "ir-ransomware",
		Domain: "incident_response",
		Title:  "Ransomware containment playbook",
		Content: "Isolate affected hosts from the network immediately, preserve volatile memory " +
			"for forensics, identify the ransomware family from ransom notes and file extensions, " +
			"check backups for integrity before restoring, and do not pay without legal counsel.",
	},
	{
		ID:     "ir-phishing",
		Domain: "incident_response",
		Title:  "Phishing incident triage",
		Content: "Quarantine the reported message, extract URLs and attachments for detonation, " +
			"search mail logs for other recipients, reset credentials for anyone who interacted " +
			"with the payload, and block sender infrastructure at the gateway.",
	},
	{
		ID:     "prev-hardening",
		Domain: "prevention",
		Title:  "Server hardening baseline",
		Content: "Disable unused services, enforce least privilege on service accounts, require " +
			"MFA for administrative access, patch on a defined SLA by severity, and ship logs to " +
			"a central collector the host cannot modify.",
	},
	{
		ID:     "prev-segmentation",
		Domain: "prevention",
		Title:  "Network segmentation guidance",
		Content: "Separate user, server, and management networks. Restrict east-west traffic with " +
			"deny-by-default policies, place crown-jewel systems in dedicated zones, and require " +
			"jump hosts for administrative paths.",
	},
	{
		ID:     "ti-actor-profiles",
		Domain: "threat_intelligence",
		Title:  "Threat actor profiling checklist",
		Content: "Catalog observed TTPs against MITRE ATT&CK, track infrastructure overlap across " +
			"campaigns, weight attribution by confidence tier, and record targeting patterns by " +
			"sector and geography.",
	},
	{
		ID:     "comp-breach-notify",
		Domain: "compliance",
		Title:  "Breach notification quick reference",
		Content: "GDPR requires supervisory authority notification within 72 hours of awareness. " +
			"HIPAA allows 60 days for unsecured PHI. PCI-DSS expects card brands to be informed " +
			"within 24 hours of confirmed cardholder data compromise.",
	},
}
