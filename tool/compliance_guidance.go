package tool

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// FrameworkGuidance is the detailed guidance for a single framework.
type FrameworkGuidance struct {
	Framework       string   `json:"framework"`
	FullName        string   `json:"full_name"`
	Region          string   `json:"region"`
	AppliesTo       string   `json:"applies_to"`
	KeyRequirements []string `json:"key_requirements"`
	MaxPenalty      string   `json:"max_penalty"`
	BreachDeadline  string   `json:"breach_deadline,omitempty"`
}

// ComplianceGuidanceResponse is the payload the compliance_guidance tool
// returns. Either Guidance (framework lookup) or Applicable (situation
// lookup) is populated.
type ComplianceGuidanceResponse struct {
	Guidance          *FrameworkGuidance `json:"framework_guidance,omitempty"`
	Applicable        []string           `json:"applicable_frameworks,omitempty"`
	StrictestDeadline string             `json:"strictest_breach_deadline,omitempty"`
	KnownFrameworks   []string           `json:"known_frameworks,omitempty"`
}

// frameworkRecord is one row of the built-in regulatory reference table.
type frameworkRecord struct {
	fullName          string
	region            string
	appliesTo         string
	keyRequirements   []string
	maxPenalty        string
	authorityDeadline time.Duration
}

// frameworkTable mirrors the regulatory reference data the advisory team
// maintains. Deadlines are authority-notification windows.
var frameworkTable = map[string]frameworkRecord{
	"gdpr": {
		fullName:  "General Data Protection Regulation",
		region:    "EU/EEA/UK",
		appliesTo: "personal data",
		keyRequirements: []string{
			"72-hour breach notification",
			"Right to erasure",
			"Data portability",
			"Privacy by design",
			"DPO required for some organizations",
		},
		maxPenalty:        "€20M or 4% global turnover",
		authorityDeadline: 72 * time.Hour,
	},
	"hipaa": {
		fullName:  "Health Insurance Portability and Accountability Act",
		region:    "United States",
		appliesTo: "health information (PHI)",
		keyRequirements: []string{
			"Administrative, Physical, Technical safeguards",
			"Business Associate Agreements required",
			"Minimum necessary standard",
			"60-day breach notification",
			"Annual risk assessments",
		},
		maxPenalty:        "$2M per violation type/year",
		authorityDeadline: 60 * 24 * time.Hour,
	},
	"pci_dss": {
		fullName:  "Payment Card Industry Data Security Standard",
		region:    "Global",
		appliesTo: "payment card data",
		keyRequirements: []string{
			"12 core requirements",
			"Quarterly vulnerability scans",
			"Annual penetration testing",
			"Network segmentation",
			"Encryption of cardholder data",
		},
		maxPenalty:        "Loss of card processing ability",
		authorityDeadline: 24 * time.Hour,
	},
	"sox": {
		fullName:  "Sarbanes-Oxley Act",
		region:    "United States",
		appliesTo: "public company financial data",
		keyRequirements: []string{
			"IT General Controls (ITGC)",
			"Internal controls testing",
			"Management certification",
			"Audit trails required",
			"Change management controls",
		},
		maxPenalty:        "$5M and 20 years imprisonment",
		authorityDeadline: 4 * 24 * time.Hour,
	},
}

// applicability maps situations onto frameworks.
var applicabilityByDataType = map[string][]string{
	"personal_data":     {"gdpr"},
	"health_data":       {"hipaa"},
	"payment_cards":     {"pci_dss"},
	"financial_records": {"sox"},
}

var applicabilityByRegion = map[string][]string{
	"EU":     {"gdpr"},
	"US":     {"hipaa", "sox"},
	"Global": {"pci_dss"},
}

const complianceGuidanceName = "compliance_guidance"

// NewComplianceGuidanceTool constructs the compliance_guidance tool. It
// answers regulatory questions from the built-in reference table and performs
// no network calls.
func NewComplianceGuidanceTool() *FunctionTool {
	return NewFunctionTool(
		complianceGuidanceName,
		"Get regulatory compliance guidance: framework requirements, breach notification deadlines, and penalties for GDPR, HIPAA, PCI-DSS, and SOX.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"framework": map[string]any{
					"type":        "string",
					"description": "Framework name (gdpr, hipaa, pci_dss, sox)",
				},
				"data_type": map[string]any{
					"type":        "string",
					"description": "Data involved (personal_data, health_data, payment_cards, financial_records)",
				},
				"region": map[string]any{
					"type":        "string",
					"description": "Geographic region (EU, US, Global)",
				},
			},
		},
		complianceGuidance,
	)
}

func complianceGuidance(_ context.Context, args map[string]any) (any, error) {
	if framework := stringArg(args, "framework"); framework != "" {
		return frameworkLookup(framework)
	}

	dataType := stringArg(args, "data_type")
	region := stringArg(args, "region")
	if dataType != "" || region != "" {
		return situationLookup(dataType, region), nil
	}

	names := make([]string, 0, len(frameworkTable))
	for name := range frameworkTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return ComplianceGuidanceResponse{KnownFrameworks: names}, nil
}

func frameworkLookup(framework string) (any, error) {
	key := strings.ToLower(strings.ReplaceAll(framework, "-", "_"))
	record, ok := frameworkTable[key]
	if !ok {
		return nil, NewToolError(complianceGuidanceName, fmt.Sprintf("unknown framework %q", framework), CodeValidation)
	}
	return ComplianceGuidanceResponse{
		Guidance: &FrameworkGuidance{
			Framework:       key,
			FullName:        record.fullName,
			Region:          record.region,
			AppliesTo:       record.appliesTo,
			KeyRequirements: record.keyRequirements,
			MaxPenalty:      record.maxPenalty,
			BreachDeadline:  record.authorityDeadline.String(),
		},
	}, nil
}

func situationLookup(dataType, region string) ComplianceGuidanceResponse {
	seen := map[string]bool{}
	var applicable []string
	for _, fw := range applicabilityByDataType[dataType] {
		if !seen[fw] {
			seen[fw] = true
			applicable = append(applicable, fw)
		}
	}
	for _, fw := range applicabilityByRegion[region] {
		if !seen[fw] {
			seen[fw] = true
			applicable = append(applicable, fw)
		}
	}
	sort.Strings(applicable)

	var strictest time.Duration
	for _, fw := range applicable {
		deadline := frameworkTable[fw].authorityDeadline
		if deadline > 0 && (strictest == 0 || deadline < strictest) {
			strictest = deadline
		}
	}

	out := ComplianceGuidanceResponse{Applicable: applicable}
	if strictest > 0 {
		out.StrictestDeadline = strictest.String()
	}
	return out
}
