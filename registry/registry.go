// Package registry holds the static table of specialist capability profiles:
// persona metadata, trigger terms, permitted tool sets and response-style
// parameters. Profiles are immutable after initialization; the registry is
// read-only and side-effect free.
package registry

import (
	"fmt"
	"sort"
	"time"

	"github.com/threatdesk/threatdesk/core"
)

// Role is the closed set of specialist identities. Dispatch happens via
// explicit role matching, not open-ended subclassing.
type Role string

const (
	// RoleIncidentResponse handles active incidents: containment, eradication
	// and recovery.
	RoleIncidentResponse Role = "incident_response"
	// RolePrevention covers proactive defense, secure architecture and
	// vulnerability management.
	RolePrevention Role = "prevention"
	// RoleThreatIntel analyzes threat actors, TTPs and campaigns.
	RoleThreatIntel Role = "threat_intel"
	// RoleCompliance covers regulatory frameworks, policies and audits.
	RoleCompliance Role = "compliance"
	// RoleGeneral is the fallback responder for queries outside every
	// specialty.
	RoleGeneral Role = "general"
)

// Style carries per-specialist response-style parameters.
type Style struct {
	Temperature      float64       `yaml:"temperature"`
	MaxTokens        int           `yaml:"max_tokens"`
	Timeout          time.Duration `yaml:"timeout"`
	QualityThreshold float64       `yaml:"quality_threshold"`
}

// Profile is one specialist's capability profile. Immutable, loaded at
// process start, identified by a unique ID.
type Profile struct {
	ID          string   `yaml:"id"`
	Role        Role     `yaml:"role"`
	AgentName   string   `yaml:"agent_name"`
	Description string   `yaml:"description"`
	// TriggerTerms is the ordered topic signature matched against queries.
	TriggerTerms []string `yaml:"trigger_terms"`
	// Tools is the permitted tool set. A specialist requesting anything
	// outside this set is aborted before the call executes.
	Tools []string `yaml:"tools"`
	Style Style    `yaml:"style"`
}

// Permits reports whether the profile's tool set contains the named tool.
func (p Profile) Permits(tool string) bool {
	for _, t := range p.Tools {
		if t == tool {
			return true
		}
	}
	return false
}

// Registry is the ordered, read-only profile table.
type Registry struct {
	profiles []Profile
	byID     map[string]Profile
}

// New builds a registry from the given profiles, enforcing a non-empty
// profile set and unique non-empty ids. Order is preserved.
func New(profiles ...Profile) (*Registry, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("registry requires at least one profile")
	}
	byID := make(map[string]Profile, len(profiles))
	for _, p := range profiles {
		if p.ID == "" {
			return nil, fmt.Errorf("profile with empty id")
		}
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate profile id %q", p.ID)
		}
		byID[p.ID] = p
	}
	ordered := make([]Profile, len(profiles))
	copy(ordered, profiles)
	return &Registry{profiles: ordered, byID: byID}, nil
}

// Profiles returns the ordered profile sequence as a defensive copy.
func (r *Registry) Profiles() []Profile {
	out := make([]Profile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

// Find returns the profile with the given id or ErrUnknownSpecialist.
func (r *Registry) Find(id string) (Profile, error) {
	p, ok := r.byID[id]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", core.ErrUnknownSpecialist, id)
	}
	return p, nil
}

// Validate checks that every referenced id exists in the registry. This is a
// configuration-integrity invariant verified once at startup, not per
// request.
func (r *Registry) Validate(ids ...string) error {
	missing := make([]string, 0)
	for _, id := range ids {
		if _, ok := r.byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %v", core.ErrUnknownSpecialist, missing)
	}
	return nil
}
