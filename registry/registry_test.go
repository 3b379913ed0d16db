package registry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threatdesk/threatdesk/core"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()

	profiles := r.Profiles()
	assert.Len(t, profiles, 5)

	ir, err := r.Find(string(RoleIncidentResponse))
	require.NoError(t, err)
	assert.Equal(t, "Sarah Chen", ir.AgentName)
	assert.True(t, ir.Permits(ToolIOCAnalysis))
	assert.False(t, ir.Permits(ToolComplianceGuidance))

	general, err := r.Find(string(RoleGeneral))
	require.NoError(t, err)
	assert.Equal(t, []string{ToolWebSearch}, general.Tools)
	assert.Empty(t, general.TriggerTerms)
}

func TestFindUnknownSpecialist(t *testing.T) {
	r := Default()
	_, err := r.Find("forensics")
	assert.ErrorIs(t, err, core.ErrUnknownSpecialist)
}

func TestValidate(t *testing.T) {
	r := Default()
	assert.NoError(t, r.Validate(string(RoleIncidentResponse), string(RoleCompliance)))

	err := r.Validate(string(RolePrevention), "red_team", "blue_team")
	assert.ErrorIs(t, err, core.ErrUnknownSpecialist)
	assert.Contains(t, err.Error(), "blue_team")
	assert.Contains(t, err.Error(), "red_team")
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New(
		Profile{ID: "a", Role: RoleGeneral},
		Profile{ID: "a", Role: RoleGeneral},
	)
	assert.Error(t, err)
}

func TestOrderRoles(t *testing.T) {
	ids := []string{
		string(RoleCompliance),
		string(RoleIncidentResponse),
		string(RolePrevention),
	}
	ordered := OrderRoles(ids)
	assert.Equal(t, []string{
		string(RoleIncidentResponse),
		string(RolePrevention),
		string(RoleCompliance),
	}, ordered)

	// Input slice untouched.
	assert.Equal(t, string(RoleCompliance), ids[0])
}

func TestLoad(t *testing.T) {
	doc := `
profiles:
  - id: incident_response
    role: incident_response
    agent_name: On-Call Responder
    trigger_terms: [breach, ransomware]
    tools: [web_search]
    style:
      temperature: 0.1
      max_tokens: 2000
      timeout: 30s
      quality_threshold: 6.0
`
	r, err := Load(strings.NewReader(doc))
	require.NoError(t, err)

	p, err := r.Find("incident_response")
	require.NoError(t, err)
	assert.Equal(t, "On-Call Responder", p.AgentName)
	assert.Equal(t, []string{"breach", "ransomware"}, p.TriggerTerms)
	assert.Equal(t, 6.0, p.Style.QualityThreshold)
}
