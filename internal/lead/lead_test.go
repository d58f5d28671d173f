package lead

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		lead    Lead
		wantErr bool
	}{
		{"minimal valid", Lead{Name: "Jane Smith", Email: EmailUnknown, EmailStatus: StatusUnverified}, false},
		{"empty name", Lead{Email: "jane@acme.vc", EmailStatus: StatusScraped}, true},
		{"unknown status", Lead{Name: "Jane Smith", Email: "jane@acme.vc", EmailStatus: "guessed-hard"}, true},
		{"verified sentinel", Lead{Name: "Jane Smith", Email: EmailUnknown, EmailStatus: StatusSMTPVerified}, true},
		{"verified real email", Lead{Name: "Jane Smith", Email: "jane@acme.vc", EmailStatus: StatusSMTPVerified}, false},
		{"empty status allowed", Lead{Name: "Jane Smith"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.lead.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSetEmailKeepsProvenanceConsistent(t *testing.T) {
	l := Lead{Name: "Jane Smith", Email: EmailUnknown, EmailStatus: StatusUnverified}
	l.SetEmail("  Jane@Acme.VC ", StatusScraped)
	require.NoError(t, l.Validate())
	assert.Equal(t, "jane@acme.vc", l.Email)
	assert.Equal(t, StatusScraped, l.EmailStatus)
	assert.True(t, l.HasEmail())
}

func TestDedupKey(t *testing.T) {
	a := Lead{Name: "Jane Smith", Org: "Acme Ventures"}
	b := Lead{Name: "  jane smith ", Org: "ACME VENTURES"}
	c := Lead{Name: "Jane Smith", Org: "Other Fund"}
	assert.Equal(t, a.DedupKey(), b.DedupKey())
	assert.NotEqual(t, a.DedupKey(), c.DedupKey())
}

func TestRegistrableDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.acme.vc/team", "acme.vc"},
		{"http://acme.vc", "acme.vc"},
		{"acme.vc/about", "acme.vc"},
		{"https://blog.acme.co.uk/x", "acme.co.uk"},
		{"www.acme.vc", "acme.vc"},
		{"", ""},
		{"N/A", ""},
		{"localhost", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RegistrableDomain(tt.in), "input %q", tt.in)
	}
}

func TestIsPersonName(t *testing.T) {
	yes := []string{"Jane Smith", "Dr. Jane Smith", "Meet Jane Smith", "José García", "Mary Jo Anne Smith"}
	no := []string{
		"", "N/A", "unknown", "Jane",
		"Acme Capital", "Growth Fund Partners", "Our Portfolio Companies",
		"Contact Us", "OUR AMAZING TEAM LEADS",
		"Jane Smith 2024",
		"One Two Three Four Five Six",
	}
	for _, n := range yes {
		assert.True(t, IsPersonName(n), "expected person: %q", n)
	}
	for _, n := range no {
		assert.False(t, IsPersonName(n), "expected non-person: %q", n)
	}
}

func TestCleanPersonName(t *testing.T) {
	assert.Equal(t, "Jane Smith", CleanPersonName("Meet Jane Smith."))
	assert.Equal(t, "Jane Smith", CleanPersonName("Dr. Jane Smith"))
	assert.Equal(t, "Jane Smith", CleanPersonName("  Jane Smith  "))
}
