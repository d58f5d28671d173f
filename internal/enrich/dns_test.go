package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

func TestDNSHarvesterMinesSPFAndDMARC(t *testing.T) {
	resolver := &fakeResolver{txt: map[string][]string{
		"acme.vc": {
			"v=spf1 include:_spf.google.com ~all",
			"google-site-verification=abc123",
		},
		"_dmarc.acme.vc": {
			"v=DMARC1; p=reject; rua=mailto:jane.smith@acme.vc; ruf=mailto:postmaster@acme.vc",
		},
	}}
	cache := NewDomainCache(resolver)
	h := NewDNSHarvester(cache, resolver, nil)

	jane := contact("Jane Smith", "https://acme.vc")
	resolved, err := h.Enrich(context.Background(), []*lead.Lead{jane})
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
	assert.Equal(t, "jane.smith@acme.vc", jane.Email)
	assert.Equal(t, lead.StatusScraped, jane.EmailStatus)
}

func TestDNSHarvesterIgnoresInfrastructureAddresses(t *testing.T) {
	resolver := &fakeResolver{txt: map[string][]string{
		"_dmarc.acme.vc": {
			"v=DMARC1; p=none; rua=mailto:rua@dmarc.agari.com; ruf=mailto:abuse@acme.vc",
		},
	}}
	h := NewDNSHarvester(NewDomainCache(resolver), resolver, nil)

	jane := contact("Jane Smith", "https://acme.vc")
	resolved, err := h.Enrich(context.Background(), []*lead.Lead{jane})
	require.NoError(t, err)
	assert.Zero(t, resolved)
	assert.False(t, jane.HasEmail())
}

func TestDNSHarvesterDistributesLeftoverDomainAddresses(t *testing.T) {
	// The record address matches nobody by name but is at the fund's own
	// domain, so it still lands on someone rather than being dropped.
	resolver := &fakeResolver{txt: map[string][]string{
		"_dmarc.acme.vc": {"v=DMARC1; p=reject; rua=mailto:ir@acme.vc"},
	}}
	h := NewDNSHarvester(NewDomainCache(resolver), resolver, nil)

	jane := contact("Jane Smith", "https://acme.vc")
	resolved, err := h.Enrich(context.Background(), []*lead.Lead{jane})
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
	assert.Equal(t, "ir@acme.vc", jane.Email)
}

func TestDNSHarvesterQueriesDomainOnce(t *testing.T) {
	resolver := &fakeResolver{txt: map[string][]string{
		"_dmarc.acme.vc": {"v=DMARC1; p=reject; rua=mailto:jane.smith@acme.vc"},
	}}
	cache := NewDomainCache(resolver)
	h := NewDNSHarvester(cache, resolver, nil)

	leads := []*lead.Lead{
		contact("Jane Smith", "https://acme.vc"),
		contact("John Doe", "https://acme.vc"),
	}
	_, err := h.Enrich(context.Background(), leads)
	require.NoError(t, err)

	// Re-running pulls from the cached candidate set; the earlier
	// assignment is untouched.
	resolved, err := h.Enrich(context.Background(), leads)
	require.NoError(t, err)
	assert.Zero(t, resolved)
	assert.Equal(t, "jane.smith@acme.vc", leads[0].Email)
}
