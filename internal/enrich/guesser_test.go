package enrich

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

func contact(name, website string) *lead.Lead {
	return &lead.Lead{Name: name, Org: "Acme", Website: website, Email: lead.EmailUnknown}
}

func TestGuesserPropagatesLearnedPattern(t *testing.T) {
	cache := NewDomainCache(&fakeResolver{})
	g := NewGuesser(cache, nil, nil)

	jane := contact("Jane Smith", "https://acme.vc")
	jane.SetEmail("jane.smith@acme.vc", lead.StatusScraped)
	john := contact("John Doe", "https://acme.vc")
	ada := contact("Ada Lovelace", "https://www.acme.vc/team")

	resolved, err := g.Enrich(context.Background(), []*lead.Lead{jane, john, ada})
	require.NoError(t, err)
	assert.Equal(t, 2, resolved)

	assert.Equal(t, "john.doe@acme.vc", john.Email)
	assert.Equal(t, lead.StatusPatternGuessed, john.EmailStatus)
	assert.Equal(t, "ada.lovelace@acme.vc", ada.Email)
	// The learned pattern never touches the already-resolved contact.
	assert.Equal(t, "jane.smith@acme.vc", jane.Email)
	assert.Equal(t, lead.StatusScraped, jane.EmailStatus)
}

func TestGuesserDefaultPatternGatedByMX(t *testing.T) {
	resolver := &fakeResolver{mx: map[string][]*net.MX{
		"acme.vc": {{Host: "mx.acme.vc.", Pref: 10}},
	}}
	cache := NewDomainCache(resolver)
	g := NewGuesser(cache, nil, nil)

	john := contact("John Doe", "https://acme.vc")
	ghost := contact("Grace Hopper", "https://nomail.example")

	resolved, err := g.Enrich(context.Background(), []*lead.Lead{john, ghost})
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
	assert.Equal(t, "john.doe@acme.vc", john.Email)
	assert.Equal(t, lead.StatusPatternGuessed, john.EmailStatus)
	// No MX means no guess at all.
	assert.False(t, ghost.HasEmail())
}

func TestGuesserSkipsCompanyNames(t *testing.T) {
	resolver := &fakeResolver{mx: map[string][]*net.MX{
		"acme.vc": {{Host: "mx.acme.vc.", Pref: 10}},
	}}
	g := NewGuesser(NewDomainCache(resolver), nil, nil)

	firm := contact("Acme Capital Partners", "https://acme.vc")
	resolved, err := g.Enrich(context.Background(), []*lead.Lead{firm})
	require.NoError(t, err)
	assert.Zero(t, resolved)
	assert.False(t, firm.HasEmail())
}

func TestGuesserDiscoversPatternViaProbe(t *testing.T) {
	resolver := &fakeResolver{mx: map[string][]*net.MX{
		"acme.vc": {{Host: "mx.acme.vc.", Pref: 10}},
	}}
	cache := NewDomainCache(resolver)
	// The exchange only accepts the {f}{last} form.
	conn := &fakeSMTPConn{accept: map[string]bool{"jdoe@acme.vc": true}}
	verifier := NewVerifier(VerifierConfig{Timeout: time.Second}, cache, nil,
		func(context.Context, string) (SMTPConn, error) { return conn, nil }, nil)
	g := NewGuesser(cache, verifier, nil)
	g.sleep = func(context.Context, time.Duration) {}

	john := contact("John Doe", "https://acme.vc")
	jane := contact("Jane Smith", "https://acme.vc")

	resolved, err := g.Enrich(context.Background(), []*lead.Lead{john, jane})
	require.NoError(t, err)
	assert.Equal(t, 2, resolved)
	assert.Equal(t, "jdoe@acme.vc", john.Email)
	assert.Equal(t, "jsmith@acme.vc", jane.Email)

	p, known := cache.Pattern("acme.vc")
	require.True(t, known)
	assert.Equal(t, lead.PatternFLast, p)
}

func TestGuesserIsIdempotent(t *testing.T) {
	cache := NewDomainCache(&fakeResolver{})
	g := NewGuesser(cache, nil, nil)

	jane := contact("Jane Smith", "https://acme.vc")
	jane.SetEmail("jane.smith@acme.vc", lead.StatusScraped)
	john := contact("John Doe", "https://acme.vc")
	leads := []*lead.Lead{jane, john}

	_, err := g.Enrich(context.Background(), leads)
	require.NoError(t, err)
	first := john.Email

	resolved, err := g.Enrich(context.Background(), leads)
	require.NoError(t, err)
	assert.Zero(t, resolved)
	assert.Equal(t, first, john.Email)
}
