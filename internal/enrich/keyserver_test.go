package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

const vindexBody = `info:1:2
pub:ABCDEF1234567890:1:4096:1500000000::
uid:Jane%20Smith%20%3Cjane.smith%40acme.vc%3E:1500000000::
pub:1122334455667788:1:2048:1400000000::
uid:Jane Smith <jane@personal-mail.net>:1400000000::
uid:Test Account <test@keyring.dev>:1400000000::
`

func TestKeyserverPrefersTargetDomainUID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pks/lookup", r.URL.Path)
		assert.Equal(t, "vindex", r.URL.Query().Get("op"))
		assert.Equal(t, "mr", r.URL.Query().Get("options"))
		assert.Equal(t, "Jane Smith", r.URL.Query().Get("search"))
		w.Write([]byte(vindexBody))
	}))
	defer srv.Close()

	k := NewKeyserver([]string{srv.URL}, srv.Client(), nil, nil)
	jane := contact("Jane Smith", "https://acme.vc")

	resolved, err := k.Enrich(context.Background(), []*lead.Lead{jane})
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
	assert.Equal(t, "jane.smith@acme.vc", jane.Email)
	assert.Equal(t, lead.StatusScraped, jane.EmailStatus)
}

func TestKeyserverFallsBackToFirstPlausibleUID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "uid:Jane Smith <jane@personal-mail.net>:1400000000::\n")
	}))
	defer srv.Close()

	k := NewKeyserver([]string{srv.URL}, srv.Client(), nil, nil)
	email, err := k.Search(context.Background(), "Jane Smith", "acme.vc")
	require.NoError(t, err)
	assert.Equal(t, "jane@personal-mail.net", email)
}

func TestKeyserverIgnoresServiceAddresses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "uid:Admin <admin@acme.vc>:1::\nuid:CI <noreply@acme.vc>:1::\n")
	}))
	defer srv.Close()

	k := NewKeyserver([]string{srv.URL}, srv.Client(), nil, nil)
	email, err := k.Search(context.Background(), "Jane Smith", "acme.vc")
	require.NoError(t, err)
	assert.Empty(t, email)
}

func TestKeyserverSkipsFirmNames(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	k := NewKeyserver([]string{srv.URL}, srv.Client(), nil, nil)
	firm := contact("Acme Capital Partners", "https://acme.vc")
	resolved, err := k.Enrich(context.Background(), []*lead.Lead{firm})
	require.NoError(t, err)
	assert.Zero(t, resolved)
	assert.Zero(t, hits)
}
