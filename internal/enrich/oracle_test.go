package enrich

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

func avatarHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(email)))
	return hex.EncodeToString(sum[:])
}

func TestOracleConfirmsRegisteredCandidate(t *testing.T) {
	// The service knows jdoe@acme.vc and nothing else.
	known := avatarHash("jdoe@acme.vc")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, known) {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	o := NewOracle([]string{srv.URL + "/avatar/%s?d=404&s=1"}, srv.Client(), nil)

	john := contact("John Doe", "https://acme.vc")
	resolved, err := o.Enrich(context.Background(), []*lead.Lead{john})
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
	assert.Equal(t, "jdoe@acme.vc", john.Email)
	assert.Equal(t, lead.StatusOracleConfirmed, john.EmailStatus)
	// Oracle hits count as verified provenance.
	assert.True(t, john.EmailStatus.Verified())
}

func TestOracleLeavesUnknownContactsAlone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	o := NewOracle([]string{srv.URL + "/avatar/%s"}, srv.Client(), nil)
	john := contact("John Doe", "https://acme.vc")
	resolved, err := o.Enrich(context.Background(), []*lead.Lead{john})
	require.NoError(t, err)
	assert.Zero(t, resolved)
	assert.False(t, john.HasEmail())
	assert.Equal(t, lead.EmailUnknown, john.Email)
}

func TestOracleTriesSecondServiceOnMiss(t *testing.T) {
	known := avatarHash("john.doe@acme.vc")
	miss := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer miss.Close()
	hit := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, known) {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer hit.Close()

	o := NewOracle([]string{miss.URL + "/avatar/%s", hit.URL + "/avatar/%s"}, nil, nil)
	confirmed, err := o.Confirmed(context.Background(), "John.Doe@acme.vc ")
	require.NoError(t, err)
	assert.True(t, confirmed)
}
