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

func TestEdgarExtractsFromHighlights(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.Equal(t, `"@acme.vc"`, r.URL.Query().Get("q"))
		fmt.Fprint(w, `{"hits":{"hits":[
			{"highlight":{"text":["Contact jane.smith@acme.vc for the fund"]},
			 "_source":{"entity_name":"Acme Ventures LP"}},
			{"highlight":{"text":["filed by counsel@lawfirm.com"]},
			 "_source":{"contact":"ir@acme.vc"}}
		]}}`)
	}))
	defer srv.Close()

	e := NewEdgar(EdgarConfig{BaseURL: srv.URL}, NewDomainCache(&fakeResolver{}), srv.Client(), nil, nil)

	jane := contact("Jane Smith", "https://acme.vc")
	resolved, err := e.Enrich(context.Background(), []*lead.Lead{jane})
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
	assert.Equal(t, "jane.smith@acme.vc", jane.Email)
	assert.Equal(t, lead.StatusScraped, jane.EmailStatus)
}

func TestEdgarBroadensQueryWhenFormFilterIsEmpty(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("forms"))
		if r.URL.Query().Get("forms") != "" {
			fmt.Fprint(w, `{"hits":{"hits":[]}}`)
			return
		}
		fmt.Fprint(w, `{"hits":{"hits":[{"highlight":{"text":["reach jane.smith@acme.vc"]}}]}}`)
	}))
	defer srv.Close()

	e := NewEdgar(EdgarConfig{BaseURL: srv.URL}, NewDomainCache(&fakeResolver{}), srv.Client(), nil, nil)
	emails, err := e.searchDomain(context.Background(), "acme.vc")
	require.NoError(t, err)
	assert.Equal(t, []string{"jane.smith@acme.vc"}, emails)
	require.Len(t, queries, 2)
	assert.Equal(t, "D,ADV,13F-HR,13F-NT", queries[0])
	assert.Empty(t, queries[1])
}

func TestEdgarKeepsOnlyDomainAddresses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"hits":{"hits":[{"highlight":{"text":["filings@sec.gov and counsel@lawfirm.com and ops@acme.vc"]}}]}}`)
	}))
	defer srv.Close()

	e := NewEdgar(EdgarConfig{BaseURL: srv.URL}, NewDomainCache(&fakeResolver{}), srv.Client(), nil, nil)
	emails, err := e.searchDomain(context.Background(), "acme.vc")
	require.NoError(t, err)
	assert.Equal(t, []string{"ops@acme.vc"}, emails)
}
