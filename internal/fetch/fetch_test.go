package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myspacecornelius/leadscout/internal/stealth"
)

func TestFetchReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><h1>Team</h1></body></html>"))
	}))
	defer srv.Close()

	f, err := New(Config{}, stealth.NewGenerator(1), nil, nil)
	require.NoError(t, err)

	page, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 200, page.StatusCode)
	assert.Contains(t, string(page.Body), "Team")
	assert.Equal(t, srv.URL, page.URL)
}

func TestFetchRotatesUserAgent(t *testing.T) {
	seen := map[string]struct{}{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[r.UserAgent()] = struct{}{}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f, err := New(Config{PerDomainRPS: 100}, stealth.NewGenerator(42), nil, nil)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		_, err := f.Fetch(context.Background(), srv.URL+"/?i="+string(rune('a'+i)))
		require.NoError(t, err)
	}
	assert.Greater(t, len(seen), 1, "user agent should rotate across fetches")
}

func TestFetchReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f, err := New(Config{}, nil, nil, nil)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestNeedsRender(t *testing.T) {
	d := NewDetector(200, []string{".team-member"}, nil)

	tiny := Page{Body: []byte("<html></html>")}
	assert.True(t, d.NeedsRender(tiny), "tiny body")

	shell := Page{Body: []byte("<html>" + pad(300) + `<script id="__NEXT_DATA__"></script></html>`)}
	assert.True(t, d.NeedsRender(shell), "framework shell marker")

	missing := Page{Body: []byte("<html><body>" + pad(300) + "<div class='people'></div></body></html>")}
	assert.True(t, d.NeedsRender(missing), "expected selector missing")

	good := Page{Body: []byte("<html><body>" + pad(300) + `<div class="team-member">Jane</div></body></html>`)}
	assert.False(t, d.NeedsRender(good))
}

func TestCaptchaDetected(t *testing.T) {
	assert.True(t, CaptchaDetected([]byte(`<div class="g-recaptcha"></div>`)))
	assert.True(t, CaptchaDetected([]byte(`We detected unusual traffic from your network`)))
	assert.False(t, CaptchaDetected([]byte(`<div class="team">Jane Smith</div>`)))
	assert.False(t, CaptchaDetected(nil))
}

func pad(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'x'
	}
	return string(b)
}
