package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/myspacecornelius/leadscout/internal/lead"
	"github.com/myspacecornelius/leadscout/internal/ratelimit"
)

// githubIgnore filters commit author addresses that are provider noise, not
// people.
var githubIgnore = []string{
	"noreply.github.com", "users.noreply.github.com", "github.com",
	"localhost", "example.com", "noreply", "bot",
}

// GitHubMinerConfig tunes the commit-metadata stage.
type GitHubMinerConfig struct {
	// BaseURL is the API root, overridable for tests.
	BaseURL string `mapstructure:"base_url"`
	// Token raises the search rate limit; the stage works unauthenticated
	// at a much lower ceiling.
	Token string `mapstructure:"token"`
	// PersonSearches caps per-person follow-up queries per domain.
	PersonSearches int `mapstructure:"person_searches"`
}

func (c *GitHubMinerConfig) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.github.com"
	}
	if c.PersonSearches <= 0 {
		c.PersonSearches = 5
	}
}

// GitHubMiner searches the commit index by domain-scoped author email and by
// author name. Engineers and technical partners leak their work address in
// commit metadata constantly.
type GitHubMiner struct {
	cfg    GitHubMinerConfig
	cache  *DomainCache
	client *http.Client
	gate   *ratelimit.Gate
	log    *zap.Logger
	limit  int
}

// NewGitHubMiner builds the commit-mining stage.
func NewGitHubMiner(cfg GitHubMinerConfig, cache *DomainCache, client *http.Client, gate *ratelimit.Gate, log *zap.Logger) *GitHubMiner {
	cfg.applyDefaults()
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	m := &GitHubMiner{cfg: cfg, cache: cache, client: client, gate: gate, log: log}
	if gate != nil {
		if u, err := url.Parse(cfg.BaseURL); err == nil {
			gate.SetHostInterval(u.Host, 500*time.Millisecond)
		}
	}
	return m
}

// Name implements Stage.
func (m *GitHubMiner) Name() string { return "github_commits" }

func (m *GitHubMiner) setConcurrency(n int) { m.limit = n }

// Enrich implements Stage.
func (m *GitHubMiner) Enrich(ctx context.Context, leads []*lead.Lead) (int, error) {
	used := claimed(leads)
	return runDomains(ctx, leads, m.limit, func(dctx context.Context, domain string, group []*lead.Lead) (int, error) {
		resolved := 0
		emails, err := m.cache.Emails(dctx, m.Name(), domain, func(fctx context.Context) ([]string, error) {
			return m.searchDomain(fctx, domain)
		})
		if err != nil {
			m.log.Debug("commit search failed", zap.String("domain", domain), zap.Error(err))
			return 0, nil
		}
		assigned, _ := assignBest(group, unclaimed(emails, used), lead.StatusScraped, 0)
		resolved += assigned

		searched := 0
		for _, l := range group {
			if l.HasEmail() || !lead.IsPersonName(l.Name) {
				continue
			}
			if searched >= m.cfg.PersonSearches {
				break
			}
			searched++
			found, err := m.searchAuthor(dctx, lead.CleanPersonName(l.Name))
			if err != nil || len(found) == 0 {
				continue
			}
			l.SetEmail(found[0], lead.StatusScraped)
			resolved++
		}
		return resolved, nil
	})
}

type commitSearchResponse struct {
	Items []struct {
		Commit struct {
			Author struct {
				Name  string `json:"name"`
				Email string `json:"email"`
			} `json:"author"`
		} `json:"commit"`
	} `json:"items"`
}

func (m *GitHubMiner) searchDomain(ctx context.Context, domain string) ([]string, error) {
	payload, err := m.searchCommits(ctx, fmt.Sprintf("author-email:@%s", domain), 30)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var out []string
	for _, item := range payload.Items {
		email := strings.ToLower(item.Commit.Author.Email)
		if !plausibleEmail(email) || githubIgnored(email) {
			continue
		}
		if !strings.HasSuffix(email, "@"+domain) {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out, nil
}

func (m *GitHubMiner) searchAuthor(ctx context.Context, name string) ([]string, error) {
	payload, err := m.searchCommits(ctx, fmt.Sprintf("author-name:%q", name), 5)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, item := range payload.Items {
		email := strings.ToLower(item.Commit.Author.Email)
		if plausibleEmail(email) && !githubIgnored(email) {
			out = append(out, email)
		}
	}
	return out, nil
}

func (m *GitHubMiner) searchCommits(ctx context.Context, query string, perPage int) (*commitSearchResponse, error) {
	u, err := url.Parse(m.cfg.BaseURL + "/search/commits")
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if err := waitHost(ctx, m.gate, u.Host); err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("per_page", fmt.Sprint(perPage))
	q.Set("sort", "author-date")
	q.Set("order", "desc")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build commit search: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.cloak-preview+json")
	if m.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+m.cfg.Token)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("commit search: %w", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden, http.StatusTooManyRequests:
		return nil, fmt.Errorf("commit search rate-limited")
	case http.StatusUnprocessableEntity:
		// Unindexed query; nothing to mine.
		return &commitSearchResponse{}, nil
	default:
		return nil, fmt.Errorf("commit search status %d", resp.StatusCode)
	}

	var payload commitSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode commit search: %w", err)
	}
	return &payload, nil
}

func githubIgnored(email string) bool {
	for _, pattern := range githubIgnore {
		if strings.Contains(email, pattern) {
			return true
		}
	}
	return false
}
