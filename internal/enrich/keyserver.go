package enrich

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/myspacecornelius/leadscout/internal/lead"
	"github.com/myspacecornelius/leadscout/internal/ratelimit"
)

// defaultKeyservers are HKP directories answering machine-readable vindex
// queries.
var defaultKeyservers = []string{
	"https://keyserver.ubuntu.com",
	"https://keys.mailvelope.com",
}

// keyserverIgnore filters uid addresses that are never a person's work email.
var keyserverIgnore = []string{
	"noreply", "test@", "root@", "admin@", "support@", "info@", "security@",
}

// Keyserver searches federated PGP key directories by person name. Key uid
// strings routinely embed the owner's real email.
type Keyserver struct {
	servers []string
	client  *http.Client
	gate    *ratelimit.Gate
	log     *zap.Logger
	limit   int
}

// NewKeyserver builds the keyserver stage. Empty servers use the public
// directories.
func NewKeyserver(servers []string, client *http.Client, gate *ratelimit.Gate, log *zap.Logger) *Keyserver {
	if len(servers) == 0 {
		servers = defaultKeyservers
	}
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	k := &Keyserver{servers: servers, client: client, gate: gate, log: log}
	if gate != nil {
		for _, s := range servers {
			if u, err := url.Parse(s); err == nil {
				gate.SetHostInterval(u.Host, 300*time.Millisecond)
			}
		}
	}
	return k
}

// Name implements Stage.
func (k *Keyserver) Name() string { return "pgp_keyserver" }

func (k *Keyserver) setConcurrency(n int) { k.limit = n }

// Enrich implements Stage.
func (k *Keyserver) Enrich(ctx context.Context, leads []*lead.Lead) (int, error) {
	return runLeads(ctx, pending(leads), k.limit, func(lctx context.Context, l *lead.Lead) (int, error) {
		if !lead.IsPersonName(l.Name) {
			return 0, nil
		}
		email, err := k.Search(lctx, lead.CleanPersonName(l.Name), l.Domain())
		if err != nil {
			k.log.Debug("keyserver search failed",
				zap.String("name", l.Name), zap.Error(err))
			return 0, nil
		}
		if email == "" {
			return 0, nil
		}
		l.SetEmail(email, lead.StatusScraped)
		return 1, nil
	})
}

// Search queries each directory for the name and returns the best uid email,
// preferring one at the target domain.
func (k *Keyserver) Search(ctx context.Context, name, domain string) (string, error) {
	var fallback string
	for _, server := range k.servers {
		emails, err := k.query(ctx, server, name)
		if err != nil {
			continue
		}
		for _, email := range emails {
			if domain != "" && strings.HasSuffix(email, "@"+domain) {
				return email, nil
			}
			if fallback == "" {
				fallback = email
			}
		}
	}
	return fallback, nil
}

func (k *Keyserver) query(ctx context.Context, server, name string) ([]string, error) {
	u := fmt.Sprintf("%s/pks/lookup?op=vindex&options=mr&search=%s",
		server, url.QueryEscape(name))
	if parsed, err := url.Parse(server); err == nil {
		if err := waitHost(ctx, k.gate, parsed.Host); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build keyserver request: %w", err)
	}
	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keyserver request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("keyserver status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read keyserver response: %w", err)
	}

	var out []string
	for _, line := range strings.Split(string(body), "\n") {
		if !strings.HasPrefix(line, "uid:") {
			continue
		}
		decoded := line
		if unescaped, err := url.QueryUnescape(line); err == nil {
			decoded = unescaped
		}
		for _, email := range lead.ExtractEmails(decoded) {
			if plausibleEmail(email) && !keyserverIgnored(email) {
				out = append(out, email)
			}
		}
	}
	return out, nil
}

func keyserverIgnored(email string) bool {
	for _, pattern := range keyserverIgnore {
		if strings.Contains(email, pattern) {
			return true
		}
	}
	return false
}
