package enrich

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

// defaultOracleEndpoints are avatar services addressed by the MD5 of the
// email. d=404 makes a miss a 404 instead of a generated placeholder, so any
// 200 proves the address is a real registration.
var defaultOracleEndpoints = []string{
	"https://gravatar.com/avatar/%s?d=404&s=1",
	"https://cdn.libravatar.org/avatar/%s?d=404&s=1",
}

// Oracle confirms candidate addresses against public avatar services. A hit
// is an existence proof without touching the target's mail server, making
// this the cheapest verification available.
type Oracle struct {
	endpoints []string
	client    *http.Client
	log       *zap.Logger
	limit     int
}

// NewOracle builds the avatar-oracle stage. Empty endpoints use the public
// services.
func NewOracle(endpoints []string, client *http.Client, log *zap.Logger) *Oracle {
	if len(endpoints) == 0 {
		endpoints = defaultOracleEndpoints
	}
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Oracle{endpoints: endpoints, client: client, log: log}
}

// Name implements Stage.
func (o *Oracle) Name() string { return "avatar_oracle" }

func (o *Oracle) setConcurrency(n int) { o.limit = n }

// Enrich implements Stage. For each contact it walks the canonical pattern
// candidates in prevalence order and takes the first one any service
// confirms.
func (o *Oracle) Enrich(ctx context.Context, leads []*lead.Lead) (int, error) {
	return runLeads(ctx, pending(leads), o.limit, func(lctx context.Context, l *lead.Lead) (int, error) {
		if !lead.IsPersonName(l.Name) {
			return 0, nil
		}
		domain := l.Domain()
		if domain == "" {
			return 0, nil
		}
		for _, candidate := range lead.Candidates(lead.CleanPersonName(l.Name), domain) {
			confirmed, err := o.Confirmed(lctx, candidate)
			if err != nil {
				return 0, err
			}
			if confirmed {
				l.SetEmail(candidate, lead.StatusOracleConfirmed)
				o.log.Debug("avatar oracle confirmed address",
					zap.String("email", candidate))
				return 1, nil
			}
		}
		return 0, nil
	})
}

// Confirmed probes every configured service for the email's avatar hash.
func (o *Oracle) Confirmed(ctx context.Context, email string) (bool, error) {
	hash := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	hexHash := hex.EncodeToString(hash[:])
	for _, endpoint := range o.endpoints {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead,
			fmt.Sprintf(endpoint, hexHash), nil)
		if err != nil {
			return false, fmt.Errorf("build oracle request: %w", err)
		}
		resp, err := o.client.Do(req)
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return true, nil
		}
	}
	return false, nil
}
