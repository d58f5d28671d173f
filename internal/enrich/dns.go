package enrich

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

// dnsIgnore rejects DNS-harvested addresses that belong to mailbox-provider
// tooling or administrative aliases rather than people.
var dnsIgnore = []string{
	"agari.com", "dmarcian.com", "mimecast.com",
	"postmaster", "hostmaster", "webmaster", "abuse",
	"rua@dmarc.", "rejection@",
}

// DNSHarvester mines a domain's SPF and DMARC TXT records for the
// administrative and reporting addresses operators embed in them. It is free,
// fast, and rate-limit-proof, which is why it runs right after pattern
// guessing.
type DNSHarvester struct {
	cache    *DomainCache
	resolver Resolver
	log      *zap.Logger
	limit    int
}

// NewDNSHarvester builds the DNS stage. A nil resolver uses the system one.
func NewDNSHarvester(cache *DomainCache, resolver Resolver, log *zap.Logger) *DNSHarvester {
	if resolver == nil {
		resolver = cache.resolver
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DNSHarvester{cache: cache, resolver: resolver, log: log}
}

// Name implements Stage.
func (h *DNSHarvester) Name() string { return "dns_harvest" }

func (h *DNSHarvester) setConcurrency(n int) { h.limit = n }

// Enrich implements Stage.
func (h *DNSHarvester) Enrich(ctx context.Context, leads []*lead.Lead) (int, error) {
	used := claimed(leads)
	return runDomains(ctx, leads, h.limit, func(dctx context.Context, domain string, group []*lead.Lead) (int, error) {
		emails, err := h.cache.Emails(dctx, h.Name(), domain, func(fctx context.Context) ([]string, error) {
			return h.harvest(fctx, domain), nil
		})
		if err != nil {
			return 0, nil
		}
		emails = unclaimed(emails, used)
		if len(emails) == 0 {
			return 0, nil
		}
		h.log.Debug("dns records yielded addresses",
			zap.String("domain", domain),
			zap.Int("count", len(emails)))

		assigned, leftover := assignBest(group, emails, lead.StatusScraped, 0)
		// Unmatched addresses at the fund's own domain are still real
		// mailboxes there; hand them out rather than drop them.
		assigned += distribute(group, domainEmails(leftover, domain), lead.StatusScraped)
		return assigned, nil
	})
}

func (h *DNSHarvester) harvest(ctx context.Context, domain string) []string {
	var records []string
	if txt, err := h.resolver.LookupTXT(ctx, domain); err == nil {
		records = append(records, txt...)
	}
	if txt, err := h.resolver.LookupTXT(ctx, "_dmarc."+domain); err == nil {
		records = append(records, txt...)
	}

	seen := map[string]struct{}{}
	var out []string
	for _, record := range records {
		record = strings.ReplaceAll(record, "mailto:", "")
		for _, email := range lead.ExtractEmails(record) {
			if !plausibleEmail(email) || dnsIgnored(email) {
				continue
			}
			if _, dup := seen[email]; dup {
				continue
			}
			seen[email] = struct{}{}
			out = append(out, email)
		}
	}
	return out
}

func dnsIgnored(email string) bool {
	for _, pattern := range dnsIgnore {
		if strings.Contains(email, pattern) {
			return true
		}
	}
	return false
}
