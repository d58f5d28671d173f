package enrich

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/myspacecornelius/leadscout/internal/lead"
	"github.com/myspacecornelius/leadscout/internal/ratelimit"
)

// Verdict classifies one RCPT probe. A timeout or ambiguous response is
// indeterminate, never undeliverable, so network noise cannot demote a real
// address.
type Verdict string

// Probe verdicts.
const (
	VerdictDeliverable   Verdict = "deliverable"
	VerdictUndeliverable Verdict = "undeliverable"
	VerdictIndeterminate Verdict = "indeterminate"
)

// SMTPConn is the conversation surface a probe needs. *smtp.Client satisfies
// it.
type SMTPConn interface {
	Hello(localName string) error
	Mail(from string) error
	Rcpt(to string) error
	Quit() error
}

// DialFunc opens an SMTP conversation with a mail exchange host.
type DialFunc func(ctx context.Context, addr string) (SMTPConn, error)

// VerifierConfig tunes the SMTP probing behavior.
type VerifierConfig struct {
	// HelloDomain is the identity announced in EHLO/HELO.
	HelloDomain string `mapstructure:"hello_domain"`
	// From is the envelope sender for MAIL FROM. An empty-sender retry is
	// attempted when the server rejects it.
	From string `mapstructure:"from"`
	// Timeout bounds one full probe conversation.
	Timeout time.Duration `mapstructure:"timeout"`
	// SelfTestAddr is a known-good exchange used once per run to decide
	// whether outbound port 25 works on this network at all.
	SelfTestAddr string `mapstructure:"self_test_addr"`
	// HostInterval is the minimum gap between probes to the same exchange
	// host, to stay under greylisting thresholds.
	HostInterval time.Duration `mapstructure:"host_interval"`
}

func (c *VerifierConfig) applyDefaults() {
	if c.HelloDomain == "" {
		c.HelloDomain = "gmail.com"
	}
	if c.From == "" {
		c.From = "hello@example.com"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.SelfTestAddr == "" {
		c.SelfTestAddr = "gmail-smtp-in.l.google.com:25"
	}
	if c.HostInterval <= 0 {
		c.HostInterval = 2 * time.Second
	}
}

// Verifier runs diagnostic RCPT probes against a domain's mail exchange. One
// EHLO handshake against a known host decides whether probing is possible on
// the current network; when it is not, every later call short-circuits to
// indeterminate instead of failing repeatedly.
type Verifier struct {
	cfg   VerifierConfig
	cache *DomainCache
	gate  *ratelimit.Gate
	dial  DialFunc
	log   *zap.Logger

	selfTest sync.Once
	disabled atomic.Bool
}

// NewVerifier builds a verifier. A nil dial uses a real TCP connection.
func NewVerifier(cfg VerifierConfig, cache *DomainCache, gate *ratelimit.Gate, dial DialFunc, log *zap.Logger) *Verifier {
	cfg.applyDefaults()
	if dial == nil {
		dial = dialSMTP
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Verifier{cfg: cfg, cache: cache, gate: gate, dial: dial, log: log}
}

func dialSMTP(ctx context.Context, addr string) (SMTPConn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial smtp %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	host, _, _ := net.SplitHostPort(addr)
	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("smtp handshake %s: %w", addr, err)
	}
	return client, nil
}

// Available reports whether SMTP probing works on this network. The self-test
// runs once; its outcome holds for the rest of the run.
func (v *Verifier) Available(ctx context.Context) bool {
	v.selfTest.Do(func() {
		testCtx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
		defer cancel()
		conn, err := v.dial(testCtx, v.cfg.SelfTestAddr)
		if err != nil {
			v.disabled.Store(true)
			v.log.Warn("smtp self-test failed, disabling verification for this run",
				zap.String("addr", v.cfg.SelfTestAddr),
				zap.Error(err))
			return
		}
		defer conn.Quit()
		if err := conn.Hello(v.cfg.HelloDomain); err != nil {
			v.disabled.Store(true)
			v.log.Warn("smtp self-test handshake rejected, disabling verification",
				zap.Error(err))
		}
	})
	return !v.disabled.Load()
}

// Verify probes whether the address is deliverable at its domain's mail
// exchange.
func (v *Verifier) Verify(ctx context.Context, email string) (Verdict, error) {
	if !v.Available(ctx) {
		return VerdictIndeterminate, nil
	}
	_, domain, found := strings.Cut(email, "@")
	if !found {
		return VerdictUndeliverable, nil
	}
	hasMX, mxHost, err := v.cache.MX(ctx, domain)
	if err != nil {
		return VerdictIndeterminate, err
	}
	if !hasMX {
		return VerdictUndeliverable, nil
	}
	return v.probe(ctx, mxHost, email)
}

// ProbeCatchAll reports whether the domain's exchange accepts RCPT for an
// address that cannot exist. Acceptance means every generated guess is
// deliverable by construction.
func (v *Verifier) ProbeCatchAll(ctx context.Context, domain string) (bool, error) {
	if !v.Available(ctx) {
		return false, ErrStageDisabled
	}
	hasMX, mxHost, err := v.cache.MX(ctx, domain)
	if err != nil || !hasMX {
		return false, err
	}
	fake := strings.ReplaceAll(uuid.NewString(), "-", "") + "@" + domain
	verdict, err := v.probe(ctx, mxHost, fake)
	if err != nil {
		return false, err
	}
	return verdict == VerdictDeliverable, nil
}

func (v *Verifier) probe(ctx context.Context, mxHost, email string) (Verdict, error) {
	if v.gate != nil {
		v.gate.SetHostInterval(mxHost, v.cfg.HostInterval)
		if err := v.gate.Wait(ctx, mxHost); err != nil {
			return VerdictIndeterminate, err
		}
	}
	probeCtx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
	defer cancel()

	conn, err := v.dial(probeCtx, mxHost+":25")
	if err != nil {
		return VerdictIndeterminate, nil
	}
	defer conn.Quit()

	if err := conn.Hello(v.cfg.HelloDomain); err != nil {
		return VerdictIndeterminate, nil
	}
	if err := conn.Mail(v.cfg.From); err != nil {
		// Some exchanges reject any sender domain they cannot resolve;
		// the null sender is always legal for delivery status probes.
		if err = conn.Mail(""); err != nil {
			return VerdictIndeterminate, nil
		}
	}
	if err := conn.Rcpt(email); err != nil {
		var tpErr *textproto.Error
		if errors.As(err, &tpErr) && tpErr.Code >= 500 && tpErr.Code < 600 {
			return VerdictUndeliverable, nil
		}
		return VerdictIndeterminate, nil
	}
	return VerdictDeliverable, nil
}

// VerifyStage is the final pipeline stage: it classifies every resolved but
// unverified email as deliverable, undeliverable, or indeterminate, and
// downgrades deliverable verdicts on catch-all domains since those accept
// anything.
type VerifyStage struct {
	verifier *Verifier
	cache    *DomainCache
	log      *zap.Logger
	limit    int
}

// NewVerifyStage wires the verifier as a pipeline stage.
func NewVerifyStage(verifier *Verifier, cache *DomainCache, log *zap.Logger) *VerifyStage {
	if log == nil {
		log = zap.NewNop()
	}
	return &VerifyStage{verifier: verifier, cache: cache, log: log}
}

// Name implements Stage.
func (s *VerifyStage) Name() string { return "smtp_verify" }

func (s *VerifyStage) setConcurrency(n int) { s.limit = n }

// Enrich implements Stage. Only emails with non-terminal provenance are
// probed; verified, generated, and undeliverable tags are left alone so
// re-runs are no-ops.
func (s *VerifyStage) Enrich(ctx context.Context, leads []*lead.Lead) (int, error) {
	if !s.verifier.Available(ctx) {
		return 0, ErrStageDisabled
	}
	return runLeads(ctx, leads, s.limit, func(lctx context.Context, l *lead.Lead) (int, error) {
		if !l.HasEmail() || !verifiable(l.EmailStatus) {
			return 0, nil
		}
		verdict, err := s.verifier.Verify(lctx, l.Email)
		if err != nil {
			s.log.Debug("smtp probe error",
				zap.String("email", l.Email),
				zap.Error(err))
			return 0, nil
		}
		switch verdict {
		case VerdictDeliverable:
			status := lead.StatusSMTPVerified
			if catchAll, _ := s.cache.CatchAll(lctx, domainOf(l.Email), func(pctx context.Context) (bool, error) {
				return s.verifier.ProbeCatchAll(pctx, domainOf(l.Email))
			}); catchAll == CatchAllYes {
				status = lead.StatusCatchAllGenerated
			}
			l.EmailStatus = status
			return 1, nil
		case VerdictUndeliverable:
			l.EmailStatus = lead.StatusUndeliverable
		}
		return 0, nil
	})
}

func verifiable(status lead.EmailStatus) bool {
	switch status {
	case lead.StatusUnverified, lead.StatusScraped, lead.StatusPatternGuessed:
		return true
	}
	return false
}

func domainOf(email string) string {
	_, domain, _ := strings.Cut(email, "@")
	return strings.ToLower(domain)
}
