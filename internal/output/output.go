// Package output persists scored contacts: a deduplicated master CSV, a
// timestamped history snapshot per run, a delta file of contacts not seen in
// the prior master, and an optional spreadsheet copy of the master.
package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

// Config controls where exports land.
type Config struct {
	Dir        string `mapstructure:"dir"`
	MasterFile string `mapstructure:"master_file"`
	XLSX       bool   `mapstructure:"xlsx"`
}

// DefaultConfig returns the stock export layout under ./data.
func DefaultConfig() Config {
	return Config{
		Dir:        "data",
		MasterFile: "investor_leads_master.csv",
		XLSX:       true,
	}
}

var header = []string{
	"name", "email", "email_status", "role", "org", "sectors", "stage",
	"check_size", "location", "profile_url", "website", "score", "tier",
	"source_url", "discovered_at",
}

// Result describes one master export.
type Result struct {
	MasterPath  string
	HistoryPath string
	DeltaPath   string
	XLSXPath    string
	Total       int
	New         int
}

// Writer exports contact sets. Raw (pre-enrichment) files land under
// <dir>/raw, the master and its snapshots under <dir>/enriched.
type Writer struct {
	cfg Config
	log *zap.Logger
	now func() time.Time
}

// NewWriter creates a Writer. A nil logger discards log output.
func NewWriter(cfg Config, log *zap.Logger) *Writer {
	if cfg.Dir == "" {
		cfg.Dir = DefaultConfig().Dir
	}
	if cfg.MasterFile == "" {
		cfg.MasterFile = DefaultConfig().MasterFile
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{cfg: cfg, log: log, now: time.Now}
}

func (w *Writer) rawPath(name string) string {
	return filepath.Join(w.cfg.Dir, "raw", name)
}

func (w *Writer) enrichedPath(name string) string {
	return filepath.Join(w.cfg.Dir, "enriched", name)
}

// MasterPath is the location of the deduplicated master export.
func (w *Writer) MasterPath() string {
	return w.enrichedPath(w.cfg.MasterFile)
}

// WriteRaw exports an unenriched contact set, typically a crawl batch.
func (w *Writer) WriteRaw(name string, leads []*lead.Lead) (string, error) {
	path := w.rawPath(name)
	if err := writeCSV(path, leads); err != nil {
		return "", err
	}
	w.log.Info("wrote raw export", zap.String("path", path), zap.Int("leads", len(leads)))
	return path, nil
}

// WriteMaster merges the contact set into the master export. The incoming set
// is deduplicated and sorted best-first, the delta against the prior master is
// computed before the file is replaced, and a timestamped snapshot of the new
// master is kept alongside it.
func (w *Writer) WriteMaster(leads []*lead.Lead) (*Result, error) {
	deduped := Dedup(leads)
	sort.SliceStable(deduped, func(i, j int) bool { return deduped[i].Score > deduped[j].Score })

	deltas, err := w.Deltas(deduped)
	if err != nil {
		return nil, err
	}

	res := &Result{MasterPath: w.MasterPath(), Total: len(deduped), New: len(deltas)}
	if err := writeCSV(res.MasterPath, deduped); err != nil {
		return nil, err
	}

	stamp := w.now().Format("20060102_150405")
	res.HistoryPath = w.enrichedPath("leads_" + stamp + ".csv")
	if err := writeCSV(res.HistoryPath, deduped); err != nil {
		return nil, err
	}

	if len(deltas) > 0 {
		res.DeltaPath = w.enrichedPath("leads_delta_" + stamp + ".csv")
		if err := writeCSV(res.DeltaPath, deltas); err != nil {
			return nil, err
		}
	}

	if w.cfg.XLSX {
		res.XLSXPath = strings.TrimSuffix(res.MasterPath, filepath.Ext(res.MasterPath)) + ".xlsx"
		if err := writeXLSX(res.XLSXPath, deduped); err != nil {
			return nil, err
		}
	}

	w.log.Info("wrote master export",
		zap.String("path", res.MasterPath),
		zap.Int("total", res.Total),
		zap.Int("new", res.New))
	return res, nil
}

// Deltas returns the contacts whose dedup key does not appear in the current
// master file. With no master on disk every contact is new.
func (w *Writer) Deltas(leads []*lead.Lead) ([]*lead.Lead, error) {
	existing, err := masterKeys(w.MasterPath())
	if err != nil {
		return nil, err
	}
	var deltas []*lead.Lead
	for _, l := range leads {
		if _, ok := existing[l.DedupKey()]; !ok {
			deltas = append(deltas, l)
		}
	}
	return deltas, nil
}

// Dedup drops repeat (name, organization) identities, keeping the first
// occurrence of each.
func Dedup(leads []*lead.Lead) []*lead.Lead {
	seen := make(map[string]struct{}, len(leads))
	out := make([]*lead.Lead, 0, len(leads))
	for _, l := range leads {
		key := l.DedupKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}

func masterKeys(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open master: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read master: %w", err)
	}
	keys := make(map[string]struct{})
	for i, row := range rows {
		if i == 0 || len(row) < len(header) {
			continue
		}
		l := lead.Lead{Name: row[0], Org: row[4]}
		keys[l.DedupKey()] = struct{}{}
	}
	return keys, nil
}

func writeCSV(path string, leads []*lead.Lead) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write export header: %w", err)
	}
	for _, l := range leads {
		if err := cw.Write(row(l)); err != nil {
			f.Close()
			return fmt.Errorf("write export row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush export: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export: %w", err)
	}
	return os.Rename(tmp, path)
}

func row(l *lead.Lead) []string {
	discovered := ""
	if !l.Discovered.IsZero() {
		discovered = l.Discovered.UTC().Format(time.RFC3339)
	}
	return []string{
		l.Name,
		l.Email,
		string(l.EmailStatus),
		l.Role,
		l.Org,
		strings.Join(l.Sectors, "; "),
		l.Stage,
		l.CheckSize,
		l.Location,
		l.ProfileURL,
		l.Website,
		strconv.Itoa(int(l.Score)),
		l.Tier,
		l.SourceURL,
		discovered,
	}
}
