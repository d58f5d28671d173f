package crawler

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

var checkpointHeader = []string{
	"name", "org", "role", "email", "email_status", "profile_url",
	"website", "source_url", "discovered_at",
}

// checkpointMinColumns accepts checkpoints written before the discovery
// timestamp column existed.
const checkpointMinColumns = 8

// SaveCheckpoint writes the raw contact set after each batch so a crash loses
// at most one batch of work. The file is replaced wholesale.
func SaveCheckpoint(path string, leads []*lead.Lead) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("checkpoint dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create checkpoint: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(checkpointHeader); err != nil {
		f.Close()
		return fmt.Errorf("write checkpoint header: %w", err)
	}
	for _, l := range leads {
		discovered := ""
		if !l.Discovered.IsZero() {
			discovered = l.Discovered.UTC().Format(time.RFC3339)
		}
		row := []string{
			l.Name, l.Org, l.Role, l.Email, string(l.EmailStatus),
			l.ProfileURL, l.Website, l.SourceURL, discovered,
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("write checkpoint row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush checkpoint: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close checkpoint: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadCheckpoint recovers contacts from a previous run's checkpoint. A
// missing file is not an error.
func LoadCheckpoint(path string) ([]*lead.Lead, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open checkpoint: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}
	leads := make([]*lead.Lead, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < checkpointMinColumns {
			continue
		}
		l := &lead.Lead{
			Name:       row[0],
			Org:        row[1],
			Role:       row[2],
			Email:      row[3],
			ProfileURL: row[5],
			Website:    row[6],
			SourceURL:  row[7],
		}
		if row[4] != "" {
			l.EmailStatus = lead.EmailStatus(row[4])
		}
		if len(row) > 8 && row[8] != "" {
			if ts, err := time.Parse(time.RFC3339, row[8]); err == nil {
				l.Discovered = ts
			}
		}
		leads = append(leads, l)
	}
	return leads, nil
}
