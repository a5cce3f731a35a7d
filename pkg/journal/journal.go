package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bhargavap21/mobius-sub001/pkg/backtest"
)

// RunRecord captures one end-to-end backtest run for audit and analysis.
type RunRecord struct {
	Timestamp time.Time        `json:"timestamp"`
	SessionID string           `json:"session_id,omitempty"`
	RunNumber int              `json:"run_number"`
	Strategy  json.RawMessage  `json:"strategy,omitempty"`
	Days      int              `json:"days"`
	Capital   float64          `json:"initial_capital"`
	Result    *backtest.Result `json:"result,omitempty"`
	Extra     map[string]any   `json:"extra,omitempty"`
}

// Writer persists run records to a directory as JSON files, one per run.
type Writer struct {
	dir   string
	seq   int
	nowFn func() time.Time
}

// NewWriter constructs a journal writer.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "journal"
	}
	_ = os.MkdirAll(dir, 0o755)
	return &Writer{dir: dir, nowFn: time.Now}
}

// WriteRun writes a run record to a timestamped JSON file and returns its
// path.
func (w *Writer) WriteRun(rec *RunRecord) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("journal: nil record")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = w.nowFn()
	}
	w.seq++
	rec.RunNumber = w.seq
	name := fmt.Sprintf("run_%s_%05d.json", rec.Timestamp.UTC().Format("20060102_150405"), w.seq)
	path := filepath.Join(w.dir, name)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// WriteCacheSnapshot stores a sentiment cache snapshot blob alongside the
// run records, for offline inspection of what the run saw.
func (w *Writer) WriteCacheSnapshot(sessionID string, blob []byte) (string, error) {
	if len(blob) == 0 {
		return "", fmt.Errorf("journal: empty snapshot")
	}
	name := fmt.Sprintf("sentiment_%s_%s.msgpack", sanitize(sessionID), w.nowFn().UTC().Format("20060102_150405"))
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func sanitize(s string) string {
	if s == "" {
		return "run"
	}
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
