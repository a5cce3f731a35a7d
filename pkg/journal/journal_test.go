package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhargavap21/mobius-sub001/pkg/backtest"
)

func TestWriteRun(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	w.nowFn = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	path, err := w.WriteRun(&RunRecord{
		SessionID: "sess-1",
		Days:      180,
		Capital:   10000,
		Result: &backtest.Result{
			Summary: backtest.Summary{Symbol: "SPY", TotalTrades: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run_20240301_120000_00001.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec RunRecord
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, "sess-1", rec.SessionID)
	assert.Equal(t, 1, rec.RunNumber)
	assert.Equal(t, "SPY", rec.Result.Summary.Symbol)

	_, err = w.WriteRun(nil)
	assert.Error(t, err)
}

func TestWriteCacheSnapshot(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	w.nowFn = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	path, err := w.WriteCacheSnapshot("sess/1", []byte{0x90})
	require.NoError(t, err)
	assert.Contains(t, path, "sentiment_sess_1_")

	_, err = w.WriteCacheSnapshot("s", nil)
	assert.Error(t, err)
}
