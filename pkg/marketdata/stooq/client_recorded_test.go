package stooq

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dnaeon/go-vcr/recorder"
	"github.com/stretchr/testify/assert"
)

// This test uses go-vcr to record/replay a real daily history call.
// It skips by default if cassette is absent and RECORD_CASSETTES != 1.
func TestClient_DailyHistory_Recorded(t *testing.T) {
	cassette := filepath.Join("testdata", "cassettes", "stooq_daily")
	if _, err := os.Stat(cassette + ".yaml"); os.IsNotExist(err) {
		if os.Getenv("RECORD_CASSETTES") != "1" {
			t.Skipf("cassette missing; set RECORD_CASSETTES=1 to record: %s.yaml", cassette)
		}
		err := os.MkdirAll(filepath.Dir(cassette), 0o755)
		assert.NoError(t, err, "mkdir cassettes dir should succeed")
	}

	r, err := recorder.New(cassette)
	assert.NoError(t, err, "recorder.New should not error")
	assert.NotNil(t, r, "recorder should not be nil")
	defer func() { _ = r.Stop() }()

	client := NewClient(WithHTTPClient(&http.Client{Transport: r}))
	to := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	from := to.AddDate(0, -1, 0)

	bars, err := client.DailyHistory(context.Background(), "SPY", from, to)
	assert.NoError(t, err, "DailyHistory should not error")
	assert.NotEmpty(t, bars, "bars should not be empty")
	for _, bar := range bars {
		assert.Greater(t, bar.Close, 0.0, "close should be positive")
	}
}
