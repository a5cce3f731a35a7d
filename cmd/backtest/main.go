package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/bhargavap21/mobius-sub001/internal/cli"
	"github.com/bhargavap21/mobius-sub001/internal/config"
	"github.com/bhargavap21/mobius-sub001/internal/svc"
	"github.com/bhargavap21/mobius-sub001/pkg/backtest"
	"github.com/bhargavap21/mobius-sub001/pkg/journal"
	"github.com/bhargavap21/mobius-sub001/pkg/sentiment"
	"github.com/bhargavap21/mobius-sub001/pkg/strategy"
)

func fatalf(format string, args ...interface{}) {
	logx.Errorf(format, args...)
	os.Exit(1)
}

// readStrategy loads the raw strategy document from a file, or stdin when
// the path is "-".
func readStrategy(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func main() {
	var (
		configPath   = flag.String("f", "etc/config.yaml", "path to application configuration")
		strategyPath = flag.String("strategy", "", "path to strategy JSON file (use - for stdin)")
		days         = flag.Int("days", 30, "trailing window length in days")
		capital      = flag.Float64("capital", 10000, "initial capital in USD")
		sessionID    = flag.String("session", "", "session id used to correlate persisted runs")
		recentRuns   = flag.Int("recent", 0, "log up to N previously persisted runs for the session")
		pretty       = flag.Bool("pretty", false, "indent the result JSON")
	)
	flag.Parse()
	logx.MustSetup(logx.LogConf{})
	logx.DisableStat()

	if *strategyPath == "" {
		fatalf("no strategy provided; use --strategy to point at a strategy JSON file")
	}

	cfg := config.MustLoad(*configPath)
	// Fall back to the standalone etc/ files when the main config carries
	// no provider sections.
	if cfg.Marketdata.Value == nil {
		cfg.Marketdata.Value = config.MustLoadMarketdata()
	}
	if cfg.Sentiment.Value == nil {
		cfg.Sentiment.Value = config.MustLoadSentiment()
	}
	cli.LogConfigSummary(cfg)

	raw, err := readStrategy(*strategyPath)
	if err != nil {
		fatalf("read strategy %s: %v", *strategyPath, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		fatalf("parse strategy %s: %v", *strategyPath, err)
	}
	schema, err := strategy.Validate(doc)
	if err != nil {
		fatalf("invalid strategy: %v", err)
	}

	serviceCtx := svc.NewServiceContext(*cfg)

	var snapshot []byte
	if cfg.Engine.DumpSentimentCache {
		backtest.WithRunHook(func(run *sentiment.Run) {
			blob, snapErr := run.Cache().Snapshot()
			if snapErr != nil {
				logx.Errorf("snapshot sentiment cache: %v", snapErr)
				return
			}
			snapshot = blob
		})(serviceCtx.Engine)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logx.Infof("starting backtest: assets=%v days=%d capital=%.2f", schema.Universe(), *days, *capital)
	result, err := serviceCtx.Engine.Run(ctx, schema, *days, *capital)
	if err != nil {
		fatalf("backtest failed: %v", err)
	}
	if result.Error != "" {
		logx.Infof("backtest degraded: %s", result.Error)
	}

	if serviceCtx.Journal != nil {
		path, jErr := serviceCtx.Journal.WriteRun(&journal.RunRecord{
			SessionID: *sessionID,
			Strategy:  json.RawMessage(raw),
			Days:      *days,
			Capital:   *capital,
			Result:    result,
		})
		if jErr != nil {
			logx.Errorf("journal run record: %v", jErr)
		} else {
			logx.Infof("run record written to %s", path)
		}
		if len(snapshot) > 0 {
			if path, jErr = serviceCtx.Journal.WriteCacheSnapshot(*sessionID, snapshot); jErr != nil {
				logx.Errorf("journal sentiment snapshot: %v", jErr)
			} else {
				logx.Infof("sentiment snapshot written to %s", path)
			}
		}
	}

	if serviceCtx.Persistence != nil {
		runID, pErr := serviceCtx.Persistence.SaveResult(ctx, *sessionID, *days, *capital, result)
		if pErr != nil {
			logx.Errorf("persist run: %v", pErr)
		} else {
			logx.Infof("run persisted as %s", runID)
		}
		if *recentRuns > 0 {
			rows, rErr := serviceCtx.Persistence.RecentRuns(ctx, *sessionID, *recentRuns)
			if rErr != nil {
				logx.Errorf("list recent runs: %v", rErr)
			}
			for _, row := range rows {
				logx.Infof("session run %s: return=%.2f%% trades=%d recorded=%s",
					row.Id, row.TotalReturn, row.TotalTrades, row.CreatedAt.Format(time.RFC3339))
			}
		}
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(result); err != nil {
		fatalf("encode result: %v", err)
	}
}
