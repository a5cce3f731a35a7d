package engine

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"github.com/bhargavap21/mobius-sub001/internal/model"
	"github.com/bhargavap21/mobius-sub001/pkg/backtest"
)

// Service mirrors completed backtest runs to Postgres. All methods are
// no-ops on a nil service, so persistence stays optional: a run without a
// configured database still returns its Result to the caller.
type Service struct {
	sqlConn     sqlx.SqlConn
	runsModel   model.BacktestRunsModel
	tradesModel model.TradeEventsModel
	now         func() time.Time
}

// Config enumerates dependencies needed to persist run results.
type Config struct {
	SQLConn     sqlx.SqlConn
	RunsModel   model.BacktestRunsModel
	TradesModel model.TradeEventsModel
}

// NewService returns a concrete persistence service when mandatory
// dependencies are present, nil otherwise.
func NewService(cfg Config) *Service {
	if cfg.SQLConn == nil || cfg.RunsModel == nil {
		return nil
	}
	return &Service{
		sqlConn:     cfg.SQLConn,
		runsModel:   cfg.RunsModel,
		tradesModel: cfg.TradesModel,
		now:         time.Now,
	}
}

// SaveResult records one run's summary row and its trade ledger. The
// session id is an opaque correlation key supplied by the caller; it is
// stored, never interpreted. Returns the generated run id.
func (s *Service) SaveResult(ctx context.Context, sessionID string, days int, initialCapital float64, result *backtest.Result) (string, error) {
	if s == nil {
		return "", nil
	}
	if result == nil {
		return "", fmt.Errorf("persistence: nil result")
	}

	runID, err := newRunID()
	if err != nil {
		return "", err
	}

	row := &model.BacktestRuns{
		Id:                runID,
		SessionId:         nullString(sessionID),
		Days:              int64(days),
		InitialCapital:    initialCapital,
		TotalReturn:       result.Summary.TotalReturn,
		BuyHoldReturn:     result.Summary.BuyHoldReturn,
		TotalTrades:       int64(result.Summary.TotalTrades),
		WinRate:           result.Summary.WinRate,
		SharpeRatio:       result.Summary.SharpeRatio,
		MaxDrawdown:       result.Summary.MaxDrawdown,
		ProfitFactor:      result.Summary.ProfitFactor,
		DataPointsChecked: int64(result.Summary.DataPointsChecked),
		ExternalDataFound: int64(result.Summary.ExternalDataFound),
		ErrorMessage:      nullString(result.Error),
		CreatedAt:         s.now().UTC(),
	}
	row.Symbol = nullString(result.Summary.Symbol)
	if len(result.Summary.Assets) > 0 {
		assets, err := json.Marshal(result.Summary.Assets)
		if err != nil {
			return "", fmt.Errorf("persistence: marshal assets: %w", err)
		}
		row.Assets = nullString(string(assets))
	}
	blob, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("persistence: marshal result: %w", err)
	}
	row.ResultJson = blob

	if err := s.runsModel.Insert(ctx, row); err != nil {
		return "", err
	}

	if s.tradesModel != nil && len(result.Trades) > 0 {
		events := make([]model.TradeEvents, 0, len(result.Trades))
		for _, t := range result.Trades {
			events = append(events, model.TradeEvents{
				RunId:     runID,
				Asset:     t.Asset,
				TradeType: t.Type,
				Shares:    t.Shares,
				Price:     t.Price,
				TradeDate: t.Date,
				Reason:    nullString(t.Reason),
				PnlPct:    t.PnLPct,
			})
		}
		if err := s.tradesModel.BulkInsert(ctx, events); err != nil {
			// The summary row is already committed; a ledger failure should
			// not void the run.
			logx.WithContext(ctx).Errorf("persistence: trade ledger for run %s: %v", runID, err)
		}
	}
	return runID, nil
}

// RecentRuns returns the newest persisted runs recorded under the session
// id, newest first.
func (s *Service) RecentRuns(ctx context.Context, sessionID string, limit int) ([]model.BacktestRuns, error) {
	if s == nil {
		return nil, nil
	}
	return s.runsModel.RecentBySession(ctx, sessionID, limit)
}

// RunDetail loads one persisted run together with its trade ledger.
func (s *Service) RunDetail(ctx context.Context, runID string) (*model.BacktestRuns, []model.TradeEvents, error) {
	if s == nil {
		return nil, nil, nil
	}
	run, err := s.runsModel.FindOne(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	var trades []model.TradeEvents
	if s.tradesModel != nil {
		if trades, err = s.tradesModel.ListByRun(ctx, runID); err != nil {
			return nil, nil, err
		}
	}
	return run, trades, nil
}

func newRunID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("persistence: generate run id: %w", err)
	}
	return "run_" + hex.EncodeToString(buf), nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
