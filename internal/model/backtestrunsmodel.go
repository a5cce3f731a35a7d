package model

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var _ BacktestRunsModel = (*customBacktestRunsModel)(nil)

// BacktestRuns is one persisted run row in public.backtest_runs.
type BacktestRuns struct {
	Id                string
	SessionId         sql.NullString
	Symbol            sql.NullString
	Assets            sql.NullString // JSON array for portfolio runs
	Days              int64
	InitialCapital    float64
	TotalReturn       float64
	BuyHoldReturn     float64
	TotalTrades       int64
	WinRate           float64
	SharpeRatio       float64
	MaxDrawdown       float64
	ProfitFactor      float64
	DataPointsChecked int64
	ExternalDataFound int64
	ErrorMessage      sql.NullString
	ResultJson        []byte
	CreatedAt         time.Time
}

type (
	// BacktestRunsModel is an interface to be customized, add more methods
	// here, and implement the added methods in customBacktestRunsModel.
	BacktestRunsModel interface {
		Insert(ctx context.Context, data *BacktestRuns) error
		FindOne(ctx context.Context, id string) (*BacktestRuns, error)
		RecentBySession(ctx context.Context, sessionID string, limit int) ([]BacktestRuns, error)
	}

	customBacktestRunsModel struct {
		conn sqlx.SqlConn
	}
)

// NewBacktestRunsModel returns a model for the database table.
func NewBacktestRunsModel(conn sqlx.SqlConn) BacktestRunsModel {
	return &customBacktestRunsModel{conn: conn}
}

const backtestRunColumns = `
    id,
    session_id,
    symbol,
    assets,
    days,
    initial_capital,
    total_return,
    buy_hold_return,
    total_trades,
    win_rate,
    sharpe_ratio,
    max_drawdown,
    profit_factor,
    data_points_checked,
    external_data_found,
    error_message,
    result_json,
    created_at`

func (m *customBacktestRunsModel) Insert(ctx context.Context, data *BacktestRuns) error {
	if data == nil {
		return fmt.Errorf("backtest_runs.Insert: nil row")
	}
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now().UTC()
	}
	const query = `
INSERT INTO public.backtest_runs (` + backtestRunColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := m.conn.ExecCtx(ctx, query,
		data.Id,
		data.SessionId,
		data.Symbol,
		data.Assets,
		data.Days,
		data.InitialCapital,
		data.TotalReturn,
		data.BuyHoldReturn,
		data.TotalTrades,
		data.WinRate,
		data.SharpeRatio,
		data.MaxDrawdown,
		data.ProfitFactor,
		data.DataPointsChecked,
		data.ExternalDataFound,
		data.ErrorMessage,
		data.ResultJson,
		data.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("backtest_runs.Insert: %w", err)
	}
	return nil
}

func (m *customBacktestRunsModel) FindOne(ctx context.Context, id string) (*BacktestRuns, error) {
	const query = `SELECT ` + backtestRunColumns + ` FROM public.backtest_runs WHERE id = $1 LIMIT 1`
	var row BacktestRuns
	if err := m.conn.QueryRowCtx(ctx, &row, query, id); err != nil {
		return nil, fmt.Errorf("backtest_runs.FindOne: %w", err)
	}
	return &row, nil
}

// RecentBySession returns the newest runs recorded under the session id.
// Limit defaults to 50 when non-positive.
func (m *customBacktestRunsModel) RecentBySession(ctx context.Context, sessionID string, limit int) ([]BacktestRuns, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
SELECT ` + backtestRunColumns + `
FROM public.backtest_runs
WHERE session_id = $1
ORDER BY created_at DESC
LIMIT $2`
	var rows []BacktestRuns
	if err := m.conn.QueryRowsCtx(ctx, &rows, query, sessionID, limit); err != nil {
		return nil, fmt.Errorf("backtest_runs.RecentBySession: %w", err)
	}
	return rows, nil
}
