package model

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var _ TradeEventsModel = (*customTradeEventsModel)(nil)

// TradeEvents is one ledger entry row in public.trade_events.
type TradeEvents struct {
	Id        int64
	RunId     string
	Asset     string
	TradeType string
	Shares    float64
	Price     float64
	TradeDate string
	Reason    sql.NullString
	PnlPct    float64
}

type (
	// TradeEventsModel is an interface to be customized, add more methods
	// here, and implement the added methods in customTradeEventsModel.
	TradeEventsModel interface {
		BulkInsert(ctx context.Context, rows []TradeEvents) error
		ListByRun(ctx context.Context, runID string) ([]TradeEvents, error)
	}

	customTradeEventsModel struct {
		conn sqlx.SqlConn
	}
)

// NewTradeEventsModel returns a model for the database table.
func NewTradeEventsModel(conn sqlx.SqlConn) TradeEventsModel {
	return &customTradeEventsModel{conn: conn}
}

func (m *customTradeEventsModel) BulkInsert(ctx context.Context, rows []TradeEvents) error {
	if len(rows) == 0 {
		return nil
	}
	const query = `
INSERT INTO public.trade_events
    (run_id, asset, trade_type, shares, price, trade_date, reason, pnl_pct)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	return m.conn.TransactCtx(ctx, func(ctx context.Context, session sqlx.Session) error {
		for i := range rows {
			row := &rows[i]
			if _, err := session.ExecCtx(ctx, query,
				row.RunId,
				row.Asset,
				row.TradeType,
				row.Shares,
				row.Price,
				row.TradeDate,
				row.Reason,
				row.PnlPct,
			); err != nil {
				return fmt.Errorf("trade_events.BulkInsert row %d: %w", i, err)
			}
		}
		return nil
	})
}

// ListByRun returns the run's ledger in fill order.
func (m *customTradeEventsModel) ListByRun(ctx context.Context, runID string) ([]TradeEvents, error) {
	const query = `
SELECT id, run_id, asset, trade_type, shares, price, trade_date, reason, pnl_pct
FROM public.trade_events
WHERE run_id = $1
ORDER BY id ASC`
	var rows []TradeEvents
	if err := m.conn.QueryRowsCtx(ctx, &rows, query, runID); err != nil {
		return nil, fmt.Errorf("trade_events.ListByRun: %w", err)
	}
	return rows, nil
}
