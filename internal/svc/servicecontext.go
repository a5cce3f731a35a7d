package svc

import (
	"log"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"github.com/bhargavap21/mobius-sub001/internal/config"
	"github.com/bhargavap21/mobius-sub001/internal/model"
	persistence "github.com/bhargavap21/mobius-sub001/internal/persistence/engine"
	"github.com/bhargavap21/mobius-sub001/pkg/backtest"
	"github.com/bhargavap21/mobius-sub001/pkg/journal"
	"github.com/bhargavap21/mobius-sub001/pkg/marketdata"
	_ "github.com/bhargavap21/mobius-sub001/pkg/marketdata/stooq" // register stooq provider
	"github.com/bhargavap21/mobius-sub001/pkg/sentiment"
)

type ServiceContext struct {
	Config config.Config

	MarketdataConfig *marketdata.Config
	PriceProviders   map[string]marketdata.Provider
	DefaultPrices    marketdata.Provider

	SentimentConfig *sentiment.Config
	Scorer          sentiment.TextScorer
	Aggregator      *sentiment.Aggregator

	Engine  *backtest.Engine
	Journal *journal.Writer

	// Optional Postgres mirror of run results; nil without a DSN.
	DBConn       sqlx.SqlConn
	BacktestRuns model.BacktestRunsModel
	TradeEvents  model.TradeEventsModel
	Persistence  *persistence.Service
}

func NewServiceContext(c config.Config) *ServiceContext {
	svc := &ServiceContext{
		Config: c,
		Scorer: sentiment.NewLexiconScorer(),
	}

	if c.Marketdata.Value != nil {
		providers, err := c.Marketdata.Value.BuildProviders()
		if err != nil {
			log.Fatalf("failed to build price providers: %v", err)
		}
		svc.MarketdataConfig = c.Marketdata.Value
		svc.PriceProviders = providers
		if name := c.Marketdata.Value.Default; name != "" {
			svc.DefaultPrices = providers[name]
		} else {
			for _, p := range providers {
				svc.DefaultPrices = p
				break
			}
		}
	}

	if c.Sentiment.Value != nil {
		agg, err := c.Sentiment.Value.BuildAggregator(svc.Scorer)
		if err != nil {
			log.Fatalf("failed to build sentiment aggregator: %v", err)
		}
		svc.SentimentConfig = c.Sentiment.Value
		svc.Aggregator = agg
	}

	svc.Engine = backtest.NewEngine(svc.DefaultPrices, svc.Aggregator,
		backtest.WithFetchTimeout(c.FetchTimeout()),
		backtest.WithWorkers(c.Engine.Workers),
	)

	if c.Engine.JournalDir != "" {
		svc.Journal = journal.NewWriter(c.Engine.JournalDir)
	}

	// Only inject DB models when a DSN is provided; runs work without
	// persistence.
	if c.Postgres.DSN != "" {
		conn := sqlx.NewSqlConn("pgx", c.Postgres.DSN)
		svc.DBConn = conn
		svc.BacktestRuns = model.NewBacktestRunsModel(conn)
		svc.TradeEvents = model.NewTradeEventsModel(conn)
		svc.Persistence = persistence.NewService(persistence.Config{
			SQLConn:     conn,
			RunsModel:   svc.BacktestRuns,
			TradesModel: svc.TradeEvents,
		})
	}
	return svc
}
