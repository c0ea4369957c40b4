package backend

import (
	"context"
	"fmt"

	"budget/internal/amqp"
	"budget/internal/config"
	"budget/internal/feed"
	"budget/internal/log"
	"budget/internal/store/memory"
	"budget/internal/store/sheets"
	"budget/internal/store/sqlite"
)

type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Factory{logger: logger.WithComponent(log.ComponentBackend)}
}

func (f *Factory) CreateBackend(ctx context.Context, cfg *config.Config) (*Result, error) {
	backendType := Type(cfg.DataBackend)
	if !backendType.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}

	switch backendType {
	case SQLite:
		return f.createSQLite(cfg)
	case Sheets:
		return f.createSheets(ctx, cfg)
	case Memory:
		return f.createMemory()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", backendType)
	}
}

func (f *Factory) createSQLite(cfg *config.Config) (*Result, error) {
	st, err := sqlite.New(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize sqlite store: %w", err)
	}

	hub := feed.NewHub(st)
	st.SetNotifier(hub)

	f.logger.Info("Initialized sqlite backend", "db_path", cfg.SQLiteDBPath)

	return &Result{
		Items:    st,
		Users:    st,
		Sessions: st,
		Hub:      hub,
		Cleanup:  st.Close,
	}, nil
}

// createSheets keeps item data in the spreadsheet while accounts and sessions
// stay in the local database. Item change notifications go through the broker
// so every process sharing the spreadsheet sees them.
func (f *Factory) createSheets(ctx context.Context, cfg *config.Config) (*Result, error) {
	local, err := sqlite.New(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize local account store: %w", err)
	}

	items, err := sheets.NewFromEnv(ctx)
	if err != nil {
		local.Close()
		return nil, fmt.Errorf("initialize sheets store: %w", err)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		local.Close()
		return nil, fmt.Errorf("initialize AMQP client: %w", err)
	}
	items.SetNotifier(client)

	hub := feed.NewHub(items)

	f.logger.Info("Initialized sheets backend",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)

	return &Result{
		Items:    items,
		Users:    local,
		Sessions: local,
		Hub:      hub,
		Run: func(ctx context.Context) error {
			return hub.Consume(ctx, client)
		},
		Cleanup: func() error {
			client.Close()
			return local.Close()
		},
	}, nil
}

func (f *Factory) createMemory() (*Result, error) {
	st := memory.New()
	hub := feed.NewHub(st)
	st.SetNotifier(hub)

	f.logger.Info("Initialized memory backend")

	return &Result{
		Items:    st,
		Users:    st,
		Sessions: st,
		Hub:      hub,
	}, nil
}
