package daemon

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/studytime-tracker/studytime/internal/api"
	"github.com/studytime-tracker/studytime/internal/app/reward"
	"github.com/studytime-tracker/studytime/internal/infra/sqlite"
)

// Daemon owns the store, engine, and HTTP server.
type Daemon struct {
	cfg    Config
	db     *sqlite.DB
	server *http.Server
}

// New opens the store and assembles the daemon.
func New(cfg Config) (*Daemon, error) {
	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sqlite.Open(cfg.Storage.Dir)
	if err != nil {
		return nil, err
	}

	engine := reward.New(db, db, db)
	srv := api.NewServer(db, engine)
	if cfg.Metrics.Enabled {
		srv.EnableMetrics()
	}

	return &Daemon{
		cfg: cfg,
		db:  db,
		server: &http.Server{
			Addr:    cfg.API.Addr(),
			Handler: srv.Handler(),
		},
	}, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (d *Daemon) Run(ctx context.Context) error {
	if d.cfg.Wallet.DailyReset {
		go d.resetLoop(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("studytime: listening on %s", d.server.Addr)
		errCh <- d.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := d.server.Shutdown(shutdownCtx)
		d.db.Close()
		return err
	case err := <-errCh:
		d.db.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// resetLoop zeroes non-carry-over wallets shortly after each local
// midnight. Carry-over wallets keep their balance; that flag is a wallet
// setting, not engine logic.
func (d *Daemon) resetLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(untilNextMidnight(time.Now())):
			n, err := d.db.ResetNonCarryOverWallets(ctx)
			if err != nil {
				log.Printf("studytime: daily wallet reset failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("studytime: daily reset cleared %d wallet(s)", n)
			}
		}
	}
}

// untilNextMidnight returns the duration until the next local midnight.
func untilNextMidnight(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	return next.Sub(now)
}
