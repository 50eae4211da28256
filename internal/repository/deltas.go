package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sqlc-dev/pqtype"

	"github.com/cluegrid/cluegrid/internal/engine"
)

// DeltaConfig tunes the journal writer's queue and retry behavior.
type DeltaConfig struct {
	QueueSize  int
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultDeltaConfig returns the standard journal writer configuration.
func DefaultDeltaConfig() DeltaConfig {
	return DeltaConfig{
		QueueSize:  256,
		MaxRetries: 3,
		RetryDelay: time.Second,
	}
}

// DeltaWriter journals partial-field game updates in the background.
// Writes are best-effort: failures are retried with backoff, then logged and
// dropped; they never roll back or block the in-memory state.
type DeltaWriter struct {
	db     *sql.DB
	config DeltaConfig
	queue  chan engine.GameDelta

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewDeltaWriter creates a journal writer over a database/sql handle.
func NewDeltaWriter(db *sql.DB, cfg DeltaConfig) *DeltaWriter {
	return &DeltaWriter{
		db:       db,
		config:   cfg,
		queue:    make(chan engine.GameDelta, cfg.QueueSize),
		stopChan: make(chan struct{}),
	}
}

// Start launches the background writer.
func (w *DeltaWriter) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("delta writer already running")
	}
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	log.Info().
		Int("queue_size", w.config.QueueSize).
		Int("max_retries", w.config.MaxRetries).
		Msg("delta writer started")
	return nil
}

// Stop drains the queue and shuts the writer down.
func (w *DeltaWriter) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("delta writer not running")
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()

	log.Info().Msg("delta writer stopped")
	return nil
}

// ApplyGameDelta enqueues a delta without blocking gameplay. A full queue
// drops the delta; the next snapshot save makes the record whole.
func (w *DeltaWriter) ApplyGameDelta(_ context.Context, delta engine.GameDelta) error {
	select {
	case w.queue <- delta:
		return nil
	default:
		log.Warn().
			Str("game_id", delta.GameID.String()).
			Msg("delta queue full, dropping delta")
		return nil
	}
}

func (w *DeltaWriter) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			w.drain(ctx)
			return
		case delta := <-w.queue:
			w.writeWithRetry(ctx, delta)
		}
	}
}

// drain flushes whatever is queued at shutdown.
func (w *DeltaWriter) drain(ctx context.Context) {
	for {
		select {
		case delta := <-w.queue:
			w.writeWithRetry(ctx, delta)
		default:
			return
		}
	}
}

func (w *DeltaWriter) writeWithRetry(ctx context.Context, delta engine.GameDelta) {
	var err error
	for attempt := 1; attempt <= w.config.MaxRetries; attempt++ {
		if err = w.write(ctx, delta); err == nil {
			return
		}
		log.Warn().
			Err(err).
			Str("game_id", delta.GameID.String()).
			Int("attempt", attempt).
			Msg("delta write failed, retrying")
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.config.RetryDelay * time.Duration(attempt)):
		}
	}
	log.Error().
		Err(err).
		Str("game_id", delta.GameID.String()).
		Msg("delta write failed after retries, dropping")
}

func (w *DeltaWriter) write(ctx context.Context, delta engine.GameDelta) error {
	payload, err := json.Marshal(delta)
	if err != nil {
		return fmt.Errorf("encode delta: %w", err)
	}
	_, err = w.db.ExecContext(ctx,
		`INSERT INTO game_deltas (game_id, delta, created_at) VALUES ($1, $2, $3)`,
		delta.GameID,
		pqtype.NullRawMessage{RawMessage: payload, Valid: true},
		delta.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert delta: %w", err)
	}
	return nil
}

// Gateway bundles the snapshot repository and the delta journal into the
// store the engine depends on.
type Gateway struct {
	*Repository
	deltas *DeltaWriter
}

// NewGateway composes the persistence gateway.
func NewGateway(repo *Repository, deltas *DeltaWriter) *Gateway {
	return &Gateway{Repository: repo, deltas: deltas}
}

// ApplyGameDelta implements the engine's store interface.
func (g *Gateway) ApplyGameDelta(ctx context.Context, delta engine.GameDelta) error {
	return g.deltas.ApplyGameDelta(ctx, delta)
}

// Start launches the background delta writer.
func (g *Gateway) Start(ctx context.Context) error {
	return g.deltas.Start(ctx)
}

// Stop drains and stops the delta writer.
func (g *Gateway) Stop() error {
	return g.deltas.Stop()
}
