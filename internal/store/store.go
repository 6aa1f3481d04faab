// Package store is the durable session store on SQLite. All mutations go
// through a single writer goroutine, which both sides of the design rely
// on: SQLite write contention stays bounded, and read-modify-write
// operations (position assignment, reaction counts, timer decrements)
// are serialized without row locks.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

const writeTimeout = 30 * time.Second

// Store wraps the SQLite handle. Reads run concurrently on the pool;
// writes are funneled through writeCh.
type Store struct {
	db       *sql.DB
	writeCh  chan writeOp
	shutdown chan struct{}
	wg       sync.WaitGroup
	closed   bool
	mu       sync.RWMutex
	log      zerolog.Logger
}

type writeOp struct {
	fn     func(*sql.DB) error
	result chan error
}

// Open opens (or creates) the database at path and bootstraps the schema.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if err := bootstrap(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrapping schema: %w", err)
	}

	s := &Store{
		db:       db,
		writeCh:  make(chan writeOp, 100),
		shutdown: make(chan struct{}),
		log:      logger.With().Str("component", "store").Logger(),
	}

	s.wg.Add(1)
	go s.writeLoop()

	return s, nil
}

// writeLoop applies all mutations in arrival order on one goroutine.
func (s *Store) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case op := <-s.writeCh:
			op.result <- op.fn(s.db)
		case <-s.shutdown:
			// Drain anything already queued so callers are not left hanging.
			for {
				select {
				case op := <-s.writeCh:
					op.result <- op.fn(s.db)
				default:
					return
				}
			}
		}
	}
}

// write queues a mutation and waits for it to complete.
func (s *Store) write(fn func(*sql.DB) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	s.mu.RUnlock()

	result := make(chan error, 1)
	select {
	case s.writeCh <- writeOp{fn: fn, result: result}:
		return <-result
	case <-time.After(writeTimeout):
		return fmt.Errorf("store: write queue timeout")
	case <-s.shutdown:
		return ErrClosed
	}
}

// Close stops the writer loop and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.shutdown)
	s.wg.Wait()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// HealthCheck validates connectivity, used by the HTTP health endpoint.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// nullStr maps optional string fields to nullable columns.
func nullStr(p *string) sql.NullString {
	if p == nil || *p == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func strPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}
