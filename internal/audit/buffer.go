package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Buffer collects audit entries in memory and periodically flushes them
// to the _audit_logs table in a batch insert. Every failure along the
// write path is logged and swallowed; callers never see it.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	pool    *pgxpool.Pool
	maxSize int
	ticker  *time.Ticker
	done    chan struct{}
}

// NewBuffer creates a buffer that flushes on a timer or when full.
func NewBuffer(pool *pgxpool.Pool, maxSize int, flushIntervalMs int) *Buffer {
	b := &Buffer{
		pool:    pool,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	b.ticker = time.NewTicker(time.Duration(flushIntervalMs) * time.Millisecond)
	go b.run()
	return b
}

func (b *Buffer) run() {
	for {
		select {
		case <-b.done:
			return
		case <-b.ticker.C:
			b.Flush()
		}
	}
}

// Record enqueues an entry. If the buffer is full, a flush is triggered
// asynchronously.
func (b *Buffer) Record(ctx context.Context, action, resourceType, resourceID string, oldValues, newValues map[string]any) {
	entry := newEntry(action, resourceType, resourceID, oldValues, newValues)
	if userID, ok := ctx.Value(userIDKey{}).(string); ok {
		entry.UserID = userID
	}

	b.mu.Lock()
	b.entries = append(b.entries, entry)
	shouldFlush := len(b.entries) >= b.maxSize
	b.mu.Unlock()
	if shouldFlush {
		go b.Flush()
	}
}

// Flush writes all buffered entries to the database in a single batch
// insert.
func (b *Buffer) Flush() {
	b.mu.Lock()
	if len(b.entries) == 0 {
		b.mu.Unlock()
		return
	}
	batch := b.entries
	b.entries = nil
	b.mu.Unlock()

	ctx := context.Background()
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		log.Printf("ERROR: audit buffer acquire conn: %v", err)
		return
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		log.Printf("ERROR: audit buffer begin tx: %v", err)
		return
	}

	if _, err := tx.Exec(ctx, "SET LOCAL synchronous_commit = off"); err != nil {
		tx.Rollback(ctx)
		log.Printf("ERROR: audit buffer set sync commit: %v", err)
		return
	}

	cols := []string{"id", "action", "resource_type", "resource_id", "user_id", "old_values", "new_values", "created_at"}
	var placeholders []string
	var args []any
	for i, e := range batch {
		offset := i * len(cols)
		ph := make([]string, len(cols))
		for j := range cols {
			ph[j] = fmt.Sprintf("$%d", offset+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ",")+")")

		args = append(args, e.ID, e.Action, e.ResourceType, nullable(e.ResourceID),
			nullable(e.UserID), jsonValue(e.OldValues), jsonValue(e.NewValues), e.CreatedAt)
	}

	sql := fmt.Sprintf("INSERT INTO _audit_logs (%s) VALUES %s", strings.Join(cols, ","), strings.Join(placeholders, ","))
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		tx.Rollback(ctx)
		log.Printf("ERROR: audit buffer insert: %v", err)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("ERROR: audit buffer commit: %v", err)
	}
}

// Stop halts the background ticker and flushes remaining entries.
func (b *Buffer) Stop() {
	if b.ticker != nil {
		b.ticker.Stop()
	}
	close(b.done)
	b.Flush()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func jsonValue(m map[string]any) any {
	if m == nil {
		return nil
	}
	bs, _ := json.Marshal(m)
	return string(bs)
}

type userIDKey struct{}

// WithUserID tags a context with the acting user's id so entries
// recorded under it carry the actor.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}
