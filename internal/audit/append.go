package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/roach88/docindex/internal/store"
)

// Logger is the append queue's entry point: a thread-safe, unbounded
// FIFO of envelopes draining into audit_log on a background goroutine.
// Enqueue never blocks the caller; a slow or failing append is
// swallowed (logged at Warn) rather than propagated, matching §7's
// "audit append failures never surface to the caller."
type Logger struct {
	store *store.Store
	seq   *SeqCounter
	log   *slog.Logger

	mu     sync.Mutex
	queue  []Envelope
	signal chan struct{}
	closed bool
	done   chan struct{}
}

// NewLogger starts the background drain goroutine and returns a
// Logger bound to s. Callers should defer Close on shutdown to drain
// remaining entries.
func NewLogger(s *store.Store, seq *SeqCounter, log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	l := &Logger{
		store:  s,
		seq:    seq,
		log:    log,
		queue:  make([]Envelope, 0, 64),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go l.run()
	return l
}

// Enqueue appends env to the queue for best-effort persistence.
// Returns immediately; never blocks on I/O.
func (l *Logger) Enqueue(env Envelope) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.queue = append(l.queue, env)
	select {
	case l.signal <- struct{}{}:
	default:
	}
}

// Close stops accepting new entries and waits for the drain loop to
// finish flushing whatever is already queued.
func (l *Logger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()
	close(l.signal)
	<-l.done
}

func (l *Logger) run() {
	defer close(l.done)
	for {
		env, ok := l.dequeue()
		if ok {
			l.appendOne(env)
			continue
		}
		if l.isClosed() {
			return
		}
		_, open := <-l.signal
		if !open {
			// drain whatever remains, then exit
			for {
				env, ok := l.dequeue()
				if !ok {
					return
				}
				l.appendOne(env)
			}
		}
	}
}

func (l *Logger) dequeue() (Envelope, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return Envelope{}, false
	}
	env := l.queue[0]
	l.queue[0] = Envelope{}
	l.queue = l.queue[1:]
	return env, true
}

func (l *Logger) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed && len(l.queue) == 0
}

func (l *Logger) appendOne(env Envelope) {
	ctx := context.Background()
	envelopeJSON, err := json.Marshal(env)
	if err != nil {
		l.log.Warn("audit: marshal envelope failed", "request_id", env.RequestID, "error", err)
		return
	}
	err = l.store.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO audit_log
				(request_id, tool_name, tool_version, inputs_hash, outputs_hash, envelope_json, created_seq)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, env.RequestID, env.ToolName, env.ToolVersion, env.InputsHash, env.OutputsHash,
			string(envelopeJSON), l.seq.Next())
		return err
	})
	if err != nil {
		l.log.Warn("audit: append failed", "request_id", env.RequestID, "error", err)
	}
}
