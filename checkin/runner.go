package checkin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/theimaginaryfoundation/calma/internal/observability"
)

// Runner runs check-in sessions against one catalog.
type Runner struct {
	catalog  *Catalog
	store    ProfileStore
	history  HistoryLog
	pipeline Pipeline
	now      func() time.Time
	log      *slog.Logger
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

func WithPipeline(p Pipeline) RunnerOption {
	return func(r *Runner) { r.pipeline = p }
}

func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.log = l }
}

// NewRunner wires a runner. history may be nil, in which case an unbounded MemoryHistory is used.
func NewRunner(catalog *Catalog, store ProfileStore, history HistoryLog, opts ...RunnerOption) (*Runner, error) {
	if catalog == nil {
		return nil, errors.New("NewRunner: catalog is nil")
	}
	if store == nil {
		return nil, errors.New("NewRunner: store is nil")
	}
	if history == nil {
		history = NewMemoryHistory(0)
	}
	r := &Runner{
		catalog: catalog,
		store:   store,
		history: history,
		now:     time.Now,
		log:     observability.Discard(),
	}
	for _, o := range opts {
		o(r)
	}
	if r.pipeline == nil {
		r.pipeline = DefaultPipeline(r.log, nil)
	}
	return r, nil
}

// SessionResult is what one session produced.
type SessionResult struct {
	Text      string
	Intensity int
	Record    HistoryRecord
}

// RunSession computes the intensity for state, selects and post-processes a message, registers
// the session on p, appends it to the history and saves p, in that order.
//
// A history or save failure is returned together with the result: p keeps the session, and the
// next successful Save persists it. The save is attempted even when the history append fails.
func (r *Runner) RunSession(ctx context.Context, p *UserProfile, state string) (SessionResult, error) {
	if err := ctx.Err(); err != nil {
		return SessionResult{}, err
	}
	if p == nil {
		return SessionResult{}, errors.New("RunSession: profile is nil")
	}
	if strings.TrimSpace(state) == "" {
		return SessionResult{}, errors.New("RunSession: state is empty")
	}

	log := r.log.With("user", p.Name, "state", state)

	intensity := ComputeIntensity(p, state)

	at := r.now()
	in := SessionInput{
		State:     state,
		Intensity: intensity,
		User:      p.Name,
		Timestamp: at.UnixNano(),
	}
	if !r.catalog.Has(state) {
		log.Warn("state not in catalog, using fallback message")
	}
	text := r.pipeline.Apply(Select(r.catalog, state, in))

	p.RegisterSession(state, intensity)

	res := SessionResult{
		Text:      text,
		Intensity: intensity,
		Record:    NewHistoryRecord(at, p.Name, state, intensity, text),
	}

	var errs []error
	if err := r.history.AppendRecord(res.Record); err != nil {
		log.Error("failed to append history", "error", err)
		errs = append(errs, fmt.Errorf("RunSession: history: %w", err))
	}
	if err := r.store.Save(p); err != nil {
		log.Error("failed to save profile", "error", err)
		errs = append(errs, fmt.Errorf("RunSession: save: %w", err))
	}
	if len(errs) > 0 {
		return res, errors.Join(errs...)
	}

	log.Info("session completed", "intensity", intensity, "total_sessions", p.TotalSessions, "streak", p.StateStreak)
	return res, nil
}

// History exposes the runner's log.
func (r *Runner) History() HistoryLog {
	return r.history
}

// Stats renders the per-session statistics line for state.
func Stats(p *UserProfile, state string) string {
	return fmt.Sprintf("total=%d, %s=%d, mean_intensity=%.2f",
		p.TotalSessions, state, p.CountByState[state], p.MeanIntensity(state))
}
