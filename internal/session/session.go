// Package session implements the typing-test state machine.
//
// An Engine moves Idle -> Running -> Finished. The first edit that changes the
// typed log starts the clock; in timed mode it also arms a countdown that the
// host advances by calling Tick roughly every TickInterval. The engine owns no
// goroutines or timers: every transition happens synchronously inside Start,
// Submit, Tick, or Restart, so an Engine must not be used concurrently.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/sprint/internal/clock"
	"github.com/verte-zerg/sprint/internal/model"
	"github.com/verte-zerg/sprint/internal/stats"
)

const (
	// TickInterval is how often hosts should call Tick in timed mode.
	TickInterval = 200 * time.Millisecond
	// PBBadgeDuration is how long hosts show the personal-best notice.
	PBBadgeDuration = 2600 * time.Millisecond
	// pbFloor keeps a lucky first keystroke from counting as a personal best.
	pbFloor = 10
)

var (
	// ErrInvalidDuration is returned by Start for a non-positive duration.
	ErrInvalidDuration = errors.New("duration must be > 0")
	// ErrEmptyPassage is returned when the passage source yields no text.
	ErrEmptyPassage = errors.New("passage is empty")
	// ErrNotStarted is returned by Restart before any Start.
	ErrNotStarted = errors.New("session not started")
)

// PassageSource returns one passage for a difficulty.
type PassageSource interface {
	Passage(d model.Difficulty) (string, error)
}

// BestStore persists the single global best WPM.
type BestStore interface {
	BestWPM(ctx context.Context) (int, error)
	SetBestWPM(ctx context.Context, wpm int) error
}

// Recorder receives every finished session.
type Recorder interface {
	RecordSession(ctx context.Context, r model.SessionResult) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the system clock.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithRecorder stores finished sessions in r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithLogger routes best-effort failures (store reads and writes) to logf.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(e *Engine) {
		e.logf = logf
	}
}

// WithWarmup skips best-score arbitration while a running session is younger
// than d. The 1 ms elapsed floor makes the very first keystroke score an
// enormous WPM; a short warm-up keeps that out of the stored record. The
// default of 0 arbitrates on every recomputation.
func WithWarmup(d time.Duration) Option {
	return func(e *Engine) {
		e.warmup = d
	}
}

// WithIDGenerator overrides how session ids are minted.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

// Engine is the session state machine.
type Engine struct {
	src      PassageSource
	best     BestStore
	recorder Recorder
	clock    clock.Clock
	logf     func(format string, args ...any)
	newID    func() string
	warmup   time.Duration

	configured  bool
	mode        model.Mode
	difficulty  model.Difficulty
	durationSec int

	id      string
	passage []rune
	// typed never grows past len(passage); the cursor is len(typed).
	typed  []rune
	phase  model.Phase
	reason model.Reason

	start    time.Time
	end      time.Time
	deadline time.Time
	// armed is true only while a timed session is running.
	armed     bool
	remaining int

	metrics     model.Metrics
	bestWPM     int
	bestAtStart int
	celebrated  bool
}

// New constructs an Engine. Call Start before feeding edits.
func New(src PassageSource, best BestStore, opts ...Option) *Engine {
	e := &Engine{
		src:   src,
		best:  best,
		clock: clock.Real{},
		logf:  logErrf,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start discards any current session and begins a new Idle one with a fresh
// passage. On error the current session is left untouched.
func (e *Engine) Start(ctx context.Context, mode model.Mode, difficulty model.Difficulty, durationSec int) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %d", model.ErrUnknownMode, int(mode))
	}
	if !difficulty.Valid() {
		return fmt.Errorf("%w: %d", model.ErrUnknownDifficulty, int(difficulty))
	}
	if durationSec <= 0 {
		return fmt.Errorf("%w, got %d", ErrInvalidDuration, durationSec)
	}
	text, err := e.src.Passage(difficulty)
	if err != nil {
		return fmt.Errorf("failed to choose passage: %w", err)
	}
	passage := []rune(text)
	if len(passage) == 0 {
		return ErrEmptyPassage
	}
	e.mode = mode
	e.difficulty = difficulty
	e.durationSec = durationSec
	e.configured = true
	e.reset(ctx, passage)
	return nil
}

// Restart re-initialises to Idle with the current settings. If the passage
// source fails, the previous passage is reused so the session stays usable.
func (e *Engine) Restart(ctx context.Context) error {
	if !e.configured {
		return ErrNotStarted
	}
	e.disarm()
	if err := e.Start(ctx, e.mode, e.difficulty, e.durationSec); err != nil {
		e.logf("failed to choose new passage, reusing current one: %v\n", err)
		e.reset(ctx, e.passage)
	}
	return nil
}

func (e *Engine) reset(ctx context.Context, passage []rune) {
	e.disarm()
	e.id = e.newID()
	e.passage = passage
	e.typed = make([]rune, 0, len(passage))
	e.phase = model.PhaseIdle
	e.reason = model.ReasonNone
	e.start = time.Time{}
	e.end = time.Time{}
	e.deadline = time.Time{}
	e.remaining = e.durationSec
	e.metrics = model.Metrics{WPM: 0, Accuracy: 100}
	e.celebrated = false
	best, ok := e.readBest(ctx)
	if !ok {
		best = 0
	}
	e.bestAtStart = best
	e.bestWPM = best
}

// Submit applies an edit. It reports whether the session changed; edits
// before Start, after Finished, or that would not alter the typed log are
// ignored.
func (e *Engine) Submit(ctx context.Context, edit Edit) bool {
	if !e.configured || e.phase == model.PhaseFinished {
		return false
	}
	switch edit.Kind {
	case EditAppend:
		if len(e.typed) >= len(e.passage) {
			return false
		}
	case EditBackspace:
		if len(e.typed) == 0 {
			return false
		}
	default:
		return false
	}

	now := e.clock.Now()
	if e.phase == model.PhaseIdle {
		e.begin(now)
	}
	if edit.Kind == EditAppend {
		e.typed = append(e.typed, edit.Char)
	} else {
		e.typed = e.typed[:len(e.typed)-1]
	}
	e.refresh(ctx, now)

	if e.mode == model.ModePassage && len(e.typed) == len(e.passage) {
		e.finish(ctx, now, model.ReasonDone)
	}
	return true
}

// Tick advances the timed-mode countdown. It is a no-op unless a timed
// session is running, so ticks that arrive after Finished or Restart have no
// effect.
func (e *Engine) Tick(ctx context.Context, now time.Time) bool {
	if !e.armed || e.phase != model.PhaseRunning || e.mode != model.ModeTimed {
		return false
	}
	e.refresh(ctx, now)
	if e.remaining <= 0 {
		e.finish(ctx, now, model.ReasonTime)
	}
	return true
}

// Armed reports whether the engine expects ticks.
func (e *Engine) Armed() bool {
	return e.armed
}

// Snapshot returns a copy of the current state for rendering.
func (e *Engine) Snapshot() model.Snapshot {
	snap := model.Snapshot{
		SessionID:    e.id,
		Phase:        e.phase,
		Mode:         e.mode,
		Difficulty:   e.difficulty,
		Reason:       e.reason,
		Passage:      append([]rune(nil), e.passage...),
		Typed:        append([]rune(nil), e.typed...),
		Metrics:      e.metrics,
		BestWPM:      e.bestWPM,
		JustHitNewPB: e.celebrated,
	}
	if e.configured && e.mode == model.ModeTimed {
		remaining := e.remaining
		snap.RemainingSec = &remaining
	}
	return snap
}

func (e *Engine) begin(now time.Time) {
	e.start = now
	e.phase = model.PhaseRunning
	if e.mode == model.ModeTimed {
		e.deadline = now.Add(time.Duration(e.durationSec) * time.Second)
		e.armed = true
	}
}

func (e *Engine) finish(ctx context.Context, now time.Time, reason model.Reason) {
	if e.phase == model.PhaseFinished {
		return
	}
	e.disarm()
	e.phase = model.PhaseFinished
	e.reason = reason
	e.end = now
	e.refresh(ctx, now)
	e.record(ctx)
}

func (e *Engine) disarm() {
	e.armed = false
}

// refresh recomputes remaining time and metrics, then runs best-score
// arbitration.
func (e *Engine) refresh(ctx context.Context, now time.Time) {
	if e.mode == model.ModeTimed && !e.deadline.IsZero() {
		ref := now
		if e.phase == model.PhaseFinished {
			ref = e.end
		}
		e.remaining = ceilSeconds(e.deadline.Sub(ref))
	}
	elapsed := stats.Elapsed(e.start, e.end, now, e.phase == model.PhaseFinished)
	e.metrics = stats.Compute(e.passage, e.typed, elapsed)
	if e.phase == model.PhaseRunning && time.Duration(elapsed)*time.Millisecond < e.warmup {
		return
	}
	e.arbitrate(ctx)
}

func (e *Engine) arbitrate(ctx context.Context) {
	wpm := e.metrics.WPM
	stored, ok := e.readBest(ctx)
	if !ok {
		// Never overwrite a record we merely failed to read.
		stored = e.bestWPM
	}
	if wpm > stored {
		if err := e.best.SetBestWPM(ctx, wpm); err != nil {
			e.logf("failed to save best wpm: %v\n", err)
		}
		stored = wpm
	}
	e.bestWPM = max(e.bestWPM, stored)

	if !e.celebrated && wpm > e.bestAtStart && wpm >= pbFloor {
		e.celebrated = true
	}
}

func (e *Engine) readBest(ctx context.Context) (int, bool) {
	if e.best == nil {
		return 0, false
	}
	best, err := e.best.BestWPM(ctx)
	if err != nil {
		e.logf("failed to load best wpm: %v\n", err)
		return 0, false
	}
	if best < 0 {
		return 0, true
	}
	return best, true
}

func (e *Engine) record(ctx context.Context) {
	if e.recorder == nil {
		return
	}
	elapsed := stats.Elapsed(e.start, e.end, e.end, true)
	result := model.SessionResult{
		ID:         e.id,
		StartedAt:  e.start,
		EndedAt:    e.end,
		Mode:       e.mode,
		Difficulty: e.difficulty,
		Reason:     e.reason,
		WPM:        e.metrics.WPM,
		Accuracy:   e.metrics.Accuracy,
		Correct:    stats.CorrectCount(e.passage, e.typed),
		Typed:      len(e.typed),
		PassageLen: len(e.passage),
		DurationMs: elapsed,
	}
	if err := e.recorder.RecordSession(ctx, result); err != nil {
		e.logf("failed to save session: %v\n", err)
	}
}

// ceilSeconds rounds a remaining duration up to whole seconds, never below 0.
func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
