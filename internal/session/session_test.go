package session

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/sprint/internal/clock"
	"github.com/verte-zerg/sprint/internal/model"
)

type fixedSource struct {
	text string
	err  error
}

func (f *fixedSource) Passage(model.Difficulty) (string, error) {
	return f.text, f.err
}

type flakyStore struct {
	MemoryStore
	readErr  error
	writeErr error
	writes   int
}

func (f *flakyStore) BestWPM(ctx context.Context) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	return f.MemoryStore.BestWPM(ctx)
}

func (f *flakyStore) SetBestWPM(ctx context.Context, wpm int) error {
	f.writes++
	if f.writeErr != nil {
		return f.writeErr
	}
	return f.MemoryStore.SetBestWPM(ctx, wpm)
}

type harness struct {
	engine *Engine
	clock  *clock.Manual
	store  *MemoryStore
	src    *fixedSource
	logs   []string
}

func newHarness(t *testing.T, passage string, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		clock: clock.NewManual(time.Unix(1_700_000_000, 0)),
		store: &MemoryStore{},
		src:   &fixedSource{text: passage},
	}
	ids := 0
	base := []Option{
		WithClock(h.clock),
		WithRecorder(h.store),
		WithLogger(func(format string, args ...any) {
			h.logs = append(h.logs, fmt.Sprintf(format, args...))
		}),
		WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("session-%d", ids)
		}),
	}
	h.engine = New(h.src, h.store, append(base, opts...)...)
	return h
}

func (h *harness) start(t *testing.T, mode model.Mode, durationSec int) {
	t.Helper()
	if err := h.engine.Start(context.Background(), mode, model.Medium, durationSec); err != nil {
		t.Fatalf("start: %v", err)
	}
}

func (h *harness) typeText(s string) {
	for _, r := range s {
		h.engine.Submit(context.Background(), Append(r))
	}
}

func TestPassageModeCompletes(t *testing.T) {
	h := newHarness(t, "cat")
	h.start(t, model.ModePassage, 60)

	h.typeText("ca")
	if snap := h.engine.Snapshot(); snap.Phase != model.PhaseRunning {
		t.Fatalf("expected running after 2 chars, got %s", snap.Phase)
	}
	h.typeText("t")
	snap := h.engine.Snapshot()
	if snap.Phase != model.PhaseFinished || snap.Reason != model.ReasonDone {
		t.Fatalf("expected finished/done, got %s/%s", snap.Phase, snap.Reason)
	}
	if snap.Metrics.Accuracy != 100 {
		t.Fatalf("expected 100%% accuracy, got %d", snap.Metrics.Accuracy)
	}
	if string(snap.Typed) != "cat" {
		t.Fatalf("expected typed log cat, got %q", string(snap.Typed))
	}
	if snap.RemainingSec != nil {
		t.Fatalf("expected no remaining time in passage mode")
	}
	if recorded := h.store.Sessions(); len(recorded) != 1 || recorded[0].Reason != model.ReasonDone {
		t.Fatalf("expected one recorded session, got %+v", recorded)
	}
}

func TestPassageModeWithMistake(t *testing.T) {
	h := newHarness(t, "cat")
	h.start(t, model.ModePassage, 60)

	h.typeText("cx")
	if snap := h.engine.Snapshot(); snap.Phase != model.PhaseRunning {
		t.Fatalf("expected running, got %s", snap.Phase)
	}
	h.typeText("t")
	snap := h.engine.Snapshot()
	if snap.Phase != model.PhaseFinished {
		t.Fatalf("expected finished, got %s", snap.Phase)
	}
	if snap.Metrics.Accuracy != 67 {
		t.Fatalf("expected accuracy 67, got %d", snap.Metrics.Accuracy)
	}
}

func TestTimedModeExpires(t *testing.T) {
	h := newHarness(t, strings.Repeat("a", 50))
	h.start(t, model.ModeTimed, 60)
	ctx := context.Background()

	snap := h.engine.Snapshot()
	if snap.RemainingSec == nil || *snap.RemainingSec != 60 {
		t.Fatalf("expected 60s remaining before start, got %v", snap.RemainingSec)
	}
	if h.engine.Tick(ctx, h.clock.Now()) {
		t.Fatalf("tick before first keystroke should be ignored")
	}

	h.typeText("a")
	if !h.engine.Armed() {
		t.Fatalf("expected countdown armed after first keystroke")
	}
	for i := 0; i < 299; i++ {
		now := h.clock.Advance(TickInterval)
		h.engine.Tick(ctx, now)
	}
	snap = h.engine.Snapshot()
	if snap.Phase != model.PhaseRunning {
		t.Fatalf("expected running at 59.8s, got %s", snap.Phase)
	}
	if *snap.RemainingSec != 1 {
		t.Fatalf("expected 1s remaining, got %d", *snap.RemainingSec)
	}

	h.engine.Tick(ctx, h.clock.Advance(TickInterval))
	snap = h.engine.Snapshot()
	if snap.Phase != model.PhaseFinished || snap.Reason != model.ReasonTime {
		t.Fatalf("expected finished/time, got %s/%s", snap.Phase, snap.Reason)
	}
	if *snap.RemainingSec != 0 {
		t.Fatalf("expected 0 remaining, got %d", *snap.RemainingSec)
	}
	if h.engine.Armed() {
		t.Fatalf("expected countdown cancelled after finish")
	}
}

func TestTimedModeAppendCappedAtPassageLength(t *testing.T) {
	h := newHarness(t, "ab")
	h.start(t, model.ModeTimed, 30)
	h.typeText("abc")
	snap := h.engine.Snapshot()
	if string(snap.Typed) != "ab" {
		t.Fatalf("expected typed log capped at passage, got %q", string(snap.Typed))
	}
	if snap.Phase != model.PhaseRunning {
		t.Fatalf("timed mode should keep running at passage end, got %s", snap.Phase)
	}
	if h.engine.Submit(context.Background(), Append('x')) {
		t.Fatalf("append past passage end should be a no-op")
	}
}

func TestBackspaceOnEmptyIsNoop(t *testing.T) {
	h := newHarness(t, "cat")
	h.start(t, model.ModePassage, 60)
	before := h.engine.Snapshot()
	if h.engine.Submit(context.Background(), Backspace()) {
		t.Fatalf("backspace on empty log reported a change")
	}
	after := h.engine.Snapshot()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("snapshot changed: %+v -> %+v", before, after)
	}
	if after.Phase != model.PhaseIdle {
		t.Fatalf("expected idle, got %s", after.Phase)
	}

	h.typeText("c")
	if !h.engine.Submit(context.Background(), Backspace()) {
		t.Fatalf("expected backspace to remove a char")
	}
	if snap := h.engine.Snapshot(); len(snap.Typed) != 0 || snap.Phase != model.PhaseRunning {
		t.Fatalf("expected empty running session, got %+v", snap)
	}
}

func TestEditsIgnoredBeforeStartAndAfterFinish(t *testing.T) {
	h := newHarness(t, "hi")
	if h.engine.Submit(context.Background(), Append('h')) {
		t.Fatalf("edit before start should be ignored")
	}
	if err := h.engine.Restart(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}

	h.start(t, model.ModePassage, 60)
	h.typeText("hi")
	before := h.engine.Snapshot()
	h.clock.Advance(5 * time.Second)
	for _, edit := range []Edit{Append('x'), Backspace(), Append(' ')} {
		if h.engine.Submit(context.Background(), edit) {
			t.Fatalf("edit after finish reported a change")
		}
	}
	h.engine.Tick(context.Background(), h.clock.Now())
	if after := h.engine.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Fatalf("snapshot changed after finish: %+v -> %+v", before, after)
	}
}

func TestRestartCancelsPendingTick(t *testing.T) {
	h := newHarness(t, strings.Repeat("ab ", 20))
	h.start(t, model.ModeTimed, 10)
	ctx := context.Background()
	h.typeText("ab")
	firstID := h.engine.Snapshot().SessionID

	if err := h.engine.Restart(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if h.engine.Armed() {
		t.Fatalf("expected restart to disarm the countdown")
	}
	before := h.engine.Snapshot()
	if before.SessionID == firstID {
		t.Fatalf("expected a new session id after restart")
	}
	if h.engine.Tick(ctx, h.clock.Advance(time.Minute)) {
		t.Fatalf("stale tick should be rejected")
	}
	after := h.engine.Snapshot()
	if !reflect.DeepEqual(before, after) || after.Phase != model.PhaseIdle {
		t.Fatalf("stale tick changed state: %+v -> %+v", before, after)
	}
	if len(h.store.Sessions()) != 0 {
		t.Fatalf("restarted session must not be recorded")
	}
}

func TestRestartReusesPassageWhenSourceFails(t *testing.T) {
	h := newHarness(t, "keep")
	h.start(t, model.ModePassage, 60)
	h.typeText("ke")
	h.src.err = errors.New("boom")
	if err := h.engine.Restart(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	snap := h.engine.Snapshot()
	if string(snap.Passage) != "keep" || len(snap.Typed) != 0 || snap.Phase != model.PhaseIdle {
		t.Fatalf("expected fresh idle session on old passage, got %+v", snap)
	}
	if len(h.logs) == 0 {
		t.Fatalf("expected passage failure to be logged")
	}
}

func TestStartValidation(t *testing.T) {
	h := newHarness(t, "x")
	ctx := context.Background()
	if err := h.engine.Start(ctx, model.ModeTimed, model.Easy, 0); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	if err := h.engine.Start(ctx, model.Mode(9), model.Easy, 10); !errors.Is(err, model.ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}
	if err := h.engine.Start(ctx, model.ModeTimed, model.Difficulty(9), 10); !errors.Is(err, model.ErrUnknownDifficulty) {
		t.Fatalf("expected ErrUnknownDifficulty, got %v", err)
	}
	h.src.text = ""
	if err := h.engine.Start(ctx, model.ModeTimed, model.Easy, 10); !errors.Is(err, ErrEmptyPassage) {
		t.Fatalf("expected ErrEmptyPassage, got %v", err)
	}
}

func TestNewPersonalBestFiresOnce(t *testing.T) {
	h := newHarness(t, strings.Repeat("a", 400), WithWarmup(5*time.Second))
	ctx := context.Background()
	if err := h.store.SetBestWPM(ctx, 50); err != nil {
		t.Fatalf("seed best: %v", err)
	}
	h.start(t, model.ModeTimed, 120)
	if snap := h.engine.Snapshot(); snap.BestWPM != 50 || snap.JustHitNewPB {
		t.Fatalf("unexpected initial snapshot: %+v", snap)
	}

	// 275 correct chars = 55 words; all typed inside the warm-up window.
	h.typeText(strings.Repeat("a", 275))
	if best, _ := h.store.BestWPM(ctx); best != 50 {
		t.Fatalf("warm-up should not touch the stored best, got %d", best)
	}

	h.engine.Tick(ctx, h.clock.Advance(time.Minute))
	snap := h.engine.Snapshot()
	if snap.Metrics.WPM != 55 {
		t.Fatalf("expected 55 wpm, got %d", snap.Metrics.WPM)
	}
	if best, _ := h.store.BestWPM(ctx); best != 55 {
		t.Fatalf("expected stored best 55, got %d", best)
	}
	if !snap.JustHitNewPB || snap.BestWPM != 55 {
		t.Fatalf("expected PB notification and best 55, got %+v", snap.BestWPM)
	}

	h.engine.Tick(ctx, h.clock.Advance(time.Second))
	snap = h.engine.Snapshot()
	if snap.Metrics.WPM >= 55 {
		t.Fatalf("expected wpm to drop as time passes, got %d", snap.Metrics.WPM)
	}
	if best, _ := h.store.BestWPM(ctx); best != 55 {
		t.Fatalf("best must not decrease, got %d", best)
	}
}

func TestPersonalBestRequiresFloor(t *testing.T) {
	h := newHarness(t, strings.Repeat("a", 100), WithWarmup(time.Second))
	h.start(t, model.ModeTimed, 600)
	ctx := context.Background()
	// One correct char per 10 seconds is far below the floor.
	for i := 0; i < 5; i++ {
		h.typeText("a")
		h.clock.Advance(10 * time.Second)
	}
	h.engine.Tick(ctx, h.clock.Now())
	snap := h.engine.Snapshot()
	if snap.Metrics.WPM >= pbFloor {
		t.Fatalf("test setup expected wpm below floor, got %d", snap.Metrics.WPM)
	}
	if snap.JustHitNewPB {
		t.Fatalf("PB notification fired below the floor")
	}
	if best, _ := h.store.BestWPM(ctx); best < snap.Metrics.WPM {
		t.Fatalf("stored best %d below current wpm %d", best, snap.Metrics.WPM)
	}
}

func TestStoreFailuresAreNotFatal(t *testing.T) {
	c := clock.NewManual(time.Unix(0, 0))
	st := &flakyStore{readErr: errors.New("db gone"), writeErr: errors.New("read-only")}
	var logged int
	e := New(&fixedSource{text: "go go"}, st,
		WithClock(c),
		WithLogger(func(string, ...any) { logged++ }),
	)
	ctx := context.Background()
	if err := e.Start(ctx, model.ModePassage, model.Easy, 60); err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap := e.Snapshot(); snap.BestWPM != 0 {
		t.Fatalf("expected best 0 on read failure, got %d", snap.BestWPM)
	}
	for _, r := range "go go" {
		c.Advance(100 * time.Millisecond)
		e.Submit(ctx, Append(r))
	}
	snap := e.Snapshot()
	if snap.Phase != model.PhaseFinished {
		t.Fatalf("expected session to finish despite store failures, got %s", snap.Phase)
	}
	if snap.BestWPM == 0 || snap.BestWPM < snap.Metrics.WPM {
		t.Fatalf("expected display best to track wpm, got best=%d wpm=%d", snap.BestWPM, snap.Metrics.WPM)
	}
	if st.writes == 0 || logged == 0 {
		t.Fatalf("expected write attempts and logs, got writes=%d logs=%d", st.writes, logged)
	}
}

func TestClockMovingBackwardsIsClamped(t *testing.T) {
	h := newHarness(t, "abc")
	h.start(t, model.ModeTimed, 30)
	h.typeText("a")
	h.clock.Advance(-time.Hour)
	h.typeText("b")
	snap := h.engine.Snapshot()
	if snap.Metrics.WPM < 0 || snap.Metrics.Accuracy != 100 {
		t.Fatalf("unexpected metrics after clock skew: %+v", snap.Metrics)
	}
}
