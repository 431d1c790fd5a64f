package session

import (
	"context"
	"reflect"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/verte-zerg/sprint/internal/clock"
	"github.com/verte-zerg/sprint/internal/model"
)

type pickSource struct {
	passages []string
	next     int
}

func (p *pickSource) Passage(model.Difficulty) (string, error) {
	text := p.passages[p.next%len(p.passages)]
	p.next++
	return text, nil
}

// Random edit/tick/restart sequences must keep the engine's invariants.
func TestEngineInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		c := clock.NewManual(time.Unix(0, 0))
		st := &MemoryStore{}
		src := &pickSource{passages: []string{"the cat", "go fast now", "a"}}
		e := New(src, st, WithClock(c), WithLogger(func(string, ...any) {}))

		mode := rapid.SampledFrom([]model.Mode{model.ModeTimed, model.ModePassage}).Draw(t, "mode")
		duration := rapid.IntRange(1, 5).Draw(t, "duration")
		if err := e.Start(ctx, mode, model.Easy, duration); err != nil {
			t.Fatalf("start: %v", err)
		}

		lastBest := 0
		celebrations := map[string]int{}
		prevCelebrated := false
		prevID := e.Snapshot().SessionID

		steps := rapid.IntRange(1, 80).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			before := e.Snapshot()
			action := rapid.IntRange(0, 5).Draw(t, "action")
			switch action {
			case 0, 1:
				r := rapid.SampledFrom([]rune("the cagofsnw x")).Draw(t, "rune")
				e.Submit(ctx, Append(r))
			case 2:
				e.Submit(ctx, Backspace())
			case 3:
				c.Advance(time.Duration(rapid.IntRange(0, 1500).Draw(t, "advanceMs")) * time.Millisecond)
				e.Tick(ctx, c.Now())
			case 4:
				c.Advance(time.Duration(rapid.IntRange(-50, 400).Draw(t, "skewMs")) * time.Millisecond)
			case 5:
				if err := e.Restart(ctx); err != nil {
					t.Fatalf("restart: %v", err)
				}
			}
			after := e.Snapshot()

			if before.Phase == model.PhaseFinished && action != 5 {
				if !reflect.DeepEqual(before, after) {
					t.Fatalf("finished session changed on action %d", action)
				}
			}
			if len(after.Typed) > len(after.Passage) {
				t.Fatalf("typed log longer than passage: %d > %d", len(after.Typed), len(after.Passage))
			}
			if after.Metrics.WPM < 0 || after.Metrics.Accuracy < 0 || after.Metrics.Accuracy > 100 {
				t.Fatalf("metrics out of range: %+v", after.Metrics)
			}
			if after.Phase != model.PhaseRunning && e.Armed() {
				t.Fatalf("countdown armed in phase %s", after.Phase)
			}
			if after.Mode == model.ModePassage && after.Phase == model.PhaseRunning && len(after.Typed) == len(after.Passage) {
				t.Fatalf("passage fully typed but session still running")
			}

			best, _ := st.BestWPM(ctx)
			if best < lastBest {
				t.Fatalf("stored best decreased from %d to %d", lastBest, best)
			}
			lastBest = best

			if after.SessionID != prevID {
				prevCelebrated = false
				prevID = after.SessionID
			}
			if after.JustHitNewPB && !prevCelebrated {
				celebrations[after.SessionID]++
				if after.Metrics.WPM < pbFloor {
					t.Fatalf("PB fired below floor: %d", after.Metrics.WPM)
				}
			}
			if prevCelebrated && !after.JustHitNewPB {
				t.Fatalf("PB notification was re-armed within a session")
			}
			prevCelebrated = after.JustHitNewPB
		}
		for id, n := range celebrations {
			if n > 1 {
				t.Fatalf("session %s celebrated %d times", id, n)
			}
		}
	})
}
