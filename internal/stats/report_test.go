package stats

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/sprint/internal/model"
	"github.com/verte-zerg/sprint/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sprint.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Minute)
		end := start.Add(30 * time.Second)
		r := model.SessionResult{
			ID:         fmt.Sprintf("s%d", i),
			StartedAt:  start,
			EndedAt:    end,
			Mode:       model.ModePassage,
			Difficulty: model.Easy,
			Reason:     model.ReasonDone,
			WPM:        30 + 10*i,
			Accuracy:   90,
			DurationMs: end.Sub(start).Milliseconds(),
		}
		if err := st.RecordSession(ctx, r); err != nil {
			t.Fatalf("record session: %v", err)
		}
	}
	if err := st.SetBestWPM(ctx, 50); err != nil {
		t.Fatalf("set best: %v", err)
	}

	report, err := BuildReport(ctx, st, model.HistoryConfig{Last: 2, Window: 2})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(report.Sessions))
	}
	if report.Sessions[0].ID != "s1" || report.Sessions[1].ID != "s2" {
		t.Fatalf("unexpected session ids: %+v", report.Sessions)
	}
	if report.Summary.BestWPM != 50 || report.BestWPM != 50 {
		t.Fatalf("unexpected best: summary=%d stored=%d", report.Summary.BestWPM, report.BestWPM)
	}
	if len(report.Trend) != 2 || report.Trend[1] != 45 {
		t.Fatalf("unexpected trend: %v", report.Trend)
	}
}
