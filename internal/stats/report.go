package stats

import (
	"context"

	"github.com/verte-zerg/sprint/internal/model"
	"github.com/verte-zerg/sprint/internal/store"
)

// Report contains precomputed data for history rendering.
type Report struct {
	Sessions []model.SessionResult
	Summary  Summary
	Trend    []float64
	BestWPM  int
}

// BuildReport loads and prepares data for history rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.HistoryConfig) (Report, error) {
	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	best, err := st.BestWPM(ctx)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Sessions: sessions,
		Summary:  Summarize(sessions),
		Trend:    WPMSeries(sessions, cfg.Window),
		BestWPM:  best,
	}, nil
}
