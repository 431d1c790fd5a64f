// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/sprint/internal/model"
)

const (
	sparkChars = " .:-=+*#%@"
	// charsPerWord is the standard word length used for WPM.
	charsPerWord = 5.0
	msPerMinute  = 60000.0
)

// Compute derives WPM and accuracy from the typed log. It is pure: the
// caller supplies elapsedMs (see Elapsed), which is floored at 1 ms.
func Compute(passage, typed []rune, elapsedMs int64) model.Metrics {
	if len(typed) == 0 {
		return model.Metrics{WPM: 0, Accuracy: 100}
	}
	correct := CorrectCount(passage, typed)
	if elapsedMs < 1 {
		elapsedMs = 1
	}
	minutes := float64(elapsedMs) / msPerMinute
	wpm := int(math.Round((float64(correct) / charsPerWord) / minutes))
	if wpm < 0 {
		wpm = 0
	}
	acc := int(math.Round(float64(correct) / float64(len(typed)) * 100))
	return model.Metrics{WPM: wpm, Accuracy: acc}
}

// CorrectCount counts positions where typed matches passage. Characters typed
// past the end of the passage are ignored.
func CorrectCount(passage, typed []rune) int {
	n := len(typed)
	if len(passage) < n {
		n = len(passage)
	}
	correct := 0
	for i := 0; i < n; i++ {
		if typed[i] == passage[i] {
			correct++
		}
	}
	return correct
}

// Elapsed returns the milliseconds to feed into Compute. A session that has
// not started counts as 1 ms, and a clock that moved backwards is clamped.
func Elapsed(start, end, now time.Time, finished bool) int64 {
	if start.IsZero() {
		return 1
	}
	ref := now
	if finished {
		ref = end
	}
	ms := ref.Sub(start).Milliseconds()
	if ms < 1 {
		return 1
	}
	return ms
}

// SessionMetrics computes fractional WPM, CPM, and accuracy for history rows.
func SessionMetrics(correct, typed int, durationMs int64) (wpm, cpm, accuracy float64) {
	if durationMs <= 0 {
		return 0, 0, 0
	}
	minutes := float64(durationMs) / msPerMinute
	wpm = (float64(correct) / charsPerWord) / minutes
	cpm = float64(correct) / minutes
	if typed > 0 {
		accuracy = float64(correct) / float64(typed)
	}
	return wpm, cpm, accuracy
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// Summary aggregates a list of finished sessions.
type Summary struct {
	Sessions    int
	AvgWPM      float64
	AvgCPM      float64
	BestWPM     int
	AvgAccuracy float64
	TotalTime   time.Duration
}

// Summarize folds session results into a Summary.
func Summarize(sessions []model.SessionResult) Summary {
	var s Summary
	if len(sessions) == 0 {
		return s
	}
	var totalWPM, totalCPM, totalAcc float64
	for _, r := range sessions {
		_, cpm, _ := SessionMetrics(r.Correct, r.Typed, r.DurationMs)
		totalWPM += float64(r.WPM)
		totalCPM += cpm
		totalAcc += float64(r.Accuracy)
		s.BestWPM = max(s.BestWPM, r.WPM)
		s.TotalTime += time.Duration(r.DurationMs) * time.Millisecond
	}
	s.Sessions = len(sessions)
	s.AvgWPM = totalWPM / float64(len(sessions))
	s.AvgCPM = totalCPM / float64(len(sessions))
	s.AvgAccuracy = totalAcc / float64(len(sessions))
	return s
}

// WPMSeries returns per-session WPM smoothed over window.
func WPMSeries(sessions []model.SessionResult, window int) []float64 {
	values := make([]float64, len(sessions))
	for i, r := range sessions {
		values[i] = float64(r.WPM)
	}
	return MovingAverage(values, window)
}

// RenderSummary prints a summary block for sessions.
func RenderSummary(w io.Writer, sessions []model.SessionResult) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	sum := Summarize(sessions)
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", sum.Sessions),
		fmt.Sprintf("Avg WPM: %.1f", sum.AvgWPM),
		fmt.Sprintf("Avg CPM: %.1f", sum.AvgCPM),
		fmt.Sprintf("Best WPM: %d", sum.BestWPM),
		fmt.Sprintf("Avg Accuracy: %.1f%%", sum.AvgAccuracy),
		fmt.Sprintf("Time typed: %s", sum.TotalTime.Round(time.Second)),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderTrend prints a WPM sparkline that fits into width columns.
func RenderTrend(w io.Writer, sessions []model.SessionResult, window, width int) error {
	if len(sessions) == 0 {
		return nil
	}
	series := WPMSeries(sessions, window)
	if width > 0 && len(series) > width {
		series = series[len(series)-width:]
	}
	if _, err := fmt.Fprintf(w, "WPM trend (window %d)\n", window); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s\n\n", Sparkline(series))
	return err
}

// RenderHistoryTable prints one row per session, newest last.
func RenderHistoryTable(w io.Writer, sessions []model.SessionResult) error {
	if len(sessions) == 0 {
		return nil
	}
	headers := []string{"Ended", "Mode", "Difficulty", "WPM", "Accuracy", "Duration", "Reason"}
	rows := make([][]string, 0, len(sessions))
	for _, r := range sessions {
		rows = append(rows, HistoryRow(r))
	}
	rightAlign := map[int]bool{3: true, 4: true, 5: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// HistoryRow formats a session result as table cells.
func HistoryRow(r model.SessionResult) []string {
	return []string{
		r.EndedAt.Local().Format("2006-01-02 15:04"),
		r.Mode.String(),
		r.Difficulty.String(),
		fmt.Sprintf("%d", r.WPM),
		fmt.Sprintf("%d%%", r.Accuracy),
		FormatClock(int(r.DurationMs / 1000)),
		r.Reason.String(),
	}
}

// FormatClock renders seconds as m:ss. Negative values render as 0:00.
func FormatClock(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}
