// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/recall/internal/model"
)

const sparkChars = " .:-=+*#%@"

// SessionMetrics computes reviews-per-minute and accuracy for a session.
func SessionMetrics(correct, incorrect int, durationMs int64) (pace, accuracy float64) {
	den := float64(correct + incorrect)
	if den > 0 {
		accuracy = float64(correct) / den
	}
	if durationMs <= 0 {
		return 0, accuracy
	}
	minutes := float64(durationMs) / 60000.0
	if minutes <= 0 {
		return 0, accuracy
	}
	pace = den / minutes
	return pace, accuracy
}

// CardAccuracy returns a card aggregate's accuracy; unreviewed cards count as 1.
func CardAccuracy(agg model.CardAggregate) float64 {
	total := agg.Correct + agg.Incorrect
	if total == 0 {
		return 1.0
	}
	return float64(agg.Correct) / float64(total)
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
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints a summary table for review sessions.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	var totalPace, totalAcc, bestAcc float64
	reviews := 0
	for _, s := range sessions {
		pace, acc := SessionMetrics(s.Correct, s.Incorrect, s.DurationMs)
		totalPace += pace
		totalAcc += acc
		if acc > bestAcc {
			bestAcc = acc
		}
		reviews += s.Correct + s.Incorrect
	}
	count := float64(len(sessions))
	if _, err := fmt.Fprintln(w, "Summary"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Sessions: %d\n", len(sessions)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Reviews: %d\n", reviews); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Avg Accuracy: %.2f%%\n", (totalAcc/count)*100); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Best Accuracy: %.2f%%\n", bestAcc*100); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Avg Pace: %.1f reviews/min\n", totalPace/count); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

// RenderCurves prints learning curves for accuracy and pace.
func RenderCurves(w io.Writer, sessions []model.SessionAggregate, window int) error {
	return RenderCurvesWithSize(w, sessions, window, 0, 10, false)
}

// RenderCurvesWithSize prints learning curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, sessions []model.SessionAggregate, window, totalWidth, height int, useColor bool) error {
	if len(sessions) == 0 {
		return nil
	}
	paces := make([]float64, len(sessions))
	accs := make([]float64, len(sessions))
	for i, s := range sessions {
		pace, acc := SessionMetrics(s.Correct, s.Incorrect, s.DurationMs)
		paces[i] = pace
		accs[i] = acc * 100
	}
	paces = MovingAverage(paces, window)
	accs = MovingAverage(accs, window)

	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeriesWithColor(w, "Learning Curves", []Series{
		{Name: "Accuracy", Values: accs},
		{Name: "Pace", Values: paces},
	}, width, height, useColor)
}

// RenderCardTable prints per-card aggregates, hardest cards first.
func RenderCardTable(w io.Writer, aggs []model.CardAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No card stats found.")
		return err
	}
	sorted := make([]model.CardAggregate, len(aggs))
	copy(sorted, aggs)
	sort.Slice(sorted, func(i, j int) bool {
		ai := CardAccuracy(sorted[i])
		aj := CardAccuracy(sorted[j])
		if ai == aj {
			return sorted[i].Key < sorted[j].Key
		}
		return ai < aj
	})

	if _, err := fmt.Fprintln(w, "Per-Card (Windowed)"); err != nil {
		return err
	}

	headers := []string{"Card", "Accuracy", "Correct", "Incorrect"}
	tableRows := make([][]string, 0, len(sorted))
	for _, agg := range sorted {
		tableRows = append(tableRows, []string{
			agg.Key,
			fmt.Sprintf("%.2f%%", CardAccuracy(agg)*100),
			fmt.Sprintf("%d", agg.Correct),
			fmt.Sprintf("%d", agg.Incorrect),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true}
	lines := formatTable(headers, tableRows, rightAlign)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

// RenderCardCurves prints per-card accuracy curves.
func RenderCardCurves(w io.Writer, sessions []model.SessionAggregate, perSession map[string]map[string]model.CardAggregate, keys []string, window int) error {
	return RenderCardCurvesWithSize(w, sessions, perSession, keys, window, 0, 10, false)
}

// RenderCardCurvesWithSize prints per-card accuracy curves sized to a given total width.
func RenderCardCurvesWithSize(w io.Writer, sessions []model.SessionAggregate, perSession map[string]map[string]model.CardAggregate, keys []string, window, totalWidth, height int, useColor bool) error {
	if len(keys) == 0 || len(sessions) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Per-Card Curves"); err != nil {
		return err
	}
	for _, key := range keys {
		accSeries := make([]float64, len(sessions))
		for i, s := range sessions {
			if data, ok := perSession[s.SessionID]; ok {
				if agg, ok := data[key]; ok {
					total := agg.Correct + agg.Incorrect
					if total > 0 {
						accSeries[i] = float64(agg.Correct) / float64(total) * 100
					}
				}
			}
		}
		accSeries = MovingAverage(accSeries, window)
		width := 0
		if totalWidth > 0 {
			width = PlotWidthFor(totalWidth)
		}
		if err := PlotSeriesWithColor(w, fmt.Sprintf("Card %s", key), []Series{
			{Name: "Accuracy", Values: accSeries},
		}, width, height, useColor); err != nil {
			return err
		}
	}
	return nil
}
