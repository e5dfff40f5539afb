package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/recall/internal/deck"
	"github.com/verte-zerg/recall/internal/model"
	"github.com/verte-zerg/recall/internal/store"
)

func TestBuildReport(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "recall.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	cards := []deck.Card{
		{Key: "水", Meanings: []string{"water"}},
		{Key: "火", Meanings: []string{"fire"}},
	}
	if err := st.ImportDeck(ctx, "n5", cards); err != nil {
		t.Fatalf("import deck: %v", err)
	}

	var ids []string
	for i := 0; i < 3; i++ {
		rs := st.NewReviewSession("n5", 0)
		if err := rs.RecordReview(ctx, "水", true); err != nil {
			t.Fatalf("record review: %v", err)
		}
		if err := rs.RecordReview(ctx, "火", i%2 == 0); err != nil {
			t.Fatalf("record review: %v", err)
		}
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Minute)
		end := start.Add(30 * time.Second)
		sum := model.SessionSummary{
			SessionID:  rs.ID(),
			StartedAt:  start,
			EndedAt:    end,
			Deck:       "n5",
			Correct:    2,
			Incorrect:  1,
			DurationMs: end.Sub(start).Milliseconds(),
		}
		if err := st.InsertSession(ctx, sum); err != nil {
			t.Fatalf("insert session: %v", err)
		}
		ids = append(ids, rs.ID())
	}

	cfg := model.StatsConfig{
		Deck:        "n5",
		Last:        2,
		CurveWindow: 2,
		Cards:       "水,火",
	}
	report, err := BuildReport(ctx, st, cfg)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(report.Sessions))
	}
	if report.Sessions[0].SessionID != ids[1] || report.Sessions[1].SessionID != ids[2] {
		t.Fatalf("unexpected session ids: %+v", report.Sessions)
	}
	if len(report.WindowSessionIDs) != 2 {
		t.Fatalf("expected 2 window session ids, got %d", len(report.WindowSessionIDs))
	}
	if len(report.CardAggsAll) == 0 {
		t.Fatalf("expected card aggregates for all sessions")
	}
	if len(report.CardAggsWindow) == 0 {
		t.Fatalf("expected card aggregates for window sessions")
	}
}
