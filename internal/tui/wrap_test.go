package tui

import "testing"

func TestWrapTextBreaksAtSpaces(t *testing.T) {
	got := wrapText("to raise or to lift", 8)
	want := "to raise\nor to\nlift"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWrapTextBreaksOverlongWord(t *testing.T) {
	got := wrapText("unbreakable", 5)
	want := "unbre\nakabl\ne"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWrapTextWideRunes(t *testing.T) {
	// Each rune is two cells wide, so only two fit per line of width 4.
	got := wrapText("日本語能力", 4)
	want := "日本\n語能\n力"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWrapTextZeroWidthPassesThrough(t *testing.T) {
	if got := wrapText("as is", 0); got != "as is" {
		t.Fatalf("got %q", got)
	}
}
