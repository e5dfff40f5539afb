package deck

import (
	"bufio"
	"errors"
	"strings"
	"testing"
)

func parse(t *testing.T, input string) ([]Card, error) {
	t.Helper()
	return Parse("test.tsv", bufio.NewScanner(strings.NewReader(input)))
}

func TestParseCards(t *testing.T) {
	input := "# JLPT N5 sample\n" +
		"水\twater\n" +
		"\n" +
		"上げる\tto raise; to lift\n" +
		"火\t fire ; flame ; \n"
	cards, err := parse(t, input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cards) != 3 {
		t.Fatalf("len = %d, want 3", len(cards))
	}
	if cards[0].Key != "水" || len(cards[0].Meanings) != 1 || cards[0].Meanings[0] != "water" {
		t.Errorf("card[0] = %+v", cards[0])
	}
	if cards[1].Key != "上げる" || len(cards[1].Meanings) != 2 || cards[1].Meanings[1] != "to lift" {
		t.Errorf("card[1] = %+v", cards[1])
	}
	if len(cards[2].Meanings) != 2 || cards[2].Meanings[0] != "fire" || cards[2].Meanings[1] != "flame" {
		t.Errorf("card[2] meanings = %v", cards[2].Meanings)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		wantSub string
	}{
		{"missing tab", "water only\n", "missing tab"},
		{"empty key", "\tmeaning\n", "empty key"},
		{"no meanings", "water\t ; ; \n", "no meanings"},
		{"duplicate key", "水\twater\n水\taqua\n", "duplicate key"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parse(t, tc.input)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("err = %v, want substring %q", err, tc.wantSub)
			}
		})
	}
}

func TestParseEmptyDeck(t *testing.T) {
	_, err := parse(t, "# only comments\n\n")
	if !errors.Is(err, ErrEmptyDeck) {
		t.Fatalf("err = %v, want ErrEmptyDeck", err)
	}
}
