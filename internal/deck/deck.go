// Package deck parses deck files into cards.
package deck

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrEmptyDeck is returned when a deck file contains no cards.
var ErrEmptyDeck = errors.New("deck: file contains no cards")

// Card is one parsed deck entry: a key and its ordered meanings.
type Card struct {
	Key      string
	Meanings []string
}

// Load reads a deck file from path. Each non-empty, non-comment line is
// "key<TAB>meaning1; meaning2; ...". Lines starting with '#' are comments.
func Load(path string) ([]Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only deck file.
			_ = cerr
		}
	}()
	cards, err := Parse(file.Name(), bufio.NewScanner(file))
	if err != nil {
		return nil, err
	}
	return cards, nil
}

// Parse consumes lines from the scanner and returns the parsed cards.
// The name is used in error messages only.
func Parse(name string, scanner *bufio.Scanner) ([]Card, error) {
	var cards []Card
	seen := map[string]int{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		card, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, lineNo, err)
		}
		if prev, ok := seen[card.Key]; ok {
			return nil, fmt.Errorf("%s:%d: duplicate key %q (first on line %d)", name, lineNo, card.Key, prev)
		}
		seen[card.Key] = lineNo
		cards = append(cards, card)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, ErrEmptyDeck
	}
	return cards, nil
}

func parseLine(line string) (Card, error) {
	key, rest, ok := strings.Cut(line, "\t")
	if !ok {
		return Card{}, fmt.Errorf("missing tab between key and meanings")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return Card{}, fmt.Errorf("empty key")
	}
	var meanings []string
	for _, part := range strings.Split(rest, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		meanings = append(meanings, part)
	}
	if len(meanings) == 0 {
		return Card{}, fmt.Errorf("key %q has no meanings", key)
	}
	return Card{Key: key, Meanings: meanings}, nil
}
