package tui

import (
	"strings"
	"testing"
)

func TestBuildStyledRunesCursor(t *testing.T) {
	runes := buildStyledRunes([]rune("ab"), []rune("a"), 1)
	if len(runes) != 2 {
		t.Fatalf("expected 2 runes, got %d", len(runes))
	}
	if runes[0].s != correctStyle.Render("a") {
		t.Fatalf("expected correct style for first rune")
	}
	if runes[1].s != currentWordStyle.Underline(true).Render("b") {
		t.Fatalf("expected cursor style for second rune")
	}
}

func TestBuildStyledRunesNoCursorWhenFinished(t *testing.T) {
	runes := buildStyledRunes([]rune("a"), []rune("a"), -1)
	if len(runes) != 1 {
		t.Fatalf("expected 1 rune, got %d", len(runes))
	}
	if runes[0].s != correctStyle.Render("a") {
		t.Fatalf("expected correct style for completed rune")
	}
}

func TestBuildStyledRunesMistype(t *testing.T) {
	runes := buildStyledRunes([]rune("a b"), []rune("ax"), 2)
	if runes[1].s != incorrectStyle.Render(string(wrongSpaceGlyph)) {
		t.Fatalf("expected dot for mistyped space")
	}
	if !runes[1].isSpace {
		t.Fatalf("mistyped space should still wrap as a space")
	}
}

func TestBuildStyledRunesWordHighlighting(t *testing.T) {
	runes := buildStyledRunes([]rune("one two"), []rune("one "), 4)
	if runes[5].s != currentWordStyle.Render("w") {
		t.Fatalf("expected current word style inside the second word")
	}
	if runes[0].s != correctStyle.Render("o") {
		t.Fatalf("expected typed rune to keep correct style")
	}
}

func TestWordAt(t *testing.T) {
	words := findWords([]rune(" ab  cd"))
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(words))
	}
	if w := wordAt(words, 3); w == nil || w.start != 5 {
		t.Fatalf("expected space to map to the next word, got %+v", w)
	}
	if w := wordAt(words, 7); w != nil {
		t.Fatalf("expected no word past the end, got %+v", w)
	}
}

func TestWrapStyledRunesBreaksAtSpaces(t *testing.T) {
	runes := buildStyledRunes([]rune("alpha beta gamma"), nil, -1)
	out := wrapStyledRunes(runes, 11)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", lines)
	}
	if lines[0] != "alpha beta" || lines[1] != "gamma" {
		t.Fatalf("unexpected wrap: %q", lines)
	}
}

func TestWrapStyledRunesLongWord(t *testing.T) {
	runes := buildStyledRunes([]rune("abcdefgh"), nil, -1)
	out := wrapStyledRunes(runes, 3)
	if out != "abc\ndef\ngh" {
		t.Fatalf("unexpected hard wrap: %q", out)
	}
}
