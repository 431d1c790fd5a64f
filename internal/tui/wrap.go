package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// wrongSpaceGlyph marks a space in the passage that was typed as something else.
const wrongSpaceGlyph = '•'

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

type wordRange struct {
	start int
	end   int
}

// buildStyledRunes styles every passage rune by its typing state. A negative
// cursorIndex hides the cursor and the current-word highlight.
func buildStyledRunes(passage, typed []rune, cursorIndex int) []styledRune {
	var current *wordRange
	if cursorIndex >= 0 {
		current = wordAt(findWords(passage), cursorIndex)
	}

	out := make([]styledRune, 0, len(passage))
	for i, target := range passage {
		displayed := target
		style := pendingStyle
		switch {
		case i < len(typed) && typed[i] == target:
			style = correctStyle
		case i < len(typed):
			style = incorrectStyle
			if target == ' ' {
				displayed = wrongSpaceGlyph
			}
		case target != ' ' && current != nil && i >= current.start && i < current.end:
			style = currentWordStyle
		}
		if i == cursorIndex {
			style = style.Underline(true)
		}
		out = append(out, styledRune{
			s:       style.Render(string(displayed)),
			width:   runewidth.RuneWidth(displayed),
			isSpace: target == ' ',
		})
	}
	return out
}

func findWords(passage []rune) []wordRange {
	var words []wordRange
	start := -1
	for i, r := range passage {
		if r == ' ' {
			if start != -1 {
				words = append(words, wordRange{start: start, end: i})
				start = -1
			}
			continue
		}
		if start == -1 {
			start = i
		}
	}
	if start != -1 {
		words = append(words, wordRange{start: start, end: len(passage)})
	}
	return words
}

// wordAt returns the word containing idx, or the next word when idx sits on
// a space.
func wordAt(words []wordRange, idx int) *wordRange {
	for i := range words {
		if idx < words[i].end {
			return &words[i]
		}
	}
	return nil
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

// wrapStyledRunes breaks lines at the last space that fits in width, or
// mid-word when a single word is wider than the line.
func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var out strings.Builder
	line := make([]styledRune, 0, width)
	lineWidth := 0
	lastSpace := -1

	flush := func(upto int) {
		out.WriteString(renderStyledRunes(line[:upto]))
		out.WriteByte('\n')
	}
	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpace >= 0 {
				flush(lastSpace)
				line = append(line[:0:0], line[lastSpace+1:]...)
			} else {
				flush(len(line))
				line = line[:0]
			}
			lineWidth, lastSpace = measure(line)
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpace = len(line) - 1
		}
		i++
	}
	out.WriteString(renderStyledRunes(line))
	return out.String()
}

func measure(line []styledRune) (width, lastSpace int) {
	lastSpace = -1
	for i, item := range line {
		width += item.width
		if item.isSpace {
			lastSpace = i
		}
	}
	return width, lastSpace
}
