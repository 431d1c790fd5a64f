package session

import "unicode"

// EditKind is the kind of change an edit makes to the typed log.
type EditKind int

const (
	EditAppend EditKind = iota + 1
	EditBackspace
)

// Edit is a single accepted change to the typed log.
type Edit struct {
	Kind EditKind
	Char rune
}

// Append returns an edit that appends r.
func Append(r rune) Edit { return Edit{Kind: EditAppend, Char: r} }

// Backspace returns an edit that removes the last typed character.
func Backspace() Edit { return Edit{Kind: EditBackspace} }

// KeyType is the coarse class of a raw key event.
type KeyType int

const (
	KeyOther KeyType = iota
	KeyRunes
	KeyEnter
	KeyBackspace
)

// Key is a raw input event as delivered by the host.
type Key struct {
	Type  KeyType
	Runes []rune
	Ctrl  bool
	Alt   bool
	Meta  bool
}

// Classify maps a raw key to an edit. The second result is false for keys the
// session does not handle; modifier chords are left to the host.
func Classify(k Key) (Edit, bool) {
	if k.Ctrl || k.Alt || k.Meta {
		return Edit{}, false
	}
	switch k.Type {
	case KeyRunes:
		if len(k.Runes) != 1 || !unicode.IsPrint(k.Runes[0]) {
			return Edit{}, false
		}
		return Append(k.Runes[0]), true
	case KeyEnter:
		// Mobile keyboards send Enter as their confirm key.
		return Append(' '), true
	case KeyBackspace:
		return Backspace(), true
	default:
		return Edit{}, false
	}
}
