// Package model defines shared data structures.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrUnknownMode is returned when a mode name cannot be parsed.
	ErrUnknownMode = errors.New("unknown mode")
	// ErrUnknownDifficulty is returned when a difficulty name cannot be parsed.
	ErrUnknownDifficulty = errors.New("unknown difficulty")
)

// Mode selects how a session ends.
type Mode int

const (
	// ModeTimed ends the session when the duration elapses.
	ModeTimed Mode = iota
	// ModePassage ends the session when the whole passage has been typed.
	ModePassage
)

func (m Mode) String() string {
	switch m {
	case ModeTimed:
		return "timed"
	case ModePassage:
		return "passage"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeTimed || m == ModePassage
}

// ParseMode converts a config or flag value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "timed", "time":
		return ModeTimed, nil
	case "passage", "text":
		return ModePassage, nil
	}
	return 0, fmt.Errorf("%w %q (expected timed or passage)", ErrUnknownMode, s)
}

// Difficulty selects the passage pool.
type Difficulty int

const (
	Easy Difficulty = iota
	Medium
	Hard
)

// Difficulties lists every difficulty in cycling order.
var Difficulties = []Difficulty{Easy, Medium, Hard}

func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	default:
		return fmt.Sprintf("difficulty(%d)", int(d))
	}
}

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	return d >= Easy && d <= Hard
}

// Next returns the following difficulty, wrapping after Hard.
func (d Difficulty) Next() Difficulty {
	return Difficulties[(int(d)+1)%len(Difficulties)]
}

// ParseDifficulty converts a config or flag value into a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	}
	return 0, fmt.Errorf("%w %q (expected easy, medium or hard)", ErrUnknownDifficulty, s)
}

// Phase is the lifecycle state of a session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseFinished:
		return "finished"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Reason records why a session finished.
type Reason int

const (
	ReasonNone Reason = iota
	// ReasonDone means the passage was typed to the end.
	ReasonDone
	// ReasonTime means the timed-mode countdown reached zero.
	ReasonTime
)

func (r Reason) String() string {
	switch r {
	case ReasonDone:
		return "done"
	case ReasonTime:
		return "time"
	default:
		return ""
	}
}

// ParseReason is the inverse of Reason.String. Unknown values map to ReasonNone.
func ParseReason(s string) Reason {
	switch s {
	case "done":
		return ReasonDone
	case "time":
		return ReasonTime
	}
	return ReasonNone
}

// Metrics are derived from the typed log, never stored.
type Metrics struct {
	WPM      int
	Accuracy int
}

// Snapshot is a read-only projection of a session for rendering.
type Snapshot struct {
	SessionID  string
	Phase      Phase
	Mode       Mode
	Difficulty Difficulty
	Reason     Reason
	Passage    []rune
	Typed      []rune
	Metrics    Metrics
	// RemainingSec is nil outside timed mode.
	RemainingSec *int
	BestWPM      int
	JustHitNewPB bool
}

// CurrentIndex is the position of the next character to type.
func (s Snapshot) CurrentIndex() int {
	return len(s.Typed)
}

// Config defines practice settings.
type Config struct {
	Mode         Mode
	Difficulty   Difficulty
	DurationSec  int
	PassagesPath string
}

// HistoryConfig defines filters for the session history view.
type HistoryConfig struct {
	Mode       *Mode
	Difficulty *Difficulty
	Since      *time.Time
	Last       int
	Window     int
}

// SessionResult captures a finished typing session.
type SessionResult struct {
	ID         string
	StartedAt  time.Time
	EndedAt    time.Time
	Mode       Mode
	Difficulty Difficulty
	Reason     Reason
	WPM        int
	Accuracy   int
	Correct    int
	Typed      int
	PassageLen int
	DurationMs int64
}
