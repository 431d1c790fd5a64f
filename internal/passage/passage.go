// Package passage supplies the target texts typed during a session.
package passage

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/sprint/internal/model"
	"github.com/verte-zerg/sprint/internal/picker"
)

// ErrNoPassages is returned when no pool can serve a difficulty.
var ErrNoPassages = errors.New("no passages available")

var builtinPools = map[model.Difficulty][]string{
	model.Easy: {
		"The sun rose over the quiet hills and the town woke up slowly. A gentle breeze moved through the trees and carried the smell of rain.",
		"Practice makes progress. Keep your hands relaxed, look at the screen, and let your fingers learn the rhythm of the keys.",
		"A small group of friends walked to the market and shared stories as they went. They laughed, helped each other, and enjoyed the day.",
	},
	model.Medium: {
		"When you build software, tiny details add up: spacing, contrast, motion, and clear feedback. A thoughtful interface helps people feel confident and move quickly.",
		"A good plan balances speed and accuracy. Start steady, correct mistakes early, and build momentum without tensing your shoulders or wrists.",
		"The engineer reviewed logs, measured latency, and fixed a subtle bug that appeared only under heavy load. After the patch, the system stabilized.",
	},
	model.Hard: {
		"After months of fieldwork, the team cataloged stratified layers, cross-referenced isotope data, and revised their chronology. The conclusion was cautious: correlation is not causation, but the evidence was difficult to ignore.",
		"If you want to improve, measure what matters: consistency, error rate, and focus. Then adjust your approach - short sessions, clean technique, and deliberate practice.",
		"Under pressure, complex systems fail in surprising ways. Resilience comes from redundancy, observability, and the discipline to test assumptions before they harden.",
	},
}

// Pools picks a random passage from a fixed list per difficulty.
type Pools struct {
	pools map[model.Difficulty][]string
	pick  *picker.Picker
}

// Builtin returns the bundled passage pools.
func Builtin(pick *picker.Picker) *Pools {
	pools := make(map[model.Difficulty][]string, len(builtinPools))
	for d, list := range builtinPools {
		pools[d] = append([]string(nil), list...)
	}
	return &Pools{pools: pools, pick: pick}
}

// LoadFile reads custom passages. A .toml file holds easy/medium/hard arrays;
// any other file is read as one passage per line, shared by every difficulty.
func LoadFile(path string, pick *picker.Picker) (*Pools, error) {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return LoadPools(path, pick)
	}
	lines, err := LoadLines(path)
	if err != nil {
		return nil, err
	}
	p := &Pools{pools: make(map[model.Difficulty][]string, len(model.Difficulties)), pick: pick}
	for _, d := range model.Difficulties {
		p.pools[d] = lines
	}
	return p, nil
}

type poolsFile struct {
	Easy   []string `toml:"easy"`
	Medium []string `toml:"medium"`
	Hard   []string `toml:"hard"`
}

// LoadPools reads a TOML file with easy/medium/hard string arrays. Difficulties
// missing from the file keep the bundled passages.
func LoadPools(path string, pick *picker.Picker) (*Pools, error) {
	var file poolsFile
	md, err := toml.DecodeFile(path, &file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode passages: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown passages key %q", undecoded[0].String())
	}
	p := Builtin(pick)
	for d, list := range map[model.Difficulty][]string{
		model.Easy:   file.Easy,
		model.Medium: file.Medium,
		model.Hard:   file.Hard,
	} {
		cleaned := cleanAll(list)
		if len(cleaned) > 0 {
			p.pools[d] = cleaned
		}
	}
	return p, nil
}

// LoadLines reads one passage per line. Blank lines and lines starting with #
// are skipped.
func LoadLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open passages: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only passages file.
			_ = cerr
		}
	}()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := clean(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read passages: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoPassages, path)
	}
	return lines, nil
}

// Passage implements the session passage source. Unknown difficulties fall
// back to the medium pool.
func (p *Pools) Passage(d model.Difficulty) (string, error) {
	list, ok := p.pools[d]
	if !ok || len(list) == 0 {
		list = p.pools[model.Medium]
	}
	if len(list) == 0 {
		return "", fmt.Errorf("%w for %s", ErrNoPassages, d)
	}
	return p.pick.Pick(list), nil
}

func cleanAll(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if c := clean(s); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// clean collapses whitespace runs so a passage is a single typeable line.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
