// Package bashrc maintains a marker-delimited block inside a shell startup
// file the host owns. Everything outside the block is preserved verbatim.
package bashrc

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/CloudNativeWorks/lynx-node/internal/operations/files"
)

// Markers is a begin/end sentinel line pair
type Markers struct {
	Begin string
	End   string
}

var (
	CurrentMarkers = Markers{Begin: "# >>> lynx-node >>>", End: "# <<< lynx-node <<<"}
	LegacyMarkers  = []Markers{
		{Begin: "# >>> beacon >>>", End: "# <<< beacon <<<"},
		{Begin: "# BEGIN LYNX", End: "# END LYNX"},
	}
)

type span struct{ start, end int }

// spans returns every complete begin..end region, inclusive of markers.
// A begin without an end is ignored; the last begin before an end wins.
func (m Markers) spans(lines []string) []span {
	var out []span
	start := -1
	for i, line := range lines {
		switch strings.TrimSpace(line) {
		case m.Begin:
			start = i
		case m.End:
			if start >= 0 {
				out = append(out, span{start, i})
				start = -1
			}
		}
	}
	return out
}

// Render wraps content in the markers
func (m Markers) Render(content string) []string {
	lines := []string{m.Begin}
	content = strings.TrimRight(content, "\n")
	if content != "" {
		lines = append(lines, strings.Split(content, "\n")...)
	}
	return append(lines, m.End)
}

// Upsert writes content between the current markers. An existing current
// block is replaced in place; otherwise the first legacy block is migrated;
// otherwise the block is appended after a blank line. Any further current or
// legacy blocks are removed. It reports whether the file changed.
func Upsert(path string, current Markers, legacy []Markers, content string) (bool, error) {
	original, lines, err := read(path)
	if err != nil {
		return false, err
	}

	block := current.Render(content)
	all := append([]Markers{current}, legacy...)

	var out []string
	replaced := false
	for _, m := range all {
		if s := m.spans(lines); len(s) > 0 {
			out = splice(lines, s, block)
			replaced = true
			break
		}
	}
	if !replaced {
		out = lines
		if len(out) > 0 {
			out = append(out, "")
		}
		out = append(out, block...)
	}

	// drop stragglers, keeping the block just written
	for _, m := range all {
		out = removeSpans(out, m, block)
	}

	return write(path, original, out)
}

// Remove deletes every current and legacy block from path. A missing file
// is left alone.
func Remove(path string, current Markers, legacy []Markers) (bool, error) {
	original, lines, err := read(path)
	if err != nil {
		return false, err
	}
	if original == nil {
		return false, nil
	}
	for _, m := range append([]Markers{current}, legacy...) {
		lines = removeSpans(lines, m, nil)
	}
	return write(path, original, lines)
}

// splice replaces the first span with block and drops the remaining ones
func splice(lines []string, spans []span, block []string) []string {
	out := make([]string, 0, len(lines)+len(block))
	out = append(out, lines[:spans[0].start]...)
	out = append(out, block...)
	out = append(out, lines[spans[0].end+1:]...)
	return out
}

// removeSpans deletes blocks delimited by m, except one exactly equal to keep
func removeSpans(lines []string, m Markers, keep []string) []string {
	spans := m.spans(lines)
	if len(spans) == 0 {
		return lines
	}
	kept := false
	out := make([]string, 0, len(lines))
	prev := 0
	for _, s := range spans {
		out = append(out, lines[prev:s.start]...)
		if !kept && equal(lines[s.start:s.end+1], keep) {
			out = append(out, lines[s.start:s.end+1]...)
			kept = true
		} else if s.end == len(lines)-1 && len(out) > 0 && out[len(out)-1] == "" {
			// blank separator written in front of an appended block
			out = out[:len(out)-1]
		}
		prev = s.end + 1
	}
	return append(out, lines[prev:]...)
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// read returns the raw file and its lines. A missing file yields nil data.
func read(path string) ([]byte, []string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return data, nil, nil
	}
	return data, strings.Split(text, "\n"), nil
}

func write(path string, original []byte, lines []string) (bool, error) {
	data := []byte(strings.Join(lines, "\n") + "\n")
	if len(lines) == 0 {
		data = nil
	}
	if original != nil && string(original) == string(data) {
		return false, nil
	}
	if err := files.WriteFileAtomic(path, data, files.ExistingMode(path, 0644)); err != nil {
		return false, err
	}
	return true, nil
}
