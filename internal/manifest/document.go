package manifest

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSectionNotFound is returned when no [name] header exists in the document
	ErrSectionNotFound = errors.New("section not found in manifest")
	// ErrKeyNotFound is returned when a key has no assignment line inside its section
	ErrKeyNotFound = errors.New("key not found in section")
)

// Document is the manifest as an ordered list of raw lines.
// Line terminators are not stored; a "\r" left by CRLF files stays part of
// the line so rewriting the file keeps its original line endings.
type Document struct {
	lines []string
}

// Bounds delimits a section: Start is the header line, End is the next
// header line or the document length.
type Bounds struct {
	Start int
	End   int
}

// Parse splits manifest text into a Document.
func Parse(text string) *Document {
	return &Document{lines: strings.Split(text, "\n")}
}

// NewDocument creates a Document from already split lines.
func NewDocument(lines []string) *Document {
	l := make([]string, len(lines))
	copy(l, lines)
	return &Document{lines: l}
}

// String joins the lines back into manifest text.
func (d *Document) String() string {
	return strings.Join(d.lines, "\n")
}

// Lines returns a copy of the document lines.
func (d *Document) Lines() []string {
	l := make([]string, len(d.lines))
	copy(l, d.lines)
	return l
}

func isHeader(trimmed string) bool {
	return strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")
}

// sectionName returns the name of a header line, ignoring spaces inside
// the brackets, so "[ demo ]" and "[demo]" both name demo.
func sectionName(line string) (string, bool) {
	t := strings.TrimSpace(line)
	if !isHeader(t) {
		return "", false
	}
	return strings.TrimSpace(t[1 : len(t)-1]), true
}

// Sections returns every section name in document order.
func (d *Document) Sections() []string {
	var names []string
	for _, line := range d.lines {
		if name, ok := sectionName(line); ok {
			names = append(names, name)
		}
	}
	return names
}

// HasSection reports whether a [name] header exists.
func (d *Document) HasSection(name string) bool {
	_, err := d.FindSection(name)
	return err == nil
}

// FindSection locates the [name] header and the end of its section.
func (d *Document) FindSection(name string) (Bounds, error) {
	for i, line := range d.lines {
		if n, ok := sectionName(line); !ok || n != name {
			continue
		}
		end := len(d.lines)
		for j := i + 1; j < len(d.lines); j++ {
			if isHeader(strings.TrimSpace(d.lines[j])) {
				end = j
				break
			}
		}
		return Bounds{Start: i, End: end}, nil
	}
	return Bounds{}, fmt.Errorf("%w: [%s]", ErrSectionNotFound, name)
}

// FindKey returns the index of the first line in the section assigning key.
// Only an exact key followed by optional whitespace and '=' matches.
func (d *Document) FindKey(b Bounds, key string) (int, bool) {
	return findKey(d.lines, b.Start+1, b.End, key)
}

// ReadValue returns the decoded value assigned to key in the section.
func (d *Document) ReadValue(b Bounds, key string) (string, error) {
	i, ok := d.FindKey(b, key)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return Decode(rawValue(d.lines[i], key)), nil
}

// Section returns a read-only snapshot of one section.
func (d *Document) Section(name string) (*Section, error) {
	b, err := d.FindSection(name)
	if err != nil {
		return nil, err
	}
	lines := make([]string, b.End-b.Start-1)
	copy(lines, d.lines[b.Start+1:b.End])
	return &Section{Name: name, lines: lines}, nil
}

func findKey(lines []string, from, to int, key string) (int, bool) {
	if key == "" {
		return 0, false
	}
	for i := from; i < to && i < len(lines); i++ {
		t := strings.TrimSpace(lines[i])
		if t == "" || strings.HasPrefix(t, "#") {
			continue
		}
		if !strings.HasPrefix(t, key) {
			continue
		}
		if strings.HasPrefix(strings.TrimLeft(t[len(key):], " \t"), "=") {
			return i, true
		}
	}
	return 0, false
}

// rawValue returns the serialized value text of a line already matched by findKey.
func rawValue(line, key string) string {
	raw, _ := splitValue(line, key)
	return raw
}

// splitValue separates the serialized value of a matched line from a
// trailing "# ..." comment. The comment keeps the whitespace before '#'.
// Text after a closing quote that is not a comment stays part of the value.
func splitValue(line, key string) (raw, comment string) {
	t := strings.TrimSpace(line)
	rest := strings.TrimSpace(strings.TrimLeft(t[len(key):], " \t")[1:])

	end := quotedEnd(rest)
	if end < 0 {
		if i := strings.Index(rest, "#"); i >= 0 && !strings.ContainsAny(rest[:i], `"'`) {
			return strings.TrimSpace(rest[:i]), rest[len(strings.TrimRight(rest[:i], " \t")):]
		}
		return rest, ""
	}
	tail := rest[end:]
	if strings.HasPrefix(strings.TrimLeft(tail, " \t"), "#") {
		return rest[:end], tail
	}
	return rest, ""
}

// quotedEnd returns the index just past the closing quote of the string
// that starts s, or -1 when s does not start with a complete string.
func quotedEnd(s string) int {
	switch {
	case strings.HasPrefix(s, tripleQuote):
		if i := strings.Index(s[3:], tripleQuote); i >= 0 {
			end := i + 6
			// a value may end with up to two quotes of its own
			for n := 0; n < 2 && end < len(s) && s[end] == '\''; n++ {
				end++
			}
			return end
		}
	case strings.HasPrefix(s, "'"):
		if i := strings.IndexByte(s[1:], '\''); i >= 0 {
			return i + 2
		}
	case strings.HasPrefix(s, `"`):
		for i := 1; i < len(s); i++ {
			switch s[i] {
			case '\\':
				i++
			case '"':
				return i + 1
			}
		}
	}
	return -1
}

// Section is a snapshot of one manifest section, handed to fetch strategies
// as the facts already known about a package.
type Section struct {
	Name  string
	lines []string
}

// Value returns the decoded value of key.
func (s *Section) Value(key string) (string, error) {
	i, ok := findKey(s.lines, 0, len(s.lines), key)
	if !ok {
		return "", fmt.Errorf("%w: [%s] %s", ErrKeyNotFound, s.Name, key)
	}
	return Decode(rawValue(s.lines[i], key)), nil
}

// Has reports whether key is assigned in the section.
func (s *Section) Has(key string) bool {
	_, ok := findKey(s.lines, 0, len(s.lines), key)
	return ok
}
