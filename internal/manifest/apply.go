package manifest

import (
	"fmt"
	"strings"
)

// Change records one rewritten key.
type Change struct {
	Package string
	Key     string
	// Old and New are the decoded values
	Old string
	New string
	// OldRaw and NewRaw are the values as serialized in the file
	OldRaw string
	NewRaw string
}

// String renders the change the way it is logged.
func (c Change) String() string {
	return fmt.Sprintf("update: [%s] %s = %s -> %s", c.Package, c.Key, c.OldRaw, c.NewRaw)
}

// Apply writes facts into the named section and returns the changes made.
// Keys are processed in the fact set's order. Every key must already be
// assigned in the section: Apply never inserts lines. A key whose decoded
// value already equals the fact is left untouched.
//
// On error the document may hold the changes made before the failing key;
// callers abort the run without persisting it.
func (d *Document) Apply(section string, facts *Facts) ([]Change, error) {
	b, err := d.FindSection(section)
	if err != nil {
		return nil, err
	}

	var changes []Change
	for _, key := range facts.Keys() {
		value, _ := facts.Get(key)

		i, ok := d.FindKey(b, key)
		if !ok {
			return changes, fmt.Errorf("%w: [%s] %s", ErrKeyNotFound, section, key)
		}

		line := d.lines[i]
		oldRaw, comment := splitValue(line, key)
		old := Decode(oldRaw)
		if old == value {
			continue
		}

		encoded, err := Encode(value)
		if err != nil {
			return changes, fmt.Errorf("[%s] %s: %w", section, key, err)
		}

		d.lines[i] = rewriteLine(line, key, encoded, comment)
		changes = append(changes, Change{
			Package: section,
			Key:     key,
			Old:     old,
			New:     value,
			OldRaw:  oldRaw,
			NewRaw:  encoded,
		})
	}

	return changes, nil
}

// rewriteLine produces "key = encoded", keeping the line's indentation, its
// trailing comment and its CR terminator if it had one.
func rewriteLine(line, key, encoded, comment string) string {
	indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
	eol := ""
	if strings.HasSuffix(line, "\r") {
		eol = "\r"
	}
	return indent + key + " = " + encoded + comment + eol
}
