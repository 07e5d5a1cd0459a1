package manifest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnencodable is returned when a value contains a literal ''' run, which
// none of the supported string forms can express.
var ErrUnencodable = errors.New("value cannot be encoded as a manifest string")

const tripleQuote = "'''"

// Decode returns the logical value of a serialized manifest string.
// Triple-single-quoted and single-quoted forms are verbatim; double-quoted
// form interprets \n \r \t \\ and \". Unquoted or unrecognized text is
// returned unchanged.
func Decode(serialized string) string {
	s := serialized
	switch {
	case len(s) >= 6 && strings.HasPrefix(s, tripleQuote) && strings.HasSuffix(s, tripleQuote):
		return s[3 : len(s)-3]
	case len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'':
		return s[1 : len(s)-1]
	case len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"':
		return unescape(s[1 : len(s)-1])
	default:
		return s
	}
}

// unescape interprets the escapes allowed in double-quoted values.
// Unknown escapes are kept as written.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// Encode serializes a value using the form that needs the least escaping:
// double quotes when the value has nothing to escape, otherwise single
// quotes, otherwise triple single quotes.
func Encode(value string) (string, error) {
	if !strings.ContainsAny(value, "\\\"\n\r\t") {
		return `"` + value + `"`, nil
	}
	if !strings.Contains(value, "'") {
		return "'" + value + "'", nil
	}
	if !strings.Contains(value, tripleQuote) {
		return tripleQuote + value + tripleQuote, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnencodable, value)
}
