package fetch

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrJSONPathNotFound is returned when the JSON path does not exist in the document
	ErrJSONPathNotFound = errors.New("JSON path not found in response")
	// ErrInvalidJSONPath is returned when the JSON path syntax is invalid
	ErrInvalidJSONPath = errors.New("invalid JSON path syntax")
	// ErrRegexNoMatch is returned when the regex pattern does not match the content
	ErrRegexNoMatch = errors.New("regex pattern did not match")
	// ErrInvalidRegexPattern is returned when the regex pattern is invalid
	ErrInvalidRegexPattern = errors.New("invalid regex pattern")
	// ErrNoVersionFound is returned when a parser matched but produced no text
	ErrNoVersionFound = errors.New("could not extract version from upstream")
)

// Parser extracts a version string from a response body.
type Parser interface {
	Parse(content []byte) (string, error)
}

// JSONParser extracts a value using a dotted path with optional array
// indexes, e.g. "crate.max_version" or "results[0].pkgver".
type JSONParser struct {
	Path string
}

// Parse decodes content and returns the scalar found at Path.
func (p *JSONParser) Parse(content []byte) (string, error) {
	steps, err := splitJSONPath(p.Path)
	if err != nil {
		return "", err
	}

	var node interface{}
	if err := json.Unmarshal(content, &node); err != nil {
		return "", fmt.Errorf("failed to parse JSON: %w", err)
	}

	for _, s := range steps {
		if node, err = s.descend(node); err != nil {
			return "", err
		}
	}

	value, ok := scalarString(node)
	if !ok {
		return "", fmt.Errorf("%w: %s is not a scalar", ErrJSONPathNotFound, p.Path)
	}
	return value, nil
}

// jsonStep is one path element: a field name, or an index when field is empty
type jsonStep struct {
	field string
	index int
}

func (s jsonStep) descend(node interface{}) (interface{}, error) {
	if s.field != "" {
		obj, ok := node.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: %q is not inside an object", ErrJSONPathNotFound, s.field)
		}
		child, ok := obj[s.field]
		if !ok {
			return nil, fmt.Errorf("%w: field %q not found", ErrJSONPathNotFound, s.field)
		}
		return child, nil
	}

	arr, ok := node.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: index %d applied to a non-array", ErrJSONPathNotFound, s.index)
	}
	if s.index >= len(arr) {
		return nil, fmt.Errorf("%w: index %d out of bounds (length %d)", ErrJSONPathNotFound, s.index, len(arr))
	}
	return arr[s.index], nil
}

// splitJSONPath parses "a.b[0].c" into steps
func splitJSONPath(path string) ([]jsonStep, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidJSONPath)
	}

	var steps []jsonStep
	for _, elem := range strings.Split(path, ".") {
		name, rest, _ := strings.Cut(elem, "[")
		if name == "" {
			return nil, fmt.Errorf("%w: empty field name in %q", ErrInvalidJSONPath, path)
		}
		steps = append(steps, jsonStep{field: name})

		for rest != "" {
			idx, tail, ok := strings.Cut(rest, "]")
			if !ok {
				return nil, fmt.Errorf("%w: unclosed bracket in %q", ErrInvalidJSONPath, path)
			}
			n, err := strconv.Atoi(idx)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: bad index %q", ErrInvalidJSONPath, idx)
			}
			steps = append(steps, jsonStep{index: n})

			if tail != "" && !strings.HasPrefix(tail, "[") {
				return nil, fmt.Errorf("%w: unexpected %q after index", ErrInvalidJSONPath, tail)
			}
			rest = strings.TrimPrefix(tail, "[")
		}
	}
	return steps, nil
}

// scalarString renders JSON scalars; integral numbers print without a fraction
func scalarString(v interface{}) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	}
	return "", false
}

// RegexParser returns the first capture group of Pattern.
type RegexParser struct {
	re *regexp.Regexp
}

// NewRegexParser compiles pattern, which must have a capture group.
func NewRegexParser(pattern string) (*RegexParser, error) {
	re, err := compileCapture(pattern)
	if err != nil {
		return nil, err
	}
	return &RegexParser{re: re}, nil
}

// MustRegexParser is like NewRegexParser but panics on error.
func MustRegexParser(pattern string) *RegexParser {
	p, err := NewRegexParser(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// Parse returns the first capture group of the first match in content.
func (p *RegexParser) Parse(content []byte) (string, error) {
	m := p.re.FindSubmatch(content)
	if m == nil {
		return "", fmt.Errorf("%w: %s", ErrRegexNoMatch, p.re)
	}
	if len(m[1]) == 0 {
		return "", fmt.Errorf("%w: %s captured nothing", ErrNoVersionFound, p.re)
	}
	return string(m[1]), nil
}

func compileCapture(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegexPattern, err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("%w: %q has no capture group", ErrInvalidRegexPattern, pattern)
	}
	return re, nil
}
