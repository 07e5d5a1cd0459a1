package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
)

var (
	// ErrInvalidXPath is returned when the XPath expression syntax is invalid
	ErrInvalidXPath = errors.New("invalid XPath expression")
	// ErrNoElementFound is returned when no element matches the selector/xpath
	ErrNoElementFound = errors.New("no element found matching selector")
	// ErrNoSelectorOrXPath is returned when neither selector nor xpath is provided
	ErrNoSelectorOrXPath = errors.New("either selector or xpath must be provided")
)

// HTMLParser extracts text from an HTML page by CSS selector (goquery) or
// XPath (htmlquery), optionally narrowed by a regex. When Attr is set the
// attribute value is read instead of the element text.
type HTMLParser struct {
	Selector string
	XPath    string
	Attr     string
	re       *regexp.Regexp
}

// NewHTMLParser creates a parser. Selector takes precedence over xpath.
// When pattern is set its first capture group (or whole match) is the result.
func NewHTMLParser(selector, xpath, pattern string) (*HTMLParser, error) {
	if selector == "" && xpath == "" {
		return nil, ErrNoSelectorOrXPath
	}

	p := &HTMLParser{Selector: selector, XPath: xpath}
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRegexPattern, err)
		}
		p.re = re
	}
	return p, nil
}

// MustHTMLParser is like NewHTMLParser but panics on error.
func MustHTMLParser(selector, xpath, pattern string) *HTMLParser {
	p, err := NewHTMLParser(selector, xpath, pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// Parse returns the first value extracted from the page.
func (p *HTMLParser) Parse(content []byte) (string, error) {
	values, err := p.ParseAll(content)
	if err != nil {
		return "", err
	}
	return values[0], nil
}

// ParseAll returns the trimmed value of every matching element in document
// order. Elements the regex does not match are skipped.
func (p *HTMLParser) ParseAll(content []byte) ([]string, error) {
	var (
		raw []string
		err error
	)
	switch {
	case p.Selector != "":
		raw, err = p.selectCSS(content)
	case p.XPath != "":
		raw, err = p.selectXPath(content)
	default:
		return nil, ErrNoSelectorOrXPath
	}
	if err != nil {
		return nil, err
	}

	var values []string
	for _, text := range raw {
		if p.re != nil {
			m := p.re.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			text = m[0]
			if len(m) > 1 && m[1] != "" {
				text = m[1]
			}
		}
		if text = strings.TrimSpace(text); text != "" {
			values = append(values, text)
		}
	}

	if len(values) == 0 {
		if p.re != nil {
			return nil, fmt.Errorf("%w: %s in %q", ErrRegexNoMatch, p.re, strings.TrimSpace(raw[0]))
		}
		return nil, ErrNoVersionFound
	}
	return values, nil
}

func (p *HTMLParser) selectCSS(content []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	sel := doc.Find(p.Selector)
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoElementFound, p.Selector)
	}

	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if p.Attr == "" {
			out = append(out, s.Text())
		} else if v, ok := s.Attr(p.Attr); ok {
			out = append(out, v)
		}
	})
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s[%s]", ErrNoElementFound, p.Selector, p.Attr)
	}
	return out, nil
}

func (p *HTMLParser) selectXPath(content []byte) ([]string, error) {
	doc, err := htmlquery.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	nodes, err := htmlquery.QueryAll(doc, p.XPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidXPath, err)
	}

	var out []string
	for _, n := range nodes {
		if p.Attr == "" {
			out = append(out, htmlquery.InnerText(n))
		} else if htmlquery.ExistsAttr(n, p.Attr) {
			out = append(out, htmlquery.SelectAttr(n, p.Attr))
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoElementFound, p.XPath)
	}
	return out, nil
}

// Page scrapes versions from download pages that have no API.
type Page struct {
	client *Client
}

// NewPage creates an HTML page source.
func NewPage(client *Client) *Page {
	return &Page{client: client}
}

// Version fetches url and extracts a version with parser.
func (p *Page) Version(ctx context.Context, pageURL string, parser Parser) (string, error) {
	body, err := p.client.Fetch(ctx, pageURL, nil)
	if err != nil {
		return "", err
	}
	version, err := parser.Parse(body)
	if err != nil {
		return "", fmt.Errorf("%s: %w", pageURL, err)
	}
	return version, nil
}

// Links fetches pageURL and returns the link targets extracted by parser,
// resolved against the page address.
func (p *Page) Links(ctx context.Context, pageURL string, parser *HTMLParser) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	body, err := p.client.Fetch(ctx, pageURL, nil)
	if err != nil {
		return nil, err
	}
	hrefs, err := parser.ParseAll(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pageURL, err)
	}

	links := make([]string, 0, len(hrefs))
	for _, h := range hrefs {
		ref, err := url.Parse(h)
		if err != nil {
			continue
		}
		links = append(links, base.ResolveReference(ref).String())
	}
	return links, nil
}
