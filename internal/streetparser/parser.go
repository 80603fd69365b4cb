// Package streetparser splits raw street addresses into number, name and
// canonical suffix.
package streetparser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Parse failures. Both are wrapped in a *ParseError carrying the input.
var (
	ErrMissingNumber = errors.New("street number missing")
	ErrInvalidSuffix = errors.New("street suffix missing or invalid")
)

var leadingNumber = regexp.MustCompile(`^(\d+)`)

// ParseError reports why a raw street could not be parsed.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v in %q", e.Err, e.Input)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Street is a parsed street address.
type Street struct {
	Number string `json:"number"`
	Name   string `json:"name"`
	Suffix string `json:"suffix"`
}

// String joins the parts with single spaces.
func (s Street) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{s.Number, s.Name, s.Suffix} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Parse parses raw using suffixes, or the built-in dictionary when
// suffixes is nil.
func Parse(raw string, suffixes *SuffixMap) (Street, error) {
	if suffixes == nil {
		suffixes = defaultSuffixes
	}
	trimmed := strings.TrimLeftFunc(raw, unicode.IsSpace)

	loc := leadingNumber.FindStringIndex(trimmed)
	if loc == nil {
		return Street{}, &ParseError{Input: raw, Err: ErrMissingNumber}
	}
	number := trimmed[:loc[1]]
	rest := strings.TrimSpace(trimmed[loc[1]:])

	m := suffixes.Matcher().FindStringSubmatch(rest)
	if m == nil {
		return Street{}, &ParseError{Input: raw, Err: ErrInvalidSuffix}
	}

	canonical, ok := suffixes.Lookup(m[2])
	if !ok {
		return Street{}, &ParseError{Input: raw, Err: ErrInvalidSuffix}
	}

	return Street{
		Number: number,
		Name:   strings.TrimSpace(m[1]),
		Suffix: canonical,
	}, nil
}

// Parser parses streets against a fixed suffix dictionary.
type Parser struct {
	suffixes *SuffixMap
}

// NewParser returns a Parser sharing the compiled state of suffixes.
// A nil map selects DefaultSuffixes.
func NewParser(suffixes *SuffixMap) *Parser {
	if suffixes == nil {
		suffixes = DefaultSuffixes()
	}
	return &Parser{suffixes: CloneFrom(suffixes)}
}

// Parse parses raw.
func (p *Parser) Parse(raw string) (Street, error) {
	return Parse(raw, p.suffixes)
}

// Suffixes returns the parser's dictionary.
func (p *Parser) Suffixes() *SuffixMap {
	return p.suffixes
}
