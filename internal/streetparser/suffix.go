package streetparser

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// neverMatches is used when a SuffixMap has no spellings at all.
const neverMatches = `[^\s\S]`

// suffixState is the part of a SuffixMap that clones share.
type suffixState struct {
	canonical map[string]string // lowercased spelling -> canonical spelling
	spellings []string          // spellings exactly as provided

	once    sync.Once
	matcher *regexp.Regexp
}

// SuffixMap is a case-insensitive dictionary of street suffix spellings to their
// canonical form. The trailing-suffix matcher is compiled lazily, once per
// underlying state, and shared by every clone.
type SuffixMap struct {
	state *suffixState
}

// FromSpellingMap builds a SuffixMap from spelling -> canonical pairs.
// Construction only copies the map; the matcher is compiled on first use.
func FromSpellingMap(spellings map[string]string) *SuffixMap {
	state := &suffixState{
		canonical: make(map[string]string, len(spellings)),
		spellings: make([]string, 0, len(spellings)),
	}
	for spelling, canonical := range spellings {
		key := strings.ToLower(spelling)
		if _, seen := state.canonical[key]; !seen {
			state.spellings = append(state.spellings, spelling)
		}
		state.canonical[key] = canonical
	}
	return &SuffixMap{state: state}
}

// CloneFrom returns a SuffixMap backed by the same internal state as other,
// including its compiled matcher.
func CloneFrom(other *SuffixMap) *SuffixMap {
	if other == nil {
		return FromSpellingMap(nil)
	}
	return &SuffixMap{state: other.state}
}

// Get returns the canonical spelling for s, or "" when s is unknown.
func (m *SuffixMap) Get(s string) string {
	canonical, _ := m.Lookup(s)
	return canonical
}

// Lookup returns the canonical spelling for s and whether s is a known spelling.
func (m *SuffixMap) Lookup(s string) (string, bool) {
	canonical, ok := m.state.canonical[strings.ToLower(s)]
	return canonical, ok
}

// Len returns the number of distinct (case-insensitive) spellings.
func (m *SuffixMap) Len() int {
	return len(m.state.canonical)
}

// Spellings returns the known spellings in sorted order.
func (m *SuffixMap) Spellings() []string {
	out := make([]string, len(m.state.spellings))
	copy(out, m.state.spellings)
	sort.Strings(out)
	return out
}

// Matcher returns the compiled trailing-suffix expression. The same
// *regexp.Regexp is returned on every call.
//
// Submatch 1 is the text before the suffix, submatch 2 the suffix as written.
func (m *SuffixMap) Matcher() *regexp.Regexp {
	s := m.state
	s.once.Do(func() {
		s.matcher = regexp.MustCompile(buildPattern(s.spellings))
	})
	return s.matcher
}

func buildPattern(spellings []string) string {
	if len(spellings) == 0 {
		return neverMatches
	}

	quoted := make([]string, len(spellings))
	for i, spelling := range spellings {
		quoted[i] = regexp.QuoteMeta(spelling)
	}
	sort.Strings(quoted)

	return `(?i)^(.+?)\s+(` + strings.Join(quoted, "|") + `)\.?\s*$`
}
