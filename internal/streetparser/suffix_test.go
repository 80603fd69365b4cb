package streetparser

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuffixMap_CaseInsensitiveLookup(t *testing.T) {
	m := FromSpellingMap(map[string]string{"Street": "St", "St": "St"})

	assert.Equal(t, m.Get("Street"), m.Get("street"))
	assert.Equal(t, "St", m.Get("STREET"))
	assert.Equal(t, "", m.Get("Avenue"))

	canonical, ok := m.Lookup("sT")
	assert.True(t, ok)
	assert.Equal(t, "St", canonical)

	_, ok = m.Lookup("Ave")
	assert.False(t, ok)
}

func TestSuffixMap_DuplicateSpellingsCollapse(t *testing.T) {
	m := FromSpellingMap(map[string]string{"Street": "St", "STREET": "St", "Ave": "Ave"})

	assert.Equal(t, 2, m.Len())
	assert.Len(t, m.Spellings(), 2)
}

func TestSuffixMap_MatcherIsCompiledOnce(t *testing.T) {
	m := FromSpellingMap(map[string]string{"Street": "St"})

	first := m.Matcher()
	assert.Same(t, first, m.Matcher())
}

func TestSuffixMap_CloneSharesState(t *testing.T) {
	original := FromSpellingMap(map[string]string{"Street": "St", "Road": "Rd"})
	matcher := original.Matcher()

	clone := CloneFrom(original)

	assert.Same(t, original.state, clone.state)
	assert.Same(t, matcher, clone.Matcher())
	assert.Equal(t, "Rd", clone.Get("road"))
}

func TestSuffixMap_CloneBeforeCompileSharesMatcher(t *testing.T) {
	original := FromSpellingMap(map[string]string{"Street": "St"})
	clone := CloneFrom(original)

	assert.Same(t, clone.Matcher(), original.Matcher())
}

func TestSuffixMap_CloneFromNil(t *testing.T) {
	clone := CloneFrom(nil)

	assert.Equal(t, 0, clone.Len())
	assert.False(t, clone.Matcher().MatchString("Main St"))
}

func TestSuffixMap_ConcurrentMatcher(t *testing.T) {
	m := FromSpellingMap(map[string]string{"Street": "St"})

	var wg sync.WaitGroup
	results := make(chan interface{}, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- m.Matcher()
		}()
	}
	wg.Wait()
	close(results)

	first := m.Matcher()
	for r := range results {
		assert.Same(t, first, r)
	}
}
