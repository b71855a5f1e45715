package documents

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-ai/lumina/internal/domain"
)

func reassemble(chunks []string, overlap int) string {
	var b strings.Builder
	for i, c := range chunks {
		if i == 0 {
			b.WriteString(c)
			continue
		}
		b.WriteString(string([]rune(c)[overlap:]))
	}
	return b.String()
}

func TestNewChunker_InvalidParams(t *testing.T) {
	for _, p := range [][2]int{{0, 0}, {-1, 0}, {10, -1}, {10, 10}, {10, 11}} {
		_, err := NewChunker(p[0], p[1])
		assert.ErrorIs(t, err, domain.ErrInvalidChunkParams, "size=%d overlap=%d", p[0], p[1])
	}
}

func TestSplit_1100CharsGivesThreeChunks(t *testing.T) {
	c, err := NewChunker(512, 50)
	require.NoError(t, err)

	text := strings.Repeat("abcdefghij", 110)
	chunks := c.Split(text)

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 512)
	assert.Len(t, chunks[1], 512)
	assert.Len(t, chunks[2], 1100-2*462)
	assert.Equal(t, 3, c.Count(1100))
	assert.Equal(t, text, reassemble(chunks, 50))
}

func TestSplit_Properties(t *testing.T) {
	inputs := []string{
		"",
		"a",
		strings.Repeat("x", 512),
		strings.Repeat("x", 513),
		strings.Repeat("नेपाली भाषा ", 200),
		strings.Repeat("The quick brown fox. ", 97),
	}
	params := [][2]int{{512, 50}, {100, 0}, {7, 3}, {2, 1}}

	for _, p := range params {
		c, err := NewChunker(p[0], p[1])
		require.NoError(t, err)

		for _, in := range inputs {
			chunks := c.Split(in)
			n := utf8.RuneCountInString(in)

			assert.Equal(t, c.Count(n), len(chunks), "count size=%d overlap=%d len=%d", p[0], p[1], n)
			for _, ch := range chunks {
				assert.LessOrEqual(t, utf8.RuneCountInString(ch), p[0])
			}
			if n == 0 {
				assert.Empty(t, chunks)
				continue
			}
			assert.Equal(t, in, reassemble(chunks, p[1]))
			assert.Equal(t, chunks, c.Split(in), "deterministic")
		}
	}
}

func TestWindows_Restartable(t *testing.T) {
	c, err := NewChunker(4, 1)
	require.NoError(t, err)

	seq := c.Windows("abcdefghij")
	var first, second []string
	for i, w := range seq {
		assert.Equal(t, len(first), i)
		first = append(first, w)
	}
	for _, w := range seq {
		second = append(second, w)
	}
	assert.Equal(t, []string{"abcd", "defg", "ghij"}, first)
	assert.Equal(t, first, second)
}

func TestWindows_EarlyBreak(t *testing.T) {
	c, err := NewChunker(2, 0)
	require.NoError(t, err)

	var got []string
	for _, w := range c.Windows("aabbccdd") {
		got = append(got, w)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"aa", "bb"}, got)
}
