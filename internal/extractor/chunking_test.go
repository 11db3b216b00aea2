package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langextract/backend/internal/schema"
)

func expectedWindows(l, w, o int) int {
	// ceil((L - W) / (W - O)) + 1
	step := w - o
	return (l-w+step-1)/step + 1
}

func TestSplitWindowsCoverage(t *testing.T) {
	for _, tc := range []struct{ l, w, o int }{
		{l: 25, w: 10, o: 2},
		{l: 11, w: 10, o: 0},
		{l: 100, w: 7, o: 3},
		{l: 12001, w: 12000, o: 200},
		{l: 50000, w: 12000, o: 200},
		{l: 64, w: 8, o: 7},
	} {
		text := strings.Repeat("a", tc.l)
		windows := SplitWindows(text, ChunkingConfig{MaxInputChars: tc.w, ChunkOverlapChars: tc.o})

		require.Len(t, windows, expectedWindows(tc.l, tc.w, tc.o), "L=%d W=%d O=%d", tc.l, tc.w, tc.o)

		covered := make([]bool, tc.l)
		for i, win := range windows {
			assert.Equal(t, i, win.Index)
			assert.LessOrEqual(t, win.End-win.Start, tc.w)
			for p := win.Start; p < win.End; p++ {
				covered[p] = true
			}
			if i > 0 {
				assert.Equal(t, windows[i-1].End-tc.o, win.Start)
			}
		}
		for p, ok := range covered {
			require.True(t, ok, "position %d not covered (L=%d W=%d O=%d)", p, tc.l, tc.w, tc.o)
		}
		assert.Equal(t, tc.l, windows[len(windows)-1].End)
	}
}

func TestSplitWindowsShortTextIsSingleWindow(t *testing.T) {
	windows := SplitWindows("short", ChunkingConfig{MaxInputChars: 10, ChunkOverlapChars: 2, MaxChunks: 8})
	require.Len(t, windows, 1)
	assert.Equal(t, Window{Index: 0, Start: 0, End: 5, Text: "short"}, windows[0])
}

func TestSplitWindowsCapTruncatesTail(t *testing.T) {
	text := strings.Repeat("b", 100)
	windows := SplitWindows(text, ChunkingConfig{MaxInputChars: 10, ChunkOverlapChars: 0, MaxChunks: 3})

	require.Len(t, windows, 3)
	assert.Equal(t, 30, Covered(windows))
}

func TestSplitWindowsOverlapNotSmallerThanWindowStillProgresses(t *testing.T) {
	text := strings.Repeat("c", 6)
	windows := SplitWindows(text, ChunkingConfig{MaxInputChars: 3, ChunkOverlapChars: 5})

	starts := make([]int, 0, len(windows))
	for _, w := range windows {
		starts = append(starts, w.Start)
	}
	assert.Equal(t, []int{0, 1, 2, 3}, starts)
	assert.Equal(t, 6, Covered(windows))
}

func TestSplitWindowsCountsCharactersNotBytes(t *testing.T) {
	text := "علی در تهران زندگی می‌کند"
	runes := []rune(text)
	windows := SplitWindows(text, ChunkingConfig{MaxInputChars: 10, ChunkOverlapChars: 2})

	require.Greater(t, len(windows), 1)
	for _, w := range windows {
		assert.Equal(t, string(runes[w.Start:w.End]), w.Text)
	}
	assert.Equal(t, len(runes), Covered(windows))
}

func TestMergeIsIdempotent(t *testing.T) {
	r := schema.Result{
		Entities: []schema.Entity{
			{Name: "Ali", Type: "PERSON"},
			{Name: "ALI ", Type: "person"},
			{Name: "Tehran", Type: "LOCATION"},
		},
		Relationships: []schema.Relationship{
			{SourceEntityID: "PERSON:Ali", TargetEntityID: "LOCATION:Tehran", Type: "LIVES_IN"},
			{SourceEntityID: "person:ali", TargetEntityID: "LOCATION:Tehran", Type: "LIVES_IN"},
		},
	}

	once := Merge(r)
	twice := Merge(r, r)

	assert.Equal(t, once, twice)
	require.Len(t, once.Entities, 2)
	assert.Equal(t, "Ali", once.Entities[0].Name)
	assert.Len(t, once.Relationships, 2)
}

func TestMergeOfNothingIsEmptyNotNil(t *testing.T) {
	got := Merge()
	assert.NotNil(t, got.Entities)
	assert.NotNil(t, got.Relationships)
}
