package fragments

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	name := Numbered("FRAGMENT_")

	tests := []struct {
		name      string
		slots     map[string]string
		policy    GapPolicy
		wantValue string
		wantCount int
		wantGap   string
		wantErr   error
	}{
		{
			name:      "contiguous fragments concatenate in order",
			slots:     map[string]string{"FRAGMENT_1": "A", "FRAGMENT_2": "B", "FRAGMENT_3": "C"},
			wantValue: "ABC",
			wantCount: 3,
		},
		{
			name:      "insertion order does not matter",
			slots:     map[string]string{"FRAGMENT_3": "C", "FRAGMENT_1": "A", "FRAGMENT_2": "B"},
			wantValue: "ABC",
			wantCount: 3,
		},
		{
			name:    "first fragment missing",
			slots:   map[string]string{"FRAGMENT_2": "B"},
			wantErr: ErrNoFragments,
		},
		{
			name:    "empty first fragment counts as missing",
			slots:   map[string]string{"FRAGMENT_1": "", "FRAGMENT_2": "B"},
			wantErr: ErrNoFragments,
		},
		{
			name:      "gap truncates under stop policy",
			slots:     map[string]string{"FRAGMENT_1": "A", "FRAGMENT_2": "B", "FRAGMENT_4": "D"},
			wantValue: "AB",
			wantCount: 2,
			wantGap:   "FRAGMENT_4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Resolver{Name: name, Policy: tt.policy, Probe: 4}
			res, err := r.Resolve(MapLookup(tt.slots))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, res.Value)
			assert.Equal(t, tt.wantCount, res.Count)
			assert.Equal(t, tt.wantGap, res.Gap)
		})
	}
}

func TestResolveFailOnGap(t *testing.T) {
	r := Resolver{Name: Numbered("F"), Policy: FailOnGap, Probe: 8}
	_, err := r.Resolve(MapLookup(map[string]string{"F1": "a", "F3": "c"}))

	var gapErr *GapError
	require.ErrorAs(t, err, &gapErr)
	assert.Equal(t, "F2", gapErr.Missing)
	assert.Equal(t, "F3", gapErr.Found)
}

func TestResolveWithoutListerChecksOnlyProbeWindow(t *testing.T) {
	r := Resolver{Name: Numbered("F"), Policy: FailOnGap, Probe: 2}
	res, err := r.Resolve(MapLookup(map[string]string{"F1": "a", "F9": "z"}))
	require.NoError(t, err)
	assert.Equal(t, "a", res.Value)
	assert.Empty(t, res.Gap)
}

func TestEnvLookup(t *testing.T) {
	t.Setenv("KB_FRAGMENT_TEST_1", "x")
	t.Setenv("KB_FRAGMENT_TEST_2", "")

	v, ok := EnvLookup("KB_FRAGMENT_TEST_1")
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	_, ok = EnvLookup("KB_FRAGMENT_TEST_2")
	assert.False(t, ok)
}

func TestSplitResolveRoundTrip(t *testing.T) {
	content := strings.Repeat("héllo wörld ", 700) // multi-byte runes across chunk borders
	name := Numbered("RAG_KNOWLEDGE_CONTENT_")

	chunks := Split(content, 1000, name)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "RAG_KNOWLEDGE_CONTENT_1", chunks[0].Name)
	for _, c := range chunks[:len(chunks)-1] {
		assert.Equal(t, 1000, len([]rune(c.Value)))
	}

	res, err := Resolver{Name: name}.Resolve(ChunkLookup(chunks))
	require.NoError(t, err)
	assert.Equal(t, content, res.Value)
	assert.Equal(t, len(chunks), res.Count)
}

func TestSplitEdgeCases(t *testing.T) {
	assert.Empty(t, Split("", 10, Numbered("X")))

	chunks := Split("abc", 0, Numbered("X"))
	require.Len(t, chunks, 1)
	assert.Equal(t, "abc", chunks[0].Value)

	chunks = Split("abcde", 2, Numbered("X"))
	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"ab", "cd", "e"}, []string{chunks[0].Value, chunks[1].Value, chunks[2].Value})
	assert.Equal(t, "X3", chunks[2].Name)
}

func TestResolveFailOnGapListsEverySlot(t *testing.T) {
	slots := map[string]string{"F1": "a"}
	for i := 11; i <= 20; i++ {
		slots[Numbered("F")(i)] = "x"
	}

	tests := []struct {
		name  string
		probe int
	}{
		{name: "gap wider than the probe", probe: 8},
		{name: "probe disabled", probe: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Resolver{
				Name:   Numbered("F"),
				Index:  NumberedIndex("F"),
				List:   MapNames(slots),
				Policy: FailOnGap,
				Probe:  tt.probe,
			}
			_, err := r.Resolve(MapLookup(slots))

			var gapErr *GapError
			require.ErrorAs(t, err, &gapErr)
			assert.Equal(t, "F2", gapErr.Missing)
			assert.Equal(t, "F11", gapErr.Found)
		})
	}
}

func TestResolveStopAtGapReportsDistantSlot(t *testing.T) {
	slots := map[string]string{"F1": "a", "F2": "b", "F40": "z", "F": "single", "F07": "padded"}
	r := Resolver{Name: Numbered("F"), Index: NumberedIndex("F"), List: MapNames(slots)}

	res, err := r.Resolve(MapLookup(slots))
	require.NoError(t, err)
	assert.Equal(t, "ab", res.Value)
	assert.Equal(t, "F40", res.Gap)
}

func TestNumberedIndex(t *testing.T) {
	index := NumberedIndex("RAG_KNOWLEDGE_CONTENT_")

	n, ok := index("RAG_KNOWLEDGE_CONTENT_12")
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	for _, name := range []string{"RAG_KNOWLEDGE_CONTENT", "RAG_KNOWLEDGE_CONTENT_", "RAG_KNOWLEDGE_CONTENT_0", "RAG_KNOWLEDGE_CONTENT_03", "RAG_KNOWLEDGE_CONTENT_+3", "RAG_KNOWLEDGE_CONTENT_x"} {
		_, ok := index(name)
		assert.False(t, ok, name)
	}
}

func TestEnvNames(t *testing.T) {
	t.Setenv("KB_FRAGMENT_NAMES_1", "x")
	t.Setenv("KB_FRAGMENT_NAMES_2", "")

	names := EnvNames()
	assert.Contains(t, names, "KB_FRAGMENT_NAMES_1")
	assert.NotContains(t, names, "KB_FRAGMENT_NAMES_2")
}
