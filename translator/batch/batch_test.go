package batch_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ownlingo/transmux/translator"
	"github.com/ownlingo/transmux/translator/batch"
)

func segments(texts ...string) []translator.Segment {
	out := make([]translator.Segment, len(texts))
	for i, text := range texts {
		out[i] = translator.Segment{Index: i, Text: text}
	}
	return out
}

func TestPlanEmpty(t *testing.T) {
	assert.Nil(t, batch.Plan(nil, 3, 100))
}

func TestPlanCountLimit(t *testing.T) {
	for n := 1; n <= 10; n++ {
		texts := make([]string, n)
		for i := range texts {
			texts[i] = "abcd"
		}

		batches := batch.Plan(segments(texts...), 3, 8000)

		require.Len(t, batches, (n+2)/3, "n=%d", n)

		seen := 0
		for _, b := range batches {
			assert.LessOrEqual(t, b.Len(), 3)
			for _, idx := range b.SegmentIndices {
				assert.Equal(t, seen, idx, "indices must stay in order")
				seen++
			}
		}
		assert.Equal(t, n, seen, "no segment may be dropped")
	}
}

func TestPlanCharLimit(t *testing.T) {
	batches := batch.Plan(segments("aaaa", "bbbb", "cccc", "dd"), 10, 8)

	require.Len(t, batches, 2)
	assert.Equal(t, []int{0, 1}, batches[0].SegmentIndices)
	assert.Equal(t, 8, batches[0].CharBudgetUsed)
	assert.Equal(t, []int{2, 3}, batches[1].SegmentIndices)
	assert.Equal(t, 6, batches[1].CharBudgetUsed)
}

func TestPlanOversizedSegmentAlone(t *testing.T) {
	long := strings.Repeat("x", 50)
	batches := batch.Plan(segments("a", "b", long, "c"), 8, 10)

	require.Len(t, batches, 3)
	assert.Equal(t, []int{0, 1}, batches[0].SegmentIndices)
	assert.Equal(t, []int{2}, batches[1].SegmentIndices)
	assert.Equal(t, 50, batches[1].CharBudgetUsed, "oversized segment must not be truncated")
	assert.Equal(t, []int{3}, batches[2].SegmentIndices)
}

func TestPlanOversizedFirstSegment(t *testing.T) {
	batches := batch.Plan(segments(strings.Repeat("x", 20), "a"), 8, 10)

	require.Len(t, batches, 2)
	assert.Equal(t, []int{0}, batches[0].SegmentIndices)
	assert.Equal(t, []int{1}, batches[1].SegmentIndices)
}

func TestPlanCountsRunes(t *testing.T) {
	batches := batch.Plan(segments("日本語", "中文字"), 8, 6)

	require.Len(t, batches, 1)
	assert.Equal(t, 6, batches[0].CharBudgetUsed)
}

func TestPlanKeepsOriginalIndices(t *testing.T) {
	segs := []translator.Segment{{Index: 4, Text: "a"}, {Index: 7, Text: "b"}, {Index: 9, Text: "c"}}
	batches := batch.Plan(segs, 2, 100)

	require.Len(t, batches, 2)
	assert.Equal(t, []int{4, 7}, batches[0].SegmentIndices)
	assert.Equal(t, []int{9}, batches[1].SegmentIndices)
}

func TestPlanDeterministic(t *testing.T) {
	segs := segments("alpha", "beta", strings.Repeat("g", 30), "delta", "epsilon", "zeta")

	first := batch.Plan(segs, 2, 12)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, batch.Plan(segs, 2, 12))
	}
}

func TestPlanDefaultsForInvalidLimits(t *testing.T) {
	texts := make([]string, 20)
	for i := range texts {
		texts[i] = "x"
	}

	batches := batch.Plan(segments(texts...), 0, 0)
	require.Len(t, batches, 3)
	assert.Equal(t, translator.DefaultBatchSize, batches[0].Len())
}
