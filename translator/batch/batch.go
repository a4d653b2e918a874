// Package batch splits ordered segments into size- and length-bounded batches.
package batch

import (
	"unicode/utf8"

	"github.com/ownlingo/transmux/translator"
)

// Batch is a group of segments sent to a provider in one combined call
type Batch struct {
	SegmentIndices []int // Original segment indices, in order
	CharBudgetUsed int
}

// Len returns the number of segments in the batch
func (b Batch) Len() int {
	return len(b.SegmentIndices)
}

// Plan greedily groups segments into batches of at most maxCount segments and
// maxChars characters. A segment longer than maxChars gets a batch of its own.
// The result depends only on the inputs.
func Plan(segments []translator.Segment, maxCount, maxChars int) []Batch {
	if len(segments) == 0 {
		return nil
	}
	if maxCount <= 0 {
		maxCount = translator.DefaultBatchSize
	}
	if maxChars <= 0 {
		maxChars = translator.DefaultMaxChars
	}

	var batches []Batch
	var current Batch

	flush := func() {
		if current.Len() > 0 {
			batches = append(batches, current)
			current = Batch{}
		}
	}

	for _, seg := range segments {
		n := utf8.RuneCountInString(seg.Text)

		if n > maxChars {
			flush()
			batches = append(batches, Batch{SegmentIndices: []int{seg.Index}, CharBudgetUsed: n})
			continue
		}

		if current.Len() > 0 && (current.Len()+1 > maxCount || current.CharBudgetUsed+n > maxChars) {
			flush()
		}

		current.SegmentIndices = append(current.SegmentIndices, seg.Index)
		current.CharBudgetUsed += n
	}

	flush()
	return batches
}
