package history_test

import (
	"fmt"
	"testing"

	"github.com/ownlingo/transmux/translator/history"
)

func TestLogAppendNewestFirst(t *testing.T) {
	log := history.New(10)

	log.Append(history.Entry{SourceText: "one"})
	log.Append(history.Entry{SourceText: "two"})

	entries := log.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].SourceText != "two" || entries[1].SourceText != "one" {
		t.Errorf("expected newest first, got %q, %q", entries[0].SourceText, entries[1].SourceText)
	}
}

func TestLogCapacity(t *testing.T) {
	log := history.New(3)

	for i := 0; i < 5; i++ {
		log.Append(history.Entry{SourceText: fmt.Sprint(i)})
	}

	entries := log.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].SourceText != "4" || entries[2].SourceText != "2" {
		t.Errorf("unexpected entries after overflow: %+v", entries)
	}
}

func TestLogClear(t *testing.T) {
	log := history.New(0)
	log.Append(history.Entry{SourceText: "x"})
	log.Clear()

	if log.Len() != 0 {
		t.Errorf("expected empty log, got %d entries", log.Len())
	}
}
