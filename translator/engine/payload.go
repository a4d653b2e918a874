package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/ownlingo/transmux/translator"
)

var (
	errNotArray     = errors.New("payload is not a JSON array")
	errEmptyPayload = errors.New("payload has no segments")
)

// parseSegments reads a structured payload: a JSON array of objects with a
// string "text" field. Elements without text become blank segments.
func parseSegments(payload string) ([]translator.Segment, error) {
	if !gjson.Valid(payload) {
		return nil, errNotArray
	}

	root := gjson.Parse(payload)
	if !root.IsArray() {
		return nil, errNotArray
	}

	var segments []translator.Segment
	var err error

	root.ForEach(func(_, el gjson.Result) bool {
		if !el.IsObject() {
			err = fmt.Errorf("segment %d is not an object", len(segments))
			return false
		}

		text := el.Get("text")
		if text.Exists() && text.Type != gjson.String {
			err = fmt.Errorf("segment %d has a non-string text field", len(segments))
			return false
		}

		segments = append(segments, translator.Segment{Index: len(segments), Text: text.String()})
		return true
	})

	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, errEmptyPayload
	}

	return segments, nil
}

// parseReply reads the texts of a structured reply from a direct call. It
// fails when the reply does not have exactly want elements.
func parseReply(reply string, want int) ([]string, error) {
	reply = unfence(reply)

	if !gjson.Valid(reply) {
		return nil, errNotArray
	}

	root := gjson.Parse(reply)
	if !root.IsArray() {
		return nil, errNotArray
	}

	elements := root.Array()
	if len(elements) != want {
		return nil, fmt.Errorf("reply has %d segments, want %d", len(elements), want)
	}

	texts := make([]string, len(elements))
	for i, el := range elements {
		text := el.Get("text")
		if text.Type != gjson.String {
			return nil, fmt.Errorf("reply segment %d has no text", i)
		}
		texts[i] = text.String()
	}

	return texts, nil
}

// rebuild writes the translated texts back into payload in place, leaving
// every other field and every untranslated segment untouched
func rebuild(payload string, texts []string, translated []bool) (string, error) {
	out := payload

	for i, ok := range translated {
		if !ok {
			continue
		}

		var err error
		out, err = sjson.Set(out, fmt.Sprintf("%d.text", i), texts[i])
		if err != nil {
			return "", fmt.Errorf("set segment %d: %w", i, err)
		}
	}

	return out, nil
}

// unfence strips a markdown code fence AI providers like to wrap JSON in
func unfence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}

	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
