package pipeline

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/advisorly/transcriber/internal/recognizer"
)

// Segment is one normalized, speaker-tagged unit of finalized transcript.
type Segment struct {
	Source     string
	SpeakerTag int
	Content    string
	Timestamp  time.Time
}

// Segmenter turns raw recognition results into transcript segments for one
// channel. Stateless apart from the channel label.
type Segmenter struct {
	source string
}

func NewSegmenter(source string) *Segmenter {
	return &Segmenter{source: source}
}

// Process emits zero or more segments for a result. Partial results,
// results without alternatives, and empty transcripts produce nothing.
// Only the top-ranked alternative is used.
func (s *Segmenter) Process(res recognizer.Result) []Segment {
	if !res.IsFinal || len(res.Alternatives) == 0 {
		return nil
	}

	top := res.Alternatives[0]
	text := strings.TrimSpace(top.Transcript)
	if text == "" {
		return nil
	}

	speakerTag := 1
	if len(top.Words) > 0 {
		speakerTag = top.Words[0].SpeakerTag
	}

	return []Segment{{
		Source:     s.source,
		SpeakerTag: speakerTag,
		Content:    normalize(text),
		Timestamp:  time.Now().UTC(),
	}}
}

// normalize capitalizes the first rune and guarantees terminal punctuation
// without double-punctuating text the recognizer already closed.
func normalize(text string) string {
	r, size := utf8.DecodeRuneInString(text)
	if unicode.IsLower(r) {
		text = string(unicode.ToUpper(r)) + text[size:]
	}
	if !strings.ContainsRune(".?!", rune(text[len(text)-1])) {
		text += "."
	}
	return text
}
