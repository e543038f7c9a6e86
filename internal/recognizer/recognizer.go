package recognizer

import "context"

// WordInfo is the per-word diarization output attached to final results.
type WordInfo struct {
	Word       string  `json:"word"`
	SpeakerTag int     `json:"speaker_tag"`
	StartTime  float64 `json:"start_time,omitempty"`
	EndTime    float64 `json:"end_time,omitempty"`
}

// Alternative is one ranked transcription candidate.
type Alternative struct {
	Transcript string     `json:"transcript"`
	Confidence float64    `json:"confidence,omitempty"`
	Words      []WordInfo `json:"words,omitempty"`
}

// Result is a single recognition event from the gateway. Partial results
// carry no word-level tags; only final results are locked.
type Result struct {
	IsFinal      bool          `json:"is_final"`
	Alternatives []Alternative `json:"alternatives"`
}

// StreamConfig is sent to the gateway before any audio.
type StreamConfig struct {
	SampleRate      int    `json:"sample_rate"`
	Encoding        string `json:"encoding"`
	LanguageCode    string `json:"language_code"`
	Model           string `json:"model,omitempty"`
	Punctuate       bool   `json:"punctuate"`
	InterimResults  bool   `json:"interim_results"`
	Diarize         bool   `json:"diarize"`
	MinSpeakerCount int    `json:"min_speaker_count,omitempty"`
	MaxSpeakerCount int    `json:"max_speaker_count,omitempty"`
}

// DefaultStreamConfig matches what the pipeline feeds: 16 kHz mono linear
// PCM with diarization for up to two speakers.
func DefaultStreamConfig(minSpeakers, maxSpeakers int) StreamConfig {
	if minSpeakers <= 0 {
		minSpeakers = 1
	}
	if maxSpeakers <= 0 {
		maxSpeakers = 2
	}
	return StreamConfig{
		SampleRate:      16000,
		Encoding:        "linear16",
		LanguageCode:    "en-US",
		Model:           "video",
		Punctuate:       true,
		InterimResults:  false,
		Diarize:         true,
		MinSpeakerCount: minSpeakers,
		MaxSpeakerCount: maxSpeakers,
	}
}

// Client opens streaming recognition sessions.
type Client interface {
	Stream(ctx context.Context, cfg StreamConfig) (Stream, error)
}

// Stream is one live recognition session. Send and Recv may be used from
// different goroutines; Recv returns io.EOF once the gateway has flushed
// its last result after Close.
type Stream interface {
	Send(chunk []byte) error
	Recv() (Result, error)
	Close() error
}
