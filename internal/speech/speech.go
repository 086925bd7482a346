// Package speech turns inbound voice messages into text. It validates the
// audio attachment, archives a copy, and sends the clip to an external
// transcription service.
package speech

import "context"

// Transcription is the result of transcribing one audio clip.
type Transcription struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
	Duration   float64 `json:"duration,omitempty"`
	WordCount  int     `json:"wordCount,omitempty"`
}

// Transcriber converts audio bytes to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, contentType, language string) (Transcription, error)
}

// Archiver stores a copy of the fetched audio clip.
type Archiver interface {
	Archive(ctx context.Context, key string, audio []byte, contentType string) error
}

// maxAudioBytes caps clips at 25MB before download or transcription.
const maxAudioBytes = 25 * 1024 * 1024

var supportedContentTypes = map[string]string{
	"audio/ogg":  ".ogg",
	"audio/mpeg": ".mp3",
	"audio/mp3":  ".mp3",
	"audio/mp4":  ".m4a",
	"audio/wav":  ".wav",
	"audio/x-m4a": ".m4a",
}

func supportedContentType(contentType string) bool {
	_, ok := supportedContentTypes[contentType]
	return ok
}

func extensionFor(contentType string) string {
	if ext, ok := supportedContentTypes[contentType]; ok {
		return ext
	}
	return ".bin"
}
