// Package media maps file names to the audio and video formats the
// speech-to-text backend accepts.
package media

import (
	"path/filepath"
	"strings"
)

// Kind groups formats for intake decisions.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// Format describes one accepted extension.
type Format struct {
	Extension   string
	Kind        Kind
	MediaFormat string // value passed to the speech-to-text backend
}

var formats = map[string]Format{
	".mp3":  {Extension: ".mp3", Kind: KindAudio, MediaFormat: "mp3"},
	".wav":  {Extension: ".wav", Kind: KindAudio, MediaFormat: "wav"},
	".flac": {Extension: ".flac", Kind: KindAudio, MediaFormat: "flac"},
	".ogg":  {Extension: ".ogg", Kind: KindAudio, MediaFormat: "ogg"},
	".amr":  {Extension: ".amr", Kind: KindAudio, MediaFormat: "amr"},
	".m4a":  {Extension: ".m4a", Kind: KindAudio, MediaFormat: "m4a"},
	".mp4":  {Extension: ".mp4", Kind: KindVideo, MediaFormat: "mp4"},
	".webm": {Extension: ".webm", Kind: KindVideo, MediaFormat: "webm"},
}

// Lookup returns the format for fileName's extension, case-insensitively.
func Lookup(fileName string) (Format, bool) {
	f, ok := formats[strings.ToLower(filepath.Ext(fileName))]
	return f, ok
}

// Supported reports whether fileName is a known audio or video file.
func Supported(fileName string) bool {
	_, ok := Lookup(fileName)
	return ok
}
