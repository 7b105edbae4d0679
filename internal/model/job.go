package model

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"
	"strings"
	"time"
)

const (
	// TranscriptPrefix is where the speech-to-text backend writes its output and
	// the only prefix that triggers summarization.
	TranscriptPrefix = "meetings_summary/"
	// PermissionCheckKey is written by the backend to verify bucket access.
	PermissionCheckKey = TranscriptPrefix + ".write_access_check_file.temp"
	// SummaryPrefix sits outside TranscriptPrefix so summaries never retrigger.
	SummaryPrefix = "summaries/"

	maxStemLength = 180
	suffixLength  = 8
)

// ErrJobNotFound is returned by job stores when no row exists for a job id.
var ErrJobNotFound = errors.New("job not found")

// Job is one row in the job store: the file context plus the transcription
// job name and the media location handed to the backend.
type Job struct {
	JobID  string `json:"job_id"`
	JobURI string `json:"job_uri"`
	FileContext
	CreatedAt time.Time `json:"created_at"`
}

// NewJob builds the row persisted for a queued file context.
func NewJob(fc FileContext, jobID, jobURI string) Job {
	return Job{
		JobID:       jobID,
		JobURI:      jobURI,
		FileContext: fc,
	}
}

// JobName derives the transcription job name for a file context. The suffix is
// a hash of the request and file ids, so a redelivered queue message maps to
// the same job while two requests for same-named files do not collide.
func JobName(fc FileContext) string {
	sum := sha256.Sum256([]byte(fc.RequestID + "/" + fc.FileID))
	return sanitizeStem(fc.FileName) + "_" + hex.EncodeToString(sum[:])[:suffixLength]
}

func sanitizeStem(fileName string) string {
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	stem = strings.ReplaceAll(stem, ",", "")
	stem = strings.ReplaceAll(stem, " ", "_")
	// Backend job names only allow [0-9A-Za-z._-].
	stem = strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			return r
		case r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, stem)
	if len(stem) > maxStemLength {
		stem = stem[:maxStemLength]
	}
	if stem == "" {
		stem = "file"
	}
	return stem
}

// TranscriptKey is the blob-store key the backend writes for a job.
func TranscriptKey(jobName string) string {
	return TranscriptPrefix + jobName + ".json"
}

// SummaryKey is where the generated summary text is stored.
func SummaryKey(jobName string) string {
	return SummaryPrefix + jobName + ".txt"
}

// JobNameFromKey extracts the job name from a transcript key. ok is false for
// keys outside the transcript prefix or without the .json suffix.
func JobNameFromKey(key string) (name string, ok bool) {
	if !strings.HasPrefix(key, TranscriptPrefix) || !strings.HasSuffix(key, ".json") {
		return "", false
	}
	name = strings.TrimSuffix(strings.TrimPrefix(key, TranscriptPrefix), ".json")
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}
