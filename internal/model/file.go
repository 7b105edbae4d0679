// Package model contains the records shared by the intake, queue, and the
// orchestrators. Struct tags such as `json:"file_id"` fix the wire names used in
// queue messages and job rows.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIncompleteContext is returned by FileContext.Validate.
var ErrIncompleteContext = errors.New("incomplete file context")

// FileContext identifies one file-processing request. The tokens are
// short-lived credentials scoped to a single file.
type FileContext struct {
	RequestID      string `json:"request_id"`
	SkillID        string `json:"skill_id"`
	FileID         string `json:"file_id"`
	FileName       string `json:"file_name"`
	FileSize       int64  `json:"file_size"`
	FileReadToken  string `json:"file_read_token"`
	FileWriteToken string `json:"file_write_token"`
}

// Validate reports which fields are missing. Every field must be present before
// the context is enqueued.
func (fc FileContext) Validate() error {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("request_id", fc.RequestID)
	check("skill_id", fc.SkillID)
	check("file_id", fc.FileID)
	check("file_name", fc.FileName)
	check("file_read_token", fc.FileReadToken)
	check("file_write_token", fc.FileWriteToken)
	if fc.FileSize <= 0 {
		missing = append(missing, "file_size")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteContext, strings.Join(missing, ", "))
	}
	return nil
}
