// Package cards posts processing, error and result cards to a file through the
// platform's skill invocation API. It does not retry; callers decide.
package cards

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dharsanguruparan/skillscribe/internal/box"
	"github.com/dharsanguruparan/skillscribe/internal/model"
)

// ErrorCode is the local error category shown on an error card.
type ErrorCode string

const (
	ExternalAuthError   ErrorCode = "EXTERNAL_AUTH_ERROR"
	InvalidFileFormat   ErrorCode = "INVALID_FILE_FORMAT"
	FileProcessingError ErrorCode = "FILE_PROCESSING_ERROR"
	InvocationsError    ErrorCode = "INVOCATIONS_ERROR"
	Unknown             ErrorCode = "UNKNOWN"
)

const (
	TranscriptTitle = "Meeting Transcript"
	SummaryTitle    = "Meeting Summary"
)

var platformCodes = map[ErrorCode]string{
	ExternalAuthError:   "skills_external_auth_error",
	InvalidFileFormat:   "skills_invalid_file_format",
	FileProcessingError: "skills_file_processing_error",
	InvocationsError:    "skills_invocations_error",
	Unknown:             "skills_unknown_error",
}

// PlatformCode maps a local category to the platform's fixed status code.
func PlatformCode(code ErrorCode) string {
	if c, ok := platformCodes[code]; ok {
		return c
	}
	return platformCodes[Unknown]
}

// Permanent reports whether retrying the same invocation cannot succeed.
func Permanent(code ErrorCode) bool {
	return code == ExternalAuthError || code == InvalidFileFormat
}

// TitleCode builds the card title slug, e.g. "Bedrock Skill" -> "skill_bedrock_skill".
func TitleCode(title string) string {
	return "skill_" + strings.ReplaceAll(strings.ToLower(strings.TrimSpace(title)), " ", "_")
}

// Platform is the subset of the platform client the dispatcher needs.
type Platform interface {
	UpdateSkillInvocation(ctx context.Context, token, skillID string, update box.SkillInvocationUpdate) (json.RawMessage, error)
	DeleteSkillCards(ctx context.Context, token, fileID string) error
}

// Target addresses the file and invocation a card belongs to.
type Target struct {
	FileID       string
	SkillID      string
	InvocationID string
	WriteToken   string
}

// TargetFor returns the card target for a file context.
func TargetFor(fc model.FileContext) Target {
	return Target{
		FileID:       fc.FileID,
		SkillID:      fc.SkillID,
		InvocationID: fc.RequestID,
		WriteToken:   fc.FileWriteToken,
	}
}

// Receipt is what was sent and what the platform answered.
type Receipt struct {
	Status   string          `json:"status"`
	Cards    []box.SkillCard `json:"cards"`
	Response json.RawMessage `json:"response,omitempty"`
}

// Dispatcher writes cards for one skill.
type Dispatcher struct {
	platform Platform
	title    string
}

// NewDispatcher creates a Dispatcher that titles status cards with title.
func NewDispatcher(platform Platform, title string) *Dispatcher {
	return &Dispatcher{platform: platform, title: title}
}

// Processing posts a status card saying the file is being worked on.
func (d *Dispatcher) Processing(ctx context.Context, t Target, message string) (*Receipt, error) {
	card := d.statusCard(t, d.title, box.CardStatus{Code: box.InvocationProcessing, Message: message})
	return d.send(ctx, t, box.InvocationProcessing, card)
}

// Error posts a status card carrying the platform code for code.
func (d *Dispatcher) Error(ctx context.Context, t Target, code ErrorCode, message string) (*Receipt, error) {
	status := box.InvocationTransientFailure
	if Permanent(code) {
		status = box.InvocationPermanentFailure
	}
	card := d.statusCard(t, d.title, box.CardStatus{Code: PlatformCode(code), Message: message})
	return d.send(ctx, t, status, card)
}

// Result completes the invocation with a transcript card and a summary card.
func (d *Dispatcher) Result(ctx context.Context, t Target, transcript, summary string) (*Receipt, error) {
	return d.send(ctx, t, box.InvocationSuccess,
		d.transcriptCard(t, TranscriptTitle, transcript),
		d.transcriptCard(t, SummaryTitle, summary),
	)
}

// Clear deletes every card currently on the file.
func (d *Dispatcher) Clear(ctx context.Context, t Target) error {
	if err := d.platform.DeleteSkillCards(ctx, t.WriteToken, t.FileID); err != nil {
		return fmt.Errorf("delete cards on %s: %w", t.FileID, err)
	}
	return nil
}

func (d *Dispatcher) send(ctx context.Context, t Target, status string, cards ...box.SkillCard) (*Receipt, error) {
	update := box.SkillInvocationUpdate{
		Status:   status,
		Metadata: box.CardMetadata{Cards: cards},
		File:     box.Reference{Type: "file", ID: t.FileID},
	}
	resp, err := d.platform.UpdateSkillInvocation(ctx, t.WriteToken, t.SkillID, update)
	if err != nil {
		return nil, fmt.Errorf("write %s cards on %s: %w", status, t.FileID, err)
	}
	return &Receipt{Status: status, Cards: cards, Response: resp}, nil
}

func (d *Dispatcher) statusCard(t Target, title string, status box.CardStatus) box.SkillCard {
	card := d.baseCard(t, box.CardTypeStatus, title)
	card.Status = &status
	return card
}

func (d *Dispatcher) transcriptCard(t Target, title, text string) box.SkillCard {
	card := d.baseCard(t, box.CardTypeTranscript, title)
	card.Entries = []box.CardEntry{{Text: text}}
	return card
}

func (d *Dispatcher) baseCard(t Target, cardType, title string) box.SkillCard {
	return box.SkillCard{
		Type:          "skill_card",
		SkillCardType: cardType,
		Title:         box.CardTitle{Code: TitleCode(title), Message: title},
		Skill:         box.Reference{Type: "service", ID: t.SkillID},
		Invocation:    box.Reference{Type: "skill_invocation", ID: t.InvocationID},
	}
}
