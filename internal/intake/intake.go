// Package intake handles skill invocation webhooks: it checks the launch is
// genuine and the file is audio or video, queues the file for transcription
// and answers with the card it put on the file.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/skillscribe/internal/cards"
	"github.com/dharsanguruparan/skillscribe/internal/media"
	"github.com/dharsanguruparan/skillscribe/internal/metrics"
	"github.com/dharsanguruparan/skillscribe/internal/model"
)

const (
	ProcessingMessage    = "We're preparing to process your file. Please hold on!"
	InvalidLaunchMessage = "Invalid launch detected"
	InvalidFormatMessage = "Invalid file format"

	contentTypeJSON = "application/json"
	contentTypeText = "text/plain; charset=utf-8"
)

// Validator checks the webhook signature headers against the raw body.
type Validator interface {
	Validate(body []byte, headers http.Header) bool
}

// Enqueuer hands a file context to the transcription stage.
type Enqueuer interface {
	EnqueueTranscription(ctx context.Context, fc model.FileContext) error
}

// CardSender is the part of cards.Dispatcher intake uses.
type CardSender interface {
	Processing(ctx context.Context, t cards.Target, message string) (*cards.Receipt, error)
	Error(ctx context.Context, t cards.Target, code cards.ErrorCode, message string) (*cards.Receipt, error)
}

// Response is the HTTP answer to one invocation.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Event is the skill invocation webhook body.
type Event struct {
	ID    string `json:"id"`
	Skill struct {
		ID string `json:"id"`
	} `json:"skill"`
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Size int64  `json:"size"`
	} `json:"source"`
	Token struct {
		Read struct {
			AccessToken string `json:"access_token"`
		} `json:"read"`
		Write struct {
			AccessToken string `json:"access_token"`
		} `json:"write"`
	} `json:"token"`
}

// FileContext extracts the queued record from the event.
func (e Event) FileContext() model.FileContext {
	return model.FileContext{
		RequestID:      e.ID,
		SkillID:        e.Skill.ID,
		FileID:         e.Source.ID,
		FileName:       e.Source.Name,
		FileSize:       e.Source.Size,
		FileReadToken:  e.Token.Read.AccessToken,
		FileWriteToken: e.Token.Write.AccessToken,
	}
}

// Service handles invocations.
type Service struct {
	validator Validator
	queue     Enqueuer
	cards     CardSender
	log       zerolog.Logger
}

// NewService wires the intake service.
func NewService(validator Validator, queue Enqueuer, cs CardSender, logger zerolog.Logger) *Service {
	return &Service{
		validator: validator,
		queue:     queue,
		cards:     cs,
		log:       logger.With().Str("component", "intake").Logger(),
	}
}

// HandleInvocation processes one webhook delivery. It sends at most one card
// and enqueues at most once.
func (s *Service) HandleInvocation(ctx context.Context, body []byte, headers http.Header) (resp Response) {
	defer func() {
		metrics.InvocationsTotal.WithLabelValues(fmt.Sprint(resp.Status)).Inc()
	}()

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.Warn().Err(err).Msg("undecodable invocation")
		return textResponse(http.StatusInternalServerError, fmt.Sprintf("decode invocation: %v", err))
	}
	fc := event.FileContext()
	target := cards.TargetFor(fc)
	log := s.log.With().Str("request_id", fc.RequestID).Str("file_id", fc.FileID).Logger()

	cardSent := false
	defer func() {
		if rv := recover(); rv != nil {
			log.Error().Interface("panic", rv).Msg("invocation panicked")
			resp = s.invocationError(ctx, target, fmt.Errorf("panic: %v", rv), cardSent)
		}
	}()

	if !s.validator.Validate(body, headers) {
		log.Warn().Msg("invalid launch")
		cardSent = true
		return s.rejected(ctx, target, http.StatusForbidden, cards.ExternalAuthError, InvalidLaunchMessage)
	}

	if !media.Supported(fc.FileName) {
		log.Info().Str("file_name", fc.FileName).Msg("unsupported file type")
		cardSent = true
		return s.rejected(ctx, target, http.StatusUnsupportedMediaType, cards.InvalidFileFormat, InvalidFormatMessage)
	}

	if err := fc.Validate(); err != nil {
		return s.invocationError(ctx, target, err, false)
	}
	if err := s.queue.EnqueueTranscription(ctx, fc); err != nil {
		log.Error().Err(err).Msg("enqueue failed")
		return s.invocationError(ctx, target, err, false)
	}
	log.Info().Str("job_id", model.JobName(fc)).Msg("file queued for transcription")

	cardSent = true
	receipt, err := s.cards.Processing(ctx, target, ProcessingMessage)
	if err != nil {
		log.Error().Err(err).Msg("processing card not delivered")
		return textResponse(http.StatusInternalServerError, err.Error())
	}
	return jsonResponse(http.StatusOK, receipt)
}

func (s *Service) rejected(ctx context.Context, target cards.Target, status int, code cards.ErrorCode, message string) Response {
	receipt, err := s.cards.Error(ctx, target, code, message)
	if err != nil {
		s.log.Error().Err(err).Str("code", string(code)).Msg("error card not delivered")
		return jsonResponse(status, map[string]string{"code": string(code), "message": message})
	}
	return jsonResponse(status, receipt)
}

func (s *Service) invocationError(ctx context.Context, target cards.Target, cause error, cardSent bool) Response {
	if !cardSent && target.FileID != "" && target.WriteToken != "" {
		if _, err := s.cards.Error(ctx, target, cards.InvocationsError, cause.Error()); err != nil {
			s.log.Error().Err(err).Msg("error card not delivered")
		}
	}
	return textResponse(http.StatusInternalServerError, cause.Error())
}

func jsonResponse(status int, payload any) Response {
	body, err := json.Marshal(payload)
	if err != nil {
		return textResponse(http.StatusInternalServerError, fmt.Sprintf("encode response: %v", err))
	}
	return Response{Status: status, ContentType: contentTypeJSON, Body: body}
}

func textResponse(status int, msg string) Response {
	return Response{Status: status, ContentType: contentTypeText, Body: []byte(msg)}
}
