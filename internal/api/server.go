package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/minio/minio-go/v7/pkg/notification"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/dharsanguruparan/skillscribe/internal/config"
	"github.com/dharsanguruparan/skillscribe/internal/intake"
	"github.com/dharsanguruparan/skillscribe/internal/metrics"
	"github.com/dharsanguruparan/skillscribe/internal/model"
	"github.com/dharsanguruparan/skillscribe/internal/s3storage"
)

// InvocationHandler answers skill invocation webhooks.
type InvocationHandler interface {
	HandleInvocation(ctx context.Context, body []byte, headers http.Header) intake.Response
}

// TranscriptEnqueuer queues summarization for a created transcript object.
type TranscriptEnqueuer interface {
	EnqueueTranscriptReady(ctx context.Context, objectKey string) error
}

// Server exposes the webhook, storage event and operational endpoints.
type Server struct {
	cfg     *config.Config
	intake  InvocationHandler
	events  TranscriptEnqueuer
	log     zerolog.Logger
	server  *http.Server
	once    sync.Once
	handler http.Handler
}

// New constructs a Server. events may be nil when storage notifications
// arrive through the listen API instead of HTTP.
func New(cfg *config.Config, in InvocationHandler, events TranscriptEnqueuer, logger zerolog.Logger) *Server {
	return &Server{
		cfg:    cfg,
		intake: in,
		events: events,
		log:    logger.With().Str("component", "http").Logger(),
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	s.once.Do(func() {
		r := chi.NewRouter()
		r.Use(RequestID)
		r.Use(Logger(s.log))
		r.Use(Recoverer)
		r.Use(metrics.InstrumentHandler)

		r.Get("/healthz", s.handleHealth)
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
		r.Post("/skill", s.handleSkill)
		if s.events != nil {
			r.With(BearerAuth(s.cfg.EventsAuthToken)).Post("/events/storage", s.handleStorageEvent)
		}
		s.handler = r
	})
	return s.handler
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.log.Info().Str("addr", s.cfg.Address).Msg("api listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSkill(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	resp := s.intake.HandleInvocation(r.Context(), body, r.Header)
	w.Header().Set("Content-Type", resp.ContentType)
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

type storageEvent struct {
	Records []notification.Event `json:"Records"`
}

func (s *Server) handleStorageEvent(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	var event storageEvent
	if err := json.Unmarshal(body, &event); err != nil {
		metrics.NotificationsTotal.WithLabelValues("http", "invalid").Inc()
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event payload"})
		return
	}
	keys, err := s3storage.EventKeys(notification.Info{Records: event.Records})
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("http", "invalid").Inc()
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	queued := 0
	for _, key := range keys {
		if !strings.HasPrefix(key, model.TranscriptPrefix) {
			metrics.NotificationsTotal.WithLabelValues("http", "ignored").Inc()
			continue
		}
		if err := s.events.EnqueueTranscriptReady(r.Context(), key); err != nil {
			hlog.FromRequest(r).Error().Err(err).Str("object_key", key).Msg("enqueue transcript failed")
			metrics.NotificationsTotal.WithLabelValues("http", "failed").Inc()
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "failed to queue transcript"})
			return
		}
		metrics.NotificationsTotal.WithLabelValues("http", "queued").Inc()
		queued++
	}
	respondJSON(w, http.StatusAccepted, map[string]int{"queued": queued})
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxPayloadBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
