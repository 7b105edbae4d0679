package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/skillscribe/internal/config"
	"github.com/dharsanguruparan/skillscribe/internal/intake"
)

type fakeIntake struct {
	body    []byte
	headers http.Header
	resp    intake.Response
	panics  bool
}

func (f *fakeIntake) HandleInvocation(ctx context.Context, body []byte, headers http.Header) intake.Response {
	if f.panics {
		panic("kaboom")
	}
	f.body = body
	f.headers = headers
	return f.resp
}

type fakeEvents struct {
	keys []string
	err  error
}

func (f *fakeEvents) EnqueueTranscriptReady(ctx context.Context, key string) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{Address: ":0", MaxPayloadBytes: 1024, EventsAuthToken: "s3cret"}
}

func TestSkillEndpointPassesThrough(t *testing.T) {
	in := &fakeIntake{resp: intake.Response{Status: http.StatusUnsupportedMediaType, ContentType: "application/json", Body: []byte(`{"status":"permanent_failure"}`)}}
	srv := New(testConfig(), in, &fakeEvents{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/skill", strings.NewReader(`{"id":"1"}`))
	req.Header.Set("Box-Signature-Primary", "sig")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"permanent_failure"}`, rec.Body.String())
	assert.Equal(t, `{"id":"1"}`, string(in.body))
	assert.Equal(t, "sig", in.headers.Get("Box-Signature-Primary"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSkillEndpointRejectsLargeBodies(t *testing.T) {
	in := &fakeIntake{}
	srv := New(testConfig(), in, nil, zerolog.Nop())
	req := httptest.NewRequest(http.MethodPost, "/skill", strings.NewReader(strings.Repeat("x", 2048)))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Nil(t, in.body)
}

func TestRecovererCatchesPanics(t *testing.T) {
	srv := New(testConfig(), &fakeIntake{panics: true}, nil, zerolog.Nop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/skill", strings.NewReader("{}")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

const s3Event = `{"EventName":"s3:ObjectCreated:Put","Records":[
	{"s3":{"object":{"key":"meetings_summary/weekly+sync_1a2b3c4d.json"}}},
	{"s3":{"object":{"key":"summaries/weekly_1a2b3c4d.txt"}}}
]}`

func TestStorageEventQueuesTranscripts(t *testing.T) {
	events := &fakeEvents{}
	srv := New(testConfig(), &fakeIntake{}, events, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/events/storage", strings.NewReader(s3Event))
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"queued":1}`, rec.Body.String())
	assert.Equal(t, []string{"meetings_summary/weekly sync_1a2b3c4d.json"}, events.keys)
}

func TestStorageEventRequiresToken(t *testing.T) {
	events := &fakeEvents{}
	srv := New(testConfig(), &fakeIntake{}, events, zerolog.Nop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events/storage", strings.NewReader(s3Event)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, events.keys)
}

func TestStorageEventEnqueueFailure(t *testing.T) {
	srv := New(testConfig(), &fakeIntake{}, &fakeEvents{err: errors.New("redis down")}, zerolog.Nop())
	req := httptest.NewRequest(http.MethodPost, "/events/storage", strings.NewReader(s3Event))
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStorageEventRouteAbsentInListenMode(t *testing.T) {
	srv := New(testConfig(), &fakeIntake{}, nil, zerolog.Nop())
	req := httptest.NewRequest(http.MethodPost, "/events/storage", strings.NewReader(s3Event))
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := New(testConfig(), &fakeIntake{}, nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "skillscribe_")
}
