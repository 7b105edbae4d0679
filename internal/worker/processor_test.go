package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/skillscribe/internal/model"
	"github.com/dharsanguruparan/skillscribe/internal/pipeline"
	"github.com/dharsanguruparan/skillscribe/internal/queue"
)

type fakeTranscriber struct {
	err      error
	seen     []model.FileContext
	reported []error
}

func (f *fakeTranscriber) Process(ctx context.Context, fc model.FileContext) error {
	f.seen = append(f.seen, fc)
	return f.err
}

func (f *fakeTranscriber) ReportFailure(ctx context.Context, fc model.FileContext, cause error) error {
	f.reported = append(f.reported, cause)
	return nil
}

type fakeSummarizer struct {
	err      error
	keys     []string
	reported []error
}

func (f *fakeSummarizer) Process(ctx context.Context, key string) (pipeline.Result, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return pipeline.Result{}, f.err
	}
	return pipeline.Result{Outcome: pipeline.OutcomeCompleted}, nil
}

func (f *fakeSummarizer) ReportFailure(ctx context.Context, key string, cause error) error {
	f.reported = append(f.reported, cause)
	return nil
}

var fc = model.FileContext{
	RequestID: "r", SkillID: "s", FileID: "f", FileName: "a.mp3",
	FileSize: 1, FileReadToken: "rt", FileWriteToken: "wt",
}

func TestHandlerDispatchesTranscription(t *testing.T) {
	tr := &fakeTranscriber{}
	p := NewProcessor(tr, &fakeSummarizer{}, zerolog.Nop())
	task, err := queue.NewTranscriptionTask(fc, 5)
	require.NoError(t, err)

	require.NoError(t, p.Handler().ProcessTask(context.Background(), task))
	require.Len(t, tr.seen, 1)
	assert.Equal(t, fc, tr.seen[0])
}

func TestHandlerDispatchesTranscriptReady(t *testing.T) {
	sum := &fakeSummarizer{}
	p := NewProcessor(&fakeTranscriber{}, sum, zerolog.Nop())
	task, err := queue.NewTranscriptReadyTask("meetings_summary/x_00000000.json", 2, true)
	require.NoError(t, err)

	require.NoError(t, p.Handler().ProcessTask(context.Background(), task))
	assert.Equal(t, []string{"meetings_summary/x_00000000.json"}, sum.keys)
}

func TestBadPayloadSkipsRetry(t *testing.T) {
	p := NewProcessor(&fakeTranscriber{}, &fakeSummarizer{}, zerolog.Nop())
	err := p.Handler().ProcessTask(context.Background(), asynq.NewTask(queue.TranscriptReadyTask, []byte(`{}`)))
	require.Error(t, err)
	assert.True(t, IsSkipRetry(err))
}

func TestRetryableFailureIsRetriedWithoutCard(t *testing.T) {
	tr := &fakeTranscriber{err: fmt.Errorf("%w: throttled", pipeline.ErrBackend)}
	p := NewProcessor(tr, &fakeSummarizer{}, zerolog.Nop())

	err := p.Transcribe(context.Background(), fc, false)
	require.ErrorIs(t, err, pipeline.ErrBackend)
	assert.False(t, IsSkipRetry(err))
	assert.Empty(t, tr.reported)
}

func TestFinalFailureReportsCard(t *testing.T) {
	tr := &fakeTranscriber{err: fmt.Errorf("%w: throttled", pipeline.ErrBackend)}
	p := NewProcessor(tr, &fakeSummarizer{}, zerolog.Nop())

	err := p.Transcribe(context.Background(), fc, true)
	require.Error(t, err)
	assert.Len(t, tr.reported, 1)
}

func TestNonRetryableFailureSkipsRetry(t *testing.T) {
	sum := &fakeSummarizer{err: fmt.Errorf("%w: meeting_1", pipeline.ErrJobNotFound)}
	p := NewProcessor(&fakeTranscriber{}, sum, zerolog.Nop())

	err := p.Summarize(context.Background(), "meetings_summary/meeting_1.json", false)
	require.ErrorIs(t, err, pipeline.ErrJobNotFound)
	assert.True(t, IsSkipRetry(err))
	assert.Len(t, sum.reported, 1)
}

func TestFinalAttemptWithoutTaskContext(t *testing.T) {
	assert.False(t, finalAttempt(context.Background()))
	assert.False(t, IsSkipRetry(errors.New("x")))
}
