package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/dharsanguruparan/skillscribe/internal/cards"
	"github.com/dharsanguruparan/skillscribe/internal/llm"
	"github.com/dharsanguruparan/skillscribe/internal/model"
	"github.com/dharsanguruparan/skillscribe/internal/storage"
	"github.com/dharsanguruparan/skillscribe/internal/transcribe"
)

var errBoom = errors.New("boom")

type fakeLocator struct {
	url   string
	err   error
	calls int
}

func (f *fakeLocator) DownloadURL(ctx context.Context, token, fileID string) (string, error) {
	f.calls++
	return f.url, f.err
}

// recordingStore wraps the memory store and can fail writes.
type recordingStore struct {
	*storage.MemoryStore
	putErr  error
	gets    int
	deletes int
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: storage.NewMemoryStore()}
}

func (s *recordingStore) Put(ctx context.Context, job model.Job) error {
	if s.putErr != nil {
		return s.putErr
	}
	return s.MemoryStore.Put(ctx, job)
}

func (s *recordingStore) Get(ctx context.Context, jobID string) (*model.Job, error) {
	s.gets++
	return s.MemoryStore.Get(ctx, jobID)
}

func (s *recordingStore) Delete(ctx context.Context, jobID string) error {
	s.deletes++
	return s.MemoryStore.Delete(ctx, jobID)
}

type fakeBackend struct {
	// rowSeen records whether the job row existed when Start was called.
	store    *recordingStore
	rowSeen  bool
	requests []transcribe.Request
	startErr error
	status   transcribe.Status
	statuses int
}

func (f *fakeBackend) Start(ctx context.Context, req transcribe.Request) error {
	f.requests = append(f.requests, req)
	if f.store != nil {
		_, err := f.store.MemoryStore.Get(ctx, req.JobName)
		f.rowSeen = err == nil
	}
	return f.startErr
}

func (f *fakeBackend) Status(ctx context.Context, jobName string) (transcribe.Status, error) {
	f.statuses++
	return f.status, nil
}

type fakeBlobs struct {
	objects map[string][]byte
	gets    int
	puts    map[string]string
	putErr  error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}, puts: map[string]string{}}
}

func (f *fakeBlobs) GetObject(ctx context.Context, key string) ([]byte, error) {
	f.gets++
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func (f *fakeBlobs) PutText(ctx context.Context, key, text string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.puts[key] = text
	return nil
}

type fakeCompleter struct {
	prompts []string
	params  []llm.Params
	reply   string
	err     error
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, p llm.Params) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.params = append(f.params, p)
	return f.reply, f.err
}

type cardCall struct {
	Kind       string
	Target     cards.Target
	Code       cards.ErrorCode
	Transcript string
	Summary    string
}

type fakeCards struct {
	mu        sync.Mutex
	calls     []cardCall
	resultErr error
	clearErr  error
	errorErr  error
}

func (f *fakeCards) Error(ctx context.Context, t cards.Target, code cards.ErrorCode, message string) (*cards.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cardCall{Kind: "error", Target: t, Code: code})
	if f.errorErr != nil {
		return nil, f.errorErr
	}
	return &cards.Receipt{}, nil
}

func (f *fakeCards) Result(ctx context.Context, t cards.Target, transcript, summary string) (*cards.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cardCall{Kind: "result", Target: t, Transcript: transcript, Summary: summary})
	if f.resultErr != nil {
		return nil, f.resultErr
	}
	return &cards.Receipt{}, nil
}

func (f *fakeCards) Clear(ctx context.Context, t cards.Target) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cardCall{Kind: "clear", Target: t})
	return f.clearErr
}

func (f *fakeCards) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Kind
	}
	return out
}

func sampleContext() model.FileContext {
	return model.FileContext{
		RequestID:      "req-1",
		SkillID:        "skill-1",
		FileID:         "file-1",
		FileName:       "weekly sync, team.mp4",
		FileSize:       50 << 20,
		FileReadToken:  "read-token",
		FileWriteToken: "write-token",
	}
}
