package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/skillscribe/internal/model"
	"github.com/dharsanguruparan/skillscribe/internal/s3storage"
)

type fakeSource struct {
	mu      sync.Mutex
	batches [][]s3storage.ObjectEvent
	listens int
	prefix  string
}

func (f *fakeSource) ListenObjectCreated(ctx context.Context, prefix, suffix string) <-chan s3storage.ObjectEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listens++
	f.prefix = prefix
	out := make(chan s3storage.ObjectEvent, 8)
	if len(f.batches) > 0 {
		for _, ev := range f.batches[0] {
			out <- ev
		}
		f.batches = f.batches[1:]
	}
	close(out)
	return out
}

type fakeQueue struct {
	mu   sync.Mutex
	keys []string
	fail map[string]bool
}

func (q *fakeQueue) EnqueueTranscriptReady(ctx context.Context, key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail[key] {
		return errors.New("redis down")
	}
	q.keys = append(q.keys, key)
	return nil
}

func (q *fakeQueue) snapshot() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.keys...)
}

func TestRelayQueuesTranscripts(t *testing.T) {
	source := &fakeSource{batches: [][]s3storage.ObjectEvent{
		{
			{Key: model.PermissionCheckKey},
			{Err: errors.New("bad record")},
			{Key: "meetings_summary/a_00000000.json"},
			{Key: "meetings_summary/broken_00000000.json"},
		},
		{
			{Key: "meetings_summary/b_11111111.json"},
		},
	}}
	queue := &fakeQueue{fail: map[string]bool{"meetings_summary/broken_00000000.json": true}}
	relay := NewRelay(source, queue, zerolog.Nop())
	relay.reconnectDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.Eventually(t, func() bool { return len(queue.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"meetings_summary/a_00000000.json", "meetings_summary/b_11111111.json"}, queue.snapshot())
	source.mu.Lock()
	defer source.mu.Unlock()
	assert.GreaterOrEqual(t, source.listens, 2)
	assert.Equal(t, model.TranscriptPrefix, source.prefix)
}
