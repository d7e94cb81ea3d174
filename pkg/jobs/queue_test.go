package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDeliversPayload(t *testing.T) {
	got := make(chan string, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		got <- job.Payload
		return nil
	}, QueueConfig{Workers: 1})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "campaign.assign_direct", Payload: "camp-1"}))
	select {
	case payload := <-got:
		assert.Equal(t, "camp-1", payload)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}
}

func TestQueueRetriesUntilExhausted(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		attempts++
		if attempts == 3 {
			close(done)
		}
		mu.Unlock()
		return errors.New("boom")
	}, QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Payload: "camp-1"}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	require.Error(t, q.Enqueue(Job{ID: "job-1"}))
}
