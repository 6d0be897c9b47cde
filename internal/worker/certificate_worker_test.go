package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ashik-Muhammed/zygreen/internal/service"
	"github.com/Ashik-Muhammed/zygreen/internal/service/integration"
	"github.com/Ashik-Muhammed/zygreen/internal/worker/queue"
)

type chanConsumer struct {
	ch chan queue.Message
}

func (c *chanConsumer) Consume(context.Context) (<-chan queue.Message, error) {
	return c.ch, nil
}

func (c *chanConsumer) QueueLength() (int, error) { return len(c.ch), nil }

func (c *chanConsumer) Close() error {
	close(c.ch)
	return nil
}

type stubRenderer struct {
	mu    sync.Mutex
	errs  map[string]error
	calls []string
}

func (r *stubRenderer) RenderPDF(_ context.Context, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, id)
	if err := r.errs[id]; err != nil {
		return "", err
	}
	return "https://files.test/" + id + ".pdf", nil
}

type outcome struct {
	acked   bool
	requeue bool
}

type recorder struct {
	mu      sync.Mutex
	results map[string]outcome
	wg      sync.WaitGroup
}

func (r *recorder) message(key, body string, redelivered bool) queue.Message {
	r.wg.Add(1)
	return queue.Message{
		Body:        []byte(body),
		Redelivered: redelivered,
		Ack: func(bool) error {
			r.mu.Lock()
			r.results[key] = outcome{acked: true}
			r.mu.Unlock()
			r.wg.Done()
			return nil
		},
		Nack: func(_ bool, requeue bool) error {
			r.mu.Lock()
			r.results[key] = outcome{requeue: requeue}
			r.mu.Unlock()
			r.wg.Done()
			return nil
		},
	}
}

func event(id string) string {
	return fmt.Sprintf(`{"certificate_id":%q,"user_id":"u1","course_id":"c1","timestamp":1}`, id)
}

func TestCertificateWorkerAckAndNack(t *testing.T) {
	renderer := &stubRenderer{errs: map[string]error{
		"missing":  service.ErrCertificateNotFound,
		"rejected": fmt.Errorf("%w: %w", service.ErrPDFUnavailable, integration.ErrRendererRejected),
		"flaky":    fmt.Errorf("%w: %w", service.ErrPDFUnavailable, errors.New("connection reset")),
		"retried":  errors.New("storage unavailable"),
	}}
	consumer := &chanConsumer{ch: make(chan queue.Message, 10)}
	pool := NewWorkerPool(2, zerolog.Nop())
	w := NewCertificateWorker(pool, consumer, renderer, time.Second, zerolog.Nop())

	rec := &recorder{results: map[string]outcome{}}
	consumer.ch <- rec.message("ok", event("ok"), false)
	consumer.ch <- rec.message("missing", event("missing"), false)
	consumer.ch <- rec.message("rejected", event("rejected"), false)
	consumer.ch <- rec.message("flaky", event("flaky"), false)
	consumer.ch <- rec.message("retried", event("retried"), true)
	consumer.ch <- rec.message("garbage", `{not json`, false)
	consumer.ch <- rec.message("empty", `{"certificate_id":""}`, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	rec.wg.Wait()
	require.NoError(t, w.Stop())
	require.NoError(t, pool.Stop())

	assert.Equal(t, map[string]outcome{
		"ok":       {acked: true},
		"missing":  {acked: true},
		"rejected": {acked: true},
		"flaky":    {requeue: true},
		"retried":  {acked: true},
		"garbage":  {acked: true},
		"empty":    {acked: true},
	}, rec.results)

	stats := w.Stats()
	assert.Equal(t, 1, stats.TotalProcessed)
	assert.Equal(t, 6, stats.FailedJobs)
	assert.ElementsMatch(t, []string{"ok", "missing", "rejected", "flaky", "retried"}, renderer.calls)
}
