package warmer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/database"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/entity"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newCDN(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Path == "/demo/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWarm(t *testing.T) {
	var hits int32
	cdn := newCDN(t, &hits)
	repo := database.NewMemoryWarmRepository(time.Hour)
	w := NewWarmer(cdn.Client(), repo, Config{Workers: 2}, quietLogger())

	task := entity.WarmTask{
		ID:     "t1",
		Source: cdn.URL + "/demo/a.jpg",
		Variants: []entity.WarmVariant{
			{URL: cdn.URL + "/demo/tr:w-320/a.jpg", Width: 320},
			{URL: cdn.URL + "/demo/tr:w-640/a.jpg", Width: 640},
			{URL: cdn.URL + "/demo/missing.jpg"},
		},
	}

	results, err := w.Warm(context.Background(), task)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, entity.StatusLoaded, results[0].Status)
	assert.Equal(t, entity.StatusLoaded, results[1].Status)
	assert.False(t, results[0].Cached)
	assert.Equal(t, entity.StatusError, results[2].Status)
	assert.Equal(t, "HTTP 404", results[2].Error)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))

	stored, err := repo.Results(context.Background(), "t1")
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	// warm variants are skipped, the failed one is retried
	again, err := w.Warm(context.Background(), entity.WarmTask{ID: "t2", Variants: task.Variants})
	require.NoError(t, err)
	assert.True(t, again[0].Cached)
	assert.True(t, again[1].Cached)
	assert.False(t, again[2].Cached)
	assert.Equal(t, int32(4), atomic.LoadInt32(&hits))
}

// TestWarmSharedAcrossReplicas checks two warmers backed by one redis fetch each URL once
func TestWarmSharedAcrossReplicas(t *testing.T) {
	var hits int32
	cdn := newCDN(t, &hits)

	mr := miniredis.RunT(t)
	newReplica := func() Warmer {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		return NewWarmer(cdn.Client(), database.NewRedisWarmRepository(client, time.Hour), Config{}, quietLogger())
	}

	task := entity.WarmTask{ID: "t", Variants: []entity.WarmVariant{{URL: cdn.URL + "/demo/a.jpg"}}}

	_, err := newReplica().Warm(context.Background(), task)
	require.NoError(t, err)
	res, err := newReplica().Warm(context.Background(), task)
	require.NoError(t, err)

	assert.True(t, res[0].Cached)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

type failingRepo struct {
	database.WarmRepository
}

func (failingRepo) MarkWarm(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestWarmRepositoryFailure(t *testing.T) {
	w := NewWarmer(nil, failingRepo{}, Config{}, quietLogger())

	results, err := w.Warm(context.Background(), entity.WarmTask{ID: "t", Variants: []entity.WarmVariant{{URL: "http://127.0.0.1:1/a.jpg"}}})
	require.Error(t, err)
	assert.Equal(t, entity.StatusError, results[0].Status)
}

func TestWarmCancelled(t *testing.T) {
	var hits int32
	cdn := newCDN(t, &hits)
	w := NewWarmer(cdn.Client(), database.NewMemoryWarmRepository(0), Config{}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := w.Warm(ctx, entity.WarmTask{ID: "t", Variants: []entity.WarmVariant{{URL: cdn.URL + "/demo/a.jpg"}}})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusError, results[0].Status)
	assert.Contains(t, results[0].Error, "context canceled")
}

func TestDecodeTask(t *testing.T) {
	task, err := DecodeTask([]byte(`{"id":"x","source":"s","variants":[{"url":"u","width":320}]}`))
	require.NoError(t, err)
	assert.Equal(t, "x", task.ID)
	assert.Equal(t, 320, task.Variants[0].Width)

	_, err = DecodeTask([]byte(`{"id":"x","variants":[]}`))
	assert.ErrorIs(t, err, ErrEmptyTask)

	_, err = DecodeTask([]byte(`not json`))
	assert.Error(t, err)
}

func TestStartConsumerRequiresConfig(t *testing.T) {
	w := NewWarmer(nil, database.NewMemoryWarmRepository(time.Hour), Config{}, quietLogger())

	err := StartConsumer(context.Background(), ConsumerConfig{Topic: "image-warmup"}, w, quietLogger())
	assert.ErrorIs(t, err, ErrConsumerConfig)

	err = StartConsumer(context.Background(), ConsumerConfig{Brokers: []string{"localhost:9094"}}, w, quietLogger())
	assert.ErrorIs(t, err, ErrConsumerConfig)
}

type blockingWarmer struct {
	release  chan struct{}
	inFlight int32
	peak     int32
	done     int32
}

func (b *blockingWarmer) Warm(ctx context.Context, task entity.WarmTask) ([]entity.WarmResult, error) {
	n := atomic.AddInt32(&b.inFlight, 1)
	for {
		peak := atomic.LoadInt32(&b.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&b.peak, peak, n) {
			break
		}
	}
	<-b.release
	atomic.AddInt32(&b.inFlight, -1)
	atomic.AddInt32(&b.done, 1)
	return nil, nil
}

func TestDispatcherBoundsTasksInFlight(t *testing.T) {
	bw := &blockingWarmer{release: make(chan struct{})}
	d := newDispatcher(bw, 2, quietLogger())
	msg := []byte(`{"id":"x","source":"s","variants":[{"url":"u"}]}`)

	dispatched := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			d.dispatch(context.Background(), msg)
		}
		close(dispatched)
	}()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&bw.inFlight) == 2 }, time.Second, 5*time.Millisecond)
	select {
	case <-dispatched:
		t.Fatal("dispatch did not block on a full group")
	case <-time.After(50 * time.Millisecond):
	}

	close(bw.release)
	<-dispatched
	d.wait()

	assert.Equal(t, int32(5), atomic.LoadInt32(&bw.done))
	assert.Equal(t, int32(2), atomic.LoadInt32(&bw.peak))
}

func TestDispatcherSkipsBadMessages(t *testing.T) {
	bw := &blockingWarmer{release: make(chan struct{})}
	close(bw.release)
	d := newDispatcher(bw, 0, quietLogger())

	d.dispatch(context.Background(), []byte("not json"))
	d.dispatch(context.Background(), []byte(`{"id":"x","variants":[]}`))
	d.wait()

	assert.Zero(t, atomic.LoadInt32(&bw.done))
}
