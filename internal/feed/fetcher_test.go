package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/discentra/discentra/internal/config"
	"github.com/discentra/discentra/internal/models"
	"github.com/discentra/discentra/internal/observability"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubSource struct {
	calls   atomic.Int64
	fetch   func(ctx context.Context, call int64) ([]models.DisasterRecord, error)
	entered chan struct{}
	release chan struct{}
}

func (s *stubSource) Fetch(ctx context.Context) ([]models.DisasterRecord, error) {
	call := s.calls.Add(1)
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	return s.fetch(ctx, call)
}

func testFeedConfig() config.FeedConfig {
	return config.FeedConfig{
		PollInterval: 5 * time.Minute,
		RetryDelay:   5 * time.Second,
		MaxRetries:   3,
	}
}

func newTestFetcher(source Source, clock clockwork.Clock) *Fetcher {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewFetcher(source, testFeedConfig(), clock, nil,
		observability.NewMetricsForTesting(), logger)
}

func TestFetcher_RefreshSuccess(t *testing.T) {
	records := []models.DisasterRecord{
		{ID: "1", Name: "Typhoon Odette", Status: "Ongoing"},
		{ID: "2", Name: "Taal Eruption", Status: "Alert"},
	}
	source := &stubSource{fetch: func(ctx context.Context, call int64) ([]models.DisasterRecord, error) {
		return records, nil
	}}
	clock := clockwork.NewFakeClock()
	fetcher := newTestFetcher(source, clock)

	st := fetcher.Refresh(context.Background())

	assert.Len(t, st.Records, 2)
	assert.Equal(t, clock.Now(), st.LastUpdated)
	assert.Empty(t, st.LastError)
	assert.Zero(t, st.RetryCount)
	assert.EqualValues(t, 1, source.calls.Load())
}

func TestFetcher_RetryBound(t *testing.T) {
	source := &stubSource{fetch: func(ctx context.Context, call int64) ([]models.DisasterRecord, error) {
		return nil, errors.New("upstream unavailable")
	}}
	clock := clockwork.NewFakeClock()
	fetcher := newTestFetcher(source, clock)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan models.FetchState, 1)
	go func() {
		done <- fetcher.Refresh(ctx)
	}()

	// Three retries at the fixed delay, then the cycle gives up.
	for i := 0; i < 3; i++ {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(5 * time.Second)
	}

	st := <-done
	assert.EqualValues(t, 4, source.calls.Load(), "initial attempt plus three retries")
	assert.Equal(t, 3, st.RetryCount)
	assert.Equal(t, "upstream unavailable", st.LastError)
	assert.Empty(t, st.Records)
}

func TestFetcher_SuccessResetsRetryCount(t *testing.T) {
	source := &stubSource{fetch: func(ctx context.Context, call int64) ([]models.DisasterRecord, error) {
		if call <= 2 {
			return nil, errors.New("flaky upstream")
		}
		return []models.DisasterRecord{{ID: "1", Name: "Flood"}}, nil
	}}
	clock := clockwork.NewFakeClock()
	fetcher := newTestFetcher(source, clock)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan models.FetchState, 1)
	go func() {
		done <- fetcher.Refresh(ctx)
	}()

	for i := 0; i < 2; i++ {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(5 * time.Second)
	}

	st := <-done
	assert.Zero(t, st.RetryCount)
	assert.Empty(t, st.LastError)
	assert.Len(t, st.Records, 1)
	assert.EqualValues(t, 3, source.calls.Load())
}

func TestFetcher_ManualRefreshReArmsRetries(t *testing.T) {
	source := &stubSource{fetch: func(ctx context.Context, call int64) ([]models.DisasterRecord, error) {
		return nil, errors.New("still down")
	}}
	clock := clockwork.NewFakeClock()
	fetcher := newTestFetcher(source, clock)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runExhaustedCycle := func() models.FetchState {
		done := make(chan models.FetchState, 1)
		go func() {
			done <- fetcher.Refresh(ctx)
		}()
		for i := 0; i < 3; i++ {
			require.NoError(t, clock.BlockUntilContext(ctx, 1))
			clock.Advance(5 * time.Second)
		}
		return <-done
	}

	st := runExhaustedCycle()
	require.Equal(t, 3, st.RetryCount)
	require.EqualValues(t, 4, source.calls.Load())

	// A second manual refresh starts from zero, so auto-retry runs again.
	st = runExhaustedCycle()
	assert.Equal(t, 3, st.RetryCount)
	assert.EqualValues(t, 8, source.calls.Load())
}

func TestFetcher_ConcurrentRefreshIgnored(t *testing.T) {
	source := &stubSource{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		fetch: func(ctx context.Context, call int64) ([]models.DisasterRecord, error) {
			return []models.DisasterRecord{{ID: "1"}}, nil
		},
	}
	clock := clockwork.NewFakeClock()
	fetcher := newTestFetcher(source, clock)

	done := make(chan models.FetchState, 1)
	go func() {
		done <- fetcher.Refresh(context.Background())
	}()
	<-source.entered

	// Second call while the first is in flight: no new fetch, snapshot only.
	st := fetcher.Refresh(context.Background())
	assert.EqualValues(t, 1, source.calls.Load())
	assert.Empty(t, st.Records)

	close(source.release)
	st = <-done
	assert.Len(t, st.Records, 1)
}

func TestFetcher_RunRefreshesOnTick(t *testing.T) {
	source := &stubSource{fetch: func(ctx context.Context, call int64) ([]models.DisasterRecord, error) {
		return []models.DisasterRecord{{ID: "1"}}, nil
	}}
	clock := clockwork.NewFakeClock()
	fetcher := newTestFetcher(source, clock)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		fetcher.Run(ctx)
		close(stopped)
	}()

	// Initial refresh, then one per interval.
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	require.Eventually(t, func() bool { return source.calls.Load() == 1 },
		time.Second, 5*time.Millisecond)

	clock.Advance(5 * time.Minute)
	require.Eventually(t, func() bool { return source.calls.Load() == 2 },
		time.Second, 5*time.Millisecond)

	cancel()
	<-stopped
}

func TestFetcher_StateReturnsCopy(t *testing.T) {
	source := &stubSource{fetch: func(ctx context.Context, call int64) ([]models.DisasterRecord, error) {
		return []models.DisasterRecord{{ID: "1", Name: "Quake"}}, nil
	}}
	fetcher := newTestFetcher(source, clockwork.NewFakeClock())
	fetcher.Refresh(context.Background())

	st := fetcher.State()
	st.Records[0].Name = "mutated"

	assert.Equal(t, "Quake", fetcher.State().Records[0].Name)
}

func TestBroadcaster_PublishSubscribe(t *testing.T) {
	bc := NewBroadcaster()
	id, ch := bc.Subscribe()
	defer bc.Unsubscribe(id)

	records := []models.DisasterRecord{{ID: "1"}}
	bc.Publish(records)

	select {
	case got := <-ch:
		assert.Equal(t, records, got)
	case <-time.After(time.Second):
		t.Fatal("no snapshot received")
	}
}

func TestBroadcaster_SlowSubscriberSkipped(t *testing.T) {
	bc := NewBroadcaster()
	id, ch := bc.Subscribe()
	defer bc.Unsubscribe(id)

	bc.Publish([]models.DisasterRecord{{ID: "1"}})
	bc.Publish([]models.DisasterRecord{{ID: "2"}}) // dropped, buffer full

	got := <-ch
	assert.Equal(t, "1", got[0].ID)
	select {
	case <-ch:
		t.Fatal("second publish should have been dropped")
	default:
	}
}

func TestBroadcaster_Close(t *testing.T) {
	bc := NewBroadcaster()
	_, ch := bc.Subscribe()
	bc.Close()

	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, bc.SubscriberCount())
}
