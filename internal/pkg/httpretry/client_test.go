package httpretry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedSleeps struct {
	delays []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func TestRetryClient_SucceedsAfterTransientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"q":1}`, string(body))
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	rec := &recordedSleeps{}
	rc := NewRetryClient(srv.Client(), 3, WithSleep(rec.sleep))

	req, err := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader(`{"q":1}`))
	require.NoError(t, err)

	resp, err := rc.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
}

func TestRetryClient_ReturnsLastResponseAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	rc := NewRetryClient(srv.Client(), 3, WithSleep((&recordedSleeps{}).sleep))
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	resp, err := rc.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRetryClient_NoRetryOnClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	rc := NewRetryClient(srv.Client(), 3, WithSleep((&recordedSleeps{}).sleep))
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	resp, err := rc.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

type failingDoer struct{ calls int }

func (f *failingDoer) Do(*http.Request) (*http.Response, error) {
	f.calls++
	return nil, errors.New("connection refused")
}

func TestRetryClient_NetworkErrorsExhaustAttempts(t *testing.T) {
	doer := &failingDoer{}
	rc := NewRetryClient(doer, 3, WithSleep((&recordedSleeps{}).sleep))
	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid", nil)

	_, err := rc.Do(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 3, doer.calls)
}

func TestRetryClient_Run(t *testing.T) {
	t.Run("stops at first success", func(t *testing.T) {
		rec := &recordedSleeps{}
		rc := NewRetryClient(nil, 3, WithSleep(rec.sleep))
		calls := 0
		err := rc.Run(context.Background(), func(context.Context) error {
			calls++
			if calls < 2 {
				return errors.New("empty answer")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.Equal(t, []time.Duration{time.Second}, rec.delays)
	})

	t.Run("returns last error", func(t *testing.T) {
		rec := &recordedSleeps{}
		rc := NewRetryClient(nil, 3, WithSleep(rec.sleep))
		calls := 0
		err := rc.Run(context.Background(), func(context.Context) error {
			calls++
			return fmt.Errorf("attempt %d", calls)
		})
		assert.EqualError(t, err, "attempt 3")
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
	})

	t.Run("cancelled context stops", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		rc := NewRetryClient(nil, 3, WithSleep((&recordedSleeps{}).sleep))
		calls := 0
		err := rc.Run(ctx, func(context.Context) error {
			calls++
			cancel()
			return errors.New("boom")
		})
		assert.EqualError(t, err, "boom")
		assert.Equal(t, 1, calls)
	})
}

func TestDelay(t *testing.T) {
	rc := NewRetryClient(nil, 3)
	assert.Equal(t, time.Second, rc.Delay(1))
	assert.Equal(t, 2*time.Second, rc.Delay(2))
	assert.Equal(t, 4*time.Second, rc.Delay(3))
	assert.Equal(t, 30*time.Second, rc.Delay(10))
}
