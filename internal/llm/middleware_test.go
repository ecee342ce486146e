package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	calls  atomic.Int32
	fn     func(ctx context.Context, n int32) (string, error)
	closed bool
}

func (s *stubClient) Complete(ctx context.Context, _ Request) (string, error) {
	return s.fn(ctx, s.calls.Add(1))
}

func (s *stubClient) Close() error {
	s.closed = true
	return nil
}

func TestNewClient_NoCredential(t *testing.T) {
	for _, p := range []Provider{ProviderOpenAI, ProviderGemini, ProviderAnthropic} {
		cfg, err := DefaultConfigFor(p)
		require.NoError(t, err)

		client, err := NewClient(context.Background(), cfg, "")
		require.NoError(t, err, p)

		_, err = client.Complete(context.Background(), Request{Prompt: "hi"})
		assert.ErrorIs(t, err, ErrNoCredential, p)
		assert.NoError(t, client.Close())
	}
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(context.Background(), &Config{Provider: "llama"}, "key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown llm provider")
}

func TestWithTimeout(t *testing.T) {
	slow := &stubClient{fn: func(ctx context.Context, _ int32) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}

	_, err := WithTimeout(slow, 20*time.Millisecond).Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrTimeout)

	t.Run("caller cancellation is not a timeout", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := WithTimeout(slow, time.Minute).Complete(ctx, Request{})
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrTimeout)
	})

	t.Run("fast call passes through", func(t *testing.T) {
		fast := &stubClient{fn: func(context.Context, int32) (string, error) { return "ok", nil }}
		client := WithTimeout(fast, time.Second)
		text, err := client.Complete(context.Background(), Request{})
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
		require.NoError(t, client.Close())
		assert.True(t, fast.closed)
	})
}

func TestWithRetry(t *testing.T) {
	t.Run("retries transient failures", func(t *testing.T) {
		stub := &stubClient{fn: func(_ context.Context, n int32) (string, error) {
			if n < 3 {
				return "", &ProviderError{Provider: ProviderOpenAI, StatusCode: 503, Cause: errors.New("unavailable")}
			}
			return "done", nil
		}}

		text, err := WithRetry(stub, 3, time.Millisecond).Complete(context.Background(), Request{})
		require.NoError(t, err)
		assert.Equal(t, "done", text)
		assert.Equal(t, int32(3), stub.calls.Load())
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		stub := &stubClient{fn: func(context.Context, int32) (string, error) {
			return "", &ProviderError{Provider: ProviderOpenAI, StatusCode: 429, Cause: errors.New("slow down")}
		}}

		_, err := WithRetry(stub, 2, time.Millisecond).Complete(context.Background(), Request{})
		var perr *ProviderError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, 429, perr.StatusCode)
		assert.Equal(t, int32(3), stub.calls.Load())
	})

	t.Run("does not retry permanent failures", func(t *testing.T) {
		stub := &stubClient{fn: func(context.Context, int32) (string, error) {
			return "", &ProviderError{Provider: ProviderOpenAI, StatusCode: 401, Cause: errors.New("bad key")}
		}}

		_, err := WithRetry(stub, 5, time.Millisecond).Complete(context.Background(), Request{})
		require.Error(t, err)
		assert.Equal(t, int32(1), stub.calls.Load())
	})

	t.Run("does not retry missing credentials", func(t *testing.T) {
		stub := &stubClient{fn: func(context.Context, int32) (string, error) { return "", ErrNoCredential }}

		_, err := WithRetry(stub, 5, time.Millisecond).Complete(context.Background(), Request{})
		assert.ErrorIs(t, err, ErrNoCredential)
		assert.Equal(t, int32(1), stub.calls.Load())
	})

	t.Run("retries timeouts", func(t *testing.T) {
		stub := &stubClient{fn: func(_ context.Context, n int32) (string, error) {
			if n == 1 {
				return "", ErrTimeout
			}
			return "second try", nil
		}}

		text, err := WithRetry(stub, 1, time.Millisecond).Complete(context.Background(), Request{})
		require.NoError(t, err)
		assert.Equal(t, "second try", text)
	})
}

func TestProviderError(t *testing.T) {
	cause := errors.New("boom")
	err := &ProviderError{Provider: ProviderAnthropic, StatusCode: 500, Cause: cause}

	assert.Equal(t, "anthropic request failed with status 500: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, err.Transient())
	assert.False(t, (&ProviderError{StatusCode: 400}).Transient())
	assert.True(t, (&ProviderError{}).Transient())
	assert.Equal(t, "gemini request failed: boom", (&ProviderError{Provider: ProviderGemini, Cause: cause}).Error())
}
