package sms

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptGateway — отдаёт ошибки по сценарию, затем успех.
type scriptGateway struct {
	errs  []error
	calls int
}

func (g *scriptGateway) Name() string { return "script" }

func (g *scriptGateway) Send(_ context.Context, _, _ string) (string, error) {
	g.calls++
	if g.calls <= len(g.errs) {
		return "", g.errs[g.calls-1]
	}
	return "msg-1", nil
}

func newTestSender(gw Gateway) *Sender {
	s := NewSender(gw)
	s.Backoff = time.Millisecond
	return s
}

func TestSender_SuccessFirstTry(t *testing.T) {
	gw := &scriptGateway{}
	id, err := newTestSender(gw).Send(context.Background(), "77001234567", "test")
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, 1, gw.calls)
}

func TestSender_RetriesTimeouts(t *testing.T) {
	gw := &scriptGateway{errs: []error{ErrTimeout, ErrTimeout}}
	id, err := newTestSender(gw).Send(context.Background(), "77001234567", "test")
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, 3, gw.calls)
}

func TestSender_ExhaustsAttempts(t *testing.T) {
	gw := &scriptGateway{errs: []error{ErrTimeout, ErrTimeout, ErrTimeout, ErrTimeout}}
	_, err := newTestSender(gw).Send(context.Background(), "77001234567", "test")
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 3, gw.calls, "ровно Attempts попыток")
}

func TestSender_AuthErrorNotRetried(t *testing.T) {
	gw := &scriptGateway{errs: []error{ErrAuth, ErrAuth}}
	_, err := newTestSender(gw).Send(context.Background(), "77001234567", "test")
	require.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, 1, gw.calls)
}

func TestSender_ProviderRejectionNotRetried(t *testing.T) {
	rejected := &ProviderError{Provider: "script", Code: 7, Message: "invalid number"}
	gw := &scriptGateway{errs: []error{rejected, rejected}}
	_, err := newTestSender(gw).Send(context.Background(), "77001234567", "test")
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 7, pe.Code)
	assert.Equal(t, 1, gw.calls)
}

func TestSender_HonorsCancellation(t *testing.T) {
	gw := &scriptGateway{errs: []error{ErrTimeout, ErrTimeout, ErrTimeout}}
	s := newTestSender(gw)
	s.Backoff = time.Minute // отмена должна сработать в паузе между попытками

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := s.Send(ctx, "77001234567", "test")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, gw.calls)
}

func TestSender_Defaults(t *testing.T) {
	s := NewSender(DryRunGateway{})
	assert.Equal(t, 3, s.Attempts)
	assert.Equal(t, 15*time.Second, s.PerTryTimeout)
}
