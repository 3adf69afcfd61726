package cli

import (
	"bytes"
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer provides thread-safe access to a bytes.Buffer.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (s *syncBuffer) Write(p []byte) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// fakeSignals lets a test deliver signals to the handler.
func fakeSignals(h *InterruptHandler) chan<- os.Signal {
	deliver := make(chan os.Signal, 4)
	h.notify = func(c chan<- os.Signal) {
		go func() {
			for s := range deliver {
				c <- s
			}
		}()
	}
	h.stop = func(chan<- os.Signal) {}
	return deliver
}

func TestNewInterruptHandler_DefaultsWriter(t *testing.T) {
	handler := NewInterruptHandler(nil, "bye")
	assert.NotNil(t, handler.writer)
	assert.False(t, handler.WasInterrupted())
}

func TestHandleInterrupts_SignalCancelsContext(t *testing.T) {
	output := &syncBuffer{}
	handler := NewInterruptHandler(output, "Reconciliation interrupted")
	signals := fakeSignals(handler)
	defer close(signals)

	ctx, release := handler.HandleInterrupts(context.Background())
	defer release()

	select {
	case <-ctx.Done():
		t.Fatal("context should not be canceled before a signal")
	default:
	}

	signals <- os.Interrupt
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not canceled by the signal")
	}

	require.Eventually(t, handler.WasInterrupted, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, strings.Count(output.String(), "Reconciliation interrupted"))
}

func TestHandleInterrupts_ReleaseWithoutSignal(t *testing.T) {
	output := &syncBuffer{}
	handler := NewInterruptHandler(output, "stopped")
	signals := fakeSignals(handler)
	defer close(signals)

	ctx, release := handler.HandleInterrupts(context.Background())
	release()

	<-ctx.Done()
	assert.False(t, handler.WasInterrupted())
	assert.Empty(t, output.String())
}
