package cmd

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLinesClosesChannelOnEOF(t *testing.T) {
	lines := make(chan string)
	go readLines(context.Background(), strings.NewReader("ls peers\nls chain\n"), lines)

	assert.Equal(t, "ls peers", <-lines)
	assert.Equal(t, "ls chain", <-lines)

	_, ok := <-lines
	assert.False(t, ok)
}

func TestReadLinesStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lines := make(chan string)
	done := make(chan struct{})

	go func() {
		readLines(ctx, strings.NewReader("first\nsecond\n"), lines)
		close(done)
	}()

	// Drain one line, then stop reading. With nobody draining "second", the
	// reader must bail out on cancellation rather than block on the send.
	require.Equal(t, "first", <-lines)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reader still blocked after cancellation")
	}
}
