package linepipe

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFOOrder(t *testing.T) {
	p := New()
	lines := []string{"a", "b", "c", "d"}
	for _, l := range lines {
		p.Push(l)
	}

	for _, want := range lines {
		got := p.Read(time.Second)
		assert.Equal(t, want, got)
	}
}

func TestCloseWakesBlockedReader(t *testing.T) {
	p := New()

	done := make(chan string, 1)
	go func() {
		done <- p.Read(5 * time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	start := time.Now()
	p.Close()

	select {
	case got := <-done:
		assert.Equal(t, Closed, got)
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("read did not wake up after close")
	}
}

func TestTimeoutFloor(t *testing.T) {
	p := New()

	start := time.Now()
	got := p.Read(50 * time.Millisecond)
	elapsed := time.Since(start)

	assert.Equal(t, "", got)
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
}

func TestBufferedThenClosed(t *testing.T) {
	p := New()
	p.Push("leftover")
	p.Close()

	require.Equal(t, "leftover", p.Read(time.Second))
	require.Equal(t, Closed, p.Read(time.Second))
}

func TestPushAfterCloseIsNoop(t *testing.T) {
	p := New()
	p.Close()
	p.Push("ignored")

	assert.Equal(t, Closed, p.Read(time.Second))
}

func TestPrintFormats(t *testing.T) {
	p := New()
	p.Print("bestmove %v", "e2e4")

	assert.Equal(t, "bestmove e2e4", p.Read(time.Second))
}

func TestConcurrentProducers(t *testing.T) {
	p := New()

	var wg sync.WaitGroup
	const n = 50
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			p.Push("x")
		}()
	}
	wg.Wait()

	count := 0
	for p.Read(10*time.Millisecond) == "x" {
		count++
	}
	assert.Equal(t, n, count)
}

func TestIsClosed(t *testing.T) {
	p := New()
	assert.False(t, p.IsClosed())
	p.Close()
	assert.True(t, p.IsClosed())
	p.Close() // idempotent
	assert.True(t, p.IsClosed())
}
