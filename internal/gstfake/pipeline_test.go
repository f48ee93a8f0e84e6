package gstfake

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technicianted/gsttransformer/internal/pipeline"
)

type callbackCounter struct {
	mu          sync.Mutex
	needData    int
	enoughData  int
	samples     int
	eos         int
	terminated  []bool
	terminateCh chan struct{}
}

func newCallbackCounter() *callbackCounter {
	return &callbackCounter{terminateCh: make(chan struct{}, 1)}
}

func (c *callbackCounter) attach(p pipeline.Pipeline) {
	p.OnNeedData(func() { c.mu.Lock(); c.needData++; c.mu.Unlock() })
	p.OnEnoughData(func() { c.mu.Lock(); c.enoughData++; c.mu.Unlock() })
	p.OnSampleAvailable(func() { c.mu.Lock(); c.samples++; c.mu.Unlock() })
	p.OnEOS(func() { c.mu.Lock(); c.eos++; c.mu.Unlock() })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	var deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestPipelinePassthroughEchoesSamples(t *testing.T) {
	var params = pipeline.DefaultParameters()
	params.Rate = -1 // passthrough: no real-time pacing, deterministic test.

	var p, err = New("req-1", "identity", params)
	require.NoError(t, err)

	var counter = newCallbackCounter()
	counter.attach(p)

	var termCh = make(chan pipeline.Termination, 1)
	p.Start(func(force bool) {
		if force {
			termCh <- p.Termination()
		}
	})

	var n, addErr = p.AddData([]byte("hello"))
	require.NoError(t, addErr)
	assert.Equal(t, 5, n)

	waitFor(t, func() bool {
		counter.mu.Lock()
		defer counter.mu.Unlock()
		return counter.samples > 0
	})

	var samples = p.PullSample(10)
	require.Len(t, samples, 1)
	assert.Equal(t, "hello", string(samples[0]))

	p.EndData()
	waitFor(t, func() bool {
		counter.mu.Lock()
		defer counter.mu.Unlock()
		return counter.eos > 0
	})
	assert.Equal(t, pipeline.TerminationEndOfStream, p.Termination().Reason)
}

func TestPipelineBackpressureSignalsEnoughDataAtHighWatermark(t *testing.T) {
	var params = pipeline.DefaultParameters()
	params.Rate = -1
	params.InputBufferMaxBytes = 8

	var p, err = New("req-2", "identity", params)
	require.NoError(t, err)

	var counter = newCallbackCounter()
	counter.attach(p)
	p.Start(func(bool) {})

	_, _ = p.AddData(make([]byte, 16))

	waitFor(t, func() bool {
		counter.mu.Lock()
		defer counter.mu.Unlock()
		return counter.enoughData > 0
	})
}

func TestPipelineRateExceededErrorPolicyForcesTermination(t *testing.T) {
	var params = pipeline.DefaultParameters()
	params.Rate = 1
	params.RateEnforcement = pipeline.RateEnforcementError
	params.InputBufferMaxBytes = 8

	var p, err = New("req-3", "identity", params)
	require.NoError(t, err)

	var termCh = make(chan pipeline.Termination, 1)
	p.Start(func(force bool) {
		if force {
			termCh <- p.Termination()
		}
	})

	_, _ = p.AddData(make([]byte, 16))

	select {
	case term := <-termCh:
		assert.Equal(t, pipeline.TerminationRateExceeded, term.Reason)
	case <-time.After(2 * time.Second):
		t.Fatal("expected forced termination for rate exceeded")
	}
}

func TestPipelineStopReportsCancelled(t *testing.T) {
	var p, err = New("req-4", "identity", pipeline.DefaultParameters())
	require.NoError(t, err)

	var termCh = make(chan pipeline.Termination, 1)
	p.Start(func(force bool) {
		if force {
			termCh <- p.Termination()
		}
	})

	p.Stop()

	select {
	case term := <-termCh:
		assert.Equal(t, pipeline.TerminationCancelled, term.Reason)
	case <-time.After(2 * time.Second):
		t.Fatal("expected forced termination on Stop")
	}
}

func TestPipelineReadTimeoutForcesTermination(t *testing.T) {
	var params = pipeline.DefaultParameters()
	params.Rate = -1
	params.ReadTimeoutMs = 50

	var p, err = New("req-5", "identity", params)
	require.NoError(t, err)

	var termCh = make(chan pipeline.Termination, 1)
	p.Start(func(force bool) {
		if force {
			termCh <- p.Termination()
		}
	})

	select {
	case term := <-termCh:
		assert.Equal(t, pipeline.TerminationReadTimeout, term.Reason)
	case <-time.After(2 * time.Second):
		t.Fatal("expected read timeout termination")
	}
}
