// Package gstfake provides an in-process stand-in for the external media
// framework's appsrc → elements → appsink graph, treating the real
// framework as an opaque external collaborator. It implements the
// pipeline.Pipeline contract closely enough to drive every behavior
// internal/engine depends on: non-blocking, signal-driven backpressure
// (needData/enoughData), per-sample callbacks, a simulated media clock
// for duration limits and rate enforcement, and a read-timeout watchdog.
//
// It performs no real transcoding. Every "pipeline spec" is treated as
// an identity passthrough; transcoding heuristics are out of scope here.
// It exists to exercise internal/engine's state machine, and to back the
// server's built-in "identity" named pipeline.
package gstfake

import (
	"sync"
	"time"

	"github.com/technicianted/gsttransformer/internal/pipeline"
)

// bytesPerSecond is the notional media bitrate used to translate queued
// bytes into a simulated stream-clock duration. Its value is arbitrary:
// what matters for the engine's invariants is that it is consistent
// between the duration-limit check and the real-time pacing below.
const bytesPerSecond = 16000

// defaultInputBufferMaxBytes is used when Parameters.InputBufferMaxBytes
// is 0, standing in for "0 = framework default".
const defaultInputBufferMaxBytes = 64 * 1024

// Pipeline implements pipeline.Pipeline.
type Pipeline struct {
	params pipeline.Parameters

	mu            sync.Mutex
	pending       [][]byte // buffered by AddData, not yet turned into samples
	available     [][]byte // turned into samples by run(), awaiting PullSample
	queuedBytes   int
	eosRequested  bool
	draining      bool
	stopped       bool
	terminated    bool
	term          pipeline.Termination
	stats         pipeline.Stats
	lastAddDataAt time.Time

	highWatermark int
	lowWatermark  int
	aboveHigh     bool

	onSampleAvailable func()
	onNeedData        func()
	onEnoughData      func()
	onEOS             func()
	onTerminated      func(force bool)

	wake     chan struct{}
	quit     chan struct{}
	readyQuit sync.Once
}

// New constructs a Pipeline bound to params. spec is accepted for
// interface symmetry with a real launch-syntax parser but is not
// otherwise interpreted.
func New(requestID string, spec string, params pipeline.Parameters) (pipeline.Pipeline, error) {
	var high = int(params.InputBufferMaxBytes)
	if high <= 0 {
		high = defaultInputBufferMaxBytes
	}
	return &Pipeline{
		params:        params,
		highWatermark: high,
		lowWatermark:  high / 2,
		wake:          make(chan struct{}, 1),
		quit:          make(chan struct{}),
	}, nil
}

func (p *Pipeline) OnSampleAvailable(fn func()) { p.onSampleAvailable = fn }
func (p *Pipeline) OnNeedData(fn func())        { p.onNeedData = fn }
func (p *Pipeline) OnEnoughData(fn func())      { p.onEnoughData = fn }
func (p *Pipeline) OnEOS(fn func())             { p.onEOS = fn }

// Start begins the background consumer goroutine that stands in for the
// framework's own thread(s) driving appsrc/appsink and the bus.
func (p *Pipeline) Start(onTerminated func(force bool)) {
	p.onTerminated = onTerminated
	p.mu.Lock()
	p.lastAddDataAt = time.Now()
	p.mu.Unlock()
	go p.run()
	if p.params.ReadTimeoutMs > 0 {
		go p.watchReadTimeout()
	}
	// Announce we're ready for input immediately: the fake's queue starts
	// empty, well below any watermark.
	if p.onNeedData != nil {
		p.onNeedData()
	}
}

func (p *Pipeline) AddData(buf []byte) (int, error) {
	p.mu.Lock()
	if p.stopped || p.terminated {
		p.mu.Unlock()
		return -1, nil // EOS/FLUSHING races are normal once draining has begun.
	}
	var cp = make([]byte, len(buf))
	copy(cp, buf)
	p.pending = append(p.pending, cp)
	p.queuedBytes += len(cp)
	p.stats.ProcessedInputBytes += uint64(len(cp))
	p.lastAddDataAt = time.Now()
	var crossedHigh = !p.aboveHigh && p.queuedBytes >= p.highWatermark
	if crossedHigh {
		p.aboveHigh = true
	}
	p.mu.Unlock()

	p.nudge()

	if crossedHigh {
		p.signalEnoughData()
	}
	return len(buf), nil
}

// signalEnoughData implements a pipeline-internal policy: ERROR-mode
// rate enforcement terminates the call outright rather than merely
// back-pressuring it.
func (p *Pipeline) signalEnoughData() {
	if p.params.RateEnforcement == pipeline.RateEnforcementError && p.params.Rate > 0 {
		p.terminate(pipeline.TerminationRateExceeded, "rate exceeded: enforcement policy is ERROR", true)
		return
	}
	if p.onEnoughData != nil {
		p.onEnoughData()
	}
}

func (p *Pipeline) EndData() {
	p.mu.Lock()
	if p.eosRequested {
		p.mu.Unlock()
		return
	}
	p.eosRequested = true
	p.mu.Unlock()
	p.nudge()
}

func (p *Pipeline) PullSample(count int) [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if count <= 0 || len(p.available) == 0 {
		return nil
	}
	if count > len(p.available) {
		count = len(p.available)
	}
	var out = p.available[:count]
	p.available = p.available[count:]
	for _, s := range out {
		p.stats.ProcessedOutputBytes += uint64(len(s))
	}
	return out
}

func (p *Pipeline) Stop() {
	p.terminate(pipeline.TerminationCancelled, "call cancelled", true)
}

func (p *Pipeline) Termination() pipeline.Termination {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.term
}

func (p *Pipeline) Stats() pipeline.Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	var s = p.stats
	return s
}

func (p *Pipeline) nudge() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// terminate records why the pipeline is stopping: the first reason
// recorded wins, and onTerminated fires exactly once.
func (p *Pipeline) terminate(reason pipeline.TerminationReason, message string, force bool) {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return
	}
	if p.term.Reason == pipeline.TerminationNone {
		p.term = pipeline.Termination{Reason: reason, Message: message}
	}
	p.terminated = true
	if force {
		p.stopped = true
	} else {
		p.draining = true
	}
	p.mu.Unlock()

	p.nudge()
	if force {
		p.readyQuit.Do(func() { close(p.quit) })
		if p.onTerminated != nil {
			p.onTerminated(true)
		}
	}
	// Graceful terminations surface through onEOS once the simulated
	// graph drains (see run()); onTerminated still fires there with
	// force=false so the engine's safety-net summary jump can run.
}

func (p *Pipeline) watchReadTimeout() {
	// 500ms suffices for realistic timeouts, but a timeout shorter than
	// that would never be observed in time; check at least twice per
	// configured timeout.
	var interval = 500 * time.Millisecond
	if half := time.Duration(p.params.ReadTimeoutMs) * time.Millisecond / 2; half > 0 && half < interval {
		interval = half
	}
	var t = time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			p.mu.Lock()
			var last = p.lastAddDataAt
			var dead = p.terminated
			p.mu.Unlock()
			if dead {
				return
			}
			if last.IsZero() {
				continue
			}
			if time.Since(last) > time.Duration(p.params.ReadTimeoutMs)*time.Millisecond {
				p.terminate(pipeline.TerminationReadTimeout, "no input received within read timeout", true)
				return
			}
		case <-p.quit:
			return
		}
	}
}

// run stands in for the framework's own appsink/bus thread: it drains
// queued buffers as samples, paces itself against the simulated media
// clock when a real-time Rate is set, and watches the duration limit.
func (p *Pipeline) run() {
	for {
		p.mu.Lock()
		if p.stopped {
			p.mu.Unlock()
			return
		}
		if len(p.pending) == 0 {
			if p.draining || p.eosRequested {
				if p.eosRequested && !p.draining && p.term.Reason == pipeline.TerminationNone {
					p.term = pipeline.Termination{Reason: pipeline.TerminationEndOfStream}
				}
				p.terminated = true
				p.stopped = true
				p.mu.Unlock()
				if p.onEOS != nil {
					p.onEOS()
				}
				if p.onTerminated != nil {
					p.onTerminated(false)
				}
				return
			}
			p.mu.Unlock()
			select {
			case <-p.wake:
				continue
			case <-p.quit:
				return
			}
		}

		var sample = p.pending[0]
		p.pending = p.pending[1:]
		var crossedLow = p.aboveHigh && p.queuedBytes-len(sample) <= p.lowWatermark
		p.queuedBytes -= len(sample)
		if crossedLow {
			p.aboveHigh = false
		}
		var lengthLimit = time.Duration(p.params.LengthLimitMs) * time.Millisecond
		p.stats.ProcessedStreamTime += sampleDuration(len(sample))
		var exceeded = lengthLimit > 0 && p.stats.ProcessedStreamTime >= lengthLimit
		p.available = append(p.available, sample)
		p.mu.Unlock()

		if p.params.Rate > 0 && !p.params.Passthrough() {
			time.Sleep(sampleDuration(len(sample)) / time.Duration(p.params.Rate))
		}

		if p.onSampleAvailable != nil {
			p.onSampleAvailable()
		}

		if crossedLow && p.onNeedData != nil {
			p.onNeedData()
		}
		if exceeded {
			p.terminate(pipeline.TerminationAllowedDurationExceeded, "allowed duration exceeded", false)
		}
	}
}

func sampleDuration(byteLen int) time.Duration {
	return time.Duration(float64(byteLen) / float64(bytesPerSecond) * float64(time.Second))
}
