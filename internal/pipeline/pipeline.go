package pipeline

import "time"

// Termination records why a Pipeline stopped and carries the message the
// engine forwards into TransformCompleted.
type Termination struct {
	Reason  TerminationReason
	Message string
}

// TerminationReason exhaustively enumerates why a Pipeline stopped.
// STREAM_START_TIMEOUT and FORMAT_NOT_DETECTED are defined for wire
// compatibility but no code path here raises them: both depend on
// format detection and stream-start timing inside a real media
// framework, which internal/gstfake does not model.
type TerminationReason int

const (
	TerminationNone TerminationReason = iota
	TerminationInternalError
	TerminationEndOfStream
	TerminationFormatNotDetected
	TerminationAllowedDurationExceeded
	TerminationRateExceeded
	TerminationReadTimeout
	TerminationStreamStartTimeout
	TerminationCancelled
)

var terminationReasonNames = [...]string{
	"NONE",
	"INTERNAL_ERROR",
	"END_OF_STREAM",
	"FORMAT_NOT_DETECTED",
	"ALLOWED_DURATION_EXCEEDED",
	"RATE_EXCEEDED",
	"READ_TIMEOUT",
	"STREAM_START_TIMEOUT",
	"CANCELLED",
}

func (r TerminationReason) String() string {
	if int(r) < len(terminationReasonNames) {
		return terminationReasonNames[r]
	}
	return "UNKNOWN"
}

// Stats holds the byte and time counters a Pipeline accumulates over its
// lifetime, reported verbatim in the call's TransformCompleted summary.
//
// ProcessedInputBytes intentionally over-counts: it reflects bytes handed
// to the source's addData, not bytes actually consumed out of the
// source's internal queue by the graph. Treated as a documented
// approximation rather than a bug; this implementation preserves that
// behavior rather than tightening it.
type Stats struct {
	ProcessedInputBytes  uint64
	ProcessedOutputBytes uint64
	ProcessedStreamTime  time.Duration
}

// Pipeline abstracts a single media graph instance. A
// Pipeline is consumed by exactly one call: Start is called once, and
// once a Pipeline reaches a terminal state via its onTerminated callback
// it must not be reused.
//
// Implementations must treat addData/EndData/PullSample as callable only
// from the engine's EventLoop goroutine. Registered callbacks may be
// invoked from any goroutine, including synchronously from within Start,
// AddData or Stop; the callbacks internal/engine registers only post onto
// its EventLoop and return, per the concurrency contract documented in
// internal/engine's package doc.
type Pipeline interface {
	// Start transitions the pipeline into its running state. onTerminated
	// is invoked exactly once, when the pipeline reaches a terminal state,
	// with force=true iff the transition was an immediate teardown rather
	// than a graceful drain.
	Start(onTerminated func(force bool))

	// AddData pushes buf into the pipeline's source. It returns
	// len(buf) on success, or -1 on a framework flow error (EOS/FLUSHING
	// races are folded into a nil error rather than surfaced).
	AddData(buf []byte) (int, error)

	// EndData signals the end of client input. Idempotent.
	EndData()

	// PullSample drains up to count pending samples.
	PullSample(count int) [][]byte

	// Stop forces an immediate teardown, setting TerminationCancelled if
	// no other reason has already been recorded.
	Stop()

	// Termination returns the pipeline's stop reason and message. It is
	// only meaningful after onTerminated has fired.
	Termination() Termination

	// Stats returns the pipeline's accumulated counters.
	Stats() Stats

	// OnSampleAvailable registers fn to be invoked once per sample that
	// becomes pullable. OnNeedData/OnEnoughData mirror the source's
	// backpressure edges. OnEOS fires when the graph observes end of
	// stream. These are registered before Start and may fire from Start
	// onwards, possibly concurrently with one another.
	OnSampleAvailable(fn func())
	OnNeedData(fn func())
	OnEnoughData(fn func())
	OnEOS(fn func())
}
