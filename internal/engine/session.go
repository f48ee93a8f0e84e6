package engine

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/technicianted/gsttransformer/internal/config"
	"github.com/technicianted/gsttransformer/internal/pipeline"
	"github.com/technicianted/gsttransformer/internal/transformpb"
)

// requestIDHeader is the incoming metadata key carrying the caller's
// correlation id.
const requestIDHeader = "x-requestid"

// transformStream is the narrow slice of Transform_TransformServer that
// CallSession depends on. Keeping it narrow (rather than depending on
// transformpb.Transform_TransformServer, which embeds grpc.ServerStream)
// lets tests exercise CallSession against an in-process fake with no
// network or grpc.Server involved.
type transformStream interface {
	Send(*transformpb.TransformResponse) error
	Recv() (*transformpb.TransformRequest, error)
	Context() context.Context
}

// writeState is CallSession's monotonically non-decreasing output-side
// state.
type writeState int

const (
	writeIdle writeState = iota
	writeSamples
	writeRemainder
	writeSummary
	writeFinished
)

func (s writeState) String() string {
	switch s {
	case writeIdle:
		return "Idle"
	case writeSamples:
		return "Samples"
	case writeRemainder:
		return "Remainder"
	case writeSummary:
		return "Summary"
	case writeFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// CallSession is the per-RPC state machine driving a single Transform
// call: it threads config negotiation, pipeline lifecycle, and the
// read/write pump together. Every field below is only ever touched while
// running on loop. See the engine package doc for the concurrency
// contract, and go.gazette.dev/core/broker's appendFSM for the dispatch
// style this is grounded on.
type CallSession struct {
	loop   *EventLoop
	stream transformStream
	log    *logrus.Entry

	policy  *config.ServicePolicy
	factory *pipeline.Factory

	requestID string
	cfg       pipeline.Config
	pipe      pipeline.Pipeline

	writeReady      bool
	readReady       bool
	samplesAvailable int
	bufferedOutput   [][]byte
	bufferedBytes    int
	pipelineError    bool
	terminating      bool
	failed           bool
	eos              bool
	writeState       writeState
	pendingWriteCb   func()
	termination      pipeline.Termination

	stopping    <-chan struct{}
	sessionDone chan struct{}
	done        chan error
}

// NewCallSession constructs a session bound to stream, running its state
// machine on loop. stopping is closed once the server begins graceful
// shutdown, so an idle in-flight call can be torn down rather than
// blocking shutdown indefinitely; it may be nil. Run must be called
// exactly once.
func NewCallSession(loop *EventLoop, stream transformStream, log *logrus.Entry, policy *config.ServicePolicy, factory *pipeline.Factory, stopping <-chan struct{}) *CallSession {
	return &CallSession{
		loop:        loop,
		stream:      stream,
		log:         log,
		policy:      policy,
		factory:     factory,
		stopping:    stopping,
		sessionDone: make(chan struct{}),
		done:        make(chan error, 1),
	}
}

// Run drives the call to completion and blocks until it finishes,
// returning the status grpc should report to the client. Once a pipeline
// is successfully built, pipeline terminations are reported in-band via
// TransformCompleted and the returned error is nil, with two exceptions:
// a mid-stream protocol violation returns FAILED_PRECONDITION (see fail),
// and a failed Send returns that write error.
func (s *CallSession) Run() error {
	defer close(s.sessionDone)

	var id, ok = requestIDFromContext(s.stream.Context())
	if !ok {
		return status.Error(codes.FailedPrecondition, "missing required "+requestIDHeader+" metadata")
	}
	s.requestID = id
	s.log = s.log.WithField("request_id", id)

	var req, err = s.stream.Recv()
	if err != nil {
		return status.Errorf(codes.FailedPrecondition, "reading config message: %v", err)
	}
	if !req.HasConfig() {
		return status.Error(codes.FailedPrecondition, "first message must carry config")
	}

	s.cfg, err = pipeline.Validate(req.Config, s.policy)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	s.log.WithField("parameters", s.cfg.Parameters.String()).Info("transform call configured")

	s.pipe, err = s.factory.Build(s.requestID, s.cfg)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	go s.watchStopping()
	s.loop.Post(s.wireAndStart)

	return <-s.done
}

// watchStopping reacts to server shutdown the same way a transport-level
// cancel is handled: it stops the pipeline so the call winds down instead
// of blocking Service.Stop forever. Exits once the call itself finishes.
func (s *CallSession) watchStopping() {
	select {
	case <-s.stopping:
		s.loop.Post(s.onStopping)
	case <-s.sessionDone:
	}
}

func (s *CallSession) onStopping() {
	s.loop.AssertOnLoop()
	if s.pipe != nil {
		s.pipe.Stop()
	}
}

// wireAndStart is Stage 2: attach the four graph callbacks and start the
// pipeline. Runs on loop.
func (s *CallSession) wireAndStart() {
	s.loop.AssertOnLoop()

	s.writeReady = true

	s.pipe.OnNeedData(func() {
		s.loop.Post(s.onNeedData)
	})
	s.pipe.OnEnoughData(func() {
		s.loop.Post(s.onEnoughData)
	})
	s.pipe.OnSampleAvailable(func() {
		s.loop.Post(s.onSampleAvailable)
	})
	s.pipe.OnEOS(func() {
		s.loop.Post(s.onEOS)
	})

	s.pipe.Start(func(force bool) {
		s.loop.Post(func() { s.onTerminated(force) })
	})

	// No initial Read here: pipeline.onNeedData fires first.
}

func (s *CallSession) onNeedData() {
	s.loop.AssertOnLoop()
	if !s.readReady {
		s.readReady = true
		s.issueRead()
	}
}

func (s *CallSession) onEnoughData() {
	s.loop.AssertOnLoop()
	s.readReady = false
}

func (s *CallSession) onSampleAvailable() {
	s.loop.AssertOnLoop()
	s.samplesAvailable++
	if s.writeReady {
		s.pullSample()
	}
}

func (s *CallSession) onEOS() {
	s.loop.AssertOnLoop()
	s.eos = true
	if s.writeReady {
		s.finalizeWrites()
	}
}

func (s *CallSession) onTerminated(force bool) {
	s.loop.AssertOnLoop()
	if s.failed || s.terminating {
		return
	}
	if force {
		s.terminating = true
	}
	s.termination = s.pipe.Termination()
	if s.writeState < writeSummary {
		if s.writeReady {
			s.summaryStep()
		} else {
			s.pendingWriteCb = s.summaryStep
		}
	}
}

// fail ends the call with err rather than an in-band TransformCompleted
// summary: it stops the pipeline and unblocks Run with err, and
// onTerminated's s.failed guard keeps the late, forced onTerminated
// callback that follows from producing a stray OK summary write.
func (s *CallSession) fail(err error) {
	s.loop.AssertOnLoop()
	if s.failed {
		return
	}
	s.failed = true
	select {
	case s.done <- err:
	default:
	}
	if s.pipe != nil {
		s.pipe.Stop()
	}
}

// issueRead starts a blocking Recv on its own goroutine and posts the
// result back onto loop, the same "post on completion" discipline every
// blocking RPC-transport call in this package follows.
func (s *CallSession) issueRead() {
	go func() {
		var req, err = s.stream.Recv()
		s.loop.Post(func() { s.onReadComplete(req, err) })
	}()
}

func (s *CallSession) onReadComplete(req *transformpb.TransformRequest, err error) {
	s.loop.AssertOnLoop()
	if err != nil {
		if err == io.EOF {
			// Client half-closed the send side: a graceful, expected end
			// of input.
			s.pipe.EndData()
			return
		}
		// Any other Recv error (context canceled, transport reset) is a
		// transport-level cancel, distinct from the graceful io.EOF case above.
		s.log.WithError(err).Info("stream read failed, treating as cancellation")
		s.pipe.Stop()
		return
	}
	if req.HasConfig() || !req.HasPayload() {
		s.log.Warn("received config or payloadless message mid-stream")
		s.fail(status.Error(codes.FailedPrecondition, "config or payloadless message mid-stream"))
		return
	}
	for _, chunk := range req.Payload.Data {
		var n, addErr = s.pipe.AddData(chunk)
		if addErr != nil || n < 0 {
			s.pipelineError = true
			break
		}
	}
	if !s.pipelineError && s.readReady {
		s.issueRead()
	}
}

// pullSample drains samplesAvailable into bufferedOutput, flushing as a
// Write once the configured output-buffer threshold is crossed.
func (s *CallSession) pullSample() {
	s.loop.AssertOnLoop()
	if s.samplesAvailable == 0 {
		return
	}
	var count = s.samplesAvailable
	s.samplesAvailable = 0
	for _, sample := range s.pipe.PullSample(count) {
		s.bufferedOutput = append(s.bufferedOutput, sample)
		s.bufferedBytes += len(sample)
	}
	if s.bufferedBytes > int(s.cfg.OutputBuffer) {
		s.flushSamples()
	}
}

func (s *CallSession) flushSamples() {
	var resp = &transformpb.TransformResponse{Payload: &transformpb.Payload{Data: s.bufferedOutput}}
	s.bufferedOutput = nil
	s.bufferedBytes = 0
	s.issueWrite(resp, writeSamples, nil)
}

// finalizeWrites flushes any buffered samples as the Remainder write
// (continuation summaryStep), or runs summaryStep inline when there is
// nothing left to flush.
func (s *CallSession) finalizeWrites() {
	s.loop.AssertOnLoop()
	if s.bufferedBytes > 0 {
		var resp = &transformpb.TransformResponse{Payload: &transformpb.Payload{Data: s.bufferedOutput}}
		s.bufferedOutput = nil
		s.bufferedBytes = 0
		s.issueWrite(resp, writeRemainder, s.summaryStep)
		return
	}
	s.summaryStep()
}

func (s *CallSession) summaryStep() {
	s.loop.AssertOnLoop()
	if s.writeState >= writeSummary {
		return
	}
	var stats = s.pipe.Stats()
	var term = s.termination
	if term.Reason == pipeline.TerminationNone {
		term = s.pipe.Termination()
	}
	var resp = &transformpb.TransformResponse{
		TransformCompleted: &transformpb.TransformCompleted{
			TerminationReason:    transformpb.TerminationReason(term.Reason),
			TerminationMessage:   term.Message,
			ProcessedInputBytes:  stats.ProcessedInputBytes,
			ProcessedOutputBytes: stats.ProcessedOutputBytes,
			ProcessedTime:        stats.ProcessedStreamTime.Seconds(),
		},
	}
	s.issueWrite(resp, writeSummary, s.finishStep)
}

func (s *CallSession) finishStep() {
	s.loop.AssertOnLoop()
	s.writeState = writeFinished
	s.destroyStep()
}

// destroyStep releases the pipeline and unblocks Run. Stop is
// idempotent and synchronous from the caller's point of view once
// onTerminated has already fired.
func (s *CallSession) destroyStep() {
	s.pipe.Stop()
	select {
	case s.done <- nil:
	default:
	}
}

// issueWrite is the single helper through which every Write flows: it
// asserts the invariant pendingWriteCb == nil && writeReady, then
// serializes the actual Send through its own goroutine.
func (s *CallSession) issueWrite(resp *transformpb.TransformResponse, next writeState, cb func()) {
	s.loop.AssertOnLoop()
	if s.pendingWriteCb != nil || !s.writeReady {
		panic("engine: issueWrite violated write serialization contract")
	}
	if next < s.writeState {
		panic(fmt.Sprintf("engine: writeState must be non-decreasing, got %v after %v", next, s.writeState))
	}
	s.writeState = next
	s.writeReady = false
	s.pendingWriteCb = cb

	go func() {
		var err = s.stream.Send(resp)
		s.loop.Post(func() { s.onWriteComplete(err) })
	}()
}

func (s *CallSession) onWriteComplete(err error) {
	s.loop.AssertOnLoop()
	s.writeReady = true
	if err != nil {
		s.log.WithError(err).Warn("write failed, finishing call")
		select {
		case s.done <- errors.Wrap(err, "write failed"):
		default:
		}
		return
	}
	if s.pendingWriteCb != nil {
		var cb = s.pendingWriteCb
		s.pendingWriteCb = nil
		cb()
		return
	}
	if s.writeState == writeSamples {
		s.pullSample()
	}
}

// terminationReason reports the call's recorded termination reason for
// metrics, valid only after Run has returned. Empty if the call never
// reached a running pipeline (eg a config-stage rejection).
func (s *CallSession) terminationReason() string {
	if s.pipe == nil {
		return ""
	}
	return s.pipe.Termination().Reason.String()
}

// finalStats reports the call's accumulated Pipeline counters for
// metrics, valid only after Run has returned.
func (s *CallSession) finalStats() *pipeline.Stats {
	if s.pipe == nil {
		return nil
	}
	var stats = s.pipe.Stats()
	return &stats
}

func requestIDFromContext(ctx context.Context) (string, bool) {
	var md, ok = metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	var values = md.Get(requestIDHeader)
	if len(values) == 0 || values[0] == "" {
		return "", false
	}
	return values[0], true
}

