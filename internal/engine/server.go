package engine

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/technicianted/gsttransformer/internal/config"
	"github.com/technicianted/gsttransformer/internal/metrics"
	"github.com/technicianted/gsttransformer/internal/pipeline"
	"github.com/technicianted/gsttransformer/internal/transformpb"
)

// Service implements transformpb.TransformServer, wiring a ServicePolicy
// and pipeline.Factory to a fresh EventLoop and CallSession per RPC.
//
// Unlike an async-completion-queue server, which needs an explicit
// continuation-passing accept loop to keep re-arming itself for the next
// call, grpc-go already invokes Transform in a fresh goroutine per
// incoming stream. The "spawn the next acceptor" step reduces to
// grpc-go's own dispatch loop; what's left here is request-id
// extraction and session construction.
type Service struct {
	transformpb.UnimplementedTransformServer

	policy  *config.ServicePolicy
	factory *pipeline.Factory
	log     *logrus.Entry
	metrics *metrics.Metrics

	stoppingCh chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// NewService constructs a Service. log is the base logger each call's
// entry is derived from (consumer/service.go's per-replica logger
// pattern, adapted to per-call).
func NewService(policy *config.ServicePolicy, factory *pipeline.Factory, log *logrus.Entry, m *metrics.Metrics) *Service {
	return &Service{
		policy:     policy,
		factory:    factory,
		log:        log,
		metrics:    m,
		stoppingCh: make(chan struct{}),
	}
}

// Stopping returns a channel closed once graceful shutdown has begun, so
// in-flight Transform calls can tell a client cancellation from a server
// shutdown (grounded on consumer/service.go's stoppingCh).
func (s *Service) Stopping() <-chan struct{} { return s.stoppingCh }

// Stop signals graceful shutdown and blocks until every in-flight
// Transform call has returned.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stoppingCh) })
	s.wg.Wait()
}

// Transform implements the bidirectional-streaming engine described by
// this package's doc comment.
func (s *Service) Transform(stream transformpb.Transform_TransformServer) error {
	s.wg.Add(1)
	defer s.wg.Done()

	var loop = NewEventLoop(0)
	defer loop.Stop()

	var log = s.log
	if s.metrics != nil {
		s.metrics.CallsStarted.Inc()
		defer s.metrics.ActiveCalls.Dec()
		s.metrics.ActiveCalls.Inc()
	}

	var session = NewCallSession(loop, stream, log, s.policy, s.factory, s.stoppingCh)
	var err = session.Run()

	if s.metrics != nil {
		s.metrics.CallsFinished.Inc()
		if reason := session.terminationReason(); reason != "" {
			s.metrics.TerminationsByReason.WithLabelValues(reason).Inc()
		}
		if stats := session.finalStats(); stats != nil {
			s.metrics.ProcessedInputBytes.Add(float64(stats.ProcessedInputBytes))
			s.metrics.ProcessedOutputBytes.Add(float64(stats.ProcessedOutputBytes))
		}
	}
	return err
}
