package engine

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/technicianted/gsttransformer/internal/config"
	"github.com/technicianted/gsttransformer/internal/pipeline"
	"github.com/technicianted/gsttransformer/internal/transformpb"
)

// fakeStream is a minimal, deterministic stand-in for
// transformpb.Transform_TransformServer, grounded on the scripted-stream
// style of broker/client/append_service_test.go: the test feeds a queue
// of requests and inspects the responses the session writes back.
type fakeStream struct {
	ctx      context.Context
	recvCh   chan *transformpb.TransformRequest
	closeErr error

	mu   sync.Mutex
	sent []*transformpb.TransformResponse
}

func (f *fakeStream) Context() context.Context { return f.ctx }

func (f *fakeStream) Recv() (*transformpb.TransformRequest, error) {
	var req, ok = <-f.recvCh
	if !ok {
		if f.closeErr != nil {
			return nil, f.closeErr
		}
		return nil, io.EOF
	}
	return req, nil
}

func (f *fakeStream) Send(resp *transformpb.TransformResponse) error {
	f.mu.Lock()
	f.sent = append(f.sent, resp)
	f.mu.Unlock()
	return nil
}

func (f *fakeStream) responses() []*transformpb.TransformResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out = make([]*transformpb.TransformResponse, len(f.sent))
	copy(out, f.sent)
	return out
}

func newFakeStream(requestID string) *fakeStream {
	var ctx = context.Background()
	if requestID != "" {
		ctx = metadata.NewIncomingContext(ctx, metadata.Pairs(requestIDHeader, requestID))
	}
	return &fakeStream{ctx: ctx, recvCh: make(chan *transformpb.TransformRequest, 16)}
}

// mockPipeline is a fully synchronous pipeline.Pipeline double: every
// callback fires inline from the call that would trigger it in a real
// graph, keeping these tests deterministic and fast.
type mockPipeline struct {
	mu         sync.Mutex
	samples    [][]byte
	terminated bool
	term       pipeline.Termination
	stats      pipeline.Stats

	onSampleAvailable func()
	onNeedData        func()
	onEnoughData      func()
	onEOS             func()
	onTerminated      func(bool)
}

func (m *mockPipeline) OnSampleAvailable(fn func()) { m.onSampleAvailable = fn }
func (m *mockPipeline) OnNeedData(fn func())        { m.onNeedData = fn }
func (m *mockPipeline) OnEnoughData(fn func())      { m.onEnoughData = fn }
func (m *mockPipeline) OnEOS(fn func())             { m.onEOS = fn }

func (m *mockPipeline) Start(onTerminated func(bool)) {
	m.onTerminated = onTerminated
	if m.onNeedData != nil {
		m.onNeedData()
	}
}

func (m *mockPipeline) AddData(buf []byte) (int, error) {
	m.mu.Lock()
	m.samples = append(m.samples, buf)
	m.stats.ProcessedInputBytes += uint64(len(buf))
	m.mu.Unlock()
	if m.onSampleAvailable != nil {
		m.onSampleAvailable()
	}
	return len(buf), nil
}

func (m *mockPipeline) EndData() {
	m.mu.Lock()
	var already = m.terminated
	if !already {
		m.term = pipeline.Termination{Reason: pipeline.TerminationEndOfStream}
	}
	m.terminated = true
	m.mu.Unlock()
	if m.onEOS != nil {
		m.onEOS()
	}
	if !already && m.onTerminated != nil {
		m.onTerminated(false)
	}
}

func (m *mockPipeline) PullSample(count int) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if count > len(m.samples) {
		count = len(m.samples)
	}
	var out = m.samples[:count]
	m.samples = m.samples[count:]
	m.stats.ProcessedOutputBytes += uint64(sumLens(out))
	return out
}

func sumLens(bufs [][]byte) int {
	var n int
	for _, b := range bufs {
		n += len(b)
	}
	return n
}

func (m *mockPipeline) Stop() {
	m.mu.Lock()
	var already = m.terminated
	if !already {
		m.term = pipeline.Termination{Reason: pipeline.TerminationCancelled}
	}
	m.terminated = true
	m.mu.Unlock()
	if !already && m.onTerminated != nil {
		m.onTerminated(true)
	}
}

func (m *mockPipeline) Termination() pipeline.Termination {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.term
}

func (m *mockPipeline) Stats() pipeline.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func newTestSession(t *testing.T, stream transformStream, policy *config.ServicePolicy, builder pipeline.Builder) *CallSession {
	t.Helper()
	var loop = NewEventLoop(0)
	t.Cleanup(loop.Stop)
	var factory = pipeline.NewFactory(policy, builder)
	var logger = logrus.NewEntry(logrus.New())
	return NewCallSession(loop, stream, logger, policy, factory, nil)
}

func TestCallSessionHappyPathEndOfStream(t *testing.T) {
	var stream = newFakeStream("req-1")
	stream.recvCh <- &transformpb.TransformRequest{Config: &transformpb.TransformConfig{Pipeline: "identity"}}
	stream.recvCh <- &transformpb.TransformRequest{Payload: &transformpb.Payload{Data: [][]byte{[]byte("hello")}}}
	close(stream.recvCh)

	var policy = &config.ServicePolicy{AllowDynamic: true}
	var mock = &mockPipeline{}
	var session = newTestSession(t, stream, policy, func(requestID, spec string, params pipeline.Parameters) (pipeline.Pipeline, error) {
		return mock, nil
	})

	var err = session.Run()
	require.NoError(t, err)

	var resps = stream.responses()
	require.NotEmpty(t, resps)
	var last = resps[len(resps)-1]
	require.NotNil(t, last.TransformCompleted)
	assert.Equal(t, transformpb.TerminationReason_END_OF_STREAM, last.TransformCompleted.TerminationReason)

	var sawPayload bool
	for _, r := range resps[:len(resps)-1] {
		if r.Payload != nil {
			for _, d := range r.Payload.Data {
				if string(d) == "hello" {
					sawPayload = true
				}
			}
		}
	}
	assert.True(t, sawPayload, "expected the echoed sample to appear before the summary")
}

func TestCallSessionMissingRequestIDIsFailedPrecondition(t *testing.T) {
	var stream = newFakeStream("")
	var policy = &config.ServicePolicy{AllowDynamic: true}
	var session = newTestSession(t, stream, policy, func(requestID, spec string, params pipeline.Parameters) (pipeline.Pipeline, error) {
		return &mockPipeline{}, nil
	})

	var err = session.Run()
	require.Error(t, err)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestCallSessionInvalidConfigRejected(t *testing.T) {
	var stream = newFakeStream("req-2")
	stream.recvCh <- &transformpb.TransformRequest{Config: &transformpb.TransformConfig{Pipeline: "whatever"}}

	var policy = &config.ServicePolicy{AllowDynamic: false}
	var session = newTestSession(t, stream, policy, func(requestID, spec string, params pipeline.Parameters) (pipeline.Pipeline, error) {
		return &mockPipeline{}, nil
	})

	var err = session.Run()
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestCallSessionFirstMessageWithoutConfigIsFailedPrecondition(t *testing.T) {
	var stream = newFakeStream("req-3")
	stream.recvCh <- &transformpb.TransformRequest{Payload: &transformpb.Payload{Data: [][]byte{[]byte("x")}}}

	var policy = &config.ServicePolicy{AllowDynamic: true}
	var session = newTestSession(t, stream, policy, func(requestID, spec string, params pipeline.Parameters) (pipeline.Pipeline, error) {
		return &mockPipeline{}, nil
	})

	var err = session.Run()
	require.Error(t, err)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestCallSessionMidStreamViolationIsFailedPrecondition(t *testing.T) {
	var stream = newFakeStream("req-6")
	stream.recvCh <- &transformpb.TransformRequest{Config: &transformpb.TransformConfig{Pipeline: "identity"}}
	stream.recvCh <- &transformpb.TransformRequest{}
	close(stream.recvCh)

	var policy = &config.ServicePolicy{AllowDynamic: true}
	var mock = &mockPipeline{}
	var session = newTestSession(t, stream, policy, func(requestID, spec string, params pipeline.Parameters) (pipeline.Pipeline, error) {
		return mock, nil
	})

	var err = session.Run()
	require.Error(t, err)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	for _, r := range stream.responses() {
		assert.Nil(t, r.TransformCompleted, "must not complete with an in-band summary after a mid-stream violation")
	}
}

func TestCallSessionTransportCancelReportsCancelled(t *testing.T) {
	var stream = newFakeStream("req-4")
	stream.recvCh <- &transformpb.TransformRequest{Config: &transformpb.TransformConfig{Pipeline: "identity"}}
	stream.closeErr = context.Canceled
	close(stream.recvCh)

	var policy = &config.ServicePolicy{AllowDynamic: true}
	var mock = &mockPipeline{}
	var session = newTestSession(t, stream, policy, func(requestID, spec string, params pipeline.Parameters) (pipeline.Pipeline, error) {
		return mock, nil
	})

	var err = session.Run()
	require.NoError(t, err)

	var resps = stream.responses()
	require.NotEmpty(t, resps)
	var last = resps[len(resps)-1]
	require.NotNil(t, last.TransformCompleted)
	assert.Equal(t, transformpb.TerminationReason_CANCELLED, last.TransformCompleted.TerminationReason)
}
