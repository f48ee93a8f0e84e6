// Package pipeline defines the Pipeline abstraction the engine drives:
// parameter value objects (this file, restating pipelineparameters.cpp/.h's
// constructor defaults), config validation and clamping (validate.go), the
// Pipeline contract itself (pipeline.go), and construction from a
// validated TransformConfig (factory.go).
package pipeline

import "fmt"

// RateEnforcement selects what happens when a pipeline configured with a
// real-time Rate receives input faster than it can consume it.
type RateEnforcement int

const (
	// RateEnforcementBlock lets the pipeline's own buffering absorb bursts;
	// the engine simply stops reading (readReady=false) until the sink
	// drains, so the client is back-pressured rather than failed.
	RateEnforcementBlock RateEnforcement = iota
	// RateEnforcementError terminates the call with RATE_EXCEEDED the
	// first time the source signals enough-data while rate > 0.
	RateEnforcementError
)

func (e RateEnforcement) String() string {
	if e == RateEnforcementError {
		return "ERROR"
	}
	return "BLOCK"
}

// Parameters is the immutable-after-construction value object mirroring
// PipelineParameters. Rate above zero is a real-time
// playback multiplier (1.0 == real-time); Rate == -1 disables clock sync
// entirely ("passthrough"); Rate == 0 is invalid and must never reach a
// Pipeline implementation; Validate replaces a zero (unset) request rate
// with the default rate of 1.0.
type Parameters struct {
	Rate                 float64
	LengthLimitMs        uint32
	InputBufferMaxBytes  uint32
	ReadTimeoutMs        uint32
	RateEnforcement      RateEnforcement
}

// DefaultParameters mirrors pipelineparameters.cpp's constructor
// defaults: real-time rate, no length limit, framework-default
// buffering, no read timeout, block-on-backpressure.
func DefaultParameters() Parameters {
	return Parameters{
		Rate:            1.0,
		RateEnforcement: RateEnforcementBlock,
	}
}

// String renders the parameters for logging, mirroring
// PipelineParameters::debugString().
func (p Parameters) String() string {
	return fmt.Sprintf(
		"rate: %v, lengthLimitMs: %d, rateEnforcement: %v, inputBufferMaxBytes: %d, readTimeoutMs: %d",
		p.Rate, p.LengthLimitMs, p.RateEnforcement, p.InputBufferMaxBytes, p.ReadTimeoutMs,
	)
}

// Passthrough reports whether clock-sync is disabled, ie the pipeline
// should consume input as fast as it arrives rather than pacing itself
// against a media clock.
func (p Parameters) Passthrough() bool { return p.Rate == -1 }
