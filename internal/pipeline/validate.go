package pipeline

import (
	"github.com/pkg/errors"

	"github.com/technicianted/gsttransformer/internal/config"
	"github.com/technicianted/gsttransformer/internal/transformpb"
)

// InvalidConfigError marks a validation failure; Field names the
// offending request field. The engine surfaces every Validate and Build
// error to the client as gRPC INVALID_ARGUMENT.
type InvalidConfigError struct {
	Field   string
	message string
}

func (e *InvalidConfigError) Error() string { return e.message }

func invalidConfig(field, format string, args ...interface{}) error {
	return &InvalidConfigError{Field: field, message: errors.Errorf(format, args...).Error()}
}

// Config is the validated, post-clamping form of a TransformConfig: it
// carries exactly one of Pipeline or PipelineName, resolved Parameters,
// and the output-buffer coalescing threshold.
type Config struct {
	Pipeline     string
	PipelineName string
	Parameters   Parameters
	OutputBuffer uint32
}

// Validate checks inline-vs-named exclusivity and the allow-dynamic
// gate, then rate/length/tolerance/timeout/output-buffer range checks,
// each followed by the "clamp a zero client request up to the server
// max" rule. It is the Go analogue of
// AsyncTransformImpl::validateConfig, generalized from exceptions to a
// single returned error.
func Validate(req *transformpb.TransformConfig, policy *config.ServicePolicy) (Config, error) {
	if req.Pipeline != "" && req.PipelineName != "" {
		return Config{}, invalidConfig("pipeline", "cannot specify both pipeline and pipeline_name")
	}
	if req.Pipeline == "" && req.PipelineName == "" {
		return Config{}, invalidConfig("pipeline", "must specify either pipeline or pipeline_name")
	}
	if req.Pipeline != "" && !policy.AllowDynamic {
		return Config{}, invalidConfig("pipeline", "dynamic pipelines in requests are disabled")
	}

	var reqParams = req.PipelineParameters
	if reqParams == nil {
		reqParams = &transformpb.PipelineParameters{}
	}

	var params = DefaultParameters()
	if reqParams.Rate != 0 {
		params.Rate = reqParams.Rate
	}
	switch reqParams.RateEnforcementPolicy {
	case transformpb.RateEnforcementPolicy_ERROR:
		params.RateEnforcement = RateEnforcementError
	default:
		params.RateEnforcement = RateEnforcementBlock
	}

	if policy.MaxRate != 0 && policy.MaxRate != -1 {
		if params.Rate > policy.MaxRate || params.Rate == -1 {
			return Config{}, invalidConfig("rate", "requested rate %v exceeds allowed max %v", params.Rate, policy.MaxRate)
		}
	}

	params.LengthLimitMs = reqParams.LengthLimitMilliseconds
	if policy.MaxLengthMs != 0 {
		if uint64(params.LengthLimitMs) > policy.MaxLengthMs {
			return Config{}, invalidConfig("length_limit_milliseconds",
				"requested length limit %d exceeds allowed max %d", params.LengthLimitMs, policy.MaxLengthMs)
		}
		if params.LengthLimitMs == 0 {
			params.LengthLimitMs = uint32(policy.MaxLengthMs)
		}
	}

	params.InputBufferMaxBytes = reqParams.StartToleranceBytes
	if policy.MaxStartToleranceBytes != 0 {
		if uint64(params.InputBufferMaxBytes) > policy.MaxStartToleranceBytes {
			return Config{}, invalidConfig("start_tolerance_bytes",
				"requested start tolerance bytes %d exceeds allowed max %d", params.InputBufferMaxBytes, policy.MaxStartToleranceBytes)
		}
		if params.InputBufferMaxBytes == 0 {
			params.InputBufferMaxBytes = uint32(policy.MaxStartToleranceBytes)
		}
	}

	params.ReadTimeoutMs = reqParams.ReadTimeoutMilliseconds
	if policy.MaxReadTimeoutMs != 0 {
		if uint64(params.ReadTimeoutMs) > policy.MaxReadTimeoutMs {
			return Config{}, invalidConfig("read_timeout_milliseconds",
				"requested read timeout %d exceeds allowed max %d", params.ReadTimeoutMs, policy.MaxReadTimeoutMs)
		}
		if params.ReadTimeoutMs == 0 {
			params.ReadTimeoutMs = uint32(policy.MaxReadTimeoutMs)
		}
	}

	var outputBuffer = req.PipelineOutputBuffer
	if policy.MaxOutputBuffer != 0 {
		if uint64(outputBuffer) > policy.MaxOutputBuffer {
			return Config{}, invalidConfig("pipeline_output_buffer",
				"requested pipeline output buffer %d exceeds allowed max %d", outputBuffer, policy.MaxOutputBuffer)
		}
		if outputBuffer == 0 {
			outputBuffer = uint32(policy.MaxOutputBuffer)
		}
	}

	return Config{
		Pipeline:     req.Pipeline,
		PipelineName: req.PipelineName,
		Parameters:   params,
		OutputBuffer: outputBuffer,
	}, nil
}
