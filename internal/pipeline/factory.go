package pipeline

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/technicianted/gsttransformer/internal/config"
)

// Builder constructs a Pipeline from a fully expanded launch-syntax spec
// string. A real implementation hands spec to the external media
// framework's parser; this repository injects one so the engine never
// depends on the framework directly, treating it as an opaque external
// collaborator. See internal/gstfake for the in-process stand-in used by
// tests and the "identity" named pipeline.
type Builder func(requestID string, spec string, params Parameters) (Pipeline, error)

// launchSpec expands a bare elements spec into the full
// "appsrc name=psource ! <spec> ! appsink name=psink" launch string the
// framework parser expects, matching DynamicPipeline::createFromSpecs.
func launchSpec(spec string) string {
	return fmt.Sprintf("appsrc name=psource ! %s ! appsink name=psink", spec)
}

// Factory turns a validated Config plus ServicePolicy into a Pipeline,
// resolving either an inline spec or a named entry in policy.Named.
type Factory struct {
	policy  *config.ServicePolicy
	builder Builder
}

// NewFactory constructs a Factory bound to policy and builder.
func NewFactory(policy *config.ServicePolicy, builder Builder) *Factory {
	return &Factory{policy: policy, builder: builder}
}

// Build resolves cfg (already validated by Validate) into a running
// Pipeline. Exactly one of cfg.Pipeline / cfg.PipelineName is expected to
// be set, as Validate enforces.
func (f *Factory) Build(requestID string, cfg Config) (Pipeline, error) {
	var spec string
	if cfg.PipelineName == "" {
		if cfg.Pipeline == "" {
			return nil, invalidConfig("pipeline", "no dynamic pipeline specs specified")
		}
		spec = cfg.Pipeline
	} else {
		var ok bool
		spec, ok = f.policy.Named[cfg.PipelineName]
		if !ok {
			return nil, invalidConfig("pipeline_name", "pipeline name %q not defined", cfg.PipelineName)
		}
	}

	var p, err = f.builder(requestID, launchSpec(spec), cfg.Parameters)
	if err != nil {
		return nil, errors.WithMessage(err, "cannot create pipeline")
	}
	return p, nil
}
