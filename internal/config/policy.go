// Package config loads and represents the process-wide ServicePolicy that
// bounds every call's requested PipelineParameters, restating the JSON
// configuration document a gsttransformer server loads at boot
// (serviceparams.cpp's schema), with structured-logging and CLI
// conventions drawn from go.gazette.dev/core's mainboilerplate-style
// flag/env wiring.
package config

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// ServicePolicy is the immutable, process-wide set of limits every call's
// TransformConfig is validated against. A zero value for any Max* field
// means "no limit".
type ServicePolicy struct {
	AllowDynamic           bool
	MaxRate                float64
	MaxLengthMs            uint64
	MaxStartToleranceBytes uint64
	MaxReadTimeoutMs       uint64
	MaxOutputBuffer        uint64
	// Named maps a pipeline_name to the launch-syntax spec it expands to.
	Named map[string]string
}

// jsonDocument mirrors the on-disk JSON schema. Unknown keys are
// ignored, matching a typical nlohmann::json loader's permissive
// field-presence checks.
type jsonDocument struct {
	Limits struct {
		AllowDynamicPipelines bool `json:"allowDynamicPipelines"`
		Rate                  struct {
			Max float64 `json:"max"`
		} `json:"rate"`
		LengthLimitMillis struct {
			Max uint64 `json:"max"`
		} `json:"lengthLimitMillis"`
		StartToleranceBytes struct {
			Max uint64 `json:"max"`
		} `json:"startToleranceBytes"`
		ReadTimeoutMillis struct {
			Max uint64 `json:"max"`
		} `json:"readTimeoutMillis"`
		PipelineOutputBuffer struct {
			Max uint64 `json:"max"`
		} `json:"pipelineOutputBuffer"`
	} `json:"limits"`
	Pipelines []struct {
		ID    string `json:"id"`
		Specs string `json:"specs"`
	} `json:"pipelines"`
}

// Load parses a ServicePolicy from r's JSON document, and refuses to
// produce a policy that would leave the server unable to run any
// pipeline at all: if dynamic (inline) pipelines are disallowed and no
// named pipeline is configured, startup must fail.
func Load(r io.Reader) (*ServicePolicy, error) {
	var doc jsonDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.WithMessage(err, "decoding service policy")
	}

	var policy = &ServicePolicy{
		AllowDynamic:           doc.Limits.AllowDynamicPipelines,
		MaxRate:                doc.Limits.Rate.Max,
		MaxLengthMs:            doc.Limits.LengthLimitMillis.Max,
		MaxStartToleranceBytes: doc.Limits.StartToleranceBytes.Max,
		MaxReadTimeoutMs:       doc.Limits.ReadTimeoutMillis.Max,
		MaxOutputBuffer:        doc.Limits.PipelineOutputBuffer.Max,
		Named:                  make(map[string]string, len(doc.Pipelines)),
	}
	for _, p := range doc.Pipelines {
		policy.Named[p.ID] = p.Specs
	}

	if !policy.AllowDynamic && len(policy.Named) == 0 {
		return nil, errors.New("no named pipelines configured and dynamic pipelines are disabled")
	}
	return policy, nil
}
