package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technicianted/gsttransformer/internal/config"
	"github.com/technicianted/gsttransformer/internal/transformpb"
)

func permissivePolicy() *config.ServicePolicy {
	return &config.ServicePolicy{
		AllowDynamic: true,
		Named:        map[string]string{"identity": "identity"},
	}
}

func TestValidateRequiresExactlyOneOfPipelineOrName(t *testing.T) {
	var policy = permissivePolicy()

	var _, err = Validate(&transformpb.TransformConfig{}, policy)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must specify")

	_, err = Validate(&transformpb.TransformConfig{Pipeline: "identity", PipelineName: "identity"}, policy)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot specify both")
}

func TestValidateRejectsInlineWhenDynamicDisallowed(t *testing.T) {
	var policy = permissivePolicy()
	policy.AllowDynamic = false

	var _, err = Validate(&transformpb.TransformConfig{Pipeline: "identity"}, policy)
	require.Error(t, err)
	var ice *InvalidConfigError
	require.ErrorAs(t, err, &ice)
	assert.Contains(t, err.Error(), "disabled")
}

func TestValidateRateAboveMaxRejected(t *testing.T) {
	var policy = permissivePolicy()
	policy.MaxRate = 2.0

	var _, err = Validate(&transformpb.TransformConfig{
		Pipeline:           "identity",
		PipelineParameters: &transformpb.PipelineParameters{Rate: 4.0},
	}, policy)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds allowed max 2")
}

func TestValidatePassthroughRateRejectedWhenMaxRateSet(t *testing.T) {
	var policy = permissivePolicy()
	policy.MaxRate = 2.0

	var _, err = Validate(&transformpb.TransformConfig{
		Pipeline:           "identity",
		PipelineParameters: &transformpb.PipelineParameters{Rate: -1},
	}, policy)
	require.Error(t, err)
}

func TestValidatePassthroughAllowedWithNoMaxRate(t *testing.T) {
	var policy = permissivePolicy()

	var cfg, err = Validate(&transformpb.TransformConfig{
		Pipeline:           "identity",
		PipelineParameters: &transformpb.PipelineParameters{Rate: -1},
	}, policy)
	require.NoError(t, err)
	assert.Equal(t, -1.0, cfg.Parameters.Rate)
	assert.True(t, cfg.Parameters.Passthrough())
}

func TestValidateClampsZeroLengthLimitUpToServerMax(t *testing.T) {
	var policy = permissivePolicy()
	policy.MaxLengthMs = 30000

	var cfg, err = Validate(&transformpb.TransformConfig{Pipeline: "identity"}, policy)
	require.NoError(t, err)
	assert.Equal(t, uint32(30000), cfg.Parameters.LengthLimitMs)
}

func TestValidateRejectsLengthLimitAboveServerMax(t *testing.T) {
	var policy = permissivePolicy()
	policy.MaxLengthMs = 30000

	var _, err = Validate(&transformpb.TransformConfig{
		Pipeline:           "identity",
		PipelineParameters: &transformpb.PipelineParameters{LengthLimitMilliseconds: 60000},
	}, policy)
	require.Error(t, err)
}

func TestValidateClampsOutputBuffer(t *testing.T) {
	var policy = permissivePolicy()
	policy.MaxOutputBuffer = 4096

	var cfg, err = Validate(&transformpb.TransformConfig{Pipeline: "identity"}, policy)
	require.NoError(t, err)
	assert.Equal(t, uint32(4096), cfg.OutputBuffer)

	_, err = Validate(&transformpb.TransformConfig{
		Pipeline:             "identity",
		PipelineOutputBuffer: 8192,
	}, policy)
	require.Error(t, err)
}

func TestValidateDefaultRateEnforcementIsBlock(t *testing.T) {
	var policy = permissivePolicy()

	var cfg, err = Validate(&transformpb.TransformConfig{Pipeline: "identity"}, policy)
	require.NoError(t, err)
	assert.Equal(t, RateEnforcementBlock, cfg.Parameters.RateEnforcement)
}
