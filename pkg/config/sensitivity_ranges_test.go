package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParameterRange(t *testing.T) {
	r, err := ParseParameterRange("pause_drawdown_pct=8, 10,12")
	require.NoError(t, err)

	assert.Equal(t, "pause_drawdown_pct", r.Name)
	assert.Equal(t, []float64{8, 10, 12}, r.Values)
}

func TestParseParameterRange_Errors(t *testing.T) {
	for _, input := range []string{
		"pause_drawdown_pct",
		"unknown_param=1,2",
		"vix_threshold=abc",
		"vix_threshold=",
	} {
		_, err := ParseParameterRange(input)
		assert.Error(t, err, input)
	}
}

func TestApplyParameter(t *testing.T) {
	base := NewDefaultStrategyConfig()

	cfg, err := ApplyParameter(base, "resume_consec_days", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.ResumeConsecDays)
	assert.Equal(t, DefaultResumeConsecDays, base.ResumeConsecDays, "base config must not change")

	cfg, err = ApplyParameter(base, "use_death_cross", 1)
	require.NoError(t, err)
	assert.True(t, cfg.UseDeathCross)

	_, err = ApplyParameter(base, "nope", 1)
	assert.Error(t, err)
}

func TestDefaultSensitivityRanges_AreSweepable(t *testing.T) {
	for _, r := range DefaultSensitivityRanges {
		_, err := ApplyParameter(NewDefaultStrategyConfig(), r.Name, r.Values[0])
		assert.NoError(t, err, r.Name)
	}
}
