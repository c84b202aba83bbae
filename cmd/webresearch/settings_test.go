// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSettingsCmd(t *testing.T) *cobra.Command {
	t.Helper()
	t.Cleanup(viper.Reset)

	c := &cobra.Command{Use: "test"}
	c.Flags().Int("num", 0, "")
	c.Flags().Float64("qps", 0, "")
	c.Flags().Bool("recent", true, "")
	c.Flags().String("model", "", "")
	return c
}

func TestSettingDefaults(t *testing.T) {
	c := newSettingsCmd(t)

	assert.Equal(t, 5, intSetting(c, "num", "research.num_results", 5))
	assert.Equal(t, 0.0, float64Setting(c, "qps", "search.queries_per_second", 0))
	assert.Equal(t, "gpt-4o-mini", stringSetting(c, "model", "ai.model", "gpt-4o-mini"))
	assert.True(t, boolSetting(c, "recent", "search.restrict_recent", true))
}

func TestSettingViperBeatsDefault(t *testing.T) {
	c := newSettingsCmd(t)
	viper.Set("research.num_results", 8)
	viper.Set("search.queries_per_second", 0.5)

	assert.Equal(t, 8, intSetting(c, "num", "research.num_results", 5))
	assert.Equal(t, 0.5, float64Setting(c, "qps", "search.queries_per_second", 0))
}

func TestSettingFlagBeatsViper(t *testing.T) {
	c := newSettingsCmd(t)
	viper.Set("research.num_results", 8)
	viper.Set("search.queries_per_second", 0.5)
	require.NoError(t, c.Flags().Set("num", "3"))
	require.NoError(t, c.Flags().Set("qps", "2"))

	assert.Equal(t, 3, intSetting(c, "num", "research.num_results", 5))
	assert.Equal(t, 2.0, float64Setting(c, "qps", "search.queries_per_second", 0))
}

func TestSettingExplicitZeroWins(t *testing.T) {
	c := newSettingsCmd(t)
	require.NoError(t, c.Flags().Set("num", "0"))

	// an explicit zero is a request for zero, not an invitation to default
	assert.Equal(t, 0, intSetting(c, "num", "research.num_results", 5))
}
