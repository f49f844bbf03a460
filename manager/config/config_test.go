package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ykhdr/crack-campaign/common/config"
	"github.com/ykhdr/crack-campaign/manager/internal/digest"
	"github.com/ykhdr/crack-campaign/manager/internal/engine"
	"github.com/ykhdr/crack-campaign/manager/internal/strategy"
)

func TestParseConfig_KeepsDefaults(t *testing.T) {
	cfg, err := config.ParseConfig([]byte(`
log-level "debug"
engine {
    binary "/usr/bin/hashcat"
    flavor "hashcat"
}
`), *DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/usr/bin/hashcat", cfg.EngineConfig.Binary)
	assert.Equal(t, engine.FlavorHashcat, cfg.EngineConfig.ToEngineConfig().Flavor)
	assert.Equal(t, "127.0.0.1:8080", cfg.ApiServerAddr)
	assert.Equal(t, "./reports", cfg.CampaignConfig.ReportDir)
	assert.False(t, cfg.MongoDBConfig.Enabled())
	assert.False(t, cfg.AmqpConfig.Enabled())
	assert.False(t, cfg.ConsulConfig.Enabled())
}

func TestCampaignConfig(t *testing.T) {
	c := DefaultConfig().CampaignConfig
	assert.Equal(t, strategy.TierSlow.DefaultTimeout(), c.ToTimeouts().For(strategy.TierSlow))

	scheme, err := c.Scheme()
	require.NoError(t, err)
	assert.Empty(t, scheme)

	c.ForceScheme = "NTLM"
	scheme, err = c.Scheme()
	require.NoError(t, err)
	assert.Equal(t, digest.SchemeNTLM, scheme)

	c.ForceScheme = "rot13"
	_, err = c.Scheme()
	assert.ErrorIs(t, err, digest.ErrUnknownScheme)
}
