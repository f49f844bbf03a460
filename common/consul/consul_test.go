package consul

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvertiseAddr_KeepsConcreteHost(t *testing.T) {
	for _, host := range []string{"127.0.0.1", "10.1.2.3", "manager.local"} {
		addr, err := AdvertiseAddr(host)
		require.NoError(t, err)
		assert.Equal(t, host, addr)
	}
}

func TestHealthConfig_ToApiConfig(t *testing.T) {
	var missing *HealthConfig
	assert.Nil(t, missing.toApiConfig("http://a:1"))

	check := (&HealthConfig{Interval: "5s", Timeout: "1s", Http: "/api/health", DeregisterAfter: "1m"}).
		toApiConfig("http://10.0.0.1:8080")
	assert.Equal(t, "http://10.0.0.1:8080/api/health", check.HTTP)
	assert.Equal(t, "1m", check.DeregisterCriticalServiceAfter)
}

func TestConfig_Enabled(t *testing.T) {
	var cfg *Config
	assert.False(t, cfg.Enabled())
	assert.False(t, (&Config{}).Enabled())
	assert.True(t, (&Config{Address: "consul:8500"}).Enabled())
}
