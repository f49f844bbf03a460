package consul

import "github.com/hashicorp/consul/api"

type HealthConfig struct {
	Interval string `kdl:"interval"`
	Timeout  string `kdl:"timeout"`
	Http     string `kdl:"http"`
	// DeregisterAfter removes a service that stayed critical this long.
	DeregisterAfter string `kdl:"deregister-after"`
}

func (c *HealthConfig) toApiConfig(baseURL string) *api.AgentServiceCheck {
	if c == nil {
		return nil
	}
	return &api.AgentServiceCheck{
		HTTP:                           baseURL + c.Http,
		Timeout:                        c.Timeout,
		Interval:                       c.Interval,
		DeregisterCriticalServiceAfter: c.DeregisterAfter,
	}
}

type Config struct {
	Address string        `kdl:"address"`
	Health  *HealthConfig `kdl:"health"`
	// Tags are attached to every registration.
	Tags []string `kdl:"tags"`
}

// Enabled reports whether registration is configured.
func (c *Config) Enabled() bool {
	return c != nil && c.Address != ""
}

func (c *Config) toApiConfig() *api.Config {
	cfg := api.DefaultConfig()
	cfg.Address = c.Address
	return cfg
}
