package config

import (
	"time"

	"github.com/ykhdr/crack-campaign/common/amqp"
	"github.com/ykhdr/crack-campaign/common/config"
	"github.com/ykhdr/crack-campaign/common/consul"
	"github.com/ykhdr/crack-campaign/common/store/mongo"
	"github.com/ykhdr/crack-campaign/manager/internal/digest"
	"github.com/ykhdr/crack-campaign/manager/internal/engine"
	"github.com/ykhdr/crack-campaign/manager/internal/strategy"
)

const ServiceName = "crack-campaign-manager"

type EngineConfig struct {
	Binary           string        `kdl:"binary"`
	Flavor           string        `kdl:"flavor"`
	ExtraArgs        []string      `kdl:"extra-args"`
	WorkDir          string        `kdl:"work-dir"`
	ArtifactDir      string        `kdl:"artifact-dir"`
	SuccessExitCodes []int         `kdl:"success-exit-codes"`
	WaitDelay        time.Duration `kdl:"wait-delay"`
	ArtifactQueue    int           `kdl:"artifact-queue"`
}

func (c *EngineConfig) ToEngineConfig() engine.Config {
	return engine.Config{
		Binary:           c.Binary,
		Flavor:           engine.Flavor(c.Flavor),
		ExtraArgs:        c.ExtraArgs,
		WorkDir:          c.WorkDir,
		ArtifactDir:      c.ArtifactDir,
		SuccessExitCodes: c.SuccessExitCodes,
		WaitDelay:        c.WaitDelay,
		ArtifactQueue:    c.ArtifactQueue,
	}
}

type TimeoutsConfig struct {
	Fast   time.Duration `kdl:"fast"`
	Medium time.Duration `kdl:"medium"`
	Slow   time.Duration `kdl:"slow"`
}

type CampaignConfig struct {
	ReportDir   string          `kdl:"report-dir"`
	WriteCSV    bool            `kdl:"write-csv"`
	Potfile     string          `kdl:"potfile"`
	ForceScheme string          `kdl:"force-scheme"`
	Strict      bool            `kdl:"strict"`
	Timeouts    *TimeoutsConfig `kdl:"timeouts"`
}

func (c *CampaignConfig) ToTimeouts() strategy.Timeouts {
	if c.Timeouts == nil {
		return strategy.Timeouts{}
	}
	return strategy.Timeouts{
		Fast:   c.Timeouts.Fast,
		Medium: c.Timeouts.Medium,
		Slow:   c.Timeouts.Slow,
	}
}

// Scheme returns the configured forced scheme, empty when detection is on.
func (c *CampaignConfig) Scheme() (digest.Scheme, error) {
	if c.ForceScheme == "" {
		return "", nil
	}
	return digest.ParseScheme(c.ForceScheme)
}

type DispatcherConfig struct {
	QueueSize       int           `kdl:"queue-size"`
	DispatchTimeout time.Duration `kdl:"dispatch-timeout"`
	MaxConcurrent   int           `kdl:"max-concurrent"`
}

type ManagerConfig struct {
	config.LogConfig
	ApiServerAddr    string            `kdl:"api-server-addr"`
	EngineConfig     *EngineConfig     `kdl:"engine"`
	CampaignConfig   *CampaignConfig   `kdl:"campaign"`
	DispatcherConfig *DispatcherConfig `kdl:"dispatcher"`
	ConsulConfig     *consul.Config    `kdl:"consul"`
	MongoDBConfig    *mongo.Config     `kdl:"mongo"`
	AmqpConfig       *amqp.Config      `kdl:"amqp"`
}

// DefaultConfig runs campaigns locally with the reference worker. Consul,
// MongoDB and AMQP stay off until an address is configured.
func DefaultConfig() *ManagerConfig {
	return &ManagerConfig{
		LogConfig:     config.LogConfig{LogLevel: "info"},
		ApiServerAddr: "127.0.0.1:8080",
		EngineConfig: &EngineConfig{
			Binary:           "worker",
			Flavor:           string(engine.FlavorWorker),
			WorkDir:          "./work",
			ArtifactDir:      "./artifacts",
			SuccessExitCodes: engine.DefaultSuccessExitCodes,
			WaitDelay:        5 * time.Second,
			ArtifactQueue:    1024,
		},
		CampaignConfig: &CampaignConfig{
			ReportDir: "./reports",
			WriteCSV:  true,
			Timeouts: &TimeoutsConfig{
				Fast:   strategy.TierFast.DefaultTimeout(),
				Medium: strategy.TierMedium.DefaultTimeout(),
				Slow:   strategy.TierSlow.DefaultTimeout(),
			},
		},
		DispatcherConfig: &DispatcherConfig{
			QueueSize:       64,
			DispatchTimeout: 5 * time.Second,
			MaxConcurrent:   1,
		},
		ConsulConfig: &consul.Config{
			Health: &consul.HealthConfig{
				Interval:        "5s",
				Timeout:         "30s",
				Http:            "/api/health",
				DeregisterAfter: "1m",
			},
		},
		MongoDBConfig: &mongo.Config{
			Database: "crack-campaign",
		},
		AmqpConfig: &amqp.Config{
			ReconnectTimeout: 5 * time.Second,
			PublisherConfig: &amqp.PublisherConfig{
				Exchange:   "campaign.events",
				RoutingKey: "campaign.event",
			},
			ConsumerConfig: &amqp.ConsumerConfig{
				Queue: "campaign.requests",
			},
		},
	}
}

func InitializeConfig(path string) (*ManagerConfig, error) {
	return config.InitializeConfig[ManagerConfig](path, *DefaultConfig())
}
