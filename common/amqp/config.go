package amqp

import (
	"time"

	"github.com/ykhdr/crack-campaign/common/amqp/consumer"
	"github.com/ykhdr/crack-campaign/common/amqp/publisher"
)

type Config struct {
	URI              string           `kdl:"uri"`
	Username         string           `kdl:"username"`
	Password         string           `kdl:"password"`
	ReconnectTimeout time.Duration    `kdl:"reconnect-timeout"`
	PublisherConfig  *PublisherConfig `kdl:"publisher"`
	ConsumerConfig   *ConsumerConfig  `kdl:"consumer"`
}

// Enabled reports whether a broker is configured.
func (c *Config) Enabled() bool {
	return c != nil && c.URI != ""
}

type PublisherConfig struct {
	Exchange   string `kdl:"exchange"`
	RoutingKey string `kdl:"routing-key"`
}

func (p *PublisherConfig) ToPublisherConfig(
	marshal publisher.Marshal,
	contentType string,
) *publisher.Config {
	return &publisher.Config{
		Exchange:    p.Exchange,
		RoutingKey:  p.RoutingKey,
		Marshal:     marshal,
		ContentType: contentType,
	}
}

type ConsumerConfig struct {
	Queue string `kdl:"queue"`
	// Exchange and RoutingKey bind the queue when set.
	Exchange   string `kdl:"exchange"`
	RoutingKey string `kdl:"routing-key"`
}

func (c *ConsumerConfig) ToConsumerConfig(
	unmarshal consumer.Unmarshal,
	consumerTag string,
	autoAck bool,
) *consumer.Config {
	return &consumer.Config{
		Unmarshal: unmarshal,
		Queue:     c.Queue,
		Consumer:  consumerTag,
		AutoAck:   autoAck,
	}
}
