package consul

import (
	"fmt"

	"github.com/hashicorp/consul/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Service struct {
	id      string
	address string
	port    int
}

func (s *Service) Id() string {
	return s.id
}

func (s *Service) Address() string {
	return s.address
}

func (s *Service) Port() int {
	return s.port
}

func (s *Service) Url() string {
	return fmt.Sprintf("http://%s:%d", s.address, s.port)
}

type Client interface {
	HealthServices(serviceName string) ([]*Service, error)
	RegisterService(serviceName, address string, port int) (*Service, error)
	DeregisterService(service *Service) error
}

type client struct {
	cfg    *Config
	client *api.Client
	l      zerolog.Logger
}

func NewClient(cfg *Config) (Client, error) {
	cl, err := api.NewClient(cfg.toApiConfig())
	if err != nil {
		return nil, errors.Wrap(err, "failed to create consul client")
	}
	return &client{
		client: cl,
		cfg:    cfg,
		l: log.With().
			Str("domain", "consul").
			Str("address", cfg.Address).
			Logger(),
	}, nil
}

func (c *client) HealthServices(serviceName string) ([]*Service, error) {
	entries, _, err := c.client.Health().Service(serviceName, "", true, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query healthy %s services", serviceName)
	}
	services := make([]*Service, 0, len(entries))
	for _, srv := range entries {
		services = append(services, &Service{
			id:      srv.Service.ID,
			address: srv.Service.Address,
			port:    srv.Service.Port,
		})
	}
	return services, nil
}

func (c *client) RegisterService(serviceName, address string, port int) (*Service, error) {
	srv := &Service{
		id:      fmt.Sprintf("%s-%s:%d", serviceName, address, port),
		address: address,
		port:    port,
	}
	registrationReq := &api.AgentServiceRegistration{
		ID:      srv.id,
		Name:    serviceName,
		Address: address,
		Port:    port,
		Tags:    c.cfg.Tags,
		Check:   c.cfg.Health.toApiConfig(srv.Url()),
	}
	if err := c.client.Agent().ServiceRegister(registrationReq); err != nil {
		return nil, errors.Wrapf(err, "failed to register %s", srv.id)
	}
	c.l.Info().Str("service-id", srv.id).Msg("service registered")
	return srv, nil
}

func (c *client) DeregisterService(service *Service) error {
	if err := c.client.Agent().ServiceDeregister(service.id); err != nil {
		return errors.Wrapf(err, "failed to deregister %s", service.id)
	}
	c.l.Info().Str("service-id", service.id).Msg("service deregistered")
	return nil
}
