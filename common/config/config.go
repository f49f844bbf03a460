package config

import (
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/ykhdr/crack-campaign/common/internal/kdl"
)

const DefaultConfigPath = "./config/config.kdl"

// InitializeConfig loads the KDL config at path over defaultCfg and installs
// the global logger. An empty path falls back to DefaultConfigPath, which may
// be absent; an explicit path must exist.
func InitializeConfig[T any](path string, defaultCfg T) (*T, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}
	config, err := kdl.Unmarshal[T](path, defaultCfg)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, os.ErrNotExist):
		config = defaultCfg
	default:
		return nil, errors.Wrapf(err, "unmarshal kdl %s", path)
	}
	setupLogger(&config)
	if err == nil {
		log.Debug().Str("path", path).Msg("config loaded")
	}
	return &config, nil
}

// ParseConfig decodes an in-memory KDL document without touching the logger.
func ParseConfig[T any](data []byte, defaultCfg T) (*T, error) {
	config, err := kdl.UnmarshalBytes(data, defaultCfg)
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal kdl")
	}
	return &config, nil
}
