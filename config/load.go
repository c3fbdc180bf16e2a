package config

import (
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/m-mizutani/goerr/v2"
)

// Load reads the optional YAML file and then applies environment overrides.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig
	if strings.TrimSpace(path) != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", path))
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to read config from env")
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return nil, goerr.New("unsupported db driver", goerr.V("driver", cfg.DBDriver))
	}
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, goerr.New("jwt secret is empty")
	}
	cfg.Directory.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Directory.BaseURL), "/")
	if cfg.Directory.BaseURL == "" {
		return nil, goerr.New("user directory base url is empty")
	}
	return &cfg, nil
}
