// Package config loads the CLI configuration: struct defaults, overridden by
// an optional YAML file, overridden by CELCAT_-prefixed environment
// variables. The core library takes explicit values and never reads config
// itself.
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"

	"github.com/tleroy/celcat-fetch/internal/filter"
)

// Config is the full CLI configuration.
type Config struct {
	BaseURL  string `koanf:"base_url"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`

	// Resources are the federation identifiers to fetch. May be left empty
	// when the deployment exposes the student's own identifier at login.
	Resources []string `koanf:"resources"`

	// Timezone interprets the service's naive timestamps, e.g. Europe/Paris.
	Timezone string `koanf:"timezone"`

	Concurrency    int  `koanf:"concurrency"`
	Retries        int  `koanf:"retries"`
	WindowDays     int  `koanf:"window_days"`
	TimeoutSeconds int  `koanf:"timeout_seconds"`
	IncludeDetails bool `koanf:"include_details"`

	CleanEvents bool          `koanf:"clean_events"`
	Filter      filter.Config `koanf:"filter"`
}

// Load reads configuration from defaults, then path (if it exists), then the
// environment: CELCAT_BASE_URL, CELCAT_USERNAME, CELCAT_PASSWORD and so on,
// with underscores mapping onto nested keys.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	err := k.Load(structs.Provider(Config{
		Timezone:       "Europe/Paris",
		Concurrency:    5,
		Retries:        3,
		WindowDays:     35,
		TimeoutSeconds: 30,
		CleanEvents:    true,
		Filter:         filter.Default(),
	}, "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config defaults: %v", err)
		return Config{}, err
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if os.IsNotExist(err) {
				log.Debugf("config file not found at %s, using defaults and environment", path)
			} else {
				log.Errorf("error loading config from YAML: %v", err)
				return Config{}, err
			}
		}
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "CELCAT_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, "CELCAT_")), "__", ".")
			return key, value
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from environment: %v", err)
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
