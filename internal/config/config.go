package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type ComputeConfig struct {
	Endpoint         string        `mapstructure:"endpoint"`
	ApplicationID    string        `mapstructure:"application_id"`
	ExecutionRoleARN string        `mapstructure:"execution_role_arn"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
}

type SessionConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type Config struct {
	DatabaseURL       string        `mapstructure:"database_url"`
	ServerPort        string        `mapstructure:"server_port"`
	JWTSecret         string        `mapstructure:"jwt_secret"`
	ClusterName       string        `mapstructure:"cluster_name"`
	ExtraSubmitParams string        `mapstructure:"extra_submit_params"`
	Compute           ComputeConfig `mapstructure:"compute"`
	Sessions          SessionConfig `mapstructure:"sessions"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}
	if config.ClusterName == "" {
		config.ClusterName = "glintql"
	}
	if config.Compute.RequestTimeout == 0 {
		config.Compute.RequestTimeout = 30 * time.Second
	}

	if config.JWTSecret == "" {
		log.Fatal("JWT secret must be set in the config file")
	}
	if config.Compute.Endpoint == "" {
		log.Fatal("Compute endpoint must be set in the config file")
	}
	if config.Compute.ApplicationID == "" {
		log.Fatal("Compute application id must be set in the config file")
	}

	return &config
}
