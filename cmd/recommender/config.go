package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dinhhieu2003/toeic-recommender/internal/logger"
	"github.com/dinhhieu2003/toeic-recommender/internal/recommend"
)

// ServerConfig maps configs/server.yaml.
type ServerConfig struct {
	Server struct {
		Port     string `yaml:"port"`
		Debug    bool   `yaml:"debug"`
		APIToken string `yaml:"api_token"`
	} `yaml:"server"`
	Backend struct {
		BaseURL        string `yaml:"base_url"`
		APIKey         string `yaml:"api_key"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		MaxRetries     int    `yaml:"max_retries"`
	} `yaml:"backend"`
	Recommend recommend.Config `yaml:"recommend"`
	Served    struct {
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"served"`
}

func loadServerConfig(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// InitServerConfig resolves configuration with the precedence:
// command-line flags > environment > config file > defaults.
func InitServerConfig() *ServerConfig {
	configPath := flag.String("config", "configs/server.yaml", "Path to server config file")
	portFlag := flag.String("port", "", "Server port")
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	servedPathFlag := flag.String("served", "", "Path to served.jsonl")
	flag.Parse()

	// 1. Defaults.
	cfg := &ServerConfig{}
	cfg.Server.Port = "8080"
	cfg.Backend.BaseURL = "http://backend-api:8000"
	cfg.Backend.TimeoutSeconds = 10
	cfg.Backend.MaxRetries = 2
	cfg.Recommend = recommend.DefaultConfig()
	cfg.Served.Path = "data/served.jsonl"
	cfg.Served.RetentionDays = 30

	// 2. Config file, when present.
	if loaded, err := loadServerConfig(*configPath); err == nil {
		if loaded.Server.Port != "" {
			cfg.Server.Port = loaded.Server.Port
		}
		if loaded.Server.Debug {
			cfg.Server.Debug = true
		}
		if loaded.Server.APIToken != "" {
			cfg.Server.APIToken = loaded.Server.APIToken
		}
		if loaded.Backend.BaseURL != "" {
			cfg.Backend.BaseURL = loaded.Backend.BaseURL
		}
		if loaded.Backend.APIKey != "" {
			cfg.Backend.APIKey = loaded.Backend.APIKey
		}
		if loaded.Backend.TimeoutSeconds > 0 {
			cfg.Backend.TimeoutSeconds = loaded.Backend.TimeoutSeconds
		}
		if loaded.Backend.MaxRetries > 0 {
			cfg.Backend.MaxRetries = loaded.Backend.MaxRetries
		}
		if loaded.Recommend.MaxCount > 0 {
			cfg.Recommend = loaded.Recommend
		}
		if loaded.Served.Path != "" {
			cfg.Served.Path = loaded.Served.Path
		}
		if loaded.Served.RetentionDays > 0 {
			cfg.Served.RetentionDays = loaded.Served.RetentionDays
		}
	} else {
		logger.Info("Could not load config file '%s': %v. Using defaults, env and flags.", *configPath, err)
	}

	// 3. Environment, for deployment overrides and secrets. A .env file
	// is a convenience for local runs; absence is not an error.
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using process environment")
	}
	if v := os.Getenv("BACKEND_API_BASE_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("INTERNAL_API_KEY"); v != "" {
		cfg.Backend.APIKey = v
	}
	if v := os.Getenv("SERVICE_API_TOKEN"); v != "" {
		cfg.Server.APIToken = v
	}

	// 4. Flags win.
	if *portFlag != "" {
		cfg.Server.Port = *portFlag
	}
	if *debugFlag {
		cfg.Server.Debug = true
	}
	if *servedPathFlag != "" {
		cfg.Served.Path = *servedPathFlag
	}

	if cfg.Backend.APIKey == "" {
		logger.Warn("INTERNAL_API_KEY not configured. Backend internal API calls will fail.")
	}

	return cfg
}
