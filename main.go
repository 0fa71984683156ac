package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	log "go-policy-wizard/logging"
	"go-policy-wizard/metrics"
	redis "go-policy-wizard/redis"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerConfig ServerConfig `json:"server_config"`

	LogLevel  string `json:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty"`

	PartnerApiUrl   string `json:"partner_api_url"`
	PartnerApiToken string `json:"partner_api_token,omitempty"`
	LookupApiUrl    string `json:"lookup_api_url"`
	LookupApiToken  string `json:"lookup_api_token,omitempty"`

	JwtSecret string `json:"jwt_secret,omitempty"`

	StorageType         string                    `json:"storage_type"`
	RedisConfig         redis.RedisConfig         `json:"redis_config,omitempty"`
	RedisSentinelConfig redis.RedisSentinelConfig `json:"redis_sentinel_config,omitempty"`
}

func main() {
	configPath := flag.String("config", "", "Path for the config.json to use")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "please provide a config path using the --config flag")
		os.Exit(1)
	}

	// Secrets come from the environment; a local .env is optional.
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "no .env file loaded: %v\n", err)
	}

	config, err := readConfigFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read config file: %v\n", err)
		os.Exit(1)
	}
	applyEnvOverrides(&config)

	log.InitLogger(config.LogLevel, config.LogFormat)
	logger := log.GetLogger()
	logger.Info("using config", "path", *configPath)
	logger.Info("hosting on", "host", config.ServerConfig.Host, "port", config.ServerConfig.Port)

	sessionStorage, err := createSessionStorage(&config)
	if err != nil {
		logger.Error("failed to instantiate session storage", "error", err)
		os.Exit(1)
	}

	var verifier *TokenVerifier
	if config.JwtSecret != "" {
		verifier = NewTokenVerifier(config.JwtSecret)
	} else {
		logger.Warn("no jwt secret configured, wizard routes are unauthenticated")
	}

	serverState := ServerState{
		registry:      NewSessionRegistry(sessionStorage),
		partnerAPI:    NewHttpPartnerClient(config.PartnerApiUrl, config.PartnerApiToken),
		lookupService: NewHttpLookupClient(config.LookupApiUrl, config.LookupApiToken),
		verifier:      verifier,
		metrics:       metrics.New(),
	}

	server, err := NewServer(&serverState, config.ServerConfig)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	err = server.ListenAndServe()
	if err != nil {
		logger.Error("failed to listen and serve", "error", err)
		os.Exit(1)
	}
}

func readConfigFile(path string) (Config, error) {
	configBytes, err := os.ReadFile(path)

	if err != nil {
		return Config{}, err
	}

	var config Config
	err = json.Unmarshal(configBytes, &config)

	if err != nil {
		return Config{}, err
	}

	return config, nil
}

// applyEnvOverrides lets secrets come from the environment instead of the
// config file, so the file can be committed without them.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("PARTNER_API_TOKEN"); v != "" {
		config.PartnerApiToken = v
	}
	if v := os.Getenv("LOOKUP_API_TOKEN"); v != "" {
		config.LookupApiToken = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		config.JwtSecret = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		config.RedisConfig.Password = v
		config.RedisSentinelConfig.Password = v
	}
}

func createSessionStorage(config *Config) (SessionStorage, error) {
	if config.StorageType == "redis" {
		log.GetLogger().Info("Using redis session storage")
		client, err := redis.NewRedisClient(&config.RedisConfig)
		if err != nil {
			return nil, err
		}
		return NewRedisSessionStorage(client, config.RedisConfig.Namespace), nil
	}
	if config.StorageType == "redis_sentinel" {
		log.GetLogger().Info("Using redis sentinel session storage")
		client, err := redis.NewRedisSentinelClient(&config.RedisSentinelConfig)
		if err != nil {
			return nil, err
		}
		return NewRedisSessionStorage(client, config.RedisSentinelConfig.Namespace), nil
	}
	if config.StorageType == "memory" {
		log.GetLogger().Info("Using in memory session storage")
		return NewInMemorySessionStorage(), nil
	}
	return nil, fmt.Errorf("%v is not a valid storage type", config.StorageType)
}
