package config

import (
	"time"

	mongoutil "ChatBuddy/data/database/mgo/mongoutil"
	"ChatBuddy/logger"
	redis "ChatBuddy/service/storage/redis"
	"ChatBuddy/tools/ids"
	"ChatBuddy/tools/security"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
)

// AppConfig is the full gateway configuration, populated from the
// environment. Defaults match a local single-node setup.
type AppConfig struct {
	GatewayID string `env:"GATEWAY_ID"`
	Port      int    `env:"CHAT_PORT" envDefault:"8080"`
	NodeID    int64  `env:"CHAT_NODE_ID" envDefault:"1"`

	JWTSecret string `env:"CHAT_JWT_SECRET" envDefault:"mN9b1f8zPq+W2xjX/45sKcVd0TfyoG+3Hp5Z8q9Rj1o="`
	JWTAlg    string `env:"CHAT_JWT_ALG" envDefault:"HS256"`

	RedisAddr     string `env:"CHAT_REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	RedisPassword string `env:"CHAT_REDIS_PASSWORD"`
	RedisDB       int    `env:"CHAT_REDIS_DB" envDefault:"0"`
	RedisPoolSize int    `env:"CHAT_REDIS_POOL" envDefault:"10"`

	MongoURI      string `env:"CHAT_MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"CHAT_MONGO_DB" envDefault:"chat"`
	MongoUser     string `env:"CHAT_MONGO_USER"`
	MongoPassword string `env:"CHAT_MONGO_PASSWORD"`
	MongoPoolSize int    `env:"CHAT_MONGO_POOL" envDefault:"20"`

	HandshakeTTL time.Duration `env:"CHAT_HANDSHAKE_TTL" envDefault:"60s"`
	SweepEvery   time.Duration `env:"CHAT_SWEEP_EVERY" envDefault:"10s"`

	HistoryQueue   int `env:"CHAT_HISTORY_QUEUE" envDefault:"1024"`
	HistoryWorkers int `env:"CHAT_HISTORY_WORKERS" envDefault:"2"`
}

// Load parses the environment and fills derived defaults.
func Load() (*AppConfig, error) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if cfg.GatewayID == "" {
		cfg.GatewayID = "gw-" + uuid.NewString()[:8]
	}
	return &cfg, nil
}

// ConfigIds pins the snowflake node bits to this gateway.
func ConfigIds(cfg *AppConfig) {
	logger.Infof("configuring id generator node=%d", cfg.NodeID)
	ids.SetNodeID(cfg.NodeID)
}

// ConfigRedis connects the shared redis client.
func ConfigRedis(cfg *AppConfig) error {
	return redis.Init(redis.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		PoolSize: cfg.RedisPoolSize,
	})
}

// MongoConfig builds the driver configuration for the chat database.
func MongoConfig(cfg *AppConfig) *mongoutil.Config {
	return &mongoutil.Config{
		Uri:         cfg.MongoURI,
		Database:    cfg.MongoDatabase,
		Username:    cfg.MongoUser,
		Password:    cfg.MongoPassword,
		MaxPoolSize: cfg.MongoPoolSize,
	}
}

// VerifierOptions builds token verification options.
func VerifierOptions(cfg *AppConfig) security.Options {
	return security.Options{Secret: []byte(cfg.JWTSecret), Alg: cfg.JWTAlg}
}
