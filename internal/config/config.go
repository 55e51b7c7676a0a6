package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig     `envPrefix:"SERVER_"`
	Database   DatabaseConfig   `envPrefix:"DATABASE_"`
	ChangeFeed ChangeFeedConfig `envPrefix:"CHANGEFEED_"`
	Kafka      KafkaConfig      `envPrefix:"KAFKA_"`
	Redis      RedisConfig      `envPrefix:"REDIS_"`
	Feed       FeedConfig       `envPrefix:"FEED_"`
	Session    SessionConfig    `envPrefix:"SESSION_"`
	RateLimit  RateLimitConfig  `envPrefix:"RATE_LIMIT_"`
	Log        LogConfig        `envPrefix:"LOG_"`
}

type ServerConfig struct {
	Port          string `env:"PORT" envDefault:"8080"`
	Host          string `env:"HOST" envDefault:"0.0.0.0"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	CORSOrigins   string `env:"CORS_ORIGINS" envDefault:".*"`
}

func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

type DatabaseConfig struct {
	Hosts    []string `env:"HOSTS" envDefault:"localhost:27017" envSeparator:","`
	Direct   bool     `env:"DIRECT" envDefault:"false"`
	Username string   `env:"USERNAME"`
	Password string   `env:"PASSWORD"`
	AuthDB   string   `env:"AUTH_DB" envDefault:"admin"`
	Database string   `env:"DATABASE" envDefault:"kvrp"`
}

// ChangeFeedConfig selects the push channel feeding live views.
type ChangeFeedConfig struct {
	Driver string `env:"DRIVER" envDefault:"mongo"` // mongo, kafka, redis
	Prefix string `env:"PREFIX" envDefault:"kvrp"`
	Buffer int    `env:"BUFFER" envDefault:"64"`
}

type KafkaConfig struct {
	Brokers []string `env:"BROKERS" envDefault:"localhost:9092" envSeparator:","`
	GroupID string   `env:"GROUP_ID" envDefault:"kvrp-feed"`
	Version string   `env:"VERSION" envDefault:"3.6.0"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type FeedConfig struct {
	LoadTimeout     time.Duration `env:"LOAD_TIMEOUT" envDefault:"10s"`
	MutationTimeout time.Duration `env:"MUTATION_TIMEOUT" envDefault:"10s"`
	MaxImageBytes   int64         `env:"MAX_IMAGE_BYTES" envDefault:"5242880"`
	MaxVoiceLength  time.Duration `env:"MAX_VOICE_LENGTH" envDefault:"30s"`
	MaxVoiceBytes   int64         `env:"MAX_VOICE_BYTES" envDefault:"10485760"`
}

type SessionConfig struct {
	DataDir        string        `env:"DATA_DIR" envDefault:"./data"`
	TTL            time.Duration `env:"TTL" envDefault:"720h"`
	AdminUsernames []string      `env:"ADMIN_USERNAMES" envSeparator:","`
	BcryptCost     int           `env:"BCRYPT_COST" envDefault:"10"`
}

type RateLimitConfig struct {
	RPS   float64 `env:"RPS" envDefault:"5"`
	Burst int     `env:"BURST" envDefault:"10"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func (c *Config) validate() error {
	switch c.ChangeFeed.Driver {
	case "mongo", "kafka", "redis":
	default:
		return fmt.Errorf("unknown change feed driver %q", c.ChangeFeed.Driver)
	}
	if c.Feed.MaxImageBytes <= 0 {
		return errors.New("FEED_MAX_IMAGE_BYTES must be positive")
	}
	if c.Feed.MaxVoiceLength <= 0 {
		return errors.New("FEED_MAX_VOICE_LENGTH must be positive")
	}
	return nil
}
