package config

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	Port          int    `env:"PORT,default=8080"`
	GinMode       string `env:"GIN_MODE,default=debug"`
	MongoURI      string `env:"MONGODB_URI,required=true"`
	MongoDatabase string `env:"MONGODB_DATABASE,default=crewchat"`
	JWTSecret     string `env:"JWT_SECRET,required=true"`

	// Comma-separated list of allowed CORS origins.
	AllowedOrigins string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`

	VapidPublicKey  string `env:"VAPID_PUBLIC_KEY"`
	VapidPrivateKey string `env:"VAPID_PRIVATE_KEY"`
	VapidSubscriber string `env:"VAPID_SUBSCRIBER,default=mailto:admin@crewchat.dev"`

	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS,default=120"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	return cfg, nil
}

// Origins splits the configured CORS origin list.
func (c Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
