package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort               string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL            string `env:"DATABASE_URL"`
	JWTSecret              string `env:"JWT_SECRET"`
	JWTIssuer              string `env:"JWT_ISSUER" envDefault:"campus-cart"`
	JWTAccessTTLMinutes    int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"60"`
	RedisAddr              string `env:"REDIS_ADDR"`
	RedisPassword          string `env:"REDIS_PASSWORD"`
	RedisDB                int    `env:"REDIS_DB" envDefault:"0"`
	MessageRateMax         int    `env:"MESSAGE_RATE_MAX" envDefault:"30"`
	MessageRateWindowSecs  int    `env:"MESSAGE_RATE_WINDOW_SECONDS" envDefault:"60"`
	MessageMaxLength       int    `env:"MESSAGE_MAX_LENGTH" envDefault:"2000"`
	WSAllowedOrigins       string `env:"WS_ALLOWED_ORIGINS"`
	WSSendBuffer           int    `env:"WS_SEND_BUFFER" envDefault:"16"`
	ShutdownTimeoutSeconds int    `env:"SHUTDOWN_TIMEOUT_SECONDS" envDefault:"10"`
	DevSeed                bool   `env:"DEV_SEED" envDefault:"false"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AllowedOrigins devuelve la lista de orígenes aceptados para el canal push.
// Una lista vacía significa "mismo origen".
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.WSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.MessageRateWindowSecs) * time.Second
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}
