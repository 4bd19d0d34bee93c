package config

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"

	HashBcrypt   = "bcrypt"
	HashArgon2id = "argon2id"
)

type Config struct {
	DatabaseURL string
	HTTPAddress string

	JWTSecret       string
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	SessionStore         string
	SessionPurgeInterval time.Duration

	RedisAddress  string
	RedisPassword string
	RedisDB       int

	PasswordHashAlgo string
	BcryptCost       int

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	FrontendURL        string

	AllowedOrigins   []string
	AllowCredentials bool
	CookieDomain     string
	CookieSecure     bool

	LogLevel string
}

var defaults = map[string]any{
	"HTTP_ADDRESS":           ":3000",
	"ACCESS_TOKEN_TTL":       "1h",
	"REFRESH_TOKEN_TTL":      "7d",
	"SESSION_STORE":          SessionStorePostgres,
	"SESSION_PURGE_INTERVAL": "10m",
	"REDIS_DB":               0,
	"PASSWORD_HASH_ALGO":     HashBcrypt,
	"BCRYPT_COST":            10,
	"ALLOW_CREDENTIALS":      true,
	"COOKIE_SECURE":          true,
	"LOG_LEVEL":              "info",
}

var required = []string{
	"DATABASE_URL",
	"JWT_SECRET",
	"GOOGLE_CLIENT_ID",
	"GOOGLE_CLIENT_SECRET",
	"GOOGLE_REDIRECT_URI",
	"FRONTEND_URL",
}

// Load reads the configuration from the environment and an optional
// config.json in the working directory. Environment values win.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var missing []string
	for _, k := range required {
		if strings.TrimSpace(v.GetString(k)) == "" {
			missing = append(missing, k)
		}
	}

	cfg := &Config{
		DatabaseURL:        v.GetString("DATABASE_URL"),
		HTTPAddress:        v.GetString("HTTP_ADDRESS"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		Issuer:             v.GetString("JWT_ISSUER"),
		SessionStore:       strings.ToLower(v.GetString("SESSION_STORE")),
		RedisAddress:       v.GetString("REDIS_ADDRESS"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            v.GetInt("REDIS_DB"),
		PasswordHashAlgo:   strings.ToLower(v.GetString("PASSWORD_HASH_ALGO")),
		BcryptCost:         v.GetInt("BCRYPT_COST"),
		GoogleClientID:     v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURI:  v.GetString("GOOGLE_REDIRECT_URI"),
		FrontendURL:        v.GetString("FRONTEND_URL"),
		AllowedOrigins:     splitList(v.GetString("ALLOWED_ORIGINS")),
		AllowCredentials:   v.GetBool("ALLOW_CREDENTIALS"),
		CookieDomain:       v.GetString("COOKIE_DOMAIN"),
		CookieSecure:       v.GetBool("COOKIE_SECURE"),
		LogLevel:           v.GetString("LOG_LEVEL"),
	}

	switch cfg.SessionStore {
	case SessionStorePostgres:
	case SessionStoreRedis:
		if cfg.RedisAddress == "" {
			missing = append(missing, "REDIS_ADDRESS")
		}
	default:
		return nil, fmt.Errorf("SESSION_STORE: unknown store %q", cfg.SessionStore)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{cfg.FrontendURL}
	}
	// browsers refuse credentialed responses with a wildcard origin
	if cfg.AllowCredentials && slices.Contains(cfg.AllowedOrigins, "*") {
		return nil, errors.New(`ALLOWED_ORIGINS: "*" cannot be combined with ALLOW_CREDENTIALS`)
	}

	switch cfg.PasswordHashAlgo {
	case HashBcrypt, HashArgon2id:
	default:
		return nil, fmt.Errorf("PASSWORD_HASH_ALGO: unknown algorithm %q", cfg.PasswordHashAlgo)
	}

	var err error
	if cfg.AccessTokenTTL, err = ParseTTL(v.GetString("ACCESS_TOKEN_TTL")); err != nil {
		return nil, fmt.Errorf("ACCESS_TOKEN_TTL: %w", err)
	}
	if cfg.RefreshTokenTTL, err = ParseTTL(v.GetString("REFRESH_TOKEN_TTL")); err != nil {
		return nil, fmt.Errorf("REFRESH_TOKEN_TTL: %w", err)
	}
	if cfg.SessionPurgeInterval, err = ParseTTL(v.GetString("SESSION_PURGE_INTERVAL")); err != nil {
		return nil, fmt.Errorf("SESSION_PURGE_INTERVAL: %w", err)
	}

	return cfg, nil
}

// ParseTTL accepts Go durations ("90m", "1h") and whole days ("7d").
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid ttl %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("ttl must be positive, got %q", s)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
