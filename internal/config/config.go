package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type AppConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DbConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
}

type JWTConfig struct {
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	JWTKID      string
}

type CookieConfig struct {
	Domain   string
	Secure   bool
	SameSite string
}

type RedisConfig struct {
	Addr     string
	Password string
	ListTTL  time.Duration
}

type Config struct {
	AppConfig    *AppConfig
	DbConfig     *DbConfig
	JWTConfig    *JWTConfig
	CookieConfig *CookieConfig
	RedisConfig  *RedisConfig
}

func LoadConfig() (*Config, error) {
	/** db config */
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is not set")
	}

	maxOpenConns, err := intEnv("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return nil, err
	}
	maxIdleConns, err := intEnv("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return nil, err
	}
	maxConnLifetime, err := durationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	dbConfig := &DbConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		MaxConnLifetime: maxConnLifetime,
	}

	/** app config */
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	readTimeout, err := durationEnv("APP_READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	writeTimeout, err := durationEnv("APP_WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	idleTimeout, err := durationEnv("APP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, err
	}

	appConfig := &AppConfig{
		Port:         port,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	/** jwt config */
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	accessTTL, err := durationEnv("ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	refreshTTL, err := durationEnv("REFRESH_TTL", 720*time.Hour)
	if err != nil {
		return nil, err
	}
	jwtConfig := &JWTConfig{
		AccessTTL:   accessTTL,
		RefreshTTL:  refreshTTL,
		JWTSecret:   secret,
		JWTIssuer:   os.Getenv("JWT_ISSUER"),
		JWTAudience: os.Getenv("JWT_AUDIENCE"),
		JWTKID:      os.Getenv("JWT_KID"),
	}

	/** cookie config */
	cookieConfig := &CookieConfig{
		Domain:   os.Getenv("COOKIE_DOMAIN"),
		Secure:   os.Getenv("COOKIE_SECURE") == "true",
		SameSite: os.Getenv("COOKIE_SAMESITE"),
	}

	/** redis config */
	listTTL, err := durationEnv("REDIS_LIST_TTL", 2*time.Minute)
	if err != nil {
		return nil, err
	}
	redisConfig := &RedisConfig{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		ListTTL:  listTTL,
	}

	return &Config{
		DbConfig:     dbConfig,
		AppConfig:    appConfig,
		JWTConfig:    jwtConfig,
		CookieConfig: cookieConfig,
		RedisConfig:  redisConfig,
	}, nil
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
