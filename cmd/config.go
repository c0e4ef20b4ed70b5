package main

import "time"

// Config holds everything the login client reads from the environment.
type Config struct {
	ServerURL      string        `env:"KO_SERVER_URL" env-default:"http://localhost:8080"`
	RequestTimeout time.Duration `env:"KO_REQUEST_TIMEOUT" env-default:"10s"`

	LogLevel  string `env:"APP_LOG_LEVEL" env-default:"info"`
	LogOutput string `env:"APP_LOG_OUTPUT" env-default:"stderr"`

	SettingsBackend string `env:"SETTINGS_BACKEND" env-default:"file"`
	SettingsFile    string `env:"SETTINGS_FILE"`
	SQLDriver       string `env:"SQL_DRIVER" env-default:"sqlite"`
	SQLDSN          string `env:"SQL_DSN"`

	RedisHost         string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort         int    `env:"REDIS_PORT" env-default:"6379"`
	RedisDB           int    `env:"REDIS_DB" env-default:"0"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisPoolSize     int    `env:"REDIS_POOL_SIZE" env-default:"10"`
	RedisMinIdleConns int    `env:"REDIS_MIN_IDLE_CONNS" env-default:"2"`

	ProfileBackend string        `env:"PROFILE_BACKEND" env-default:"file"`
	ProfileFile    string        `env:"PROFILE_FILE"`
	ProfileTTL     time.Duration `env:"PROFILE_TTL" env-default:"24h"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" env-separator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" env-default:"kologin.logins"`

	OpenBrowser bool   `env:"OPEN_BROWSER" env-default:"false"`
	CaptchaDir  string `env:"CAPTCHA_DIR"`
	MaxAttempts int    `env:"LOGIN_MAX_ATTEMPTS" env-default:"5"`
}
