package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App          AppSettings          `mapstructure:"app"`
	Postgres     PostgresSettings     `mapstructure:"postgres"`
	Redis        RedisSettings        `mapstructure:"redis"`
	Kafka        KafkaSettings        `mapstructure:"kafka"`
	SMS          SMSSettings          `mapstructure:"sms"`
	Verification VerificationSettings `mapstructure:"verification"`
	LoginToken   LoginTokenSettings   `mapstructure:"login_token"`
	RateLimit    RateLimitSettings    `mapstructure:"rate_limit"`
	Argon2       Argon2Settings       `mapstructure:"argon2"`
	CORS         CORSSettings         `mapstructure:"cors"`
	Telemetry    TelemetrySettings    `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	MigrateOnStart    bool          `mapstructure:"migrate_on_start"`
}

// DSN renders the connection string used by the pool and the migration runner.
func (s PostgresSettings) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.User, s.Password, s.Host, s.Port, s.Database, s.SSLMode,
	)
}

// RedisSettings configures Redis connection and TLS.
type RedisSettings struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	DB                 int    `mapstructure:"db"`
	Password           string `mapstructure:"password"`
	TLSEnabled         bool   `mapstructure:"tls_enabled"`
	VerificationPrefix string `mapstructure:"verification_prefix"`
	IdempotencyPrefix  string `mapstructure:"idempotency_prefix"`
	RateLimitPrefix    string `mapstructure:"rate_limit_prefix"`
}

// KafkaSettings configures the Kafka producer.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// SMSSettings configures the SMS delivery channel. An empty gateway URL keeps
// delivery on the development log sender.
type SMSSettings struct {
	GatewayURL string        `mapstructure:"gateway_url"`
	APIKey     string        `mapstructure:"api_key"`
	SenderID   string        `mapstructure:"sender_id"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// VerificationSettings tunes the one-time code exchange.
type VerificationSettings struct {
	CodeLength  int           `mapstructure:"code_length"`
	CodeTTL     time.Duration `mapstructure:"code_ttl"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	EmailTTL    time.Duration `mapstructure:"email_ttl"`
}

// LoginTokenSettings configures the one-time phone-login token.
type LoginTokenSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// RateLimitSettings configures rate limiting windows and max attempts per endpoint.
type RateLimitSettings struct {
	WindowDuration          time.Duration `mapstructure:"window_duration"`
	SendCodeMaxAttempts     int           `mapstructure:"send_code_max_attempts"`
	VerifyCodeMaxAttempts   int           `mapstructure:"verify_code_max_attempts"`
	RegisterMaxAttempts     int           `mapstructure:"register_max_attempts"`
	AvailabilityMaxAttempts int           `mapstructure:"availability_max_attempts"`
}

// Argon2Settings configures Argon2id password hashing parameters.
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

// CORSSettings lists origins allowed to call the onboarding API.
type CORSSettings struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("ONBOARDING")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"postgres.migrate_on_start",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.verification_prefix",
		"redis.idempotency_prefix",
		"redis.rate_limit_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"sms.gateway_url",
		"sms.api_key",
		"sms.sender_id",
		"sms.timeout",
		"verification.code_length",
		"verification.code_ttl",
		"verification.max_attempts",
		"verification.email_ttl",
		"login_token.secret",
		"login_token.issuer",
		"login_token.ttl",
		"rate_limit.window_duration",
		"rate_limit.send_code_max_attempts",
		"rate_limit.verify_code_max_attempts",
		"rate_limit.register_max_attempts",
		"rate_limit.availability_max_attempts",
		"argon2.memory",
		"argon2.iterations",
		"argon2.parallelism",
		"argon2.salt_length",
		"argon2.key_length",
		"cors.allowed_origins",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "tenant-onboarding")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "onboarding")
	v.SetDefault("postgres.password", "onboarding_password")
	v.SetDefault("postgres.database", "onboarding")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")
	v.SetDefault("postgres.migrate_on_start", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.verification_prefix", "onboarding:verification")
	v.SetDefault("redis.idempotency_prefix", "onboarding:idempotency")
	v.SetDefault("redis.rate_limit_prefix", "onboarding:rate-limit")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "onboarding")
	v.SetDefault("kafka.async", true)

	v.SetDefault("sms.gateway_url", "")
	v.SetDefault("sms.api_key", "")
	v.SetDefault("sms.sender_id", "WASHLYTICS")
	v.SetDefault("sms.timeout", "10s")

	v.SetDefault("verification.code_length", 6)
	v.SetDefault("verification.code_ttl", "10m")
	v.SetDefault("verification.max_attempts", 5)
	v.SetDefault("verification.email_ttl", "24h")

	v.SetDefault("login_token.secret", "")
	v.SetDefault("login_token.issuer", "washlytics-onboarding")
	v.SetDefault("login_token.ttl", "5m")

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.send_code_max_attempts", 3)
	v.SetDefault("rate_limit.verify_code_max_attempts", 10)
	v.SetDefault("rate_limit.register_max_attempts", 3)
	v.SetDefault("rate_limit.availability_max_attempts", 30)

	v.SetDefault("argon2.memory", 65536)
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.service_name", "tenant-onboarding")
	v.SetDefault("telemetry.sampling_rate", 1.0)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "ONBOARDING_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
