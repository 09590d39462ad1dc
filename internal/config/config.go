package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN               string
	MaxOpen           int
	MaxIdle           int
	ConnMaxLifetime   time.Duration
	MigrationsOnStart bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	// Driver selects the media host: "minio" or "s3".
	Driver         string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
	Region         string
	PublicBaseURL  string
	UploadTimeout  time.Duration
	MaxUploadBytes int64
}

type PasswordConfig struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

type SecurityConfig struct {
	JWTAccessSecret  string
	JWTRefreshSecret string
	JWTAccessTTL     time.Duration
	JWTRefreshTTL    time.Duration
	Issuer           string
	CookieSecure     bool
	CookieDomain     string
	Password         PasswordConfig
}

type MediaConfig struct {
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
	SweepSchedule string
	SweepGrace    time.Duration

	// MetricsAddr is where the worker serves /metrics. Empty disables it.
	MetricsAddr string
}

type LogConfig struct {
	Level string
}

type AppConfig struct {
	Environment      string
	Log              LogConfig
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Media            MediaConfig
	AllowCORSOrigins []string
}

// Process names the binary loading the config. Each one validates only the
// sections it uses.
type Process int

const (
	ProcessAPI Process = iota
	ProcessWorker
	ProcessMigrate
)

func Load(process Process) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("ACCOUNTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v, process)
}

func decode(v *viper.Viper, process Process) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(process); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations process cannot run with. Token settings
// are only checked for the API, the one process that issues tokens.
func (c *AppConfig) Validate(process Process) error {
	if process == ProcessMigrate {
		return nil
	}
	if process == ProcessAPI {
		if err := c.validateSecurity(); err != nil {
			return err
		}
	}
	switch c.Storage.Driver {
	case "minio", "s3":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

func (c *AppConfig) validateSecurity() error {
	if c.Security.JWTAccessSecret == "" || c.Security.JWTRefreshSecret == "" {
		return errors.New("config: security.jwtaccesssecret and security.jwtrefreshsecret are required")
	}
	if c.Security.JWTAccessSecret == c.Security.JWTRefreshSecret {
		return errors.New("config: access and refresh token secrets must differ")
	}
	if c.Security.JWTAccessTTL <= 0 || c.Security.JWTRefreshTTL <= 0 {
		return errors.New("config: token ttls must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log.level", "info")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8000)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "30s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 20)
	v.SetDefault("postgres.maxidle", 5)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.migrationsonstart", true)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.driver", "minio")
	v.SetDefault("storage.endpoint", "127.0.0.1:9000")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.bucket", "vidnest-media")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.publicbaseurl", "")
	v.SetDefault("storage.uploadtimeout", "20s")
	v.SetDefault("storage.maxuploadbytes", 10<<20)

	v.SetDefault("security.jwtaccesssecret", "")
	v.SetDefault("security.jwtrefreshsecret", "")
	v.SetDefault("security.jwtaccessttl", "1h")
	v.SetDefault("security.jwtrefreshttl", "240h") // 10 days
	v.SetDefault("security.issuer", "vidnest-accounts")
	v.SetDefault("security.cookiesecure", true)
	v.SetDefault("security.cookiedomain", "")
	v.SetDefault("security.password.time", 3)
	v.SetDefault("security.password.memory", 64*1024)
	v.SetDefault("security.password.threads", 2)

	v.SetDefault("media.stream", "media:discard")
	v.SetDefault("media.group", "media-janitors")
	v.SetDefault("media.consumer", "janitor-1")
	v.SetDefault("media.claiminterval", "30s")
	v.SetDefault("media.sweepschedule", "0 30 3 * * *")
	v.SetDefault("media.sweepgrace", "24h")
	v.SetDefault("media.metricsaddr", ":9102")

	v.SetDefault("allowcorsorigins", []string{})
}
