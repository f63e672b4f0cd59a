// Package config provides configuration loading, defaults, and validation.
package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	aesKeyLength = 32
	aesIVLength  = 16
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Security   SecurityConfig   `mapstructure:"security"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Google     GoogleConfig     `mapstructure:"google"`
	Drive      DriveConfig      `mapstructure:"drive"`
	AES        AESConfig        `mapstructure:"aes"`
	Pairing    PairingConfig    `mapstructure:"pairing"`
	Protection ProtectionConfig `mapstructure:"protection"`
}

type ServerConfig struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	Mode              string `mapstructure:"mode"`
	ReadHeaderTimeout int    `mapstructure:"read_header_timeout"` // seconds
	IdleTimeout       int    `mapstructure:"idle_timeout"`        // seconds
}

func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LogConfig struct {
	Level           string            `mapstructure:"level"`
	Format          string            `mapstructure:"format"`
	ServiceName     string            `mapstructure:"service_name"`
	Environment     string            `mapstructure:"env"`
	Caller          bool              `mapstructure:"caller"`
	StacktraceLevel string            `mapstructure:"stacktrace_level"`
	Output          LogOutputConfig   `mapstructure:"output"`
	Rotation        LogRotationConfig `mapstructure:"rotation"`
}

type LogOutputConfig struct {
	ToStdout bool   `mapstructure:"to_stdout"`
	ToFile   bool   `mapstructure:"to_file"`
	FilePath string `mapstructure:"file_path"`
}

type LogRotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
	LocalTime  bool `mapstructure:"local_time"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type SecurityConfig struct {
	CSP CSPConfig `mapstructure:"csp"`
}

type CSPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Policy  string `mapstructure:"policy"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GoogleConfig carries the OAuth client identity used when building consent
// URLs and when checking token audience in the protection service.
type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	// Host is the externally visible base URL of this service, used to
	// build OAuth redirect URIs.
	Host string `mapstructure:"host"`
}

// DriveConfig locates the encrypted account blob inside the user's Drive.
type DriveConfig struct {
	ApplicationName string `mapstructure:"application_name"`
	FolderName      string `mapstructure:"folder_name"`
	// FileNameTemplate may contain the %AESID% placeholder, replaced with
	// a short identifier of the active key/IV generation so rotated keys
	// produce distinct files.
	FileNameTemplate string `mapstructure:"file_name_template"`
}

// AESConfig holds the base64-encoded base key material. The effective
// per-user key/IV are derived from these salted with the account email.
type AESConfig struct {
	Key string `mapstructure:"key"`
	IV  string `mapstructure:"iv"`
}

// KeyBytes decodes the configured base key material.
func (c AESConfig) KeyBytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(c.Key)
}

// IVBytes decodes the configured base IV material.
func (c AESConfig) IVBytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(c.IV)
}

type PairingConfig struct {
	TempSessionTTL   time.Duration `mapstructure:"temp_session_ttl"`
	DeviceSessionTTL time.Duration `mapstructure:"device_session_ttl"`
}

// ProtectionConfig controls the Cross-Account Protection security checker.
type ProtectionConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	RequiredScopes []string      `mapstructure:"required_scopes"`
	CheckInterval  time.Duration `mapstructure:"check_interval"`
}

// Load reads the configuration from config.yaml plus environment overrides
// and validates it.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/gdrive-account")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.read_header_timeout", 30)
	viper.SetDefault("server.idle_timeout", 120)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
	viper.SetDefault("log.service_name", "gdrive-account")
	viper.SetDefault("log.env", "production")
	viper.SetDefault("log.caller", true)
	viper.SetDefault("log.stacktrace_level", "error")
	viper.SetDefault("log.output.to_stdout", true)
	viper.SetDefault("log.output.to_file", false)
	viper.SetDefault("log.rotation.max_size_mb", 100)
	viper.SetDefault("log.rotation.max_backups", 10)
	viper.SetDefault("log.rotation.max_age_days", 7)
	viper.SetDefault("log.rotation.compress", true)

	viper.SetDefault("cors.allowed_origins", []string{})
	viper.SetDefault("cors.allow_credentials", false)

	viper.SetDefault("security.csp.enabled", false)
	viper.SetDefault("security.csp.policy", "")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("google.host", "https://google.biatec.io")

	viper.SetDefault("drive.application_name", "Biatec")
	viper.SetDefault("drive.folder_name", "Biatec")
	viper.SetDefault("drive.file_name_template", "AVMAccount-%AESID%.dat")

	viper.SetDefault("pairing.temp_session_ttl", 5*time.Minute)
	viper.SetDefault("pairing.device_session_ttl", 24*time.Hour)

	viper.SetDefault("protection.enabled", false)
	viper.SetDefault("protection.required_scopes", []string{
		"https://www.googleapis.com/auth/drive.file",
		"https://www.googleapis.com/auth/userinfo.email",
	})
	viper.SetDefault("protection.check_interval", time.Hour)
}

// Validate checks invariants the rest of the service relies on. AES material
// lengths are enforced here so key derivation never sees malformed input.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Google.ClientID) == "" {
		return fmt.Errorf("google.client_id is required")
	}
	if strings.TrimSpace(c.Google.ClientSecret) == "" {
		return fmt.Errorf("google.client_secret is required")
	}
	if _, err := url.Parse(c.Google.Host); err != nil {
		return fmt.Errorf("google.host is not a valid URL: %w", err)
	}

	key, err := c.AES.KeyBytes()
	if err != nil {
		return fmt.Errorf("aes.key is not valid base64: %w", err)
	}
	if len(key) != aesKeyLength {
		return fmt.Errorf("aes.key must decode to %d bytes, got %d", aesKeyLength, len(key))
	}
	iv, err := c.AES.IVBytes()
	if err != nil {
		return fmt.Errorf("aes.iv is not valid base64: %w", err)
	}
	if len(iv) != aesIVLength {
		return fmt.Errorf("aes.iv must decode to %d bytes, got %d", aesIVLength, len(iv))
	}

	if strings.TrimSpace(c.Drive.FolderName) == "" {
		return fmt.Errorf("drive.folder_name is required")
	}
	if strings.TrimSpace(c.Drive.FileNameTemplate) == "" {
		return fmt.Errorf("drive.file_name_template is required")
	}

	if c.Pairing.TempSessionTTL <= 0 {
		return fmt.Errorf("pairing.temp_session_ttl must be positive")
	}
	if c.Pairing.DeviceSessionTTL <= 0 {
		return fmt.Errorf("pairing.device_session_ttl must be positive")
	}
	return nil
}
