package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Repositories struct {
		Postgres struct {
			Host     string `mapstructure:"host"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			Password string `mapstructure:"password"`
			DB       string `mapstructure:"db"`
			SSLMode  string `mapstructure:"sslmode"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	JWT   JWTConfig  `mapstructure:"jwt"`
	Auth  AuthConfig `mapstructure:"auth"`
	SMTP  SMTPConfig `mapstructure:"smtp"`
	OAuth struct {
		SessionSecret      string `mapstructure:"sessionSecret"`
		CallbackBaseURL    string `mapstructure:"callbackBaseURL"`
		GithubClientKey    string `mapstructure:"githubClientKey"`
		GithubClientSecret string `mapstructure:"githubClientSecret"`
		GoogleClientKey    string `mapstructure:"googleClientKey"`
		GoogleClientSecret string `mapstructure:"googleClientSecret"`
	} `mapstructure:"oauth"`
}

// JWTConfig holds the settings for issuing and validating access tokens.
type JWTConfig struct {
	SecretKey      string        `mapstructure:"secretKey"`
	AccessTokenTTL time.Duration `mapstructure:"accessTokenTTL"`
	Issuer         string        `mapstructure:"issuer"`
	Audience       string        `mapstructure:"audience"`
}

// AuthConfig holds the tunable constants of the verification handshake:
// 6-digit codes valid for 10 minutes, a 7-day session horizon and a
// 15-minute lock after 5 bad logins by default.
type AuthConfig struct {
	CodeLength       int           `mapstructure:"codeLength"`
	CodeTTL          time.Duration `mapstructure:"codeTTL"`
	SessionTTL       time.Duration `mapstructure:"sessionTTL"`
	RefreshDebounce  time.Duration `mapstructure:"refreshDebounce"`
	MaxFailedLogins  int           `mapstructure:"maxFailedLogins"`
	LockDuration     time.Duration `mapstructure:"lockDuration"`
	MinPasswordBits  float64       `mapstructure:"minPasswordBits"`
	UsernameCooldown time.Duration `mapstructure:"usernameCooldown"`
	VerifyRedirectTo string        `mapstructure:"verifyRedirectTo"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Env vars override file values, e.g. AIARCADE_SMTP_PASSWORD.
	v.SetEnvPrefix("AIARCADE")
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	return config, nil
}
