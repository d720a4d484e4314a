// Package config loads process settings from TESA_* environment variables,
// an optional .env file and bound command-line flags.
package config

import (
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "TESA"

const (
	KeyEnv             = "env"
	KeyOrganization    = "organization"
	KeyLogLevel        = "log_level"
	KeyDatabaseURL     = "database_url"
	KeyDBUser          = "db_user"
	KeyDBPassword      = "db_password"
	KeyDBHost          = "db_host"
	KeyDBPort          = "db_port"
	KeyDBName          = "db_name"
	KeyRedisURL        = "redis_url"
	KeySummaryCacheTTL = "summary_cache_ttl"
	KeyAPIHost         = "api_host"
	KeyAPIPort         = "api_port"
	KeyRequestTimeout  = "request_timeout"
)

// Environments in which no database is configured by default.
var localEnvs = map[string]bool{"development": true, "local": true, "dev": true, "test": true}

type Settings struct {
	Env             string
	Organization    string
	LogLevel        string
	DatabaseURL     string
	DBUser          string
	DBPassword      string
	DBHost          string
	DBPort          int
	DBName          string
	RedisURL        string
	SummaryCacheTTL time.Duration
	APIHost         string
	APIPort         int
	RequestTimeout  time.Duration
}

// New returns a viper instance with defaults and TESA_ env lookup.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault(KeyEnv, "development")
	v.SetDefault(KeyOrganization, "unknown-org")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyDatabaseURL, "")
	v.SetDefault(KeyDBUser, "saastesa")
	v.SetDefault(KeyDBPassword, "saastesa")
	v.SetDefault(KeyDBHost, "localhost")
	v.SetDefault(KeyDBPort, 5432)
	v.SetDefault(KeyDBName, "saastesa")
	v.SetDefault(KeyRedisURL, "")
	v.SetDefault(KeySummaryCacheTTL, 30*time.Second)
	v.SetDefault(KeyAPIHost, "0.0.0.0")
	v.SetDefault(KeyAPIPort, 8080)
	v.SetDefault(KeyRequestTimeout, 30*time.Second)
	return v
}

// LoadDotEnv loads path into the process environment if it exists. Variables
// already set are left alone.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "load %s", path)
	}
	return nil
}

// BindFlags binds every flag of fs whose name matches a settings key.
// Flag names use dashes where keys use underscores.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var result error
	fs.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err := v.BindPFlag(key, f); err != nil {
			result = multierror.Append(result, err)
		}
	})
	return result
}

func Load(v *viper.Viper) (Settings, error) {
	s := Settings{
		Env:             strings.ToLower(strings.TrimSpace(v.GetString(KeyEnv))),
		Organization:    v.GetString(KeyOrganization),
		LogLevel:        v.GetString(KeyLogLevel),
		DatabaseURL:     strings.TrimSpace(v.GetString(KeyDatabaseURL)),
		DBUser:          v.GetString(KeyDBUser),
		DBPassword:      v.GetString(KeyDBPassword),
		DBHost:          v.GetString(KeyDBHost),
		DBPort:          v.GetInt(KeyDBPort),
		DBName:          v.GetString(KeyDBName),
		RedisURL:        strings.TrimSpace(v.GetString(KeyRedisURL)),
		SummaryCacheTTL: v.GetDuration(KeySummaryCacheTTL),
		APIHost:         v.GetString(KeyAPIHost),
		APIPort:         v.GetInt(KeyAPIPort),
		RequestTimeout:  v.GetDuration(KeyRequestTimeout),
	}
	if s.APIPort <= 0 || s.APIPort > 65535 {
		return s, errors.WithHint(errors.Newf("invalid api port %d", s.APIPort), "set TESA_API_PORT to a value in 1..65535")
	}
	if s.RequestTimeout <= 0 {
		return s, errors.WithHint(errors.New("request timeout must be positive"), "set TESA_REQUEST_TIMEOUT, e.g. 30s")
	}
	return s, nil
}

// PostgresDSN reports the DSN the process should persist to. An explicit
// database URL always wins; local environments otherwise run in memory.
func (s Settings) PostgresDSN() (string, bool) {
	if s.DatabaseURL != "" {
		return s.DatabaseURL, true
	}
	if localEnvs[s.Env] {
		return "", false
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(s.DBUser, s.DBPassword),
		Host:     net.JoinHostPort(s.DBHost, strconv.Itoa(s.DBPort)),
		Path:     "/" + s.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String(), true
}

func (s Settings) Addr() string {
	return net.JoinHostPort(s.APIHost, strconv.Itoa(s.APIPort))
}
