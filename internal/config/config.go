package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/tipshjalpen/resultat/internal/logger"
	"github.com/tipshjalpen/resultat/pkg/results"
)

// EnvPrefix is prepended to every environment override, eg TIPSHJALPEN_DATA_DIR
const EnvPrefix = "TIPSHJALPEN"

// Config holds application configuration.
type Config struct {
	DataDir     string     `mapstructure:"data_dir"`     // base directory for relative league paths
	DefaultYear int        `mapstructure:"default_year"` // season year used until a header line says otherwise
	Malformed   string     `mapstructure:"malformed"`    // "skip" or "fail"
	LogLevel    string     `mapstructure:"log_level"`
	DBPath      string     `mapstructure:"db_path"` // sqlite file written by the export command
	HTTP        HTTPConfig `mapstructure:"http"`

	LeagueSources []results.LeagueSource `mapstructure:"leagues"`
}

// HTTPConfig holds the settings of the HTTP API.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// DefaultConfig returns the configuration used when no file or env overrides exist
func DefaultConfig() Config {
	return Config{
		DataDir:       "data",
		DefaultYear:   results.DefaultYear,
		Malformed:     results.SkipMalformed.String(),
		LogLevel:      "INFO",
		DBPath:        filepath.Join(os.Getenv("HOME"), ".local", "share", "tipshjalpen", "results.db"),
		HTTP:          HTTPConfig{Addr: ":8080"},
		LeagueSources: results.DefaultLeagueSources(),
	}
}

// DefaultPath is where Load looks for a config file when $TIPSHJALPEN_CONFIG is unset
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "tipshjalpen", "config.toml")
}

// Load reads configuration from file and env. An explicit path wins over
// $TIPSHJALPEN_CONFIG, which wins over DefaultPath. A missing default file is
// not an error, a missing explicit one is.
func Load(path string) (Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("default_year", def.DefaultYear)
	v.SetDefault("malformed", def.Malformed)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("db_path", def.DBPath)
	v.SetDefault("http.addr", def.HTTP.Addr)

	v.SetConfigType("toml")

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvPrefix + "_CONFIG")
		explicit = path != ""
	}
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		logger.Debug("No config file found, using defaults")
	} else {
		logger.Debug("Loaded config file", v.ConfigFileUsed())
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if !v.IsSet("leagues") {
		c.LeagueSources = def.LeagueSources
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate ensures the configuration values are usable
func (c Config) Validate() error {
	if c.DefaultYear < 1800 || c.DefaultYear > 9999 {
		return fmt.Errorf("default_year should be a four digit year, got: %d", c.DefaultYear)
	}
	if _, err := results.ParseMalformedPolicy(c.Malformed); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if len(c.LeagueSources) == 0 {
		return errors.New("at least one league must be configured")
	}
	if _, err := results.NewLeagues(c.DataDir, c.LeagueSources...); err != nil {
		return fmt.Errorf("invalid leagues: %w", err)
	}
	return nil
}

// Leagues builds the league mapping, with paths resolved against DataDir
func (c Config) Leagues() (*results.Leagues, error) {
	return results.NewLeagues(c.DataDir, c.LeagueSources...)
}

// ParserOptions converts the parser related settings
func (c Config) ParserOptions() (results.Options, error) {
	policy, err := results.ParseMalformedPolicy(c.Malformed)
	if err != nil {
		return results.Options{}, err
	}
	return results.Options{DefaultYear: c.DefaultYear, Malformed: policy}, nil
}

// Repository wires a Repository from the configuration
func (c Config) Repository() (*results.Repository, error) {
	leagues, err := c.Leagues()
	if err != nil {
		return nil, err
	}
	opts, err := c.ParserOptions()
	if err != nil {
		return nil, err
	}
	return results.NewRepository(leagues, results.NewParser(opts)), nil
}
