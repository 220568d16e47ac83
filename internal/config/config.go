package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Overuse policy defaults. These are scheduling policy, not tuning knobs:
// change them in config, not here.
const (
	DefaultOveruseRecentDays = 3
	DefaultOveruseWindowDays = 30
	DefaultOveruseThreshold  = 5
)

// DefaultReconcileSchedule runs the consistency sweep nightly at 03:30,
// after the last evening class is long recorded. Cron spec with a seconds
// field: sec min hour dom month dow.
const DefaultReconcileSchedule = "0 30 3 * * *"

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	S3         S3Config         `mapstructure:"s3"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Scheduling SchedulingConfig `mapstructure:"scheduling"`
	Reconcile  ReconcileConfig  `mapstructure:"reconcile"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration. Tokens are minted by the
// studio's identity service; this application only needs the shared secret
// to validate them.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// SchedulingConfig carries the overuse policy thresholds.
type SchedulingConfig struct {
	OveruseRecentDays int `mapstructure:"overuse_recent_days"`
	OveruseWindowDays int `mapstructure:"overuse_window_days"`
	OveruseThreshold  int `mapstructure:"overuse_threshold"`
}

// ReconcileConfig controls the nightly consistency sweep.
type ReconcileConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Schedule is a cron expression with seconds (sec min hour dom month
	// dow), or a descriptor like "@daily".
	Schedule string `mapstructure:"schedule"`
}

// LogConfig selects the log output format.
type LogConfig struct {
	// JSON switches to production JSON logs; false gives a human console.
	JSON bool `mapstructure:"json"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	// Set the path to look for the config file in
	viper.AddConfigPath(path)
	// Set the name of the config file (without extension)
	viper.SetConfigName("config")
	// Set the type of the config file
	viper.SetConfigType("yaml") // or json, toml, etc.

	// --- Environment Variable Handling ---
	viper.AutomaticEnv()
	// Use replacer for nested keys e.g., server.address -> SERVER_ADDRESS
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	// --- Set default values ---
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("database.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.name", "yoga_studio")
	viper.SetDefault("s3.use_ssl", true) // Default to true for cloud providers
	viper.SetDefault("scheduling.overuse_recent_days", DefaultOveruseRecentDays)
	viper.SetDefault("scheduling.overuse_window_days", DefaultOveruseWindowDays)
	viper.SetDefault("scheduling.overuse_threshold", DefaultOveruseThreshold)
	viper.SetDefault("reconcile.enabled", true)
	viper.SetDefault("reconcile.schedule", DefaultReconcileSchedule)
	viper.SetDefault("log.json", false)

	// --- Read Config File ---
	err = viper.ReadInConfig()
	// If config file not found, continue (might rely solely on env vars).
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil // Reset err to nil if we want to proceed without a file
	} else if err != nil {
		// Some other error occurred reading the config file
		return // Return the error
	}

	// --- Unmarshal Config ---
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, nil // Return the populated config struct and nil error if successful
}
