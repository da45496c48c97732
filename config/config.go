// Package config loads the settings of the universe driver. Values come from command line flags, then
// BLOBSTORE_* environment variables, then an optional config file named by BLOBSTORE_CONFIG, then defaults.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "BLOBSTORE"

	keyConfig        = "config"
	keyLogLevel      = "log-level"
	keyPartitions    = "partitions"
	keyEntities      = "entities"
	keyTicks         = "ticks"
	keyTransferEvery = "transfer-every"
	keySeed          = "seed"
	keyRedisAddress  = "redis-address"
	keyRedisPassword = "redis-password"
	keyRedisNS       = "redis-namespace"
	keyStatsdAddress = "statsd-address"
	keyStatsdTags    = "statsd-tags"
)

type Config struct {
	LogLevel string `mapstructure:"log-level"`

	// Partitions is the number of entity managers sharing one identity registry.
	Partitions int `mapstructure:"partitions"`
	// EntitiesPerPartition is how many bodies each partition is seeded with.
	EntitiesPerPartition int `mapstructure:"entities"`
	Ticks                int `mapstructure:"ticks"`
	// TransferEvery moves one entity to the next partition every n ticks. Zero disables transfers.
	TransferEvery int   `mapstructure:"transfer-every"`
	Seed          int64 `mapstructure:"seed"`

	// RedisAddress enables the snapshot round trip through redis when set.
	RedisAddress   string `mapstructure:"redis-address"`
	RedisPassword  string `mapstructure:"redis-password"`
	RedisNamespace string `mapstructure:"redis-namespace"`

	// StatsdAddress enables metrics when set.
	StatsdAddress string   `mapstructure:"statsd-address"`
	StatsdTags    []string `mapstructure:"statsd-tags"`
}

func Default() Config {
	return Config{
		LogLevel:             zerolog.InfoLevel.String(),
		Partitions:           2,
		EntitiesPerPartition: 16,
		Ticks:                10,
		TransferEvery:        2,
		Seed:                 1,
		RedisNamespace:       "universe",
	}
}

// RegisterFlags adds one flag per setting to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	d := Default()
	flags.String(keyConfig, "", "path to a config file")
	flags.String(keyLogLevel, d.LogLevel, "zerolog level")
	flags.Int(keyPartitions, d.Partitions, "number of entity managers")
	flags.Int(keyEntities, d.EntitiesPerPartition, "bodies created in each partition")
	flags.Int(keyTicks, d.Ticks, "number of ticks to simulate")
	flags.Int(keyTransferEvery, d.TransferEvery, "transfer an entity to the next partition every n ticks, 0 disables")
	flags.Int64(keySeed, d.Seed, "seed of the random source")
	flags.String(keyRedisAddress, d.RedisAddress, "redis address for snapshots, empty disables")
	flags.String(keyRedisPassword, d.RedisPassword, "redis password")
	flags.String(keyRedisNS, d.RedisNamespace, "redis key namespace")
	flags.String(keyStatsdAddress, d.StatsdAddress, "statsd address, empty disables metrics")
	flags.StringSlice(keyStatsdTags, d.StatsdTags, "tags added to every metric")
}

// Load resolves the configuration. flags may be nil.
func Load(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault(keyConfig, "")
	v.SetDefault(keyLogLevel, d.LogLevel)
	v.SetDefault(keyPartitions, d.Partitions)
	v.SetDefault(keyEntities, d.EntitiesPerPartition)
	v.SetDefault(keyTicks, d.Ticks)
	v.SetDefault(keyTransferEvery, d.TransferEvery)
	v.SetDefault(keySeed, d.Seed)
	v.SetDefault(keyRedisAddress, d.RedisAddress)
	v.SetDefault(keyRedisPassword, d.RedisPassword)
	v.SetDefault(keyRedisNS, d.RedisNamespace)
	v.SetDefault(keyStatsdAddress, d.StatsdAddress)
	v.SetDefault(keyStatsdTags, d.StatsdTags)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, eris.Wrap(err, "failed to bind flags")
		}
	}

	if path := v.GetString(keyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, eris.Wrapf(err, "failed to read config file %s", path)
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse config")
	}
	if err := cfg.validate(); err != nil {
		return cfg, eris.Wrap(err, "failed to validate config")
	}
	return cfg, nil
}

// Level returns the parsed log level. It is only meaningful on a validated config.
func (cfg *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

func (cfg *Config) validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
		return eris.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if cfg.Partitions < 1 {
		return eris.New("partitions must be at least 1")
	}
	if cfg.EntitiesPerPartition < 0 {
		return eris.New("entities cannot be negative")
	}
	if cfg.Ticks < 0 {
		return eris.New("ticks cannot be negative")
	}
	if cfg.TransferEvery < 0 {
		return eris.New("transfer-every cannot be negative")
	}
	if cfg.RedisAddress != "" && cfg.RedisNamespace == "" {
		return eris.New("redis namespace cannot be empty when redis is enabled")
	}
	return nil
}
