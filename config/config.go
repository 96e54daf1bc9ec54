// Package config loads process configuration from flags, OTHELLO_*
// environment variables and an optional config.yaml, in that order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigDebug      = "debug"
	ConfigDataPath   = "data-path"
	ConfigConfigFile = "config-file"

	ConfigListenAddr  = "listen-addr"
	ConfigReadTimeout = "read-timeout"
	ConfigNatsURL     = "nats-url"
	ConfigNatsSubject = "nats-subject"

	ConfigBookPath        = "book-path"
	ConfigBookCompression = "book-compression"
	ConfigEvaluator      = "evaluator"
	ConfigPositionalPath = "positional-path"
	ConfigModelPath      = "model-path"
	ConfigNeuralDepth    = "neural-depth"

	ConfigCacheSizePowerOf2   = "cache-size-power-of-2"
	ConfigCacheMemoryFraction = "cache-memory-fraction"

	ConfigAdaptiveExactMargin = "adaptive-exact-margin"
	ConfigLowTime             = "low-time"
	ConfigLowTimeMidDepth     = "low-time-mid-depth"
	ConfigLowTimeEndDepth     = "low-time-end-depth"
)

// Evaluator names accepted by ConfigEvaluator.
const (
	EvaluatorHeuristic  = "heuristic"
	EvaluatorPositional = "positional"
	EvaluatorNeural     = "neural"
)

// paths that are resolved against the executable's directory when relative
var pathKeys = []string{ConfigDataPath, ConfigBookPath, ConfigPositionalPath, ConfigModelPath}

type Config struct {
	*viper.Viper
	args []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(ConfigDebug, false)
	v.SetDefault(ConfigDataPath, "./data")
	v.SetDefault(ConfigListenAddr, ":35326")
	v.SetDefault(ConfigReadTimeout, 10*time.Second)
	v.SetDefault(ConfigNatsURL, "")
	v.SetDefault(ConfigNatsSubject, "othello.bestmove")
	v.SetDefault(ConfigBookPath, "")
	v.SetDefault(ConfigBookCompression, "auto")
	v.SetDefault(ConfigEvaluator, EvaluatorHeuristic)
	v.SetDefault(ConfigPositionalPath, "")
	v.SetDefault(ConfigModelPath, "")
	v.SetDefault(ConfigNeuralDepth, 1)
	v.SetDefault(ConfigCacheSizePowerOf2, 0)
	v.SetDefault(ConfigCacheMemoryFraction, 0.01)
	v.SetDefault(ConfigAdaptiveExactMargin, 2)
	v.SetDefault(ConfigLowTime, 30*time.Second)
	v.SetDefault(ConfigLowTimeMidDepth, 4)
	v.SetDefault(ConfigLowTimeEndDepth, 14)
}

// DefaultConfig has every default set and nothing else read. Useful for
// tests.
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	return &Config{Viper: v}
}

func flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("othello", pflag.ContinueOnError)
	fs.Bool(ConfigDebug, false, "debug logging on")
	fs.String(ConfigDataPath, "./data", "directory holding book and model files")
	fs.String(ConfigConfigFile, "", "path to a config.yaml")
	fs.String(ConfigListenAddr, ":35326", "TCP address to serve on")
	fs.Duration(ConfigReadTimeout, 10*time.Second, "deadline for reading a request")
	fs.String(ConfigNatsURL, "", "NATS server URL; empty disables the NATS responder")
	fs.String(ConfigNatsSubject, "othello.bestmove", "NATS subject for move requests")
	fs.String(ConfigBookPath, "", "opening book file (optionally gzip or zstd)")
	fs.String(ConfigBookCompression, "auto", "book file compression: auto, none, gzip or zstd")
	fs.String(ConfigEvaluator, EvaluatorHeuristic, "midgame evaluator: heuristic, positional or neural")
	fs.String(ConfigPositionalPath, "", "fitted positional tables; empty uses built-in tables")
	fs.String(ConfigModelPath, "", "ONNX value network for the neural evaluator")
	fs.Int(ConfigNeuralDepth, 1, "lookahead of the neural evaluator when used on its own")
	fs.Int(ConfigCacheSizePowerOf2, 0, "position cache entries as a power of 2; 0 sizes from memory")
	fs.Float64(ConfigCacheMemoryFraction, 0.01, "fraction of system memory for each position cache")
	fs.Int(ConfigAdaptiveExactMargin, 2, "adaptive WLD solves exactly only this many empties inside the endgame depth")
	fs.Duration(ConfigLowTime, 30*time.Second, "remaining time below which depths are capped")
	fs.Int(ConfigLowTimeMidDepth, 4, "midgame depth cap when low on time")
	fs.Int(ConfigLowTimeEndDepth, 14, "endgame depth cap when low on time")
	return fs
}

// Load parses args, then the environment, then the config file. Flags
// in extra are parsed along with the common ones and can be read from that
// flag set afterwards.
func (c *Config) Load(args []string, extra ...*pflag.FlagSet) error {
	v := viper.New()
	setDefaults(v)

	fs := flagSet()
	for _, e := range extra {
		fs.AddFlagSet(e)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := v.BindPFlags(fs); err != nil {
		return err
	}
	v.SetEnvPrefix("OTHELLO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cf := v.GetString(ConfigConfigFile); cf != "" {
		v.SetConfigFile(cf)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	c.Viper = v
	c.args = fs.Args()
	return nil
}

// Args are the positional arguments left after flag parsing.
func (c *Config) Args() []string {
	return c.args
}

// AdjustRelativePaths rewrites ./-relative paths to be relative to
// basepath, normally the executable's directory.
func (c *Config) AdjustRelativePaths(basepath string) {
	for _, k := range pathKeys {
		p := c.GetString(k)
		if strings.HasPrefix(p, "./") {
			c.Set(k, filepath.Join(basepath, p))
		}
	}
}

// Validate checks values that would otherwise fail deep inside a request.
func (c *Config) Validate() error {
	switch c.GetString(ConfigEvaluator) {
	case EvaluatorHeuristic, EvaluatorPositional:
	case EvaluatorNeural:
		if c.GetString(ConfigModelPath) == "" {
			return fmt.Errorf("evaluator %q needs %s", EvaluatorNeural, ConfigModelPath)
		}
	default:
		return fmt.Errorf("unknown evaluator %q", c.GetString(ConfigEvaluator))
	}
	switch strings.ToLower(c.GetString(ConfigBookCompression)) {
	case "", "auto", "none", "gzip", "zstd":
	default:
		return fmt.Errorf("unknown %s %q", ConfigBookCompression, c.GetString(ConfigBookCompression))
	}
	if c.GetInt(ConfigAdaptiveExactMargin) < 0 {
		return fmt.Errorf("%s must not be negative", ConfigAdaptiveExactMargin)
	}
	return nil
}
