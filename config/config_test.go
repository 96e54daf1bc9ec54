package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/spf13/pflag"
)

func TestDefaults(t *testing.T) {
	is := is.New(t)
	cfg := DefaultConfig()
	is.Equal(cfg.GetString(ConfigListenAddr), ":35326")
	is.Equal(cfg.GetString(ConfigEvaluator), EvaluatorHeuristic)
	is.Equal(cfg.GetInt(ConfigAdaptiveExactMargin), 2)
	is.Equal(cfg.GetDuration(ConfigLowTime), 30*time.Second)
	is.NoErr(cfg.Validate())
}

func TestLoadFlagsAndEnv(t *testing.T) {
	is := is.New(t)
	t.Chdir(t.TempDir())
	t.Setenv("OTHELLO_NATS_SUBJECT", "othello.test")
	t.Setenv("OTHELLO_LISTEN_ADDR", ":1")

	cfg := &Config{}
	is.NoErr(cfg.Load([]string{"--listen-addr", ":9999", "--evaluator", "positional", "--low-time", "5s"}))
	// flags win over the environment
	is.Equal(cfg.GetString(ConfigListenAddr), ":9999")
	is.Equal(cfg.GetString(ConfigNatsSubject), "othello.test")
	is.Equal(cfg.GetString(ConfigEvaluator), EvaluatorPositional)
	is.Equal(cfg.GetDuration(ConfigLowTime), 5*time.Second)
	is.NoErr(cfg.Validate())
}

func TestLoadConfigFile(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "othello.yaml")
	is.NoErr(os.WriteFile(path, []byte("evaluator: neural\nlow-time-mid-depth: 3\n"), 0o644))

	cfg := &Config{}
	is.NoErr(cfg.Load([]string{"--config-file", path}))
	is.Equal(cfg.GetInt(ConfigLowTimeMidDepth), 3)
	// neural without a model is rejected
	is.True(cfg.Validate() != nil)
}

func TestAdjustRelativePaths(t *testing.T) {
	is := is.New(t)
	cfg := DefaultConfig()
	cfg.Set(ConfigBookPath, "./data/book.bin.zst")
	cfg.Set(ConfigModelPath, "/abs/model.onnx")
	cfg.AdjustRelativePaths("/opt/othello")
	is.Equal(cfg.GetString(ConfigBookPath), "/opt/othello/data/book.bin.zst")
	is.Equal(cfg.GetString(ConfigModelPath), "/abs/model.onnx")
	is.Equal(cfg.GetString(ConfigDataPath), "/opt/othello/data")
}

func TestBadEvaluator(t *testing.T) {
	is := is.New(t)
	cfg := DefaultConfig()
	cfg.Set(ConfigEvaluator, "oracle")
	is.True(cfg.Validate() != nil)
}

func TestBookCompression(t *testing.T) {
	is := is.New(t)
	cfg := DefaultConfig()
	is.Equal(cfg.GetString(ConfigBookCompression), "auto")
	cfg.Set(ConfigBookCompression, "none")
	is.NoErr(cfg.Validate())
	cfg.Set(ConfigBookCompression, "brotli")
	is.True(cfg.Validate() != nil)
}

func TestExtraFlagsAndArgs(t *testing.T) {
	is := is.New(t)
	t.Chdir(t.TempDir())
	extra := pflag.NewFlagSet("bench", pflag.ContinueOnError)
	games := extra.Int("games", 10, "games to play")

	cfg := &Config{}
	is.NoErr(cfg.Load([]string{"--games", "40", "--debug", "play", "d3"}, extra))
	is.Equal(*games, 40)
	is.True(cfg.GetBool(ConfigDebug))
	is.Equal(cfg.Args(), []string{"play", "d3"})
}
