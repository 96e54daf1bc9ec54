package cache

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/domino14/othello/book"
	"github.com/domino14/othello/config"
	"github.com/domino14/othello/eval"
)

// The cache holds large read-only objects that are loaded once per process
// and shared by every request: opening books and evaluators.

type cache struct {
	sync.Mutex
	objects map[string]any
}

type loadFunc func(cfg *config.Config, key string) (any, error)

// GlobalObjectCache is our global object cache, of course.
var GlobalObjectCache *cache

func (c *cache) load(cfg *config.Config, key string, loadFunc loadFunc) error {
	log.Debug().Str("key", key).Msg("loading into cache")

	obj, err := loadFunc(cfg, key)
	if err != nil {
		return err
	}
	c.objects[key] = obj

	return nil
}

func (c *cache) get(cfg *config.Config, key string, loadFunc loadFunc) (any, error) {
	c.Lock()
	defer c.Unlock()
	if obj, ok := c.objects[key]; ok {
		log.Debug().Str("key", key).Msg("getting obj from cache")
		return obj, nil
	}
	if err := c.load(cfg, key, loadFunc); err != nil {
		return nil, err
	}
	return c.objects[key], nil
}

func CreateGlobalObjectCache() {
	GlobalObjectCache = &cache{objects: make(map[string]any)}
}

func Load(cfg *config.Config, name string, loadFunc loadFunc) (any, error) {
	if GlobalObjectCache == nil {
		CreateGlobalObjectCache()
	}
	return GlobalObjectCache.get(cfg, name, loadFunc)
}

// Book loads the configured opening book. It returns nil with no error if
// no book is configured.
func Book(cfg *config.Config) (*book.Book, error) {
	path := cfg.GetString(config.ConfigBookPath)
	if path == "" {
		return nil, nil
	}
	comp, err := book.ParseCompression(cfg.GetString(config.ConfigBookCompression))
	if err != nil {
		return nil, err
	}
	obj, err := Load(cfg, "book:"+path, func(cfg *config.Config, key string) (any, error) {
		return book.ReadFile(path, comp)
	})
	if err != nil {
		return nil, err
	}
	return obj.(*book.Book), nil
}

// Evaluator builds the configured midgame evaluator.
func Evaluator(cfg *config.Config) (eval.Evaluator, error) {
	return EvaluatorNamed(cfg, cfg.GetString(config.ConfigEvaluator))
}

// EvaluatorNamed builds the evaluator of the given kind, reading its files
// from cfg.
func EvaluatorNamed(cfg *config.Config, kind string) (eval.Evaluator, error) {
	switch kind {
	case config.EvaluatorHeuristic:
		return eval.Heuristic{}, nil
	case config.EvaluatorPositional:
		path := cfg.GetString(config.ConfigPositionalPath)
		obj, err := Load(cfg, "positional:"+path, func(cfg *config.Config, key string) (any, error) {
			if path == "" {
				return eval.NewPositional(nil), nil
			}
			t, err := eval.LoadPositionalFile(path)
			if err != nil {
				return nil, err
			}
			return eval.NewPositional(t), nil
		})
		if err != nil {
			return nil, err
		}
		return obj.(*eval.Positional), nil
	case config.EvaluatorNeural:
		path := cfg.GetString(config.ConfigModelPath)
		depth := cfg.GetInt(config.ConfigNeuralDepth)
		key := fmt.Sprintf("neural:%s:%d", path, depth)
		obj, err := Load(cfg, key, func(cfg *config.Config, key string) (any, error) {
			m, err := eval.LoadONNX(path)
			if err != nil {
				return nil, err
			}
			return eval.NewNeural(m, depth), nil
		})
		if err != nil {
			return nil, err
		}
		return obj.(*eval.Neural), nil
	}
	return nil, fmt.Errorf("unknown evaluator %q", kind)
}
