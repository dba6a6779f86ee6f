package storage

import (
	"errors"

	"go.uber.org/zap"
)

const (
	DefaultL0CompactionThreshold       = 4
	DefaultL0StopWritesThreshold       = 12
	DefaultLBaseMaxBytes               = 64 << 20
	DefaultMaxOpenFiles                = 1000
	DefaultMemTableSize                = 4 << 20
	DefaultMemTableStopWritesThreshold = 2
	DefaultMaxConcurrentCompactions    = 1
)

type config struct {
	path                        string
	wal                         bool
	syncWAL                     bool
	cache                       *Cache
	l0CompactionThreshold       int
	l0StopWritesThreshold       int
	lbaseMaxBytes               int64
	maxOpenFiles                int
	memTableSize                int
	memTableStopWritesThreshold int
	maxConcurrentCompaction     int
	verbose                     bool
	logger                      *zap.Logger
}

func newConfig(opts []Option) (config, error) {
	cfg := config{
		wal:                         true,
		syncWAL:                     true,
		l0CompactionThreshold:       DefaultL0CompactionThreshold,
		l0StopWritesThreshold:       DefaultL0StopWritesThreshold,
		lbaseMaxBytes:               DefaultLBaseMaxBytes,
		maxOpenFiles:                DefaultMaxOpenFiles,
		memTableSize:                DefaultMemTableSize,
		memTableStopWritesThreshold: DefaultMemTableStopWritesThreshold,
		maxConcurrentCompaction:     DefaultMaxConcurrentCompactions,
		logger:                      zap.NewNop(),
	}
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return config{}, err
	}
	cfg.logger = cfg.logger.Named("storage").With(zap.String("path", cfg.path))
	return cfg, nil
}

func (cfg config) validate() error {
	if len(cfg.path) == 0 {
		return errors.New("storage: no path")
	}
	if cfg.syncWAL && !cfg.wal {
		return errors.New("storage: sync, but wal disabled")
	}
	if cfg.logger == nil {
		return errors.New("storage: logger is nil")
	}
	return nil
}

type Option interface {
	apply(*config)
}

type funcOption struct {
	f func(*config)
}

func newFuncOption(f func(*config)) *funcOption {
	return &funcOption{f: f}
}

func (fo *funcOption) apply(cfg *config) {
	fo.f(cfg)
}

func WithPath(path string) Option {
	return newFuncOption(func(cfg *config) {
		cfg.path = path
	})
}

// WithoutWAL disables the write-ahead log of the underlying database. It is
// useful only for tests.
func WithoutWAL() Option {
	return newFuncOption(func(cfg *config) {
		cfg.wal = false
		cfg.syncWAL = false
	})
}

func WithSyncWAL(syncWAL bool) Option {
	return newFuncOption(func(cfg *config) {
		cfg.syncWAL = syncWAL
	})
}

func WithCache(cache *Cache) Option {
	return newFuncOption(func(cfg *config) {
		cfg.cache = cache
	})
}

func WithL0CompactionThreshold(l0CompactionThreshold int) Option {
	return newFuncOption(func(cfg *config) {
		cfg.l0CompactionThreshold = l0CompactionThreshold
	})
}

func WithL0StopWritesThreshold(l0StopWritesThreshold int) Option {
	return newFuncOption(func(cfg *config) {
		cfg.l0StopWritesThreshold = l0StopWritesThreshold
	})
}

func WithLBaseMaxBytes(lbaseMaxBytes int64) Option {
	return newFuncOption(func(cfg *config) {
		cfg.lbaseMaxBytes = lbaseMaxBytes
	})
}

func WithMaxOpenFiles(maxOpenFiles int) Option {
	return newFuncOption(func(cfg *config) {
		cfg.maxOpenFiles = maxOpenFiles
	})
}

func WithMemTableSize(memTableSize int) Option {
	return newFuncOption(func(cfg *config) {
		cfg.memTableSize = memTableSize
	})
}

func WithMemTableStopWritesThreshold(memTableStopWritesThreshold int) Option {
	return newFuncOption(func(cfg *config) {
		cfg.memTableStopWritesThreshold = memTableStopWritesThreshold
	})
}

func WithMaxConcurrentCompaction(maxConcurrentCompaction int) Option {
	return newFuncOption(func(cfg *config) {
		cfg.maxConcurrentCompaction = maxConcurrentCompaction
	})
}

// WithVerboseLogging turns on logging of events of the underlying database.
func WithVerboseLogging() Option {
	return newFuncOption(func(cfg *config) {
		cfg.verbose = true
	})
}

func WithLogger(logger *zap.Logger) Option {
	return newFuncOption(func(cfg *config) {
		cfg.logger = logger
	})
}
