package tablet

import (
	"go.uber.org/zap"

	"github.com/quartzdb/quartz/internal/storage"
	"github.com/quartzdb/quartz/internal/tablet/telemetry"
	"github.com/quartzdb/quartz/pkg/types"
)

const (
	DefaultPrepareQueueCapacity = 1024
	DefaultApplyQueueCapacity   = 1024
	DefaultApplyConcurrency     = 4
)

type coordinatorConfig struct {
	cid                  types.ClusterID
	nid                  types.NodeID
	tid                  types.TabletID
	stg                  *storage.Storage
	engine               ReplicationEngine
	prepareQueueCapacity int
	applyQueueCapacity   int
	applyConcurrency     int
	logger               *zap.Logger
	metrics              *telemetry.Metrics
	fatalf               func(msg string, fields ...zap.Field)
}

func newCoordinatorConfig(opts []CoordinatorOption) (coordinatorConfig, error) {
	cfg := coordinatorConfig{
		prepareQueueCapacity: DefaultPrepareQueueCapacity,
		applyQueueCapacity:   DefaultApplyQueueCapacity,
		applyConcurrency:     DefaultApplyConcurrency,
		logger:               zap.NewNop(),
	}
	for _, opt := range opts {
		opt.applyCoordinator(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	cfg.logger = cfg.logger.Named("tablet").With(
		zap.Int32("cid", int32(cfg.cid)),
		zap.Int32("nid", int32(cfg.nid)),
		zap.Int32("tid", int32(cfg.tid)),
	)
	if cfg.metrics == nil {
		cfg.metrics = telemetry.NewNopMetrics()
	}
	if cfg.fatalf == nil {
		logger := cfg.logger
		cfg.fatalf = func(msg string, fields ...zap.Field) {
			logger.Fatal(msg, fields...)
		}
	}
	return cfg, nil
}

func (cfg coordinatorConfig) validate() error {
	if err := validateQueueCapacity("prepare", cfg.prepareQueueCapacity); err != nil {
		return err
	}
	if err := validateQueueCapacity("apply", cfg.applyQueueCapacity); err != nil {
		return err
	}
	if cfg.stg == nil {
		return errStorageIsNil
	}
	if cfg.engine == nil {
		return errEngineIsNil
	}
	if cfg.logger == nil {
		return errLoggerIsNil
	}
	return nil
}

type CoordinatorOption interface {
	applyCoordinator(cfg *coordinatorConfig)
}

type funcCoordinatorOption struct {
	f func(*coordinatorConfig)
}

func newFuncCoordinatorOption(f func(*coordinatorConfig)) *funcCoordinatorOption {
	return &funcCoordinatorOption{f: f}
}

func (fco *funcCoordinatorOption) applyCoordinator(cfg *coordinatorConfig) {
	fco.f(cfg)
}

func WithClusterID(cid types.ClusterID) CoordinatorOption {
	return newFuncCoordinatorOption(func(cfg *coordinatorConfig) {
		cfg.cid = cid
	})
}

func WithNodeID(nid types.NodeID) CoordinatorOption {
	return newFuncCoordinatorOption(func(cfg *coordinatorConfig) {
		cfg.nid = nid
	})
}

func WithTabletID(tid types.TabletID) CoordinatorOption {
	return newFuncCoordinatorOption(func(cfg *coordinatorConfig) {
		cfg.tid = tid
	})
}

func WithStorage(stg *storage.Storage) CoordinatorOption {
	return newFuncCoordinatorOption(func(cfg *coordinatorConfig) {
		cfg.stg = stg
	})
}

func WithReplicationEngine(engine ReplicationEngine) CoordinatorOption {
	return newFuncCoordinatorOption(func(cfg *coordinatorConfig) {
		cfg.engine = engine
	})
}

func WithPrepareQueueCapacity(prepareQueueCapacity int) CoordinatorOption {
	return newFuncCoordinatorOption(func(cfg *coordinatorConfig) {
		cfg.prepareQueueCapacity = prepareQueueCapacity
	})
}

func WithApplyQueueCapacity(applyQueueCapacity int) CoordinatorOption {
	return newFuncCoordinatorOption(func(cfg *coordinatorConfig) {
		cfg.applyQueueCapacity = applyQueueCapacity
	})
}

func WithApplyConcurrency(applyConcurrency int) CoordinatorOption {
	return newFuncCoordinatorOption(func(cfg *coordinatorConfig) {
		cfg.applyConcurrency = applyConcurrency
	})
}

func WithLogger(logger *zap.Logger) CoordinatorOption {
	return newFuncCoordinatorOption(func(cfg *coordinatorConfig) {
		cfg.logger = logger
	})
}

func WithMetrics(metrics *telemetry.Metrics) CoordinatorOption {
	return newFuncCoordinatorOption(func(cfg *coordinatorConfig) {
		cfg.metrics = metrics
	})
}

// WithFatalFunc replaces the hook invoked on unrecoverable failures. The
// default stops the process via zap.Logger.Fatal. Tests inject a recording
// hook here.
func WithFatalFunc(fatalf func(msg string, fields ...zap.Field)) CoordinatorOption {
	return newFuncCoordinatorOption(func(cfg *coordinatorConfig) {
		cfg.fatalf = fatalf
	})
}
