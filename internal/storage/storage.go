package storage

import (
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/quartzdb/quartz/pkg/qerrors"
	"github.com/quartzdb/quartz/pkg/types"
)

// Storage is the durable write log of a tablet. It stores commit records
// ordered by their op ids.
type Storage struct {
	config

	db        *pebble.DB
	writeOpts *pebble.WriteOptions
}

// New creates a Storage under the directory specified by WithPath.
func New(opts ...Option) (*Storage, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	s := &Storage{
		config:    cfg,
		writeOpts: &pebble.WriteOptions{Sync: cfg.syncWAL},
	}

	pebbleOpts := &pebble.Options{
		Cache:                       cfg.cache.get(),
		DisableWAL:                  !cfg.wal,
		L0CompactionThreshold:       cfg.l0CompactionThreshold,
		L0StopWritesThreshold:       cfg.l0StopWritesThreshold,
		LBaseMaxBytes:               cfg.lbaseMaxBytes,
		MaxOpenFiles:                cfg.maxOpenFiles,
		MemTableSize:                uint64(cfg.memTableSize),
		MemTableStopWritesThreshold: cfg.memTableStopWritesThreshold,
		MaxConcurrentCompactions:    func() int { return cfg.maxConcurrentCompaction },
		Levels:                      make([]pebble.LevelOptions, 7),
		ErrorIfExists:               false,
	}
	for i := range pebbleOpts.Levels {
		l := &pebbleOpts.Levels[i]
		l.BlockSize = 32 << 10
		l.IndexBlockSize = 256 << 10
		l.FilterPolicy = bloom.FilterPolicy(10)
		l.FilterType = pebble.TableFilter
		if i > 0 {
			l.TargetFileSize = pebbleOpts.Levels[i-1].TargetFileSize * 2
		}
		l.EnsureDefaults()
	}
	pebbleOpts.Levels[6].FilterPolicy = nil
	pebbleOpts.EnsureDefaults()

	if cfg.verbose {
		el := pebble.MakeLoggingEventListener(newLogAdaptor(cfg.logger))
		pebbleOpts.EventListener = &el
	}

	s.db, err = pebble.Open(cfg.path, pebbleOpts)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	s.logger.Info("opened write log")
	return s, nil
}

// Path returns the directory the write log lives in.
func (s *Storage) Path() string {
	return s.path
}

// AppendCommit durably appends a single commit record.
func (s *Storage) AppendCommit(rec CommitRecord) error {
	if rec.OpID.Invalid() {
		return errors.Wrap(qerrors.ErrInvalid, "storage: unassigned opid")
	}
	cb := s.NewCommitBatch()
	defer func() {
		_ = cb.Close()
	}()
	if err := cb.Set(rec); err != nil {
		return err
	}
	return cb.Apply()
}

// ReadCommit returns the commit record stored for the given op id. It returns
// qerrors.ErrNoEntry if there is no such record.
func (s *Storage) ReadCommit(id types.OpID) (rec CommitRecord, err error) {
	v, closer, err := s.db.Get(encodeCommitKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return rec, errors.WithStack(qerrors.ErrNoEntry)
		}
		return rec, errors.WithStack(err)
	}
	defer func() {
		err = multierr.Append(err, closer.Close())
	}()
	rec, err = decodeCommitValue(v)
	rec.OpID = id
	return rec, err
}

// Close stops the storage. The cache passed by WithCache is not released;
// its owner should call Unref.
func (s *Storage) Close() error {
	return s.db.Close()
}
