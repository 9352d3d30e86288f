package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/okian/betti/internal/domain/model"
	"github.com/okian/betti/pkg/logger"
	"github.com/okian/betti/pkg/metrics"
)

const (
	badgerBackend  = "badger"
	resultPrefix   = "result/"
	gcDiscardRatio = 0.5
)

// BadgerStore persists results as JSON in BadgerDB under "result/<id>".
type BadgerStore struct {
	cfg settings
	db  *badger.DB

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

// badgerLogger routes BadgerDB's internal logging through our logger.
type badgerLogger struct {
	log logger.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(context.Background(), fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(context.Background(), fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(context.Background(), fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(context.Background(), fmt.Sprintf(format, args...))
}

// OpenBadgerStore opens (creating if needed) a badger database at path.
// path is ignored when WithInMemory(true) is given.
func OpenBadgerStore(ctx context.Context, path string, opts ...Option) (*BadgerStore, error) {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}

	var bopts badger.Options
	if cfg.inMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
		cfg.gcInterval = 0
	} else {
		if path == "" {
			return nil, errors.New("badger store: path is required")
		}
		if err := os.MkdirAll(path, 0o750); err != nil {
			return nil, fmt.Errorf("badger store: create %s: %w", path, err)
		}
		bopts = badger.DefaultOptions(path)
	}
	bopts = bopts.WithNumVersionsToKeep(1).WithLogger(badgerLogger{log: cfg.log})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("badger store: open: %w", err)
	}

	s := &BadgerStore{
		cfg:      cfg,
		db:       db,
		stopChan: make(chan struct{}),
	}
	startMetricsUpdater(ctx, &s.wg, s.stopChan, cfg.metricsUpdateInterval, s.Count)
	if cfg.gcInterval > 0 {
		s.startValueLogGC(ctx)
	}
	return s, nil
}

func resultKey(id string) []byte { return []byte(resultPrefix + id) }

// Put implements Store.Put.
func (s *BadgerStore) Put(ctx context.Context, r model.Result) error {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.ID == "" {
		metrics.RecordStoreError(badgerBackend, "put")
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	val, err := json.Marshal(r)
	if err != nil {
		metrics.RecordStoreError(badgerBackend, "encode")
		return fmt.Errorf("badger store: encode %s: %w", r.ID, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(resultKey(r.ID), val)
		if s.cfg.ttl > 0 {
			e = e.WithTTL(s.cfg.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		metrics.RecordStoreError(badgerBackend, "put")
		return fmt.Errorf("badger store: put %s: %w", r.ID, err)
	}
	metrics.RecordStoreWriteLatency(float64(time.Since(start).Microseconds()) / 1000)
	return nil
}

// Get implements Store.Get.
func (s *BadgerStore) Get(ctx context.Context, id string) (model.Result, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return model.Result{}, err
	}

	var r model.Result
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(resultKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		})
	})
	metrics.RecordStoreReadLatency(float64(time.Since(start).Microseconds()) / 1000)
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return model.Result{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	case err != nil:
		metrics.RecordStoreError(badgerBackend, "get")
		return model.Result{}, fmt.Errorf("badger store: get %s: %w", id, err)
	}
	return r, nil
}

// Delete implements Store.Delete.
func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(resultKey(id))
	})
	if err != nil {
		metrics.RecordStoreError(badgerBackend, "delete")
		return fmt.Errorf("badger store: delete %s: %w", id, err)
	}
	return nil
}

// Count implements Store.Count by walking the key space without values.
func (s *BadgerStore) Count(_ context.Context) int {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(resultPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		metrics.RecordStoreError(badgerBackend, "count")
		return 0
	}
	return n
}

// Close stops background work and closes the database.
func (s *BadgerStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return s.db.Close()
}

func (s *BadgerStore) startValueLogGC(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.gcInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				// Each successful pass may leave more to reclaim.
				for {
					if err := s.db.RunValueLogGC(gcDiscardRatio); err != nil {
						break
					}
				}
			}
		}
	}()
}
