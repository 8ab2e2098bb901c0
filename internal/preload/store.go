// Package preload fetches the site's static assets before the guest starts
// and serves them to the guest's file imports.
package preload

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the number of in-flight fetches.
const DefaultConcurrency = 8

// Recorder observes fetch outcomes.
type Recorder interface {
	ObserveFetch(relPath string, err error)
}

// LoadReport summarises a Load.
type LoadReport struct {
	Loaded   []string
	Failed   []string
	Bytes    int64
	Duration time.Duration
}

// Store maps site-relative paths to asset bytes. Entries are written once
// by Load and never change or get evicted afterwards.
type Store struct {
	mu    sync.RWMutex
	files map[string][]byte

	concurrency int
	recorder    Recorder
	logger      *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithConcurrency bounds the number of concurrent fetches.
func WithConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithRecorder reports every fetch outcome to r.
func WithRecorder(r Recorder) Option {
	return func(s *Store) {
		s.recorder = r
	}
}

// NewStore creates an empty store.
func NewStore(logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		files:       make(map[string][]byte),
		concurrency: DefaultConcurrency,
		logger:      logger.With(zap.String("component", "preload")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches every path concurrently and waits for all of them. A failed
// fetch is logged and leaves its path absent; Load itself never fails.
func (s *Store) Load(ctx context.Context, fetcher Fetcher, paths []string) *LoadReport {
	start := time.Now()
	report := &LoadReport{}
	var reportMu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true

		relPath := p
		g.Go(func() error {
			data, err := fetcher.Fetch(ctx, relPath)
			if s.recorder != nil {
				s.recorder.ObserveFetch(relPath, err)
			}

			reportMu.Lock()
			defer reportMu.Unlock()

			if err != nil {
				s.logger.Warn("Failed to preload asset",
					zap.String("path", relPath),
					zap.Error(err),
				)
				report.Failed = append(report.Failed, relPath)
				return nil
			}

			s.put(relPath, data)
			report.Loaded = append(report.Loaded, relPath)
			report.Bytes += int64(len(data))
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(report.Loaded)
	sort.Strings(report.Failed)
	report.Duration = time.Since(start)

	s.logger.Info("Preload complete",
		zap.Int("loaded", len(report.Loaded)),
		zap.Int("failed", len(report.Failed)),
		zap.Int64("bytes", report.Bytes),
		zap.Duration("duration", report.Duration),
	)

	return report
}

func (s *Store) put(relPath string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[relPath] = data
}

// Get returns the bytes stored for relPath. The slice must not be modified.
func (s *Store) Get(relPath string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[relPath]
	return data, ok
}

// Size returns the size of relPath, or 0 when it was never loaded.
func (s *Store) Size(relPath string) int {
	data, _ := s.Get(relPath)
	return len(data)
}

// Len returns the number of stored files.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// Paths returns the stored paths in sorted order.
func (s *Store) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
