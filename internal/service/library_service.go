package service

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/ports"
)

// LibraryService imports local audio files as queue songs.
// Only one scan runs at a time.
type LibraryService struct {
	logger *slog.Logger
	reader ports.MetadataReader
	bus    ports.EventBus

	mu         sync.RWMutex
	scanning   bool
	cancelScan context.CancelFunc
}

// NewLibraryService creates a new library service.
func NewLibraryService(reader ports.MetadataReader, bus ports.EventBus, logger *slog.Logger) *LibraryService {
	return &LibraryService{
		logger: logger.With(slog.String("service", "LibraryService")),
		reader: reader,
		bus:    bus,
	}
}

// ScanFolder walks folderPath recursively and returns a song for every
// supported file, in path order. Unreadable files are skipped.
// A canceled scan returns what it found so far with domain.ErrScanCancelled.
func (s *LibraryService) ScanFolder(ctx context.Context, folderPath string) ([]domain.QueueSong, error) {
	ctx, done, err := s.beginScan(ctx, "ScanFolder")
	if err != nil {
		return nil, err
	}
	defer done()

	s.bus.Publish(domain.NewScanStartedEvent(folderPath))

	files, err := s.collect(ctx, folderPath)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.bus.Publish(domain.NewScanCancelledEvent(0))
			return nil, domain.ErrScanCancelled
		}
		return nil, domain.NewServiceError("LibraryService", "ScanFolder", "walk failed", err)
	}

	songs, err := s.read(ctx, files)
	if err != nil {
		return songs, err
	}

	s.logger.Info("scan completed", slog.String("path", folderPath), slog.Int("songs", len(songs)))
	s.bus.Publish(domain.NewScanCompletedEvent(songs))
	return songs, nil
}

// ScanFiles reads the given files, skipping unsupported ones.
func (s *LibraryService) ScanFiles(ctx context.Context, paths []string) ([]domain.QueueSong, error) {
	ctx, done, err := s.beginScan(ctx, "ScanFiles")
	if err != nil {
		return nil, err
	}
	defer done()

	files := make([]string, 0, len(paths))
	for _, p := range paths {
		if s.reader.Supports(p) {
			files = append(files, p)
		}
	}
	return s.read(ctx, files)
}

// CancelScan cancels the running scan.
func (s *LibraryService) CancelScan() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.scanning {
		return domain.NewServiceError("LibraryService", "CancelScan", "no scan in progress", nil)
	}
	s.cancelScan()
	return nil
}

// IsScanning returns true if a scan is currently in progress.
func (s *LibraryService) IsScanning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanning
}

// Shutdown cancels any running scan.
func (s *LibraryService) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scanning {
		s.cancelScan()
	}
	return nil
}

func (s *LibraryService) beginScan(parent context.Context, op string) (context.Context, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scanning {
		return nil, nil, domain.NewServiceError("LibraryService", op, "scan already in progress", nil)
	}
	ctx, cancel := context.WithCancel(parent)
	s.scanning = true
	s.cancelScan = cancel

	return ctx, func() {
		cancel()
		s.mu.Lock()
		s.scanning = false
		s.cancelScan = nil
		s.mu.Unlock()
	}, nil
}

func (s *LibraryService) collect(ctx context.Context, root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return context.Canceled
		}
		if err != nil {
			if path == root {
				return err
			}
			s.logger.Debug("skipping unreadable entry", slog.String("path", path), slog.Any("error", err))
			return nil
		}
		if !d.IsDir() && s.reader.Supports(path) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

func (s *LibraryService) read(ctx context.Context, files []string) ([]domain.QueueSong, error) {
	songs := make([]domain.QueueSong, 0, len(files))
	for i, path := range files {
		if ctx.Err() != nil {
			s.bus.Publish(domain.NewScanCancelledEvent(i))
			return songs, domain.ErrScanCancelled
		}

		song, err := s.reader.ReadSong(path)
		if err != nil {
			s.logger.Debug("skipping file", slog.String("path", path), slog.Any("error", err))
		} else {
			songs = append(songs, song)
		}
		s.bus.Publish(domain.NewScanProgressEvent(i+1, path))
	}
	return songs, nil
}

var _ interface {
	ScanFolder(context.Context, string) ([]domain.QueueSong, error)
	ScanFiles(context.Context, []string) ([]domain.QueueSong, error)
	CancelScan() error
	IsScanning() bool
	Shutdown() error
} = (*LibraryService)(nil)
