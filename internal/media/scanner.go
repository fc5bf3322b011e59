package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/config"
)

var ErrScanInProgress = errors.New("scan already in progress")

type Scanner struct {
	fs       afero.Fs
	logger   zerolog.Logger
	scanning bool
	mu       sync.Mutex
}

func NewScanner(fs afero.Fs, logger zerolog.Logger) *Scanner {
	return &Scanner{
		fs:     fs,
		logger: logger,
	}
}

// Scan walks root depth first and returns every regular file whose extension
// belongs to kind. Entries starting with a dot are skipped, directories
// included, and unreadable entries are logged and left out.
func (s *Scanner) Scan(root string, kind config.MediaKind) ([]string, error) {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return nil, ErrScanInProgress
	}
	s.scanning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.scanning = false
		s.mu.Unlock()
	}()

	info, err := s.fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan %s: not a directory", root)
	}

	root = filepath.Clean(root)
	s.logger.Info().
		Str("path", root).
		Str("kind", kind.String()).
		Msg("scanning library")

	paths := []string{}
	err = afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			s.logger.Debug().Err(err).Str("path", path).Msg("skipping unreadable entry")
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path != root && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.Mode().IsRegular() || !IsSupported(kind, path) {
			return nil
		}

		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	s.logger.Info().
		Str("path", root).
		Int("items", len(paths)).
		Msg("scan completed")

	return paths, nil
}
