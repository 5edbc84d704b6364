package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"cadence/internal/features"
	"cadence/internal/logging"
	"cadence/internal/queue"
	"cadence/internal/wavio"
)

var labelCaser = cases.Lower(language.Und)

// NormalizeLabel canonicalizes a genre label for storage: trimmed and
// case-folded so "Vocal", "VOCAL", and "vocal" collapse to one corpus key.
func NormalizeLabel(label string) string {
	return labelCaser.String(strings.TrimSpace(label))
}

// Report summarizes one seeding run.
type Report struct {
	Added   int
	Skipped int
	Labels  map[string]int
}

// Seeder populates the reference corpus from a directory tree whose
// first-level subdirectories name the labels:
//
//	corpus/
//	  vocal/*.wav
//	  electronic/*.wav
type Seeder struct {
	store     *queue.Store
	extractor features.Extractor
	logger    *slog.Logger
}

// New builds a seeder. The logger may be nil.
func New(store *queue.Store, extractor features.Extractor, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Seeder{
		store:     store,
		extractor: extractor,
		logger:    logger.With(logging.String(logging.FieldComponent, "seed")),
	}
}

// Seed walks root and adds one reference per decodable WAV file. Files
// that fail to decode or extract are skipped and counted, not fatal.
func (s *Seeder) Seed(ctx context.Context, root string) (Report, error) {
	report := Report{Labels: make(map[string]int)}

	entries, err := os.ReadDir(root)
	if err != nil {
		return report, fmt.Errorf("read corpus root: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		label := NormalizeLabel(entry.Name())
		if label == "" {
			continue
		}
		if err := s.seedLabel(ctx, filepath.Join(root, entry.Name()), label, &report); err != nil {
			return report, err
		}
	}
	if report.Added == 0 {
		return report, fmt.Errorf("no usable reference clips under %s", root)
	}
	return report, nil
}

func (s *Seeder) seedLabel(ctx context.Context, dir, label string, report *Report) error {
	paths, err := listWAVs(dir)
	if err != nil {
		return err
	}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		fingerprint, err := s.fingerprintFile(path)
		if err != nil {
			report.Skipped++
			s.logger.Warn("skipping reference clip",
				logging.String("path", path),
				logging.Error(err),
			)
			continue
		}
		if _, err := s.store.AddReference(ctx, label, fingerprint); err != nil {
			return fmt.Errorf("add reference for %s: %w", path, err)
		}
		report.Added++
		report.Labels[label]++
	}
	return nil
}

func (s *Seeder) fingerprintFile(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	clip, err := wavio.DecodeMono(data)
	if err != nil {
		return nil, err
	}
	return s.extractor.Extract(clip)
}

// listWAVs returns the .wav files directly inside dir, sorted by name so
// seeding order (and therefore corpus insertion order) is deterministic.
func listWAVs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read label directory: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".wav") {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
