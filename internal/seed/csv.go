package seed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"cadence/internal/features"
	"cadence/internal/wavio"
)

// ExtractCSV walks a labeled corpus tree (the same layout Seed consumes)
// and writes one training row per clip: filename, label, then the feature
// columns in extractor order. The output feeds model training.
func ExtractCSV(ctx context.Context, extractor features.Extractor, columns []string, root string, w io.Writer) (int, error) {
	writer := csv.NewWriter(w)
	header := append([]string{"filename", "label"}, columns...)
	if err := writer.Write(header); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return 0, fmt.Errorf("read corpus root: %w", err)
	}

	rows := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		label := NormalizeLabel(entry.Name())
		paths, err := listWAVs(filepath.Join(root, entry.Name()))
		if err != nil {
			return rows, err
		}
		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				return rows, err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return rows, fmt.Errorf("read %s: %w", path, err)
			}
			clip, err := wavio.DecodeMono(data)
			if err != nil {
				continue
			}
			vector, err := extractor.Extract(clip)
			if err != nil {
				continue
			}
			record := make([]string, 0, len(vector)+2)
			record = append(record, filepath.Base(path), label)
			for _, v := range vector {
				record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
			}
			if err := writer.Write(record); err != nil {
				return rows, fmt.Errorf("write csv row: %w", err)
			}
			rows++
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return rows, err
	}
	if rows == 0 {
		return 0, fmt.Errorf("no usable clips under %s", root)
	}
	return rows, nil
}

// ReadTrainingCSV parses a file produced by ExtractCSV back into vectors
// and labels for training. The first two columns are filename and label;
// everything after is a feature value.
func ReadTrainingCSV(r io.Reader) (vectors [][]float64, labels []string, err error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse training csv: %w", err)
	}
	if len(records) < 2 {
		return nil, nil, fmt.Errorf("training csv has no data rows")
	}

	for i, record := range records[1:] {
		if len(record) < 3 {
			return nil, nil, fmt.Errorf("row %d has %d columns, need at least 3", i+2, len(record))
		}
		vector := make([]float64, 0, len(record)-2)
		for col, raw := range record[2:] {
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d column %d: %w", i+2, col+3, err)
			}
			vector = append(vector, value)
		}
		vectors = append(vectors, vector)
		labels = append(labels, NormalizeLabel(record[1]))
	}
	return vectors, labels, nil
}
