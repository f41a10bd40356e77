package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"

	"github.com/ruixin88/backtest-console/src/console-api/models"
)

// TrendStore persists daily trend classifications as one CSV file per
// symbol under <dataDir>/kline, alongside the bar files.
type TrendStore struct {
	dataDir string
	mu      sync.Mutex
}

func NewTrendStore(dataDir string) *TrendStore {
	return &TrendStore{dataDir: filepath.Join(dataDir, "kline")}
}

func (s *TrendStore) filePath(symbol string) string {
	return filepath.Join(s.dataDir, fmt.Sprintf("%s_trend_data.csv", symbol))
}

// Read returns all trend labels for a symbol, sorted by date ascending.
// Rows with an unrecognized trend string are normalized to ranging.
func (s *TrendStore) Read(symbol string) ([]*models.TrendLabel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readLocked(symbol)
}

func (s *TrendStore) readLocked(symbol string) ([]*models.TrendLabel, error) {
	f, err := os.Open(s.filePath(symbol))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("TrendStore.Read: failed to open file: %w", err)
	}
	defer f.Close()

	var dtos []*models.TrendLabelDTO
	if err := gocsv.UnmarshalFile(f, &dtos); err != nil {
		return nil, fmt.Errorf("TrendStore.Read: failed to unmarshal %s: %w", f.Name(), err)
	}

	labels := make([]*models.TrendLabel, 0, len(dtos))
	for _, dto := range dtos {
		label, known, err := dto.ToModel()
		if err != nil {
			log.Warnf("TrendStore.Read: skipping row with bad date %q: %v", dto.Date, err)
			continue
		}

		if !known {
			log.Warnf("TrendStore.Read: unknown trend %q for %s, treating as ranging", dto.Trend, dto.Date)
		}

		labels = append(labels, label)
	}

	sort.Slice(labels, func(i, j int) bool {
		return labels[i].Date.Before(labels[j].Date)
	})

	return labels, nil
}

// Write merges labels into the symbol's file, deduplicating by date with
// the newest write winning.
func (s *TrendStore) Write(symbol string, labels []*models.TrendLabel) error {
	if len(labels) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readLocked(symbol)
	if err != nil {
		return fmt.Errorf("TrendStore.Write: %w", err)
	}

	merged := make(map[string]*models.TrendLabel, len(existing)+len(labels))
	for _, label := range existing {
		merged[label.Date.Format("2006-01-02")] = label
	}
	for _, label := range labels {
		merged[label.Date.Format("2006-01-02")] = label
	}

	out := make([]*models.TrendLabel, 0, len(merged))
	for _, label := range merged {
		out = append(out, label)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})

	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return fmt.Errorf("TrendStore.Write: failed to create data dir: %w", err)
	}

	f, err := os.Create(s.filePath(symbol))
	if err != nil {
		return fmt.Errorf("TrendStore.Write: failed to create file: %w", err)
	}
	defer f.Close()

	dtos := make([]*models.TrendLabelDTO, 0, len(out))
	for _, label := range out {
		dtos = append(dtos, label.ToDTO())
	}

	if err := gocsv.MarshalFile(&dtos, f); err != nil {
		return fmt.Errorf("TrendStore.Write: failed to marshal csv: %w", err)
	}

	log.Infof("TrendStore: wrote %d labels to %s", len(out), f.Name())
	return nil
}

// ImportCSV parses an uploaded trend CSV payload and merges it into the
// store. Returns the number of imported rows.
func (s *TrendStore) ImportCSV(r io.Reader, symbol string) (int, error) {
	var dtos []*models.TrendLabelDTO
	if err := gocsv.Unmarshal(r, &dtos); err != nil {
		return 0, fmt.Errorf("TrendStore.ImportCSV: failed to parse csv: %w", err)
	}

	labels := make([]*models.TrendLabel, 0, len(dtos))
	for _, dto := range dtos {
		label, known, err := dto.ToModel()
		if err != nil {
			log.Warnf("TrendStore.ImportCSV: skipping row %q: %v", dto.Date, err)
			continue
		}

		if !known {
			log.Warnf("TrendStore.ImportCSV: unknown trend %q for %s, treating as ranging", dto.Trend, dto.Date)
		}

		labels = append(labels, label)
	}

	if err := s.Write(symbol, labels); err != nil {
		return 0, err
	}

	return len(labels), nil
}
