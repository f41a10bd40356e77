package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"

	"github.com/ruixin88/backtest-console/src/console-api/models"
)

// MaxKlinePageSize caps a single page of bars; callers page until
// exhaustion to build a full axis.
const MaxKlinePageSize = 1000

// KlineStore persists OHLC bars as one CSV file per symbol and
// granularity under <dataDir>/kline. Writes merge with existing rows,
// dedupe by timestamp (last wins) and keep the file sorted ascending.
type KlineStore struct {
	dataDir string
	mu      sync.Mutex
}

func NewKlineStore(dataDir string) *KlineStore {
	return &KlineStore{dataDir: filepath.Join(dataDir, "kline")}
}

func (s *KlineStore) filePath(symbol string, granularity models.TimeGranularity) string {
	return filepath.Join(s.dataDir, fmt.Sprintf("%s_%s_kline.csv", symbol, granularity))
}

// Read returns all bars for a symbol at a granularity, sorted ascending.
// A missing file is an empty dataset, not an error.
func (s *KlineStore) Read(symbol string, granularity models.TimeGranularity) ([]*models.KlineBar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readLocked(symbol, granularity)
}

func (s *KlineStore) readLocked(symbol string, granularity models.TimeGranularity) ([]*models.KlineBar, error) {
	f, err := os.Open(s.filePath(symbol, granularity))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("KlineStore.Read: failed to open file: %w", err)
	}
	defer f.Close()

	var dtos []*models.KlineBarDTO
	if err := gocsv.UnmarshalFile(f, &dtos); err != nil {
		return nil, fmt.Errorf("KlineStore.Read: failed to unmarshal %s: %w", f.Name(), err)
	}

	bars := make([]*models.KlineBar, 0, len(dtos))
	for _, dto := range dtos {
		bar, err := dto.ToModel()
		if err != nil {
			log.Warnf("KlineStore.Read: skipping row with bad timestamp %q: %v", dto.Date, err)
			continue
		}

		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})

	return bars, nil
}

// Write merges bars into the symbol's file, deduplicating by timestamp
// with the newest write winning.
func (s *KlineStore) Write(symbol string, granularity models.TimeGranularity, bars []*models.KlineBar) error {
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readLocked(symbol, granularity)
	if err != nil {
		return fmt.Errorf("KlineStore.Write: %w", err)
	}

	merged := make(map[time.Time]*models.KlineBar, len(existing)+len(bars))
	for _, bar := range existing {
		merged[bar.Timestamp] = bar
	}
	for _, bar := range bars {
		merged[bar.Timestamp] = bar
	}

	out := make([]*models.KlineBar, 0, len(merged))
	for _, bar := range merged {
		out = append(out, bar)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return fmt.Errorf("KlineStore.Write: failed to create data dir: %w", err)
	}

	f, err := os.Create(s.filePath(symbol, granularity))
	if err != nil {
		return fmt.Errorf("KlineStore.Write: failed to create file: %w", err)
	}
	defer f.Close()

	dtos := make([]*models.KlineBarDTO, 0, len(out))
	for _, bar := range out {
		dtos = append(dtos, bar.ToDTO())
	}

	if err := gocsv.MarshalFile(&dtos, f); err != nil {
		return fmt.Errorf("KlineStore.Write: failed to marshal csv: %w", err)
	}

	log.Infof("KlineStore: wrote %d bars to %s", len(out), f.Name())
	return nil
}

// ImportCSV parses an uploaded CSV payload and merges it into the store.
// Returns the number of imported rows.
func (s *KlineStore) ImportCSV(r io.Reader, symbol string, granularity models.TimeGranularity) (int, error) {
	var dtos []*models.KlineBarDTO
	if err := gocsv.Unmarshal(r, &dtos); err != nil {
		return 0, fmt.Errorf("KlineStore.ImportCSV: failed to parse csv: %w", err)
	}

	bars := make([]*models.KlineBar, 0, len(dtos))
	for _, dto := range dtos {
		bar, err := dto.ToModel()
		if err != nil {
			log.Warnf("KlineStore.ImportCSV: skipping row %q: %v", dto.Date, err)
			continue
		}

		bars = append(bars, bar)
	}

	if err := s.Write(symbol, granularity, bars); err != nil {
		return 0, err
	}

	return len(bars), nil
}

// Query filters bars by an optional time range. Daily granularity treats
// the range as whole days, so an end date includes its entire day.
func (s *KlineStore) Query(symbol string, granularity models.TimeGranularity, startDate, endDate *time.Time) ([]*models.KlineBar, error) {
	bars, err := s.Read(symbol, granularity)
	if err != nil {
		return nil, err
	}

	if startDate == nil && endDate == nil {
		return bars, nil
	}

	var from, to time.Time
	if startDate != nil {
		from = *startDate
		if granularity == models.TimeGranularityDaily {
			from = models.TimeGranularityDaily.Truncate(from)
		}
	}

	if endDate != nil {
		to = *endDate
		if granularity == models.TimeGranularityDaily {
			to = models.TimeGranularityDaily.Truncate(to).Add(24*time.Hour - time.Second)
		}
	}

	filtered := make([]*models.KlineBar, 0, len(bars))
	for _, bar := range bars {
		if startDate != nil && bar.Timestamp.Before(from) {
			continue
		}

		if endDate != nil && bar.Timestamp.After(to) {
			continue
		}

		filtered = append(filtered, bar)
	}

	return filtered, nil
}

// Paginate slices bars into one page, clamping the page size to
// MaxKlinePageSize.
func (s *KlineStore) Paginate(bars []*models.KlineBar, page, pageSize int) *models.PageData {
	if page < 1 {
		page = 1
	}

	if pageSize < 1 {
		pageSize = 100
	}

	if pageSize > MaxKlinePageSize {
		pageSize = MaxKlinePageSize
	}

	total := len(bars)
	offset := (page - 1) * pageSize

	var items []*models.KlineBar
	if offset < total {
		end := offset + pageSize
		if end > total {
			end = total
		}

		items = bars[offset:end]
	} else {
		items = []*models.KlineBar{}
	}

	return models.NewPageData(items, page, pageSize, int64(total))
}

// Symbols lists every symbol that has data at the given granularity.
func (s *KlineStore) Symbols(granularity models.TimeGranularity) ([]string, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("KlineStore.Symbols: %w", err)
	}

	suffix := fmt.Sprintf("_%s_kline.csv", granularity)

	var symbols []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}

		symbols = append(symbols, strings.TrimSuffix(entry.Name(), suffix))
	}

	sort.Strings(symbols)
	return symbols, nil
}

// Delete removes a symbol's file at the given granularity. Reports
// whether a file was actually removed.
func (s *KlineStore) Delete(symbol string, granularity models.TimeGranularity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.filePath(symbol, granularity))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("KlineStore.Delete: %w", err)
	}

	return true, nil
}

// DateRangeSummary describes one symbol+granularity dataset for the data
// management screen.
type DateRangeSummary struct {
	Count     int     `json:"count"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

// DateRange summarizes the dataset extent for a symbol at a granularity.
func (s *KlineStore) DateRange(symbol string, granularity models.TimeGranularity) (*DateRangeSummary, error) {
	bars, err := s.Read(symbol, granularity)
	if err != nil {
		return nil, err
	}

	summary := &DateRangeSummary{Count: len(bars)}
	if len(bars) > 0 {
		start := bars[0].Timestamp.UTC().Format(time.RFC3339)
		end := bars[len(bars)-1].Timestamp.UTC().Format(time.RFC3339)
		summary.StartDate = &start
		summary.EndDate = &end
	}

	return summary, nil
}
