package forecast

import (
	"sort"
	"sync"
	"time"

	"github.com/couchcryptid/solar-forecast-etl/internal/domain"
)

const (
	// maxEntriesPerLocation bounds memory per site; older entries are dropped first.
	maxEntriesPerLocation = 512

	// coverWindow is how long a provider forecast entry describes conditions.
	coverWindow = 3 * time.Hour
)

// LatestStore keeps the most recent provider forecast entries per location.
// It is safe for concurrent use: the pipeline records while the HTTP server reads.
type LatestStore struct {
	mu      sync.RWMutex
	entries map[string][]domain.WeatherObservation // sorted by timestamp
}

// NewLatestStore creates an empty store.
func NewLatestStore() *LatestStore {
	return &LatestStore{entries: make(map[string][]domain.WeatherObservation)}
}

// Record merges forecast rows into the store. A row for an existing
// (location, timestamp) replaces the earlier one.
func (s *LatestStore) Record(rows []domain.WeatherObservation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := make(map[string]struct{})
	for _, row := range rows {
		list := s.entries[row.Location]
		i := sort.Search(len(list), func(i int) bool { return !list[i].Timestamp.Before(row.Timestamp) })
		if i < len(list) && list[i].Timestamp.Equal(row.Timestamp) {
			list[i] = row
		} else {
			list = append(list, domain.WeatherObservation{})
			copy(list[i+1:], list[i:])
			list[i] = row
		}
		s.entries[row.Location] = list
		touched[row.Location] = struct{}{}
	}

	for loc := range touched {
		if list := s.entries[loc]; len(list) > maxEntriesPerLocation {
			s.entries[loc] = append([]domain.WeatherObservation(nil), list[len(list)-maxEntriesPerLocation:]...)
		}
	}
}

// Lookup returns the latest entry at or before t that still covers t.
func (s *LatestStore) Lookup(location string, t time.Time) (domain.WeatherObservation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.entries[location]
	i := sort.Search(len(list), func(i int) bool { return list[i].Timestamp.After(t) })
	if i == 0 {
		return domain.WeatherObservation{}, false
	}
	entry := list[i-1]
	if t.Sub(entry.Timestamp) >= coverWindow {
		return domain.WeatherObservation{}, false
	}
	return entry, true
}

// Locations lists the sites with recorded forecasts, sorted.
func (s *LatestStore) Locations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.entries))
	for loc := range s.entries {
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}

// Len is the number of entries recorded for a location.
func (s *LatestStore) Len(location string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries[location])
}
