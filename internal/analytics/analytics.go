package analytics

import (
	"context"
	"time"

	"spectral-companion/internal/storage"
)

type Service struct {
	store *storage.Store
}

func New(store *storage.Store) *Service {
	return &Service{store: store}
}

type Report struct {
	Total   int
	ByEvent map[string]int
	ByLevel map[string]int
}

// Report aggregates the guild's activity log since the given time.
func (s *Service) Report(ctx context.Context, guildID string, since time.Time) (Report, error) {
	logs, err := s.store.ListActivityLogs(ctx, guildID, since)
	if err != nil {
		return Report{}, err
	}

	report := Report{ByEvent: make(map[string]int), ByLevel: make(map[string]int)}
	for _, log := range logs {
		report.Total++
		report.ByEvent[log.Event]++
		report.ByLevel[log.Level]++
	}
	return report, nil
}
