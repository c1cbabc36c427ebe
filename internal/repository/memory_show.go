package repository

import (
	"context"

	"github.com/moonkyuu/cinebook/internal/domain"
)

// MemoryShowCatalog is a fixed in-process show catalog for tests and DSN-less
// dev runs.
type MemoryShowCatalog struct {
	shows []domain.Show
}

func NewMemoryShowCatalog(shows []domain.Show) *MemoryShowCatalog {
	return &MemoryShowCatalog{shows: shows}
}

// SampleShows returns the dev seed catalog.
func SampleShows() []domain.Show {
	return []domain.Show{
		{ID: "S101", Movie: "Dune: Part Two", Time: "14:00", Theater: "T1", TotalSeats: 50},
		{ID: "S102", Movie: "Exhuma", Time: "17:30", Theater: "T2", TotalSeats: 40},
	}
}

func (m *MemoryShowCatalog) GetById(ctx context.Context, id string) (*domain.Show, error) {
	for _, show := range m.shows {
		if show.ID == id {
			s := show
			return &s, nil
		}
	}

	return nil, domain.ErrRecordNotFound
}

func (m *MemoryShowCatalog) List(ctx context.Context) ([]domain.Show, error) {
	shows := make([]domain.Show, len(m.shows))
	copy(shows, m.shows)

	return shows, nil
}
