package domain

import (
	"context"
	"fmt"
)

// seatsPerRow fixes the deterministic seat-name enumeration: seats 1..N map to
// A1..A10, B1..B10 and so on. The catalog only stores a seat count; the name
// space is derived, never stored.
const seatsPerRow = 10

// Show is a single screening with a fixed seat inventory. Immutable after
// creation; owned by the show catalog.
type Show struct {
	ID         string
	Movie      string
	Time       string
	Theater    string
	TotalSeats int
}

// SeatLabels enumerates the show's full seat-name space in order.
func (s Show) SeatLabels() []string {
	labels := make([]string, s.TotalSeats)
	for i := 0; i < s.TotalSeats; i++ {
		labels[i] = SeatLabel(i)
	}
	return labels
}

// HasSeat reports whether label belongs to the show's seat space.
func (s Show) HasSeat(label string) bool {
	for i := 0; i < s.TotalSeats; i++ {
		if SeatLabel(i) == label {
			return true
		}
	}
	return false
}

// SeatLabel maps a zero-based seat position to its name, e.g. 0 -> A1, 10 -> B1.
func SeatLabel(pos int) string {
	row := rune('A' + pos/seatsPerRow)
	return fmt.Sprintf("%c%d", row, pos%seatsPerRow+1)
}

type ShowRepository interface {
	GetById(ctx context.Context, id string) (*Show, error)
	List(ctx context.Context) ([]Show, error)
}
