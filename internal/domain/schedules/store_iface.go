package schedules

import (
	"context"
	"time"
)

type StoreAPI interface {
	Create(ctx context.Context, e Entry) (int64, error)
	Get(ctx context.Context, id int64) (Entry, error)
	List(ctx context.Context, filter Filter) ([]Entry, error)
	Delete(ctx context.Context, id int64) error
	// Candidates returns entries that may produce a shift starting in
	// [from, to). Zero ids match any employee or location.
	Candidates(ctx context.Context, employeeID, locationID int64, from, to time.Time) ([]Entry, error)
}
