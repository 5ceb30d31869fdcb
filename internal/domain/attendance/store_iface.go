package attendance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type StoreAPI interface {
	// InsertOpen fails with ErrAlreadyClockedIn when the employee already
	// holds an open record.
	InsertOpen(ctx context.Context, rec ClockRecord) (int64, error)
	Get(ctx context.Context, id int64) (ClockRecord, error)
	// Close only touches an open record.
	Close(ctx context.Context, id int64, out time.Time, coord *Coordinate, hours decimal.Decimal) error
	Update(ctx context.Context, rec ClockRecord) error
	ListOpen(ctx context.Context) ([]ClockRecord, error)
	// ListBetween and ListByEmployee select on clock-in time in [from, to).
	ListBetween(ctx context.Context, from, to time.Time) ([]ClockRecord, error)
	ListByEmployee(ctx context.Context, employeeID int64, from, to time.Time) ([]ClockRecord, error)
	SumClosedHours(ctx context.Context, employeeID int64, from, to time.Time) (decimal.Decimal, error)
}
