package reports

import (
	"context"
	"time"
)

type StoreAPI interface {
	InsertReport(ctx context.Context, r ServiceTechReport) (int64, error)
	InsertReading(ctx context.Context, reading ChemicalReading) (int64, error)
	GetReport(ctx context.Context, id int64) (ServiceTechReport, error)
	ListReadings(ctx context.Context, reportID int64) ([]ChemicalReading, error)
	// ListReports selects on service date in [from, to].
	ListReports(ctx context.Context, employeeID int64, from, to time.Time) ([]ServiceTechReport, error)
	InsertPhoto(ctx context.Context, photo Photo) (int64, error)
	ListPhotos(ctx context.Context, reportID int64) ([]Photo, error)

	InsertEvaluation(ctx context.Context, e SiteEvaluation) (int64, error)
	GetEvaluation(ctx context.Context, id int64) (SiteEvaluation, error)
	ListEvaluations(ctx context.Context, employeeID int64, from, to time.Time) ([]SiteEvaluation, error)
}
