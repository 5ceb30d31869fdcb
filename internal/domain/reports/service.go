package reports

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"poolops/internal/platform/metrics"
)

const DefaultMaxReadings = 10

type Service struct {
	Store       StoreAPI
	Metrics     *metrics.Collector
	MaxReadings int
	Now         func() time.Time
}

func NewService(store StoreAPI, maxReadings int) *Service {
	if maxReadings <= 0 {
		maxReadings = DefaultMaxReadings
	}
	return &Service{Store: store, MaxReadings: maxReadings, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

type ChecklistSubmission struct {
	EmployeeID int64
	LocationID int64
	Checklist  Payload
	Readings   []Payload
	Notes      string
}

// SubmitOutcome reports the stored checklist and the indexes of readings
// that could not be saved.
type SubmitOutcome struct {
	ChecklistID          int64 `json:"checklistId"`
	CompletionPercentage int   `json:"completionPercentage"`
	ReadingsSaved        int   `json:"readingsSaved"`
	FailedReadings       []int `json:"failedReadings"`
}

// SubmitChecklist stores the report and then each reading on its own. A
// failed reading leaves the report and the earlier readings in place.
func (s *Service) SubmitChecklist(ctx context.Context, sub ChecklistSubmission) (SubmitOutcome, error) {
	if sub.EmployeeID <= 0 || sub.LocationID <= 0 {
		return SubmitOutcome{}, fmt.Errorf("%w: userId and locationId are required", ErrInvalidInput)
	}
	if len(sub.Readings) > s.MaxReadings {
		return SubmitOutcome{}, fmt.Errorf("%w: at most %d per checklist", ErrTooManyReadings, s.MaxReadings)
	}

	report := checklistFromPayload(sub.Checklist)
	if report.CustomerRating != nil && (*report.CustomerRating < 1 || *report.CustomerRating > 5) {
		report.CustomerRating = nil
	}
	now := s.now()
	report.EmployeeID = sub.EmployeeID
	report.LocationID = sub.LocationID
	report.ServiceDate = now
	report.CreatedAt = now
	report.Notes = strings.TrimSpace(sub.Notes)

	id, err := s.Store.InsertReport(ctx, report)
	if err != nil {
		return SubmitOutcome{}, err
	}
	s.Metrics.Count(metrics.EventChecklist)

	outcome := SubmitOutcome{ChecklistID: id, CompletionPercentage: report.CompletionPercentage(), FailedReadings: []int{}}
	for i, p := range sub.Readings {
		reading := readingFromPayload(p)
		reading.ReportID = id
		reading.CreatedAt = now
		if _, err := s.Store.InsertReading(ctx, reading); err != nil {
			slog.Warn("chemical reading not saved", "checklist_id", id, "index", i, "error", err)
			s.Metrics.Count(metrics.EventReadingFailed)
			outcome.FailedReadings = append(outcome.FailedReadings, i)
			continue
		}
		outcome.ReadingsSaved++
	}
	return outcome, nil
}

type ReadingInput struct {
	ChecklistID     int64
	BodyOfWater     string
	Chlorine        *decimal.Decimal
	Bromine         *decimal.Decimal
	PH              *decimal.Decimal
	CalciumHardness *decimal.Decimal
	Alkalinity      *decimal.Decimal
	CyanuricAcid    *decimal.Decimal
	Salt            *decimal.Decimal
	Phosphates      *decimal.Decimal
}

// AddChemicalReading attaches one more reading to an existing checklist.
func (s *Service) AddChemicalReading(ctx context.Context, in ReadingInput) (ChemicalReading, error) {
	if in.ChecklistID <= 0 {
		return ChemicalReading{}, fmt.Errorf("%w: serviceChecklistId is required", ErrInvalidInput)
	}
	chlorine := in.Chlorine
	if chlorine == nil {
		chlorine = in.Bromine
	}
	body, ok := CanonicalBodyOfWater(in.BodyOfWater)
	if !ok {
		return ChemicalReading{}, fmt.Errorf("%w: bodyOfWater must be one of %s", ErrInvalidInput, strings.Join(BodiesOfWater, ", "))
	}
	reading := ChemicalReading{
		ReportID:        in.ChecklistID,
		BodyOfWater:     body,
		ChlorineBromine: chlorine,
		PH:              in.PH,
		CalciumHardness: in.CalciumHardness,
		TotalAlkalinity: in.Alkalinity,
		CyanuricAcid:    in.CyanuricAcid,
		Salt:            in.Salt,
		Phosphates:      in.Phosphates,
		CreatedAt:       s.now(),
	}
	id, err := s.Store.InsertReading(ctx, reading)
	if err != nil {
		return ChemicalReading{}, err
	}
	reading.ID = id
	return reading, nil
}

// GetChecklist returns the report with its readings.
func (s *Service) GetChecklist(ctx context.Context, id int64) (ServiceTechReport, error) {
	return s.Store.GetReport(ctx, id)
}

func (s *Service) ListChecklists(ctx context.Context, employeeID int64, from, to time.Time) ([]ChecklistSummary, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: endDate precedes startDate", ErrInvalidInput)
	}
	reports, err := s.Store.ListReports(ctx, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]ChecklistSummary, 0, len(reports))
	for _, r := range reports {
		out = append(out, ChecklistSummary{
			ChecklistID:          r.ID,
			LocationID:           r.LocationID,
			LocationName:         r.LocationName,
			ServiceDate:          r.ServiceDate,
			CompletionPercentage: r.CompletionPercentage(),
			Notes:                r.Notes,
			CreatedAt:            r.CreatedAt,
		})
	}
	return out, nil
}

func (s *Service) AddPhoto(ctx context.Context, p Photo) (Photo, error) {
	p.URL = strings.TrimSpace(p.URL)
	if p.ReportID <= 0 || p.URL == "" {
		return Photo{}, fmt.Errorf("%w: checklist and photoUrl are required", ErrInvalidInput)
	}
	if !validPhotoType(p.Type) {
		return Photo{}, fmt.Errorf("%w: unknown photo type %q", ErrInvalidInput, p.Type)
	}
	if p.TakenAt.IsZero() {
		p.TakenAt = s.now()
	}
	p.TakenAt = p.TakenAt.UTC()
	id, err := s.Store.InsertPhoto(ctx, p)
	if err != nil {
		return Photo{}, err
	}
	p.ID = id
	return p, nil
}

func (s *Service) ListPhotos(ctx context.Context, reportID int64) ([]Photo, error) {
	if _, err := s.Store.GetReport(ctx, reportID); err != nil {
		return nil, err
	}
	return s.Store.ListPhotos(ctx, reportID)
}

func validPhotoType(t string) bool {
	for _, candidate := range PhotoTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

type AuditSubmission struct {
	EmployeeID int64
	LocationID int64
	AuditType  string
	AuditData  Payload
}

// SubmitAudit stores a site evaluation. Unanswered items stay null.
func (s *Service) SubmitAudit(ctx context.Context, sub AuditSubmission) (SiteEvaluation, error) {
	if sub.EmployeeID <= 0 || sub.LocationID <= 0 {
		return SiteEvaluation{}, fmt.Errorf("%w: userId and locationId are required", ErrInvalidInput)
	}
	auditType := strings.TrimSpace(sub.AuditType)
	if auditType == "" {
		auditType = EvaluationSafetyAudit
	}
	if !ValidAuditType(auditType) {
		return SiteEvaluation{}, fmt.Errorf("%w: unknown audit type %q", ErrInvalidInput, auditType)
	}

	eval := evaluationFromPayload(sub.AuditData)
	now := s.now()
	eval.EmployeeID = sub.EmployeeID
	eval.LocationID = sub.LocationID
	eval.EvaluationType = auditType
	eval.EvaluationDate = now
	eval.CreatedAt = now

	id, err := s.Store.InsertEvaluation(ctx, eval)
	if err != nil {
		return SiteEvaluation{}, err
	}
	s.Metrics.Count(metrics.EventAudit)
	eval.ID = id
	return eval, nil
}

func (s *Service) GetAudit(ctx context.Context, id int64) (SiteEvaluation, error) {
	return s.Store.GetEvaluation(ctx, id)
}

func (s *Service) ListAudits(ctx context.Context, employeeID int64, from, to time.Time) ([]AuditSummary, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: endDate precedes startDate", ErrInvalidInput)
	}
	evaluations, err := s.Store.ListEvaluations(ctx, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]AuditSummary, 0, len(evaluations))
	for _, e := range evaluations {
		out = append(out, AuditSummary{
			AuditID:                    e.ID,
			LocationID:                 e.LocationID,
			LocationName:               e.LocationName,
			AuditType:                  e.EvaluationType,
			SafetyCompliancePercentage: e.SafetyCompliancePercentage(),
			CreatedAt:                  e.CreatedAt,
		})
	}
	return out, nil
}
