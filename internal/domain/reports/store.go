package reports

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolops/internal/platform/db"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

const reportColumns = `r.id, r.employee_id, COALESCE(e.first_name || ' ' || e.last_name, ''), r.location_id, COALESCE(l.name, ''),
    r.service_date, r.pool_vacuumed, r.pool_brushed, r.skimmers_empty, r.tiles_cleaned, r.furniture_arranged,
    r.cleaned_strainer, r.backwash_filters, r.cleaned_cartridges, r.empty_trash, r.broom_bucket_hose_deck,
    r.furniture_organized, r.skim_water_surface, r.calibrated_chemical_controller,
    r.flowrate, r.filter_pressure, r.water_temp, r.controller_orp, r.controller_ph,
    r.needs_chlorine, r.needs_acid, r.needs_test_kit_reagents, r.needs_filter_parts,
    COALESCE(r.report_sent_to, ''), r.customer_rating, COALESCE(r.customer_feedback, ''), COALESCE(r.notes, ''), r.created_at`

const reportFrom = ` FROM service_tech_reports r
    LEFT JOIN employees e ON e.id = r.employee_id
    LEFT JOIN job_locations l ON l.id = r.location_id`

func scanReport(row pgx.Row) (ServiceTechReport, error) {
	var r ServiceTechReport
	var cartridges string
	var rating *int16
	err := row.Scan(&r.ID, &r.EmployeeID, &r.EmployeeName, &r.LocationID, &r.LocationName,
		&r.ServiceDate, &r.PoolVacuumed, &r.PoolBrushed, &r.SkimmersEmpty, &r.TilesCleaned, &r.FurnitureArranged,
		&r.CleanedStrainer, &r.BackwashFilters, &cartridges, &r.EmptyTrash, &r.BroomBucketHoseDeck,
		&r.FurnitureOrganized, &r.SkimWaterSurface, &r.CalibratedChemicalController,
		&r.Flowrate, &r.FilterPressure, &r.WaterTemp, &r.ControllerORP, &r.ControllerPH,
		&r.NeedsChlorine, &r.NeedsAcid, &r.NeedsTestKitReagents, &r.NeedsFilterParts,
		&r.ReportSentTo, &rating, &r.CustomerFeedback, &r.Notes, &r.CreatedAt)
	if err != nil {
		return ServiceTechReport{}, err
	}
	r.EmployeeName = strings.TrimSpace(r.EmployeeName)
	r.CleanedCartridges = TriState(cartridges).OrFalse()
	if rating != nil {
		v := int(*rating)
		r.CustomerRating = &v
	}
	r.ServiceDate = r.ServiceDate.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	r.Readings = []ChemicalReading{}
	return r, nil
}

func (s *Store) InsertReport(ctx context.Context, r ServiceTechReport) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO service_tech_reports (employee_id, location_id, service_date,
        pool_vacuumed, pool_brushed, skimmers_empty, tiles_cleaned, furniture_arranged, cleaned_strainer,
        backwash_filters, cleaned_cartridges, empty_trash, broom_bucket_hose_deck, furniture_organized,
        skim_water_surface, calibrated_chemical_controller,
        flowrate, filter_pressure, water_temp, controller_orp, controller_ph,
        needs_chlorine, needs_acid, needs_test_kit_reagents, needs_filter_parts,
        report_sent_to, customer_rating, customer_feedback, notes, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30)
    RETURNING id
  `, r.EmployeeID, r.LocationID, r.ServiceDate,
		r.PoolVacuumed, r.PoolBrushed, r.SkimmersEmpty, r.TilesCleaned, r.FurnitureArranged, r.CleanedStrainer,
		r.BackwashFilters, string(r.CleanedCartridges.OrFalse()), r.EmptyTrash, r.BroomBucketHoseDeck, r.FurnitureOrganized,
		r.SkimWaterSurface, r.CalibratedChemicalController,
		r.Flowrate, r.FilterPressure, r.WaterTemp, r.ControllerORP, r.ControllerPH,
		r.NeedsChlorine, r.NeedsAcid, r.NeedsTestKitReagents, r.NeedsFilterParts,
		nullIfEmpty(r.ReportSentTo), r.CustomerRating, nullIfEmpty(r.CustomerFeedback), nullIfEmpty(r.Notes), r.CreatedAt).Scan(&id)
	if db.IsForeignKeyViolation(err) {
		return 0, ErrUnknownReference
	}
	if db.IsCheckViolation(err) {
		return 0, ErrInvalidInput
	}
	return id, err
}

func (s *Store) InsertReading(ctx context.Context, c ChemicalReading) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO chemical_readings (report_id, body_of_water, chlorine_bromine, ph, calcium_hardness,
        total_alkalinity, cyanuric_acid, salt, phosphates, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    RETURNING id
  `, c.ReportID, c.BodyOfWater, c.ChlorineBromine, c.PH, c.CalciumHardness,
		c.TotalAlkalinity, c.CyanuricAcid, c.Salt, c.Phosphates, c.CreatedAt).Scan(&id)
	if db.IsForeignKeyViolation(err) {
		return 0, ErrChecklistNotFound
	}
	return id, err
}

func (s *Store) GetReport(ctx context.Context, id int64) (ServiceTechReport, error) {
	r, err := scanReport(s.DB.QueryRow(ctx, `SELECT `+reportColumns+reportFrom+` WHERE r.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ServiceTechReport{}, ErrChecklistNotFound
	}
	if err != nil {
		return ServiceTechReport{}, err
	}
	r.Readings, err = s.ListReadings(ctx, id)
	if err != nil {
		return ServiceTechReport{}, err
	}
	return r, nil
}

func (s *Store) ListReadings(ctx context.Context, reportID int64) ([]ChemicalReading, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, report_id, body_of_water, chlorine_bromine, ph, calcium_hardness, total_alkalinity,
        cyanuric_acid, salt, phosphates, created_at
    FROM chemical_readings
    WHERE report_id = $1
    ORDER BY id
  `, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ChemicalReading{}
	for rows.Next() {
		var c ChemicalReading
		if err := rows.Scan(&c.ID, &c.ReportID, &c.BodyOfWater, &c.ChlorineBromine, &c.PH, &c.CalciumHardness,
			&c.TotalAlkalinity, &c.CyanuricAcid, &c.Salt, &c.Phosphates, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ListReports(ctx context.Context, employeeID int64, from, to time.Time) ([]ServiceTechReport, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+reportColumns+reportFrom+`
    WHERE r.employee_id = $1 AND r.service_date >= $2 AND r.service_date <= $3
    ORDER BY r.service_date DESC`, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ServiceTechReport{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) InsertPhoto(ctx context.Context, p Photo) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO report_photos (report_id, photo_url, photo_type, description, gps_location, taken_at)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id
  `, p.ReportID, p.URL, p.Type, nullIfEmpty(p.Description), nullIfEmpty(p.GPSLocation), p.TakenAt).Scan(&id)
	if db.IsForeignKeyViolation(err) {
		return 0, ErrChecklistNotFound
	}
	return id, err
}

func (s *Store) ListPhotos(ctx context.Context, reportID int64) ([]Photo, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, report_id, photo_url, photo_type, COALESCE(description, ''), COALESCE(gps_location, ''), taken_at
    FROM report_photos
    WHERE report_id = $1
    ORDER BY taken_at, id
  `, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Photo{}
	for rows.Next() {
		var p Photo
		if err := rows.Scan(&p.ID, &p.ReportID, &p.URL, &p.Type, &p.Description, &p.GPSLocation, &p.TakenAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const evaluationColumns = `v.id, v.employee_id, COALESCE(e.first_name || ' ' || e.last_name, ''), v.location_id, COALESCE(l.name, ''),
    v.evaluation_type, v.evaluation_date,
    v.pool_open, v.main_drain_visible, v.aed_present, v.rescue_tube_present, v.backboard_present, v.first_aid_kit,
    v.bloodborne_pathogen_kit, v.haz_mat_kit, v.gate_fence_secured, v.emergency_phone_working,
    v.staff_on_duty, v.scanning_rotation_discussed, v.zones_established, v.break_time_discussed,
    v.gate_control_discussed, v.cellphone_policy_discussed, v.pumproom_cleaned,
    v.balancing_chemicals_tested_logged, v.closing_procedures_discussed,
    v.staff_wearing_uniform, v.facility_entry_procedures, v.msds, v.safety_supplies_needed,
    COALESCE(v.notes, ''), v.created_at`

const evaluationFrom = ` FROM site_evaluations v
    LEFT JOIN employees e ON e.id = v.employee_id
    LEFT JOIN job_locations l ON l.id = v.location_id`

func scanEvaluation(row pgx.Row) (SiteEvaluation, error) {
	var v SiteEvaluation
	err := row.Scan(&v.ID, &v.EmployeeID, &v.EmployeeName, &v.LocationID, &v.LocationName,
		&v.EvaluationType, &v.EvaluationDate,
		&v.PoolOpen, &v.MainDrainVisible, &v.AEDPresent, &v.RescueTubePresent, &v.BackboardPresent, &v.FirstAidKit,
		&v.BloodbornePathogenKit, &v.HazMatKit, &v.GateFenceSecured, &v.EmergencyPhoneWorking,
		&v.StaffOnDuty, &v.ScanningRotationDiscussed, &v.ZonesEstablished, &v.BreakTimeDiscussed,
		&v.GateControlDiscussed, &v.CellphonePolicyDiscussed, &v.PumproomCleaned,
		&v.BalancingChemicalsTestedLogged, &v.ClosingProceduresDiscussed,
		&v.StaffWearingUniform, &v.FacilityEntryProcedures, &v.MSDS, &v.SafetySuppliesNeeded,
		&v.Notes, &v.CreatedAt)
	if err != nil {
		return SiteEvaluation{}, err
	}
	v.EmployeeName = strings.TrimSpace(v.EmployeeName)
	v.EvaluationDate = v.EvaluationDate.UTC()
	v.CreatedAt = v.CreatedAt.UTC()
	return v, nil
}

func (s *Store) InsertEvaluation(ctx context.Context, v SiteEvaluation) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO site_evaluations (employee_id, location_id, evaluation_type, evaluation_date,
        pool_open, main_drain_visible, aed_present, rescue_tube_present, backboard_present, first_aid_kit,
        bloodborne_pathogen_kit, haz_mat_kit, gate_fence_secured, emergency_phone_working,
        staff_on_duty, scanning_rotation_discussed, zones_established, break_time_discussed,
        gate_control_discussed, cellphone_policy_discussed, pumproom_cleaned,
        balancing_chemicals_tested_logged, closing_procedures_discussed,
        staff_wearing_uniform, facility_entry_procedures, msds, safety_supplies_needed, notes, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29)
    RETURNING id
  `, v.EmployeeID, v.LocationID, v.EvaluationType, v.EvaluationDate,
		v.PoolOpen, v.MainDrainVisible, v.AEDPresent, v.RescueTubePresent, v.BackboardPresent, v.FirstAidKit,
		v.BloodbornePathogenKit, v.HazMatKit, v.GateFenceSecured, v.EmergencyPhoneWorking,
		v.StaffOnDuty, v.ScanningRotationDiscussed, v.ZonesEstablished, v.BreakTimeDiscussed,
		v.GateControlDiscussed, v.CellphonePolicyDiscussed, v.PumproomCleaned,
		v.BalancingChemicalsTestedLogged, v.ClosingProceduresDiscussed,
		v.StaffWearingUniform, v.FacilityEntryProcedures, v.MSDS, v.SafetySuppliesNeeded,
		nullIfEmpty(v.Notes), v.CreatedAt).Scan(&id)
	if db.IsForeignKeyViolation(err) {
		return 0, ErrUnknownReference
	}
	if db.IsCheckViolation(err) {
		return 0, ErrInvalidInput
	}
	return id, err
}

func (s *Store) GetEvaluation(ctx context.Context, id int64) (SiteEvaluation, error) {
	v, err := scanEvaluation(s.DB.QueryRow(ctx, `SELECT `+evaluationColumns+evaluationFrom+` WHERE v.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return SiteEvaluation{}, ErrAuditNotFound
	}
	return v, err
}

func (s *Store) ListEvaluations(ctx context.Context, employeeID int64, from, to time.Time) ([]SiteEvaluation, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+evaluationColumns+evaluationFrom+`
    WHERE v.employee_id = $1 AND v.evaluation_date >= $2 AND v.evaluation_date <= $3
    ORDER BY v.evaluation_date DESC`, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SiteEvaluation{}
	for rows.Next() {
		v, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
