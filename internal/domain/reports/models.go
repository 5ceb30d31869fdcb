package reports

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TriState string

const (
	TriTrue          TriState = "true"
	TriFalse         TriState = "false"
	TriNotApplicable TriState = "n/a"
)

func (t TriState) Valid() bool {
	return t == TriTrue || t == TriFalse || t == TriNotApplicable
}

// OrFalse maps anything outside the three answers to TriFalse.
func (t TriState) OrFalse() TriState {
	if t.Valid() {
		return t
	}
	return TriFalse
}

const DefaultBodyOfWater = "Main pool"

var BodiesOfWater = []string{"Main pool", "Wading Pool", "Spa", "Other"}

// CanonicalBodyOfWater matches raw case-insensitively against BodiesOfWater.
// Blank input is the main pool.
func CanonicalBodyOfWater(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DefaultBodyOfWater, true
	}
	for _, name := range BodiesOfWater {
		if strings.EqualFold(trimmed, name) {
			return name, true
		}
	}
	return trimmed, false
}

var PhotoTypes = []string{
	"Main Pool Full View",
	"Main Pool Main Drain",
	"Wading Pool",
	"Spa",
	"Other Water Feature",
	"Pool Gate Locked",
}

type ServiceTechReport struct {
	ID           int64     `json:"checklistId"`
	EmployeeID   int64     `json:"userId"`
	EmployeeName string    `json:"userName,omitempty"`
	LocationID   int64     `json:"locationId"`
	LocationName string    `json:"locationName,omitempty"`
	ServiceDate  time.Time `json:"serviceDate"`

	PoolVacuumed                 bool     `json:"poolVacuumed"`
	PoolBrushed                  bool     `json:"poolBrushed"`
	SkimmersEmpty                bool     `json:"skimmersEmpty"`
	TilesCleaned                 bool     `json:"tilesCleaned"`
	FurnitureArranged            bool     `json:"furnitureArranged"`
	CleanedStrainer              bool     `json:"cleanedStrainer"`
	BackwashFilters              bool     `json:"backwashFilters"`
	CleanedCartridges            TriState `json:"cleanedCartridges"`
	EmptyTrash                   bool     `json:"emptyTrash"`
	BroomBucketHoseDeck          bool     `json:"broomBucketHoseDeck"`
	FurnitureOrganized           bool     `json:"furnitureOrganized"`
	SkimWaterSurface             bool     `json:"skimWaterSurface"`
	CalibratedChemicalController bool     `json:"calibratedChemicalController"`

	Flowrate       decimal.Decimal `json:"flowrate"`
	FilterPressure decimal.Decimal `json:"filterPressure"`
	WaterTemp      decimal.Decimal `json:"waterTemp"`
	ControllerORP  decimal.Decimal `json:"controllerORP"`
	ControllerPH   decimal.Decimal `json:"controllerPH"`

	NeedsChlorine        bool `json:"needsChlorine"`
	NeedsAcid            bool `json:"needsAcid"`
	NeedsTestKitReagents bool `json:"needsTestKitReagents"`
	NeedsFilterParts     bool `json:"needsFilterParts"`

	ReportSentTo     string `json:"reportSentTo,omitempty"`
	CustomerRating   *int   `json:"customerRating,omitempty"`
	CustomerFeedback string `json:"customerFeedback,omitempty"`
	Notes            string `json:"notes,omitempty"`

	Readings  []ChemicalReading `json:"chemicalReadings"`
	CreatedAt time.Time         `json:"createdAt"`
}

// CompletionPercentage counts the twelve tracked tasks. Calibrating the
// controller is not one of them, and a not-applicable cartridge counts as
// not done.
func (r ServiceTechReport) CompletionPercentage() int {
	tasks := []bool{
		r.PoolVacuumed, r.PoolBrushed, r.SkimmersEmpty, r.TilesCleaned,
		r.FurnitureArranged, r.CleanedStrainer, r.BackwashFilters, r.CleanedCartridges == TriTrue,
		r.EmptyTrash, r.BroomBucketHoseDeck, r.FurnitureOrganized, r.SkimWaterSurface,
	}
	return percentOf(tasks)
}

type ChemicalReading struct {
	ID              int64            `json:"id"`
	ReportID        int64            `json:"checklistId"`
	BodyOfWater     string           `json:"bodyOfWater"`
	ChlorineBromine *decimal.Decimal `json:"chlorine"`
	PH              *decimal.Decimal `json:"phLevel"`
	CalciumHardness *decimal.Decimal `json:"calciumHardness"`
	TotalAlkalinity *decimal.Decimal `json:"alkalinity"`
	CyanuricAcid    *decimal.Decimal `json:"cyanuricAcid"`
	Salt            *decimal.Decimal `json:"saltLevel"`
	Phosphates      *decimal.Decimal `json:"phosphates"`
	CreatedAt       time.Time        `json:"createdAt"`
}

type Photo struct {
	ID          int64     `json:"id"`
	ReportID    int64     `json:"checklistId"`
	URL         string    `json:"photoUrl"`
	Type        string    `json:"photoType"`
	Description string    `json:"description,omitempty"`
	GPSLocation string    `json:"gpsLocation,omitempty"`
	TakenAt     time.Time `json:"takenAt"`
}

// ChecklistSummary is the list view of a report.
type ChecklistSummary struct {
	ChecklistID          int64     `json:"checklistId"`
	LocationID           int64     `json:"locationId"`
	LocationName         string    `json:"locationName"`
	ServiceDate          time.Time `json:"serviceDate"`
	CompletionPercentage int       `json:"completionPercentage"`
	Notes                string    `json:"notes"`
	CreatedAt            time.Time `json:"createdAt"`
}

const (
	EvaluationManager     = "Manager"
	EvaluationSupervisor  = "Supervisor"
	EvaluationSafetyAudit = "Safety Audit"
)

// AuditTypes lists the accepted evaluation types in display order.
func AuditTypes() []string {
	return []string{EvaluationSupervisor, EvaluationManager, EvaluationSafetyAudit}
}

func ValidAuditType(t string) bool {
	for _, candidate := range AuditTypes() {
		if candidate == t {
			return true
		}
	}
	return false
}

type SiteEvaluation struct {
	ID             int64     `json:"auditId"`
	EmployeeID     int64     `json:"userId"`
	EmployeeName   string    `json:"userName,omitempty"`
	LocationID     int64     `json:"locationId"`
	LocationName   string    `json:"locationName,omitempty"`
	EvaluationType string    `json:"auditType"`
	EvaluationDate time.Time `json:"evaluationDate"`

	PoolOpen              *bool `json:"poolOpen"`
	MainDrainVisible      *bool `json:"mainDrainVisible"`
	AEDPresent            *bool `json:"aedPresent"`
	RescueTubePresent     *bool `json:"rescueTubePresent"`
	BackboardPresent      *bool `json:"backboardPresent"`
	FirstAidKit           *bool `json:"firstAidKit"`
	BloodbornePathogenKit *bool `json:"bloodbornePathogenKit"`
	HazMatKit             *bool `json:"hazMatKit"`
	GateFenceSecured      *bool `json:"gateFenceSecured"`
	EmergencyPhoneWorking *bool `json:"emergencyPhoneWorking"`

	StaffOnDuty                    *bool `json:"staffOnDuty"`
	ScanningRotationDiscussed      *bool `json:"scanningRotationDiscussed"`
	ZonesEstablished               *bool `json:"zonesEstablished"`
	BreakTimeDiscussed             *bool `json:"breakTimeDiscussed"`
	GateControlDiscussed           *bool `json:"gateControlDiscussed"`
	CellphonePolicyDiscussed       *bool `json:"cellphonePolicyDiscussed"`
	PumproomCleaned                *bool `json:"pumproomCleaned"`
	BalancingChemicalsTestedLogged *bool `json:"balancingChemicalsTestedLogged"`
	ClosingProceduresDiscussed     *bool `json:"closingProceduresDiscussed"`

	StaffWearingUniform *bool `json:"staffWearingUniform"`

	FacilityEntryProcedures *bool `json:"facilityEntryProcedures"`
	MSDS                    *bool `json:"msds"`
	SafetySuppliesNeeded    *bool `json:"safetySuppliesNeeded"`

	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// SafetyCompliancePercentage scores the ten safety-equipment items. It
// applies to every evaluation type.
func (e SiteEvaluation) SafetyCompliancePercentage() int {
	return percentOf(trueValues(
		e.PoolOpen, e.MainDrainVisible, e.AEDPresent, e.RescueTubePresent, e.BackboardPresent,
		e.FirstAidKit, e.BloodbornePathogenKit, e.HazMatKit, e.GateFenceSecured, e.EmergencyPhoneWorking,
	))
}

// SupervisorChecklistPercentage scores the nine supervisor items. An
// evaluation that never answered them scores 0, the same as one that
// failed them all.
func (e SiteEvaluation) SupervisorChecklistPercentage() int {
	return percentOf(trueValues(
		e.StaffOnDuty, e.ScanningRotationDiscussed, e.ZonesEstablished, e.BreakTimeDiscussed,
		e.GateControlDiscussed, e.CellphonePolicyDiscussed, e.PumproomCleaned,
		e.BalancingChemicalsTestedLogged, e.ClosingProceduresDiscussed,
	))
}

type AuditSummary struct {
	AuditID                    int64     `json:"auditId"`
	LocationID                 int64     `json:"locationId"`
	LocationName               string    `json:"locationName"`
	AuditType                  string    `json:"auditType"`
	SafetyCompliancePercentage int       `json:"safetyCompliancePercentage"`
	CreatedAt                  time.Time `json:"createdAt"`
}

func trueValues(values ...*bool) []bool {
	out := make([]bool, len(values))
	for i, v := range values {
		out[i] = v != nil && *v
	}
	return out
}

func percentOf(items []bool) int {
	if len(items) == 0 {
		return 0
	}
	done := 0
	for _, item := range items {
		if item {
			done++
		}
	}
	return done * 100 / len(items)
}
