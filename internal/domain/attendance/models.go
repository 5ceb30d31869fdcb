package attendance

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"poolops/internal/domain/schedules"
)

const (
	StatusActive    = "Active"
	StatusCompleted = "Completed"
)

type Coordinate struct {
	Latitude  decimal.Decimal `json:"latitude"`
	Longitude decimal.Decimal `json:"longitude"`
}

type ClockRecord struct {
	ID               int64            `json:"id"`
	EmployeeID       int64            `json:"employeeId"`
	EmployeeName     string           `json:"employeeName,omitempty"`
	LocationID       int64            `json:"locationId"`
	LocationName     string           `json:"locationName,omitempty"`
	ScheduleID       *int64           `json:"scheduleId,omitempty"`
	ClockInTime      time.Time        `json:"clockInTime"`
	ClockInLocation  *Coordinate      `json:"clockInLocation,omitempty"`
	ClockOutTime     *time.Time       `json:"clockOutTime"`
	ClockOutLocation *Coordinate      `json:"clockOutLocation,omitempty"`
	TotalHours       *decimal.Decimal `json:"totalHours"`
	JobsiteNotes     string           `json:"jobsiteNotes,omitempty"`
	IsLate           bool             `json:"isLate"`
	LateMinutes      *int             `json:"lateMinutes,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

func (r ClockRecord) IsOpen() bool {
	return r.ClockOutTime == nil
}

func (r ClockRecord) Status() string {
	if r.IsOpen() {
		return StatusActive
	}
	return StatusCompleted
}

func (r ClockRecord) LateStatus() string {
	if !r.IsLate {
		return "On Time"
	}
	minutes := 0
	if r.LateMinutes != nil {
		minutes = *r.LateMinutes
	}
	return fmt.Sprintf("Late (%d min)", minutes)
}

func (r ClockRecord) MarshalJSON() ([]byte, error) {
	type alias ClockRecord
	return json.Marshal(struct {
		alias
		Status     string `json:"status"`
		LateStatus string `json:"lateStatus"`
	}{alias: alias(r), Status: r.Status(), LateStatus: r.LateStatus()})
}

type WorkHistory struct {
	EmployeeID         int64           `json:"employeeId"`
	From               time.Time       `json:"from"`
	To                 time.Time       `json:"to"`
	Records            []ClockRecord   `json:"records"`
	TotalHours         decimal.Decimal `json:"totalHours"`
	DaysWorked         int             `json:"daysWorked"`
	AverageHoursPerDay decimal.Decimal `json:"averageHoursPerDay"`
}

type DaySummary struct {
	Date       time.Time       `json:"date"`
	Records    []ClockRecord   `json:"records"`
	TotalHours decimal.Decimal `json:"totalHours"`
	Workers    int             `json:"workers"`
}

type PunchStatus string

const (
	PunchOnTime      PunchStatus = "OnTime"
	PunchLate        PunchStatus = "Late"
	PunchEarly       PunchStatus = "Early"
	PunchMissed      PunchStatus = "Missed"
	PunchUnscheduled PunchStatus = "Unscheduled"
)

// Punch pairs a scheduled shift with the record that answered it. Either
// side may be absent.
type Punch struct {
	EmployeeID int64            `json:"employeeId"`
	LocationID int64            `json:"locationId"`
	Shift      *schedules.Shift `json:"shift,omitempty"`
	Record     *ClockRecord     `json:"record,omitempty"`
	Status     PunchStatus      `json:"status"`
}
