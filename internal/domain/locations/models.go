package locations

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultCountry      = "USA"
	DefaultRadiusMeters = 100
	MaxLockboxLength    = 8
)

type JobLocation struct {
	ID                int64            `json:"id"`
	Name              string           `json:"name"`
	Address           string           `json:"address,omitempty"`
	City              string           `json:"city,omitempty"`
	State             string           `json:"state,omitempty"`
	Zip               string           `json:"zip,omitempty"`
	Country           string           `json:"country"`
	Latitude          *decimal.Decimal `json:"latitude,omitempty"`
	Longitude         *decimal.Decimal `json:"longitude,omitempty"`
	RadiusMeters      int              `json:"radiusMeters"`
	PoolType          string           `json:"poolType,omitempty"`
	PoolSize          string           `json:"poolSize,omitempty"`
	LockboxCode       string           `json:"lockboxCode,omitempty"`
	SupervisorID      *int64           `json:"supervisorId,omitempty"`
	SupervisorName    string           `json:"supervisorName,omitempty"`
	DepthFeet         *int             `json:"depthFeet,omitempty"`
	DepthInches       *int             `json:"depthInches,omitempty"`
	HasWadingPool     bool             `json:"hasWadingPool"`
	WadingPoolGallons *int             `json:"wadingPoolGallons,omitempty"`
	HasSpa            bool             `json:"hasSpa"`
	SpaGallons        *int             `json:"spaGallons,omitempty"`
	Notes             string           `json:"notes,omitempty"`
	IsActive          bool             `json:"isActive"`
	Contacts          []Contact        `json:"contacts"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

type Contact struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	IsPrimary bool   `json:"isPrimary"`
}

type Filter struct {
	ActiveOnly   bool
	SupervisorID int64
}
