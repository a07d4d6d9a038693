package models

import (
	"time"

	"github.com/google/uuid"
)

// Asset is a piece of biomedical equipment tracked by the asset directory.
// The scheduling subsystem reads it and writes back computed next-due dates;
// everything else about the record is owned elsewhere.
type Asset struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	EquipmentType       string     `json:"equipment_type"`
	Manufacturer        string     `json:"manufacturer,omitempty"`
	ModelNumber         string     `json:"model_number,omitempty"`
	SerialNumber        string     `json:"serial_number,omitempty"`
	Location            string     `json:"location,omitempty"`
	Status              string     `json:"status"`
	PurchaseDate        *time.Time `json:"purchase_date,omitempty"`
	NextPMDate          *time.Time `json:"next_pm_date,omitempty"`
	NextCalibrationDate *time.Time `json:"next_calibration_date,omitempty"`
	CalibrationVendorID *uuid.UUID `json:"calibration_vendor_id,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// NextDueFor returns the asset's recorded next-due date for the given task
// kind, or nil if none has been computed yet.
func (a Asset) NextDueFor(kind TaskKind) *time.Time {
	if kind == KindCalibration {
		return a.NextCalibrationDate
	}
	return a.NextPMDate
}

// AssetFilter narrows ListAssets queries.
type AssetFilter struct {
	IDs           []uuid.UUID
	EquipmentType string
	Status        string
}
