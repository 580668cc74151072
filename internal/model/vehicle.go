// Package model defines the canonical vehicle shapes shared across the
// import pipeline.
package model

import "time"

// Drivetrain is the closed drivetrain enumeration stored on a vehicle.
type Drivetrain string

const (
	DriveFront    Drivetrain = "fwd"
	DriveRear     Drivetrain = "rwd"
	DriveFour     Drivetrain = "4wd"
	DriveAllWheel Drivetrain = "awd"
)

// BodyStyle is the closed body style enumeration stored on a vehicle.
// Values match the upstream marketplace schema.
type BodyStyle string

const (
	BodySedan       BodyStyle = "SEDAN"
	BodyCoupe       BodyStyle = "COUPE"
	BodyConvertible BodyStyle = "CONVERTIBLE"
	BodyWagon       BodyStyle = "WAGON"
	BodyPickup      BodyStyle = "PICKUP"
	BodyVan         BodyStyle = "VAN"
	BodySUV         BodyStyle = "SUV"
	BodyHatchback   BodyStyle = "HATCHBACK"
)

// FuelClass names a row of the pre-seeded fuel reference table. The importer
// only resolves to these values, never creates new ones.
type FuelClass string

const (
	FuelGasoline         FuelClass = "gasoline"
	FuelDiesel           FuelClass = "diesel"
	FuelElectric         FuelClass = "electric"
	FuelGasolineElectric FuelClass = "gasoline+electric"
	FuelDieselElectric   FuelClass = "diesel+electric"
	FuelGasolineLPG      FuelClass = "gasoline+lpg"
	FuelOther            FuelClass = "other"
)

// TransmissionClass names a row of the pre-seeded transmission reference table.
type TransmissionClass string

const (
	TransmissionAutomatic     TransmissionClass = "automatic"
	TransmissionMechanical    TransmissionClass = "mechanical"
	TransmissionSemiAutomatic TransmissionClass = "semi_automatic"
	TransmissionVariator      TransmissionClass = "variator"
	TransmissionOther         TransmissionClass = "other"
)

// Ref is a resolved reference entity (make, model, fuel, transmission).
type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Zero reports whether the ref is unresolved.
func (r Ref) Zero() bool { return r.ID == 0 }

// Vehicle is the canonical, schema-conformant record ready for upsert.
// ExternalID is the sole upsert key.
type Vehicle struct {
	ExternalID   string     `json:"external_id"`
	Make         Ref        `json:"make"`
	Model        Ref        `json:"model"`
	Year         int        `json:"year"`
	EngineVolume *float64   `json:"engine_volume,omitempty"`
	BodyStyle    BodyStyle  `json:"body_style,omitempty"`
	Drivetrain   Drivetrain `json:"drivetrain,omitempty"`
	Fuel         Ref        `json:"fuel"`
	Transmission Ref        `json:"transmission"`
	Seats        int        `json:"seats"`
}

// MakePartition is one manufacturer-scoped unit of work. Expected is the
// upstream record count hint, used only for progress estimation.
type MakePartition struct {
	Name     string `yaml:"name" json:"name"`
	Expected int    `yaml:"expected" json:"expected"`
}

// RunStatus tracks the lifecycle of one partition import in the run log.
type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunComplete RunStatus = "complete"
	RunFailed   RunStatus = "failed"
)

// ImportRun is one row of the import run log.
type ImportRun struct {
	ID          string     `json:"id"`
	Make        string     `json:"make"`
	Status      RunStatus  `json:"status"`
	Processed   int        `json:"processed"`
	Succeeded   int        `json:"succeeded"`
	Failed      int        `json:"failed"`
	Skipped     int        `json:"skipped"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
