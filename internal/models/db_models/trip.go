package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type TripStatus string

const (
	TripStatusPending TripStatus = "pending"
	TripStatusDraft   TripStatus = "draft"
	TripStatusActive  TripStatus = "active"
)

type Trip struct {
	BaseModel
	OwnerID     uuid.UUID  `gorm:"type:uuid;index" json:"owner_id"`
	Title       string     `json:"title"`
	Destination string     `json:"destination"`
	Status      TripStatus `gorm:"type:varchar(16);default:'pending'" json:"status"`
	Travelers   int        `gorm:"default:1" json:"travelers"`
	Budget      *float64   `json:"budget,omitempty"`
	Currency    string     `gorm:"size:3" json:"currency"`
	StartDate   string     `gorm:"size:10" json:"start_date,omitempty"`
	EndDate     string     `gorm:"size:10" json:"end_date,omitempty"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`

	// Itinerary holds []response_models.StoredDay.
	Itinerary datatypes.JSON `gorm:"type:jsonb;default:'[]'" json:"itinerary"`
	// Waypoints holds []response_models.Waypoint.
	Waypoints datatypes.JSON `gorm:"type:jsonb;default:'[]'" json:"waypoints"`
	// Metadata holds response_models.TripMetadata.
	Metadata datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"metadata"`
}
