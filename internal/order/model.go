package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPendingReview Status = "pending_review"
	StatusPending       Status = "pending"
	StatusAccepted      Status = "accepted"
	StatusInProgress    Status = "in_progress"
	StatusCompleted     Status = "completed"
	StatusCancelled     Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

type ServiceType string

const (
	ServiceCleaningRepair   ServiceType = "cleaning_repair"
	ServiceITTechnology     ServiceType = "it_technology"
	ServiceEducation        ServiceType = "education_training"
	ServiceLifeHealth       ServiceType = "life_health"
	ServiceDesignConsulting ServiceType = "design_consulting"
	ServiceOther            ServiceType = "other"
)

type Location string

const (
	LocationNorth Location = "NORTH"
	LocationSouth Location = "SOUTH"
	LocationEast  Location = "EAST"
	LocationWest  Location = "WEST"
	LocationMid   Location = "MID"
)

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID   string
	Role string
}

const (
	RoleCustomer = "customer"
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)

// Order is the lifecycle subject. ProviderID is empty until a provider
// accepts and immutable afterwards.
type Order struct {
	ID            string          `json:"id"`
	CustomerID    string          `json:"customer_id"`
	ProviderID    string          `json:"provider_id,omitempty"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	ServiceType   ServiceType     `json:"service_type"`
	Price         decimal.Decimal `json:"price"`
	Location      Location        `json:"location"`
	Address       string          `json:"address"`
	WindowStart   time.Time       `json:"window_start"`
	WindowEnd     time.Time       `json:"window_end"`
	Status        Status          `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func ValidServiceType(s ServiceType) bool {
	switch s {
	case ServiceCleaningRepair, ServiceITTechnology, ServiceEducation,
		ServiceLifeHealth, ServiceDesignConsulting, ServiceOther:
		return true
	}
	return false
}

func ValidLocation(l Location) bool {
	switch l {
	case LocationNorth, LocationSouth, LocationEast, LocationWest, LocationMid:
		return true
	}
	return false
}

// NormalizeStatus maps legacy stored tokens onto the current status set.
// Early schemas used a distinct "reviewed" status; the reviews table is the
// authoritative reviewed signal now.
func NormalizeStatus(s string) Status {
	if s == "reviewed" {
		return StatusCompleted
	}
	return Status(s)
}

// Terminal reports whether no further status transition can leave s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}
