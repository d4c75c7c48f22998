// Package domain defines core business entities
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a system user (customer, mechanic, or admin)
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	Role         string    `json:"role"` // customer, mechanic, admin
	CreatedAt    time.Time `json:"created_at"`
}

// PartsCategory groups catalog parts
type PartsCategory struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	IsActive bool   `json:"is_active"`
}

// Part is a catalog item
type Part struct {
	ID              int64           `json:"id"`
	SKU             string          `json:"sku"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	CategoryID      *int64          `json:"category_id,omitempty"`
	Category        *PartsCategory  `json:"category,omitempty"`
	Brand           string          `json:"brand,omitempty"`
	Tire            *TireAttributes `json:"tire,omitempty"`
	Specifications  map[string]any  `json:"specifications,omitempty"`
	Price           decimal.Decimal `json:"price"`
	CostPrice       decimal.Decimal `json:"cost_price"`
	StockQuantity   int             `json:"stock_quantity"`
	MinStockLevel   int             `json:"min_stock_level"`
	IsActive        bool            `json:"is_active"`
	IsFeatured      bool            `json:"is_featured"`
	PrimaryImageURL string          `json:"primary_image_url,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TireAttributes holds the optional tire-specific columns of a part
type TireAttributes struct {
	Size         string `json:"size,omitempty"`
	LoadIndex    string `json:"load_index,omitempty"`
	SpeedRating  string `json:"speed_rating,omitempty"`
	Type         string `json:"type,omitempty"`
	TreadPattern string `json:"tread_pattern,omitempty"`
}

// PartImage is an image attached to a part
type PartImage struct {
	ID        int64     `json:"id"`
	PartID    int64     `json:"part_id"`
	URL       string    `json:"url"`
	IsPrimary bool      `json:"is_primary"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

// VehicleMake represents a vehicle manufacturer
type VehicleMake struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// VehicleModel represents a vehicle model of a make
type VehicleModel struct {
	ID        int64        `json:"id"`
	MakeID    int64        `json:"make_id"`
	Make      *VehicleMake `json:"make,omitempty"`
	Name      string       `json:"name"`
	YearStart int          `json:"year_start,omitempty"`
	YearEnd   int          `json:"year_end,omitempty"`
	BodyType  string       `json:"body_type,omitempty"`
	IsActive  bool         `json:"is_active"`
}

// Fitment declares that a part fits a vehicle model
type Fitment struct {
	PartID         int64  `json:"part_id"`
	VehicleModelID int64  `json:"vehicle_model_id"`
	FitmentType    string `json:"fitment_type,omitempty"` // universal, exact, ...
	Notes          string `json:"notes,omitempty"`
}

// CompatibleModel is a vehicle model together with the fitment metadata of one part
type CompatibleModel struct {
	VehicleModel
	FitmentType string `json:"fitment_type,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// ServiceType is an offered mechanic service
type ServiceType struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Slug              string          `json:"slug"`
	Description       string          `json:"description,omitempty"`
	BasePrice         decimal.Decimal `json:"base_price"`
	RequiresParts     bool            `json:"requires_parts"`
	EstimatedDuration int             `json:"estimated_duration"` // minutes
	IsActive          bool            `json:"is_active"`
	SortOrder         int             `json:"sort_order"`
}

// ServiceRequest is a mechanic dispatch ticket
type ServiceRequest struct {
	ID             int64                `json:"id"`
	RequestNumber  string               `json:"request_number"`
	UserID         int64                `json:"user_id"`
	ServiceTypeID  int64                `json:"service_type_id"`
	ServiceType    *ServiceType         `json:"service_type,omitempty"`
	MechanicID     *int64               `json:"mechanic_id,omitempty"`
	VehicleModelID *int64               `json:"vehicle_model_id,omitempty"`
	VehicleMake    string               `json:"vehicle_make,omitempty"`
	VehicleModel   string               `json:"vehicle_model,omitempty"`
	VehicleYear    int                  `json:"vehicle_year,omitempty"`
	VehiclePlate   string               `json:"vehicle_plate,omitempty"`
	Latitude       decimal.Decimal      `json:"latitude"`
	Longitude      decimal.Decimal      `json:"longitude"`
	Address        string               `json:"address,omitempty"`
	Notes          string               `json:"notes,omitempty"`
	Status         string               `json:"status"`
	Priority       string               `json:"priority"`
	ScheduledAt    *time.Time           `json:"scheduled_at,omitempty"`
	AcceptedAt     *time.Time           `json:"accepted_at,omitempty"`
	StartedAt      *time.Time           `json:"started_at,omitempty"`
	CompletedAt    *time.Time           `json:"completed_at,omitempty"`
	LaborCost      decimal.Decimal      `json:"labor_cost"`
	PartsCost      decimal.Decimal      `json:"parts_cost"`
	TotalCost      decimal.Decimal      `json:"total_cost"`
	PaymentStatus  string               `json:"payment_status"`
	PaymentMethod  string               `json:"payment_method,omitempty"`
	TransactionID  string               `json:"transaction_id,omitempty"`
	PaidAt         *time.Time           `json:"paid_at,omitempty"`
	Rating         *int                 `json:"rating,omitempty"`
	Feedback       string               `json:"feedback,omitempty"`
	MechanicNotes  string               `json:"mechanic_notes,omitempty"`
	Parts          []ServiceRequestPart `json:"parts,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// ServiceRequestPart is a line item attaching a part to a service request
type ServiceRequestPart struct {
	ID               int64           `json:"id"`
	ServiceRequestID int64           `json:"service_request_id"`
	PartID           int64           `json:"part_id"`
	Part             *Part           `json:"part,omitempty"`
	Quantity         int             `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Status           string          `json:"status"` // pending, confirmed, installed
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Quotation is a priced estimate for a service request
type Quotation struct {
	ID                int64           `json:"id"`
	QuotationNumber   string          `json:"quotation_number"`
	ServiceRequestID  int64           `json:"service_request_id"`
	LaborCost         decimal.Decimal `json:"labor_cost"`
	PartsCost         decimal.Decimal `json:"parts_cost"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	ValidFrom         time.Time       `json:"valid_from"`
	ValidUntil        time.Time       `json:"valid_until"`
	EstimatedDuration int             `json:"estimated_duration"` // minutes
	Status            string          `json:"status"`
	SentAt            *time.Time      `json:"sent_at,omitempty"`
	Terms             string          `json:"terms,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Status constants
const (
	// Service request statuses
	RequestStatusPending          = "pending"
	RequestStatusAccepted         = "accepted"
	RequestStatusMechanicAssigned = "mechanic_assigned"
	RequestStatusInProgress       = "in_progress"
	RequestStatusCompleted        = "completed"
	RequestStatusCancelled        = "cancelled"

	// Line item statuses
	PartStatusPending   = "pending"
	PartStatusConfirmed = "confirmed"
	PartStatusInstalled = "installed"

	// Payment statuses
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"

	// Priorities
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"

	// Quotation statuses
	QuotationStatusDraft    = "draft"
	QuotationStatusSent     = "sent"
	QuotationStatusAccepted = "accepted"
	QuotationStatusRejected = "rejected"
	QuotationStatusExpired  = "expired"

	// User roles
	RoleCustomer = "customer"
	RoleMechanic = "mechanic"
	RoleAdmin    = "admin"
)

// ValidPriority reports whether p is a known priority
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
