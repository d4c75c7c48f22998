// Package repository defines interfaces for data persistence
package repository

import (
	"context"

	"tirehub/internal/domain"
	"tirehub/internal/numbering"

	"github.com/shopspring/decimal"
)

// PartFilter narrows part listings. Zero values mean "no filter".
type PartFilter struct {
	CategorySlug string
	TireSize     string
	Brand        string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	InStock      bool
	Featured     bool
	Search       string
	SortBy       string // name, price, created_at, stock_quantity
	SortOrder    string // asc, desc
	Limit        int
	Offset       int
}

// CandidateQuery selects recommendation candidates: active, in-stock parts.
type CandidateQuery struct {
	// CategoryKeywords restrict to categories whose name contains any keyword, case-insensitive.
	CategoryKeywords []string
	// VehicleModelID restricts to parts with a fitment to this model.
	VehicleModelID *int64
	Limit          int
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	ListByRole(ctx context.Context, role string) ([]domain.User, error)
	Count(ctx context.Context, role string) (int, error)
}

// CategoryRepository defines the interface for parts category operations
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.PartsCategory) error
	GetByID(ctx context.Context, id int64) (*domain.PartsCategory, error)
	GetBySlug(ctx context.Context, slug string) (*domain.PartsCategory, error)
	List(ctx context.Context) ([]domain.PartsCategory, error)
}

// PartRepository defines the interface for catalog part operations
type PartRepository interface {
	Create(ctx context.Context, part *domain.Part) error
	GetByID(ctx context.Context, id int64) (*domain.Part, error)
	GetBySKU(ctx context.Context, sku string) (*domain.Part, error)
	Update(ctx context.Context, part *domain.Part) error
	List(ctx context.Context, filter PartFilter) ([]domain.Part, int, error)
	Featured(ctx context.Context, limit int) ([]domain.Part, error)
	ListActiveLowStock(ctx context.Context) ([]domain.Part, error)
	Candidates(ctx context.Context, q CandidateQuery) ([]domain.Part, error)
	AddImage(ctx context.Context, image *domain.PartImage) error
}

// VehicleRepository defines the interface for vehicle make and model operations
type VehicleRepository interface {
	CreateMake(ctx context.Context, mk *domain.VehicleMake) error
	GetMakeByName(ctx context.Context, name string) (*domain.VehicleMake, error)
	ListMakes(ctx context.Context) ([]domain.VehicleMake, error)
	CreateModel(ctx context.Context, model *domain.VehicleModel) error
	GetModelByID(ctx context.Context, id int64) (*domain.VehicleModel, error)
	ListModelsByMake(ctx context.Context, makeID int64) ([]domain.VehicleModel, error)
}

// FitmentRepository is the part to vehicle model compatibility index
type FitmentRepository interface {
	Attach(ctx context.Context, fitment domain.Fitment) error
	Detach(ctx context.Context, partID, vehicleModelID int64) error
	PartsForModel(ctx context.Context, vehicleModelID int64) ([]domain.Part, error)
	ModelsForPart(ctx context.Context, partID int64) ([]domain.CompatibleModel, error)
}

// ServiceTypeRepository defines the interface for service catalog operations
type ServiceTypeRepository interface {
	Create(ctx context.Context, st *domain.ServiceType) error
	GetByID(ctx context.Context, id int64) (*domain.ServiceType, error)
	GetBySlug(ctx context.Context, slug string) (*domain.ServiceType, error)
	List(ctx context.Context, activeOnly bool) ([]domain.ServiceType, error)
}

// ServiceRequestRepository defines the interface for service request and line item operations
type ServiceRequestRepository interface {
	Create(ctx context.Context, sr *domain.ServiceRequest) error
	GetByID(ctx context.Context, id int64) (*domain.ServiceRequest, error)
	GetByNumber(ctx context.Context, number string) (*domain.ServiceRequest, error)
	Update(ctx context.Context, sr *domain.ServiceRequest) error
	UpdateCosts(ctx context.Context, id int64, partsCost, totalCost decimal.Decimal) error
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.ServiceRequest, error)

	// Line items
	AddPart(ctx context.Context, item *domain.ServiceRequestPart) error
	GetPart(ctx context.Context, id int64) (*domain.ServiceRequestPart, error)
	UpdatePart(ctx context.Context, item *domain.ServiceRequestPart) error
	DeletePart(ctx context.Context, id int64) error
	ListParts(ctx context.Context, requestID int64) ([]domain.ServiceRequestPart, error)
}

// QuotationRepository defines the interface for quotation operations
type QuotationRepository interface {
	Create(ctx context.Context, q *domain.Quotation) error
	GetByID(ctx context.Context, id int64) (*domain.Quotation, error)
	ListByRequest(ctx context.Context, requestID int64) ([]domain.Quotation, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
}

// SettingsRepository handles application configuration
type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Repositories bundles all repository interfaces
type Repositories struct {
	Users           UserRepository
	Categories      CategoryRepository
	Parts           PartRepository
	Vehicles        VehicleRepository
	Fitments        FitmentRepository
	ServiceTypes    ServiceTypeRepository
	ServiceRequests ServiceRequestRepository
	Quotations      QuotationRepository
	Settings        SettingsRepository
	Numbers         numbering.Store
}
