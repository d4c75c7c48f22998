// Package servicerequest runs the mechanic dispatch workflow: creation, status
// transitions, line items, cost rollup, rating, payment and quotations.
package servicerequest

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tirehub/internal/domain"
	"tirehub/internal/domain/payments"
	"tirehub/internal/logger"
	"tirehub/internal/numbering"
	"tirehub/internal/recommend"
	"tirehub/internal/repository"
)

// DefaultQuotationValidity is how long a quotation stays valid after creation.
const DefaultQuotationValidity = 30 * 24 * time.Hour

// Recommender suggests parts for a new request.
type Recommender interface {
	Recommend(ctx context.Context, st *domain.ServiceType, vehicleModelID *int64) ([]recommend.RecommendedPart, error)
}

type Service struct {
	repos       *repository.Repositories
	numbers     *numbering.Generator
	recommender Recommender
	payments    payments.PaymentProvider
	currency    string
	validity    time.Duration
	now         func() time.Time
}

type Option func(*Service)

// WithClock overrides time.Now. The clock also decides the document number year.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithQuotationValidity(d time.Duration) Option {
	return func(s *Service) { s.validity = d }
}

func WithCurrency(code string) Option {
	return func(s *Service) { s.currency = code }
}

func NewService(repos *repository.Repositories, recommender Recommender, provider payments.PaymentProvider, opts ...Option) *Service {
	s := &Service{
		repos:       repos,
		numbers:     numbering.NewGenerator(repos.Numbers),
		recommender: recommender,
		payments:    provider,
		currency:    "usd",
		validity:    DefaultQuotationValidity,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams is the input of Create
type CreateParams struct {
	UserID         int64
	ServiceTypeID  int64
	VehicleModelID *int64
	VehicleMake    string
	VehicleModel   string
	VehicleYear    int
	VehiclePlate   string
	Latitude       decimal.Decimal
	Longitude      decimal.Decimal
	Address        string
	Notes          string
	Priority       string
	ScheduledAt    *time.Time
}

// CreateResult is the new request together with suggested parts
type CreateResult struct {
	Request          *domain.ServiceRequest       `json:"service_request"`
	RecommendedParts []recommend.RecommendedPart `json:"recommended_parts"`
}

var (
	maxLatitude  = decimal.NewFromInt(90)
	maxLongitude = decimal.NewFromInt(180)
)

// Create validates the input, assigns the next SR number and stores a pending request.
func (s *Service) Create(ctx context.Context, params CreateParams) (*CreateResult, error) {
	const op = "servicerequest.Service.Create"
	log := logger.With(
		logger.Int64("user_id", params.UserID),
		logger.Int64("service_type_id", params.ServiceTypeID),
	)

	if params.Priority == "" {
		params.Priority = domain.PriorityNormal
	}

	verr := &domain.ValidationError{}
	if params.UserID == 0 {
		verr.Add("user_id", "is required")
	}
	if !domain.ValidPriority(params.Priority) {
		verr.Add("priority", "must be one of low, normal, high, urgent")
	}
	if params.Latitude.Abs().GreaterThan(maxLatitude) {
		verr.Add("latitude", "must be between -90 and 90")
	}
	if params.Longitude.Abs().GreaterThan(maxLongitude) {
		verr.Add("longitude", "must be between -180 and 180")
	}

	st, err := s.repos.ServiceTypes.GetByID(ctx, params.ServiceTypeID)
	if err != nil {
		log.Error(ctx, "get service type", logger.ErrorF(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if st == nil || !st.IsActive {
		verr.Add("service_type_id", "does not exist")
	}

	if params.VehicleModelID != nil {
		model, err := s.repos.Vehicles.GetModelByID(ctx, *params.VehicleModelID)
		if err != nil {
			log.Error(ctx, "get vehicle model", logger.ErrorF(err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if model == nil {
			verr.Add("vehicle_model_id", "does not exist")
		}
	}

	if !verr.Empty() {
		log.Warn(ctx, "invalid service request", logger.String("reason", verr.Error()))
		return nil, fmt.Errorf("%s: %w", op, verr)
	}

	// Recommendations are resolved before a number is drawn so a failure leaves nothing stored.
	recommended, err := s.recommender.Recommend(ctx, st, params.VehicleModelID)
	if err != nil {
		log.Error(ctx, "recommend parts", logger.ErrorF(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	number, err := s.numbers.Next(ctx, numbering.ServiceRequest, s.now().Year())
	if err != nil {
		log.Error(ctx, "next request number", logger.ErrorF(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sr := &domain.ServiceRequest{
		RequestNumber:  number,
		UserID:         params.UserID,
		ServiceTypeID:  st.ID,
		ServiceType:    st,
		VehicleModelID: params.VehicleModelID,
		VehicleMake:    params.VehicleMake,
		VehicleModel:   params.VehicleModel,
		VehicleYear:    params.VehicleYear,
		VehiclePlate:   params.VehiclePlate,
		Latitude:       params.Latitude.Round(7),
		Longitude:      params.Longitude.Round(7),
		Address:        params.Address,
		Notes:          params.Notes,
		Status:         domain.RequestStatusPending,
		Priority:       params.Priority,
		ScheduledAt:    params.ScheduledAt,
		LaborCost:      st.BasePrice,
		PartsCost:      decimal.Zero,
		TotalCost:      st.BasePrice,
		PaymentStatus:  domain.PaymentStatusPending,
		CreatedAt:      s.now(),
	}
	if err := s.repos.ServiceRequests.Create(ctx, sr); err != nil {
		log.Error(ctx, "create service request", logger.String("request_number", number), logger.ErrorF(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info(ctx, "service request created", logger.String("request_number", number))
	return &CreateResult{Request: sr, RecommendedParts: recommended}, nil
}

// Get loads a request with its line items.
func (s *Service) Get(ctx context.Context, id int64) (*domain.ServiceRequest, error) {
	const op = "servicerequest.Service.Get"

	sr, err := s.load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	items, err := s.repos.ServiceRequests.ListParts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sr.Parts = items
	return sr, nil
}

// GetByNumber resolves a request from the number printed on its QR label
func (s *Service) GetByNumber(ctx context.Context, number string) (*domain.ServiceRequest, error) {
	const op = "servicerequest.Service.GetByNumber"

	sr, err := s.repos.ServiceRequests.GetByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sr == nil {
		return nil, fmt.Errorf("%s: service request %q: %w", op, number, domain.ErrNotFound)
	}
	return s.Get(ctx, sr.ID)
}

// ListForUser returns the requests opened by a customer, newest first.
func (s *Service) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]domain.ServiceRequest, error) {
	const op = "servicerequest.Service.ListForUser"

	list, err := s.repos.ServiceRequests.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Accept moves a pending request to accepted and records the mechanic.
// The caller accepts for themselves, so a non-mechanic caller (admins included) gets domain.ErrForbidden.
func (s *Service) Accept(ctx context.Context, id, mechanicID int64) (*domain.ServiceRequest, error) {
	const op = "servicerequest.Service.Accept"
	return s.withMechanic(ctx, op, id, mechanicID, domain.RequestStatusAccepted, domain.ErrForbidden)
}

// AssignMechanic moves a request to mechanic_assigned and records the mechanic.
func (s *Service) AssignMechanic(ctx context.Context, id, mechanicID int64) (*domain.ServiceRequest, error) {
	const op = "servicerequest.Service.AssignMechanic"
	return s.withMechanic(ctx, op, id, mechanicID, domain.RequestStatusMechanicAssigned,
		domain.NewValidationError("mechanic_id", "is not a mechanic"))
}

// withMechanic records mechanicID on the request. notMechanic is returned when that user is not a mechanic.
func (s *Service) withMechanic(ctx context.Context, op string, id, mechanicID int64, to string, notMechanic error) (*domain.ServiceRequest, error) {
	log := logger.With(logger.Int64("service_request_id", id), logger.Int64("mechanic_id", mechanicID))

	mechanic, err := s.repos.Users.GetByID(ctx, mechanicID)
	if err != nil {
		log.Error(ctx, "get mechanic", logger.ErrorF(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if mechanic == nil || mechanic.Role != domain.RoleMechanic {
		return nil, fmt.Errorf("%s: %w", op, notMechanic)
	}

	sr, err := s.load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := checkTransition(sr, to); err != nil {
		log.Warn(ctx, "rejected transition", logger.String("status", sr.Status), logger.String("to", to))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	sr.Status = to
	sr.MechanicID = &mechanicID
	sr.AcceptedAt = &now
	if err := s.repos.ServiceRequests.Update(ctx, sr); err != nil {
		log.Error(ctx, "update service request", logger.ErrorF(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sr, nil
}

// Start moves an accepted or assigned request to in_progress.
func (s *Service) Start(ctx context.Context, id int64) (*domain.ServiceRequest, error) {
	const op = "servicerequest.Service.Start"

	sr, err := s.transition(ctx, id, domain.RequestStatusInProgress, func(sr *domain.ServiceRequest, now time.Time) {
		sr.StartedAt = &now
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sr, nil
}

// Complete finishes an in-progress request.
func (s *Service) Complete(ctx context.Context, id int64, mechanicNotes string) (*domain.ServiceRequest, error) {
	const op = "servicerequest.Service.Complete"

	sr, err := s.transition(ctx, id, domain.RequestStatusCompleted, func(sr *domain.ServiceRequest, now time.Time) {
		sr.CompletedAt = &now
		if mechanicNotes != "" {
			sr.MechanicNotes = mechanicNotes
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sr, nil
}

func (s *Service) transition(ctx context.Context, id int64, to string, apply func(*domain.ServiceRequest, time.Time)) (*domain.ServiceRequest, error) {
	sr, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(sr, to); err != nil {
		logger.Warn(ctx, "rejected transition",
			logger.Int64("service_request_id", id),
			logger.String("status", sr.Status),
			logger.String("to", to))
		return nil, err
	}

	sr.Status = to
	apply(sr, s.now())
	if err := s.repos.ServiceRequests.Update(ctx, sr); err != nil {
		logger.Error(ctx, "update service request", logger.Int64("service_request_id", id), logger.ErrorF(err))
		return nil, err
	}
	return sr, nil
}

// Rate stores a 1 to 5 rating and optional feedback on a completed request.
func (s *Service) Rate(ctx context.Context, id int64, rating int, feedback string) (*domain.ServiceRequest, error) {
	const op = "servicerequest.Service.Rate"

	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%s: %w", op, domain.NewValidationError("rating", "must be between 1 and 5"))
	}

	sr, err := s.load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sr.Status != domain.RequestStatusCompleted {
		return nil, fmt.Errorf("%s: %w", op, domain.NewValidationError("status", "only completed requests can be rated"))
	}

	sr.Rating = &rating
	sr.Feedback = feedback
	if err := s.repos.ServiceRequests.Update(ctx, sr); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sr, nil
}

// Pay charges the current total through the payment provider.
// A declined payment is stored as failed and is not an error.
func (s *Service) Pay(ctx context.Context, id int64, method string) (*domain.ServiceRequest, error) {
	const op = "servicerequest.Service.Pay"
	log := logger.With(logger.Int64("service_request_id", id), logger.String("payment_method", method))

	if method == "" {
		return nil, fmt.Errorf("%s: %w", op, domain.NewValidationError("payment_method", "is required"))
	}

	sr, err := s.load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sr.PaymentStatus == domain.PaymentStatusPaid {
		log.Warn(ctx, "request already paid")
		return nil, fmt.Errorf("%s: %w: request already paid", op, domain.ErrConflict)
	}

	intent, err := s.payments.CreatePaymentIntent(ctx, payments.ToMinorUnits(sr.TotalCost), s.currency, method, sr.RequestNumber)
	if err != nil {
		log.Error(ctx, "create payment intent", logger.ErrorF(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result, err := s.payments.ConfirmPayment(ctx, intent.ID)
	if err != nil {
		log.Error(ctx, "confirm payment", logger.ErrorF(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sr.PaymentMethod = method
	if result.Success {
		now := s.now()
		sr.PaymentStatus = domain.PaymentStatusPaid
		sr.TransactionID = result.TransactionID
		sr.PaidAt = &now
	} else {
		log.Warn(ctx, "payment declined", logger.String("reason", result.Error))
		sr.PaymentStatus = domain.PaymentStatusFailed
	}

	if err := s.repos.ServiceRequests.Update(ctx, sr); err != nil {
		log.Error(ctx, "update service request", logger.ErrorF(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sr, nil
}

func (s *Service) load(ctx context.Context, id int64) (*domain.ServiceRequest, error) {
	sr, err := s.repos.ServiceRequests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sr == nil {
		return nil, fmt.Errorf("service request %d: %w", id, domain.ErrNotFound)
	}
	return sr, nil
}
