package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"tirehub/internal/domain"
	"tirehub/internal/logger"
	"tirehub/internal/servicerequest"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

type createRequestBody struct {
	ServiceTypeID  int64           `json:"service_type_id"`
	VehicleModelID *int64          `json:"vehicle_model_id"`
	VehicleMake    string          `json:"vehicle_make"`
	VehicleModel   string          `json:"vehicle_model"`
	VehicleYear    int             `json:"vehicle_year"`
	VehiclePlate   string          `json:"vehicle_plate"`
	Latitude       decimal.Decimal `json:"latitude"`
	Longitude      decimal.Decimal `json:"longitude"`
	Address        string          `json:"address"`
	Notes          string          `json:"notes"`
	Priority       string          `json:"priority"`
	ScheduledAt    *time.Time      `json:"scheduled_at"`
}

// handleCreateRequest opens a service request for the authenticated customer
func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	claims := getUserClaims(r)
	result, err := s.requests.Create(r.Context(), servicerequest.CreateParams{
		UserID:         claims.UserID,
		ServiceTypeID:  body.ServiceTypeID,
		VehicleModelID: body.VehicleModelID,
		VehicleMake:    body.VehicleMake,
		VehicleModel:   body.VehicleModel,
		VehicleYear:    body.VehicleYear,
		VehiclePlate:   body.VehiclePlate,
		Latitude:       body.Latitude,
		Longitude:      body.Longitude,
		Address:        body.Address,
		Notes:          body.Notes,
		Priority:       body.Priority,
		ScheduledAt:    body.ScheduledAt,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	list, err := s.requests.ListForUser(r.Context(), getUserClaims(r).UserID, limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": list})
}

// loadVisibleRequest returns the request in the {id} parameter when the caller may see it.
// Customers only see their own requests; to them, others do not exist.
func (s *Server) loadVisibleRequest(r *http.Request) (*domain.ServiceRequest, error) {
	id, err := idParam(r, "id")
	if err != nil {
		return nil, err
	}
	sr, err := s.requests.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return visibleTo(r, sr)
}

// visibleTo hides other customers' requests behind a not found
func visibleTo(r *http.Request, sr *domain.ServiceRequest) (*domain.ServiceRequest, error) {
	claims := getUserClaims(r)
	if claims.Role == domain.RoleCustomer && sr.UserID != claims.UserID {
		return nil, fmt.Errorf("service request %d: %w", sr.ID, domain.ErrNotFound)
	}
	return sr, nil
}

// handleGetRequestByNumber resolves a scanned QR label
func (s *Server) handleGetRequestByNumber(w http.ResponseWriter, r *http.Request) {
	sr, err := s.requests.GetByNumber(r.Context(), chi.URLParam(r, "number"))
	if err == nil {
		sr, err = visibleTo(r, sr)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": sr})
}

func (s *Server) handleListQuotations(w http.ResponseWriter, r *http.Request) {
	sr, err := s.loadVisibleRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.requests.Quotations(r.Context(), sr.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": list})
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	sr, err := s.loadVisibleRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": sr})
}

// handleRequestQR renders the request number as a PNG QR label
func (s *Server) handleRequestQR(w http.ResponseWriter, r *http.Request) {
	sr, err := s.loadVisibleRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	png, err := qrcode.Encode(sr.RequestNumber, qrcode.Medium, 256)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("failed to encode QR code: %w", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", sr.RequestNumber+".png"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

type rateBody struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

func (s *Server) handleRateRequest(w http.ResponseWriter, r *http.Request) {
	sr, err := s.loadVisibleRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body rateBody
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	sr, err = s.requests.Rate(r.Context(), sr.ID, body.Rating, body.Feedback)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": sr})
}

type payBody struct {
	PaymentMethod string `json:"payment_method"`
}

func (s *Server) handlePayRequest(w http.ResponseWriter, r *http.Request) {
	sr, err := s.loadVisibleRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body payBody
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	sr, err = s.requests.Pay(r.Context(), sr.ID, body.PaymentMethod)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": sr})
}

func (s *Server) handleAcceptRequest(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sr, err := s.requests.Accept(r.Context(), id, getUserClaims(r).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": sr})
}

type assignBody struct {
	MechanicID int64 `json:"mechanic_id"`
}

func (s *Server) handleAssignRequest(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body assignBody
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	sr, err := s.requests.AssignMechanic(r.Context(), id, body.MechanicID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": sr})
}

func (s *Server) handleStartRequest(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sr, err := s.requests.Start(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": sr})
}

type completeBody struct {
	MechanicNotes string `json:"mechanic_notes"`
}

func (s *Server) handleCompleteRequest(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body completeBody
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	sr, err := s.requests.Complete(r.Context(), id, body.MechanicNotes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": sr})
}

type partBody struct {
	PartID   int64 `json:"part_id"`
	Quantity int   `json:"quantity"`
}

// itemResponse is a mutated line item with the recalculated request it belongs to
type itemResponse struct {
	Item    *domain.ServiceRequestPart `json:"item"`
	Request *domain.ServiceRequest     `json:"service_request"`
}

// recalculated refreshes the request totals after a line item mutation
func (s *Server) recalculated(ctx context.Context, item *domain.ServiceRequestPart) (*itemResponse, error) {
	sr, err := s.requests.CalculateTotalCost(ctx, item.ServiceRequestID)
	if err != nil {
		return nil, err
	}
	return &itemResponse{Item: item, Request: sr}, nil
}

func (s *Server) handleAddRequestPart(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body partBody
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	item, err := s.requests.AddPart(r.Context(), id, body.PartID, body.Quantity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.recalculated(r.Context(), item)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// requestItemID resolves {itemId} and checks it belongs to the request in {id}
func (s *Server) requestItemID(r *http.Request) (int64, error) {
	requestID, err := idParam(r, "id")
	if err != nil {
		return 0, err
	}
	itemID, err := idParam(r, "itemId")
	if err != nil {
		return 0, err
	}
	item, err := s.repos.ServiceRequests.GetPart(r.Context(), itemID)
	if err != nil {
		return 0, err
	}
	if item == nil || item.ServiceRequestID != requestID {
		return 0, fmt.Errorf("line item %d: %w", itemID, domain.ErrNotFound)
	}
	return itemID, nil
}

func (s *Server) handleUpdateRequestPart(w http.ResponseWriter, r *http.Request) {
	itemID, err := s.requestItemID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body partBody
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	item, err := s.requests.UpdatePartQuantity(r.Context(), itemID, body.Quantity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.recalculated(r.Context(), item)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRemoveRequestPart(w http.ResponseWriter, r *http.Request) {
	itemID, err := s.requestItemID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	item, err := s.requests.RemovePart(r.Context(), itemID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.recalculated(r.Context(), item)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConfirmRequestPart(w http.ResponseWriter, r *http.Request) {
	s.setRequestPartStatus(w, r, s.requests.ConfirmPart)
}

func (s *Server) handleInstallRequestPart(w http.ResponseWriter, r *http.Request) {
	s.setRequestPartStatus(w, r, s.requests.InstallPart)
}

func (s *Server) setRequestPartStatus(w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, itemID int64) (*domain.ServiceRequestPart, error)) {
	itemID, err := s.requestItemID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := apply(r.Context(), itemID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": item})
}

func (s *Server) handleRecalculateRequest(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sr, err := s.requests.CalculateTotalCost(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": sr})
}

type quotationBody struct {
	Terms string `json:"terms"`
	Notes string `json:"notes"`
}

func (s *Server) handleCreateQuotation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body quotationBody
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	q, err := s.requests.CreateQuotation(r.Context(), id, servicerequest.QuotationParams{Terms: body.Terms, Notes: body.Notes})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	logger.Info(r.Context(), "quotation created", logger.String("quotation_number", q.QuotationNumber))
	writeJSON(w, http.StatusCreated, map[string]any{"data": q})
}

func (s *Server) handleSendQuotation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q, err := s.requests.SendQuotation(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": q})
}
