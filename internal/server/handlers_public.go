package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"tirehub/internal/catalog"
	"tirehub/internal/domain"
	"tirehub/internal/logger"
	"tirehub/internal/repository"
	"tirehub/internal/repository/sqlite"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// handleLogin exchanges credentials for a bearer token
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	verr := &domain.ValidationError{}
	if strings.TrimSpace(req.Email) == "" {
		verr.Add("email", "is required")
	}
	if req.Password == "" {
		verr.Add("password", "is required")
	}
	if !verr.Empty() {
		s.writeError(w, r, verr)
		return
	}

	user, err := s.repos.Users.GetByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if user == nil || !sqlite.CheckPassword(req.Password, user.PasswordHash) {
		logger.Warn(r.Context(), "failed login", logger.String("email", req.Email))
		s.writeError(w, r, domain.ErrUnauthorized)
		return
	}

	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt, User: user})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	list, err := s.catalog.Categories(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": list})
}

func (s *Server) handleServiceTypes(w http.ResponseWriter, r *http.Request) {
	list, err := s.repos.ServiceTypes.List(r.Context(), true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": list})
}

func (s *Server) handleVehicles(w http.ResponseWriter, r *http.Request) {
	tree, err := s.catalog.Vehicles(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": tree})
}

var sortFields = map[string]bool{"name": true, "price": true, "created_at": true, "stock_quantity": true}

// partFilterFromQuery reads listing filters from the query string
func partFilterFromQuery(r *http.Request) (repository.PartFilter, catalog.Page, error) {
	q := r.URL.Query()
	verr := &domain.ValidationError{}

	filter := repository.PartFilter{
		CategorySlug: q.Get("category"),
		TireSize:     q.Get("tire_size"),
		Brand:        q.Get("brand"),
		Search:       q.Get("search"),
		SortBy:       q.Get("sort_by"),
		SortOrder:    strings.ToLower(q.Get("sort_order")),
	}

	parseDecimal := func(key string) *decimal.Decimal {
		raw := q.Get(key)
		if raw == "" {
			return nil
		}
		d, err := decimal.NewFromString(raw)
		if err != nil || d.IsNegative() {
			verr.Add(key, "must be a non-negative number")
			return nil
		}
		return &d
	}
	filter.MinPrice = parseDecimal("min_price")
	filter.MaxPrice = parseDecimal("max_price")

	parseBool := func(key string) bool {
		raw := q.Get(key)
		if raw == "" {
			return false
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			verr.Add(key, "must be a boolean")
		}
		return b
	}
	filter.InStock = parseBool("in_stock")
	filter.Featured = parseBool("featured")

	if filter.SortBy != "" && !sortFields[filter.SortBy] {
		verr.Add("sort_by", "must be one of name, price, created_at, stock_quantity")
	}
	if filter.SortOrder != "" && filter.SortOrder != "asc" && filter.SortOrder != "desc" {
		verr.Add("sort_order", "must be asc or desc")
	}

	parseInt := func(key string) int {
		raw := q.Get(key)
		if raw == "" {
			return 0
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			verr.Add(key, "must be a positive integer")
			return 0
		}
		return n
	}
	page := catalog.NewPage(parseInt("page"), parseInt("per_page"))

	if !verr.Empty() {
		return filter, page, verr
	}
	return filter, page, nil
}

func (s *Server) handleListParts(w http.ResponseWriter, r *http.Request) {
	filter, page, err := partFilterFromQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	listing, err := s.catalog.List(r.Context(), filter, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) handleFeaturedParts(w http.ResponseWriter, r *http.Request) {
	parts, err := s.catalog.Featured(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": parts})
}

func (s *Server) handleGetPart(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	part, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": part})
}

func (s *Server) handleCompatibleVehicles(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	models, err := s.catalog.CompatibleModels(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": models})
}

func (s *Server) handlePartsByCategory(w http.ResponseWriter, r *http.Request) {
	_, page, err := partFilterFromQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	category, listing, err := s.catalog.ByCategory(r.Context(), chi.URLParam(r, "slug"), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"data":     listing.Parts,
		"meta":     listing.Meta,
	})
}

type searchByVehicleRequest struct {
	VehicleModelID *int64 `json:"vehicle_model_id"`
}

func (s *Server) handleSearchByVehicle(w http.ResponseWriter, r *http.Request) {
	var req searchByVehicleRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	model, parts, err := s.catalog.SearchByVehicle(r.Context(), req.VehicleModelID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"vehicle_model": model,
		"data":          parts,
	})
}
