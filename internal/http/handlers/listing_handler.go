// Listing HTTP handlers.
//
// This file exposes REST endpoints for listing resources:
//   - POST   /listings        (create)
//   - GET    /listings        (filtered search, paginated)
//   - GET    /listings/{id}   (fetch one)
//   - PUT    /listings/{id}   (owner-guarded update)
//   - DELETE /listings/{id}   (owner-guarded delete)
//   - GET    /me/listings     (the caller's own listings, ETag support)
//
// Search filters arrive as query parameters and are mapped onto the service
// filter; the service translates them into a typed predicate set, so unknown
// fields or malformed values surface as 400s rather than leaking into SQL.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/roomly/go-rental-backend/internal/domain"
	"github.com/roomly/go-rental-backend/internal/query"
	"github.com/roomly/go-rental-backend/internal/repo"
	"github.com/roomly/go-rental-backend/internal/services"
)

//
// DTOs
//

// ListingRequest is the JSON payload for creating or updating a listing.
type ListingRequest struct {
	// Kind is one of: rental, wanted, pass, join.
	Kind     string  `json:"kind" binding:"required"`
	Title    string  `json:"title" binding:"required,min=1"`
	Body     string  `json:"body"`
	Price    int64   `json:"price" binding:"gte=0"`
	Area     float64 `json:"area" binding:"gte=0"`
	Rooms    int     `json:"rooms" binding:"gte=0"`
	City     string  `json:"city"`
	District string  `json:"district"`
	Address  string  `json:"address"`
	MediaURL string  `json:"media_url"`
}

// ListListingsResponse wraps a page of listings and pagination information.
type ListListingsResponse struct {
	Listings   []domain.Listing `json:"listings"`
	Pagination query.Result     `json:"pagination"`
}

//
// Helpers
//

func (r ListingRequest) toInput() services.ListingInput {
	return services.ListingInput{
		Kind:     strings.TrimSpace(strings.ToLower(r.Kind)),
		Title:    r.Title,
		Body:     r.Body,
		Price:    r.Price,
		Area:     r.Area,
		Rooms:    r.Rooms,
		City:     strings.TrimSpace(r.City),
		District: strings.TrimSpace(r.District),
		Address:  strings.TrimSpace(r.Address),
		MediaURL: strings.TrimSpace(r.MediaURL),
	}
}

// filterFromQuery maps search query parameters onto a service filter.
// Numeric parameters that fail to parse are reported, not ignored, so a
// typo'd price_min cannot silently widen the result set.
func filterFromQuery(c *gin.Context) (services.ListingFilter, error) {
	var f services.ListingFilter

	if raw := strings.TrimSpace(c.Query("kind")); raw != "" {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(strings.ToLower(k)); k != "" {
				f.Kinds = append(f.Kinds, k)
			}
		}
	}
	f.City = strings.TrimSpace(c.Query("city"))
	f.District = strings.TrimSpace(c.Query("district"))
	f.Text = strings.TrimSpace(c.Query("q"))
	f.SortBy = strings.TrimSpace(c.Query("sort"))
	f.Descending = strings.EqualFold(c.Query("order"), "desc")

	if raw := c.Query("price_min"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, fmt.Errorf("price_min must be an integer")
		}
		f.PriceMin = &v
	}
	if raw := c.Query("price_max"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, fmt.Errorf("price_max must be an integer")
		}
		f.PriceMax = &v
	}
	if raw := c.Query("area_min"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return f, fmt.Errorf("area_min must be a number")
		}
		f.AreaMin = &v
	}
	if raw := c.Query("rooms_min"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return f, fmt.Errorf("rooms_min must be an integer")
		}
		f.RoomsMin = &v
	}
	return f, nil
}

//
// Handlers
//

// CreateListing creates a listing for the current user and returns the
// listing resource.
func (h *Handlers) CreateListing(c *gin.Context) {
	var req ListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "kind and title required")
		return
	}

	l, err := h.listingSvc.Create(c.Request.Context(), userID(c), req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidListingKind):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "kind must be one of rental, wanted, pass, join")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, l)
}

// GetListing returns a single listing by id.
func (h *Handlers) GetListing(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "listing id must be a UUID")
		return
	}

	l, err := h.listingSvc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "listing not found")
		return
	}
	ok(c, http.StatusOK, l)
}

// SearchListings returns a filtered, paginated page of listings. All filters
// are optional; an unfiltered search pages through everything.
func (h *Handlers) SearchListings(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	items, meta, err := h.listingSvc.Search(c.Request.Context(), f, pageFromQuery(c))
	if err != nil {
		switch {
		case errors.Is(err, query.ErrUnknownField), errors.Is(err, services.ErrInvalidListingKind):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, ListListingsResponse{Listings: items, Pagination: meta})
}

// MyListings returns a page of the caller's own listings. Supports weak ETag
// via If-None-Match and may return 304.
func (h *Handlers) MyListings(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, okSvc := h.listingSvc.(*services.ListingService); okSvc {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.ListingsStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"listings:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	f := services.ListingFilter{OwnerID: uid, SortBy: "created_at", Descending: true}
	items, meta, err := h.listingSvc.Search(ctx, f, pageFromQuery(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListListingsResponse{Listings: items, Pagination: meta})
}

// UpdateListing rewrites a listing owned by the current user.
func (h *Handlers) UpdateListing(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "listing id must be a UUID")
		return
	}

	var req ListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "kind and title required")
		return
	}

	err := h.listingSvc.Update(c.Request.Context(), userID(c), id, req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidListingKind):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "kind must be one of rental, wanted, pass, join")
		case errors.Is(err, services.ErrForbidden):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "not your listing")
		case errors.Is(err, services.ErrListingNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "listing not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}

// DeleteListing removes a listing owned by the current user.
func (h *Handlers) DeleteListing(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "listing id must be a UUID")
		return
	}

	err := h.listingSvc.Delete(c.Request.Context(), userID(c), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrForbidden):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "not your listing")
		case errors.Is(err, services.ErrListingNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "listing not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}
