// Package services – ListingService
//
// This file implements ListingService, which owns the lifecycle of property
// listings: create, fetch, owner-guarded update and delete, and the filtered
// paginated search that translates validated request filters into a typed
// predicate set.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/roomly/go-rental-backend/internal/domain"
	"github.com/roomly/go-rental-backend/internal/query"
	"github.com/roomly/go-rental-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Geocoder resolves a street address to coordinates. It is an external
// collaborator; the zero-value NoopGeocoder keeps listings at (0, 0).
type Geocoder interface {
	Geocode(ctx context.Context, address, city string) (lat, lng float64, err error)
}

// NoopGeocoder is the default Geocoder: it resolves nothing.
type NoopGeocoder struct{}

// Geocode always returns the origin without error.
func (NoopGeocoder) Geocode(context.Context, string, string) (float64, float64, error) {
	return 0, 0, nil
}

// ListingService provides listing CRUD and search.
type ListingService struct {
	DB       *gorm.DB
	Geocoder Geocoder

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
	// TitleLocale selects the casing rules for title normalization.
	TitleLocale language.Tag

	// DefaultPageSize is the search window when the request omits one.
	DefaultPageSize int
}

// NewListingService constructs a ListingService with sane defaults.
func NewListingService(db *gorm.DB) *ListingService {
	return &ListingService{
		DB:              db,
		Geocoder:        NoopGeocoder{},
		TitleMaxLen:     120,
		TitleLocale:     language.Und,
		DefaultPageSize: 15,
	}
}

// ListingInput is the validated payload for creating or updating a listing.
type ListingInput struct {
	Kind     string
	Title    string
	Body     string
	Price    int64
	Area     float64
	Rooms    int
	City     string
	District string
	Address  string
	MediaURL string
}

// ListingFilter carries the optional search constraints a caller may
// combine. Nil/empty members place no constraint.
type ListingFilter struct {
	Kinds      []string
	City       string
	District   string
	PriceMin   *int64
	PriceMax   *int64
	AreaMin    *float64
	RoomsMin   *int
	Text       string // case-insensitive substring over the title
	OwnerID    string
	SortBy     string // whitelisted listing field, default created_at
	Descending bool
}

// Create validates the input, geocodes the address best-effort, and inserts
// the listing.
func (s *ListingService) Create(ctx context.Context, userID string, in ListingInput) (*domain.Listing, error) {
	tr := otel.Tracer("services/ListingService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	if !validListingKind(in.Kind) {
		return nil, ErrInvalidListingKind
	}
	title := s.normalizeTitle(in.Title)
	if title == "" {
		return nil, errors.New("title must not be empty")
	}

	l := &domain.Listing{
		UserID:   userID,
		Kind:     in.Kind,
		Title:    s.clip(title),
		Body:     strings.TrimSpace(in.Body),
		Price:    in.Price,
		Area:     in.Area,
		Rooms:    in.Rooms,
		City:     strings.TrimSpace(in.City),
		District: strings.TrimSpace(in.District),
		Address:  strings.TrimSpace(in.Address),
		MediaURL: in.MediaURL,
	}

	// Geocoding failures degrade to an un-located listing, they never block
	// the create.
	if s.Geocoder != nil && l.Address != "" {
		if lat, lng, err := s.Geocoder.Geocode(ctx, l.Address, l.City); err == nil {
			l.Latitude, l.Longitude = lat, lng
		}
	}

	return repo.CreateListing(ctx, s.DB, l)
}

// Get fetches one listing by ID.
func (s *ListingService) Get(ctx context.Context, id string) (*domain.Listing, error) {
	l, err := repo.GetListing(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrListingNotFound
	}
	return l, err
}

// Update applies the input to a listing the caller owns. All matching
// columns are written through one bulk conditional update scoped to
// (id, user_id), so a non-owner simply affects zero rows.
func (s *ListingService) Update(ctx context.Context, userID, id string, in ListingInput) error {
	if !validListingKind(in.Kind) {
		return ErrInvalidListingKind
	}
	title := s.normalizeTitle(in.Title)
	if title == "" {
		return errors.New("title must not be empty")
	}

	set := query.NewSet(repo.ListingFields)
	if err := set.Where("id", query.Eq(id)); err != nil {
		return err
	}
	if err := set.Where("user_id", query.Eq(userID)); err != nil {
		return err
	}
	n, err := repo.UpdateListingFields(ctx, s.DB, set, map[string]any{
		"kind":     in.Kind,
		"title":    s.clip(title),
		"body":     strings.TrimSpace(in.Body),
		"price":    in.Price,
		"area":     in.Area,
		"rooms":    in.Rooms,
		"city":     strings.TrimSpace(in.City),
		"district": strings.TrimSpace(in.District),
		"address":  strings.TrimSpace(in.Address),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		// Missing listing and foreign listing are indistinguishable here;
		// report whichever the row's existence implies.
		if _, gerr := repo.GetListing(ctx, s.DB, id); errors.Is(gerr, repo.ErrNotFound) {
			return ErrListingNotFound
		}
		return ErrForbidden
	}
	return nil
}

// Delete removes a listing the caller owns (soft delete).
func (s *ListingService) Delete(ctx context.Context, userID, id string) error {
	set := query.NewSet(repo.ListingFields)
	if err := set.Where("id", query.Eq(id)); err != nil {
		return err
	}
	if err := set.Where("user_id", query.Eq(userID)); err != nil {
		return err
	}
	n, err := repo.DeleteListings(ctx, s.DB, set)
	if err != nil {
		return err
	}
	if n == 0 {
		if _, gerr := repo.GetListing(ctx, s.DB, id); errors.Is(gerr, repo.ErrNotFound) {
			return ErrListingNotFound
		}
		return ErrForbidden
	}
	return nil
}

// Search translates the filter into a predicate set and returns one page of
// matches with pagination metadata. An empty filter matches all listings.
func (s *ListingService) Search(ctx context.Context, f ListingFilter, page query.Page) ([]domain.Listing, query.Result, error) {
	tr := otel.Tracer("services/ListingService")
	ctx, span := tr.Start(ctx, "Search",
		trace.WithAttributes(
			attribute.Int("page", page.Page),
			attribute.Int("page_size", page.PageSize),
		),
	)
	defer span.End()

	set, err := f.toSet()
	if err != nil {
		return nil, query.Result{}, err
	}
	order, err := f.toOrder()
	if err != nil {
		return nil, query.Result{}, err
	}

	size := s.DefaultPageSize
	if size <= 0 {
		size = query.DefaultPageSize
	}
	return repo.SearchListings(ctx, s.DB, set, order, page.Normalize(size))
}

// toSet builds the AND-composed predicate set for the filter.
func (f ListingFilter) toSet() (*query.Set, error) {
	set := query.NewSet(repo.ListingFields)
	add := func(field string, p query.Predicate) error { return set.Where(field, p) }

	if len(f.Kinds) > 0 {
		vs := make([]any, 0, len(f.Kinds))
		for _, k := range f.Kinds {
			if !validListingKind(k) {
				return nil, ErrInvalidListingKind
			}
			vs = append(vs, k)
		}
		if err := add("kind", query.In(vs...)); err != nil {
			return nil, err
		}
	}
	if f.City != "" {
		if err := add("city", query.Eq(f.City)); err != nil {
			return nil, err
		}
	}
	if f.District != "" {
		if err := add("district", query.Eq(f.District)); err != nil {
			return nil, err
		}
	}
	switch {
	case f.PriceMin != nil && f.PriceMax != nil:
		if err := add("price", query.Between(*f.PriceMin, *f.PriceMax)); err != nil {
			return nil, err
		}
	case f.PriceMin != nil:
		if err := add("price", query.Gte(*f.PriceMin)); err != nil {
			return nil, err
		}
	case f.PriceMax != nil:
		if err := add("price", query.Lte(*f.PriceMax)); err != nil {
			return nil, err
		}
	}
	if f.AreaMin != nil {
		if err := add("area", query.Gte(*f.AreaMin)); err != nil {
			return nil, err
		}
	}
	if f.RoomsMin != nil {
		if err := add("rooms", query.Gte(*f.RoomsMin)); err != nil {
			return nil, err
		}
	}
	if f.Text != "" {
		if err := add("title", query.ContainsFold(f.Text)); err != nil {
			return nil, err
		}
	}
	if f.OwnerID != "" {
		if err := add("user_id", query.Eq(f.OwnerID)); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// toOrder builds the sort spec: the requested key first, ID as tie-break so
// page concatenation is stable.
func (f ListingFilter) toOrder() (*query.Order, error) {
	sortBy := f.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	dir := query.Asc
	if f.Descending {
		dir = query.Desc
	}
	order := query.NewOrder(repo.ListingFields)
	if err := order.By(sortBy, dir); err != nil {
		return nil, err
	}
	if sortBy != "id" {
		if err := order.By("id", query.Asc); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// validListingKind reports whether kind is one of the four listing kinds.
func validListingKind(kind string) bool {
	switch kind {
	case domain.ListingKindRental, domain.ListingKindWanted, domain.ListingKindPass, domain.ListingKindJoin:
		return true
	default:
		return false
	}
}

// clip truncates a title to the configured maximum rune length.
func (s *ListingService) clip(title string) string {
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(title) > s.TitleMaxLen {
		return string([]rune(title)[:s.TitleMaxLen])
	}
	return title
}

// normalizeTitle trims whitespace, collapses runs of spaces, and title-cases
// the first word using the configured locale.
func (s *ListingService) normalizeTitle(t string) string {
	t = whitespaceRE.ReplaceAllString(strings.TrimSpace(t), " ")
	if t == "" {
		return ""
	}
	loc := s.TitleLocale
	if loc == language.Und {
		loc = language.English
	}
	parts := strings.SplitN(t, " ", 2)
	parts[0] = cases.Title(loc).String(parts[0])
	return strings.Join(parts, " ")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
