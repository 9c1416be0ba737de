// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Listing
// model and declares its filterable field set.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/roomly/go-rental-backend/internal/domain"
	"github.com/roomly/go-rental-backend/internal/query"
)

// ListingFields declares the columns a caller may filter or sort listings
// by. Anything outside this map fails with query.ErrUnknownField before a
// statement is built.
var ListingFields = query.Fields{
	"id":         {Column: "id", Kind: query.String},
	"user_id":    {Column: "user_id", Kind: query.String},
	"kind":       {Column: "kind", Kind: query.String},
	"title":      {Column: "title", Kind: query.String},
	"body":       {Column: "body", Kind: query.String},
	"price":      {Column: "price", Kind: query.Number},
	"area":       {Column: "area", Kind: query.Number},
	"rooms":      {Column: "rooms", Kind: query.Number},
	"city":       {Column: "city", Kind: query.String},
	"district":   {Column: "district", Kind: query.String},
	"created_at": {Column: "created_at", Kind: query.Time},
}

// CreateListing inserts a new listing row owned by userID.
func CreateListing(ctx context.Context, db *gorm.DB, l *domain.Listing) (*domain.Listing, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		return nil, err
	}
	return l, nil
}

// GetListing fetches a listing by ID, or ErrNotFound.
func GetListing(ctx context.Context, db *gorm.DB, id string) (*domain.Listing, error) {
	var l domain.Listing
	if err := db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// SearchListings returns one page of listings matching set, ordered by
// order, plus pagination metadata. The unbounded count runs as a separate
// statement from the windowed select.
func SearchListings(ctx context.Context, db *gorm.DB, set *query.Set, order *query.Order, page query.Page) ([]domain.Listing, query.Result, error) {
	return FindPage[domain.Listing](ctx, db, set, order, page)
}

// UpdateListingFields applies changes to all listings matching set via one
// bulk statement and reports rows affected.
func UpdateListingFields(ctx context.Context, db *gorm.DB, set *query.Set, changes map[string]any) (int64, error) {
	return UpdateWhere(ctx, db, &domain.Listing{}, set, changes)
}

// DeleteListings removes all listings matching set (soft delete) and
// reports rows affected.
func DeleteListings(ctx context.Context, db *gorm.DB, set *query.Set) (int64, error) {
	return DeleteWhere(ctx, db, &domain.Listing{}, set)
}
