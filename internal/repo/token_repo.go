// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Token
// model, including the bulk expiry flip used by the sweeper.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/roomly/go-rental-backend/internal/domain"
	"github.com/roomly/go-rental-backend/internal/query"
)

// TokenFields declares the filterable columns of the tokens table.
var TokenFields = query.Fields{
	"id":         {Column: "id", Kind: query.String},
	"user_id":    {Column: "user_id", Kind: query.String},
	"type":       {Column: "type", Kind: query.String},
	"value":      {Column: "value", Kind: query.String},
	"is_active":  {Column: "is_active", Kind: query.Bool},
	"expires_at": {Column: "expires_at", Kind: query.Time},
}

// CreateToken inserts a new active token row.
func CreateToken(ctx context.Context, db *gorm.DB, userID, typ, value string, expiresAt time.Time) (*domain.Token, error) {
	t := &domain.Token{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Value:     value,
		IsActive:  true,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// GetTokenByValue fetches a token by its opaque value regardless of
// liveness; callers decide what an expired or inactive token means.
func GetTokenByValue(ctx context.Context, db *gorm.DB, value, typ string) (*domain.Token, error) {
	var t domain.Token
	err := db.WithContext(ctx).
		Where("value = ? AND type = ?", value, typ).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTokensFor removes all tokens of one (user, type) pair and reports
// how many were dropped. Issuance calls this first so at most one live
// token per purpose exists afterward.
func DeleteTokensFor(ctx context.Context, db *gorm.DB, userID, typ string) (int64, error) {
	set := query.NewSet(TokenFields)
	if err := set.Where("user_id", query.Eq(userID)); err != nil {
		return 0, err
	}
	if err := set.Where("type", query.Eq(typ)); err != nil {
		return 0, err
	}
	return DeleteWhere(ctx, db, &domain.Token{}, set)
}

// DeactivateToken flips one token to inactive by value. Used for reactive
// expiry on read.
func DeactivateToken(ctx context.Context, db *gorm.DB, value string) error {
	return db.WithContext(ctx).
		Model(&domain.Token{}).
		Where("value = ?", value).
		Update("is_active", false).Error
}

// ExpireTokens bulk-flips every token that has passed its expiry but is
// still marked active, as of now. It returns the number of rows affected;
// running it again immediately affects zero rows.
func ExpireTokens(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	set := query.NewSet(TokenFields)
	if err := set.Where("is_active", query.Eq(true)); err != nil {
		return 0, err
	}
	if err := set.Where("expires_at", query.Lte(now)); err != nil {
		return 0, err
	}
	return UpdateWhere(ctx, db, &domain.Token{}, set, map[string]any{"is_active": false})
}

// CountLiveTokens returns the number of live tokens for a (user, type)
// pair at the given instant.
func CountLiveTokens(ctx context.Context, db *gorm.DB, userID, typ string, now time.Time) (int64, error) {
	set := query.NewSet(TokenFields)
	if err := set.Where("user_id", query.Eq(userID)); err != nil {
		return 0, err
	}
	if err := set.Where("type", query.Eq(typ)); err != nil {
		return 0, err
	}
	if err := set.Where("is_active", query.Eq(true)); err != nil {
		return 0, err
	}
	if err := set.Where("expires_at", query.Gt(now)); err != nil {
		return 0, err
	}
	return CountWhere(ctx, db, &domain.Token{}, set)
}
