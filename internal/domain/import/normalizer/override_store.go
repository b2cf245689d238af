package normalizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Override match types.
const (
	MatchExact    = "exact"
	MatchContains = "contains"
	MatchFuzzy    = "fuzzy"
)

// MerchantOverride is a user's correction for merchants extracted from
// descriptions that match MatchPattern.
type MerchantOverride struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	MatchPattern  string     `json:"match_pattern"`
	MatchType     string     `json:"match_type"`
	MerchantName  string     `json:"merchant_name"`
	MatchCount    int        `json:"match_count"`
	LastMatchedAt *time.Time `json:"last_matched_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Matches reports whether the override applies to a raw description.
func (o MerchantOverride) Matches(raw string) bool {
	if raw == "" || o.MatchPattern == "" {
		return false
	}
	switch o.MatchType {
	case MatchExact:
		return strings.EqualFold(strings.TrimSpace(Fold(raw)), strings.TrimSpace(Fold(o.MatchPattern)))
	case MatchContains:
		return strings.Contains(FoldLower(raw), FoldLower(o.MatchPattern))
	case MatchFuzzy:
		return fuzzy.MatchNormalizedFold(o.MatchPattern, raw)
	default:
		return false
	}
}

// MatchOverride returns the first override in overrides that matches raw.
func MatchOverride(overrides []MerchantOverride, raw string) *MerchantOverride {
	for i := range overrides {
		if overrides[i].Matches(raw) {
			return &overrides[i]
		}
	}
	return nil
}

// DBTX is the subset of pgxpool.Pool the store uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// OverrideStore manages user merchant overrides in the database
type OverrideStore struct {
	db DBTX
}

// NewOverrideStore creates a new override store
func NewOverrideStore(db DBTX) *OverrideStore {
	return &OverrideStore{db: db}
}

// SaveOverride creates or updates a user's merchant override
func (s *OverrideStore) SaveOverride(ctx context.Context, override MerchantOverride) (*MerchantOverride, error) {
	switch override.MatchType {
	case MatchExact, MatchContains, MatchFuzzy:
	default:
		return nil, fmt.Errorf("unknown match type %q", override.MatchType)
	}

	query := `
		INSERT INTO user_merchant_overrides (user_id, match_pattern, match_type, merchant_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, match_pattern) DO UPDATE SET
			match_type = EXCLUDED.match_type,
			merchant_name = EXCLUDED.merchant_name,
			updated_at = now()
		RETURNING id, user_id, match_pattern, match_type, merchant_name,
			match_count, last_matched_at, created_at, updated_at
	`

	var result MerchantOverride
	err := s.db.QueryRow(ctx, query,
		override.UserID,
		override.MatchPattern,
		override.MatchType,
		override.MerchantName,
	).Scan(
		&result.ID, &result.UserID, &result.MatchPattern, &result.MatchType, &result.MerchantName,
		&result.MatchCount, &result.LastMatchedAt, &result.CreatedAt, &result.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save merchant override: %w", err)
	}
	return &result, nil
}

// GetOverridesForUser returns all overrides for a user, most used first.
func (s *OverrideStore) GetOverridesForUser(ctx context.Context, userID uuid.UUID) ([]MerchantOverride, error) {
	query := `
		SELECT id, user_id, match_pattern, match_type, merchant_name,
			match_count, last_matched_at, created_at, updated_at
		FROM user_merchant_overrides
		WHERE user_id = $1
		ORDER BY match_count DESC, updated_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query merchant overrides: %w", err)
	}
	defer rows.Close()

	var overrides []MerchantOverride
	for rows.Next() {
		var o MerchantOverride
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.MatchPattern, &o.MatchType, &o.MerchantName,
			&o.MatchCount, &o.LastMatchedAt, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan merchant override: %w", err)
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// FindMatchingOverride finds the first override that matches the raw
// description and bumps its match counter.
func (s *OverrideStore) FindMatchingOverride(ctx context.Context, userID uuid.UUID, raw string) (*MerchantOverride, error) {
	overrides, err := s.GetOverridesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	o := MatchOverride(overrides, raw)
	if o == nil {
		return nil, nil
	}
	if err := s.RecordMatch(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

// RecordMatch increments the match count for an override.
func (s *OverrideStore) RecordMatch(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE user_merchant_overrides
		SET match_count = match_count + 1, last_matched_at = now()
		WHERE id = $1
	`
	if _, err := s.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to record override match: %w", err)
	}
	return nil
}

// DeleteOverride removes an override
func (s *OverrideStore) DeleteOverride(ctx context.Context, userID, overrideID uuid.UUID) error {
	query := `DELETE FROM user_merchant_overrides WHERE id = $1 AND user_id = $2`
	result, err := s.db.Exec(ctx, query, overrideID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete merchant override: %w", err)
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
