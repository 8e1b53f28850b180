// Package store implements the services.Store persistence boundary on
// SQLite via database/sql.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/username/ledgerlens/backend/src/models"
	"github.com/username/ledgerlens/backend/src/services"
)

// SQLStore is the SQLite-backed Store implementation.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, color
		FROM categories
		ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var cat models.Category
		var description sql.NullString
		if err := rows.Scan(&cat.ID, &cat.Name, &description, &cat.Color); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		cat.Description = description.String
		categories = append(categories, cat)
	}
	return categories, rows.Err()
}

func (s *SQLStore) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	return s.getOrganization(ctx, `WHERE id = ?`, id)
}

func (s *SQLStore) GetFirstOrganization(ctx context.Context) (*models.Organization, error) {
	return s.getOrganization(ctx, `ORDER BY created_at ASC LIMIT 1`)
}

func (s *SQLStore) getOrganization(ctx context.Context, clause string, args ...any) (*models.Organization, error) {
	query := `
		SELECT id, name, stripe_customer_id, stripe_subscription_id, stripe_price_id, created_at
		FROM organizations ` + clause

	var org models.Organization
	var customerID, subscriptionID, priceID sql.NullString
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&org.ID, &org.Name, &customerID, &subscriptionID, &priceID, &org.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying organization: %w", err)
	}
	org.StripeCustomerID = customerID.String
	org.StripeSubscriptionID = subscriptionID.String
	org.StripePriceID = priceID.String
	return &org, nil
}

func (s *SQLStore) UpdateOrganizationSubscription(ctx context.Context, stripeCustomerID, subscriptionID, priceID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE organizations
		SET stripe_subscription_id = ?, stripe_price_id = ?, updated_at = CURRENT_TIMESTAMP, updated_by = 'stripe-webhook'
		WHERE stripe_customer_id = ?`,
		nullable(subscriptionID), nullable(priceID), stripeCustomerID)
	if err != nil {
		return fmt.Errorf("updating organization subscription: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return services.ErrOrgNotFound
	}
	return nil
}

func (s *SQLStore) TouchOrganization(ctx context.Context, stripeCustomerID, updatedBy string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE organizations
		SET updated_at = CURRENT_TIMESTAMP, updated_by = ?
		WHERE stripe_customer_id = ?`, updatedBy, stripeCustomerID)
	if err != nil {
		return fmt.Errorf("touching organization: %w", err)
	}
	return nil
}

// nullable converts an empty string into a SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
