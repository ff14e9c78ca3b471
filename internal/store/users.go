package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"storefront-service/internal/models"
)

// EnsureUser creates the user document on first sign-in and refreshes the email afterwards
func (s *Store) EnsureUser(ctx context.Context, id, email, role string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, role) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email`,
		id, email, role)
	if err != nil {
		return fmt.Errorf("failed to ensure user: %w", err)
	}
	return nil
}

// ListUsers retrieves user documents, newest first
func (s *Store) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	var users []models.User
	err := s.db.SelectContext(ctx, &users, `
		SELECT `+userColumns+` FROM users
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	return users, err
}

const userColumns = "id, email, name, role, phone, address, created_at"

// GetUser retrieves the profile part of a user document
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// UpdateProfile saves the editable profile fields of an existing user
func (s *Store) UpdateProfile(ctx context.Context, user *models.User) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET name = $2, email = $3, phone = $4, address = $5
		WHERE id = $1`,
		user.ID, user.Name, user.Email, user.Phone, user.Address)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// FetchWishlist reads the wishlist array of a user. A missing user has an empty wishlist.
func (s *Store) FetchWishlist(ctx context.Context, userID string) ([]models.Product, error) {
	var items models.WishlistItems
	err := s.db.GetContext(ctx, &items, "SELECT wishlist FROM users WHERE id = $1", userID)
	if err == sql.ErrNoRows {
		return []models.Product{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch wishlist: %w", err)
	}
	if items == nil {
		return []models.Product{}, nil
	}
	return items, nil
}

// AppendToWishlist adds product to the wishlist array unless an entry with
// the same id is already there. The check and the append are one statement.
func (s *Store) AppendToWishlist(ctx context.Context, userID string, product models.Product) error {
	doc, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to encode wishlist item: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, wishlist) VALUES ($1, jsonb_build_array($2::jsonb))
		ON CONFLICT (id) DO UPDATE SET wishlist = CASE
			WHEN users.wishlist @> jsonb_build_array(jsonb_build_object('id', $3::text))
				THEN users.wishlist
			ELSE users.wishlist || jsonb_build_array($2::jsonb)
		END`,
		userID, string(doc), product.ID)
	if err != nil {
		return fmt.Errorf("failed to append to wishlist: %w", err)
	}
	return nil
}

// RemoveFromWishlist drops every entry with the given product id
func (s *Store) RemoveFromWishlist(ctx context.Context, userID, productID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET wishlist = COALESCE((
			SELECT jsonb_agg(item ORDER BY pos)
			FROM jsonb_array_elements(wishlist) WITH ORDINALITY AS w(item, pos)
			WHERE item->>'id' <> $2), '[]'::jsonb)
		WHERE id = $1`,
		userID, productID)
	if err != nil {
		return fmt.Errorf("failed to remove from wishlist: %w", err)
	}
	return nil
}
