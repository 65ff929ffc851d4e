package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists users and design records in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// CreateUser inserts a new account row.
func (s *PostgresStore) CreateUser(ctx context.Context, input User) (User, error) {
	if input.ID == "" {
		input.ID = uuid.NewString()
	}
	if input.CreatedAt.IsZero() {
		input.CreatedAt = time.Now()
	}
	if input.Plan == "" {
		input.Plan = "free"
		input.GenerationsLimit = 10
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, username, password_hash, plan, generations_used, generations_limit, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		input.ID, strings.ToLower(input.Email), input.Username, input.PasswordHash,
		input.Plan, input.GenerationsUsed, input.GenerationsLimit, input.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return User{}, ErrUserExists
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return input, nil
}

// GetUserByEmail looks up an account by (case-insensitive) email.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT id, email, COALESCE(username, ''), password_hash, plan, generations_used, generations_limit, created_at
         FROM users WHERE email = $1`, strings.ToLower(email)))
}

// GetUserByID looks up an account by ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT id, email, COALESCE(username, ''), password_hash, plan, generations_used, generations_limit, created_at
         FROM users WHERE id = $1`, id))
}

// ListUsers returns every account, oldest first.
func (s *PostgresStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, email, COALESCE(username, ''), password_hash, plan, generations_used, generations_limit, created_at
         FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := s.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUserPlan switches the subscription plan and its generation ceiling.
func (s *PostgresStore) UpdateUserPlan(ctx context.Context, id, plan string, limit int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET plan = $2, generations_limit = $3 WHERE id = $1`, id, plan, limit)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetUsage zeroes the monthly generation counter.
func (s *PostgresStore) ResetUsage(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET generations_used = 0 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("reset usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementUsage bumps the monthly generation counter by one.
func (s *PostgresStore) IncrementUsage(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET generations_used = generations_used + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveDesign stores the provided design snapshot.
func (s *PostgresStore) SaveDesign(ctx context.Context, input DesignRecord) (DesignRecord, error) {
	if input.ID == "" {
		input.ID = uuid.NewString()
	}
	if input.CreatedAt.IsZero() {
		input.CreatedAt = time.Now()
	}

	chatJSON, err := json.Marshal(input.ChatHistory)
	if err != nil {
		return DesignRecord{}, fmt.Errorf("marshal chat history: %w", err)
	}
	furnitureJSON, err := json.Marshal(input.FurnitureItems)
	if err != nil {
		return DesignRecord{}, fmt.Errorf("marshal furniture items: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO designs (id, owner_id, name, original_image_url, generated_image_url, style_id, style_name,
            room_type, model_used, generation_time_ms, chat_history, furniture_items, published, view_count, like_count, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		input.ID, input.OwnerID, input.Name, input.OriginalImageURL, input.GeneratedImageURL,
		input.StyleID, input.StyleName, input.RoomType, input.ModelUsed, input.GenerationTimeMs,
		chatJSON, furnitureJSON, input.Published, input.ViewCount, input.LikeCount, input.CreatedAt)
	if err != nil {
		return DesignRecord{}, fmt.Errorf("insert design: %w", err)
	}

	return input, nil
}

// GetDesign returns a design record by ID.
func (s *PostgresStore) GetDesign(ctx context.Context, id string) (DesignRecord, error) {
	return s.scanDesign(s.pool.QueryRow(ctx, designSelect+` WHERE id = $1`, id))
}

// ListDesigns returns one owner's designs, newest first.
func (s *PostgresStore) ListDesigns(ctx context.Context, ownerID string) ([]DesignRecord, error) {
	rows, err := s.pool.Query(ctx, designSelect+` WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query designs: %w", err)
	}
	defer rows.Close()
	return s.collectDesigns(rows)
}

// ListPublished returns all gallery-visible designs, newest first.
func (s *PostgresStore) ListPublished(ctx context.Context) ([]DesignRecord, error) {
	rows, err := s.pool.Query(ctx, designSelect+` WHERE published ORDER BY created_at DESC LIMIT 200`)
	if err != nil {
		return nil, fmt.Errorf("query gallery: %w", err)
	}
	defer rows.Close()
	return s.collectDesigns(rows)
}

// PublishDesign flags a design as visible in the public gallery.
func (s *PostgresStore) PublishDesign(ctx context.Context, id string) error {
	return s.execOnDesign(ctx, `UPDATE designs SET published = true WHERE id = $1`, id)
}

// LikeDesign bumps the like counter.
func (s *PostgresStore) LikeDesign(ctx context.Context, id string) error {
	return s.execOnDesign(ctx, `UPDATE designs SET like_count = like_count + 1 WHERE id = $1`, id)
}

// AddView bumps the view counter.
func (s *PostgresStore) AddView(ctx context.Context, id string) error {
	return s.execOnDesign(ctx, `UPDATE designs SET view_count = view_count + 1 WHERE id = $1`, id)
}

// DeleteDesign removes a design by ID.
func (s *PostgresStore) DeleteDesign(ctx context.Context, id string) error {
	return s.execOnDesign(ctx, `DELETE FROM designs WHERE id = $1`, id)
}

// Close releases database resources.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const designSelect = `SELECT id, owner_id, name, COALESCE(original_image_url, ''), COALESCE(generated_image_url, ''),
    style_id, COALESCE(style_name, ''), COALESCE(room_type, ''), COALESCE(model_used, ''), COALESCE(generation_time_ms, 0),
    chat_history, furniture_items, published, view_count, like_count, created_at FROM designs`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Plan,
		&u.GenerationsUsed, &u.GenerationsLimit, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) scanDesign(row rowScanner) (DesignRecord, error) {
	var (
		d             DesignRecord
		chatJSON      []byte
		furnitureJSON []byte
	)
	err := row.Scan(&d.ID, &d.OwnerID, &d.Name, &d.OriginalImageURL, &d.GeneratedImageURL,
		&d.StyleID, &d.StyleName, &d.RoomType, &d.ModelUsed, &d.GenerationTimeMs,
		&chatJSON, &furnitureJSON, &d.Published, &d.ViewCount, &d.LikeCount, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DesignRecord{}, ErrNotFound
		}
		return DesignRecord{}, fmt.Errorf("scan design: %w", err)
	}

	if len(chatJSON) > 0 {
		if err := json.Unmarshal(chatJSON, &d.ChatHistory); err != nil {
			return DesignRecord{}, fmt.Errorf("decode chat history: %w", err)
		}
	}
	if len(furnitureJSON) > 0 {
		if err := json.Unmarshal(furnitureJSON, &d.FurnitureItems); err != nil {
			return DesignRecord{}, fmt.Errorf("decode furniture items: %w", err)
		}
	}
	return d, nil
}

func (s *PostgresStore) collectDesigns(rows pgx.Rows) ([]DesignRecord, error) {
	designs := []DesignRecord{}
	for rows.Next() {
		d, err := s.scanDesign(rows)
		if err != nil {
			return nil, err
		}
		designs = append(designs, d)
	}
	return designs, rows.Err()
}

func (s *PostgresStore) execOnDesign(ctx context.Context, query, id string) error {
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("update design: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
