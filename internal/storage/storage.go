package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates that a design record could not be located in the backing store.
var ErrNotFound = errors.New("design not found")

// ErrUserExists indicates a registration attempt with an already-used email.
var ErrUserExists = errors.New("user already exists")

// UnlimitedGenerations marks a quota without a monthly ceiling.
const UnlimitedGenerations = -1

// User represents an account with its subscription plan and usage counters.
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Username         string    `json:"username,omitempty"`
	PasswordHash     string    `json:"-"`
	Plan             string    `json:"plan"`
	GenerationsUsed  int       `json:"monthly_generations_used"`
	GenerationsLimit int       `json:"monthly_generations_limit"`
	CreatedAt        time.Time `json:"created_at"`
}

// UsageQuota is the read model the generation gate evaluates.
type UsageQuota struct {
	Plan  string `json:"plan"`
	Used  int    `json:"used"`
	Limit int    `json:"limit"`
}

// Quota projects the user's counters into the gate's read model.
func (u User) Quota() UsageQuota {
	return UsageQuota{Plan: u.Plan, Used: u.GenerationsUsed, Limit: u.GenerationsLimit}
}

// ChatMessage is one turn of the refinement conversation.
type ChatMessage struct {
	Sender string `json:"sender"` // "user" or "assistant"
	Text   string `json:"text"`
}

// FurnitureItem is one detected object from the furniture analysis pass.
type FurnitureItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DesignRecord is the persisted snapshot of a finished design session.
type DesignRecord struct {
	ID                string          `json:"id"`
	OwnerID           string          `json:"owner_id"`
	Name              string          `json:"name"`
	OriginalImageURL  string          `json:"original_image_url"`
	GeneratedImageURL string          `json:"generated_image_url"`
	StyleID           string          `json:"style_id"`
	StyleName         string          `json:"style_name"`
	RoomType          string          `json:"room_type,omitempty"`
	ModelUsed         string          `json:"model_used,omitempty"`
	GenerationTimeMs  int64           `json:"generation_time_ms,omitempty"`
	ChatHistory       []ChatMessage   `json:"chat_history,omitempty"`
	FurnitureItems    []FurnitureItem `json:"furniture_items,omitempty"`
	Published         bool            `json:"published"`
	ViewCount         int             `json:"view_count"`
	LikeCount         int             `json:"like_count"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Store defines the persistence behaviors the application relies on.
type Store interface {
	CreateUser(ctx context.Context, input User) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUserPlan(ctx context.Context, id, plan string, limit int) error
	ResetUsage(ctx context.Context, id string) error
	IncrementUsage(ctx context.Context, id string) error

	SaveDesign(ctx context.Context, input DesignRecord) (DesignRecord, error)
	GetDesign(ctx context.Context, id string) (DesignRecord, error)
	ListDesigns(ctx context.Context, ownerID string) ([]DesignRecord, error)
	ListPublished(ctx context.Context) ([]DesignRecord, error)
	PublishDesign(ctx context.Context, id string) error
	LikeDesign(ctx context.Context, id string) error
	AddView(ctx context.Context, id string) error
	DeleteDesign(ctx context.Context, id string) error

	Close()
}

// NewStore selects a backing store based on whether a database URL is provided.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if databaseURL == "" {
		return NewInMemoryStore(), nil
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY,
        email TEXT NOT NULL UNIQUE,
        username TEXT,
        password_hash TEXT NOT NULL,
        plan TEXT NOT NULL DEFAULT 'free',
        generations_used INTEGER NOT NULL DEFAULT 0,
        generations_limit INTEGER NOT NULL DEFAULT 10,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`)
	if err != nil {
		return fmt.Errorf("create users table: %w", err)
	}

	_, err = pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS designs (
        id TEXT PRIMARY KEY,
        owner_id TEXT NOT NULL,
        name TEXT NOT NULL,
        original_image_url TEXT,
        generated_image_url TEXT,
        style_id TEXT NOT NULL,
        style_name TEXT,
        room_type TEXT,
        model_used TEXT,
        generation_time_ms BIGINT,
        chat_history JSONB DEFAULT '[]'::jsonb,
        furniture_items JSONB DEFAULT '[]'::jsonb,
        published BOOLEAN NOT NULL DEFAULT false,
        view_count INTEGER NOT NULL DEFAULT 0,
        like_count INTEGER NOT NULL DEFAULT 0,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`)
	if err != nil {
		return fmt.Errorf("create designs table: %w", err)
	}

	var schemaAlters = []string{
		`ALTER TABLE designs ADD COLUMN IF NOT EXISTS room_type TEXT`,
		`ALTER TABLE designs ADD COLUMN IF NOT EXISTS model_used TEXT`,
		`ALTER TABLE designs ADD COLUMN IF NOT EXISTS generation_time_ms BIGINT`,
		`ALTER TABLE designs ADD COLUMN IF NOT EXISTS view_count INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE designs ADD COLUMN IF NOT EXISTS like_count INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS username TEXT`,
	}
	for _, stmt := range schemaAlters {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("alter tables: %w", err)
		}
	}

	return nil
}
