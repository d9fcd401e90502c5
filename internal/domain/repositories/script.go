package repositories

import (
	"context"
	"time"

	"scriptmentor/internal/domain/models"
)

// ScriptRepository defines data access operations for stored scripts.
// Content columns are persisted exactly as given; encryption happens above
// this layer. Every query is scoped to the owning user.
type ScriptRepository interface {
	// Create inserts a new record. ID must already be set.
	Create(ctx context.Context, record *models.ScriptRecord) error

	// GetByID retrieves a record by ID and owner
	GetByID(ctx context.Context, id, userID string) (*models.ScriptRecord, error)

	// List retrieves up to limit records for a user, ordered by last_accessed DESC
	List(ctx context.Context, userID string, limit int) ([]models.ScriptRecord, error)

	// ListUnencrypted retrieves records whose is_encrypted flag is false or NULL
	ListUnencrypted(ctx context.Context, userID string) ([]models.ScriptRecord, error)

	// Update replaces the content, character, chunk and encryption columns
	Update(ctx context.Context, record *models.ScriptRecord) error

	// TouchLastAccessed sets last_accessed without touching anything else
	TouchLastAccessed(ctx context.Context, id, userID string, at time.Time) error

	// Delete deletes a record
	Delete(ctx context.Context, id, userID string) error

	// DeleteCreatedBefore deletes the user's records created before cutoff
	// and returns how many were removed
	DeleteCreatedBefore(ctx context.Context, userID string, cutoff time.Time) (int64, error)
}
