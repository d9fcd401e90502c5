package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"scriptmentor/internal/domain"
	"scriptmentor/internal/domain/models"
	"scriptmentor/internal/domain/repositories"
)

// ScriptRepository implements repositories.ScriptRepository
type ScriptRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewScriptRepository creates a new script repository
func NewScriptRepository(db *sql.DB, logger *slog.Logger) repositories.ScriptRepository {
	return &ScriptRepository{db: db, logger: logger}
}

const scriptColumns = `id, user_id, title, content, processed_content, characters, chunks,
	chunking_strategy, total_pages, is_encrypted, encryption_version, file_size, created_at, last_accessed`

// Create inserts a new script record
func (r *ScriptRepository) Create(ctx context.Context, record *models.ScriptRecord) error {
	characters, chunks, err := encodeScriptJSON(record)
	if err != nil {
		return err
	}

	_, err = executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO scripts (`+scriptColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.OwnerID,
		record.Title,
		record.RawContent,
		record.ProcessedContent,
		characters,
		chunks,
		record.ChunkingStrategy,
		record.TotalPages,
		record.IsEncrypted,
		record.EncryptionVersion,
		record.FileSize,
		formatTime(record.CreatedAt),
		formatTime(record.LastAccessedAt),
	)
	if err != nil {
		return fmt.Errorf("create script: %w", err)
	}
	return nil
}

// GetByID retrieves a script by ID and owner
func (r *ScriptRepository) GetByID(ctx context.Context, id, userID string) (*models.ScriptRecord, error) {
	row := executor(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+scriptColumns+` FROM scripts WHERE id = ? AND user_id = ?`, id, userID)

	record, err := scanScript(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("script %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get script: %w", err)
	}
	return record, nil
}

// List retrieves a user's scripts, most recently accessed first
func (r *ScriptRepository) List(ctx context.Context, userID string, limit int) ([]models.ScriptRecord, error) {
	return r.query(ctx, "list scripts",
		`SELECT `+scriptColumns+` FROM scripts WHERE user_id = ? ORDER BY last_accessed DESC LIMIT ?`,
		userID, limit)
}

// ListUnencrypted retrieves scripts written before encryption was enabled
func (r *ScriptRepository) ListUnencrypted(ctx context.Context, userID string) ([]models.ScriptRecord, error) {
	return r.query(ctx, "list unencrypted scripts",
		`SELECT `+scriptColumns+` FROM scripts WHERE user_id = ? AND (is_encrypted IS NULL OR is_encrypted = 0) ORDER BY id`,
		userID)
}

func (r *ScriptRepository) query(ctx context.Context, op, query string, args ...any) ([]models.ScriptRecord, error) {
	rows, err := executor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	records := []models.ScriptRecord{}
	for rows.Next() {
		record, err := scanScript(rows)
		if err != nil {
			return nil, fmt.Errorf("scan script: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}

// Update replaces the mutable columns of a script
func (r *ScriptRepository) Update(ctx context.Context, record *models.ScriptRecord) error {
	characters, chunks, err := encodeScriptJSON(record)
	if err != nil {
		return err
	}

	result, err := executor(ctx, r.db).ExecContext(ctx, `
		UPDATE scripts
		SET title = ?, content = ?, processed_content = ?, characters = ?, chunks = ?,
			chunking_strategy = ?, total_pages = ?, is_encrypted = ?, encryption_version = ?,
			file_size = ?
		WHERE id = ? AND user_id = ?`,
		record.Title,
		record.RawContent,
		record.ProcessedContent,
		characters,
		chunks,
		record.ChunkingStrategy,
		record.TotalPages,
		record.IsEncrypted,
		record.EncryptionVersion,
		record.FileSize,
		record.ID,
		record.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("update script: %w", err)
	}
	return requireRow(result, "script", record.ID)
}

// TouchLastAccessed sets last_accessed only
func (r *ScriptRepository) TouchLastAccessed(ctx context.Context, id, userID string, at time.Time) error {
	_, err := executor(ctx, r.db).ExecContext(ctx,
		`UPDATE scripts SET last_accessed = ? WHERE id = ? AND user_id = ?`, formatTime(at), id, userID)
	if err != nil {
		return fmt.Errorf("touch script: %w", err)
	}
	return nil
}

// Delete deletes a script
func (r *ScriptRepository) Delete(ctx context.Context, id, userID string) error {
	result, err := executor(ctx, r.db).ExecContext(ctx,
		`DELETE FROM scripts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete script: %w", err)
	}
	return requireRow(result, "script", id)
}

// DeleteCreatedBefore removes the user's scripts created before cutoff
func (r *ScriptRepository) DeleteCreatedBefore(ctx context.Context, userID string, cutoff time.Time) (int64, error) {
	result, err := executor(ctx, r.db).ExecContext(ctx,
		`DELETE FROM scripts WHERE user_id = ? AND created_at < ?`, userID, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete old scripts: %w", err)
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanScript(row scanner) (*models.ScriptRecord, error) {
	var (
		record       models.ScriptRecord
		characters   string
		chunks       sql.NullString
		strategy     sql.NullString
		totalPages   sql.NullInt64
		encrypted    sql.NullBool
		version      sql.NullString
		createdAt    string
		lastAccessed string
	)
	err := row.Scan(
		&record.ID,
		&record.OwnerID,
		&record.Title,
		&record.RawContent,
		&record.ProcessedContent,
		&characters,
		&chunks,
		&strategy,
		&totalPages,
		&encrypted,
		&version,
		&record.FileSize,
		&createdAt,
		&lastAccessed,
	)
	if err != nil {
		return nil, err
	}

	if strategy.Valid {
		s := models.ChunkingStrategy(strategy.String)
		record.ChunkingStrategy = &s
	}
	if totalPages.Valid {
		n := int(totalPages.Int64)
		record.TotalPages = &n
	}
	if encrypted.Valid {
		record.IsEncrypted = &encrypted.Bool
	}
	if version.Valid {
		record.EncryptionVersion = &version.String
	}
	if record.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if record.LastAccessedAt, err = parseTime(lastAccessed); err != nil {
		return nil, fmt.Errorf("parse last_accessed: %w", err)
	}

	if err := json.Unmarshal([]byte(characters), &record.Characters); err != nil {
		return nil, fmt.Errorf("unmarshal characters: %w", err)
	}
	if chunks.Valid {
		if err := json.Unmarshal([]byte(chunks.String), &record.Chunks); err != nil {
			return nil, fmt.Errorf("unmarshal chunks: %w", err)
		}
	}
	return &record, nil
}

// encodeScriptJSON serializes the JSON columns. A nil chunk list is stored
// as NULL.
func encodeScriptJSON(record *models.ScriptRecord) (string, sql.NullString, error) {
	chars := record.Characters
	if chars == nil {
		chars = map[string]models.Character{}
	}
	characters, err := json.Marshal(chars)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("marshal characters: %w", err)
	}

	var chunks sql.NullString
	if record.Chunks != nil {
		b, err := json.Marshal(record.Chunks)
		if err != nil {
			return "", sql.NullString{}, fmt.Errorf("marshal chunks: %w", err)
		}
		chunks = sql.NullString{String: string(b), Valid: true}
	}
	return string(characters), chunks, nil
}

func requireRow(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}
