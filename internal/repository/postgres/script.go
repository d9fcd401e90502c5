package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"scriptmentor/internal/domain"
	"scriptmentor/internal/domain/models"
	"scriptmentor/internal/domain/repositories"
)

// PostgresScriptRepository implements repositories.ScriptRepository
type PostgresScriptRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewScriptRepository creates a new script repository
func NewScriptRepository(config *RepositoryConfig) repositories.ScriptRepository {
	return &PostgresScriptRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const scriptColumns = `id, user_id, title, content, processed_content, characters, chunks,
	chunking_strategy, total_pages, is_encrypted, encryption_version, file_size, created_at, last_accessed`

// Create inserts a new script record
func (r *PostgresScriptRepository) Create(ctx context.Context, record *models.ScriptRecord) error {
	characters, chunks, err := encodeScriptJSON(record)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, r.tables.Scripts, scriptColumns)

	executor := GetExecutor(ctx, r.pool)
	_, err = executor.Exec(ctx, query,
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
		record.CreatedAt,
		record.LastAccessedAt,
	)
	if err != nil {
		if isPgDuplicateError(err) {
			return &domain.ValidationError{Message: fmt.Sprintf("script %s already exists", record.ID)}
		}
		return classify("create script", err)
	}

	r.logger.Debug("script inserted", "script_id", record.ID, "user_id", record.OwnerID)
	return nil
}

// GetByID retrieves a script by ID and owner
func (r *PostgresScriptRepository) GetByID(ctx context.Context, id, userID string) (*models.ScriptRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND user_id = $2
	`, scriptColumns, r.tables.Scripts)

	executor := GetExecutor(ctx, r.pool)
	record, err := scanScript(executor.QueryRow(ctx, query, id, userID))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("script %s: %w", id, domain.ErrNotFound)
		}
		return nil, classify("get script", err)
	}
	return record, nil
}

// List retrieves a user's scripts, most recently accessed first
func (r *PostgresScriptRepository) List(ctx context.Context, userID string, limit int) ([]models.ScriptRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1
		ORDER BY last_accessed DESC
		LIMIT $2
	`, scriptColumns, r.tables.Scripts)

	return r.query(ctx, "list scripts", query, userID, limit)
}

// ListUnencrypted retrieves scripts written before encryption was enabled
func (r *PostgresScriptRepository) ListUnencrypted(ctx context.Context, userID string) ([]models.ScriptRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1 AND (is_encrypted IS NULL OR is_encrypted = false)
		ORDER BY id
	`, scriptColumns, r.tables.Scripts)

	return r.query(ctx, "list unencrypted scripts", query, userID)
}

func (r *PostgresScriptRepository) query(ctx context.Context, op, query string, args ...any) ([]models.ScriptRecord, error) {
	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
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
		return nil, classify(op, err)
	}
	return records, nil
}

// Update replaces the mutable columns of a script
func (r *PostgresScriptRepository) Update(ctx context.Context, record *models.ScriptRecord) error {
	characters, chunks, err := encodeScriptJSON(record)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, content = $2, processed_content = $3, characters = $4, chunks = $5,
			chunking_strategy = $6, total_pages = $7, is_encrypted = $8, encryption_version = $9,
			file_size = $10
		WHERE id = $11 AND user_id = $12
	`, r.tables.Scripts)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
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
		return classify("update script", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("script %s: %w", record.ID, domain.ErrNotFound)
	}
	return nil
}

// TouchLastAccessed sets last_accessed only
func (r *PostgresScriptRepository) TouchLastAccessed(ctx context.Context, id, userID string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET last_accessed = $1 WHERE id = $2 AND user_id = $3`, r.tables.Scripts)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, at, id, userID); err != nil {
		return classify("touch script", err)
	}
	return nil
}

// Delete deletes a script
func (r *PostgresScriptRepository) Delete(ctx context.Context, id, userID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, r.tables.Scripts)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, userID)
	if err != nil {
		return classify("delete script", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("script %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// DeleteCreatedBefore removes the user's scripts created before cutoff
func (r *PostgresScriptRepository) DeleteCreatedBefore(ctx context.Context, userID string, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND created_at < $2`, r.tables.Scripts)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, userID, cutoff)
	if err != nil {
		return 0, classify("delete old scripts", err)
	}
	return result.RowsAffected(), nil
}

func scanScript(row pgx.Row) (*models.ScriptRecord, error) {
	var (
		record     models.ScriptRecord
		characters []byte
		chunks     []byte
	)
	err := row.Scan(
		&record.ID,
		&record.OwnerID,
		&record.Title,
		&record.RawContent,
		&record.ProcessedContent,
		&characters,
		&chunks,
		&record.ChunkingStrategy,
		&record.TotalPages,
		&record.IsEncrypted,
		&record.EncryptionVersion,
		&record.FileSize,
		&record.CreatedAt,
		&record.LastAccessedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeScriptJSON(&record, characters, chunks); err != nil {
		return nil, err
	}
	return &record, nil
}

// encodeScriptJSON serializes the jsonb columns. A nil chunk list is stored
// as SQL NULL.
func encodeScriptJSON(record *models.ScriptRecord) (characters, chunks []byte, err error) {
	chars := record.Characters
	if chars == nil {
		chars = map[string]models.Character{}
	}
	if characters, err = json.Marshal(chars); err != nil {
		return nil, nil, fmt.Errorf("marshal characters: %w", err)
	}
	if record.Chunks != nil {
		if chunks, err = json.Marshal(record.Chunks); err != nil {
			return nil, nil, fmt.Errorf("marshal chunks: %w", err)
		}
	}
	return characters, chunks, nil
}

func decodeScriptJSON(record *models.ScriptRecord, characters, chunks []byte) error {
	if len(characters) > 0 {
		if err := json.Unmarshal(characters, &record.Characters); err != nil {
			return fmt.Errorf("unmarshal characters: %w", err)
		}
	}
	if len(chunks) > 0 {
		if err := json.Unmarshal(chunks, &record.Chunks); err != nil {
			return fmt.Errorf("unmarshal chunks: %w", err)
		}
	}
	return nil
}
