// Package scripts stores screenplays with their content encrypted at rest.
package scripts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"scriptmentor/internal/config"
	"scriptmentor/internal/domain"
	"scriptmentor/internal/domain/models"
	"scriptmentor/internal/domain/repositories"
	"scriptmentor/internal/service/chunking"
	"scriptmentor/internal/service/contentcrypto"
)

// Store is the script persistence service. Every operation is scoped to
// the owner, whose id is also the encryption key material.
type Store struct {
	repo    repositories.ScriptRepository
	cipher  *contentcrypto.Cipher
	chunker *chunking.Chunker
	tasks   *BackgroundRunner
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// NewStore creates a new script store
func NewStore(
	repo repositories.ScriptRepository,
	cipher *contentcrypto.Cipher,
	chunker *chunking.Chunker,
	tasks *BackgroundRunner,
	logger *slog.Logger,
) *Store {
	return &Store{
		repo:    repo,
		cipher:  cipher,
		chunker: chunker,
		tasks:   tasks,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// CreateScriptRequest is the input of Save.
type CreateScriptRequest struct {
	Title      string                      `json:"title"`
	Content    string                      `json:"content"`
	Characters map[string]models.Character `json:"characters,omitempty"`
	// Strategy overrides the recommended chunking strategy
	Strategy      *models.ChunkingStrategy `json:"chunking_strategy,omitempty"`
	PagesPerChunk int                      `json:"pages_per_chunk,omitempty"`
}

// UpdateScriptRequest changes a script. Nil fields are left alone.
type UpdateScriptRequest struct {
	Title      *string                     `json:"title,omitempty"`
	Content    *string                     `json:"content,omitempty"`
	Characters map[string]models.Character `json:"characters,omitempty"`
	// Strategy re-runs chunking; without it the chunk layout is kept
	Strategy      *models.ChunkingStrategy `json:"chunking_strategy,omitempty"`
	PagesPerChunk int                      `json:"pages_per_chunk,omitempty"`
}

// Save chunks, encrypts and persists a new script. Content longer than one
// page chunk is stored as chunked; otherwise it is single-scene and carries
// no chunks.
func (s *Store) Save(ctx context.Context, ownerID string, req *CreateScriptRequest) (*models.Script, error) {
	if ownerID == "" {
		return nil, &domain.UnauthorizedError{Message: "no authenticated user"}
	}
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	characters := req.Characters
	if len(characters) == 0 {
		characters = chunking.ExtractCharacters(req.Content)
	}
	characters = chunking.MergeCharacters(characters, nil)

	script, err := s.layout(req.Title, req.Content, characters, req.Strategy, req.PagesPerChunk, true)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	script.ID = s.newID()
	script.OwnerID = ownerID
	script.FileSize = int64(len(req.Content))
	script.CreatedAt = now
	script.LastAccessedAt = now
	script.IsEncrypted = true
	script.EncryptionVersion = models.CurrentEncryptionVersion

	record, err := s.seal(script)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create script: %w", err)
	}

	s.logger.Info("script saved",
		"script_id", script.ID,
		"user_id", ownerID,
		"chunks", len(script.Chunks),
		"file_size", script.FileSize,
	)
	return script, nil
}

// layout runs the chunker. When strategy is nil the recommendation is used.
// With allowSingle, content that fits in one page chunk is stored as a
// single scene whatever the strategy.
func (s *Store) layout(
	title, content string,
	characters map[string]models.Character,
	strategy *models.ChunkingStrategy,
	pagesPerChunk int,
	allowSingle bool,
) (*models.Script, error) {
	var opts chunking.Options
	if strategy != nil {
		opts = chunking.Options{Strategy: *strategy, PagesPerChunk: pagesPerChunk}
	} else {
		opts = chunking.Recommend(content).Options
	}

	script, err := s.chunker.Chunk(content, title, characters, opts)
	if err != nil {
		return nil, err
	}
	limit := opts.PagesPerChunk
	if limit <= 0 {
		limit = chunking.DefaultPagesPerChunk
	}
	if allowSingle && (!script.IsChunked() || chunking.EstimatePages(content, opts.LinesPerPage) <= limit) {
		script.Chunks = nil
		script.ChunkingStrategy = nil
	}
	return script, nil
}

// Get loads and decrypts a script. Fields that fail to decrypt are replaced
// by a marker instead of failing the read. The last-accessed time is
// updated in the background.
func (s *Store) Get(ctx context.Context, ownerID, id string) (*models.Script, error) {
	if ownerID == "" {
		return nil, &domain.UnauthorizedError{Message: "no authenticated user"}
	}
	record, err := s.repo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	script, err := s.open(ctx, record)
	if err != nil {
		return nil, err
	}

	at := s.now().UTC()
	s.tasks.Go("touch_last_accessed", func(ctx context.Context) error {
		return s.repo.TouchLastAccessed(ctx, id, ownerID, at)
	})
	return script, nil
}

// GetAll lists the owner's scripts, most recently accessed first. Content
// fields are returned as stored and never decrypted.
func (s *Store) GetAll(ctx context.Context, ownerID string) ([]models.ScriptRecord, error) {
	if ownerID == "" {
		return nil, &domain.UnauthorizedError{Message: "no authenticated user"}
	}
	records, err := s.repo.List(ctx, ownerID, config.ScriptListLimit)
	if err != nil {
		return nil, fmt.Errorf("list scripts: %w", err)
	}
	return records, nil
}

// Update applies req and re-encrypts the script. Replacing content on a
// chunked script re-chunks it with its stored strategy; a single-scene
// script only becomes chunked when a strategy is given.
func (s *Store) Update(ctx context.Context, ownerID, id string, req *UpdateScriptRequest) (*models.Script, error) {
	if ownerID == "" {
		return nil, &domain.UnauthorizedError{Message: "no authenticated user"}
	}
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	record, err := s.repo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	script, err := s.open(ctx, record)
	if err != nil {
		return nil, err
	}
	if len(script.DecryptionErrors) > 0 && req.Content == nil {
		return nil, &domain.DecryptionError{
			Field:  strings.Join(script.DecryptionErrors, ", "),
			Reason: "stored content is unreadable; replace the content to update this script",
		}
	}

	if req.Title != nil {
		script.Title = *req.Title
	}
	if req.Characters != nil {
		script.Characters = chunking.MergeCharacters(req.Characters, nil)
	}

	content := script.RawContent
	if req.Content != nil {
		content = *req.Content
		script.FileSize = int64(len(content))
	}

	strategy := req.Strategy
	if strategy == nil && req.Content != nil && script.ChunkingStrategy != nil {
		strategy = script.ChunkingStrategy
	}
	switch {
	case strategy != nil:
		laid, err := s.layout(script.Title, content, script.Characters, strategy, req.PagesPerChunk, true)
		if err != nil {
			return nil, err
		}
		script.RawContent, script.ProcessedContent = laid.RawContent, laid.ProcessedContent
		script.Chunks, script.ChunkingStrategy, script.TotalPages = laid.Chunks, laid.ChunkingStrategy, laid.TotalPages
	case req.Content != nil:
		pages := chunking.EstimatePages(content, chunking.DefaultLinesPerPage)
		script.RawContent, script.ProcessedContent, script.TotalPages = content, content, &pages
	case req.Characters != nil && len(script.Chunks) > 0:
		chunking.AttachCharacters(script.Chunks, script.Characters)
	}

	script.IsEncrypted = true
	script.EncryptionVersion = models.CurrentEncryptionVersion
	script.DecryptionErrors = nil

	updated, err := s.seal(script)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, fmt.Errorf("update script: %w", err)
	}

	s.logger.Info("script updated", "script_id", id, "user_id", ownerID, "rechunked", strategy != nil)
	return script, nil
}

// Delete removes a script
func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return &domain.UnauthorizedError{Message: "no authenticated user"}
	}
	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		return err
	}
	s.logger.Info("script deleted", "script_id", id, "user_id", ownerID)
	return nil
}

// CleanupOlderThan deletes the owner's scripts created more than days ago
// and returns how many were removed.
func (s *Store) CleanupOlderThan(ctx context.Context, ownerID string, days int) (int64, error) {
	if ownerID == "" {
		return 0, &domain.UnauthorizedError{Message: "no authenticated user"}
	}
	if err := validation.Validate(days, validation.Required, validation.Min(1)); err != nil {
		return 0, fmt.Errorf("%w: days: %v", domain.ErrValidation, err)
	}

	cutoff := s.now().UTC().AddDate(0, 0, -days)
	n, err := s.repo.DeleteCreatedBefore(ctx, ownerID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup scripts: %w", err)
	}
	s.logger.Info("old scripts cleaned up", "user_id", ownerID, "days", days, "deleted", n)
	return n, nil
}

// MigrateAllToEncrypted encrypts the owner's legacy plaintext scripts one
// at a time. A script that fails is counted and skipped. Scripts already
// encrypted are never selected, so a second run migrates nothing.
func (s *Store) MigrateAllToEncrypted(ctx context.Context, ownerID string) (models.MigrationReport, error) {
	var report models.MigrationReport
	if ownerID == "" {
		return report, &domain.UnauthorizedError{Message: "no authenticated user"}
	}

	records, err := s.repo.ListUnencrypted(ctx, ownerID)
	if err != nil {
		return report, fmt.Errorf("list unencrypted scripts: %w", err)
	}

	for i := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := s.migrateOne(ctx, &records[i]); err != nil {
			report.Failed++
			s.logger.Warn("script encryption migration failed",
				"script_id", records[i].ID,
				"user_id", ownerID,
				"error", err,
			)
			continue
		}
		report.Migrated++
	}

	s.logger.Info("encryption migration finished",
		"user_id", ownerID,
		"migrated", report.Migrated,
		"failed", report.Failed,
	)
	return report, nil
}

func (s *Store) migrateOne(ctx context.Context, record *models.ScriptRecord) error {
	script, err := s.open(ctx, record)
	if err != nil {
		return err
	}
	if len(script.DecryptionErrors) > 0 {
		return &domain.DecryptionError{Field: strings.Join(script.DecryptionErrors, ", "), Reason: "unreadable stored value"}
	}
	sealed, err := s.seal(script)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, sealed)
}

func (s *Store) validateCreateRequest(req *CreateScriptRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.Required, validation.Length(1, config.MaxScriptTitleLength)),
		validation.Field(&req.Content,
			validation.Required,
			validation.By(maxBytes(config.MaxScriptBytes)),
		),
		validation.Field(&req.Strategy, validation.By(validStrategy)),
		validation.Field(&req.PagesPerChunk, validation.Min(0), validation.Max(100)),
	)
}

func (s *Store) validateUpdateRequest(req *UpdateScriptRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.NilOrNotEmpty, validation.Length(1, config.MaxScriptTitleLength)),
		validation.Field(&req.Content, validation.NilOrNotEmpty, validation.By(maxBytes(config.MaxScriptBytes))),
		validation.Field(&req.Strategy, validation.By(validStrategy)),
		validation.Field(&req.PagesPerChunk, validation.Min(0), validation.Max(100)),
	)
}

func maxBytes(limit int) validation.RuleFunc {
	return func(value interface{}) error {
		var n int
		switch v := value.(type) {
		case string:
			n = len(v)
		case *string:
			if v == nil {
				return nil
			}
			n = len(*v)
		}
		if n > limit {
			return fmt.Errorf("must be at most %d bytes", limit)
		}
		return nil
	}
}

func validStrategy(value interface{}) error {
	s, _ := value.(*models.ChunkingStrategy)
	if s != nil && !s.Valid() {
		return fmt.Errorf("unknown chunking strategy %q", *s)
	}
	return nil
}
