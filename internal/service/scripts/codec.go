package scripts

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"scriptmentor/internal/domain/models"
	"scriptmentor/internal/service/contentcrypto"
)

// seal converts a plaintext script into its stored record, encrypting every
// content field under the owner's key.
func (s *Store) seal(script *models.Script) (*models.ScriptRecord, error) {
	key := script.OwnerID
	raw, err := s.cipher.EncryptToString(script.RawContent, key)
	if err != nil {
		return nil, fmt.Errorf("encrypt content: %w", err)
	}
	processed, err := s.cipher.EncryptToString(script.ProcessedContent, key)
	if err != nil {
		return nil, fmt.Errorf("encrypt processed content: %w", err)
	}

	var chunks []models.StoredChunk
	for _, ch := range script.Chunks {
		blob, err := s.cipher.Encrypt(ch.Content, key)
		if err != nil {
			return nil, fmt.Errorf("encrypt chunk %d: %w", ch.ChunkIndex, err)
		}
		content, err := json.Marshal(blob)
		if err != nil {
			return nil, fmt.Errorf("marshal chunk %d: %w", ch.ChunkIndex, err)
		}
		chunks = append(chunks, models.StoredChunk{
			ID:             ch.ID,
			Title:          ch.Title,
			Content:        content,
			CharacterNames: ch.CharacterNames,
			StartPage:      ch.StartPage,
			EndPage:        ch.EndPage,
			ChunkType:      ch.ChunkType,
			ChunkIndex:     ch.ChunkIndex,
		})
	}

	encrypted := true
	version := models.CurrentEncryptionVersion
	return &models.ScriptRecord{
		ID:                script.ID,
		OwnerID:           script.OwnerID,
		Title:             script.Title,
		RawContent:        raw,
		ProcessedContent:  processed,
		Characters:        script.Characters,
		Chunks:            chunks,
		ChunkingStrategy:  script.ChunkingStrategy,
		TotalPages:        script.TotalPages,
		IsEncrypted:       &encrypted,
		EncryptionVersion: &version,
		FileSize:          script.FileSize,
		CreatedAt:         script.CreatedAt,
		LastAccessedAt:    script.LastAccessedAt,
	}, nil
}

// open converts a stored record into the plaintext view. Blobs are
// decrypted and plaintext passes through, so legacy rows load the same way.
// A field that fails to decrypt holds contentcrypto.FailureMarker and is
// listed in DecryptionErrors. Chunks are decrypted concurrently.
func (s *Store) open(ctx context.Context, rec *models.ScriptRecord) (*models.Script, error) {
	key := rec.OwnerID
	script := &models.Script{
		ID:               rec.ID,
		OwnerID:          rec.OwnerID,
		Title:            rec.Title,
		Characters:       rec.Characters,
		ChunkingStrategy: rec.ChunkingStrategy,
		TotalPages:       rec.TotalPages,
		IsEncrypted:      rec.Encrypted(),
		FileSize:         rec.FileSize,
		CreatedAt:        rec.CreatedAt,
		LastAccessedAt:   rec.LastAccessedAt,
	}
	if rec.EncryptionVersion != nil {
		script.EncryptionVersion = *rec.EncryptionVersion
	}
	if script.Characters == nil {
		script.Characters = map[string]models.Character{}
	}

	for _, field := range []struct {
		name string
		raw  string
		dst  *string
	}{
		{"content", rec.RawContent, &script.RawContent},
		{"processed_content", rec.ProcessedContent, &script.ProcessedContent},
	} {
		plain, ok, err := s.cipher.DecryptField(field.raw, key)
		if err != nil {
			return nil, err
		}
		*field.dst = plain
		if !ok {
			script.DecryptionErrors = append(script.DecryptionErrors, field.name)
		}
	}

	if len(rec.Chunks) == 0 {
		s.logFailures(script)
		return script, nil
	}

	chunks := make([]models.ScriptChunk, len(rec.Chunks))
	var g errgroup.Group
	for i, stored := range rec.Chunks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			plain, ok, err := s.cipher.DecryptField(stored.Content, key)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", stored.ChunkIndex, err)
			}
			chunks[i] = models.ScriptChunk{
				ID:               stored.ID,
				Title:            stored.Title,
				Content:          plain,
				CharacterNames:   stored.CharacterNames,
				StartPage:        stored.StartPage,
				EndPage:          stored.EndPage,
				ChunkType:        stored.ChunkType,
				ChunkIndex:       stored.ChunkIndex,
				DecryptionFailed: !ok,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].ChunkIndex < chunks[j].ChunkIndex })
	for _, ch := range chunks {
		if ch.DecryptionFailed {
			script.DecryptionErrors = append(script.DecryptionErrors, fmt.Sprintf("chunks[%d].content", ch.ChunkIndex))
		}
	}
	script.Chunks = chunks
	s.logFailures(script)
	return script, nil
}

func (s *Store) logFailures(script *models.Script) {
	if len(script.DecryptionErrors) == 0 {
		return
	}
	s.logger.Warn("script loaded with unreadable fields",
		"script_id", script.ID,
		"fields", script.DecryptionErrors,
		"marker", contentcrypto.FailureMarker,
	)
}
