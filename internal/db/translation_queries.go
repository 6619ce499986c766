package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// CachedTranslationRow is one cache hit.
type CachedTranslationRow struct {
	TranslationUUID string
	SourceLang      string
	TargetLang      string
	Results         json.RawMessage
	UpdatedAt       time.Time
}

// UpsertCachedTranslationParams controls cache upserts.
type UpsertCachedTranslationParams struct {
	CacheKey        []byte
	SourceLang      string
	TargetLang      string
	OriginalText    string
	IncludeExamples bool
	Providers       string
	Results         json.RawMessage
}

// LookupCachedTranslation returns the row for cacheKey refreshed at or after notBefore, or nil.
func (p *Pool) LookupCachedTranslation(ctx context.Context, cacheKey []byte, notBefore time.Time) (*CachedTranslationRow, error) {
	const q = `
UPDATE translator.cached_translations
SET hit_count = hit_count + 1
WHERE cache_key = $1
  AND updated_at >= $2
RETURNING
	translation_uuid::text,
	source_lang,
	target_lang,
	results,
	updated_at
`

	var row CachedTranslationRow
	var results []byte
	err := p.QueryRow(ctx, q, cacheKey, notBefore.UTC()).Scan(
		&row.TranslationUUID,
		&row.SourceLang,
		&row.TargetLang,
		&results,
		&row.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("query cached translation: %w", err)
	}
	row.Results = json.RawMessage(results)
	return &row, nil
}

func (p *Pool) UpsertCachedTranslation(ctx context.Context, row UpsertCachedTranslationParams) error {
	const q = `
INSERT INTO translator.cached_translations (
	cache_key,
	source_lang,
	target_lang,
	original_text,
	include_examples,
	providers,
	results,
	updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, now())
ON CONFLICT (cache_key)
DO UPDATE SET
	results = EXCLUDED.results,
	updated_at = now()
`

	if _, err := p.Exec(
		ctx,
		q,
		row.CacheKey,
		row.SourceLang,
		row.TargetLang,
		row.OriginalText,
		row.IncludeExamples,
		row.Providers,
		string(row.Results),
	); err != nil {
		return fmt.Errorf("upsert cached translation: %w", err)
	}
	return nil
}

// PruneCachedTranslations deletes rows last refreshed before olderThan.
func (p *Pool) PruneCachedTranslations(ctx context.Context, olderThan time.Time) (int64, error) {
	const q = `
DELETE FROM translator.cached_translations
WHERE updated_at < $1
`

	tag, err := p.Exec(ctx, q, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune cached translations: %w", err)
	}
	return tag.RowsAffected(), nil
}
