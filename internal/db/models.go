package db

import (
	"encoding/json"
	"time"
)

// CachedTranslation maps translator.cached_translations. One row holds the merged result list
// of one (text, language pair, mode, provider list) combination.
type CachedTranslation struct {
	CacheKey        []byte          `gorm:"column:cache_key;type:bytea;primaryKey"`
	TranslationUUID string          `gorm:"column:translation_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	SourceLang      string          `gorm:"column:source_lang;type:text;not null"`
	TargetLang      string          `gorm:"column:target_lang;type:text;not null"`
	OriginalText    string          `gorm:"column:original_text;type:text;not null"`
	IncludeExamples bool            `gorm:"column:include_examples;type:boolean;not null;default:false"`
	Providers       string          `gorm:"column:providers;type:text;not null"`
	Results         json.RawMessage `gorm:"column:results;type:jsonb;not null"`
	HitCount        int64           `gorm:"column:hit_count;type:bigint;not null;default:0"`
	CreatedAt       time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (CachedTranslation) TableName() string { return "translator.cached_translations" }

func autoMigrateModels() []any {
	return []any{
		&CachedTranslation{},
	}
}
