package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"meetlines/backend/internal/domain"
	"meetlines/backend/internal/store"
)

// ScopeConfig is the stored per-scope configuration row. The schedule policy
// itself lives in the JSON blob and is decoded by the domain.
type ScopeConfig struct {
	bun.BaseModel `bun:"table:scope_configs"`

	ScopeID            uuid.UUID `bun:"resource_scope_id,pk,type:uuid"`
	ScheduleConfigJSON string    `bun:"schedule_config_json"`
	CreatedAt          time.Time `bun:"created_at,notnull"`
	UpdatedAt          time.Time `bun:"updated_at,notnull"`
}

func (c *ScopeConfig) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		c.UpdatedAt = now
	}
	return nil
}

type ScheduleConfigRepo struct {
	db *bun.DB
}

func NewScheduleConfigRepo(db *bun.DB) *ScheduleConfigRepo {
	return &ScheduleConfigRepo{db: db}
}

func (r *ScheduleConfigRepo) GetByScope(ctx context.Context, scopeID uuid.UUID) (domain.ScheduleConfig, error) {
	var row ScopeConfig
	err := r.db.NewSelect().
		Model(&row).
		Where("resource_scope_id = ?", scopeID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ScheduleConfig{}, store.ErrNoSchedule
		}
		return domain.ScheduleConfig{}, err
	}
	if strings.TrimSpace(row.ScheduleConfigJSON) == "" {
		return domain.ScheduleConfig{}, store.ErrNoSchedule
	}

	cfg, err := domain.ParseScheduleConfig([]byte(row.ScheduleConfigJSON))
	if err != nil {
		return domain.ScheduleConfig{}, fmt.Errorf("%w: %v", store.ErrBadSchedule, err)
	}
	return cfg, nil
}

// Put upserts a scope's schedule configuration blob.
func (r *ScheduleConfigRepo) Put(ctx context.Context, scopeID uuid.UUID, rawJSON string) error {
	if _, err := domain.ParseScheduleConfig([]byte(rawJSON)); err != nil {
		return fmt.Errorf("%w: %v", store.ErrBadSchedule, err)
	}
	row := ScopeConfig{ScopeID: scopeID, ScheduleConfigJSON: rawJSON}
	_, err := r.db.NewInsert().
		Model(&row).
		On("CONFLICT (resource_scope_id) DO UPDATE").
		Set("schedule_config_json = EXCLUDED.schedule_config_json").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}
