package store

import (
	"context"

	"github.com/google/uuid"

	"meetlines/backend/internal/domain"
)

type ScheduleConfigRepository interface {
	// GetByScope loads and decodes the scope's schedule configuration.
	// Returns ErrNoSchedule when no configuration exists and ErrBadSchedule
	// (wrapped) when the stored payload does not decode or validate.
	GetByScope(ctx context.Context, scopeID uuid.UUID) (domain.ScheduleConfig, error)
}
