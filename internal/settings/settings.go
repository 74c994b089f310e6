// Package settings contains the accessor for clinic-wide configuration values stored in
// the settings table.
package settings

import (
	"clinic-backend/internal/database"
	"context"
	"fmt"
	"strconv"
	"time"
)

const (
	// MaxPatientsPerDayKey is the settings key holding the daily appointment capacity.
	MaxPatientsPerDayKey = "max_patients_per_day"

	// DefaultMaxPatientsPerDay is used when no explicit capacity is configured.
	DefaultMaxPatientsPerDay = 40
)

const findSettingByKeyQuery = "SELECT id, key, value, description, created_at, updated_at FROM settings WHERE key = $1"

// Setting represents a single configuration entry.
type Setting struct {
	ID          int64     `json:"id" dbfield:"id"`
	Key         string    `json:"key" dbfield:"key"`
	Value       string    `json:"value" dbfield:"value"`
	Description *string   `json:"description" dbfield:"description"`
	CreatedAt   time.Time `json:"created_at" dbfield:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" dbfield:"updated_at"`
}

// Repository provides access to the configured clinic settings.
type Repository interface {

	// FindByKey finds a setting by its key, returning nil when the key is not configured.
	FindByKey(ctx context.Context, key string) (*Setting, error)

	// MaxPatientsPerDay returns the configured daily appointment capacity, falling back
	// to DefaultMaxPatientsPerDay when the key is absent.
	MaxPatientsPerDay(ctx context.Context) (int, error)
}

type defaultRepository struct {
	dbConn database.Connection
}

// NewRepository creates a new Repository.
func NewRepository(dbConn database.Connection) Repository {
	return &defaultRepository{dbConn: dbConn}
}

func (d defaultRepository) FindByKey(ctx context.Context, key string) (*Setting, error) {
	params := make([]interface{}, 1)
	params[0] = key
	rows, err := d.dbConn.DB().QueryContext(ctx, findSettingByKeyQuery, params...)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	setting := new(Setting)
	for rows.Next() {
		if err = database.TransformRow(rows, setting); err != nil {
			return nil, err
		}
		if setting.ID > 0 {
			return setting, nil
		}
	}
	return nil, nil
}

func (d defaultRepository) MaxPatientsPerDay(ctx context.Context) (int, error) {
	setting, err := d.FindByKey(ctx, MaxPatientsPerDayKey)
	if err != nil {
		return 0, err
	}
	if setting == nil {
		return DefaultMaxPatientsPerDay, nil
	}
	maxPatients, err := strconv.Atoi(setting.Value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", MaxPatientsPerDayKey, setting.Value, err)
	}
	return maxPatients, nil
}
