package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/frankss230/AFE-plus-2/pkg/types"

	"gorm.io/gorm"
)

var ErrNoCursor = fmt.Errorf("no notification cursor for this pair")

// TelemetryRepository persists the raw fall and temperature submissions and
// the per-pair notification cursors that the debounce logic reads.
//
// Fall submissions are append-only. The fall cursor is the most recent row
// that actually fired a notification. Temperature keeps exactly one logical
// cursor row per pair, updated in place with every reading.
type TelemetryRepository interface {
	AddFall(ctx context.Context, r types.FallRecord) error
	GetFallCursor(ctx context.Context, pair types.Pair) (types.FallRecord, error)

	GetTemperature(ctx context.Context, pair types.Pair) (types.TemperatureRecord, error)
	SaveTemperature(ctx context.Context, r types.TemperatureRecord) error
}

type telemetryRepository struct {
	db *gorm.DB
}

func NewTelemetryRepository(connect ConnectorFunc) (TelemetryRepository, error) {
	impl, err := connect()
	if err != nil {
		return nil, err
	}

	err = impl.AutoMigrate(&FallRecord{}, &TemperatureRecord{})
	if err != nil {
		return nil, err
	}

	return &telemetryRepository{db: impl}, nil
}

func (r *telemetryRepository) AddFall(ctx context.Context, rec types.FallRecord) error {
	row := FallRecord{
		CaretakerID:    rec.CaretakerID,
		DependentID:    rec.DependentID,
		XAxis:          rec.XAxis,
		YAxis:          rec.YAxis,
		ZAxis:          rec.ZAxis,
		Latitude:       rec.Latitude,
		Longitude:      rec.Longitude,
		Status:         rec.Status,
		NotifiedStatus: rec.NotifiedStatus,
		NotifiedAt:     rec.NotifiedAt,
	}

	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *telemetryRepository) GetFallCursor(ctx context.Context, pair types.Pair) (types.FallRecord, error) {
	row := FallRecord{}

	err := r.db.WithContext(ctx).
		Where("caretaker_id = ? AND dependent_id = ? AND notified_at IS NOT NULL", pair.CaretakerID, pair.DependentID).
		Order("notified_at DESC").
		First(&row).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.FallRecord{}, ErrNoCursor
		}
		return types.FallRecord{}, err
	}

	return row.toType(), nil
}

func (r *telemetryRepository) GetTemperature(ctx context.Context, pair types.Pair) (types.TemperatureRecord, error) {
	row := TemperatureRecord{}

	err := r.db.WithContext(ctx).
		Where(&TemperatureRecord{CaretakerID: pair.CaretakerID, DependentID: pair.DependentID}).
		First(&row).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.TemperatureRecord{}, ErrNoCursor
		}
		return types.TemperatureRecord{}, err
	}

	return row.toType(), nil
}

func (r *telemetryRepository) SaveTemperature(ctx context.Context, rec types.TemperatureRecord) error {
	row := TemperatureRecord{}

	err := r.db.WithContext(ctx).
		Where(&TemperatureRecord{CaretakerID: rec.CaretakerID, DependentID: rec.DependentID}).
		First(&row).
		Error

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	row.CaretakerID = rec.CaretakerID
	row.DependentID = rec.DependentID
	row.Value = rec.Value
	row.Status = rec.Status
	row.RecordedAt = rec.RecordedAt
	row.NotifiedStatus = rec.NotifiedStatus
	row.NotifiedAt = rec.NotifiedAt

	return r.db.WithContext(ctx).Save(&row).Error
}
