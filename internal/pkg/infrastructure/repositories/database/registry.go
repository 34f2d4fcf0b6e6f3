package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/frankss230/AFE-plus-2/pkg/types"

	"gorm.io/gorm"
)

var ErrDependentNotFound = fmt.Errorf("dependent not found")
var ErrCaretakerNotFound = fmt.Errorf("caretaker not found")
var ErrSafezoneNotFound = fmt.Errorf("safezone not found")
var ErrLocationNotFound = fmt.Errorf("no location recorded")

// RegistryRepository exposes the onboarded caretakers, dependents and their
// safezone configuration. All of it is read-only to the alerting core and
// seeded at startup.
type RegistryRepository interface {
	GetCaretaker(ctx context.Context, caretakerID string) (types.Caretaker, error)
	GetDependent(ctx context.Context, dependentID string) (types.Dependent, error)
	GetSafezone(ctx context.Context, pair types.Pair) (types.Safezone, error)

	GetLatestLocation(ctx context.Context, pair types.Pair) (types.Location, error)
	AddLocation(ctx context.Context, l types.Location) error

	AddCaretaker(ctx context.Context, c types.Caretaker) error
	AddDependent(ctx context.Context, d types.Dependent) error
	AddSafezone(ctx context.Context, s types.Safezone) error
}

type registryRepository struct {
	db *gorm.DB
}

func NewRegistryRepository(connect ConnectorFunc) (RegistryRepository, error) {
	impl, err := connect()
	if err != nil {
		return nil, err
	}

	err = impl.AutoMigrate(&Caretaker{}, &Dependent{}, &Safezone{}, &Location{})
	if err != nil {
		return nil, err
	}

	return &registryRepository{db: impl}, nil
}

func (r *registryRepository) GetCaretaker(ctx context.Context, caretakerID string) (types.Caretaker, error) {
	c := Caretaker{}

	err := r.db.WithContext(ctx).
		Where(&Caretaker{ID: caretakerID}).
		First(&c).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.Caretaker{}, ErrCaretakerNotFound
		}
		return types.Caretaker{}, err
	}

	return c.toType(), nil
}

func (r *registryRepository) GetDependent(ctx context.Context, dependentID string) (types.Dependent, error) {
	d := Dependent{}

	err := r.db.WithContext(ctx).
		Where(&Dependent{ID: dependentID}).
		First(&d).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.Dependent{}, ErrDependentNotFound
		}
		return types.Dependent{}, err
	}

	return d.toType(), nil
}

func (r *registryRepository) GetSafezone(ctx context.Context, pair types.Pair) (types.Safezone, error) {
	s := Safezone{}

	err := r.db.WithContext(ctx).
		Where(&Safezone{CaretakerID: pair.CaretakerID, DependentID: pair.DependentID}).
		First(&s).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.Safezone{}, ErrSafezoneNotFound
		}
		return types.Safezone{}, err
	}

	return s.toType(), nil
}

func (r *registryRepository) GetLatestLocation(ctx context.Context, pair types.Pair) (types.Location, error) {
	l := Location{}

	err := r.db.WithContext(ctx).
		Where(&Location{CaretakerID: pair.CaretakerID, DependentID: pair.DependentID}).
		Order("observed_at DESC").
		First(&l).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.Location{}, ErrLocationNotFound
		}
		return types.Location{}, err
	}

	return l.toType(), nil
}

func (r *registryRepository) AddLocation(ctx context.Context, l types.Location) error {
	row := Location{
		CaretakerID: l.CaretakerID,
		DependentID: l.DependentID,
		Latitude:    l.Latitude,
		Longitude:   l.Longitude,
		Distance:    l.Distance,
		ObservedAt:  l.ObservedAt,
	}

	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *registryRepository) AddCaretaker(ctx context.Context, c types.Caretaker) error {
	row := Caretaker{
		ID:            c.ID,
		ChatChannelID: c.ChatChannelID,
		Phone:         c.Phone,
	}

	return r.db.WithContext(ctx).Save(&row).Error
}

func (r *registryRepository) AddDependent(ctx context.Context, d types.Dependent) error {
	row := Dependent{
		ID:             d.ID,
		CaretakerID:    d.CaretakerID,
		Name:           d.Name,
		Phone:          d.Phone,
		MaxTemperature: d.MaxTemperature,
	}

	return r.db.WithContext(ctx).Save(&row).Error
}

func (r *registryRepository) AddSafezone(ctx context.Context, s types.Safezone) error {
	row := Safezone{
		CaretakerID: s.CaretakerID,
		DependentID: s.DependentID,
		Radius:      s.Radius,
		Latitude:    s.Latitude,
		Longitude:   s.Longitude,
	}

	return r.db.WithContext(ctx).
		Where(&Safezone{CaretakerID: s.CaretakerID, DependentID: s.DependentID}).
		Assign(map[string]any{
			"radius":    s.Radius,
			"latitude":  s.Latitude,
			"longitude": s.Longitude,
		}).
		FirstOrCreate(&row).
		Error
}
