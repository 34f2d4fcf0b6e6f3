package database

import (
	"time"

	"github.com/frankss230/AFE-plus-2/pkg/types"
)

type Caretaker struct {
	ID            string `gorm:"primaryKey"`
	ChatChannelID string
	Phone         string
}

type Dependent struct {
	ID             string `gorm:"primaryKey"`
	CaretakerID    string `gorm:"index"`
	Name           string
	Phone          string
	MaxTemperature float64
}

type Safezone struct {
	ID          uint   `gorm:"primaryKey"`
	CaretakerID string `gorm:"uniqueIndex:uq_safezone_pair"`
	DependentID string `gorm:"uniqueIndex:uq_safezone_pair"`
	Radius      float64
	Latitude    float64
	Longitude   float64
}

type Location struct {
	ID          uint   `gorm:"primaryKey"`
	CaretakerID string `gorm:"index:idx_location_pair"`
	DependentID string `gorm:"index:idx_location_pair"`
	Latitude    float64
	Longitude   float64
	Distance    float64
	ObservedAt  time.Time
}

// HelpCase rows carry a partial unique index over the pair columns so that
// the store itself rejects a second open case for the same pair, whatever
// the callers do.
type HelpCase struct {
	ID          string `gorm:"primaryKey"`
	CaretakerID string `gorm:"uniqueIndex:uq_open_help_case,where:closed_at IS NULL"`
	DependentID string `gorm:"uniqueIndex:uq_open_help_case,where:closed_at IS NULL"`

	CreatedAt time.Time

	ReceiverID *string
	ReceivedAt *time.Time

	CloserID *string
	ClosedAt *time.Time

	AnchorLatitude  float64
	AnchorLongitude float64
}

type FallRecord struct {
	ID          uint   `gorm:"primaryKey"`
	CaretakerID string `gorm:"index:idx_fall_pair"`
	DependentID string `gorm:"index:idx_fall_pair"`

	XAxis float64
	YAxis float64
	ZAxis float64

	Latitude  float64
	Longitude float64

	Status int

	NotifiedStatus int
	NotifiedAt     *time.Time
}

type TemperatureRecord struct {
	ID          uint   `gorm:"primaryKey"`
	CaretakerID string `gorm:"uniqueIndex:uq_temperature_pair"`
	DependentID string `gorm:"uniqueIndex:uq_temperature_pair"`

	Value      float64
	Status     int
	RecordedAt time.Time

	NotifiedStatus int
	NotifiedAt     *time.Time
}

func (c Caretaker) toType() types.Caretaker {
	return types.Caretaker{
		ID:            c.ID,
		ChatChannelID: c.ChatChannelID,
		Phone:         c.Phone,
	}
}

func (d Dependent) toType() types.Dependent {
	return types.Dependent{
		ID:             d.ID,
		CaretakerID:    d.CaretakerID,
		Name:           d.Name,
		Phone:          d.Phone,
		MaxTemperature: d.MaxTemperature,
	}
}

func (s Safezone) toType() types.Safezone {
	return types.Safezone{
		Pair:      types.Pair{CaretakerID: s.CaretakerID, DependentID: s.DependentID},
		Radius:    s.Radius,
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
	}
}

func (l Location) toType() types.Location {
	return types.Location{
		Pair:       types.Pair{CaretakerID: l.CaretakerID, DependentID: l.DependentID},
		Latitude:   l.Latitude,
		Longitude:  l.Longitude,
		Distance:   l.Distance,
		ObservedAt: l.ObservedAt,
	}
}

func (h HelpCase) toType() types.Case {
	return types.Case{
		ID:         h.ID,
		Pair:       types.Pair{CaretakerID: h.CaretakerID, DependentID: h.DependentID},
		CreatedAt:  h.CreatedAt,
		ReceiverID: h.ReceiverID,
		ReceivedAt: h.ReceivedAt,
		CloserID:   h.CloserID,
		ClosedAt:   h.ClosedAt,
		Anchor: types.Point{
			Latitude:  h.AnchorLatitude,
			Longitude: h.AnchorLongitude,
		},
	}
}

func newHelpCase(c types.Case) HelpCase {
	return HelpCase{
		ID:              c.ID,
		CaretakerID:     c.CaretakerID,
		DependentID:     c.DependentID,
		CreatedAt:       c.CreatedAt,
		ReceiverID:      c.ReceiverID,
		ReceivedAt:      c.ReceivedAt,
		CloserID:        c.CloserID,
		ClosedAt:        c.ClosedAt,
		AnchorLatitude:  c.Anchor.Latitude,
		AnchorLongitude: c.Anchor.Longitude,
	}
}

func (f FallRecord) toType() types.FallRecord {
	return types.FallRecord{
		Pair:           types.Pair{CaretakerID: f.CaretakerID, DependentID: f.DependentID},
		XAxis:          f.XAxis,
		YAxis:          f.YAxis,
		ZAxis:          f.ZAxis,
		Latitude:       f.Latitude,
		Longitude:      f.Longitude,
		Status:         f.Status,
		NotifiedStatus: f.NotifiedStatus,
		NotifiedAt:     f.NotifiedAt,
	}
}

func (t TemperatureRecord) toType() types.TemperatureRecord {
	return types.TemperatureRecord{
		Pair:           types.Pair{CaretakerID: t.CaretakerID, DependentID: t.DependentID},
		Value:          t.Value,
		Status:         t.Status,
		RecordedAt:     t.RecordedAt,
		NotifiedStatus: t.NotifiedStatus,
		NotifiedAt:     t.NotifiedAt,
	}
}
