package types

import "time"

// Pair identifies a (caretaker, dependent) relationship. It is the unit of
// isolation for case and cooldown state.
type Pair struct {
	CaretakerID string `json:"caretakerId"`
	DependentID string `json:"dependentId"`
}

func (p Pair) Key() string {
	return p.CaretakerID + "/" + p.DependentID
}

type Caretaker struct {
	ID            string `json:"id"`
	ChatChannelID string `json:"chatChannelId"`
	Phone         string `json:"phone"`
}

type Dependent struct {
	ID             string  `json:"id"`
	CaretakerID    string  `json:"caretakerId"`
	Name           string  `json:"name"`
	Phone          string  `json:"phone"`
	MaxTemperature float64 `json:"maxTemperature"`
}

// Safezone is the configured geofence for a pair. Radius is in meters,
// consistent with the precomputed distance on Location.
type Safezone struct {
	Pair      `json:"pair"`
	Radius    float64 `json:"radius"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Location struct {
	Pair       `json:"pair"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Distance   float64   `json:"distance"`
	ObservedAt time.Time `json:"observedAt"`
}

type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type CaseStatus string

const (
	CaseStatusCreated  CaseStatus = "created"
	CaseStatusReceived CaseStatus = "received"
	CaseStatusClosed   CaseStatus = "closed"
)

// Case is one escalation record. It is created when a signal escalates,
// received exactly once when somebody accepts it, and closed exactly once
// after it has been received. A closed case is immutable.
type Case struct {
	ID   string `json:"id"`
	Pair `json:"pair"`

	CreatedAt time.Time `json:"createdAt"`

	ReceiverID *string    `json:"receiverId,omitempty"`
	ReceivedAt *time.Time `json:"receivedAt,omitempty"`

	CloserID *string    `json:"closerId,omitempty"`
	ClosedAt *time.Time `json:"closedAt,omitempty"`

	Anchor Point `json:"anchor"`
}

func (c Case) Status() CaseStatus {
	if c.ClosedAt != nil {
		return CaseStatusClosed
	}
	if c.ReceivedAt != nil {
		return CaseStatusReceived
	}
	return CaseStatusCreated
}

func (c Case) IsOpen() bool {
	return c.ClosedAt == nil
}

// Fall status codes as reported by the wearable sensor.
const (
	FallStatusNormal       = 0
	FallStatusUncertain    = 1
	FallStatusConfirmed    = 2
	FallStatusUnresponsive = 3
)

// Temperature status codes derived from the configured threshold.
const (
	TemperatureStatusNormal         = 0
	TemperatureStatusAboveThreshold = 1
)

type FallRecord struct {
	Pair `json:"pair"`

	XAxis float64 `json:"xAxis"`
	YAxis float64 `json:"yAxis"`
	ZAxis float64 `json:"zAxis"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	Status int `json:"status"`

	NotifiedStatus int        `json:"notifiedStatus"`
	NotifiedAt     *time.Time `json:"notifiedAt,omitempty"`
}

type TemperatureRecord struct {
	Pair `json:"pair"`

	Value      float64   `json:"value"`
	Status     int       `json:"status"`
	RecordedAt time.Time `json:"recordedAt"`

	NotifiedStatus int        `json:"notifiedStatus"`
	NotifiedAt     *time.Time `json:"notifiedAt,omitempty"`
}
