package dispatch

import (
	"context"
	"fmt"
)

// The gateway delivers human-facing alerts over an external chat channel.
// The core decides whether, when and to whom something is sent; the channel
// renders the actual message from the structured payload.

type Kind string

const (
	KindSOSAlert         Kind = "sos-alert"
	KindInformational    Kind = "informational"
	KindFallAlert        Kind = "fall-alert"
	KindTemperatureAlert Kind = "temperature-alert"
	KindLocation         Kind = "location"
	KindCaseAccepted     Kind = "case-accepted"
	KindCaseClosed       Kind = "case-closed"
)

// ErrTransient marks delivery failures that the channel may recover from.
// ErrPermanent marks rejected requests. The core retries neither; a failed
// dispatch after a committed state change degrades to a logged warning.
var ErrTransient = fmt.Errorf("transient dispatch failure")
var ErrPermanent = fmt.Errorf("permanent dispatch failure")

// ActionRef arms a postback button on the delivered message. Data is the
// typed action descriptor the actions endpoint parses back.
type ActionRef struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

type Payload struct {
	Reason        string  `json:"reason,omitempty"`
	DependentID   string  `json:"dependentId,omitempty"`
	DependentName string  `json:"dependentName,omitempty"`
	CaretakerID   string  `json:"caretakerId,omitempty"`
	Phone         string  `json:"phone,omitempty"`
	CaseID        string  `json:"caseId,omitempty"`
	ActorID       string  `json:"actorId,omitempty"`
	Latitude      float64 `json:"latitude,omitempty"`
	Longitude     float64 `json:"longitude,omitempty"`
	Distance      float64 `json:"distance,omitempty"`
	Value         float64 `json:"value,omitempty"`

	Actions []ActionRef `json:"actions,omitempty"`
}

//go:generate moq -rm -out dispatcher_mock.go . Dispatcher
type Dispatcher interface {
	Dispatch(ctx context.Context, kind Kind, recipientRef string, payload Payload) error
}
