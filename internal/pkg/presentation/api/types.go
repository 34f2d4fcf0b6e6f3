package api

import (
	"fmt"
	"time"

	"github.com/frankss230/AFE-plus-2/pkg/types"
)

type apiResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type sosRequest struct {
	DependentID string `json:"dependentId"`
}

type sosDecision struct {
	Decision          string   `json:"decision"`
	Distance          *float64 `json:"distance"`
	Radius            *float64 `json:"radius"`
	IsOutsideSafezone *bool    `json:"isOutsideSafezone"`
	HasActiveCase     *bool    `json:"hasActiveCase"`
}

type sosResponse struct {
	Message     string      `json:"message"`
	CanEscalate bool        `json:"canEscalate"`
	BlockReason string      `json:"blockReason,omitempty"`
	CaseID      string      `json:"caseId,omitempty"`
	SosDecision sosDecision `json:"sosDecision"`
}

type fallRequest struct {
	DependentID string   `json:"dependentId"`
	CaretakerID string   `json:"caretakerId"`
	XAxis       *float64 `json:"xAxis"`
	YAxis       *float64 `json:"yAxis"`
	ZAxis       *float64 `json:"zAxis"`
	Status      *int     `json:"status"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

func (r fallRequest) validate() error {
	if r.DependentID == "" {
		return fmt.Errorf("missing parameter dependentId")
	}
	if r.CaretakerID == "" {
		return fmt.Errorf("missing parameter caretakerId")
	}
	if r.XAxis == nil || r.YAxis == nil || r.ZAxis == nil {
		return fmt.Errorf("missing axis values")
	}
	if r.Status == nil {
		return fmt.Errorf("missing parameter status")
	}
	if r.Latitude == nil || r.Longitude == nil {
		return fmt.Errorf("missing coordinates")
	}

	return nil
}

type temperatureRequest struct {
	DependentID string   `json:"dependentId"`
	CaretakerID string   `json:"caretakerId"`
	Value       *float64 `json:"value"`
}

func (r temperatureRequest) validate() error {
	if r.DependentID == "" {
		return fmt.Errorf("missing parameter dependentId")
	}
	if r.CaretakerID == "" {
		return fmt.Errorf("missing parameter caretakerId")
	}
	if r.Value == nil {
		return fmt.Errorf("missing parameter value")
	}

	return nil
}

type locationRequest struct {
	DependentID string   `json:"dependentId"`
	CaretakerID string   `json:"caretakerId"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Distance    *float64 `json:"distance"`
}

func (r locationRequest) validate() error {
	if r.DependentID == "" {
		return fmt.Errorf("missing parameter dependentId")
	}
	if r.CaretakerID == "" {
		return fmt.Errorf("missing parameter caretakerId")
	}
	if r.Latitude == nil || r.Longitude == nil {
		return fmt.Errorf("missing coordinates")
	}
	if r.Distance == nil {
		return fmt.Errorf("missing parameter distance")
	}

	return nil
}

type acceptCallRequest struct {
	CaseID      string `json:"caseId"`
	CaretakerID string `json:"caretakerId"`
	ActorID     string `json:"actorId"`
	GroupID     string `json:"groupId"`
	Phone       string `json:"phone"`
}

func (r acceptCallRequest) validate() error {
	if r.CaseID == "" || r.CaretakerID == "" || r.ActorID == "" || r.GroupID == "" || r.Phone == "" {
		return fmt.Errorf("missing parameters")
	}

	return nil
}

type acceptCallResponse struct {
	Message string `json:"message"`
	Tel     string `json:"tel"`
}

type caseResponse struct {
	ID          string     `json:"id"`
	CaretakerID string     `json:"caretakerId"`
	DependentID string     `json:"dependentId"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	ReceiverID  *string    `json:"receiverId,omitempty"`
	ReceivedAt  *time.Time `json:"receivedAt,omitempty"`
	CloserID    *string    `json:"closerId,omitempty"`
	ClosedAt    *time.Time `json:"closedAt,omitempty"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
}

func newCaseResponse(c types.Case) caseResponse {
	return caseResponse{
		ID:          c.ID,
		CaretakerID: c.CaretakerID,
		DependentID: c.DependentID,
		Status:      string(c.Status()),
		CreatedAt:   c.CreatedAt,
		ReceiverID:  c.ReceiverID,
		ReceivedAt:  c.ReceivedAt,
		CloserID:    c.CloserID,
		ClosedAt:    c.ClosedAt,
		Latitude:    c.Anchor.Latitude,
		Longitude:   c.Anchor.Longitude,
	}
}
