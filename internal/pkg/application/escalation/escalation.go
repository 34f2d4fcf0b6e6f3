package escalation

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/frankss230/AFE-plus-2/internal/pkg/application/cases"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/dispatch"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/logging"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/repositories/database"
	"github.com/frankss230/AFE-plus-2/pkg/types"
)

const (
	blockReasonInsideSafezone = "dependent is inside the safezone"
	blockReasonActiveCase     = "an earlier case is still being handled"
)

// SOSResult is the full outcome of evaluating one SOS signal, including the
// inputs the decision was based on. Distance, Radius and HasOpenCase stay
// nil when the respective data could not be resolved.
type SOSResult struct {
	Decision    Decision
	Distance    *float64
	Radius      *float64
	HasOpenCase *bool
	CanEscalate bool
	BlockReason string
	Case        *types.Case
}

type EscalationService interface {
	HandleSOS(ctx context.Context, dependentID string) (SOSResult, error)
}

type escalationSvc struct {
	registry   database.RegistryRepository
	cases      cases.CaseService
	caseStore  database.CaseRepository
	dispatcher dispatch.Dispatcher
}

func New(r database.RegistryRepository, c cases.CaseService, cs database.CaseRepository, d dispatch.Dispatcher) EscalationService {
	return &escalationSvc{
		registry:   r,
		cases:      c,
		caseStore:  cs,
		dispatcher: d,
	}
}

// HandleSOS evaluates an SOS signal against the pair's safezone and case
// state. Escalation creates a new case anchored at the safezone anchor and
// alerts the caretaker channel with an armed accept action. The open-case
// read here is advisory only; the case service serializes the decisive
// check-then-create per pair, so a racing signal is downgraded to
// DecisionOutsideActiveCase rather than creating a duplicate.
func (svc *escalationSvc) HandleSOS(ctx context.Context, dependentID string) (SOSResult, error) {
	log := logging.GetLoggerFromContext(ctx)

	dependent, err := svc.registry.GetDependent(ctx, dependentID)
	if err != nil {
		return SOSResult{}, err
	}

	caretaker, err := svc.registry.GetCaretaker(ctx, dependent.CaretakerID)
	if err != nil {
		return SOSResult{}, err
	}

	pair := types.Pair{CaretakerID: caretaker.ID, DependentID: dependent.ID}

	result := SOSResult{}

	safezone, err := svc.registry.GetSafezone(ctx, pair)
	if err == nil {
		r := safezone.Radius
		result.Radius = &r
	} else if !errors.Is(err, database.ErrSafezoneNotFound) {
		return SOSResult{}, err
	}

	hasLocation := false
	location, err := svc.registry.GetLatestLocation(ctx, pair)
	if err == nil {
		hasLocation = true
		d := location.Distance
		result.Distance = &d
	} else if !errors.Is(err, database.ErrLocationNotFound) {
		return SOSResult{}, err
	}

	hasOpenCase := false
	_, err = svc.caseStore.GetOpen(ctx, pair)
	if err == nil {
		hasOpenCase = true
	} else if !errors.Is(err, database.ErrCaseNotFound) {
		return SOSResult{}, err
	}
	result.HasOpenCase = &hasOpenCase

	result.Decision = Evaluate(result.Distance, result.Radius, hasOpenCase)

	switch result.Decision {
	case DecisionIndeterminate:
		result.HasOpenCase = nil
		return result, nil

	case DecisionInsideSafezone:
		result.BlockReason = blockReasonInsideSafezone
		svc.notifyBlocked(ctx, caretaker, dependent, "help requested from inside the safezone")
		return result, nil

	case DecisionOutsideActiveCase:
		result.BlockReason = blockReasonActiveCase
		svc.notifyBlocked(ctx, caretaker, dependent, "help requested again, the earlier case is still being handled")
		return result, nil
	}

	anchor := types.Point{Latitude: safezone.Latitude, Longitude: safezone.Longitude}

	c, err := svc.cases.Create(ctx, pair, anchor)
	if err != nil {
		if errors.Is(err, database.ErrCaseAlreadyOpen) {
			// Lost the race against a near-simultaneous signal.
			hasOpenCase = true
			result.Decision = DecisionOutsideActiveCase
			result.BlockReason = blockReasonActiveCase
			svc.notifyBlocked(ctx, caretaker, dependent, "help requested again, the earlier case is still being handled")
			return result, nil
		}
		return SOSResult{}, err
	}

	result.CanEscalate = true
	result.Case = &c

	acceptAction, _ := json.Marshal(types.Action{
		Kind:        types.ActionKindAccept,
		CaseID:      c.ID,
		CaretakerID: pair.CaretakerID,
		DependentID: pair.DependentID,
	})

	payload := dispatch.Payload{
		CaseID:        c.ID,
		CaretakerID:   caretaker.ID,
		DependentID:   dependent.ID,
		DependentName: dependent.Name,
		Phone:         dependent.Phone,
		Latitude:      c.Anchor.Latitude,
		Longitude:     c.Anchor.Longitude,
		Actions: []dispatch.ActionRef{
			{Label: "accept", Data: string(acceptAction)},
		},
	}
	if result.Distance != nil {
		payload.Distance = *result.Distance
	}
	if hasLocation {
		payload.Latitude = location.Latitude
		payload.Longitude = location.Longitude
	}

	err = svc.dispatcher.Dispatch(ctx, dispatch.KindSOSAlert, caretaker.ChatChannelID, payload)
	if err != nil {
		log.Warn().Err(err).Str("case_id", c.ID).Msg("failed to dispatch escalation alert")
	}

	return result, nil
}

// notifyBlocked sends the informational alert that accompanies a blocked
// SOS. Best effort, the decision stands whether or not delivery works.
func (svc *escalationSvc) notifyBlocked(ctx context.Context, caretaker types.Caretaker, dependent types.Dependent, reason string) {
	log := logging.GetLoggerFromContext(ctx)

	err := svc.dispatcher.Dispatch(ctx, dispatch.KindInformational, caretaker.ChatChannelID, dispatch.Payload{
		DependentID:   dependent.ID,
		DependentName: dependent.Name,
		CaretakerID:   caretaker.ID,
		Reason:        reason,
	})
	if err != nil {
		log.Warn().Err(err).Str("dependent_id", dependent.ID).Msg("failed to dispatch informational notice")
	}
}
