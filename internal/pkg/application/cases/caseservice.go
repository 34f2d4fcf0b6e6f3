package cases

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/dispatch"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/logging"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/messaging"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/repositories/database"
	"github.com/frankss230/AFE-plus-2/pkg/types"

	"github.com/google/uuid"
)

// CaseService owns the help case state machine: created -> received ->
// closed, never skipping received. It is the sole writer of case state
// transitions.
type CaseService interface {
	Create(ctx context.Context, pair types.Pair, anchor types.Point) (types.Case, error)
	Accept(ctx context.Context, caseID, actorID, channelRef string) (types.Case, error)
	Close(ctx context.Context, caseID, actorID, channelRef string) (types.Case, error)

	Get(ctx context.Context, onlyOpen bool) ([]types.Case, error)
	GetByID(ctx context.Context, caseID string) (types.Case, error)
}

type caseSvc struct {
	storage    database.CaseRepository
	registry   database.RegistryRepository
	messenger  messaging.MsgContext
	dispatcher dispatch.Dispatcher

	locks pairLocks
}

func New(s database.CaseRepository, r database.RegistryRepository, m messaging.MsgContext, d dispatch.Dispatcher) CaseService {
	return &caseSvc{
		storage:    s,
		registry:   r,
		messenger:  m,
		dispatcher: d,
	}
}

// Create opens a new case for the pair, anchored at the given position. The
// read-then-create sequence is serialized per pair so that two racing
// signals cannot both observe "no open case". The store's partial unique
// index backs this up across processes.
func (svc *caseSvc) Create(ctx context.Context, pair types.Pair, anchor types.Point) (types.Case, error) {
	log := logging.GetLoggerFromContext(ctx)

	unlock := svc.locks.lock(pair.Key())
	defer unlock()

	_, err := svc.storage.GetOpen(ctx, pair)
	if err == nil {
		return types.Case{}, database.ErrCaseAlreadyOpen
	}
	if !errors.Is(err, database.ErrCaseNotFound) {
		return types.Case{}, err
	}

	c := types.Case{
		ID:        uuid.NewString(),
		Pair:      pair,
		CreatedAt: time.Now().UTC(),
		Anchor:    anchor,
	}

	err = svc.storage.Add(ctx, c)
	if err != nil {
		return types.Case{}, err
	}

	err = svc.messenger.PublishOnTopic(ctx, &CaseCreated{Case: c, Timestamp: c.CreatedAt})
	if err != nil {
		log.Warn().Err(err).Str("case_id", c.ID).Msg("failed to publish caseCreated")
	}

	return c, nil
}

// Accept marks the case as received. The first acceptor wins; later calls
// get ErrAlreadyReceived and the channel is told that somebody else already
// took the case.
func (svc *caseSvc) Accept(ctx context.Context, caseID, actorID, channelRef string) (types.Case, error) {
	log := logging.GetLoggerFromContext(ctx)

	c, err := svc.storage.Receive(ctx, caseID, actorID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, database.ErrAlreadyReceived) && channelRef != "" {
			dispatchErr := svc.dispatcher.Dispatch(ctx, dispatch.KindInformational, channelRef, dispatch.Payload{
				CaseID:  caseID,
				ActorID: actorID,
				Reason:  "case has already been accepted by someone else",
			})
			if dispatchErr != nil {
				log.Warn().Err(dispatchErr).Str("case_id", caseID).Msg("failed to dispatch accept conflict notice")
			}
		}
		return types.Case{}, err
	}

	err = svc.messenger.PublishOnTopic(ctx, &CaseAccepted{ID: c.ID, ActorID: actorID, Timestamp: *c.ReceivedAt})
	if err != nil {
		log.Warn().Err(err).Str("case_id", c.ID).Msg("failed to publish caseAccepted")
	}

	svc.notifyAccepted(ctx, c, actorID, channelRef)

	return c, nil
}

// Close ends a received case. Closing an unaccepted case is rejected with
// ErrNotYetReceived, a second close with ErrAlreadyClosed.
func (svc *caseSvc) Close(ctx context.Context, caseID, actorID, channelRef string) (types.Case, error) {
	log := logging.GetLoggerFromContext(ctx)

	c, err := svc.storage.Close(ctx, caseID, actorID, time.Now().UTC())
	if err != nil {
		reason := ""
		if errors.Is(err, database.ErrAlreadyClosed) {
			reason = "case has already been closed"
		} else if errors.Is(err, database.ErrNotYetReceived) {
			reason = "case cannot be closed before it has been accepted"
		}

		if reason != "" && channelRef != "" {
			dispatchErr := svc.dispatcher.Dispatch(ctx, dispatch.KindInformational, channelRef, dispatch.Payload{
				CaseID:  caseID,
				ActorID: actorID,
				Reason:  reason,
			})
			if dispatchErr != nil {
				log.Warn().Err(dispatchErr).Str("case_id", caseID).Msg("failed to dispatch close conflict notice")
			}
		}
		return types.Case{}, err
	}

	err = svc.messenger.PublishOnTopic(ctx, &CaseClosed{ID: c.ID, ActorID: actorID, Timestamp: *c.ClosedAt})
	if err != nil {
		log.Warn().Err(err).Str("case_id", c.ID).Msg("failed to publish caseClosed")
	}

	svc.notifyClosed(ctx, c, actorID, channelRef)

	return c, nil
}

func (svc *caseSvc) Get(ctx context.Context, onlyOpen bool) ([]types.Case, error) {
	return svc.storage.GetAll(ctx, onlyOpen)
}

func (svc *caseSvc) GetByID(ctx context.Context, caseID string) (types.Case, error) {
	return svc.storage.GetByID(ctx, caseID)
}

// notifyAccepted tells the channel that help is on its way and arms the
// close action. Dispatch happens after the state transition has been
// committed; failures are logged and never unwind the transition.
func (svc *caseSvc) notifyAccepted(ctx context.Context, c types.Case, actorID, channelRef string) {
	log := logging.GetLoggerFromContext(ctx)

	closeAction, _ := json.Marshal(types.Action{
		Kind:        types.ActionKindClose,
		CaseID:      c.ID,
		CaretakerID: c.CaretakerID,
		DependentID: c.DependentID,
	})

	payload := dispatch.Payload{
		CaseID:      c.ID,
		CaretakerID: c.CaretakerID,
		DependentID: c.DependentID,
		ActorID:     actorID,
		Actions: []dispatch.ActionRef{
			{Label: "close", Data: string(closeAction)},
		},
	}

	if channelRef != "" {
		if err := svc.dispatcher.Dispatch(ctx, dispatch.KindCaseAccepted, channelRef, payload); err != nil {
			log.Warn().Err(err).Str("case_id", c.ID).Msg("failed to dispatch accept acknowledgement")
		}
	}

	caretaker, err := svc.registry.GetCaretaker(ctx, c.CaretakerID)
	if err != nil {
		log.Warn().Err(err).Str("case_id", c.ID).Msg("could not resolve requester for accept notification")
		return
	}

	if err := svc.dispatcher.Dispatch(ctx, dispatch.KindCaseAccepted, caretaker.ChatChannelID, payload); err != nil {
		log.Warn().Err(err).Str("case_id", c.ID).Msg("failed to notify requester about accepted case")
	}
}

func (svc *caseSvc) notifyClosed(ctx context.Context, c types.Case, actorID, channelRef string) {
	log := logging.GetLoggerFromContext(ctx)

	payload := dispatch.Payload{
		CaseID:      c.ID,
		CaretakerID: c.CaretakerID,
		DependentID: c.DependentID,
		ActorID:     actorID,
	}

	if channelRef != "" {
		if err := svc.dispatcher.Dispatch(ctx, dispatch.KindCaseClosed, channelRef, payload); err != nil {
			log.Warn().Err(err).Str("case_id", c.ID).Msg("failed to dispatch close acknowledgement")
		}
	}

	caretaker, err := svc.registry.GetCaretaker(ctx, c.CaretakerID)
	if err != nil {
		log.Warn().Err(err).Str("case_id", c.ID).Msg("could not resolve requester for close notification")
		return
	}

	if err := svc.dispatcher.Dispatch(ctx, dispatch.KindCaseClosed, caretaker.ChatChannelID, payload); err != nil {
		log.Warn().Err(err).Str("case_id", c.ID).Msg("failed to notify requester about closed case")
	}
}

// pairLocks serializes case creation per pair. The zero value is ready to
// use.
type pairLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (p *pairLocks) lock(key string) func() {
	p.mu.Lock()
	if p.m == nil {
		p.m = map[string]*sync.Mutex{}
	}
	l, ok := p.m[key]
	if !ok {
		l = &sync.Mutex{}
		p.m[key] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l.Unlock
}
