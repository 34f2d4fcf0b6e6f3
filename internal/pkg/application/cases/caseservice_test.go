package cases

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/dispatch"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/messaging"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/repositories/database"
	"github.com/frankss230/AFE-plus-2/pkg/types"

	"github.com/matryer/is"
)

func TestCreateOpensACase(t *testing.T) {
	is, ctx, svc, _ := testSetup(t)

	c, err := svc.Create(ctx, testPair(), testAnchor())
	is.NoErr(err)
	is.Equal(c.Status(), types.CaseStatusCreated)
	is.True(c.IsOpen())
}

func TestCreateRejectsASecondOpenCase(t *testing.T) {
	is, ctx, svc, _ := testSetup(t)

	_, err := svc.Create(ctx, testPair(), testAnchor())
	is.NoErr(err)

	_, err = svc.Create(ctx, testPair(), testAnchor())
	is.True(errors.Is(err, database.ErrCaseAlreadyOpen))
}

func TestConcurrentCreatesYieldExactlyOneOpenCase(t *testing.T) {
	is, ctx, svc, _ := testSetup(t)

	const attempts = 16

	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(ctx, testPair(), testAnchor())
		}(i)
	}

	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
		} else {
			is.True(errors.Is(err, database.ErrCaseAlreadyOpen))
		}
	}
	is.Equal(created, 1)

	open, err := svc.Get(ctx, true)
	is.NoErr(err)
	is.Equal(len(open), 1)
}

func TestAcceptIsRejectedForTheSecondActor(t *testing.T) {
	is, ctx, svc, dispatcher := testSetup(t)

	c, err := svc.Create(ctx, testPair(), testAnchor())
	is.NoErr(err)

	accepted, err := svc.Accept(ctx, c.ID, "actor-1", "group-1")
	is.NoErr(err)
	is.Equal(*accepted.ReceiverID, "actor-1")

	_, err = svc.Accept(ctx, c.ID, "actor-2", "group-1")
	is.True(errors.Is(err, database.ErrAlreadyReceived))

	unchanged, err := svc.GetByID(ctx, c.ID)
	is.NoErr(err)
	is.Equal(*unchanged.ReceiverID, "actor-1")

	// the losing actor gets told that somebody already took the case
	calls := dispatcher.DispatchCalls()
	last := calls[len(calls)-1]
	is.Equal(last.Kind, dispatch.KindInformational)
	is.Equal(last.RecipientRef, "group-1")
}

func TestAcceptArmsTheCloseAction(t *testing.T) {
	is, ctx, svc, dispatcher := testSetup(t)

	c, err := svc.Create(ctx, testPair(), testAnchor())
	is.NoErr(err)

	_, err = svc.Accept(ctx, c.ID, "actor-1", "group-1")
	is.NoErr(err)

	var ack *dispatch.Payload
	for _, call := range dispatcher.DispatchCalls() {
		if call.Kind == dispatch.KindCaseAccepted && call.RecipientRef == "group-1" {
			p := call.Payload
			ack = &p
		}
	}

	is.True(ack != nil)
	is.Equal(len(ack.Actions), 1)
	is.Equal(ack.Actions[0].Label, "close")
}

func TestCloseBeforeAcceptFails(t *testing.T) {
	is, ctx, svc, _ := testSetup(t)

	c, err := svc.Create(ctx, testPair(), testAnchor())
	is.NoErr(err)

	_, err = svc.Close(ctx, c.ID, "actor-1", "group-1")
	is.True(errors.Is(err, database.ErrNotYetReceived))
}

func TestCloseSucceedsExactlyOnce(t *testing.T) {
	is, ctx, svc, _ := testSetup(t)

	c, err := svc.Create(ctx, testPair(), testAnchor())
	is.NoErr(err)

	_, err = svc.Accept(ctx, c.ID, "actor-1", "group-1")
	is.NoErr(err)

	closed, err := svc.Close(ctx, c.ID, "actor-1", "group-1")
	is.NoErr(err)
	is.Equal(closed.Status(), types.CaseStatusClosed)

	_, err = svc.Close(ctx, c.ID, "actor-1", "group-1")
	is.True(errors.Is(err, database.ErrAlreadyClosed))
}

func TestDispatchFailureDoesNotUnwindTransitions(t *testing.T) {
	is, ctx, svc, dispatcher := testSetup(t)

	dispatcher.DispatchFunc = func(ctx context.Context, kind dispatch.Kind, recipientRef string, payload dispatch.Payload) error {
		return dispatch.ErrTransient
	}

	c, err := svc.Create(ctx, testPair(), testAnchor())
	is.NoErr(err)

	_, err = svc.Accept(ctx, c.ID, "actor-1", "group-1")
	is.NoErr(err)

	closed, err := svc.Close(ctx, c.ID, "actor-1", "group-1")
	is.NoErr(err)
	is.Equal(closed.Status(), types.CaseStatusClosed)

	// every transition was committed even though no message got through
	persisted, err := svc.GetByID(ctx, c.ID)
	is.NoErr(err)
	is.Equal(persisted.Status(), types.CaseStatusClosed)
	is.True(len(dispatcher.DispatchCalls()) > 0)
}

func TestAcceptUnknownCase(t *testing.T) {
	is, ctx, svc, _ := testSetup(t)

	_, err := svc.Accept(ctx, "no-such-case", "actor-1", "group-1")
	is.True(errors.Is(err, database.ErrCaseNotFound))
}

func testPair() types.Pair {
	return types.Pair{CaretakerID: "caretaker-1", DependentID: "dependent-1"}
}

func testAnchor() types.Point {
	return types.Point{Latitude: 13.75, Longitude: 100.5}
}

func testSetup(t *testing.T) (*is.I, context.Context, CaseService, *dispatch.DispatcherMock) {
	is := is.New(t)
	ctx := context.Background()

	conn := database.NewSQLiteConnector(ctx)

	caseRepo, err := database.NewCaseRepository(conn)
	is.NoErr(err)

	registryRepo, err := database.NewRegistryRepository(conn)
	is.NoErr(err)

	err = registryRepo.AddCaretaker(ctx, types.Caretaker{ID: "caretaker-1", ChatChannelID: "chat-1", Phone: "0810000001"})
	is.NoErr(err)

	dispatcher := &dispatch.DispatcherMock{
		DispatchFunc: func(ctx context.Context, kind dispatch.Kind, recipientRef string, payload dispatch.Payload) error {
			return nil
		},
	}

	svc := New(caseRepo, registryRepo, messaging.NewNoOpMessenger(), dispatcher)

	return is, ctx, svc, dispatcher
}
