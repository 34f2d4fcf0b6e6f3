package telemetry

import (
	"context"
	"errors"

	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/dispatch"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/logging"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/repositories/database"
	"github.com/frankss230/AFE-plus-2/pkg/types"
)

type FallReading struct {
	Pair types.Pair

	XAxis float64
	YAxis float64
	ZAxis float64

	Status int

	Latitude  float64
	Longitude float64
}

func isCriticalFall(status int) bool {
	return status == types.FallStatusConfirmed || status == types.FallStatusUnresponsive
}

// HandleFall persists a fall telemetry submission and fires an alert when
// the debounce policy says so. The status classification comes from the
// sensor itself. When an alert fires, the current geolocation is dispatched
// together with it.
func (svc *telemetrySvc) HandleFall(ctx context.Context, reading FallReading) error {
	log := logging.GetLoggerFromContext(ctx)

	dependent, err := svc.registry.GetDependent(ctx, reading.Pair.DependentID)
	if err != nil {
		return err
	}

	caretaker, err := svc.registry.GetCaretaker(ctx, reading.Pair.CaretakerID)
	if err != nil {
		return err
	}

	var cursor *Cursor

	last, err := svc.storage.GetFallCursor(ctx, reading.Pair)
	if err == nil && last.NotifiedAt != nil {
		cursor = &Cursor{Status: last.Status, NotifiedAt: *last.NotifiedAt}
	} else if err != nil && !errors.Is(err, database.ErrNoCursor) {
		return err
	}

	now := svc.now().UTC()
	fired := ShouldNotify(reading.Status, isCriticalFall(reading.Status), cursor, now, svc.cooldown)

	record := types.FallRecord{
		Pair:      reading.Pair,
		XAxis:     reading.XAxis,
		YAxis:     reading.YAxis,
		ZAxis:     reading.ZAxis,
		Latitude:  reading.Latitude,
		Longitude: reading.Longitude,
		Status:    reading.Status,
	}

	if fired {
		record.NotifiedStatus = 1
		record.NotifiedAt = &now
	}

	err = svc.storage.AddFall(ctx, record)
	if err != nil {
		return err
	}

	if !fired {
		return nil
	}

	err = svc.messenger.PublishOnTopic(ctx, &AlertFired{
		Stream:    "fall",
		Pair:      reading.Pair,
		Status:    reading.Status,
		Timestamp: now,
	})
	if err != nil {
		log.Warn().Err(err).Str("dependent_id", dependent.ID).Msg("failed to publish alertFired")
	}

	payload := dispatch.Payload{
		DependentID:   dependent.ID,
		DependentName: dependent.Name,
		CaretakerID:   caretaker.ID,
		Phone:         dependent.Phone,
		Latitude:      reading.Latitude,
		Longitude:     reading.Longitude,
	}

	if reading.Status == types.FallStatusUnresponsive {
		payload.Reason = "no response from dependent after fall"
	} else {
		payload.Reason = "dependent confirmed a fall and asked for help"
	}

	err = svc.dispatcher.Dispatch(ctx, dispatch.KindFallAlert, caretaker.ChatChannelID, payload)
	if err != nil {
		log.Warn().Err(err).Str("dependent_id", dependent.ID).Msg("failed to dispatch fall alert")
	}

	err = svc.dispatcher.Dispatch(ctx, dispatch.KindLocation, caretaker.ChatChannelID, dispatch.Payload{
		DependentID:   dependent.ID,
		DependentName: dependent.Name,
		Latitude:      reading.Latitude,
		Longitude:     reading.Longitude,
	})
	if err != nil {
		log.Warn().Err(err).Str("dependent_id", dependent.ID).Msg("failed to dispatch fall location")
	}

	return nil
}
