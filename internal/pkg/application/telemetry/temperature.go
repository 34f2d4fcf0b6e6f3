package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/dispatch"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/logging"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/repositories/database"
	"github.com/frankss230/AFE-plus-2/pkg/types"
)

type TemperatureReading struct {
	Pair  types.Pair
	Value float64
}

// HandleTemperature classifies a body temperature reading against the
// dependent's configured threshold and fires an alert under the shared
// debounce rule. A reading back in the normal range clears the cursor
// immediately, so the next exceedance alerts without waiting out the
// cooldown.
func (svc *telemetrySvc) HandleTemperature(ctx context.Context, reading TemperatureReading) error {
	log := logging.GetLoggerFromContext(ctx)

	dependent, err := svc.registry.GetDependent(ctx, reading.Pair.DependentID)
	if err != nil {
		return err
	}

	caretaker, err := svc.registry.GetCaretaker(ctx, reading.Pair.CaretakerID)
	if err != nil {
		return err
	}

	threshold := dependent.MaxTemperature
	if threshold <= 0 {
		threshold = svc.defaultMaxTemperature
	}

	status := types.TemperatureStatusNormal
	if reading.Value > threshold {
		status = types.TemperatureStatusAboveThreshold
	}

	var cursor *Cursor

	prev, err := svc.storage.GetTemperature(ctx, reading.Pair)
	if err == nil && prev.NotifiedStatus == 1 && prev.NotifiedAt != nil {
		cursor = &Cursor{Status: types.TemperatureStatusAboveThreshold, NotifiedAt: *prev.NotifiedAt}
	} else if err != nil && !errors.Is(err, database.ErrNoCursor) {
		return err
	}

	now := svc.now().UTC()
	fired := ShouldNotify(status, status == types.TemperatureStatusAboveThreshold, cursor, now, svc.cooldown)

	record := types.TemperatureRecord{
		Pair:       reading.Pair,
		Value:      reading.Value,
		Status:     status,
		RecordedAt: now,
	}

	switch {
	case fired:
		record.NotifiedStatus = 1
		record.NotifiedAt = &now
	case status == types.TemperatureStatusNormal:
		// Back in range disarms the cursor right away, no cooldown applies
		// to clearing.
		record.NotifiedStatus = 0
		record.NotifiedAt = nil
	default:
		record.NotifiedStatus = prev.NotifiedStatus
		record.NotifiedAt = prev.NotifiedAt
	}

	err = svc.storage.SaveTemperature(ctx, record)
	if err != nil {
		return err
	}

	if !fired {
		return nil
	}

	err = svc.messenger.PublishOnTopic(ctx, &AlertFired{
		Stream:    "temperature",
		Pair:      reading.Pair,
		Status:    status,
		Value:     reading.Value,
		Timestamp: now,
	})
	if err != nil {
		log.Warn().Err(err).Str("dependent_id", dependent.ID).Msg("failed to publish alertFired")
	}

	err = svc.dispatcher.Dispatch(ctx, dispatch.KindTemperatureAlert, caretaker.ChatChannelID, dispatch.Payload{
		DependentID:   dependent.ID,
		DependentName: dependent.Name,
		CaretakerID:   caretaker.ID,
		Value:         reading.Value,
		Reason:        fmt.Sprintf("body temperature %.1f is above the configured threshold %.1f", reading.Value, threshold),
	})
	if err != nil {
		log.Warn().Err(err).Str("dependent_id", dependent.ID).Msg("failed to dispatch temperature alert")
	}

	return nil
}
