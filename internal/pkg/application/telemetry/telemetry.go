package telemetry

import (
	"context"
	"time"

	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/dispatch"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/messaging"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/repositories/database"
)

// TelemetryService ingests the fall and temperature streams. Every reading
// is persisted; the notification cursor for a pair moves only when a
// notification actually fires, so that caretakers are not flooded with
// duplicates of the same condition.
type TelemetryService interface {
	HandleFall(ctx context.Context, reading FallReading) error
	HandleTemperature(ctx context.Context, reading TemperatureReading) error
}

type telemetrySvc struct {
	registry   database.RegistryRepository
	storage    database.TelemetryRepository
	messenger  messaging.MsgContext
	dispatcher dispatch.Dispatcher

	cooldown              time.Duration
	defaultMaxTemperature float64

	now func() time.Time
}

func New(r database.RegistryRepository, s database.TelemetryRepository, m messaging.MsgContext, d dispatch.Dispatcher, cfg *Config) TelemetryService {
	return &telemetrySvc{
		registry:              r,
		storage:               s,
		messenger:             m,
		dispatcher:            d,
		cooldown:              cfg.Cooldown(),
		defaultMaxTemperature: cfg.DefaultMaxTemperature,
		now:                   time.Now,
	}
}
