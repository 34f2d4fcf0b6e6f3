package database

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/logging"
	"github.com/frankss230/AFE-plus-2/pkg/types"
)

// SeedRegistry loads caretakers, dependents and safezones from a semicolon
// separated file. One row per pair:
//
//	caretakerId;chatChannelId;caretakerPhone;dependentId;dependentName;dependentPhone;maxTemperature;radius;latitude;longitude
func SeedRegistry(ctx context.Context, repo RegistryRepository, pairsFile io.Reader) error {
	log := logging.GetLoggerFromContext(ctx)

	r := csv.NewReader(pairsFile)
	r.Comma = ';'

	rows, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read csv data from pairs file: %w", err)
	}

	seen := map[string]bool{}
	count := 0

	for idx, row := range rows {
		if idx == 0 {
			// Skip the CSV header
			continue
		}

		if len(row) < 10 {
			return fmt.Errorf("too few columns on line %d in pairs file", idx+1)
		}

		pair := types.Pair{CaretakerID: row[0], DependentID: row[3]}
		if seen[pair.Key()] {
			return fmt.Errorf("duplicate pair %s found on line %d in pairs file", pair.Key(), idx+1)
		}
		seen[pair.Key()] = true

		maxTemperature, err := strconv.ParseFloat(row[6], 64)
		if err != nil {
			return fmt.Errorf("failed to parse max temperature for dependent %s: %w", pair.DependentID, err)
		}

		radius, err := strconv.ParseFloat(row[7], 64)
		if err != nil {
			return fmt.Errorf("failed to parse safezone radius for pair %s: %w", pair.Key(), err)
		}

		lat, err := strconv.ParseFloat(row[8], 64)
		if err != nil {
			return fmt.Errorf("failed to parse latitude for pair %s: %w", pair.Key(), err)
		}

		lon, err := strconv.ParseFloat(row[9], 64)
		if err != nil {
			return fmt.Errorf("failed to parse longitude for pair %s: %w", pair.Key(), err)
		}

		err = repo.AddCaretaker(ctx, types.Caretaker{
			ID:            pair.CaretakerID,
			ChatChannelID: row[1],
			Phone:         row[2],
		})
		if err != nil {
			return err
		}

		err = repo.AddDependent(ctx, types.Dependent{
			ID:             pair.DependentID,
			CaretakerID:    pair.CaretakerID,
			Name:           row[4],
			Phone:          row[5],
			MaxTemperature: maxTemperature,
		})
		if err != nil {
			return err
		}

		err = repo.AddSafezone(ctx, types.Safezone{
			Pair:      pair,
			Radius:    radius,
			Latitude:  lat,
			Longitude: lon,
		})
		if err != nil {
			return err
		}

		count++
	}

	log.Info().Msgf("seeded %d pairs from configuration file", count)

	return nil
}
