package main

import (
	"context"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/clinicbook/booking-engine/internal/db"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "seed").Logger()
	logger.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	providerIDs, err := seedProviders(context.Background(), pool, logger, 50)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed providers")
	}
	if err := seedPatients(context.Background(), pool, logger, 2000); err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}
	if err := seedSlots(context.Background(), pool, logger, providerIDs, 14); err != nil {
		logger.Fatal().Err(err).Msg("seed slots")
	}

	logger.Info().Msg("seed complete")
}

func seedProviders(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, count int) ([]uuid.UUID, error) {
	logger.Info().Int("count", count).Msg("seeding providers")

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO providers (id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	logger.Info().Msg("providers seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, count int) error {
	logger.Info().Int("count", count).Msg("seeding patients")

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		logger.Info().Int("done", end).Int("total", count).Msg("patients seeded")
	}

	return nil
}

// seedSlots opens a working day of 15 minute windows per provider for the
// next `days` days, weekdays only.
func seedSlots(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, providerIDs []uuid.UUID, days int) error {
	logger.Info().Int("providers", len(providerIDs)).Int("days", days).Msg("seeding slots")

	const slotMinutes = 15

	day := time.Now().Add(24 * time.Hour).Truncate(24 * time.Hour)
	total := 0

	for d := 0; d < days; d++ {
		date := day.AddDate(0, 0, d)
		if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			continue
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for _, providerID := range providerIDs {
			start := time.Date(date.Year(), date.Month(), date.Day(), 9, 0, 0, 0, time.Local)
			dayEnd := time.Date(date.Year(), date.Month(), date.Day(), 17, 0, 0, 0, time.Local)

			for start.Before(dayEnd) {
				end := start.Add(slotMinutes * time.Minute)
				_, err := tx.Exec(ctx, `
					INSERT INTO slots (id, provider_id, start_time, end_time, status, created_at, updated_at)
					VALUES ($1, $2, $3, $4, 'free', now(), now())
				`, uuid.New(), providerID, start, end)
				if err != nil {
					_ = tx.Rollback(ctx)
					return err
				}
				total++
				start = end
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}

	logger.Info().Int("slots", total).Msg("slots seeded")
	return nil
}
