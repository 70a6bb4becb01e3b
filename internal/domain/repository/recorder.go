package repository

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"water_service/internal/domain/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLRecorder stores accepted calculation requests. It works against
// Postgres ("postgres") or SQLite ("sqlite").
type SQLRecorder struct {
	db *sqlx.DB
}

type requestRow struct {
	Region           string  `db:"region"`
	PopulationSize   int64   `db:"population_size"`
	GPCD             float64 `db:"gpcd"`
	PlantFactor      float64 `db:"plant_factor"`
	Precipitation    float64 `db:"precipitation"`
	CultivatedLand   float64 `db:"cultivated_land"`
	DemographicShift float64 `db:"demographic_shift"`
	BaseYear         int     `db:"base_year"`
	Source           string  `db:"source"`
	ReceivedAt       int64   `db:"received_at"`
}

// OpenSQLRecorder connects to the database and makes sure the schema exists.
func OpenSQLRecorder(ctx context.Context, driver, dsn string) (*SQLRecorder, error) {
	schema, err := migrations.ReadFile("migrations/" + driver + ".sql")
	if err != nil {
		return nil, fmt.Errorf("unsupported recorder driver %q", driver)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// One writer at a time avoids SQLITE_BUSY under concurrent requests.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLRecorder{db: db}, nil
}

func (r *SQLRecorder) RecordRequest(ctx context.Context, rec model.RequestRecord) error {
	const query = `
		INSERT INTO calculation_requests (
			region, population_size, gpcd, plant_factor,
			precipitation, cultivated_land, demographic_shift,
			base_year, source, received_at
		) VALUES (
			:region, :population_size, :gpcd, :plant_factor,
			:precipitation, :cultivated_land, :demographic_shift,
			:base_year, :source, :received_at
		)`

	in := rec.Input
	receivedAt := rec.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	_, err := r.db.NamedExecContext(ctx, query, requestRow{
		Region:           in.Region,
		PopulationSize:   in.PopulationSize,
		GPCD:             in.GPCD,
		PlantFactor:      in.PlantFactor,
		Precipitation:    in.Precipitation,
		CultivatedLand:   in.CultivatedLand,
		DemographicShift: in.DemographicShift,
		BaseYear:         in.BaseYear,
		Source:           rec.Source,
		ReceivedAt:       receivedAt.UTC().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to insert request record: %w", err)
	}
	return nil
}

func (r *SQLRecorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
