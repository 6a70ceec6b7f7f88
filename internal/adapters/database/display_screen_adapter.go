package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/entities"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/repositories"
	"github.com/zatekoja/Receptionqueue/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/Receptionqueue/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/Receptionqueue/backend/pkg/errors"
)

const displayScreensTable = "display_screens"

// uniqueViolation is the Postgres SQLSTATE for duplicate keys
const uniqueViolation = "23505"

var displayScreenColumns = []interface{}{
	"id", "name", "variant", "doctor_id", "location", "created_at", "updated_at",
}

// DisplayScreenAdapter implements DisplayScreenRepository using PostgreSQL
type DisplayScreenAdapter struct {
	client  *postgres.Client
	db      *goqu.Database
	metrics *observability.Metrics
}

// NewDisplayScreenAdapter creates a new display screen adapter. metrics may be nil.
func NewDisplayScreenAdapter(client *postgres.Client, metrics *observability.Metrics) repositories.DisplayScreenRepository {
	return &DisplayScreenAdapter{
		client:  client,
		db:      goqu.New("postgres", client.DB()),
		metrics: metrics,
	}
}

func (a *DisplayScreenAdapter) observe(ctx context.Context, operation string, start time.Time) {
	observability.RecordDBMetric(ctx, a.metrics, operation, time.Since(start))
}

// Create inserts a new screen
func (a *DisplayScreenAdapter) Create(ctx context.Context, screen *entities.DisplayScreen) error {
	defer a.observe(ctx, "display_screens.create", time.Now())

	if screen == nil {
		return apperrors.NewInternalError("screen is nil", fmt.Errorf("screen is nil"))
	}

	record := goqu.Record{
		"id":         screen.ID,
		"name":       screen.Name,
		"variant":    string(screen.Variant),
		"doctor_id":  nullableString(screen.DoctorID),
		"location":   screen.Location,
		"created_at": screen.CreatedAt,
		"updated_at": screen.UpdatedAt,
	}

	query, args, err := a.db.Insert(displayScreensTable).Prepared(true).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return apperrors.NewConflictError(fmt.Sprintf("screen with id %s already exists", screen.ID))
		}
		return apperrors.NewInternalError("failed to create screen", err)
	}

	return nil
}

// GetByID retrieves a screen by ID
func (a *DisplayScreenAdapter) GetByID(ctx context.Context, id string) (*entities.DisplayScreen, error) {
	defer a.observe(ctx, "display_screens.get", time.Now())

	query, args, err := a.db.Select(displayScreenColumns...).
		From(displayScreensTable).
		Prepared(true).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	screen, err := scanDisplayScreen(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("screen with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get screen", err)
	}
	return screen, nil
}

// List retrieves screens ordered by name
func (a *DisplayScreenAdapter) List(ctx context.Context, filter repositories.DisplayScreenFilter) ([]*entities.DisplayScreen, error) {
	defer a.observe(ctx, "display_screens.list", time.Now())

	ds := a.db.Select(displayScreenColumns...).
		From(displayScreensTable).
		Prepared(true).
		Order(goqu.I("name").Asc(), goqu.I("id").Asc())

	where := goqu.Ex{}
	if filter.Variant != "" {
		where["variant"] = string(filter.Variant)
	}
	if filter.DoctorID != "" {
		where["doctor_id"] = filter.DoctorID
	}
	if len(where) > 0 {
		ds = ds.Where(where)
	}
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list screens", err)
	}
	defer rows.Close()

	screens := make([]*entities.DisplayScreen, 0)
	for rows.Next() {
		screen, err := scanDisplayScreen(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan screen", err)
		}
		screens = append(screens, screen)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate screens", err)
	}

	return screens, nil
}

// Delete removes a screen
func (a *DisplayScreenAdapter) Delete(ctx context.Context, id string) error {
	defer a.observe(ctx, "display_screens.delete", time.Now())

	query, args, err := a.db.Delete(displayScreensTable).
		Prepared(true).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete screen", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("screen with id %s not found", id))
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDisplayScreen(row rowScanner) (*entities.DisplayScreen, error) {
	screen := &entities.DisplayScreen{}
	var variant string
	var doctorID sql.NullString

	if err := row.Scan(
		&screen.ID,
		&screen.Name,
		&variant,
		&doctorID,
		&screen.Location,
		&screen.CreatedAt,
		&screen.UpdatedAt,
	); err != nil {
		return nil, err
	}

	screen.Variant = entities.ScreenVariant(variant)
	if doctorID.Valid {
		value := doctorID.String
		screen.DoctorID = &value
	}
	return screen, nil
}

func nullableString(value *string) sql.NullString {
	if value == nil || *value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
