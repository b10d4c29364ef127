package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"motel/infras/otel"
	"motel/infras/postgres"
	"motel/internal/domains/room/model"
	"motel/shared/constant"
	gDto "motel/shared/dto"
	"motel/shared/logger"
	gRepo "motel/shared/repository"
	"motel/shared/timezone"
)

// releaseCleanedQuery flips rooms back to available once their most recent
// rental is closed and the exit happened at or before the cutoff. Rooms whose
// latest rental is still active are untouched, and re-running the statement
// is a no-op.
const releaseCleanedQuery = `
UPDATE rooms
SET state = :available, modified_at = :now, modified_by = :by
WHERE state = :cleaning
  AND id IN (
    SELECT latest.room_id
    FROM (
      SELECT DISTINCT ON (room_id) room_id, status, actual_exit
      FROM rentals
      ORDER BY room_id, entry_time DESC
    ) latest
    WHERE latest.status = 'closed'
      AND latest.actual_exit IS NOT NULL
      AND latest.actual_exit <= :cutoff
  )
RETURNING id`

type Room interface {
	Insert(ctx context.Context, model model.Room) error
	Get(ctx context.Context, filter gDto.FilterGroup) (model.Room, error)
	GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, filter gDto.FilterGroup) (model.Room, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup) ([]model.Room, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	UpdateTx(ctx context.Context, tx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) error
	ReleaseCleaned(ctx context.Context, cutoff time.Time) ([]string, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Room]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Room {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Room](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

func (repo *repositoryImpl) ReleaseCleaned(ctx context.Context, cutoff time.Time) ([]string, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".room.ReleaseCleaned")
	defer scope.End()

	scope.SetAttribute(constant.OtelQueryAttributeKey, releaseCleanedQuery)

	rows, err := sqlx.NamedQueryContext(ctx, repo.db.Write, releaseCleanedQuery, map[string]any{
		"available": model.StateAvailable,
		"cleaning":  model.StateCleaning,
		"cutoff":    cutoff,
		"now":       timezone.Now(),
		"by":        "system",
	})
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to release cleaned rooms: %w", err)
	}
	defer rows.Close()

	var released []string

	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			logger.ErrorWithStack(err)
			scope.TraceError(err)

			return nil, fmt.Errorf("failed to scan released room id: %w", err)
		}

		released = append(released, id)
	}

	if err = rows.Err(); err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to iterate released rooms: %w", err)
	}

	return released, nil
}
