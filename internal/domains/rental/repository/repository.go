package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"motel/infras/otel"
	"motel/infras/postgres"
	"motel/internal/domains/rental/model"
	"motel/shared/constant"
	gDto "motel/shared/dto"
	"motel/shared/logger"
	gRepo "motel/shared/repository"
)

const listActiveQuery = `
SELECT r.id, r.room_id, r.client_name, r.entry_time, r.reserved_hours,
       r.estimated_exit, r.hourly_rate, r.initial_payment, r.overtime_hours,
       r.overtime_payment, r.final_payment, r.actual_exit, r.status,
       r.created_at, r.modified_at, r.created_by, r.modified_by,
       rooms.number AS room_number, rooms.type AS room_type
FROM rentals r
JOIN rooms ON rooms.id = r.room_id
WHERE r.status = 'active'
ORDER BY r.entry_time ASC`

const summaryByDateQuery = `
SELECT COUNT(*)                         AS client_count,
       COALESCE(SUM(initial_payment), 0) AS initial_revenue,
       COALESCE(SUM(reserved_hours), 0)  AS hours_sold
FROM rentals
WHERE entry_time >= :from AND entry_time < :to`

const stampAccessExitQuery = `
UPDATE access_records
SET exit_time = :exit, modified_at = :exit, modified_by = :by
WHERE rental_id = :rental_id AND exit_time IS NULL`

type Rental interface {
	InsertTx(ctx context.Context, tx *sqlx.Tx, model model.Rental) error
	Get(ctx context.Context, filter gDto.FilterGroup) (model.Rental, error)
	GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, filter gDto.FilterGroup) (model.Rental, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup) ([]model.Rental, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	UpdateTx(ctx context.Context, tx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) error
	InsertAccessTx(ctx context.Context, tx *sqlx.Tx, record model.AccessRecord) error
	StampAccessExitTx(ctx context.Context, tx *sqlx.Tx, rentalID, user string, exit time.Time) error
	ListAccess(ctx context.Context, rentalID string) ([]model.AccessRecord, error)
	ListActive(ctx context.Context) ([]model.ActiveRentalRow, error)
	SummaryByRange(ctx context.Context, from, to time.Time) (model.DailySummaryRow, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Rental]
	access gRepo.Repository[model.AccessRecord]
	db     *postgres.Connection
	otel   otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Rental {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Rental](model.EntityName, model.TableName, model.FieldID, db, otel),
		access:     gRepo.NewRepository[model.AccessRecord](model.AccessEntityName, model.AccessTableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

func (repo *repositoryImpl) InsertAccessTx(ctx context.Context, tx *sqlx.Tx, record model.AccessRecord) error {
	return repo.access.InsertTx(ctx, tx, record) //nolint:wrapcheck
}

func (repo *repositoryImpl) ListAccess(ctx context.Context, rentalID string) ([]model.AccessRecord, error) {
	return repo.access.GetAll(ctx, //nolint:wrapcheck
		gDto.QueryParams{SortBy: model.FieldEntryTime, SortDir: gDto.SortDirAsc},
		gDto.FilterGroup{
			Filters: []any{
				gDto.Filter{
					Field:    model.AccessFieldRentalID,
					Operator: gDto.FilterOperatorEq,
					Value:    rentalID,
					Table:    model.AccessTableName,
				},
			},
		})
}

// StampAccessExitTx closes every still-open access record of the rental with
// the actual exit time.
func (repo *repositoryImpl) StampAccessExitTx(ctx context.Context, tx *sqlx.Tx, rentalID, user string, exit time.Time) error {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".access_record.StampExit")
	defer scope.End()

	scope.SetAttribute(constant.OtelQueryAttributeKey, stampAccessExitQuery)

	_, err := tx.NamedExecContext(ctx, stampAccessExitQuery, map[string]any{
		"exit":      exit,
		"by":        user,
		"rental_id": rentalID,
	})
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to stamp access record exit: %w", err)
	}

	return nil
}

func (repo *repositoryImpl) ListActive(ctx context.Context) ([]model.ActiveRentalRow, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".rental.ListActive")
	defer scope.End()

	scope.SetAttribute(constant.OtelQueryAttributeKey, listActiveQuery)

	var rows []model.ActiveRentalRow

	if err := repo.db.Read.SelectContext(ctx, &rows, listActiveQuery); err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to list active rentals: %w", err)
	}

	return rows, nil
}

func (repo *repositoryImpl) SummaryByRange(ctx context.Context, from, to time.Time) (model.DailySummaryRow, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".rental.SummaryByRange")
	defer scope.End()

	scope.SetAttribute(constant.OtelQueryAttributeKey, summaryByDateQuery)

	var row model.DailySummaryRow

	prepare, err := repo.db.Read.PrepareNamedContext(ctx, summaryByDateQuery)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return row, fmt.Errorf("failed to prepare summary statement: %w", err)
	}
	defer prepare.Close()

	err = prepare.GetContext(ctx, &row, map[string]any{
		"from": from,
		"to":   to,
	})
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return row, fmt.Errorf("failed to get rental summary: %w", err)
	}

	return row, nil
}
