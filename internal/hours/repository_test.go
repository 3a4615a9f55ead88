package hours

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gymdb "gymflow/internal/db"
)

var (
	weeklyCols  = []string{"id", "gym_id", "day_of_week", "open_time", "close_time", "is_closed"}
	specialCols = []string{"id", "gym_id", "date", "open_time", "close_time", "is_closed", "description", "created_at"}
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestRepository_GetWeekly(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT id, gym_id, day_of_week, open_time, close_time, is_closed FROM gym_hours WHERE gym_id = \$1 ORDER BY day_of_week`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(weeklyCols).
			AddRow(1, 1, 0, "09:00:00", "21:00:00", false).
			AddRow(7, 1, 6, nil, nil, true))

	rows, err := repo.GetWeekly(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "09:00", rows[0].OpenTime.String())
	assert.Nil(t, rows[1].OpenTime)
	assert.True(t, rows[1].IsClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetWeekday_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM gym_hours WHERE gym_id = \$1 AND day_of_week = \$2`).
		WithArgs(1, 3).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetWeekday(context.Background(), 1, 3)
	assert.True(t, gymdb.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_InsertDefaults(t *testing.T) {
	repo, mock := newMockRepo(t)

	mon := DefaultHours(1, 0)
	sun := DefaultHours(1, 6)
	mock.ExpectExec(`INSERT INTO gym_hours .* ON CONFLICT \(gym_id, day_of_week\) DO NOTHING`).
		WithArgs(1, 0, "09:00:00", "21:00:00", false).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO gym_hours`).
		WithArgs(1, 6, nil, nil, true).
		WillReturnResult(sqlmock.NewResult(2, 1))

	require.NoError(t, repo.InsertDefaults(context.Background(), []GymHours{mon, sun}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpsertWeekday(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO gym_hours .* ON CONFLICT \(gym_id, day_of_week\) DO UPDATE`).
		WithArgs(1, 2, "06:00:00", "23:00:00", false).
		WillReturnRows(sqlmock.NewRows(weeklyCols).AddRow(3, 1, 2, "06:00:00", "23:00:00", false))

	h, err := NewGymHours(1, 2, NewClock(6, 0), NewClock(23, 0), false)
	require.NoError(t, err)

	out, err := repo.UpsertWeekday(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, 3, out.ID)
	assert.Equal(t, "23:00", out.CloseTime.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetSpecialByDate(t *testing.T) {
	repo, mock := newMockRepo(t)
	date := time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM gym_special_hours WHERE gym_id = \$1 AND date = \$2`).
		WithArgs(1, "2025-12-24").
		WillReturnRows(sqlmock.NewRows(specialCols).
			AddRow(4, 1, date, "10:00:00", "14:00:00", false, "Christmas Eve", time.Now()))

	sp, err := repo.GetSpecialByDate(context.Background(), 1, date)
	require.NoError(t, err)
	assert.Equal(t, "2025-12-24", sp.Date.String())
	assert.Equal(t, "Christmas Eve", sp.Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListSpecial(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM gym_special_hours WHERE gym_id = \$1 AND date BETWEEN \$2 AND \$3`).
		WithArgs(1, "2025-12-01", "2025-12-31").
		WillReturnRows(sqlmock.NewRows(specialCols).
			AddRow(4, 1, time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC), nil, nil, true, "Christmas", time.Now()))

	rows, err := repo.ListSpecial(context.Background(), 1, start, end)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateSpecial_Duplicate(t *testing.T) {
	repo, mock := newMockRepo(t)

	sp, err := NewSpecialHours(1, time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC), nil, nil, true, "Christmas")
	require.NoError(t, err)

	mock.ExpectQuery(`INSERT INTO gym_special_hours`).
		WithArgs(1, "2025-12-25", nil, nil, true, "Christmas").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err = repo.CreateSpecial(context.Background(), sp)
	assert.True(t, gymdb.IsUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteSpecial(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`DELETE FROM gym_special_hours WHERE gym_id = \$1 AND id = \$2`).
		WithArgs(1, 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM gym_special_hours`).
		WithArgs(2, 4).
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.DeleteSpecial(context.Background(), 1, 4)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.DeleteSpecial(context.Background(), 2, 4)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
