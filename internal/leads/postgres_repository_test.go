package leads

import (
	"context"
	"errors"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var leadColumns = []string{"id", "source", "name", "email", "phone", "subject", "message", "created_at"}

func TestPostgresRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	createdAt := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO leads").
		WithArgs(pgxmock.AnyArg(), "contact", "Jane", "jane@x.com", "", "Quote", "Need a site").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(createdAt))

	lead, err := repo.Create(context.Background(), &CreateLeadRequest{
		Source:  "contact",
		Name:    "Jane",
		Email:   "jane@x.com",
		Subject: "Quote",
		Message: "Need a site",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, createdAt, lead.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateInsertError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	mock.ExpectQuery("INSERT INTO leads").WillReturnError(errors.New("connection reset"))

	_, err = repo.Create(context.Background(), &CreateLeadRequest{Name: "Jane", Email: "jane@x.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leads: insert failed")
}

func TestPostgresRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	id := "5b0c3c1e-9d4f-4b8a-9a43-0d0b5d7a6e11"
	createdAt := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, source, name").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(leadColumns).
			AddRow(id, "chat", "Jane", "jane@x.com", "1234567890", "AI Chat Inquiry - Jane", "hello there", createdAt))

	lead, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, lead.ID)
	assert.Equal(t, "chat", lead.Source)

	missing := "0b0c3c1e-9d4f-4b8a-9a43-0d0b5d7a6e11"
	mock.ExpectQuery("SELECT id, source, name").WithArgs(missing).WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetByID(context.Background(), missing)
	assert.ErrorIs(t, err, ErrLeadNotFound)

	_, err = repo.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrLeadNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, source, name").
		WithArgs("chat", 50, 0).
		WillReturnRows(pgxmock.NewRows(leadColumns).
			AddRow("id-2", "chat", "B", "b@x.io", "", "s", "m", now).
			AddRow("id-1", "chat", "A", "a@x.io", "", "s", "m", now.Add(-time.Hour)))

	leads, err := repo.List(context.Background(), ListLeadsFilter{Source: "chat", Limit: 500})
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "id-2", leads[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
