package numbers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var numberCols = []string{"id", "assistant_id", "e164", "country", "twilio_sid", "provider", "monthly_cost", "status", "purchased_at", "created_at"}

func TestPostgresRepo_FindByNumber(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, assistant_id, e164, .* FROM phone_numbers WHERE assistant_id = \$1 AND e164 = \$2 LIMIT 1`).
		WithArgs(testAssistant, testPhone).
		WillReturnRows(sqlmock.NewRows(numberCols).
			AddRow("n1", testAssistant, testPhone, "US", "PN1", "twilio", 1.0, "active", at, at))
	mock.ExpectQuery(`FROM phone_numbers`).
		WithArgs(testAssistant, "+10000000000").
		WillReturnRows(sqlmock.NewRows(numberCols))

	repo := NewPostgresRepo(db)
	n, found, err := repo.FindByNumber(context.Background(), testPhone, testAssistant)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "PN1", n.TwilioSID)
	assert.Equal(t, StatusActive, n.Status)

	_, found, err = repo.FindByNumber(context.Background(), "+10000000000", testAssistant)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_InsertMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO phone_numbers`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "phone_numbers_e164_assistant_key"})

	err = NewPostgresRepo(db).Insert(context.Background(), PhoneNumber{ID: "n1", AssistantID: testAssistant, E164: testPhone})
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_InsertForDeletedAssistant(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO phone_numbers`).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "phone_numbers_assistant_id_fkey"})

	err = NewPostgresRepo(db).Insert(context.Background(), PhoneNumber{ID: "n1", AssistantID: testAssistant, E164: testPhone})
	assert.ErrorIs(t, err, ErrOrphan)
	assert.False(t, errors.Is(err, ErrDuplicate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_MarkReleasedMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE phone_numbers SET status = \$1 WHERE id = \$2`).
		WithArgs(StatusReleased, "nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewPostgresRepo(db).MarkReleased(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_ActiveAssistantFor(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT assistant_id FROM phone_numbers WHERE e164 = \$1 AND status = \$2 ORDER BY purchased_at ASC LIMIT 1`).
		WithArgs(testPhone, StatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"assistant_id"}).AddRow(testAssistant))

	id, found, err := NewPostgresRepo(db).ActiveAssistantFor(context.Background(), testPhone)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, testAssistant, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}
