package numbers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"assistant-console/internal/storage"
	"assistant-console/pkg/utils"
)

type PostgresRepo struct {
	sb sq.StatementBuilderType
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{sb: storage.Builder().RunWith(db)}
}

var numberColumns = []string{
	"id", "assistant_id", "e164", "country", "COALESCE(twilio_sid, '')", "provider",
	"monthly_cost", "status", "purchased_at", "created_at",
}

func scanNumber(row sq.RowScanner) (PhoneNumber, error) {
	var n PhoneNumber
	err := row.Scan(
		&n.ID,
		&n.AssistantID,
		&n.E164,
		&n.Country,
		&n.TwilioSID,
		&n.Provider,
		&n.MonthlyCost,
		&n.Status,
		&n.PurchasedAt,
		&n.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return PhoneNumber{}, ErrNotFound
	}
	return n, err
}

func (r *PostgresRepo) FindByNumber(ctx context.Context, e164, assistantID string) (PhoneNumber, bool, error) {
	n, err := scanNumber(r.sb.Select(numberColumns...).
		From("phone_numbers").
		Where(sq.Eq{"e164": e164, "assistant_id": assistantID}).
		Limit(1).
		QueryRowContext(ctx))
	if errors.Is(err, ErrNotFound) {
		return PhoneNumber{}, false, nil
	}
	if err != nil {
		return PhoneNumber{}, false, fmt.Errorf("find phone number: %w", err)
	}
	return n, true, nil
}

func (r *PostgresRepo) Insert(ctx context.Context, n PhoneNumber) error {
	_, err := r.sb.Insert("phone_numbers").
		Columns("id", "assistant_id", "e164", "country", "twilio_sid", "provider", "monthly_cost", "status", "purchased_at", "created_at").
		Values(n.ID, n.AssistantID, n.E164, n.Country, n.TwilioSID, n.Provider, n.MonthlyCost, n.Status, n.PurchasedAt, n.CreatedAt).
		ExecContext(ctx)
	switch {
	case utils.IsUniqueViolation(err):
		return fmt.Errorf("insert phone number: %w", ErrDuplicate)
	case utils.IsForeignKeyViolation(err):
		return fmt.Errorf("insert phone number: %w", ErrOrphan)
	case err != nil:
		return fmt.Errorf("insert phone number: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Reactivate(ctx context.Context, id, sid string, monthlyCost float64, now time.Time) (PhoneNumber, error) {
	n, err := scanNumber(r.sb.Update("phone_numbers").
		Set("twilio_sid", sid).
		Set("monthly_cost", monthlyCost).
		Set("status", StatusActive).
		Set("purchased_at", now).
		Where(sq.Eq{"id": id, "status": StatusReleased}).
		Suffix("RETURNING " + strings.Join(numberColumns, ", ")).
		QueryRowContext(ctx))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return PhoneNumber{}, fmt.Errorf("reactivate phone number: %w", err)
	}
	return n, err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (PhoneNumber, error) {
	n, err := scanNumber(r.sb.Select(numberColumns...).
		From("phone_numbers").
		Where(sq.Eq{"id": id}).
		QueryRowContext(ctx))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return PhoneNumber{}, fmt.Errorf("get phone number: %w", err)
	}
	return n, err
}

func (r *PostgresRepo) ListByAssistant(ctx context.Context, assistantID string, status Status) ([]PhoneNumber, error) {
	q := r.sb.Select(numberColumns...).
		From("phone_numbers").
		Where(sq.Eq{"assistant_id": assistantID}).
		OrderBy("purchased_at ASC")
	if status != "" {
		q = q.Where(sq.Eq{"status": status})
	}

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list phone numbers: %w", err)
	}
	defer rows.Close()

	var out []PhoneNumber
	for rows.Next() {
		n, err := scanNumber(rows)
		if err != nil {
			return nil, fmt.Errorf("scan phone number: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list phone numbers: %w", err)
	}
	return out, nil
}

func (r *PostgresRepo) MarkReleased(ctx context.Context, id string) error {
	res, err := r.sb.Update("phone_numbers").
		Set("status", StatusReleased).
		Where(sq.Eq{"id": id}).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("release phone number: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) ActiveAssistantFor(ctx context.Context, e164 string) (string, bool, error) {
	var assistantID string
	err := r.sb.Select("assistant_id").
		From("phone_numbers").
		Where(sq.Eq{"e164": e164, "status": StatusActive}).
		OrderBy("purchased_at ASC").
		Limit(1).
		QueryRowContext(ctx).
		Scan(&assistantID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup number owner: %w", err)
	}
	return assistantID, true, nil
}
