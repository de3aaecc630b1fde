package assistants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"assistant-console/internal/storage"
)

type PostgresRepo struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db, sb: storage.Builder().RunWith(db)}
}

var assistantColumns = []string{
	"id", "user_id", "name",
	"COALESCE(voice_id, '')", "COALESCE(start_message, '')", "COALESCE(prompt, '')",
	"tools_config",
	"COALESCE(twilio_account_sid, '')", "COALESCE(twilio_auth_token, '')",
	"created_at", "updated_at",
}

func scanAssistant(row sq.RowScanner) (Assistant, error) {
	var a Assistant
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.Name,
		&a.VoiceID,
		&a.StartMessage,
		&a.Prompt,
		&a.Tools,
		&a.TwilioAccountSID,
		&a.TwilioAuthToken,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Assistant{}, ErrNotFound
	}
	return a, err
}

func (r *PostgresRepo) Create(ctx context.Context, a Assistant) error {
	_, err := r.sb.Insert("assistants").
		Columns("id", "user_id", "name", "voice_id", "start_message", "prompt", "tools_config", "created_at", "updated_at").
		Values(a.ID, a.UserID, a.Name, a.VoiceID, a.StartMessage, a.Prompt, a.Tools, a.CreatedAt, a.UpdatedAt).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert assistant: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Assistant, error) {
	row := r.sb.Select(assistantColumns...).
		From("assistants").
		Where(sq.Eq{"id": id}).
		QueryRowContext(ctx)
	a, err := scanAssistant(row)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Assistant{}, fmt.Errorf("get assistant: %w", err)
	}
	return a, err
}

func (r *PostgresRepo) List(ctx context.Context, userID, search string) ([]ListItem, error) {
	// One active number per assistant; the oldest wins when several exist.
	q := r.sb.Select(
		"a.id", "a.name", "COALESCE(a.voice_id, '')", "COALESCE(a.start_message, '')",
		"COALESCE(p.e164, '')", "a.created_at", "a.updated_at",
	).
		From("assistants a").
		LeftJoin(`LATERAL (
  SELECT e164 FROM phone_numbers
  WHERE assistant_id = a.id AND status = 'active'
  ORDER BY purchased_at ASC
  LIMIT 1
) p ON true`).
		OrderBy("a.created_at DESC")
	// An empty userID is the unscoped super_admin listing.
	if userID != "" {
		q = q.Where(sq.Eq{"a.user_id": userID})
	}
	if s := strings.TrimSpace(search); s != "" {
		q = q.Where(sq.ILike{"a.name": "%" + escapeLike(s) + "%"})
	}

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assistants: %w", err)
	}
	defer rows.Close()

	var out []ListItem
	for rows.Next() {
		var it ListItem
		var e164 string
		if err := rows.Scan(&it.ID, &it.Name, &it.VoiceID, &it.StartMessage, &e164, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan assistant: %w", err)
		}
		it.PhoneNumber, it.Status = phoneLabel(e164)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list assistants: %w", err)
	}
	return out, nil
}

func (r *PostgresRepo) Update(ctx context.Context, id string, in UpdateInput, now time.Time) (Assistant, error) {
	q := r.sb.Update("assistants").Set("updated_at", now).Where(sq.Eq{"id": id})
	if in.Name != nil {
		q = q.Set("name", *in.Name)
	}
	if in.VoiceID != nil {
		q = q.Set("voice_id", *in.VoiceID)
	}
	if in.StartMessage != nil {
		q = q.Set("start_message", *in.StartMessage)
	}
	if in.Prompt != nil {
		q = q.Set("prompt", *in.Prompt)
	}
	q = q.Suffix("RETURNING " + strings.Join(assistantColumns, ", "))

	a, err := scanAssistant(q.QueryRowContext(ctx))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Assistant{}, fmt.Errorf("update assistant: %w", err)
	}
	return a, err
}

func (r *PostgresRepo) UpdateTools(ctx context.Context, id string, tools ToolsConfig, now time.Time) error {
	res, err := r.sb.Update("assistants").
		Set("tools_config", tools).
		Set("updated_at", now).
		Where(sq.Eq{"id": id}).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("update tools config: %w", err)
	}
	return expectOne(res)
}

func (r *PostgresRepo) SetSubaccount(ctx context.Context, id, sid, sealedToken string, now time.Time) error {
	res, err := r.sb.Update("assistants").
		Set("twilio_account_sid", sid).
		Set("twilio_auth_token", sealedToken).
		Set("updated_at", now).
		Where(sq.Eq{"id": id}).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("store subaccount: %w", err)
	}
	return expectOne(res)
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	res, err := r.sb.Delete("assistants").Where(sq.Eq{"id": id}).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("delete assistant: %w", err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func phoneLabel(e164 string) (string, string) {
	if e164 == "" {
		return NoNumberLabel, ListStatusInactive
	}
	return e164, ListStatusActive
}
