package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"medication-tracker/internal/models"
)

//go:embed schema.sql
var ddl embed.FS

var ErrNotFound = errors.New("not found")

type DB struct{ *sql.DB }

func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	// the scanner and the handlers write concurrently; sqlite wants one writer
	db.SetMaxOpenConns(1)
	if err = migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &DB{db}, nil
}

func migrate(db *sql.DB) error {
	b, err := ddl.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(string(b))
	return err
}

// ClearData removes the user and everything stored for them.
func (d *DB) ClearData(ctx context.Context, userID string) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM medications WHERE user_id = ?`,
		`DELETE FROM user_states WHERE user_id = ?`,
		`DELETE FROM users WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, userID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ---------- users -----------------------------------------------------------

const userColumns = `id, chat_id, tz, notifications_enabled, auto_log, sound, created_at`

func (d *DB) UpsertUser(ctx context.Context, u *models.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	var chatID sql.NullInt64
	if u.ChatID != 0 {
		chatID = sql.NullInt64{Int64: u.ChatID, Valid: true}
	}
	_, err := d.ExecContext(ctx, `
        INSERT INTO users (`+userColumns+`)
        VALUES (?,?,?,?,?,?,?)
        ON CONFLICT(id) DO UPDATE SET chat_id=excluded.chat_id,
            tz=excluded.tz,
            notifications_enabled=excluded.notifications_enabled,
            auto_log=excluded.auto_log,
            sound=excluded.sound
    `, u.ID, chatID, u.TZ, boolInt(u.NotificationsEnabled), boolInt(u.AutoLog), boolInt(u.Sound), u.CreatedAt.Unix())
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u       models.User
		chatID  sql.NullInt64
		created int64
	)
	if err := row.Scan(&u.ID, &chatID, &u.TZ, &u.NotificationsEnabled, &u.AutoLog, &u.Sound, &created); err != nil {
		return nil, err
	}
	u.ChatID = chatID.Int64
	u.CreatedAt = time.Unix(created, 0).UTC()
	return &u, nil
}

func (d *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(d.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

func (d *DB) GetUserByChat(ctx context.Context, chatID int64) (*models.User, error) {
	u, err := scanUser(d.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE chat_id=?`, chatID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

func (d *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := d.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *u)
	}
	return res, rows.Err()
}

// ---------- user state (bot input) ------------------------------------------

func (d *DB) SetUserState(ctx context.Context, userID, state string) error {
	if state == "" {
		_, err := d.ExecContext(ctx, `DELETE FROM user_states WHERE user_id=?`, userID)
		return err
	}
	_, err := d.ExecContext(ctx, `
        INSERT INTO user_states(user_id, state) VALUES (?,?)
        ON CONFLICT(user_id) DO UPDATE SET state=excluded.state`, userID, state)
	return err
}

func (d *DB) GetUserState(ctx context.Context, userID string) (string, error) {
	var st string
	err := d.QueryRowContext(ctx, `SELECT state FROM user_states WHERE user_id=?`, userID).Scan(&st)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return st, err
}

// ---------- medications -----------------------------------------------------

const medColumns = `id, name, total_tablets, doses_per_day, tablets_per_dose, start_date, reminders, doses_taken`

// GetMedications returns the user's medications in the order they were saved.
func (d *DB) GetMedications(ctx context.Context, userID string) ([]models.Medication, error) {
	rows, err := d.QueryContext(ctx, `
        SELECT `+medColumns+` FROM medications
        WHERE user_id=? ORDER BY position, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []models.Medication{}
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func (d *DB) GetMedication(ctx context.Context, userID, medID string) (models.Medication, error) {
	m, err := scanMedication(d.QueryRowContext(ctx, `
        SELECT `+medColumns+` FROM medications WHERE user_id=? AND id=?`, userID, medID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Medication{}, ErrNotFound
	}
	return m, err
}

// SaveMedications replaces the user's whole list.
func (d *DB) SaveMedications(ctx context.Context, userID string, meds []models.Medication) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM medications WHERE user_id=?`, userID); err != nil {
		return err
	}
	for i, m := range meds {
		args, err := medArgs(m)
		if err != nil {
			return fmt.Errorf("medication %s: %w", m.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO medications (user_id, position, `+medColumns+`)
            VALUES (?,?,?,?,?,?,?,?,?,?)`,
			append([]any{userID, i}, args...)...); err != nil {
			return fmt.Errorf("medication %s: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

// AddMedication appends m to the end of the user's list.
func (d *DB) AddMedication(ctx context.Context, userID string, m models.Medication) error {
	args, err := medArgs(m)
	if err != nil {
		return err
	}
	_, err = d.ExecContext(ctx, `
        INSERT INTO medications (user_id, position, `+medColumns+`)
        VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM medications WHERE user_id=?), ?,?,?,?,?,?,?,?)`,
		append([]any{userID, userID}, args...)...)
	return err
}

// UpdateMedication overwrites a single medication; last write wins.
func (d *DB) UpdateMedication(ctx context.Context, userID string, m models.Medication) error {
	args, err := medArgs(m)
	if err != nil {
		return err
	}
	res, err := d.ExecContext(ctx, `
        UPDATE medications SET name=?, total_tablets=?, doses_per_day=?, tablets_per_dose=?,
            start_date=?, reminders=?, doses_taken=?
        WHERE user_id=? AND id=?`,
		append(args[1:], userID, m.ID)...)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (d *DB) DeleteMedication(ctx context.Context, userID, medID string) error {
	res, err := d.ExecContext(ctx, `DELETE FROM medications WHERE user_id=? AND id=?`, userID, medID)
	if err != nil {
		return err
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

// medArgs encodes m in medColumns order.
func medArgs(m models.Medication) ([]any, error) {
	reminders := m.Reminders
	if reminders == nil {
		reminders = []string{}
	}
	rem, err := json.Marshal(reminders)
	if err != nil {
		return nil, err
	}
	taken := m.DosesTaken
	if taken == nil {
		taken = map[string]int{}
	}
	tk, err := json.Marshal(taken)
	if err != nil {
		return nil, err
	}
	var perDose sql.NullInt64
	if m.TabletsPerDose > 0 {
		perDose = sql.NullInt64{Int64: int64(m.TabletsPerDose), Valid: true}
	}
	return []any{
		m.ID, m.Name, m.TotalTablets, m.DosesPerDay, perDose,
		m.StartDate.UTC().Format(time.RFC3339Nano), string(rem), string(tk),
	}, nil
}

func scanMedication(row rowScanner) (models.Medication, error) {
	var (
		m         models.Medication
		perDose   sql.NullInt64
		start     string
		reminders string
		taken     string
	)
	if err := row.Scan(&m.ID, &m.Name, &m.TotalTablets, &m.DosesPerDay, &perDose, &start, &reminders, &taken); err != nil {
		return m, err
	}
	m.TabletsPerDose = int(perDose.Int64)

	t, err := time.Parse(time.RFC3339Nano, start)
	if err != nil {
		return m, fmt.Errorf("medication %s start_date: %w", m.ID, err)
	}
	m.StartDate = t
	if err := json.Unmarshal([]byte(reminders), &m.Reminders); err != nil {
		return m, fmt.Errorf("medication %s reminders: %w", m.ID, err)
	}
	if err := json.Unmarshal([]byte(taken), &m.DosesTaken); err != nil {
		return m, fmt.Errorf("medication %s doses_taken: %w", m.ID, err)
	}
	if m.DosesTaken == nil {
		m.DosesTaken = map[string]int{}
	}
	return m, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
