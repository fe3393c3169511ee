package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"lunara/internal/database"
)

// BackupVersion is written into every export
const BackupVersion = "2"

// ErrDatabaseNotEmpty is returned when importing into a database that already has users
var ErrDatabaseNotEmpty = errors.New("target database is not empty")

type columnKind int

const (
	colInt columnKind = iota
	colNullInt
	colText
	colNullText
	colBool
	colTime
	colNullTime
)

type column struct {
	name string
	kind columnKind
}

type backupTable struct {
	name    string
	orderBy string
	serial  bool
	columns []column
}

func (t backupTable) columnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

// backupTables lists the exported tables in foreign key order. Sessions are
// left out; everyone signs in again after a restore.
var backupTables = []backupTable{
	{name: "users", orderBy: "id", serial: true, columns: []column{
		{"id", colInt}, {"email", colText}, {"password_hash", colText}, {"name", colText},
		{"oauth_provider", colNullText}, {"oauth_subject", colNullText},
		{"created_at", colTime}, {"updated_at", colTime},
	}},
	{name: "families", orderBy: "id", serial: true, columns: []column{
		{"id", colInt}, {"name", colText}, {"family_code", colText},
		{"created_at", colTime}, {"updated_at", colTime},
	}},
	{name: "family_members", orderBy: "id", serial: true, columns: []column{
		{"id", colInt}, {"family_id", colInt}, {"user_id", colInt}, {"role", colText}, {"joined_at", colTime},
	}},
	{name: "invitations", orderBy: "id", serial: true, columns: []column{
		{"id", colInt}, {"code", colText}, {"family_id", colInt}, {"email", colText},
		{"invited_by", colInt}, {"created_at", colTime}, {"used_at", colNullTime},
		{"used_by", colNullInt}, {"expires_at", colTime},
	}},
	{name: "kids", orderBy: "id", serial: true, columns: []column{
		{"id", colInt}, {"family_id", colInt}, {"name", colText}, {"username", colText},
		{"pin_hash", colText}, {"avatar_color", colText}, {"created_at", colTime}, {"updated_at", colTime},
	}},
	{name: "student_progress", orderBy: "kid_id", columns: []column{
		{"kid_id", colInt}, {"total_moons", colInt}, {"current_streak", colInt}, {"best_streak", colInt},
		{"last_completed_date", colText}, {"school_days", colText}, {"updated_at", colTime},
	}},
	{name: "moon_transactions", orderBy: "id", serial: true, columns: []column{
		{"id", colInt}, {"kid_id", colInt}, {"delta", colInt}, {"kind", colText}, {"reference", colText},
		{"idempotency_key", colNullText}, {"note", colText}, {"created_at", colTime},
	}},
	{name: "progress_awards", orderBy: "id", serial: true, columns: []column{
		{"id", colInt}, {"kid_id", colInt}, {"award_date", colText}, {"item_id", colText},
		{"moons", colInt}, {"source", colText}, {"note", colText}, {"awarded_at", colTime},
	}},
	{name: "kid_rewards", orderBy: "id", serial: true, columns: []column{
		{"id", colInt}, {"kid_id", colInt}, {"name", colText}, {"description", colText},
		{"emoji", colText}, {"category", colText}, {"moon_cost", colInt}, {"is_active", colBool},
		{"created_at", colTime}, {"updated_at", colTime},
	}},
	{name: "reward_redemptions", orderBy: "id", serial: true, columns: []column{
		{"id", colInt}, {"kid_id", colInt}, {"reward_id", colInt}, {"cost", colInt}, {"status", colText},
		{"idempotency_key", colNullText}, {"redeemed_at", colTime}, {"resolved_at", colNullTime},
	}},
	{name: "shop_purchases", orderBy: "id", serial: true, columns: []column{
		{"id", colInt}, {"kid_id", colInt}, {"item_id", colText}, {"item_name", colText}, {"cost", colInt},
		{"status", colText}, {"idempotency_key", colNullText}, {"purchased_at", colTime}, {"fulfilled_at", colNullTime},
		{"ownership_key", colNullText},
	}},
	{name: "journal_entries", orderBy: "id", serial: true, columns: []column{
		{"id", colInt}, {"kid_id", colInt}, {"entry_date", colText}, {"prompt", colText},
		{"response", colText}, {"skipped", colBool}, {"created_at", colTime}, {"updated_at", colTime},
	}},
	{name: "activity_completions", orderBy: "id", serial: true, columns: []column{
		{"id", colInt}, {"kid_id", colInt}, {"completed_on", colText}, {"item_id", colText},
		{"subject", colText}, {"minutes", colInt}, {"created_at", colTime},
	}},
}

// BackupRow is one exported row keyed by column name
type BackupRow map[string]json.RawMessage

// BackupData is the complete, dialect independent backup document
type BackupData struct {
	Version      string                 `json:"version"`
	ExportedAt   time.Time              `json:"exported_at"`
	DatabaseType string                 `json:"database_type"`
	Tables       map[string][]BackupRow `json:"tables"`
}

// Counts returns the number of rows per table
func (b *BackupData) Counts() map[string]int {
	counts := make(map[string]int, len(b.Tables))
	for name, rows := range b.Tables {
		counts[name] = len(rows)
	}
	return counts
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export writes a complete backup of the database to a file
func (s *BackupService) Export(ctx context.Context, outputPath string) (*BackupData, error) {
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	backup, err := s.ExportToWriter(ctx, file)
	if err != nil {
		return nil, err
	}
	slog.Info("database exported", "path", outputPath, "counts", backup.Counts())
	return backup, nil
}

// ExportToWriter encodes a complete backup to w
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) (*BackupData, error) {
	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.Name(),
		Tables:       make(map[string][]BackupRow, len(backupTables)),
	}

	for _, t := range backupTables {
		rows, err := s.exportTable(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("failed to export %s: %w", t.name, err)
		}
		backup.Tables[t.name] = rows
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return backup, nil
}

func (s *BackupService) exportTable(ctx context.Context, t backupTable) ([]BackupRow, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", strings.Join(t.columnNames(), ", "), t.name, t.orderBy)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []BackupRow{}
	for rows.Next() {
		dest := make([]any, len(t.columns))
		for i, c := range t.columns {
			dest[i] = scanTarget(c.kind)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		row := make(BackupRow, len(t.columns))
		for i, c := range t.columns {
			raw, err := json.Marshal(exportValue(dest[i]))
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", c.name, err)
			}
			row[c.name] = raw
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func scanTarget(kind columnKind) any {
	switch kind {
	case colInt:
		return new(int64)
	case colNullInt:
		return new(sql.NullInt64)
	case colText:
		return new(string)
	case colNullText:
		return new(sql.NullString)
	case colBool:
		return new(bool)
	case colTime:
		return new(time.Time)
	default:
		return new(sql.NullTime)
	}
}

func exportValue(v any) any {
	switch v := v.(type) {
	case *int64:
		return *v
	case *string:
		return *v
	case *bool:
		return *v
	case *time.Time:
		return v.UTC()
	case *sql.NullInt64:
		if v.Valid {
			return v.Int64
		}
	case *sql.NullString:
		if v.Valid {
			return v.String
		}
	case *sql.NullTime:
		if v.Valid {
			return v.Time.UTC()
		}
	}
	return nil
}

// Import restores a backup file into an empty database
func (s *BackupService) Import(ctx context.Context, inputPath string) (*BackupData, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file)
}

// ImportFromReader restores a backup into an empty database. All rows are
// written in one transaction.
func (s *BackupService) ImportFromReader(ctx context.Context, r io.Reader) (*BackupData, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	slog.Info("importing backup", "version", backup.Version, "exported_at", backup.ExportedAt, "source", backup.DatabaseType)

	var users int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&users); err != nil {
		return nil, fmt.Errorf("failed to check target database: %w", err)
	}
	if users > 0 {
		return nil, ErrDatabaseNotEmpty
	}

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		for _, t := range backupTables {
			if err := importTable(ctx, tx, t, backup.Tables[t.name]); err != nil {
				return fmt.Errorf("failed to import %s: %w", t.name, err)
			}
		}
		for _, t := range backupTables {
			if !t.serial {
				continue
			}
			if q := tx.GetDialect().ResetSequenceQuery(t.name); q != "" {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					return fmt.Errorf("failed to reset sequence for %s: %w", t.name, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("database import completed", "counts", backup.Counts())
	return &backup, nil
}

func importTable(ctx context.Context, tx *database.Tx, t backupTable, rows []BackupRow) error {
	names := t.columnNames()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, strings.Join(names, ", "), placeholders)

	for i, row := range rows {
		args := make([]any, len(t.columns))
		for j, c := range t.columns {
			v, err := importValue(c.kind, row[c.name])
			if err != nil {
				return fmt.Errorf("row %d column %s: %w", i, c.name, err)
			}
			args[j] = v
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

func importValue(kind columnKind, raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		switch kind {
		case colNullInt, colNullText, colNullTime:
			return nil, nil
		default:
			return nil, errors.New("missing value")
		}
	}

	switch kind {
	case colInt, colNullInt:
		var v int64
		err := json.Unmarshal(raw, &v)
		return v, err
	case colText, colNullText:
		var v string
		err := json.Unmarshal(raw, &v)
		return v, err
	case colBool:
		var v bool
		err := json.Unmarshal(raw, &v)
		return v, err
	default:
		var v time.Time
		err := json.Unmarshal(raw, &v)
		return v.UTC(), err
	}
}
