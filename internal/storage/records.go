package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/carga/internal/model"
	"github.com/Veraticus/carga/internal/service"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// fingerprintLookupSize bounds the IN list of one fingerprint query, well
// under SQLite's host parameter limit.
const fingerprintLookupSize = 500

const recordColumns = `id, batch_id, date, amount, driver, client, department,
	month, month_index, week_key, iso_week, iso_year, fingerprint, raw`

// SaveRecords writes records in chunks of the configured batch size, one
// transaction per chunk. A failing chunk is reported and skipped; chunks
// already committed stay committed. Records without an ID get one in place.
// The error return is reserved for invalid input.
func (s *SQLiteStorage) SaveRecords(ctx context.Context, records []model.CanonicalRecord, progress service.SaveProgress) (int, []model.WriteFailure, error) {
	if err := validateContext(ctx); err != nil {
		return 0, nil, err
	}
	for i := range records {
		if err := validateRecord(&records[i]); err != nil {
			return 0, nil, fmt.Errorf("record at index %d: %w", i, err)
		}
		if records[i].ID == "" {
			records[i].ID = s.newID()
		}
	}
	if len(records) == 0 {
		return 0, nil, nil
	}

	var (
		failures []model.WriteFailure
		written  int
		done     int
	)
	for i, chunk := range lo.Chunk(records, s.batchSize) {
		err := ctx.Err()
		if err == nil {
			err = s.saveChunk(ctx, chunk)
		}
		if err != nil {
			failures = append(failures, model.WriteFailure{Chunk: i + 1, Rows: len(chunk), Err: err})
			slog.Warn("Failed to write record chunk",
				"chunk", i+1,
				"rows", len(chunk),
				"error", err)
		} else {
			written += len(chunk)
		}

		done += len(chunk)
		if progress != nil {
			progress(done, len(records))
		}
	}

	return written, failures, nil
}

func (s *SQLiteStorage) saveChunk(ctx context.Context, chunk []model.CanonicalRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO billing_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range chunk {
		_, err = stmt.ExecContext(ctx,
			r.ID,
			nullString(r.BatchID),
			r.Date.Format(dateLayout),
			r.Amount.String(),
			r.Driver,
			r.Client,
			r.Department,
			r.Month,
			r.MonthIndex,
			r.WeekKey,
			r.ISOWeek,
			r.ISOYear,
			r.Fingerprint,
			rawJSON(r.Raw),
		)
		if err != nil {
			return fmt.Errorf("failed to insert record %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

func rawJSON(row model.RawRow) sql.NullString {
	if row == nil {
		return sql.NullString{}
	}
	data, err := json.Marshal(row)
	if err != nil {
		// Raw cells are kept for auditing only; an unencodable row is not fatal.
		slog.Debug("failed to encode raw row", "error", err)
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ListRecords returns the records matching filter in date order.
func (s *SQLiteStorage) ListRecords(ctx context.Context, filter service.RecordFilter) ([]model.CanonicalRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	where, args, err := buildWhere(filter)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + recordColumns + ` FROM billing_records` + where + ` ORDER BY date, rowid`
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.CanonicalRecord
	for rows.Next() {
		r, scanErr := scanRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (model.CanonicalRecord, error) {
	var (
		r       model.CanonicalRecord
		batchID sql.NullString
		raw     sql.NullString
		date    string
		amount  string
	)
	err := rows.Scan(
		&r.ID,
		&batchID,
		&date,
		&amount,
		&r.Driver,
		&r.Client,
		&r.Department,
		&r.Month,
		&r.MonthIndex,
		&r.WeekKey,
		&r.ISOWeek,
		&r.ISOYear,
		&r.Fingerprint,
		&raw,
	)
	if err != nil {
		return r, fmt.Errorf("failed to scan record: %w", err)
	}

	r.BatchID = batchID.String
	if r.Date, err = time.Parse(dateLayout, date); err != nil {
		return r, fmt.Errorf("record %s has a bad date %q: %w", r.ID, date, err)
	}
	if r.Amount, err = decimal.NewFromString(amount); err != nil {
		return r, fmt.Errorf("record %s has a bad amount %q: %w", r.ID, amount, err)
	}
	if raw.Valid {
		if err := json.Unmarshal([]byte(raw.String), &r.Raw); err != nil {
			slog.Debug("failed to decode raw row", "id", r.ID, "error", err)
		}
	}
	return r, nil
}

// CountRecords returns how many records match filter.
func (s *SQLiteStorage) CountRecords(ctx context.Context, filter service.RecordFilter) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	where, args, err := buildWhere(filter)
	if err != nil {
		return 0, err
	}
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM billing_records`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

func buildWhere(f service.RecordFilter) (string, []any, error) {
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return "", nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange, f.From.Format(dateLayout), f.To.Format(dateLayout))
	}

	var (
		clauses []string
		args    []any
	)
	add := func(clause string, values ...any) {
		clauses = append(clauses, clause)
		args = append(args, values...)
	}

	if f.Month != "" {
		add("month = ?", f.Month)
	}
	if f.Week != "" {
		add("week_key = ?", f.Week)
	}
	if f.Department != "" {
		add("department = ?", f.Department)
	}
	if f.BatchID != "" {
		add("batch_id = ?", f.BatchID)
	}
	if !f.From.IsZero() {
		add("date >= ?", f.From.Format(dateLayout))
	}
	if !f.To.IsZero() {
		add("date <= ?", f.To.Format(dateLayout))
	}
	if len(f.Drivers) > 0 {
		add("driver IN ("+placeholders(len(f.Drivers))+")", lo.ToAnySlice(f.Drivers)...)
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// FingerprintsExist returns the subset of fingerprints already stored.
func (s *SQLiteStorage) FingerprintsExist(ctx context.Context, fingerprints []string) (map[string]struct{}, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	found := make(map[string]struct{})
	for _, chunk := range lo.Chunk(lo.Uniq(fingerprints), fingerprintLookupSize) {
		// #nosec G202 - only placeholders are concatenated
		query := `SELECT DISTINCT fingerprint FROM billing_records WHERE fingerprint IN (` + placeholders(len(chunk)) + `)`
		rows, err := s.db.QueryContext(ctx, query, lo.ToAnySlice(chunk)...)
		if err != nil {
			return nil, fmt.Errorf("failed to query fingerprints: %w", err)
		}
		for rows.Next() {
			var fp string
			if err := rows.Scan(&fp); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
			}
			found[fp] = struct{}{}
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to iterate fingerprints: %w", err)
		}
	}
	return found, nil
}

// DeleteByMonth removes every record with the given month display key.
func (s *SQLiteStorage) DeleteByMonth(ctx context.Context, monthKey string) (int64, error) {
	if err := validateString(monthKey, "monthKey"); err != nil {
		return 0, err
	}
	return s.deleteWhere(ctx, "month = ?", monthKey)
}

// DeleteByWeek removes every record with the given week display key.
func (s *SQLiteStorage) DeleteByWeek(ctx context.Context, weekKey string) (int64, error) {
	if err := validateString(weekKey, "weekKey"); err != nil {
		return 0, err
	}
	return s.deleteWhere(ctx, "week_key = ?", weekKey)
}

// DeleteBatch removes the records of one upload along with its audit row.
func (s *SQLiteStorage) DeleteBatch(ctx context.Context, batchID string) (int64, error) {
	if err := validateString(batchID, "batchID"); err != nil {
		return 0, err
	}
	n, err := s.deleteWhere(ctx, "batch_id = ?", batchID)
	if err != nil {
		return 0, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM upload_batches WHERE id = ?`, batchID); err != nil {
		return n, fmt.Errorf("failed to delete upload batch: %w", err)
	}
	return n, nil
}

// DeleteAll removes every record and upload batch.
func (s *SQLiteStorage) DeleteAll(ctx context.Context) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM billing_records`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM upload_batches`); err != nil {
		return 0, fmt.Errorf("failed to delete upload batches: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit reset: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStorage) deleteWhere(ctx context.Context, clause string, args ...any) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM billing_records WHERE `+clause, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete records: %w", err)
	}
	return res.RowsAffected()
}

// SaveBatch stores or replaces an upload batch audit row.
func (s *SQLiteStorage) SaveBatch(ctx context.Context, batch *model.UploadBatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBatch(batch); err != nil {
		return err
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO upload_batches
		(id, source, department, accepted, rejected, written, failed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.ID,
		batch.Source,
		batch.Department,
		batch.Accepted,
		batch.Rejected,
		batch.Written,
		batch.Failed,
		batch.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save upload batch: %w", err)
	}
	return nil
}

// ListBatches returns the most recent upload batches first. A limit of zero lists all.
func (s *SQLiteStorage) ListBatches(ctx context.Context, limit int) ([]model.UploadBatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT id, source, department, accepted, rejected, written, failed, created_at
		FROM upload_batches ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query upload batches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var batches []model.UploadBatch
	for rows.Next() {
		var (
			b      model.UploadBatch
			source sql.NullString
		)
		if err := rows.Scan(&b.ID, &source, &b.Department, &b.Accepted, &b.Rejected, &b.Written, &b.Failed, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan upload batch: %w", err)
		}
		b.Source = source.String
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate upload batches: %w", err)
	}
	return batches, nil
}
