package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/fragwatch/internal/ir"
)

// ReadRecord retrieves a single record by id.
// Returns ok=false (and no error) when the record does not exist.
func (s *Store) ReadRecord(ctx context.Context, id string) (ir.Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, typename, fields, seq
		FROM records
		WHERE id = ?
	`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Record{}, false, nil
	}
	if err != nil {
		return ir.Record{}, false, err
	}
	return rec, true, nil
}

// ReadRecords returns all records ordered by id.
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) ReadRecords(ctx context.Context) ([]ir.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, typename, fields, seq
		FROM records
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []ir.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// MaxSeq returns the highest seq stored, or 0 for an empty store.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM records`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query max seq: %w", err)
	}
	return seq.Int64, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (ir.Record, error) {
	var rec ir.Record
	var fieldsJSON string

	if err := row.Scan(&rec.ID, &rec.Typename, &fieldsJSON, &rec.Seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan record: %w", err)
	}

	fields, err := unmarshalFields(fieldsJSON)
	if err != nil {
		return rec, fmt.Errorf("record %q: %w", rec.ID, err)
	}
	rec.Fields = fields
	return rec, nil
}
