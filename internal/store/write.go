package store

import (
	"context"
	"fmt"

	"github.com/roach88/fragwatch/internal/ir"
)

// PutRecord inserts or replaces a record.
// Fields are serialized to canonical JSON per RFC 8785.
func (s *Store) PutRecord(ctx context.Context, rec ir.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("put record: id is required")
	}
	if rec.Typename == "" {
		return fmt.Errorf("put record %q: typename is required", rec.ID)
	}

	fieldsJSON, err := marshalFields(rec.Fields)
	if err != nil {
		return fmt.Errorf("put record %q: %w", rec.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (id, typename, fields, seq)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			typename = excluded.typename,
			fields   = excluded.fields,
			seq      = excluded.seq
	`, rec.ID, rec.Typename, fieldsJSON, rec.Seq)
	if err != nil {
		return fmt.Errorf("put record %q: %w", rec.ID, err)
	}

	return nil
}

// PutRecords writes several records in one transaction.
func (s *Store) PutRecords(ctx context.Context, recs []ir.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put records: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (id, typename, fields, seq)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			typename = excluded.typename,
			fields   = excluded.fields,
			seq      = excluded.seq
	`)
	if err != nil {
		return fmt.Errorf("put records: prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		if rec.ID == "" || rec.Typename == "" {
			return fmt.Errorf("put records: record %q needs id and typename", rec.ID)
		}
		fieldsJSON, err := marshalFields(rec.Fields)
		if err != nil {
			return fmt.Errorf("put records %q: %w", rec.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, rec.Typename, fieldsJSON, rec.Seq); err != nil {
			return fmt.Errorf("put records %q: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put records: commit: %w", err)
	}
	return nil
}

// DeleteRecord removes a record. Returns whether a row was deleted.
func (s *Store) DeleteRecord(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete record %q: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete record %q: rows affected: %w", id, err)
	}
	return n > 0, nil
}
