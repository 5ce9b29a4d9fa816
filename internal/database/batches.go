package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hashdrop/internal/digest"
	"hashdrop/internal/metadata"
)

// ErrBatchNotFound is returned for an unknown batch ID.
var ErrBatchNotFound = errors.New("batch not found")

// DefaultListLimit caps ListBatches when no limit is given.
const DefaultListLimit = 50

// unknownSize is stored for records whose size could not be read.
const unknownSize = -1

// SaveBatch stores a finished batch and its records in one transaction.
// Saving an ID twice replaces the earlier copy.
func (d *Database) SaveBatch(ctx context.Context, b Batch) (err error) {
	start := time.Now()
	defer func() { recordQuery("save_batch", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	inputs, err := json.Marshal(b.Inputs)
	if err != nil {
		return fmt.Errorf("failed to encode inputs: %w", err)
	}
	algorithms, err := json.Marshal(b.Algorithms)
	if err != nil {
		return fmt.Errorf("failed to encode algorithms: %w", err)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM batches WHERE id = ?", b.ID); err != nil {
		return fmt.Errorf("failed to replace batch %s: %w", b.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO batches (id, inputs, algorithms, scan, files, digests, errors, skipped,
			groups_found, cancelled, digest_seconds, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, string(inputs), string(algorithms), b.Scan, b.Files, b.Digests, b.Errors, b.Skipped,
		b.Groups, b.Cancelled, b.DigestSeconds, b.StartedAt.UnixMilli(), b.FinishedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert batch %s: %w", b.ID, err)
	}

	recordStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO batch_records (batch_id, row_index, path, filename, size, extension,
			mime_type, type_descriptor, directory_label, scan_matches)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer recordStmt.Close()

	digestStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO record_digests (record_id, algorithm, value) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare digest insert: %w", err)
	}
	defer digestStmt.Close()

	for _, r := range b.Records {
		var matches sql.NullString
		if r.ScanMatches != nil {
			encoded, encErr := json.Marshal(r.ScanMatches)
			if encErr != nil {
				err = fmt.Errorf("failed to encode scan matches: %w", encErr)
				return err
			}
			matches = sql.NullString{String: string(encoded), Valid: true}
		}

		size := int64(r.Size)
		if r.SizeUnknown {
			size = unknownSize
		}
		res, execErr := recordStmt.ExecContext(ctx, b.ID, r.Row, r.Path, r.Filename, size,
			r.Extension, r.MIMEType, r.TypeDescriptor, r.DirectoryLabel, matches)
		if execErr != nil {
			err = fmt.Errorf("failed to insert record %s: %w", r.Path, execErr)
			return err
		}
		id, idErr := res.LastInsertId()
		if idErr != nil {
			err = fmt.Errorf("failed to read record id: %w", idErr)
			return err
		}

		for alg, value := range r.Digests {
			if _, execErr := digestStmt.ExecContext(ctx, id, string(alg), value); execErr != nil {
				err = fmt.Errorf("failed to insert %s digest of %s: %w", alg, r.Path, execErr)
				return err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch %s: %w", b.ID, err)
	}
	return nil
}

const batchColumns = `id, inputs, algorithms, scan, files, digests, errors, skipped,
	groups_found, cancelled, digest_seconds, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatchInfo(row rowScanner) (BatchInfo, error) {
	var info BatchInfo
	var inputs, algorithms string
	var started, finished int64

	err := row.Scan(&info.ID, &inputs, &algorithms, &info.Scan, &info.Files, &info.Digests,
		&info.Errors, &info.Skipped, &info.Groups, &info.Cancelled, &info.DigestSeconds,
		&started, &finished)
	if err != nil {
		return BatchInfo{}, err
	}

	if err := json.Unmarshal([]byte(inputs), &info.Inputs); err != nil {
		return BatchInfo{}, fmt.Errorf("corrupt inputs for batch %s: %w", info.ID, err)
	}
	if err := json.Unmarshal([]byte(algorithms), &info.Algorithms); err != nil {
		return BatchInfo{}, fmt.Errorf("corrupt algorithms for batch %s: %w", info.ID, err)
	}
	info.StartedAt = time.UnixMilli(started)
	info.FinishedAt = time.UnixMilli(finished)
	return info, nil
}

// ListBatches returns the most recent batches first. limit <= 0 means
// DefaultListLimit.
func (d *Database) ListBatches(ctx context.Context, limit int) (batches []BatchInfo, err error) {
	start := time.Now()
	defer func() { recordQuery("list_batches", start, err) }()

	if limit <= 0 {
		limit = DefaultListLimit
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		"SELECT "+batchColumns+" FROM batches ORDER BY finished_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batches = []BatchInfo{}
	for rows.Next() {
		info, scanErr := scanBatchInfo(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		batches = append(batches, info)
	}
	err = rows.Err()
	return batches, err
}

// GetBatch returns one batch with its records.
func (d *Database) GetBatch(ctx context.Context, id string) (batch *Batch, err error) {
	start := time.Now()
	defer func() {
		if errors.Is(err, ErrBatchNotFound) {
			recordQuery("get_batch", start, nil)
			return
		}
		recordQuery("get_batch", start, err)
	}()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	info, err := scanBatchInfo(d.db.QueryRowContext(ctx,
		"SELECT "+batchColumns+" FROM batches WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT r.id, r.row_index, r.path, r.filename, r.size, r.extension, r.mime_type,
			r.type_descriptor, r.directory_label, r.scan_matches, d.algorithm, d.value
		FROM batch_records r
		LEFT JOIN record_digests d ON d.record_id = r.id
		WHERE r.batch_id = ?
		ORDER BY r.row_index, r.id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batch = &Batch{BatchInfo: info, Records: []metadata.Record{}}
	lastID := int64(-1)
	for rows.Next() {
		var recordID int64
		var size int64
		var r metadata.Record
		var extension, mime, descriptor, label, matches, alg, value sql.NullString

		if err = rows.Scan(&recordID, &r.Row, &r.Path, &r.Filename, &size, &extension, &mime,
			&descriptor, &label, &matches, &alg, &value); err != nil {
			return nil, err
		}

		if recordID != lastID {
			if size == unknownSize {
				r.SizeUnknown = true
			} else {
				r.Size = uint64(size)
			}
			r.Extension = extension.String
			r.MIMEType = mime.String
			r.TypeDescriptor = descriptor.String
			r.DirectoryLabel = label.String
			r.Digests = make(map[digest.Algorithm]string)
			if matches.Valid {
				if err = json.Unmarshal([]byte(matches.String), &r.ScanMatches); err != nil {
					return nil, fmt.Errorf("corrupt scan matches for %s: %w", r.Path, err)
				}
			}
			batch.Records = append(batch.Records, r)
			lastID = recordID
		}
		if alg.Valid {
			batch.Records[len(batch.Records)-1].Digests[digest.Algorithm(alg.String)] = value.String
		}
	}
	err = rows.Err()
	return batch, err
}

// DeleteBatch removes a batch and its records.
func (d *Database) DeleteBatch(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { recordQuery("delete_batch", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, "DELETE FROM batches WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}
	return nil
}

// FindDigest returns stored records with the given digest value across
// all batches, newest batch first.
func (d *Database) FindDigest(ctx context.Context, value string, limit int) (matches []DigestMatch, err error) {
	start := time.Now()
	defer func() { recordQuery("find_digest", start, err) }()

	if limit <= 0 {
		limit = DefaultListLimit
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT b.id, r.path, d.algorithm, r.size, b.finished_at
		FROM record_digests d
		JOIN batch_records r ON r.id = d.record_id
		JOIN batches b ON b.id = r.batch_id
		WHERE d.value = ?
		ORDER BY b.finished_at DESC, r.row_index
		LIMIT ?
	`, value, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches = []DigestMatch{}
	for rows.Next() {
		var m DigestMatch
		var size, finished int64
		if err = rows.Scan(&m.BatchID, &m.Path, &m.Algorithm, &size, &finished); err != nil {
			return nil, err
		}
		if size > 0 {
			m.Size = uint64(size)
		}
		m.FinishedAt = time.UnixMilli(finished)
		matches = append(matches, m)
	}
	err = rows.Err()
	return matches, err
}
