package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// appendOperation records a mutation in the append-only operation log.
func (c *Catalog) appendOperation(ctx context.Context, q queryer, opType, trackID string, data any) error {
	if _, err := q.ExecContext(ctx,
		`INSERT INTO operation_log (device_id, operation_type, track_id, timestamp, data) VALUES (?, ?, ?, ?, ?)`,
		nullableString(c.deviceID),
		opType,
		nullableString(trackID),
		time.Now().UnixMilli(),
		nullableString(marshalData(data)),
	); err != nil {
		return fmt.Errorf("append operation log: %w", err)
	}
	return nil
}

// Operations returns the most recent operation log entries, newest first.
// A non-positive limit returns every entry.
func (c *Catalog) Operations(ctx context.Context, limit int) ([]Operation, error) {
	ctx = ensureContext(ctx)
	db, err := c.conn()
	if err != nil {
		return nil, err
	}
	query := `SELECT id, device_id, operation_type, track_id, timestamp, data FROM operation_log ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query operation log: %w", err)
	}
	defer rows.Close()

	var ops []Operation
	for rows.Next() {
		var (
			op        Operation
			deviceID  sql.NullString
			opType    sql.NullString
			trackID   sql.NullString
			timestamp sql.NullInt64
			data      sql.NullString
		)
		if err := rows.Scan(&op.ID, &deviceID, &opType, &trackID, &timestamp, &data); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		op.DeviceID = deviceID.String
		op.Type = opType.String
		op.TrackID = trackID.String
		op.Timestamp = millisToTime(timestamp.Int64)
		op.Data = data.String
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operation log: %w", err)
	}
	return ops, nil
}
