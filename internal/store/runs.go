package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/juanifmera/progresion/internal/model"
)

// ErrRunNotFound 运行记录不存在
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, kind, month, year, format, scope, status, stage, reason,
	fact_rows, registry_rows, unmatched_rows, dropped_rows, comparable_rows,
	sheet_count, row_count, file_name, elapsed_ms, started_at, completed_at`

// CreateRun 写入一条运行中的记录
func (s *Store) CreateRun(ctx context.Context, rec *model.RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Kind, int(rec.Month), rec.Year, rec.Format, rec.Scope, rec.Status, string(rec.Stage), rec.Reason,
		rec.Stats.FactRows, rec.Stats.RegistryRows, rec.Stats.UnmatchedRows, rec.Stats.DroppedRows, rec.Stats.ComparableRows,
		rec.Stats.SheetCount, rec.Stats.RowCount, rec.FileName, rec.Elapsed.Milliseconds(), rec.StartedAt.UTC(), nullTime(rec.CompletedAt))
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun 更新运行结果
func (s *Store) FinishRun(ctx context.Context, rec *model.RunRecord) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET
			year = ?,
			status = ?,
			stage = ?,
			reason = ?,
			fact_rows = ?,
			registry_rows = ?,
			unmatched_rows = ?,
			dropped_rows = ?,
			comparable_rows = ?,
			sheet_count = ?,
			row_count = ?,
			file_name = ?,
			elapsed_ms = ?,
			completed_at = ?
		WHERE id = ?
	`, rec.Year, rec.Status, string(rec.Stage), rec.Reason,
		rec.Stats.FactRows, rec.Stats.RegistryRows, rec.Stats.UnmatchedRows, rec.Stats.DroppedRows, rec.Stats.ComparableRows,
		rec.Stats.SheetCount, rec.Stats.RowCount, rec.FileName, rec.Elapsed.Milliseconds(), nullTime(rec.CompletedAt), rec.ID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, rec.ID)
	}
	return nil
}

// GetRun 按 ID 查询
func (s *Store) GetRun(ctx context.Context, id string) (*model.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return rec, err
}

// ListRuns 最近的运行记录（按开始时间倒序）
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*model.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []*model.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LastRun 最近一次运行；没有记录时返回 nil
func (s *Store) LastRun(ctx context.Context) (*model.RunRecord, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return runs[0], nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*model.RunRecord, error) {
	var (
		rec       model.RunRecord
		month     int
		stage     string
		elapsedMs int64
		completed sql.NullTime
	)
	err := sc.Scan(&rec.ID, &rec.Kind, &month, &rec.Year, &rec.Format, &rec.Scope, &rec.Status, &stage, &rec.Reason,
		&rec.Stats.FactRows, &rec.Stats.RegistryRows, &rec.Stats.UnmatchedRows, &rec.Stats.DroppedRows, &rec.Stats.ComparableRows,
		&rec.Stats.SheetCount, &rec.Stats.RowCount, &rec.FileName, &elapsedMs, &rec.StartedAt, &completed)
	if err != nil {
		return nil, err
	}
	rec.Month = model.Month(month)
	rec.Stage = model.Stage(stage)
	rec.Elapsed = time.Duration(elapsedMs) * time.Millisecond
	if completed.Valid {
		t := completed.Time
		rec.CompletedAt = &t
	}
	return &rec, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
