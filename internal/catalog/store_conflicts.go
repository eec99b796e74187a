package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrConflictNotFound is returned when a conflict id does not resolve.
var ErrConflictNotFound = errors.New("conflict not found")

const conflictColumns = "id, group_id, conflict_type, severity, description, accounts_json, territory, category, share_axis, resolved, resolved_at, created_at, updated_at"

// OpenConflict returns the unresolved conflict of the given type for a
// group, or nil when none is open.
func (s *Store) OpenConflict(ctx context.Context, groupID int64, conflictType ConflictType) (*Conflict, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+conflictColumns+` FROM conflicts WHERE group_id = ? AND conflict_type = ? AND resolved = 0`,
		groupID,
		conflictType,
	)
	conflict, err := scanConflict(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open conflict: %w", err)
	}
	return conflict, nil
}

// UpsertOpenConflict records a detected anomaly. When an unresolved conflict
// of the same type already exists for the group it is updated in place, so
// re-running detection on an unchanged group never duplicates open
// conflicts. Returns true when a new conflict row was created.
func (s *Store) UpsertOpenConflict(ctx context.Context, conflict *Conflict) (bool, error) {
	if conflict == nil {
		return false, errors.New("conflict is nil")
	}
	if len(conflict.Accounts) == 0 {
		return false, errors.New("conflict requires at least one affected account")
	}
	accountsJSON, err := json.Marshal(conflict.Accounts)
	if err != nil {
		return false, fmt.Errorf("marshal accounts: %w", err)
	}
	now := time.Now().UTC()
	timestamp := now.Format(timeFormat)

	existing, err := s.OpenConflict(ctx, conflict.GroupID, conflict.Type)
	if err != nil {
		return false, err
	}
	if existing != nil {
		_, err := s.db.ExecContext(
			ctx,
			`UPDATE conflicts
             SET severity = ?, description = ?, accounts_json = ?, territory = ?,
                 category = ?, share_axis = ?, updated_at = ?
             WHERE id = ?`,
			conflict.Severity,
			conflict.Description,
			string(accountsJSON),
			nullableString(conflict.Territory),
			nullableString(conflict.Category),
			nullableString(conflict.ShareAxis),
			timestamp,
			existing.ID,
		)
		if err != nil {
			return false, fmt.Errorf("update conflict: %w", err)
		}
		conflict.ID = existing.ID
		conflict.CreatedAt = existing.CreatedAt
		conflict.UpdatedAt = now
		return false, nil
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO conflicts (
            group_id, conflict_type, severity, description, accounts_json,
            territory, category, share_axis, resolved, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		conflict.GroupID,
		conflict.Type,
		conflict.Severity,
		conflict.Description,
		string(accountsJSON),
		nullableString(conflict.Territory),
		nullableString(conflict.Category),
		nullableString(conflict.ShareAxis),
		timestamp,
		timestamp,
	)
	if err != nil {
		return false, fmt.Errorf("insert conflict: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("last insert id: %w", err)
	}
	conflict.ID = id
	conflict.CreatedAt = now
	conflict.UpdatedAt = now
	return true, nil
}

// GetConflict fetches a conflict by identifier. Returns nil when absent.
func (s *Store) GetConflict(ctx context.Context, id int64) (*Conflict, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+conflictColumns+` FROM conflicts WHERE id = ?`, id)
	conflict, err := scanConflict(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conflict: %w", err)
	}
	return conflict, nil
}

// ListConflicts returns a page of conflicts matching the filter plus the
// total match count for offset pagination. Results are ordered newest first.
func (s *Store) ListConflicts(ctx context.Context, filter ConflictFilter, offset, limit int) ([]*Conflict, int, error) {
	var clauses []string
	var args []any
	if filter.Resolved != nil {
		clauses = append(clauses, "resolved = ?")
		args = append(args, boolToInt(*filter.Resolved))
	}
	if filter.Type != "" {
		clauses = append(clauses, "conflict_type = ?")
		args = append(args, filter.Type)
	}
	if filter.Severity != "" {
		clauses = append(clauses, "severity = ?")
		args = append(args, filter.Severity)
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM conflicts`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count conflicts: %w", err)
	}

	query := `SELECT ` + conflictColumns + ` FROM conflicts` + where + ` ORDER BY id DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []*Conflict
	for rows.Next() {
		conflict, err := scanConflict(rows)
		if err != nil {
			return nil, 0, err
		}
		conflicts = append(conflicts, conflict)
	}
	return conflicts, total, rows.Err()
}

// ResolveConflict marks a conflict resolved. Resolving an already-resolved
// conflict is a no-op; the returned flag reports whether state changed.
func (s *Store) ResolveConflict(ctx context.Context, id int64) (bool, error) {
	now := time.Now().UTC().Format(timeFormat)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE conflicts SET resolved = 1, resolved_at = ?, updated_at = ? WHERE id = ? AND resolved = 0`,
		now,
		now,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("resolve conflict: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return true, nil
	}

	existing, err := s.GetConflict(ctx, id)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, ErrConflictNotFound
	}
	return false, nil
}

// ConflictStats aggregates group and conflict counts for the stats surface.
func (s *Store) ConflictStats(ctx context.Context) (ConflictStats, error) {
	var stats ConflictStats
	groups, err := s.CountGroups(ctx)
	if err != nil {
		return stats, err
	}
	stats.TotalGroups = int(groups)

	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1), COALESCE(SUM(CASE WHEN resolved = 0 THEN 1 ELSE 0 END), 0) FROM conflicts`)
	if err := row.Scan(&stats.TotalConflicts, &stats.UnresolvedConflicts); err != nil {
		return stats, fmt.Errorf("conflict stats: %w", err)
	}
	return stats, nil
}

func scanConflict(scanner interface{ Scan(dest ...any) error }) (*Conflict, error) {
	var (
		id           int64
		groupID      int64
		conflictType string
		severity     string
		description  string
		accountsJSON string
		territory    sql.NullString
		category     sql.NullString
		shareAxis    sql.NullString
		resolved     int
		resolvedRaw  sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&id,
		&groupID,
		&conflictType,
		&severity,
		&description,
		&accountsJSON,
		&territory,
		&category,
		&shareAxis,
		&resolved,
		&resolvedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	conflict := &Conflict{
		ID:          id,
		GroupID:     groupID,
		Type:        ConflictType(conflictType),
		Severity:    Severity(severity),
		Description: description,
		Territory:   territory.String,
		Category:    category.String,
		ShareAxis:   shareAxis.String,
		Resolved:    resolved != 0,
	}
	if accountsJSON != "" {
		if err := json.Unmarshal([]byte(accountsJSON), &conflict.Accounts); err != nil {
			return nil, fmt.Errorf("unmarshal accounts for conflict %d: %w", id, err)
		}
	}
	if resolvedRaw.Valid {
		if resolvedAt, err := parseTimeString(resolvedRaw.String); err == nil {
			conflict.ResolvedAt = &resolvedAt
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		conflict.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		conflict.UpdatedAt = updated
	}
	return conflict, nil
}
