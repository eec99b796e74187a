package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cadenza/internal/rights"
)

const workColumns = "id, account_id, title, iswc, chain_json, created_at, updated_at"

// InsertWork registers a new work for an account.
func (s *Store) InsertWork(ctx context.Context, work *Work) (*Work, error) {
	if work == nil {
		return nil, errors.New("work is nil")
	}
	chainJSON, err := json.Marshal(work.Chain)
	if err != nil {
		return nil, fmt.Errorf("marshal chain: %w", err)
	}
	timestamp := time.Now().UTC().Format(timeFormat)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO works (account_id, title, iswc, chain_json, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		work.AccountID,
		work.Title,
		nullableString(NormalizeISWC(work.ISWC)),
		string(chainJSON),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert work: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetWork(ctx, id)
}

// UpdateWork persists changes to an existing work and bumps updated_at so
// incremental scans pick the work up.
func (s *Store) UpdateWork(ctx context.Context, work *Work) error {
	if work == nil {
		return errors.New("work is nil")
	}
	chainJSON, err := json.Marshal(work.Chain)
	if err != nil {
		return fmt.Errorf("marshal chain: %w", err)
	}
	work.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE works SET account_id = ?, title = ?, iswc = ?, chain_json = ?, updated_at = ? WHERE id = ?`,
		work.AccountID,
		work.Title,
		nullableString(NormalizeISWC(work.ISWC)),
		string(chainJSON),
		work.UpdatedAt.Format(timeFormat),
		work.ID,
	)
	if err != nil {
		return fmt.Errorf("update work: %w", err)
	}
	return nil
}

// GetWork fetches a work by identifier. Returns nil when absent.
func (s *Store) GetWork(ctx context.Context, id int64) (*Work, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+workColumns+` FROM works WHERE id = ?`, id)
	work, err := scanWork(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get work: %w", err)
	}
	return work, nil
}

// ListWorks returns a page of works in stable id order, optionally limited
// to works modified at or after since. This is the catalog reader the scan
// runner pages through.
func (s *Store) ListWorks(ctx context.Context, since *time.Time, offset, limit int) ([]*Work, error) {
	query := `SELECT ` + workColumns + ` FROM works`
	args := make([]any, 0, 3)
	if since != nil {
		query += ` WHERE updated_at >= ?`
		args = append(args, since.UTC().Format(timeFormat))
	}
	query += ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list works: %w", err)
	}
	defer rows.Close()

	var works []*Work
	for rows.Next() {
		work, err := scanWork(rows)
		if err != nil {
			return nil, err
		}
		works = append(works, work)
	}
	return works, rows.Err()
}

// CountWorks returns the number of works, optionally limited to works
// modified at or after since.
func (s *Store) CountWorks(ctx context.Context, since *time.Time) (int64, error) {
	query := `SELECT COUNT(1) FROM works`
	args := make([]any, 0, 1)
	if since != nil {
		query += ` WHERE updated_at >= ?`
		args = append(args, since.UTC().Format(timeFormat))
	}
	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count works: %w", err)
	}
	return count, nil
}

// WorksByID fetches a set of works preserving id order.
func (s *Store) WorksByID(ctx context.Context, ids []int64) ([]*Work, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT ` + workColumns + ` FROM works WHERE id IN (` + makePlaceholders(len(ids)) + `) ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("works by id: %w", err)
	}
	defer rows.Close()

	var works []*Work
	for rows.Next() {
		work, err := scanWork(rows)
		if err != nil {
			return nil, err
		}
		works = append(works, work)
	}
	return works, rows.Err()
}

func scanWork(scanner interface{ Scan(dest ...any) error }) (*Work, error) {
	var (
		id         int64
		accountID  string
		title      string
		iswc       sql.NullString
		chainJSON  string
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&id, &accountID, &title, &iswc, &chainJSON, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	work := &Work{
		ID:        id,
		AccountID: accountID,
		Title:     title,
		ISWC:      iswc.String,
	}
	if chainJSON != "" {
		var chain []rights.TerritoryChain
		if err := json.Unmarshal([]byte(chainJSON), &chain); err != nil {
			return nil, fmt.Errorf("unmarshal chain for work %d: %w", id, err)
		}
		work.Chain = chain
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		work.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		work.UpdatedAt = updated
	}
	return work, nil
}
