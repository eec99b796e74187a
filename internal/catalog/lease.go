package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// The job lease is a single-row lock record (owner + expiry) serializing
// matching jobs across every process sharing the database. It replaces an
// in-process running flag so a second daemon cannot start a concurrent scan.

// AcquireLease attempts to take the job lease for owner. It succeeds when
// the lease is free or its previous holder's expiry has passed.
func (s *Store) AcquireLease(ctx context.Context, owner string, jobID int64, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE job_lease SET owner = ?, job_id = ?, expires_at = ?
         WHERE id = 1 AND (owner IS NULL OR expires_at < ?)`,
		owner,
		jobID,
		now.Add(ttl).Format(timeFormat),
		now.Format(timeFormat),
	)
	if err != nil {
		return false, fmt.Errorf("acquire lease: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// RenewLease extends the lease expiry. Renewal fails if the lease has been
// taken over by another owner.
func (s *Store) RenewLease(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE job_lease SET expires_at = ? WHERE id = 1 AND owner = ?`,
		time.Now().UTC().Add(ttl).Format(timeFormat),
		owner,
	)
	if err != nil {
		return false, fmt.Errorf("renew lease: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ReleaseLease frees the lease if owner still holds it.
func (s *Store) ReleaseLease(ctx context.Context, owner string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE job_lease SET owner = NULL, job_id = NULL, expires_at = NULL WHERE id = 1 AND owner = ?`,
		owner,
	)
	if err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}

// LeaseHolder reports the current lease owner and its job, if the lease is
// held and unexpired.
func (s *Store) LeaseHolder(ctx context.Context) (owner string, jobID int64, held bool, err error) {
	var (
		ownerRaw   sql.NullString
		jobRaw     sql.NullInt64
		expiresRaw sql.NullString
	)
	row := s.db.QueryRowContext(ctx, `SELECT owner, job_id, expires_at FROM job_lease WHERE id = 1`)
	if err := row.Scan(&ownerRaw, &jobRaw, &expiresRaw); err != nil {
		return "", 0, false, fmt.Errorf("lease holder: %w", err)
	}
	if !ownerRaw.Valid || !expiresRaw.Valid {
		return "", 0, false, nil
	}
	expires, parseErr := parseTimeString(expiresRaw.String)
	if parseErr != nil || !expires.After(time.Now().UTC()) {
		return "", 0, false, nil
	}
	return ownerRaw.String, jobRaw.Int64, true, nil
}
