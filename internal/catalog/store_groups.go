package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const groupColumns = "id, fingerprint, canonical_title, canonical_iswc, member_count, total_claimed_ownership, created_at, updated_at"

// GroupByFingerprint returns the group with the given fingerprint, or nil.
func (s *Store) GroupByFingerprint(ctx context.Context, fingerprint string) (*MatchGroup, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM match_groups WHERE fingerprint = ?`, fingerprint)
	group, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("group by fingerprint: %w", err)
	}
	return group, nil
}

// GetGroup fetches a group by identifier. Returns nil when absent.
func (s *Store) GetGroup(ctx context.Context, id int64) (*MatchGroup, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM match_groups WHERE id = ?`, id)
	group, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return group, nil
}

// EnsureGroup returns the group for a fingerprint, creating it when first
// seen. The created flag lets callers count new matches.
func (s *Store) EnsureGroup(ctx context.Context, fingerprint string) (*MatchGroup, bool, error) {
	existing, err := s.GroupByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	timestamp := time.Now().UTC().Format(timeFormat)
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO match_groups (fingerprint, created_at, updated_at) VALUES (?, ?, ?)
         ON CONFLICT (fingerprint) DO NOTHING`,
		fingerprint,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert group: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}
	group, err := s.GroupByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, false, err
	}
	if group == nil {
		return nil, false, fmt.Errorf("group %q missing after insert", fingerprint)
	}
	return group, affected > 0, nil
}

// AddGroupMember links a work into a group. Re-linking an existing member is
// a no-op so repeated scans do not double-count.
func (s *Store) AddGroupMember(ctx context.Context, groupID, workID int64, accountID string) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO match_group_members (group_id, work_id, account_id) VALUES (?, ?, ?)`,
		groupID,
		workID,
		accountID,
	)
	if err != nil {
		return false, fmt.Errorf("add group member: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// GroupMemberWorkIDs returns the member work ids of a group in stable order.
func (s *Store) GroupMemberWorkIDs(ctx context.Context, groupID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT work_id FROM match_group_members WHERE group_id = ? ORDER BY work_id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("group members: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GroupsForWork returns ids of groups containing the given work.
func (s *Store) GroupsForWork(ctx context.Context, workID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT group_id FROM match_group_members WHERE work_id = ? ORDER BY group_id`,
		workID,
	)
	if err != nil {
		return nil, fmt.Errorf("groups for work: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateGroupRollup stores the recomputed canonical metadata and claimed
// ownership total for a group after a scan pass.
func (s *Store) UpdateGroupRollup(ctx context.Context, group *MatchGroup) error {
	if group == nil {
		return errors.New("group is nil")
	}
	group.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE match_groups
         SET canonical_title = ?, canonical_iswc = ?, member_count = ?,
             total_claimed_ownership = ?, updated_at = ?
         WHERE id = ?`,
		group.CanonicalTitle,
		nullableString(group.CanonicalISWC),
		group.MemberCount,
		group.TotalClaimedOwnership,
		group.UpdatedAt.Format(timeFormat),
		group.ID,
	)
	if err != nil {
		return fmt.Errorf("update group rollup: %w", err)
	}
	return nil
}

// ClearGroupMembers drops every group membership ahead of a full rebuild.
// Group rows survive so their identifiers and conflict history stay
// stable across rebuilds; EnsureGroup re-attaches by fingerprint.
func (s *Store) ClearGroupMembers(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM match_group_members`)
	if err != nil {
		return 0, fmt.Errorf("clear group members: %w", err)
	}
	return res.RowsAffected()
}

// RemoveStaleMemberships detaches a work from every group except the one
// given and returns the ids of groups that lost it. Used when a work's
// fingerprint changed between scans.
func (s *Store) RemoveStaleMemberships(ctx context.Context, workID, keepGroupID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT group_id FROM match_group_members WHERE work_id = ? AND group_id != ? ORDER BY group_id`,
		workID,
		keepGroupID,
	)
	if err != nil {
		return nil, fmt.Errorf("stale memberships: %w", err)
	}
	defer rows.Close()

	var stale []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		stale = append(stale, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(stale) == 0 {
		return nil, nil
	}

	_, err = s.db.ExecContext(
		ctx,
		`DELETE FROM match_group_members WHERE work_id = ? AND group_id != ?`,
		workID,
		keepGroupID,
	)
	if err != nil {
		return nil, fmt.Errorf("remove stale memberships: %w", err)
	}
	return stale, nil
}

// SweepEmptyGroups finishes a rebuild. Groups left without members are
// deleted unless conflicts reference them; those keep their row with
// zeroed rollups so resolved history stays attached to a real group.
func (s *Store) SweepEmptyGroups(ctx context.Context) (int64, error) {
	timestamp := time.Now().UTC().Format(timeFormat)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE match_groups
         SET canonical_title = '', canonical_iswc = NULL, member_count = 0,
             total_claimed_ownership = 0, updated_at = ?
         WHERE id NOT IN (SELECT group_id FROM match_group_members)
           AND (member_count != 0 OR total_claimed_ownership != 0)`,
		timestamp,
	)
	if err != nil {
		return 0, fmt.Errorf("zero empty groups: %w", err)
	}

	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM match_groups
         WHERE id NOT IN (SELECT group_id FROM match_group_members)
           AND id NOT IN (SELECT group_id FROM conflicts)`,
	)
	if err != nil {
		return 0, fmt.Errorf("sweep empty groups: %w", err)
	}
	return res.RowsAffected()
}

// CountGroups returns the number of match groups.
func (s *Store) CountGroups(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM match_groups`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count groups: %w", err)
	}
	return count, nil
}

func scanGroup(scanner interface{ Scan(dest ...any) error }) (*MatchGroup, error) {
	var (
		id          int64
		fingerprint string
		title       string
		iswc        sql.NullString
		memberCount int
		total       float64
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(&id, &fingerprint, &title, &iswc, &memberCount, &total, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	group := &MatchGroup{
		ID:                    id,
		Fingerprint:           fingerprint,
		CanonicalTitle:        title,
		CanonicalISWC:         iswc.String,
		MemberCount:           memberCount,
		TotalClaimedOwnership: total,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		group.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		group.UpdatedAt = updated
	}
	return group, nil
}
