package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/vncsmyrnk/contestvote/internal/core/domain"
	"github.com/vncsmyrnk/contestvote/internal/core/ports"
)

const uniqueViolation = "23505"

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type contestRepository struct {
	db *sql.DB
}

func NewContestRepository(db *sql.DB) ports.ContestRepository {
	return &contestRepository{
		db: db,
	}
}

func (r *contestRepository) Create(ctx context.Context, contest *domain.Contest) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO contests (id, title, description, type, venue, organizer_id, organizer_name,
			start_date, end_date, access_code, is_active, activated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = tx.ExecContext(ctx, query,
		contest.ID, contest.Title, contest.Description, string(contest.Type), contest.Venue,
		contest.OrganizerID, contest.OrganizerName, contest.StartDate, contest.EndDate,
		domain.NormalizeAccessCode(contest.AccessCode), contest.IsActive, nullTime(contest.ActivatedAt), contest.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == "contests_access_code_key" {
			return domain.ErrAccessCodeTaken
		}
		return fmt.Errorf("failed to insert contest: %w", err)
	}

	if err := r.saveCandidates(ctx, tx, contest.ID, nil, contest.Candidates); err != nil {
		return err
	}
	if err := r.saveParticipations(ctx, tx, nil, contest.Participants); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *contestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contest, error) {
	return r.load(ctx, r.db, id, false)
}

func (r *contestRepository) GetByAccessCode(ctx context.Context, code string) (*domain.Contest, error) {
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, `SELECT id FROM contests WHERE access_code = $1`, domain.NormalizeAccessCode(code)).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrContestNotFound
		}
		return nil, fmt.Errorf("failed to find contest by code: %w", err)
	}
	return r.load(ctx, r.db, id, false)
}

func (r *contestRepository) ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]*domain.Contest, error) {
	return r.list(ctx, `SELECT id FROM contests WHERE organizer_id = $1 ORDER BY created_at`, organizerID)
}

func (r *contestRepository) GetAll(ctx context.Context) ([]*domain.Contest, error) {
	return r.list(ctx, `SELECT id FROM contests ORDER BY created_at`)
}

// Update locks the contest row for the whole transaction, which serializes
// writers per contest across processes.
func (r *contestRepository) Update(ctx context.Context, id uuid.UUID, fn func(*domain.Contest) error) (*domain.Contest, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := r.load(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}

	draft := current.Clone()
	if err := fn(draft); err != nil {
		return nil, err
	}

	query := `
		UPDATE contests
		SET title = $2, description = $3, type = $4, venue = $5, organizer_name = $6,
			start_date = $7, end_date = $8, is_active = $9, activated_at = $10
		WHERE id = $1
	`
	_, err = tx.ExecContext(ctx, query, id, draft.Title, draft.Description, string(draft.Type), draft.Venue,
		draft.OrganizerName, draft.StartDate, draft.EndDate, draft.IsActive, nullTime(draft.ActivatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to update contest: %w", err)
	}

	if err := r.saveCandidates(ctx, tx, id, current.Candidates, draft.Candidates); err != nil {
		return nil, err
	}
	if err := r.saveParticipations(ctx, tx, current.Participants, draft.Participants); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	draft.AccessCode = current.AccessCode
	draft.OrganizerID = current.OrganizerID
	return draft, nil
}

func (r *contestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete contest: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete contest: %w", err)
	}
	if n == 0 {
		return domain.ErrContestNotFound
	}
	return nil
}

func (r *contestRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Contest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contests: %w", err)
	}

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan contest id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contests: %w", err)
	}

	contests := make([]*domain.Contest, 0, len(ids))
	for _, id := range ids {
		c, err := r.load(ctx, r.db, id, false)
		if errors.Is(err, domain.ErrContestNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		contests = append(contests, c)
	}
	return contests, nil
}

func (r *contestRepository) load(ctx context.Context, q queryer, id uuid.UUID, forUpdate bool) (*domain.Contest, error) {
	query := `
		SELECT id, title, description, type, venue, organizer_id, organizer_name,
			start_date, end_date, access_code, is_active, activated_at, created_at
		FROM contests
		WHERE id = $1
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		c           domain.Contest
		contestType string
		activatedAt sql.NullTime
	)
	err := q.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Title, &c.Description, &contestType, &c.Venue, &c.OrganizerID, &c.OrganizerName,
		&c.StartDate, &c.EndDate, &c.AccessCode, &c.IsActive, &activatedAt, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrContestNotFound
		}
		return nil, fmt.Errorf("failed to get contest: %w", err)
	}
	c.Type = domain.ContestType(contestType)
	if activatedAt.Valid {
		t := activatedAt.Time
		c.ActivatedAt = &t
	}

	if c.Candidates, err = r.fetchCandidates(ctx, q, id); err != nil {
		return nil, err
	}
	if c.Participants, err = r.fetchParticipations(ctx, q, id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *contestRepository) fetchCandidates(ctx context.Context, q queryer, contestID uuid.UUID) ([]domain.Candidate, error) {
	query := `
		SELECT id, name, description, category, vote_count
		FROM contest_candidates
		WHERE contest_id = $1
		ORDER BY position
	`
	rows, err := q.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.Candidate
	for rows.Next() {
		var cand domain.Candidate
		if err := rows.Scan(&cand.ID, &cand.Name, &cand.Description, &cand.Category, &cand.VoteCount); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}
	return candidates, nil
}

func (r *contestRepository) fetchParticipations(ctx context.Context, q queryer, contestID uuid.UUID) (map[uuid.UUID]*domain.Participation, error) {
	query := `
		SELECT contest_id, participant_id, display_name, joined_at, has_voted, voted_candidate_id, voted_at
		FROM participations
		WHERE contest_id = $1
	`
	rows, err := q.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participations: %w", err)
	}
	defer rows.Close()

	participants := make(map[uuid.UUID]*domain.Participation)
	for rows.Next() {
		var (
			p         domain.Participation
			candidate uuid.NullUUID
			votedAt   sql.NullTime
		)
		if err := rows.Scan(&p.ContestID, &p.ParticipantID, &p.DisplayName, &p.JoinedAt, &p.HasVoted, &candidate, &votedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participation: %w", err)
		}
		if candidate.Valid {
			id := candidate.UUID
			p.VotedCandidateID = &id
		}
		if votedAt.Valid {
			t := votedAt.Time
			p.VotedAt = &t
		}
		participants[p.ParticipantID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participations: %w", err)
	}
	return participants, nil
}

// saveCandidates writes candidates that are new or differ from before.
func (r *contestRepository) saveCandidates(ctx context.Context, tx *sql.Tx, contestID uuid.UUID, before, after []domain.Candidate) error {
	previous := make(map[uuid.UUID]domain.Candidate, len(before))
	for _, c := range before {
		previous[c.ID] = c
	}

	query := `
		INSERT INTO contest_candidates (id, contest_id, position, name, description, category, vote_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    description = EXCLUDED.description,
		    category = EXCLUDED.category,
		    vote_count = EXCLUDED.vote_count
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare candidate statement: %w", err)
	}
	defer stmt.Close()

	for pos, c := range after {
		if old, ok := previous[c.ID]; ok && old == c {
			continue
		}
		if _, err := stmt.ExecContext(ctx, c.ID, contestID, pos, c.Name, c.Description, c.Category, c.VoteCount); err != nil {
			return fmt.Errorf("failed to save candidate: %w", err)
		}
	}
	return nil
}

// saveParticipations writes participations that are new or changed their vote state.
func (r *contestRepository) saveParticipations(ctx context.Context, tx *sql.Tx, before, after map[uuid.UUID]*domain.Participation) error {
	query := `
		INSERT INTO participations (contest_id, participant_id, display_name, joined_at, has_voted, voted_candidate_id, voted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (contest_id, participant_id) DO UPDATE
		SET has_voted = EXCLUDED.has_voted,
		    voted_candidate_id = EXCLUDED.voted_candidate_id,
		    voted_at = EXCLUDED.voted_at
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare participation statement: %w", err)
	}
	defer stmt.Close()

	for id, p := range after {
		if old, ok := before[id]; ok && old.HasVoted == p.HasVoted {
			continue
		}

		var candidate uuid.NullUUID
		if p.VotedCandidateID != nil {
			candidate = uuid.NullUUID{UUID: *p.VotedCandidateID, Valid: true}
		}
		_, err := stmt.ExecContext(ctx, p.ContestID, p.ParticipantID, p.DisplayName, p.JoinedAt, p.HasVoted, candidate, nullTime(p.VotedAt))
		if err != nil {
			return fmt.Errorf("failed to save participation: %w", err)
		}
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
