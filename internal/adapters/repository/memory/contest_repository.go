package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/contestvote/internal/core/domain"
	"github.com/vncsmyrnk/contestvote/internal/core/ports"
)

// entry owns one contest. mu serializes every write to that contest;
// deleted is set under mu so an Update racing a Delete sees it.
type entry struct {
	mu      sync.RWMutex
	code    string
	contest *domain.Contest
	deleted bool
}

type contestRepository struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*entry
	byCode map[string]uuid.UUID
}

func NewContestRepository() ports.ContestRepository {
	return &contestRepository{
		byID:   make(map[uuid.UUID]*entry),
		byCode: make(map[string]uuid.UUID),
	}
}

func (r *contestRepository) Create(ctx context.Context, contest *domain.Contest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	code := domain.NormalizeAccessCode(contest.AccessCode)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byCode[code]; taken {
		return domain.ErrAccessCodeTaken
	}
	stored := contest.Clone()
	stored.AccessCode = code
	r.byID[stored.ID] = &entry{code: code, contest: stored}
	r.byCode[code] = stored.ID
	return nil
}

func (r *contestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	e, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrContestNotFound
	}
	return e.snapshot()
}

func (r *contestRepository) GetByAccessCode(ctx context.Context, code string) (*domain.Contest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	id, ok := r.byCode[domain.NormalizeAccessCode(code)]
	var e *entry
	if ok {
		e = r.byID[id]
	}
	r.mu.RUnlock()
	if e == nil {
		return nil, domain.ErrContestNotFound
	}
	return e.snapshot()
}

func (r *contestRepository) ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]*domain.Contest, error) {
	return r.list(ctx, func(c *domain.Contest) bool { return c.OrganizerID == organizerID })
}

func (r *contestRepository) GetAll(ctx context.Context) ([]*domain.Contest, error) {
	return r.list(ctx, func(*domain.Contest) bool { return true })
}

func (r *contestRepository) Update(ctx context.Context, id uuid.UUID, fn func(*domain.Contest) error) (*domain.Contest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	e, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrContestNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, domain.ErrContestNotFound
	}

	draft := e.contest.Clone()
	if err := fn(draft); err != nil {
		return nil, err
	}
	// the access code and owner are fixed at creation
	draft.ID = e.contest.ID
	draft.AccessCode = e.contest.AccessCode
	draft.OrganizerID = e.contest.OrganizerID
	e.contest = draft
	return draft.Clone(), nil
}

func (r *contestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	e, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return domain.ErrContestNotFound
	}
	delete(r.byID, id)
	delete(r.byCode, e.code)
	r.mu.Unlock()

	e.mu.Lock()
	e.deleted = true
	e.contest = nil
	e.mu.Unlock()
	return nil
}

func (r *contestRepository) list(ctx context.Context, keep func(*domain.Contest) bool) ([]*domain.Contest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	entries := make([]*entry, 0, len(r.byID))
	for _, e := range r.byID {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	contests := make([]*domain.Contest, 0, len(entries))
	for _, e := range entries {
		c, err := e.snapshot()
		if err != nil {
			continue
		}
		if keep(c) {
			contests = append(contests, c)
		}
	}
	sort.Slice(contests, func(i, j int) bool {
		return contests[i].CreatedAt.Before(contests[j].CreatedAt)
	})
	return contests, nil
}

func (e *entry) snapshot() (*domain.Contest, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.deleted {
		return nil, domain.ErrContestNotFound
	}
	return e.contest.Clone(), nil
}
