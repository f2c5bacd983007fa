package domain

import (
	"time"

	"github.com/google/uuid"
)

type CandidateResult struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category,omitempty"`
	VoteCount   int64     `json:"vote_count"`
	Percentage  int       `json:"percentage"`
}

type ContestResults struct {
	ContestID         uuid.UUID         `json:"contest_id"`
	TotalVotes        int64             `json:"total_votes"`
	TotalParticipants int               `json:"total_participants"`
	Candidates        []CandidateResult `json:"candidates"`
	GeneratedAt       time.Time         `json:"generated_at"`
}

// AuditReport compares the tally against the ledger of one contest.
type AuditReport struct {
	ContestID  uuid.UUID `json:"contest_id"`
	TotalVotes int64     `json:"total_votes"`
	Voted      int64     `json:"voted"`
}

func (r AuditReport) Consistent() bool {
	return r.TotalVotes == r.Voted
}
