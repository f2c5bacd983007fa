package domain

import (
	"time"

	"github.com/google/uuid"
)

type Participation struct {
	ContestID        uuid.UUID  `json:"contest_id"`
	ParticipantID    uuid.UUID  `json:"participant_id"`
	DisplayName      string     `json:"display_name,omitempty"`
	JoinedAt         time.Time  `json:"joined_at"`
	HasVoted         bool       `json:"has_voted"`
	VotedCandidateID *uuid.UUID `json:"-"`
	VotedAt          *time.Time `json:"voted_at,omitempty"`
}

func (p *Participation) Clone() *Participation {
	cp := *p
	if p.VotedCandidateID != nil {
		id := *p.VotedCandidateID
		cp.VotedCandidateID = &id
	}
	if p.VotedAt != nil {
		t := *p.VotedAt
		cp.VotedAt = &t
	}
	return &cp
}
