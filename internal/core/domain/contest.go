package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ContestType string

const (
	ContestTypeClassElection ContestType = "class-election"
	ContestTypeTeacherAward  ContestType = "teacher-award"
	ContestTypeSportsCaptain ContestType = "sports-captain"
	ContestTypeCulturalEvent ContestType = "cultural-event"
	ContestTypeCustom        ContestType = "custom"
)

// ParseContestType accepts the known categories; an empty value means custom.
func ParseContestType(s string) (ContestType, error) {
	switch t := ContestType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return ContestTypeCustom, nil
	case ContestTypeClassElection, ContestTypeTeacherAward, ContestTypeSportsCaptain,
		ContestTypeCulturalEvent, ContestTypeCustom:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown contest type %q", ErrValidation, s)
	}
}

type Contest struct {
	ID            uuid.UUID                    `json:"id"`
	Title         string                       `json:"title"`
	Description   string                       `json:"description"`
	Type          ContestType                  `json:"type"`
	Venue         string                       `json:"venue,omitempty"`
	OrganizerID   uuid.UUID                    `json:"organizer_id"`
	OrganizerName string                       `json:"organizer_name,omitempty"`
	StartDate     time.Time                    `json:"start_date"`
	EndDate       time.Time                    `json:"end_date"`
	AccessCode    string                       `json:"access_code"`
	IsActive      bool                         `json:"is_active"`
	ActivatedAt   *time.Time                   `json:"activated_at,omitempty"`
	Candidates    []Candidate                  `json:"candidates"`
	Participants  map[uuid.UUID]*Participation `json:"-"`
	CreatedAt     time.Time                    `json:"created_at"`
}

type Candidate struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	VoteCount   int64     `json:"vote_count"`
}

// NormalizeAccessCode is applied to codes on both write and read.
func NormalizeAccessCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// AcceptsVotes reports whether joins and votes are allowed at now.
func (c *Contest) AcceptsVotes(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	return !now.Before(c.StartDate) && !now.After(c.EndDate)
}

// Locked reports whether the contest was ever activated. Candidates and
// details are frozen from then on, also after a deactivation.
func (c *Contest) Locked() bool {
	return c.IsActive || c.ActivatedAt != nil
}

func (c *Contest) Candidate(id uuid.UUID) (*Candidate, bool) {
	for i := range c.Candidates {
		if c.Candidates[i].ID == id {
			return &c.Candidates[i], true
		}
	}
	return nil, false
}

func (c *Contest) TotalVotes() int64 {
	var total int64
	for _, cand := range c.Candidates {
		total += cand.VoteCount
	}
	return total
}

func (c *Contest) VotedCount() int64 {
	var n int64
	for _, p := range c.Participants {
		if p.HasVoted {
			n++
		}
	}
	return n
}

// Clone returns a deep copy; repositories hand clones to mutators so a
// failed mutation never leaks into the stored aggregate.
func (c *Contest) Clone() *Contest {
	cp := *c
	if c.ActivatedAt != nil {
		t := *c.ActivatedAt
		cp.ActivatedAt = &t
	}
	cp.Candidates = append([]Candidate(nil), c.Candidates...)
	cp.Participants = make(map[uuid.UUID]*Participation, len(c.Participants))
	for id, p := range c.Participants {
		cp.Participants[id] = p.Clone()
	}
	return &cp
}
