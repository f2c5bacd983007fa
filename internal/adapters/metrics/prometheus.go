package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vncsmyrnk/contestvote/internal/core/domain"
	"github.com/vncsmyrnk/contestvote/internal/core/ports"
)

type Recorder struct {
	contestsCreated prometheus.Counter
	joins           prometheus.Counter
	votes           prometheus.Counter
	rejections      *prometheus.CounterVec
}

func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		contestsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "contestvote",
			Name:      "contests_created_total",
			Help:      "Contests created.",
		}),
		joins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "contestvote",
			Name:      "participants_joined_total",
			Help:      "First-time joins accepted by the access gate.",
		}),
		votes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "contestvote",
			Name:      "votes_cast_total",
			Help:      "Votes recorded in the ledger.",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contestvote",
			Name:      "rejections_total",
			Help:      "Join and vote attempts rejected, by reason.",
		}, []string{"operation", "reason"}),
	}

	for _, c := range []prometheus.Collector{r.contestsCreated, r.joins, r.votes, r.rejections} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) ContestCreated()    { r.contestsCreated.Inc() }
func (r *Recorder) ParticipantJoined() { r.joins.Inc() }
func (r *Recorder) VoteCast()          { r.votes.Inc() }

func (r *Recorder) Rejected(operation string, err error) {
	r.rejections.WithLabelValues(operation, reason(err)).Inc()
}

func reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, domain.ErrContestInactive):
		return "inactive"
	case errors.Is(err, domain.ErrContestNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrNotJoined):
		return "not_joined"
	case errors.Is(err, domain.ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, domain.ErrUnknownCandidate):
		return "unknown_candidate"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}

var _ ports.MetricsRecorder = (*Recorder)(nil)
