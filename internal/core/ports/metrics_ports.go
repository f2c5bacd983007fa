package ports

// MetricsRecorder receives domain events worth counting.
type MetricsRecorder interface {
	ContestCreated()
	ParticipantJoined()
	VoteCast()
	Rejected(operation string, err error)
}

type NopMetrics struct{}

func (NopMetrics) ContestCreated()        {}
func (NopMetrics) ParticipantJoined()     {}
func (NopMetrics) VoteCast()              {}
func (NopMetrics) Rejected(string, error) {}
