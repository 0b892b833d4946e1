package enums

// InterviewStatus values come from the external interview API. The stored
// value mirrors whatever the API last reported.
type InterviewStatus string

const (
	InterviewStatusCreating       InterviewStatus = "creating"
	InterviewStatusProcessing     InterviewStatus = "processing"
	InterviewStatusPending        InterviewStatus = "pending"
	InterviewStatusCreatedPending InterviewStatus = "created-pending"
	InterviewStatusAnalyzing      InterviewStatus = "analyzing-interview"
	InterviewStatusCompleted      InterviewStatus = "completed"
)

func (s InterviewStatus) Terminal() bool {
	return s == InterviewStatusCompleted
}

func (s InterviewStatus) Valid() bool {
	switch s {
	case InterviewStatusCreating,
		InterviewStatusProcessing,
		InterviewStatusPending,
		InterviewStatusCreatedPending,
		InterviewStatusAnalyzing,
		InterviewStatusCompleted:
		return true
	default:
		return false
	}
}
