package model

// Video status
type VideoStatus string

const (
	VideoStatusPending    VideoStatus = "pending"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusCompleted  VideoStatus = "completed"
	VideoStatusFailed     VideoStatus = "failed"
)

var ValidVideoStatuses = []VideoStatus{
	VideoStatusPending, VideoStatusProcessing, VideoStatusCompleted, VideoStatusFailed,
}

// Pipeline stages
type Stage string

const (
	StageStart      Stage = "start"
	StageGenerating Stage = "generating"
	StageCritiquing Stage = "critiquing"
	StageNarrating  Stage = "narrating"
	StageAssembling Stage = "assembling"
	StageCompleted  Stage = "completed"
	StageFailed     Stage = "failed"
)

// IsTerminal reports whether no further stage transitions can occur.
func (s Stage) IsTerminal() bool {
	return s == StageCompleted || s == StageFailed
}

// Progress entry status
type ProgressStatus string

const (
	ProgressStarted   ProgressStatus = "started"
	ProgressCompleted ProgressStatus = "completed"
	ProgressFailed    ProgressStatus = "failed"
)

// Critique decision
type Decision string

const (
	DecisionRetry    Decision = "retry"
	DecisionContinue Decision = "continue"
)
