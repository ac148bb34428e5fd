package model

// Stage names one step of the verification pipeline.
type Stage string

const (
	StageFetchPMS         Stage = "fetch_pms"
	StageAPIVerification  Stage = "api_verification"
	StageDocumentAnalysis Stage = "document_analysis"
	StageAICall           Stage = "ai_analysis_and_call"
	StageSaveToPMS        Stage = "save_to_pms"
)

// StageState is the derived progress of a single stage.
type StageState string

const (
	StatePending    StageState = "pending"
	StateInProgress StageState = "in_progress"
	StateCompleted  StageState = "completed"
)

// DefaultStages is the four-stage pipeline most practices run.
func DefaultStages() []Stage {
	return []Stage{StageFetchPMS, StageAPIVerification, StageAICall, StageSaveToPMS}
}

// ExtendedStages additionally splits document analysis out of the call stage.
func ExtendedStages() []Stage {
	return []Stage{StageFetchPMS, StageAPIVerification, StageDocumentAnalysis, StageAICall, StageSaveToPMS}
}

// VerificationStatus is the derived per-stage progress vector for one
// patient. It is recomputed from the transaction log on every read and
// never persisted as a source of truth.
type VerificationStatus struct {
	Stages []Stage              `json:"stages"`
	States map[Stage]StageState `json:"states"`
}

// NewVerificationStatus returns a status vector with every stage pending.
func NewVerificationStatus(stages []Stage) VerificationStatus {
	states := make(map[Stage]StageState, len(stages))
	for _, s := range stages {
		states[s] = StatePending
	}
	return VerificationStatus{Stages: stages, States: states}
}

// State returns the derived state for a stage, defaulting to pending for
// stages outside the configured set.
func (v VerificationStatus) State(s Stage) StageState {
	if st, ok := v.States[s]; ok {
		return st
	}
	return StatePending
}

// Completed reports whether every configured stage finished.
func (v VerificationStatus) Completed() bool {
	for _, s := range v.Stages {
		if v.States[s] != StateCompleted {
			return false
		}
	}
	return len(v.Stages) > 0
}

// Current returns the first stage that has not completed, or the last
// stage when the whole pipeline is done. ok is false for an empty stage set.
func (v VerificationStatus) Current() (Stage, bool) {
	if len(v.Stages) == 0 {
		return "", false
	}
	for _, s := range v.Stages {
		if v.States[s] != StateCompleted {
			return s, true
		}
	}
	return v.Stages[len(v.Stages)-1], true
}
