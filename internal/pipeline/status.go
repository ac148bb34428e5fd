// Package pipeline holds the verification core: the status deriver that
// folds a patient's transaction log into a per-stage progress vector,
// and the benefit normalizer that maps a raw eligibility payload onto
// the verification catalog.
package pipeline

import (
	"sort"

	"github.com/novadental/verify-cli/internal/model"
)

// canonicalOrder fixes the upstream/downstream relationship between
// stages regardless of which subset a caller's schema configures.
var canonicalOrder = []model.Stage{
	model.StageFetchPMS,
	model.StageAPIVerification,
	model.StageDocumentAnalysis,
	model.StageAICall,
	model.StageSaveToPMS,
}

type transitionKey struct {
	Type   model.TransactionType
	Status model.TransactionStatus
}

// transition is one derived stage update. Target is set to State;
// CompleteUpstream additionally marks every canonical stage ahead of
// Target completed, since a downstream attempt implies the upstream
// stages already ran even when the log never recorded them.
type transition struct {
	Target           model.Stage
	State            model.StageState
	CompleteUpstream bool
}

// transitions maps (transaction type, outcome) to stage updates. FAILED
// outcomes and unknown types deliberately have no entry: they leave the
// derived state where the previous transactions put it.
var transitions = map[transitionKey]transition{
	{model.TxFetch, model.TxWaiting}: {Target: model.StageFetchPMS, State: model.StateInProgress},
	{model.TxFetch, model.TxSuccess}: {Target: model.StageFetchPMS, State: model.StateCompleted},

	{model.TxAPI, model.TxWaiting}: {Target: model.StageAPIVerification, State: model.StateInProgress, CompleteUpstream: true},
	{model.TxAPI, model.TxSuccess}: {Target: model.StageAPIVerification, State: model.StateCompleted, CompleteUpstream: true},
	{model.TxAPI, model.TxPartial}: {Target: model.StageAPIVerification, State: model.StateCompleted, CompleteUpstream: true},

	// CALL and FAX drive the same downstream stage. An incoming fax is
	// the secondary path carriers use when they refuse phone AI.
	{model.TxCall, model.TxWaiting}: {Target: model.StageAICall, State: model.StateInProgress, CompleteUpstream: true},
	{model.TxCall, model.TxSuccess}: {Target: model.StageAICall, State: model.StateCompleted, CompleteUpstream: true},
	{model.TxCall, model.TxPartial}: {Target: model.StageAICall, State: model.StateCompleted, CompleteUpstream: true},
	{model.TxFax, model.TxWaiting}:  {Target: model.StageAICall, State: model.StateInProgress, CompleteUpstream: true},
	{model.TxFax, model.TxSuccess}:  {Target: model.StageAICall, State: model.StateCompleted, CompleteUpstream: true},
	{model.TxFax, model.TxPartial}:  {Target: model.StageAICall, State: model.StateCompleted, CompleteUpstream: true},

	{model.TxSave, model.TxWaiting}: {Target: model.StageSaveToPMS, State: model.StateInProgress, CompleteUpstream: true},
	{model.TxSave, model.TxSuccess}: {Target: model.StageSaveToPMS, State: model.StateCompleted, CompleteUpstream: true},
}

// DeriveStatus folds a patient's transactions into a stage progress
// vector. Input order does not matter: transactions are sorted by
// StartTime, with missing timestamps pushed to the end so an undated
// row can never retroactively overwrite earlier-derived state. The fold
// is last-write-wins per stage. Total function: never fails, unknown
// transaction types are skipped, empty input leaves every stage pending.
func DeriveStatus(txns []model.Transaction, stages []model.Stage) model.VerificationStatus {
	if len(stages) == 0 {
		stages = model.DefaultStages()
	}
	status := model.NewVerificationStatus(stages)

	sorted := make([]model.Transaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].StartTime, sorted[j].StartTime
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})

	for _, tx := range sorted {
		tr, ok := transitions[transitionKey{tx.Type, tx.Status}]
		if !ok {
			continue
		}
		applyTransition(status, tr)
	}
	return status
}

func applyTransition(status model.VerificationStatus, tr transition) {
	if tr.CompleteUpstream {
		for _, s := range canonicalOrder {
			if s == tr.Target {
				break
			}
			if _, configured := status.States[s]; configured {
				status.States[s] = model.StateCompleted
			}
		}
	}
	if _, configured := status.States[tr.Target]; configured {
		status.States[tr.Target] = tr.State
	}
}
