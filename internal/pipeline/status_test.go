package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/novadental/verify-cli/internal/model"
)

func ts(offsetMin int) *time.Time {
	t := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC).Add(time.Duration(offsetMin) * time.Minute)
	return &t
}

func TestDeriveStatus_Empty(t *testing.T) {
	status := DeriveStatus(nil, nil)

	for _, s := range model.DefaultStages() {
		assert.Equal(t, model.StatePending, status.State(s))
	}
	assert.False(t, status.Completed())
}

func TestDeriveStatus_FetchSuccess(t *testing.T) {
	txns := []model.Transaction{
		{Type: model.TxFetch, Status: model.TxSuccess, StartTime: ts(0)},
	}

	status := DeriveStatus(txns, nil)

	assert.Equal(t, model.StateCompleted, status.State(model.StageFetchPMS))
	assert.Equal(t, model.StatePending, status.State(model.StageAPIVerification))
	assert.Equal(t, model.StatePending, status.State(model.StageAICall))
	assert.Equal(t, model.StatePending, status.State(model.StageSaveToPMS))
}

func TestDeriveStatus_APIWaitingImpliesFetchDone(t *testing.T) {
	txns := []model.Transaction{
		{Type: model.TxFetch, Status: model.TxSuccess, StartTime: ts(0)},
		{Type: model.TxAPI, Status: model.TxWaiting, StartTime: ts(1)},
	}

	status := DeriveStatus(txns, nil)

	assert.Equal(t, model.StateCompleted, status.State(model.StageFetchPMS))
	assert.Equal(t, model.StateInProgress, status.State(model.StageAPIVerification))
}

func TestDeriveStatus_SaveAloneCompletesEverything(t *testing.T) {
	// A gapped log with only the final stage recorded: the deriver
	// trusts the highest-observed stage.
	txns := []model.Transaction{
		{Type: model.TxSave, Status: model.TxSuccess, StartTime: ts(30)},
	}

	status := DeriveStatus(txns, nil)

	for _, s := range model.DefaultStages() {
		assert.Equal(t, model.StateCompleted, status.State(s), "stage %s", s)
	}
	assert.True(t, status.Completed())
}

func TestDeriveStatus_CallAndFaxDriveSameStage(t *testing.T) {
	for _, typ := range []model.TransactionType{model.TxCall, model.TxFax} {
		txns := []model.Transaction{
			{Type: typ, Status: model.TxPartial, StartTime: ts(0)},
		}
		status := DeriveStatus(txns, nil)

		assert.Equal(t, model.StateCompleted, status.State(model.StageFetchPMS), "type %s", typ)
		assert.Equal(t, model.StateCompleted, status.State(model.StageAPIVerification), "type %s", typ)
		assert.Equal(t, model.StateCompleted, status.State(model.StageAICall), "type %s", typ)
		assert.Equal(t, model.StatePending, status.State(model.StageSaveToPMS), "type %s", typ)
	}
}

func TestDeriveStatus_SortsByStartTime(t *testing.T) {
	// Delivered out of order: the completed API result arrives before
	// the older in-flight API row in the slice. Chronological order must
	// win, so the final state is completed.
	txns := []model.Transaction{
		{Type: model.TxAPI, Status: model.TxSuccess, StartTime: ts(10)},
		{Type: model.TxAPI, Status: model.TxWaiting, StartTime: ts(5)},
	}

	status := DeriveStatus(txns, nil)

	assert.Equal(t, model.StateCompleted, status.State(model.StageAPIVerification))
}

func TestDeriveStatus_MissingStartTimeSortsLast(t *testing.T) {
	// An undated Waiting row must not be treated as the earliest event:
	// it sorts last and therefore overrides, not gets overridden.
	txns := []model.Transaction{
		{Type: model.TxAPI, Status: model.TxWaiting, StartTime: nil},
		{Type: model.TxAPI, Status: model.TxSuccess, StartTime: ts(0)},
	}

	status := DeriveStatus(txns, nil)

	assert.Equal(t, model.StateInProgress, status.State(model.StageAPIVerification))
}

func TestDeriveStatus_UnknownTypeIgnored(t *testing.T) {
	txns := []model.Transaction{
		{Type: model.TxFetch, Status: model.TxSuccess, StartTime: ts(0)},
		{Type: "OCR", Status: model.TxSuccess, StartTime: ts(1)},
	}

	status := DeriveStatus(txns, nil)

	assert.Equal(t, model.StateCompleted, status.State(model.StageFetchPMS))
	assert.Equal(t, model.StatePending, status.State(model.StageAPIVerification))
}

func TestDeriveStatus_FailedLeavesStateAlone(t *testing.T) {
	txns := []model.Transaction{
		{Type: model.TxAPI, Status: model.TxWaiting, StartTime: ts(0)},
		{Type: model.TxAPI, Status: model.TxFailed, StartTime: ts(1)},
	}

	status := DeriveStatus(txns, nil)

	assert.Equal(t, model.StateInProgress, status.State(model.StageAPIVerification))
}

func TestDeriveStatus_ExtendedStages(t *testing.T) {
	txns := []model.Transaction{
		{Type: model.TxCall, Status: model.TxWaiting, StartTime: ts(0)},
	}

	status := DeriveStatus(txns, model.ExtendedStages())

	// Document analysis sits upstream of the call stage, so an in-flight
	// call implies it finished.
	assert.Equal(t, model.StateCompleted, status.State(model.StageDocumentAnalysis))
	assert.Equal(t, model.StateInProgress, status.State(model.StageAICall))
	assert.Equal(t, model.StatePending, status.State(model.StageSaveToPMS))
}

func TestDeriveStatus_Deterministic(t *testing.T) {
	txns := []model.Transaction{
		{Type: model.TxFetch, Status: model.TxSuccess, StartTime: ts(0)},
		{Type: model.TxAPI, Status: model.TxPartial, StartTime: ts(2)},
		{Type: model.TxCall, Status: model.TxWaiting, StartTime: ts(4)},
	}

	first := DeriveStatus(txns, nil)
	second := DeriveStatus(txns, nil)

	assert.Equal(t, first.States, second.States)
}

func TestDeriveStatus_DoesNotMutateInput(t *testing.T) {
	txns := []model.Transaction{
		{Type: model.TxAPI, Status: model.TxSuccess, StartTime: ts(5)},
		{Type: model.TxFetch, Status: model.TxSuccess, StartTime: ts(0)},
	}

	DeriveStatus(txns, nil)

	// Input slice order is untouched; sorting happens on a copy.
	assert.Equal(t, model.TxAPI, txns[0].Type)
	assert.Equal(t, model.TxFetch, txns[1].Type)
}

func TestDeriveStatus_PrefixMonotonicity(t *testing.T) {
	txns := []model.Transaction{
		{Type: model.TxFetch, Status: model.TxSuccess, StartTime: ts(0)},
		{Type: model.TxAPI, Status: model.TxSuccess, StartTime: ts(1)},
		{Type: model.TxCall, Status: model.TxSuccess, StartTime: ts(2)},
		{Type: model.TxSave, Status: model.TxWaiting, StartTime: ts(3)},
		{Type: model.TxSave, Status: model.TxSuccess, StartTime: ts(4)},
	}

	prev := DeriveStatus(nil, nil)
	for i := 1; i <= len(txns); i++ {
		next := DeriveStatus(txns[:i], nil)
		newTx := txns[i-1]

		for _, s := range model.DefaultStages() {
			if prev.State(s) != model.StateCompleted {
				continue
			}
			// A completed stage only moves if the new transaction
			// explicitly targets it.
			tr, ok := transitions[transitionKey{newTx.Type, newTx.Status}]
			if ok && tr.Target == s {
				continue
			}
			assert.Equal(t, model.StateCompleted, next.State(s),
				"stage %s regressed after txn %d", s, i)
		}
		prev = next
	}
}

func TestVerificationStatus_Current(t *testing.T) {
	txns := []model.Transaction{
		{Type: model.TxAPI, Status: model.TxSuccess, StartTime: ts(0)},
	}

	status := DeriveStatus(txns, nil)

	cur, ok := status.Current()
	assert.True(t, ok)
	assert.Equal(t, model.StageAICall, cur)
}
