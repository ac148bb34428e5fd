package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewVerificationStatus_AllPending(t *testing.T) {
	status := NewVerificationStatus(DefaultStages())

	assert.Len(t, status.States, 4)
	for _, s := range status.Stages {
		assert.Equal(t, StatePending, status.State(s))
	}
	assert.Equal(t, StatePending, status.State(StageDocumentAnalysis))
}

func TestVerificationStatus_Completed(t *testing.T) {
	status := NewVerificationStatus(DefaultStages())
	assert.False(t, status.Completed())

	for _, s := range status.Stages {
		status.States[s] = StateCompleted
	}
	assert.True(t, status.Completed())

	empty := NewVerificationStatus(nil)
	assert.False(t, empty.Completed())
}

func TestVerificationStatus_Current(t *testing.T) {
	status := NewVerificationStatus(ExtendedStages())
	status.States[StageFetchPMS] = StateCompleted
	status.States[StageAPIVerification] = StateCompleted

	cur, ok := status.Current()
	assert.True(t, ok)
	assert.Equal(t, StageDocumentAnalysis, cur)

	for _, s := range status.Stages {
		status.States[s] = StateCompleted
	}
	cur, ok = status.Current()
	assert.True(t, ok)
	assert.Equal(t, StageSaveToPMS, cur)

	_, ok = NewVerificationStatus(nil).Current()
	assert.False(t, ok)
}

func TestTransaction_Terminal(t *testing.T) {
	assert.True(t, Transaction{Status: TxSuccess}.Terminal())
	assert.True(t, Transaction{Status: TxFailed}.Terminal())
	assert.False(t, Transaction{Status: TxWaiting}.Terminal())
}

func TestPatient_DisplayName(t *testing.T) {
	assert.Equal(t, "Rivera, Ana", Patient{FirstName: "Ana", LastName: "Rivera"}.DisplayName())
	assert.Equal(t, "Ana", Patient{FirstName: "Ana"}.DisplayName())
	assert.Equal(t, "Rivera", Patient{LastName: "Rivera"}.DisplayName())
}
