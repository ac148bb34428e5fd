package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/novadental/verify-cli/internal/model"
	"github.com/novadental/verify-cli/internal/pipeline"
)

func TestFormatStatus(t *testing.T) {
	patient := model.Patient{ID: "pat-1", FirstName: "Maria", LastName: "Rivera"}
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	txns := []model.Transaction{
		{Type: model.TxFetch, Status: model.TxSuccess, StartTime: &start},
	}
	status := pipeline.DeriveStatus(txns, model.DefaultStages())

	var buf bytes.Buffer
	formatStatus(&buf, patient, status, len(txns))
	out := buf.String()

	assert.Contains(t, out, "Rivera, Maria")
	assert.Contains(t, out, "fetch_pms")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "<- current")
	assert.NotContains(t, out, "Pipeline complete.")
}

func TestFormatStatusComplete(t *testing.T) {
	patient := model.Patient{ID: "pat-1", LastName: "Rivera"}
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var txns []model.Transaction
	for i, typ := range []model.TransactionType{model.TxFetch, model.TxAPI, model.TxCall, model.TxSave} {
		ts := start.Add(time.Duration(i) * time.Minute)
		txns = append(txns, model.Transaction{Type: typ, Status: model.TxSuccess, StartTime: &ts})
	}
	status := pipeline.DeriveStatus(txns, model.DefaultStages())

	var buf bytes.Buffer
	formatStatus(&buf, patient, status, len(txns))

	assert.Contains(t, buf.String(), "Pipeline complete.")
	assert.NotContains(t, buf.String(), "<- current")
}
