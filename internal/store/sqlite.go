package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/novadental/verify-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS patients (
	id           TEXT PRIMARY KEY,
	pms_ref      TEXT,
	first_name   TEXT NOT NULL,
	last_name    TEXT NOT NULL,
	carrier      TEXT,
	member_id    TEXT,
	group_number TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS transactions (
	id                    TEXT PRIMARY KEY,
	patient_id            TEXT NOT NULL REFERENCES patients(id),
	type                  TEXT NOT NULL,
	status                TEXT NOT NULL,
	start_time            DATETIME,
	end_time              DATETIME,
	eligibility_check     TEXT,
	benefits_verification TEXT,
	coverage_details      TEXT,
	raw_response          TEXT,
	data_verified         TEXT
);

CREATE TABLE IF NOT EXISTS coverage_records (
	id         TEXT PRIMARY KEY,
	patient_id TEXT NOT NULL REFERENCES patients(id),
	pass_id    TEXT NOT NULL,
	rows       TEXT NOT NULL,
	report     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_transactions_patient ON transactions(patient_id);
CREATE INDEX IF NOT EXISTS idx_transactions_patient_type_status ON transactions(patient_id, type, status);
CREATE INDEX IF NOT EXISTS idx_coverage_patient ON coverage_records(patient_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertPatient(ctx context.Context, p model.Patient) (*model.Patient, error) {
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.New().String()
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO patients (id, pms_ref, first_name, last_name, carrier, member_id, group_number, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			pms_ref = excluded.pms_ref,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			carrier = excluded.carrier,
			member_id = excluded.member_id,
			group_number = excluded.group_number,
			updated_at = excluded.updated_at`,
		p.ID, p.PMSRef, p.FirstName, p.LastName, p.Carrier, p.MemberID, p.GroupNum, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: upsert patient")
	}
	return &p, nil
}

func (s *SQLiteStore) GetPatient(ctx context.Context, id string) (*model.Patient, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, pms_ref, first_name, last_name, carrier, member_id, group_number, created_at, updated_at
		 FROM patients WHERE id = ?`, id)

	var p model.Patient
	err := row.Scan(&p.ID, &p.PMSRef, &p.FirstName, &p.LastName, &p.Carrier, &p.MemberID, &p.GroupNum, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("patient not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get patient")
	}
	return &p, nil
}

func (s *SQLiteStore) ListPatients(ctx context.Context) ([]model.Patient, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, pms_ref, first_name, last_name, carrier, member_id, group_number, created_at, updated_at
		 FROM patients ORDER BY last_name, first_name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list patients")
	}
	defer rows.Close()

	var patients []model.Patient
	for rows.Next() {
		var p model.Patient
		if err := rows.Scan(&p.ID, &p.PMSRef, &p.FirstName, &p.LastName, &p.Carrier, &p.MemberID, &p.GroupNum, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan patient")
		}
		patients = append(patients, p)
	}
	return patients, eris.Wrap(rows.Err(), "sqlite: list patients iterate")
}

func (s *SQLiteStore) CreateTransaction(ctx context.Context, tx model.Transaction) (*model.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	dataJSON, err := json.Marshal(tx.DataVerified)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal data verified")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, patient_id, type, status, start_time, end_time,
			eligibility_check, benefits_verification, coverage_details, raw_response, data_verified)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.PatientID, string(tx.Type), string(tx.Status), tx.StartTime, tx.EndTime,
		tx.EligibilityCheck, tx.BenefitsVerification, tx.CoverageDetails, tx.RawResponse, string(dataJSON),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert transaction")
	}
	return &tx, nil
}

func (s *SQLiteStore) FindWaiting(ctx context.Context, patientID string, typ model.TransactionType) (*model.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, patient_id, type, status, start_time, end_time,
			eligibility_check, benefits_verification, coverage_details, raw_response, data_verified
		 FROM transactions
		 WHERE patient_id = ? AND type = ? AND status = ?
		 ORDER BY start_time DESC LIMIT 1`,
		patientID, string(typ), string(model.TxWaiting),
	)
	tx, err := scanTransaction(row)
	if err == errNoTransaction {
		return nil, nil
	}
	return tx, err
}

func (s *SQLiteStore) CompleteTransaction(ctx context.Context, id string, status model.TransactionStatus, result *TransactionResult) error {
	if result == nil {
		result = &TransactionResult{}
	}
	dataJSON, err := json.Marshal(result.DataVerified)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal data verified")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET status = ?, end_time = ?,
			eligibility_check = ?, benefits_verification = ?, coverage_details = ?, raw_response = ?, data_verified = ?
		 WHERE id = ?`,
		string(status), time.Now().UTC(),
		result.EligibilityCheck, result.BenefitsVerification, result.CoverageDetails, result.RawResponse, string(dataJSON),
		id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete transaction %s", id)
	}
	return checkRowsAffected(res, "transaction", id)
}

func (s *SQLiteStore) ListTransactions(ctx context.Context, patientID string) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, patient_id, type, status, start_time, end_time,
			eligibility_check, benefits_verification, coverage_details, raw_response, data_verified
		 FROM transactions WHERE patient_id = ?`,
		patientID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list transactions")
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *tx)
	}
	return txns, eris.Wrap(rows.Err(), "sqlite: list transactions iterate")
}

func (s *SQLiteStore) SaveCoverage(ctx context.Context, rec model.CoverageRecord) (*model.CoverageRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	rowsJSON, err := json.Marshal(rec.Rows)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal coverage rows")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO coverage_records (id, patient_id, pass_id, rows, report, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.PatientID, rec.PassID, string(rowsJSON), rec.Report, rec.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert coverage record")
	}
	return &rec, nil
}

func (s *SQLiteStore) GetLatestCoverage(ctx context.Context, patientID string) (*model.CoverageRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, patient_id, pass_id, rows, report, created_at
		 FROM coverage_records WHERE patient_id = ?
		 ORDER BY created_at DESC LIMIT 1`,
		patientID,
	)

	var rec model.CoverageRecord
	var rowsJSON string
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.PassID, &rowsJSON, &rec.Report, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get latest coverage")
	}
	if err := json.Unmarshal([]byte(rowsJSON), &rec.Rows); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal coverage rows")
	}
	return &rec, nil
}

// helpers

var errNoTransaction = eris.New("transaction not found")

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTransaction(row scannable) (*model.Transaction, error) {
	var tx model.Transaction
	var typ, status string
	var start, end sql.NullTime
	var check, verification, details, raw sql.NullString
	var dataJSON sql.NullString

	err := row.Scan(&tx.ID, &tx.PatientID, &typ, &status, &start, &end,
		&check, &verification, &details, &raw, &dataJSON)
	if err == sql.ErrNoRows {
		return nil, errNoTransaction
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan transaction")
	}

	tx.Type = model.TransactionType(typ)
	tx.Status = model.TransactionStatus(status)
	if start.Valid {
		t := start.Time
		tx.StartTime = &t
	}
	if end.Valid {
		t := end.Time
		tx.EndTime = &t
	}
	tx.EligibilityCheck = check.String
	tx.BenefitsVerification = verification.String
	tx.CoverageDetails = details.String
	tx.RawResponse = raw.String
	if dataJSON.Valid && dataJSON.String != "" && dataJSON.String != "null" {
		if err := json.Unmarshal([]byte(dataJSON.String), &tx.DataVerified); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal data verified")
		}
	}
	return &tx, nil
}
