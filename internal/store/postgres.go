package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/novadental/verify-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses, also satisfied by
// pgxmock for unit testing.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS patients (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	pms_ref      TEXT,
	first_name   TEXT NOT NULL,
	last_name    TEXT NOT NULL,
	carrier      TEXT,
	member_id    TEXT,
	group_number TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS transactions (
	id                    TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	patient_id            TEXT NOT NULL REFERENCES patients(id),
	type                  TEXT NOT NULL,
	status                TEXT NOT NULL,
	start_time            TIMESTAMPTZ,
	end_time              TIMESTAMPTZ,
	eligibility_check     TEXT,
	benefits_verification TEXT,
	coverage_details      TEXT,
	raw_response          JSONB,
	data_verified         JSONB
);

CREATE TABLE IF NOT EXISTS coverage_records (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	patient_id TEXT NOT NULL REFERENCES patients(id),
	pass_id    TEXT NOT NULL,
	rows       JSONB NOT NULL,
	report     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_transactions_patient ON transactions(patient_id);
CREATE INDEX IF NOT EXISTS idx_transactions_patient_type_status ON transactions(patient_id, type, status);
CREATE INDEX IF NOT EXISTS idx_coverage_patient ON coverage_records(patient_id);
CREATE INDEX IF NOT EXISTS idx_coverage_patient_created ON coverage_records(patient_id, created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertPatient(ctx context.Context, p model.Patient) (*model.Patient, error) {
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.New().String()
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO patients (id, pms_ref, first_name, last_name, carrier, member_id, group_number, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
			pms_ref = EXCLUDED.pms_ref,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			carrier = EXCLUDED.carrier,
			member_id = EXCLUDED.member_id,
			group_number = EXCLUDED.group_number,
			updated_at = EXCLUDED.updated_at`,
		p.ID, p.PMSRef, p.FirstName, p.LastName, p.Carrier, p.MemberID, p.GroupNum, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: upsert patient")
	}
	return &p, nil
}

func (s *PostgresStore) GetPatient(ctx context.Context, id string) (*model.Patient, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, pms_ref, first_name, last_name, carrier, member_id, group_number, created_at, updated_at
		 FROM patients WHERE id = $1`, id)

	var p model.Patient
	err := row.Scan(&p.ID, &p.PMSRef, &p.FirstName, &p.LastName, &p.Carrier, &p.MemberID, &p.GroupNum, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("patient not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get patient")
	}
	return &p, nil
}

func (s *PostgresStore) ListPatients(ctx context.Context) ([]model.Patient, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, pms_ref, first_name, last_name, carrier, member_id, group_number, created_at, updated_at
		 FROM patients ORDER BY last_name, first_name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list patients")
	}
	defer rows.Close()

	var patients []model.Patient
	for rows.Next() {
		var p model.Patient
		if err := rows.Scan(&p.ID, &p.PMSRef, &p.FirstName, &p.LastName, &p.Carrier, &p.MemberID, &p.GroupNum, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan patient")
		}
		patients = append(patients, p)
	}
	return patients, eris.Wrap(rows.Err(), "postgres: list patients iterate")
}

func (s *PostgresStore) CreateTransaction(ctx context.Context, tx model.Transaction) (*model.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	dataJSON, err := json.Marshal(tx.DataVerified)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal data verified")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO transactions (id, patient_id, type, status, start_time, end_time,
			eligibility_check, benefits_verification, coverage_details, raw_response, data_verified)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		tx.ID, tx.PatientID, string(tx.Type), string(tx.Status), tx.StartTime, tx.EndTime,
		tx.EligibilityCheck, tx.BenefitsVerification, tx.CoverageDetails, nullableJSON(tx.RawResponse), string(dataJSON),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert transaction")
	}
	return &tx, nil
}

func (s *PostgresStore) FindWaiting(ctx context.Context, patientID string, typ model.TransactionType) (*model.Transaction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, patient_id, type, status, start_time, end_time,
			eligibility_check, benefits_verification, coverage_details, raw_response, data_verified
		 FROM transactions
		 WHERE patient_id = $1 AND type = $2 AND status = $3
		 ORDER BY start_time DESC NULLS LAST LIMIT 1`,
		patientID, string(typ), string(model.TxWaiting),
	)
	tx, err := scanPgTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find waiting transaction")
	}
	return tx, nil
}

func (s *PostgresStore) CompleteTransaction(ctx context.Context, id string, status model.TransactionStatus, result *TransactionResult) error {
	if result == nil {
		result = &TransactionResult{}
	}
	dataJSON, err := json.Marshal(result.DataVerified)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal data verified")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE transactions SET status = $1, end_time = $2,
			eligibility_check = $3, benefits_verification = $4, coverage_details = $5, raw_response = $6, data_verified = $7
		 WHERE id = $8`,
		string(status), time.Now().UTC(),
		result.EligibilityCheck, result.BenefitsVerification, result.CoverageDetails, nullableJSON(result.RawResponse), string(dataJSON),
		id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete transaction %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("transaction not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, patientID string) ([]model.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, patient_id, type, status, start_time, end_time,
			eligibility_check, benefits_verification, coverage_details, raw_response, data_verified
		 FROM transactions WHERE patient_id = $1`,
		patientID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list transactions")
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		tx, err := scanPgTransaction(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan transaction")
		}
		txns = append(txns, *tx)
	}
	return txns, eris.Wrap(rows.Err(), "postgres: list transactions iterate")
}

func (s *PostgresStore) SaveCoverage(ctx context.Context, rec model.CoverageRecord) (*model.CoverageRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	rowsJSON, err := json.Marshal(rec.Rows)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal coverage rows")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO coverage_records (id, patient_id, pass_id, rows, report, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.PatientID, rec.PassID, string(rowsJSON), rec.Report, rec.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert coverage record")
	}
	return &rec, nil
}

func (s *PostgresStore) GetLatestCoverage(ctx context.Context, patientID string) (*model.CoverageRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, patient_id, pass_id, rows, report, created_at
		 FROM coverage_records WHERE patient_id = $1
		 ORDER BY created_at DESC LIMIT 1`,
		patientID,
	)

	var rec model.CoverageRecord
	var rowsJSON []byte
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.PassID, &rowsJSON, &rec.Report, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get latest coverage")
	}
	if err := json.Unmarshal(rowsJSON, &rec.Rows); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal coverage rows")
	}
	return &rec, nil
}

// nullableJSON maps an empty payload to NULL so JSONB columns never see
// an empty string.
func nullableJSON(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanPgTransaction(row pgx.Row) (*model.Transaction, error) {
	var tx model.Transaction
	var typ, status string
	var start, end *time.Time
	var check, verification, details, raw *string
	var dataJSON []byte

	err := row.Scan(&tx.ID, &tx.PatientID, &typ, &status, &start, &end,
		&check, &verification, &details, &raw, &dataJSON)
	if err != nil {
		return nil, err
	}

	tx.Type = model.TransactionType(typ)
	tx.Status = model.TransactionStatus(status)
	tx.StartTime = start
	tx.EndTime = end
	if check != nil {
		tx.EligibilityCheck = *check
	}
	if verification != nil {
		tx.BenefitsVerification = *verification
	}
	if details != nil {
		tx.CoverageDetails = *details
	}
	if raw != nil {
		tx.RawResponse = *raw
	}
	if len(dataJSON) > 0 && string(dataJSON) != "null" {
		if err := json.Unmarshal(dataJSON, &tx.DataVerified); err != nil {
			return nil, eris.Wrap(err, "unmarshal data verified")
		}
	}
	return &tx, nil
}
