// Package pgstore provides a PostgreSQL implementation of triage.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/triageline/internal/classify"
	"github.com/linnemanlabs/triageline/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/triageline/internal/triage/pgstore")

//go:embed schema.sql
var schema string

// Store persists admitted patients in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on pool and returns a ready Store. The caller
// owns the pool and closes it.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const patientColumns = `id, name, age, gender, heart_rate, blood_pressure, spo2, temperature,
	symptoms, arrival_time, priority, risk_score, explanation, flags, contributions,
	advisory_status, advisory, advisory_model, advisory_tokens, advisory_completed_at`

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", op),
	))
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Get retrieves a patient by ID.
func (s *Store) Get(ctx context.Context, id string) (*triage.Patient, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.Get", "SELECT")
	defer span.End()

	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	p, err := scanPatient(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		fail(span, err)
		return nil, false, err
	}
	return p, true, nil
}

// Put inserts or replaces a patient.
func (s *Store) Put(ctx context.Context, p *triage.Patient) error {
	ctx, span := startSpan(ctx, "pgstore.Put", "UPSERT")
	defer span.End()

	flagsJSON, err := json.Marshal(nonNil(p.Flags))
	if err != nil {
		fail(span, err)
		return fmt.Errorf("marshal flags: %w", err)
	}
	contribJSON, err := json.Marshal(nonNil(p.Contributions))
	if err != nil {
		fail(span, err)
		return fmt.Errorf("marshal contributions: %w", err)
	}

	var completedAt *time.Time
	if !p.AdvisoryCompletedAt.IsZero() {
		completedAt = &p.AdvisoryCompletedAt
	}

	query := `INSERT INTO patients (` + patientColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	ON CONFLICT (id) DO UPDATE SET
		name                  = EXCLUDED.name,
		age                   = EXCLUDED.age,
		gender                = EXCLUDED.gender,
		heart_rate            = EXCLUDED.heart_rate,
		blood_pressure        = EXCLUDED.blood_pressure,
		spo2                  = EXCLUDED.spo2,
		temperature           = EXCLUDED.temperature,
		symptoms              = EXCLUDED.symptoms,
		arrival_time          = EXCLUDED.arrival_time,
		priority              = EXCLUDED.priority,
		risk_score            = EXCLUDED.risk_score,
		explanation           = EXCLUDED.explanation,
		flags                 = EXCLUDED.flags,
		contributions         = EXCLUDED.contributions,
		advisory_status       = EXCLUDED.advisory_status,
		advisory              = EXCLUDED.advisory,
		advisory_model        = EXCLUDED.advisory_model,
		advisory_tokens       = EXCLUDED.advisory_tokens,
		advisory_completed_at = EXCLUDED.advisory_completed_at`

	_, err = s.pool.Exec(ctx, query,
		p.ID, p.Name, p.Age, p.Gender,
		p.Vitals.HeartRate, p.Vitals.BloodPressure, p.Vitals.SpO2, p.Vitals.Temperature,
		p.Symptoms, p.ArrivalTime, int(p.Priority), p.RiskScore, p.Explanation,
		flagsJSON, contribJSON,
		string(p.AdvisoryStatus), p.Advisory, p.AdvisoryModel, p.AdvisoryTokens, completedAt,
	)
	if err != nil {
		fail(span, err)
		return fmt.Errorf("upsert patient: %w", err)
	}
	return nil
}

// Delete removes a patient and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	ctx, span := startSpan(ctx, "pgstore.Delete", "DELETE")
	defer span.End()

	tag, err := s.pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		fail(span, err)
		return false, fmt.Errorf("delete patient: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Ahead counts the patients queued before p: more urgent, or equally urgent
// and earlier, with ID as the final tie-break. IDs compare bytewise to match
// triage.CompareQueue.
func (s *Store) Ahead(ctx context.Context, p *triage.Patient) (int, error) {
	ctx, span := startSpan(ctx, "pgstore.Ahead", "SELECT")
	defer span.End()

	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM patients
	WHERE priority < $1
	   OR (priority = $1 AND arrival_time < $2)
	   OR (priority = $1 AND arrival_time = $2 AND id COLLATE "C" < $3)`,
		int(p.Priority), p.ArrivalTime, p.ID,
	).Scan(&n)
	if err != nil {
		fail(span, err)
		return 0, fmt.Errorf("count patients ahead: %w", err)
	}
	return n, nil
}

// List returns every stored patient in queue order.
func (s *Store) List(ctx context.Context) ([]*triage.Patient, error) {
	ctx, span := startSpan(ctx, "pgstore.List", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT `+patientColumns+` FROM patients ORDER BY priority, arrival_time, id`)
	if err != nil {
		fail(span, err)
		return nil, fmt.Errorf("query patients: %w", err)
	}
	defer rows.Close()

	var out []*triage.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			fail(span, err)
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		fail(span, err)
		return nil, fmt.Errorf("iterate patients: %w", err)
	}
	span.SetAttributes(attribute.Int("db.rows", len(out)))
	return out, nil
}

// scanPatient scans one row. pgx.ErrNoRows is returned unwrapped.
func scanPatient(row pgx.Row) (*triage.Patient, error) {
	var (
		p           triage.Patient
		priority    int16
		status      string
		flagsJSON   []byte
		contribJSON []byte
		completedAt *time.Time
	)

	err := row.Scan(
		&p.ID, &p.Name, &p.Age, &p.Gender,
		&p.Vitals.HeartRate, &p.Vitals.BloodPressure, &p.Vitals.SpO2, &p.Vitals.Temperature,
		&p.Symptoms, &p.ArrivalTime, &priority, &p.RiskScore, &p.Explanation,
		&flagsJSON, &contribJSON,
		&status, &p.Advisory, &p.AdvisoryModel, &p.AdvisoryTokens, &completedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	p.Priority = classify.Priority(priority)
	p.AdvisoryStatus = triage.Status(status)
	p.ArrivalTime = p.ArrivalTime.UTC()
	if completedAt != nil {
		p.AdvisoryCompletedAt = completedAt.UTC()
	}

	if err := json.Unmarshal(flagsJSON, &p.Flags); err != nil {
		return nil, fmt.Errorf("unmarshal flags: %w", err)
	}
	if err := json.Unmarshal(contribJSON, &p.Contributions); err != nil {
		return nil, fmt.Errorf("unmarshal contributions: %w", err)
	}
	return &p, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
