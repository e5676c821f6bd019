// Package audit provides the ClickHouse decision audit trail.
// Every decision the engines emit is recorded for compliance history
// and analytics; the write path is best-effort and never blocks or
// fails a request.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Operation identifies which engine produced a record.
type Operation string

const (
	OpGasAdvise        Operation = "gas_advise"
	OpSwapPrice        Operation = "swap_price"
	OpComplianceAssess Operation = "compliance_assess"
)

// Record is one audited decision.
type Record struct {
	ID         uuid.UUID `json:"id"`
	Operation  Operation `json:"operation"`
	Verdict    string    `json:"verdict"`
	Subject    string    `json:"subject"` // category, direction, or wallet address
	ValueUSD   float64   `json:"value_usd"`
	RiskScore  int32     `json:"risk_score,omitempty"` // compliance only
	Confidence float64   `json:"confidence"`
	Degraded   bool      `json:"degraded"`
	SnapshotID uuid.UUID `json:"snapshot_id"`
	Reasoning  string    `json:"reasoning"`
	CreatedAt  time.Time `json:"created_at"`
}

// Config holds ClickHouse connection configuration.
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

// DefaultConfig returns default development configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     9000,
		Database: "bezhas",
		Username: "default",
		Password: "",
	}
}

// Store writes decision records to ClickHouse.
type Store struct {
	conn   clickhouse.Conn
	logger zerolog.Logger
}

// NewStore connects to ClickHouse.
func NewStore(cfg *Config, logger zerolog.Logger) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	return &Store{conn: conn, logger: logger}, nil
}

// NewStoreFromDSN connects using a ClickHouse DSN, e.g.
// clickhouse://default:@localhost:9000/bezhas.
func NewStoreFromDSN(dsn string, logger zerolog.Logger) (*Store, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid ClickHouse DSN: %w", err)
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	return &Store{conn: conn, logger: logger}, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// EnsureSchema creates the audit table if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS decision_audit (
			id UUID,
			operation LowCardinality(String),
			verdict LowCardinality(String),
			subject String,
			value_usd Float64,
			risk_score Int32,
			confidence Float64,
			degraded UInt8,
			snapshot_id UUID,
			reasoning String,
			created_at DateTime64(3)
		) ENGINE = MergeTree()
		ORDER BY (operation, created_at)
		TTL toDateTime(created_at) + INTERVAL 2 YEAR
	`
	return s.conn.Exec(ctx, ddl)
}

// Insert writes one decision record.
func (s *Store) Insert(ctx context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	const query = `
		INSERT INTO decision_audit (
			id, operation, verdict, subject, value_usd, risk_score,
			confidence, degraded, snapshot_id, reasoning, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	return s.conn.Exec(ctx, query,
		rec.ID,
		string(rec.Operation),
		rec.Verdict,
		rec.Subject,
		rec.ValueUSD,
		rec.RiskScore,
		rec.Confidence,
		boolToUInt8(rec.Degraded),
		rec.SnapshotID,
		rec.Reasoning,
		rec.CreatedAt,
	)
}

// Recent returns the latest records for an operation, newest first.
func (s *Store) Recent(ctx context.Context, op Operation, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, operation, verdict, subject, value_usd, risk_score,
			   confidence, degraded, snapshot_id, reasoning, created_at
		FROM decision_audit
		WHERE operation = ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := s.conn.Query(ctx, query, string(op), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var op string
		var degraded uint8
		if err := rows.Scan(
			&rec.ID, &op, &rec.Verdict, &rec.Subject, &rec.ValueUSD,
			&rec.RiskScore, &rec.Confidence, &degraded, &rec.SnapshotID,
			&rec.Reasoning, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Operation = Operation(op)
		rec.Degraded = degraded == 1
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Sink is the write interface the API layer depends on. A nil *Store
// satisfies writes as no-ops so auditing stays optional.
type Sink interface {
	Write(ctx context.Context, rec *Record)
}

// Write inserts asynchronously-safe, logging failures instead of
// propagating them.
func (s *Store) Write(ctx context.Context, rec *Record) {
	if s == nil {
		return
	}
	if err := s.Insert(ctx, rec); err != nil {
		s.logger.Warn().Err(err).Str("operation", string(rec.Operation)).Msg("audit write failed")
	}
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
