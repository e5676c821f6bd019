package compliance

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	_ "github.com/lib/pq"
)

// KYCStore looks up whether a wallet has passed identity
// verification. Implementations must treat lookup failure as
// unverified at the call site, never as verified.
type KYCStore interface {
	Verified(ctx context.Context, walletAddress string) (bool, error)
}

// StaticKYCStore is an in-memory table, for tests and offline use.
type StaticKYCStore struct {
	mu       sync.RWMutex
	verified map[string]bool
}

// NewStaticKYCStore creates a store seeded with verified wallets.
func NewStaticKYCStore(verifiedWallets ...string) *StaticKYCStore {
	s := &StaticKYCStore{verified: make(map[string]bool, len(verifiedWallets))}
	for _, w := range verifiedWallets {
		s.verified[strings.ToLower(w)] = true
	}
	return s
}

func (s *StaticKYCStore) Verified(_ context.Context, walletAddress string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.verified[strings.ToLower(walletAddress)], nil
}

// Set marks a wallet's verification state.
func (s *StaticKYCStore) Set(walletAddress string, verified bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verified[strings.ToLower(walletAddress)] = verified
}

// PostgresKYCStore reads verification state from the user database.
type PostgresKYCStore struct {
	db *sql.DB
}

// NewPostgresKYCStore opens the user database. The caller owns the
// returned store's lifecycle via Close.
func NewPostgresKYCStore(dsn string) (*PostgresKYCStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresKYCStore{db: db}, nil
}

func (s *PostgresKYCStore) Verified(ctx context.Context, walletAddress string) (bool, error) {
	var verified bool
	err := s.db.QueryRowContext(ctx,
		`SELECT kyc_verified FROM users WHERE lower(wallet_address) = lower($1)`,
		walletAddress,
	).Scan(&verified)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return verified, nil
}

// Ping verifies database connectivity, for readiness checks.
func (s *PostgresKYCStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *PostgresKYCStore) Close() error {
	return s.db.Close()
}
