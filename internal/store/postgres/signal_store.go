package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

const uniqueViolation = "23505"

// SignalStore implements domain.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *pgxpool.Pool
}

// NewSignalStore creates a new SignalStore backed by the given connection pool.
func NewSignalStore(pool *pgxpool.Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

const signalCols = `id, event_id, market_title, venue, event_time,
	market_snapshot_hash, domain_hash, ai_digest, confidence, odds_efficiency,
	author_address, created_at, outcome, resolved_at,
	domain, platform, market_id, prediction, impact,
	key_factors, recommended_action, citations, mode`

// Insert stores a new signal. Signals are always inserted PENDING.
func (s *SignalStore) Insert(ctx context.Context, sig domain.Signal) error {
	keyFactors, err := json.Marshal(nonNil(sig.KeyFactors))
	if err != nil {
		return fmt.Errorf("postgres: marshal key factors: %w", err)
	}
	citations, err := json.Marshal(nonNilCitations(sig.Citations))
	if err != nil {
		return fmt.Errorf("postgres: marshal citations: %w", err)
	}

	const query = `INSERT INTO signals (` + signalCols + `) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10,
		$11, $12, 'PENDING', NULL,
		$13, $14, $15, $16, $17,
		$18, $19, $20, $21)`

	_, err = s.pool.Exec(ctx, query,
		sig.ID, sig.EventID, sig.MarketTitle, sig.Venue, sig.EventTime,
		sig.MarketSnapshotHash, sig.DomainHash, sig.AIDigest, string(sig.Confidence), string(sig.OddsEfficiency),
		sig.AuthorAddress, sig.Timestamp,
		sig.Domain, sig.Platform, sig.MarketID, string(sig.Prediction), string(sig.Impact),
		keyFactors, sig.RecommendedAction, citations, string(sig.Mode),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("postgres: insert signal %s: %w", sig.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("postgres: insert signal %s: %w", sig.ID, err)
	}
	return nil
}

// GetByID retrieves a signal by its primary key.
func (s *SignalStore) GetByID(ctx context.Context, id string) (domain.Signal, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+signalCols+` FROM signals WHERE id = $1`, id)
	sig, err := scanSignal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Signal{}, domain.ErrNotFound
		}
		return domain.Signal{}, fmt.Errorf("postgres: get signal %s: %w", id, err)
	}
	return sig, nil
}

// GetByAuthor returns every signal by address, most recent resolution
// first, with pending signals last.
func (s *SignalStore) GetByAuthor(ctx context.Context, address string) ([]domain.Signal, error) {
	return s.query(ctx, "get signals by author",
		`SELECT `+signalCols+` FROM signals WHERE author_address = $1
		 ORDER BY resolved_at DESC NULLS LAST, created_at DESC`, address)
}

// GetByEvent returns every signal for an event, oldest first.
func (s *SignalStore) GetByEvent(ctx context.Context, eventID string) ([]domain.Signal, error) {
	return s.query(ctx, "get signals by event",
		`SELECT `+signalCols+` FROM signals WHERE event_id = $1 ORDER BY created_at`, eventID)
}

// GetPending returns all PENDING signals, oldest first.
func (s *SignalStore) GetPending(ctx context.Context) ([]domain.Signal, error) {
	return s.query(ctx, "get pending signals",
		`SELECT `+signalCols+` FROM signals WHERE outcome = 'PENDING' ORDER BY created_at`)
}

// SetOutcome settles a PENDING signal. The WHERE clause makes the
// transition atomic; applied is false when the signal was already terminal
// or does not exist.
func (s *SignalStore) SetOutcome(ctx context.Context, id string, outcome domain.Outcome, resolvedAt time.Time) (bool, error) {
	if !outcome.Terminal() {
		return false, fmt.Errorf("postgres: set outcome %s: %q is not terminal", id, outcome)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE signals SET outcome = $2, resolved_at = $3 WHERE id = $1 AND outcome = 'PENDING'`,
		id, string(outcome), resolvedAt)
	if err != nil {
		return false, fmt.Errorf("postgres: set outcome %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *SignalStore) query(ctx context.Context, op, query string, args ...any) ([]domain.Signal, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	defer rows.Close()

	var out []domain.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan signal: %w", err)
		}
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: %s rows: %w", op, err)
	}
	return out, nil
}

func scanSignal(row pgx.Row) (domain.Signal, error) {
	var (
		sig                             domain.Signal
		confidence, efficiency, outcome string
		prediction, impact, mode        string
		keyFactors, citations           []byte
	)
	err := row.Scan(
		&sig.ID, &sig.EventID, &sig.MarketTitle, &sig.Venue, &sig.EventTime,
		&sig.MarketSnapshotHash, &sig.DomainHash, &sig.AIDigest, &confidence, &efficiency,
		&sig.AuthorAddress, &sig.Timestamp, &outcome, &sig.ResolvedAt,
		&sig.Domain, &sig.Platform, &sig.MarketID, &prediction, &impact,
		&keyFactors, &sig.RecommendedAction, &citations, &mode,
	)
	if err != nil {
		return domain.Signal{}, err
	}

	sig.Confidence = domain.ParseConfidence(confidence)
	sig.OddsEfficiency = domain.ParseOddsEfficiency(efficiency)
	sig.Prediction = domain.Side(prediction)
	sig.Outcome = domain.NormalizeOutcome(outcome, sig.Prediction)
	sig.Impact = domain.ParseImpact(impact)
	sig.Mode = domain.AnalysisMode(mode)

	if len(keyFactors) > 0 {
		if err := json.Unmarshal(keyFactors, &sig.KeyFactors); err != nil {
			return domain.Signal{}, fmt.Errorf("unmarshal key factors: %w", err)
		}
	}
	if len(citations) > 0 {
		if err := json.Unmarshal(citations, &sig.Citations); err != nil {
			return domain.Signal{}, fmt.Errorf("unmarshal citations: %w", err)
		}
	}
	return sig, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilCitations(c []domain.Citation) []domain.Citation {
	if c == nil {
		return []domain.Citation{}
	}
	return c
}

var _ domain.SignalStore = (*SignalStore)(nil)
