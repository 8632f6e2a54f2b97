package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Evaluations ---

const evaluationColumns = `id, package_id, version, snapshot_digest, recommended_bid_id, result, created_by, created_at`

func scanEvaluation(row rowScanner) (*EvaluationRecord, error) {
	r := &EvaluationRecord{}
	var result []byte
	if err := row.Scan(&r.ID, &r.PackageID, &r.Version, &r.SnapshotDigest, &r.RecommendedBidID,
		&result, &r.CreatedBy, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Result = json.RawMessage(result)
	return r, nil
}

func (s *PostgresStore) SaveEvaluation(ctx context.Context, rec *EvaluationRecord) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	status, err := lockPackage(ctx, tx, rec.PackageID)
	if err != nil {
		return err
	}
	if status.Closed() {
		return ErrPackageClosed
	}

	latest, err := latestEvaluation(ctx, tx, rec.PackageID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		rec.Version = 1
	case err != nil:
		return fmt.Errorf("load latest evaluation: %w", err)
	case latest.SnapshotDigest == rec.SnapshotDigest:
		*rec = *latest
		return nil
	default:
		rec.Version = latest.Version + 1
	}

	if err := tx.QueryRow(ctx, `
		INSERT INTO tender_evaluations (package_id, version, snapshot_digest, recommended_bid_id, result, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		rec.PackageID, rec.Version, rec.SnapshotDigest, rec.RecommendedBidID, []byte(rec.Result), rec.CreatedBy,
	).Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE tender_packages SET recommended_bid_id = $2, updated_at = now() WHERE id = $1`,
		rec.PackageID, rec.RecommendedBidID); err != nil {
		return fmt.Errorf("pin recommendation: %w", err)
	}
	return tx.Commit(ctx)
}

func latestEvaluation(ctx context.Context, q queryRower, packageID uuid.UUID) (*EvaluationRecord, error) {
	return scanEvaluation(q.QueryRow(ctx, `
		SELECT `+evaluationColumns+` FROM tender_evaluations
		WHERE package_id = $1 ORDER BY version DESC LIMIT 1`, packageID))
}

func (s *PostgresStore) GetLatestEvaluation(ctx context.Context, packageID uuid.UUID) (*EvaluationRecord, error) {
	r, err := latestEvaluation(ctx, s.pool, packageID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (s *PostgresStore) ListEvaluations(ctx context.Context, packageID uuid.UUID) ([]*EvaluationRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+evaluationColumns+` FROM tender_evaluations
		WHERE package_id = $1 ORDER BY version ASC`, packageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*EvaluationRecord
	for rows.Next() {
		r, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- Award ---

func (s *PostgresStore) AwardPackage(ctx context.Context, id uuid.UUID, version int, choose AwardFunc) (*Package, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	pkg, err := scanPackage(tx.QueryRow(ctx,
		`SELECT `+packageColumns+` FROM tender_packages WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock package: %w", err)
	}
	if pkg.Status != PackageEvaluation || pkg.Version != version {
		return nil, ErrConflict
	}

	latest, err := latestEvaluation(ctx, tx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		latest = nil
	} else if err != nil {
		return nil, fmt.Errorf("load latest evaluation: %w", err)
	}
	bids, err := listBids(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}

	sel, err := choose(pkg, latest, bids)
	if err != nil {
		return nil, err
	}
	if !eligible(sel, bids) {
		return nil, ErrNotEligible
	}

	acceptedAlternates := sel.AcceptedAlternates
	if acceptedAlternates == nil {
		acceptedAlternates = []string{}
	}
	p, err := scanPackage(tx.QueryRow(ctx, `
		UPDATE tender_packages
		SET status = 'awarded', awarded_bid_id = $2, accepted_alternates = $3,
			version = version + 1, updated_at = now()
		WHERE id = $1
		RETURNING `+packageColumns,
		id, sel.BidID, acceptedAlternates))
	if err != nil {
		return nil, fmt.Errorf("award package: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) CreateChangeOrder(ctx context.Context, co *ChangeOrder) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	status, err := lockPackage(ctx, tx, co.PackageID)
	if err != nil {
		return err
	}
	if status != PackageAwarded {
		return ErrNotAwarded
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO tender_change_orders (package_id, description, cost_delta, created_by)
		VALUES ($1, $2, $3::numeric, $4)
		RETURNING id, created_at`,
		co.PackageID, co.Description, co.CostDelta.String(), co.CreatedBy,
	).Scan(&co.ID, &co.CreatedAt); err != nil {
		return fmt.Errorf("insert change order: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) ListChangeOrders(ctx context.Context, packageID uuid.UUID) ([]*ChangeOrder, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, package_id, description, cost_delta::text, created_by, created_at
		FROM tender_change_orders WHERE package_id = $1
		ORDER BY created_at ASC, id ASC`, packageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ChangeOrder
	for rows.Next() {
		co := &ChangeOrder{}
		var delta string
		if err := rows.Scan(&co.ID, &co.PackageID, &co.Description, &delta, &co.CreatedBy, &co.CreatedAt); err != nil {
			return nil, err
		}
		if co.CostDelta, err = parseDecimal(delta, "cost_delta"); err != nil {
			return nil, err
		}
		out = append(out, co)
	}
	return out, rows.Err()
}

// --- Events ---

func (s *PostgresStore) CreatePackageEvent(ctx context.Context, event *PackageEvent) error {
	payloadJSON, _ := json.Marshal(event.Payload)
	return s.pool.QueryRow(ctx, `
		INSERT INTO tender_package_events (package_id, event, actor, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		event.PackageID, event.Event, event.Actor, payloadJSON,
	).Scan(&event.ID, &event.CreatedAt)
}

func (s *PostgresStore) GetPackageEvents(ctx context.Context, packageID uuid.UUID) ([]*PackageEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, package_id, event, actor, payload, created_at
		FROM tender_package_events WHERE package_id = $1
		ORDER BY created_at ASC`, packageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*PackageEvent
	for rows.Next() {
		e := &PackageEvent{}
		var payloadJSON []byte
		if err := rows.Scan(&e.ID, &e.PackageID, &e.Event, &e.Actor, &payloadJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		if payloadJSON != nil {
			_ = json.Unmarshal(payloadJSON, &e.Payload)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *PostgresStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := s.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'bidding' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'evaluation' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'awarded' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'cancelled' THEN 1 ELSE 0 END), 0),
			(SELECT COUNT(*) FROM tender_bids WHERE superseded_by IS NULL),
			(SELECT COUNT(*) FROM tender_evaluations)
		FROM tender_packages`,
	).Scan(&stats.TotalBidding, &stats.TotalEvaluation, &stats.TotalAwarded, &stats.TotalCancelled,
		&stats.TotalBids, &stats.TotalEvaluated)
	return stats, err
}
