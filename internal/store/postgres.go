package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

//go:embed migrations/*.sql
var migrations embed.FS

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Migrate applies the embedded schema files in name order. Every statement is
// idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	entries, err := fs.ReadDir(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, e := range entries {
		sql, err := migrations.ReadFile("migrations/" + e.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		if _, err := s.pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply migration %s: %w", e.Name(), err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func parseDecimal(s string, field string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s: %w", field, err)
	}
	return d, nil
}

// --- Packages ---

const packageColumns = `id, title, trade_category, status, estimated_value::text, due_date,
	weights, recommended_bid_id, awarded_bid_id, accepted_alternates,
	version, created_by, created_at, updated_at`

func scanPackage(row rowScanner) (*Package, error) {
	p := &Package{}
	var estimated string
	var due *time.Time
	var weightsJSON []byte
	if err := row.Scan(
		&p.ID, &p.Title, &p.TradeCategory, &p.Status, &estimated, &due,
		&weightsJSON, &p.RecommendedBidID, &p.AwardedBidID, &p.AcceptedAlternates,
		&p.Version, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	var err error
	if p.EstimatedValue, err = parseDecimal(estimated, "estimated_value"); err != nil {
		return nil, err
	}
	if due != nil {
		p.DueDate = *due
	}
	if weightsJSON != nil {
		if err := json.Unmarshal(weightsJSON, &p.Weights); err != nil {
			return nil, fmt.Errorf("decode weights: %w", err)
		}
	}
	return p, nil
}

func (s *PostgresStore) CreatePackage(ctx context.Context, p *Package) error {
	weightsJSON, err := json.Marshal(p.Weights)
	if err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}
	if p.Status == "" {
		p.Status = PackageBidding
	}
	return s.pool.QueryRow(ctx, `
		INSERT INTO tender_packages (title, trade_category, status, estimated_value, due_date, weights, created_by)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)
		RETURNING id, version, created_at, updated_at`,
		p.Title, p.TradeCategory, p.Status, p.EstimatedValue.String(), nullTime(p.DueDate), weightsJSON, p.CreatedBy,
	).Scan(&p.ID, &p.Version, &p.CreatedAt, &p.UpdatedAt)
}

func (s *PostgresStore) GetPackage(ctx context.Context, id uuid.UUID) (*Package, error) {
	p, err := scanPackage(s.pool.QueryRow(ctx,
		`SELECT `+packageColumns+` FROM tender_packages WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (s *PostgresStore) ListPackages(ctx context.Context, filter PackageFilter) ([]*Package, error) {
	query := `SELECT ` + packageColumns + ` FROM tender_packages WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Status != nil {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(*filter.Status))
	}
	if filter.TradeCategory != "" {
		n++
		query += fmt.Sprintf(" AND trade_category = $%d", n)
		args = append(args, filter.TradeCategory)
	}

	query += " ORDER BY created_at DESC, id"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) TransitionPackage(ctx context.Context, id uuid.UUID, from, to PackageStatus, version int) (*Package, error) {
	p, err := scanPackage(s.pool.QueryRow(ctx, `
		UPDATE tender_packages SET status = $3, version = version + 1, updated_at = now()
		WHERE id = $1 AND status = $2 AND version = $4
		RETURNING `+packageColumns,
		id, from, to, version))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.missingOrConflict(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("transition package: %w", err)
	}
	return p, nil
}

// missingOrConflict explains why a guarded update touched no rows.
func (s *PostgresStore) missingOrConflict(ctx context.Context, id uuid.UUID) error {
	p, err := s.GetPackage(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrNotFound
	}
	return ErrConflict
}

// lockPackage takes a row lock on the package for the rest of tx and returns
// its status.
func lockPackage(ctx context.Context, tx pgx.Tx, id uuid.UUID) (PackageStatus, error) {
	var status PackageStatus
	err := tx.QueryRow(ctx, `SELECT status FROM tender_packages WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return status, err
}

// --- Bids ---

const bidColumns = `id, package_id, vendor_id, vendor_name, amount::text, submitted_at,
	compliance, compliance_state, raw_scores, vendor_rating, alternates, schedule,
	supersedes_id, superseded_by, created_at`

func scanBid(row rowScanner) (*Bid, error) {
	b := &Bid{}
	var amount string
	var complianceJSON, scoresJSON, alternatesJSON, scheduleJSON []byte
	if err := row.Scan(
		&b.ID, &b.PackageID, &b.VendorID, &b.VendorName, &amount, &b.SubmittedAt,
		&complianceJSON, &b.ComplianceState, &scoresJSON, &b.VendorRating, &alternatesJSON, &scheduleJSON,
		&b.SupersedesID, &b.SupersededBy, &b.CreatedAt,
	); err != nil {
		return nil, err
	}
	var err error
	if b.Amount, err = parseDecimal(amount, "amount"); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		data []byte
		into interface{}
	}{
		{complianceJSON, &b.Compliance},
		{scoresJSON, &b.RawScores},
		{alternatesJSON, &b.Alternates},
		{scheduleJSON, &b.Schedule},
	} {
		if f.data == nil {
			continue
		}
		if err := json.Unmarshal(f.data, f.into); err != nil {
			return nil, fmt.Errorf("decode bid %s: %w", b.ID, err)
		}
	}
	return b, nil
}

func insertBid(ctx context.Context, q queryRower, b *Bid) error {
	complianceJSON, _ := json.Marshal(b.Compliance)
	scoresJSON, _ := json.Marshal(b.RawScores)
	scheduleJSON, _ := json.Marshal(b.Schedule)
	alternates := b.Alternates
	if alternates == nil {
		alternates = []Alternate{}
	}
	alternatesJSON, _ := json.Marshal(alternates)
	if b.ComplianceState == "" {
		b.ComplianceState = ComplianceUnderReview
	}

	return q.QueryRow(ctx, `
		INSERT INTO tender_bids (package_id, vendor_id, vendor_name, amount, submitted_at,
			compliance, compliance_state, raw_scores, vendor_rating, alternates, schedule, supersedes_id)
		VALUES ($1, $2, $3, $4::numeric, COALESCE($5, now()), $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, submitted_at, created_at`,
		b.PackageID, b.VendorID, b.VendorName, b.Amount.String(), nullTime(b.SubmittedAt),
		complianceJSON, b.ComplianceState, scoresJSON, b.VendorRating, alternatesJSON, scheduleJSON, b.SupersedesID,
	).Scan(&b.ID, &b.SubmittedAt, &b.CreatedAt)
}

func (s *PostgresStore) CreateBid(ctx context.Context, b *Bid) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	status, err := lockPackage(ctx, tx, b.PackageID)
	if err != nil {
		return err
	}
	if status != PackageBidding {
		return ErrNotBidding
	}
	if err := insertBid(ctx, tx, b); err != nil {
		return fmt.Errorf("insert bid: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) GetBid(ctx context.Context, id uuid.UUID) (*Bid, error) {
	b, err := scanBid(s.pool.QueryRow(ctx,
		`SELECT `+bidColumns+` FROM tender_bids WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (s *PostgresStore) ListBids(ctx context.Context, packageID uuid.UUID) ([]*Bid, error) {
	return listBids(ctx, s.pool, packageID)
}

func listBids(ctx context.Context, q querier, packageID uuid.UUID) ([]*Bid, error) {
	rows, err := q.Query(ctx, `
		SELECT `+bidColumns+`
		FROM tender_bids WHERE package_id = $1 AND superseded_by IS NULL
		ORDER BY submitted_at ASC, id ASC`, packageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

func (s *PostgresStore) SupersedeBid(ctx context.Context, oldID uuid.UUID, replacement *Bid) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var packageID uuid.UUID
	var supersededBy *uuid.UUID
	err = tx.QueryRow(ctx, `SELECT package_id, superseded_by FROM tender_bids WHERE id = $1`, oldID).
		Scan(&packageID, &supersededBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	status, err := lockPackage(ctx, tx, packageID)
	if err != nil {
		return err
	}
	if status != PackageBidding {
		return ErrNotBidding
	}

	// Re-read under the package lock; a concurrent correction may have won.
	if err := tx.QueryRow(ctx, `SELECT superseded_by FROM tender_bids WHERE id = $1`, oldID).Scan(&supersededBy); err != nil {
		return err
	}
	if supersededBy != nil {
		return ErrConflict
	}

	replacement.PackageID = packageID
	replacement.SupersedesID = &oldID
	if err := insertBid(ctx, tx, replacement); err != nil {
		return fmt.Errorf("insert replacement bid: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE tender_bids SET superseded_by = $2 WHERE id = $1`, oldID, replacement.ID); err != nil {
		return fmt.Errorf("mark bid superseded: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) UpdateBidCompliance(ctx context.Context, id uuid.UUID, signals ComplianceSignals, state ComplianceState) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var packageID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT package_id FROM tender_bids WHERE id = $1`, id).Scan(&packageID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	status, err := lockPackage(ctx, tx, packageID)
	if err != nil {
		return err
	}
	if status.Closed() {
		return ErrPackageClosed
	}

	signalsJSON, _ := json.Marshal(signals)
	if _, err := tx.Exec(ctx, `
		UPDATE tender_bids SET compliance = $2, compliance_state = $3 WHERE id = $1`,
		id, signalsJSON, state); err != nil {
		return fmt.Errorf("update compliance: %w", err)
	}
	return tx.Commit(ctx)
}
