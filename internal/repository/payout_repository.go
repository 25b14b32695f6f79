package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-connect-api/internal/models"
)

const payoutColumns = `id, ambassador_id, points_redeemed, amount, currency, status, payment_method, payment_details, reviewed_by, review_notes,
        external_reference, processed_at, created_at, updated_at`

// PayoutRepository manages point redemption requests.
type PayoutRepository struct {
	db *sqlx.DB
}

// NewPayoutRepository constructs a PayoutRepository.
func NewPayoutRepository(db *sqlx.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

// Create reserves the requested points and inserts the payout in one transaction. The reservation
// is a conditional update so concurrent requests cannot overdraw; ErrInsufficientBalance is
// returned when the balance does not cover the request.
func (r *PayoutRepository) Create(ctx context.Context, payout *models.PayoutRequest) (err error) {
	if payout.ID == "" {
		payout.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	payout.CreatedAt = now
	payout.UpdatedAt = now
	payout.Status = models.PayoutStatusPending

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create payout: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const reserve = `UPDATE ambassadors SET redeemed_points = redeemed_points + $2, updated_at = $3
        WHERE id = $1 AND total_points - redeemed_points >= $2`
	res, err := tx.ExecContext(ctx, reserve, payout.AmbassadorID, payout.PointsRedeemed, now)
	if err != nil {
		return fmt.Errorf("reserve payout points: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve payout points rows: %w", err)
	}
	if affected == 0 {
		err = ErrInsufficientBalance
		return err
	}

	const insert = `INSERT INTO payout_requests (id, ambassador_id, points_redeemed, amount, currency, status, payment_method, payment_details, created_at, updated_at)
        VALUES (:id, :ambassador_id, :points_redeemed, :amount, :currency, :status, :payment_method, :payment_details, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insert, payout); err != nil {
		return fmt.Errorf("create payout: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create payout: %w", err)
	}
	return nil
}

// FindByID returns a payout by id.
func (r *PayoutRepository) FindByID(ctx context.Context, id string) (*models.PayoutRequest, error) {
	var payout models.PayoutRequest
	if err := r.db.GetContext(ctx, &payout, `SELECT `+payoutColumns+` FROM payout_requests WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find payout: %w", err)
	}
	return &payout, nil
}

// List returns payouts matching the filter.
func (r *PayoutRepository) List(ctx context.Context, filter models.PayoutFilter) ([]models.PayoutRequest, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if filter.AmbassadorID != "" {
		args = append(args, filter.AmbassadorID)
		conditions = append(conditions, fmt.Sprintf("ambassador_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	var items []models.PayoutRequest
	query := fmt.Sprintf(`SELECT %s FROM payout_requests WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, payoutColumns, where, limit, offset)
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list payouts: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM payout_requests WHERE `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count payouts: %w", err)
	}
	return items, total, nil
}

// MarkApproved moves a pending payout to approved. ErrStaleStatus when it is no longer pending.
func (r *PayoutRepository) MarkApproved(ctx context.Context, id, reviewerID string, notes *string) error {
	const query = `UPDATE payout_requests SET status = $2, reviewed_by = $3, review_notes = $4, updated_at = $5 WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, id, models.PayoutStatusApproved, reviewerID, notes, time.Now().UTC(), models.PayoutStatusPending)
	if err != nil {
		return fmt.Errorf("approve payout: %w", err)
	}
	return staleIfUnaffected(res)
}

// MarkPaid records a successful transfer on an approved payout.
func (r *PayoutRepository) MarkPaid(ctx context.Context, id, reference string, at time.Time) error {
	const query = `UPDATE payout_requests SET status = $2, external_reference = $3, processed_at = $4, updated_at = $4 WHERE id = $1 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, id, models.PayoutStatusPaid, reference, at, models.PayoutStatusApproved)
	if err != nil {
		return fmt.Errorf("mark payout paid: %w", err)
	}
	return staleIfUnaffected(res)
}

// MarkRejected rejects a pending or approved payout and returns its reserved points to the ambassador.
// Approved covers a payout whose transfer failed.
func (r *PayoutRepository) MarkRejected(ctx context.Context, id, reviewerID string, notes *string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reject payout: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	var row struct {
		AmbassadorID string `db:"ambassador_id"`
		Points       int    `db:"points_redeemed"`
	}
	const reject = `UPDATE payout_requests SET status = $2, reviewed_by = $3, review_notes = $4, processed_at = $5, updated_at = $5
        WHERE id = $1 AND status IN ($6, $7) RETURNING ambassador_id, points_redeemed`
	err = tx.GetContext(ctx, &row, reject, id, models.PayoutStatusRejected, reviewerID, notes, now, models.PayoutStatusPending, models.PayoutStatusApproved)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrStaleStatus
		return err
	}
	if err != nil {
		return fmt.Errorf("reject payout: %w", err)
	}
	const refund = `UPDATE ambassadors SET redeemed_points = redeemed_points - $2, updated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, refund, row.AmbassadorID, row.Points, now); err != nil {
		return fmt.Errorf("refund payout points: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit reject payout: %w", err)
	}
	return nil
}
