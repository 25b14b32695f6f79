package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-connect-api/internal/models"
)

const ambassadorColumns = `id, user_id, referral_code, college, status, total_referrals, successful_referrals, total_points, redeemed_points, created_at, updated_at`

// Constraint names surfaced through DuplicateError.
const (
	ConstraintAmbassadorUser = "ambassadors_user_id_key"
	ConstraintAmbassadorCode = "ambassadors_referral_code_key"
)

// AmbassadorRepository manages ambassadors and their referrals.
type AmbassadorRepository struct {
	db *sqlx.DB
}

// NewAmbassadorRepository constructs an AmbassadorRepository.
func NewAmbassadorRepository(db *sqlx.DB) *AmbassadorRepository {
	return &AmbassadorRepository{db: db}
}

// Create inserts an ambassador. Either unique constraint yields a DuplicateError naming it.
func (r *AmbassadorRepository) Create(ctx context.Context, amb *models.Ambassador) error {
	if amb.ID == "" {
		amb.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	amb.CreatedAt = now
	amb.UpdatedAt = now
	if amb.Status == "" {
		amb.Status = models.AmbassadorStatusActive
	}
	const query = `INSERT INTO ambassadors (id, user_id, referral_code, college, status, total_referrals, successful_referrals, total_points, redeemed_points, created_at, updated_at)
        VALUES (:id, :user_id, :referral_code, :college, :status, 0, 0, 0, 0, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, amb); err != nil {
		return fmt.Errorf("create ambassador: %w", mapUniqueViolation(err))
	}
	return nil
}

// FindByUserID returns the ambassador profile of a user.
func (r *AmbassadorRepository) FindByUserID(ctx context.Context, userID string) (*models.Ambassador, error) {
	return r.findOne(ctx, `user_id = $1`, userID)
}

// FindByCode returns the ambassador owning a referral code, case-insensitively.
func (r *AmbassadorRepository) FindByCode(ctx context.Context, code string) (*models.Ambassador, error) {
	return r.findOne(ctx, `referral_code = UPPER($1)`, code)
}

func (r *AmbassadorRepository) findOne(ctx context.Context, cond string, arg interface{}) (*models.Ambassador, error) {
	var amb models.Ambassador
	if err := r.db.GetContext(ctx, &amb, `SELECT `+ambassadorColumns+` FROM ambassadors WHERE `+cond, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find ambassador: %w", err)
	}
	return &amb, nil
}

// UpdateCollege changes the only editable profile field.
func (r *AmbassadorRepository) UpdateCollege(ctx context.Context, userID, college string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE ambassadors SET college = $2, updated_at = $3 WHERE user_id = $1`, userID, college, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update ambassador: %w", err)
	}
	return requireAffected(res, "update ambassador")
}

// OwnerName returns the full name of the user behind an ambassador.
func (r *AmbassadorRepository) OwnerName(ctx context.Context, ambassadorID string) (string, error) {
	var name string
	if err := r.db.GetContext(ctx, &name, `SELECT u.full_name FROM ambassadors a JOIN users u ON u.id = a.user_id WHERE a.id = $1`, ambassadorID); err != nil {
		return "", fmt.Errorf("ambassador owner name: %w", err)
	}
	return name, nil
}

// Leaderboard ranks active ambassadors by successful referrals then points.
func (r *AmbassadorRepository) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	const query = `SELECT a.id, u.full_name, a.college, a.successful_referrals, a.total_points
        FROM ambassadors a JOIN users u ON u.id = a.user_id
        WHERE a.status = $1 ORDER BY a.successful_referrals DESC, a.total_points DESC, a.created_at ASC LIMIT $2`
	var entries []models.LeaderboardEntry
	if err := r.db.SelectContext(ctx, &entries, query, models.AmbassadorStatusActive, limit); err != nil {
		return nil, fmt.Errorf("ambassador leaderboard: %w", err)
	}
	return entries, nil
}

// ListReferrals returns the referrals credited to an ambassador.
func (r *AmbassadorRepository) ListReferrals(ctx context.Context, ambassadorID string, page, size int) ([]models.ReferralView, int, error) {
	limit, offset := pageWindow(page, size)
	query := fmt.Sprintf(`SELECT rf.id, rf.ambassador_id, rf.referred_user_id, rf.referral_code, rf.status, rf.points_awarded, rf.converted_at, rf.created_at,
        u.full_name AS referred_name
        FROM referrals rf JOIN users u ON u.id = rf.referred_user_id
        WHERE rf.ambassador_id = $1 ORDER BY rf.created_at DESC LIMIT %d OFFSET %d`, limit, offset)
	var items []models.ReferralView
	if err := r.db.SelectContext(ctx, &items, query, ambassadorID); err != nil {
		return nil, 0, fmt.Errorf("list referrals: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM referrals WHERE ambassador_id = $1`, ambassadorID); err != nil {
		return nil, 0, fmt.Errorf("count referrals: %w", err)
	}
	return items, total, nil
}

// CreateReferral records a referral and bumps the ambassador's counter. A user can be referred
// once; a second attempt yields ErrDuplicate.
func (r *AmbassadorRepository) CreateReferral(ctx context.Context, ref *models.Referral) (err error) {
	if ref.ID == "" {
		ref.ID = uuid.NewString()
	}
	ref.CreatedAt = time.Now().UTC()
	if ref.Status == "" {
		ref.Status = models.ReferralStatusRegistered
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create referral: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insert = `INSERT INTO referrals (id, ambassador_id, referred_user_id, referral_code, status, points_awarded, created_at)
        VALUES (:id, :ambassador_id, :referred_user_id, :referral_code, :status, 0, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insert, ref); err != nil {
		err = mapUniqueViolation(err)
		return fmt.Errorf("create referral: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE ambassadors SET total_referrals = total_referrals + 1, updated_at = $2 WHERE id = $1`, ref.AmbassadorID, ref.CreatedAt); err != nil {
		return fmt.Errorf("increment referrals: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create referral: %w", err)
	}
	return nil
}

// ConvertReferral marks the referred user's pending referral as converted and credits points.
// It reports false when there was nothing to convert.
func (r *AmbassadorRepository) ConvertReferral(ctx context.Context, referredUserID string, points int) (converted bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin convert referral: %w", err)
	}
	defer func() {
		if err != nil || !converted {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	var ambassadorID string
	const update = `UPDATE referrals SET status = $2, points_awarded = $3, converted_at = $4
        WHERE referred_user_id = $1 AND status = $5 RETURNING ambassador_id`
	err = tx.GetContext(ctx, &ambassadorID, update, referredUserID, models.ReferralStatusConverted, points, now, models.ReferralStatusRegistered)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("convert referral: %w", err)
	}
	const credit = `UPDATE ambassadors SET successful_referrals = successful_referrals + 1, total_points = total_points + $2, updated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, credit, ambassadorID, points, now); err != nil {
		return false, fmt.Errorf("credit ambassador: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit convert referral: %w", err)
	}
	return true, nil
}
