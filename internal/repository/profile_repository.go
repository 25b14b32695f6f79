package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-connect-api/internal/models"
)

// ProfileRepository stores student career profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs a ProfileRepository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByUserID returns a profile.
func (r *ProfileRepository) FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	const query = `SELECT user_id, headline, bio, college, degree, graduation_year, skills, resume_url, portfolio_url, linkedin_url, github_url,
        location, open_to_work, updated_at FROM student_profiles WHERE user_id = $1`
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &profile, nil
}

// Upsert creates or replaces a profile.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *models.StudentProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO student_profiles (user_id, headline, bio, college, degree, graduation_year, skills, resume_url, portfolio_url,
        linkedin_url, github_url, location, open_to_work, updated_at)
        VALUES (:user_id, :headline, :bio, :college, :degree, :graduation_year, :skills, :resume_url, :portfolio_url,
        :linkedin_url, :github_url, :location, :open_to_work, :updated_at)
        ON CONFLICT (user_id) DO UPDATE SET headline = EXCLUDED.headline, bio = EXCLUDED.bio, college = EXCLUDED.college,
            degree = EXCLUDED.degree, graduation_year = EXCLUDED.graduation_year, skills = EXCLUDED.skills,
            resume_url = EXCLUDED.resume_url, portfolio_url = EXCLUDED.portfolio_url, linkedin_url = EXCLUDED.linkedin_url,
            github_url = EXCLUDED.github_url, location = EXCLUDED.location, open_to_work = EXCLUDED.open_to_work,
            updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
