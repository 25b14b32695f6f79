package models

import "time"

// AmbassadorStatus gates referral tracking.
type AmbassadorStatus string

const (
	AmbassadorStatusActive    AmbassadorStatus = "active"
	AmbassadorStatusSuspended AmbassadorStatus = "suspended"
)

// Ambassador is a campus promoter earning points for referrals.
type Ambassador struct {
	ID                  string           `db:"id" json:"id"`
	UserID              string           `db:"user_id" json:"userId"`
	ReferralCode        string           `db:"referral_code" json:"referralCode"`
	College             string           `db:"college" json:"college"`
	Status              AmbassadorStatus `db:"status" json:"status"`
	TotalReferrals      int              `db:"total_referrals" json:"totalReferrals"`
	SuccessfulReferrals int              `db:"successful_referrals" json:"successfulReferrals"`
	TotalPoints         int              `db:"total_points" json:"totalPoints"`
	RedeemedPoints      int              `db:"redeemed_points" json:"redeemedPoints"`
	CreatedAt           time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time        `db:"updated_at" json:"updatedAt"`
}

// AvailablePoints is the balance that can still be redeemed. Pending payouts are already reserved.
func (a *Ambassador) AvailablePoints() int {
	return a.TotalPoints - a.RedeemedPoints
}

// LeaderboardEntry ranks ambassadors by successful referrals.
type LeaderboardEntry struct {
	AmbassadorID        string `db:"id" json:"ambassadorId"`
	FullName            string `db:"full_name" json:"fullName"`
	College             string `db:"college" json:"college"`
	SuccessfulReferrals int    `db:"successful_referrals" json:"successfulReferrals"`
	TotalPoints         int    `db:"total_points" json:"totalPoints"`
}

// RegisterAmbassadorRequest creates the caller's ambassador profile.
type RegisterAmbassadorRequest struct {
	College string `json:"college" validate:"required,min=2,max=200"`
}

// UpdateAmbassadorRequest edits mutable profile fields. The referral code is not editable.
type UpdateAmbassadorRequest struct {
	College string `json:"college" validate:"required,min=2,max=200"`
}

// ReferralStatus tracks whether a referral has converted.
type ReferralStatus string

const (
	ReferralStatusRegistered ReferralStatus = "registered"
	ReferralStatusConverted  ReferralStatus = "converted"
)

// Referral links a referred user to the ambassador whose code they used.
type Referral struct {
	ID             string         `db:"id" json:"id"`
	AmbassadorID   string         `db:"ambassador_id" json:"ambassadorId"`
	ReferredUserID string         `db:"referred_user_id" json:"referredUserId"`
	ReferralCode   string         `db:"referral_code" json:"referralCode"`
	Status         ReferralStatus `db:"status" json:"status"`
	PointsAwarded  int            `db:"points_awarded" json:"pointsAwarded"`
	ConvertedAt    *time.Time     `db:"converted_at" json:"convertedAt,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
}

// ReferralView adds the referred user's name.
type ReferralView struct {
	Referral
	ReferredName string `db:"referred_name" json:"referredName"`
}

// ReferralCodeCheck is the public validation result for a code.
type ReferralCodeCheck struct {
	Code           string `json:"code"`
	Valid          bool   `json:"valid"`
	AmbassadorName string `json:"ambassadorName,omitempty"`
}

// PayoutStatus tracks a redemption request.
type PayoutStatus string

const (
	PayoutStatusPending  PayoutStatus = "pending"
	PayoutStatusApproved PayoutStatus = "approved"
	PayoutStatusRejected PayoutStatus = "rejected"
	PayoutStatusPaid     PayoutStatus = "paid"
)

// PayoutRequest converts reserved points into money.
type PayoutRequest struct {
	ID                string       `db:"id" json:"id"`
	AmbassadorID      string       `db:"ambassador_id" json:"ambassadorId"`
	PointsRedeemed    int          `db:"points_redeemed" json:"pointsRedeemed"`
	Amount            int64        `db:"amount" json:"amount"`
	Currency          string       `db:"currency" json:"currency"`
	Status            PayoutStatus `db:"status" json:"status"`
	PaymentMethod     string       `db:"payment_method" json:"paymentMethod"`
	PaymentDetails    string       `db:"payment_details" json:"paymentDetails"`
	ReviewedBy        *string      `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewNotes       *string      `db:"review_notes" json:"reviewNotes,omitempty"`
	ExternalReference *string      `db:"external_reference" json:"externalReference,omitempty"`
	ProcessedAt       *time.Time   `db:"processed_at" json:"processedAt,omitempty"`
	CreatedAt         time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time    `db:"updated_at" json:"updatedAt"`
}

// CreatePayoutRequest asks to redeem points.
type CreatePayoutRequest struct {
	Points         int    `json:"points" validate:"required,gt=0"`
	PaymentMethod  string `json:"paymentMethod" validate:"required,oneof=upi bank_transfer"`
	PaymentDetails string `json:"paymentDetails" validate:"required,min=3,max=500"`
}

// ReviewPayoutRequest is an admin decision on a pending payout.
type ReviewPayoutRequest struct {
	Action string  `json:"action" validate:"required,oneof=approve reject"`
	Notes  *string `json:"notes" validate:"omitempty,max=1000"`
}

// PayoutFilter narrows payout listings.
type PayoutFilter struct {
	AmbassadorID string
	Status       PayoutStatus
	Page         int
	PageSize     int
}
