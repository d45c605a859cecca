package di

import (
	"github.com/jmoiron/sqlx"

	"github.com/referral-service/referral_service/internal/infrastructure/repositories"
	"github.com/referral-service/referral_service/pkg/logger"
)

// Repositories groups the data-access layer
type Repositories struct {
	UserProfiles      *repositories.UserProfileRepository
	FeeOverrides      *repositories.FeeOverrideRepository
	CouponRedemptions *repositories.CouponRedemptionRepository
	RecordedPayments  *repositories.RecordedPaymentRepository
	Notifications     *repositories.NotificationRepository
	Sellers           *repositories.SellerRepository
}

func newRepositories(db *sqlx.DB, chunkSize int, log *logger.Logger) *Repositories {
	return &Repositories{
		UserProfiles:      repositories.NewUserProfileRepository(db, chunkSize, log),
		FeeOverrides:      repositories.NewFeeOverrideRepository(db, chunkSize, log),
		CouponRedemptions: repositories.NewCouponRedemptionRepository(db, log),
		RecordedPayments:  repositories.NewRecordedPaymentRepository(db, chunkSize, log),
		Notifications:     repositories.NewNotificationRepository(db, chunkSize, log),
		Sellers:           repositories.NewSellerRepository(db),
	}
}
