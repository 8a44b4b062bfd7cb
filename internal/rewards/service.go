package rewards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"oiko/internal/logger"
	"oiko/internal/metrics"
	"oiko/internal/models"
	"oiko/internal/store"
)

const ClaimStatusPending = "pending"

// InsufficientPointsError rejects a claim below the threshold.
type InsufficientPointsError struct {
	Required int
	Balance  int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("you need %d points to claim a reward, current balance: %d", e.Required, e.Balance)
}

// BirthdayError explains why a birthday bonus was refused.
type BirthdayError struct {
	Reason string
}

func (e *BirthdayError) Error() string {
	return e.Reason
}

var (
	ErrNoBirthday      = &BirthdayError{Reason: "add your birthday to your profile to claim the birthday bonus"}
	ErrNotBirthday     = &BirthdayError{Reason: "the birthday bonus can only be claimed on your birthday"}
	ErrBirthdayClaimed = &BirthdayError{Reason: "birthday bonus already claimed this year"}
)

// Notifier sends the redemption emails.
type Notifier interface {
	RewardClaimed(ctx context.Context, user models.User, claim models.RewardClaim)
}

type Service struct {
	users   store.UserStore
	claims  store.RewardClaimStore
	mail    Notifier
	metrics metrics.Recorder
	now     func() time.Time
	log     *zap.Logger
}

func NewService(users store.UserStore, claims store.RewardClaimStore, mail Notifier, rec metrics.Recorder) *Service {
	return &Service{
		users:   users,
		claims:  claims,
		mail:    mail,
		metrics: rec,
		now:     time.Now,
		log:     logger.Component("rewards"),
	}
}

// WithClock replaces the clock used for birthday checks and claim stamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type Summary struct {
	Points            int        `json:"points"`
	Tier              string     `json:"tier"`
	NextTier          string     `json:"nextTier,omitempty"`
	PointsToNextTier  int        `json:"pointsToNextTier"`
	CanClaim          bool       `json:"canClaim"`
	ClaimThreshold    int        `json:"claimThreshold"`
	BirthdayAvailable bool       `json:"birthdayAvailable"`
	Tiers             []TierInfo `json:"tiers"`
}

func (s *Service) Summary(ctx context.Context, userID primitive.ObjectID) (*Summary, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	next, toNext := nextTier(user.FragmentPoints)
	return &Summary{
		Points:            user.FragmentPoints,
		Tier:              TierFor(user.FragmentPoints),
		NextTier:          next,
		PointsToNextTier:  toNext,
		CanClaim:          user.FragmentPoints >= ClaimThreshold,
		ClaimThreshold:    ClaimThreshold,
		BirthdayAvailable: s.birthdayCheck(user) == nil,
		Tiers:             tierTable(user.FragmentPoints),
	}, nil
}

// Claim redeems the whole balance once it reaches the threshold. The reset
// happens before the claim record is written; if the insert fails the
// points are given back.
func (s *Service) Claim(ctx context.Context, userID primitive.ObjectID) (*models.RewardClaim, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.FragmentPoints < ClaimThreshold {
		return nil, &InsufficientPointsError{Required: ClaimThreshold, Balance: user.FragmentPoints}
	}

	redeemed, ok, err := s.users.ResetPointsIfAtLeast(ctx, userID, ClaimThreshold)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Balance dropped between the read and the reset.
		current, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		return nil, &InsufficientPointsError{Required: ClaimThreshold, Balance: current.FragmentPoints}
	}

	claim := models.RewardClaim{
		UserID:    userID,
		Email:     user.Email,
		Points:    redeemed,
		Tier:      TierFor(redeemed),
		Status:    ClaimStatusPending,
		ClaimedAt: s.now(),
	}
	if err := s.claims.Create(ctx, &claim); err != nil {
		if restoreErr := s.users.AddPoints(ctx, userID, redeemed); restoreErr != nil {
			s.log.Error("restoring points after failed claim",
				zap.String("userId", userID.Hex()),
				zap.Int("points", redeemed),
				zap.Error(restoreErr))
		}
		return nil, fmt.Errorf("record reward claim: %w", err)
	}

	s.metrics.PointsDebited(redeemed)
	s.log.Info("reward claimed", zap.String("userId", userID.Hex()), zap.Int("points", redeemed))

	user.FragmentPoints = 0
	s.mail.RewardClaimed(ctx, *user, claim)
	return &claim, nil
}

// ClaimBirthday grants the yearly bonus and returns the new balance.
func (s *Service) ClaimBirthday(ctx context.Context, userID primitive.ObjectID) (int, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := s.birthdayCheck(user); err != nil {
		return 0, err
	}

	balance, awarded, err := s.users.AwardBirthday(ctx, userID, s.now().Year(), BirthdayBonus)
	if err != nil {
		return 0, err
	}
	if !awarded {
		return 0, ErrBirthdayClaimed
	}

	s.metrics.PointsCredited(BirthdayBonus)
	s.log.Info("birthday bonus awarded", zap.String("userId", userID.Hex()))
	return balance, nil
}

func (s *Service) Claims(ctx context.Context, userID primitive.ObjectID) ([]models.RewardClaim, error) {
	return s.claims.ListByUser(ctx, userID)
}

// birthdayCheck compares the stored birthday's month and day with the
// server's current date.
func (s *Service) birthdayCheck(user *models.User) error {
	if user.Birthday == nil || user.Birthday.IsZero() {
		return ErrNoBirthday
	}
	now := s.now()
	birthday := user.Birthday.UTC()
	if birthday.Month() != now.Month() || birthday.Day() != now.Day() {
		return ErrNotBirthday
	}
	if user.LastBirthdayRewardYear == now.Year() {
		return ErrBirthdayClaimed
	}
	return nil
}

// IsRewardError reports whether err is a user-facing rewards rejection.
func IsRewardError(err error) bool {
	var points *InsufficientPointsError
	var birthday *BirthdayError
	return errors.As(err, &points) || errors.As(err, &birthday)
}
