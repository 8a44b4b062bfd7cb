package rewards

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"oiko/internal/mailer"
	"oiko/internal/metrics"
	"oiko/internal/models"
	"oiko/internal/store"
	"oiko/internal/store/memstore"
)

func TestPointsForCategory(t *testing.T) {
	cases := map[string]int{
		"hoodies":     18,
		"tshirts":     12,
		"hats":        3,
		"socks":       3,
		"totebags":    3,
		"accessories": 3,
		"jackets":     0,
		"":            0,
	}
	for category, want := range cases {
		assert.Equal(t, want, PointsForCategory(category), category)
	}
}

func TestPointsForOrder(t *testing.T) {
	items := []models.OrderItem{
		{Category: "hoodies", Quantity: 2},
		{Category: "hats", Quantity: 1},
	}
	assert.Equal(t, 39, PointsForOrder(items))
	assert.Equal(t, 0, PointsForOrder(nil))
}

func TestTierFor(t *testing.T) {
	assert.Equal(t, "", TierFor(29))
	assert.Equal(t, TierCashback, TierFor(30))
	assert.Equal(t, TierCashback, TierFor(69))
	assert.Equal(t, TierDiscount, TierFor(70))
	assert.Equal(t, TierFree, TierFor(100))
	assert.Equal(t, TierFree, TierFor(150))
}

type fixture struct {
	db      *memstore.Store
	outbox  *mailer.Outbox
	service *Service
}

func newFixture(now time.Time) fixture {
	db := memstore.New()
	outbox := &mailer.Outbox{}
	svc := NewService(db.Users(), db.RewardClaims(), mailer.New(outbox, "team@oiko.in", metrics.Nop{}), metrics.Nop{}).
		WithClock(func() time.Time { return now })
	return fixture{db: db, outbox: outbox, service: svc}
}

func (f fixture) addUser(t *testing.T, user models.User) primitive.ObjectID {
	t.Helper()
	require.NoError(t, f.db.Users().Create(context.Background(), &user))
	return user.ID
}

func (f fixture) balance(t *testing.T, id primitive.ObjectID) int {
	t.Helper()
	user, err := f.db.Users().FindByID(context.Background(), id)
	require.NoError(t, err)
	return user.FragmentPoints
}

func TestClaimRejectsBelowThreshold(t *testing.T) {
	f := newFixture(time.Now())
	id := f.addUser(t, models.User{Email: "low@example.com", FragmentPoints: 99})

	_, err := f.service.Claim(context.Background(), id)

	var insufficient *InsufficientPointsError
	require.ErrorAs(t, err, &insufficient)
	assert.Contains(t, err.Error(), "100")
	assert.Contains(t, err.Error(), "99")
	assert.Equal(t, 99, f.balance(t, id))

	claims, err := f.service.Claims(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, claims)
}

func TestClaimResetsBalanceAndRecordsClaim(t *testing.T) {
	f := newFixture(time.Now())
	id := f.addUser(t, models.User{Email: "full@example.com", Name: "Full", FragmentPoints: 100})

	claim, err := f.service.Claim(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, 100, claim.Points)
	assert.Equal(t, TierFree, claim.Tier)
	assert.Equal(t, 0, f.balance(t, id))

	claims, err := f.service.Claims(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, claims, 1)

	assert.Len(t, f.outbox.Messages(), 2)
}

func TestClaimRestoresPointsWhenRecordFails(t *testing.T) {
	f := newFixture(time.Now())
	f.db.FailClaimCreate = errors.New("write conflict")
	id := f.addUser(t, models.User{Email: "x@example.com", FragmentPoints: 120})

	_, err := f.service.Claim(context.Background(), id)

	require.Error(t, err)
	assert.Equal(t, 120, f.balance(t, id))
	assert.Empty(t, f.outbox.Messages())
}

func TestBirthdayClaim(t *testing.T) {
	today := time.Date(2026, time.March, 14, 11, 0, 0, 0, time.UTC)
	birthday := time.Date(1998, time.March, 14, 0, 0, 0, 0, time.UTC)
	f := newFixture(today)
	id := f.addUser(t, models.User{Email: "bday@example.com", FragmentPoints: 10, Birthday: &birthday, LastBirthdayRewardYear: 2025})

	balance, err := f.service.ClaimBirthday(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 60, balance)
	assert.Equal(t, 60, f.balance(t, id))

	user, err := f.db.Users().FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2026, user.LastBirthdayRewardYear)

	_, err = f.service.ClaimBirthday(context.Background(), id)
	assert.ErrorIs(t, err, ErrBirthdayClaimed)
	assert.Equal(t, 60, f.balance(t, id))
}

// creditingUsers credits points right after each read, like an order
// webhook landing while a claim is in flight.
type creditingUsers struct {
	store.UserStore
	points int
}

func (u creditingUsers) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := u.UserStore.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user, u.UserStore.AddPoints(ctx, id, u.points)
}

func TestBirthdayClaimReturnsStoredBalance(t *testing.T) {
	today := time.Date(2026, time.March, 14, 11, 0, 0, 0, time.UTC)
	birthday := time.Date(1998, time.March, 14, 0, 0, 0, 0, time.UTC)
	f := newFixture(today)
	id := f.addUser(t, models.User{Email: "race@example.com", FragmentPoints: 10, Birthday: &birthday})

	svc := NewService(creditingUsers{UserStore: f.db.Users(), points: 18}, f.db.RewardClaims(),
		mailer.New(f.outbox, "team@oiko.in", metrics.Nop{}), metrics.Nop{}).
		WithClock(func() time.Time { return today })

	balance, err := svc.ClaimBirthday(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 78, balance)
	assert.Equal(t, f.balance(t, id), balance)
}

func TestBirthdayClaimRejections(t *testing.T) {
	today := time.Date(2026, time.March, 14, 11, 0, 0, 0, time.UTC)
	other := time.Date(1998, time.July, 2, 0, 0, 0, 0, time.UTC)
	f := newFixture(today)

	noBirthday := f.addUser(t, models.User{Email: "a@example.com"})
	_, err := f.service.ClaimBirthday(context.Background(), noBirthday)
	assert.ErrorIs(t, err, ErrNoBirthday)

	wrongDay := f.addUser(t, models.User{Email: "b@example.com", Birthday: &other})
	_, err = f.service.ClaimBirthday(context.Background(), wrongDay)
	assert.ErrorIs(t, err, ErrNotBirthday)

	assert.True(t, IsRewardError(err))
}

func TestSummary(t *testing.T) {
	f := newFixture(time.Now())
	id := f.addUser(t, models.User{Email: "s@example.com", FragmentPoints: 45})

	summary, err := f.service.Summary(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, 45, summary.Points)
	assert.Equal(t, TierCashback, summary.Tier)
	assert.Equal(t, TierDiscount, summary.NextTier)
	assert.Equal(t, 25, summary.PointsToNextTier)
	assert.False(t, summary.CanClaim)
	assert.False(t, summary.BirthdayAvailable)
	require.Len(t, summary.Tiers, 3)
	assert.True(t, summary.Tiers[0].Unlocked)
	assert.False(t, summary.Tiers[1].Unlocked)
}
