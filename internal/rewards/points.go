// Package rewards implements the fragment points ledger: accrual per
// purchase, tier lookup, redemption and the yearly birthday bonus.
package rewards

import "oiko/internal/models"

const (
	// ClaimThreshold is the balance a redemption requires.
	ClaimThreshold = 100
	BirthdayBonus  = 50

	TierCashback = "cashback"
	TierDiscount = "discount"
	TierFree     = "free"
)

var categoryPoints = map[string]int{
	models.CategoryHoodies:     18,
	models.CategoryTShirts:     12,
	models.CategoryHats:        3,
	models.CategorySocks:       3,
	models.CategoryToteBags:    3,
	models.CategoryAccessories: 3,
}

// TierInfo describes one reward tier for display.
type TierInfo struct {
	Name      string `json:"name"`
	Threshold int    `json:"threshold"`
	Unlocked  bool   `json:"unlocked"`
}

// tiers is ordered from the highest threshold down.
var tiers = []TierInfo{
	{Name: TierFree, Threshold: 100},
	{Name: TierDiscount, Threshold: 70},
	{Name: TierCashback, Threshold: 30},
}

func PointsForCategory(category string) int {
	return categoryPoints[category]
}

func PointsForOrder(items []models.OrderItem) int {
	total := 0
	for _, item := range items {
		total += PointsForCategory(item.Category) * item.Quantity
	}
	return total
}

// TierFor returns the highest tier the balance qualifies for, or "" below
// the lowest threshold.
func TierFor(points int) string {
	for _, tier := range tiers {
		if points >= tier.Threshold {
			return tier.Name
		}
	}
	return ""
}

// nextTier returns the lowest tier above points and how far away it is.
func nextTier(points int) (string, int) {
	for i := len(tiers) - 1; i >= 0; i-- {
		if points < tiers[i].Threshold {
			return tiers[i].Name, tiers[i].Threshold - points
		}
	}
	return "", 0
}

func tierTable(points int) []TierInfo {
	out := make([]TierInfo, 0, len(tiers))
	for i := len(tiers) - 1; i >= 0; i-- {
		tier := tiers[i]
		tier.Unlocked = points >= tier.Threshold
		out = append(out, tier)
	}
	return out
}
