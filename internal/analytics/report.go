// Package analytics builds the admin dashboard report from read-only
// aggregations over orders and users.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"
)

const (
	UnitDay   = "day"
	UnitMonth = "month"

	topLimit = 10
)

// Window is a reporting range. Since is nil for all time.
type Window struct {
	Key   string
	Since *time.Time
	Unit  string
}

var rangeDays = map[string]int{
	"7d":  7,
	"30d": 30,
	"90d": 90,
	"1y":  365,
}

// ParseWindow resolves a range key. An empty key means 30d.
func ParseWindow(key string, now time.Time) (Window, error) {
	if key == "" {
		key = "30d"
	}
	if key == "all" {
		return Window{Key: key, Unit: UnitMonth}, nil
	}
	days, ok := rangeDays[key]
	if !ok {
		return Window{}, fmt.Errorf("unsupported range %q, use 7d, 30d, 90d, 1y or all", key)
	}

	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(days - 1))
	unit := UnitDay
	if key == "1y" {
		unit = UnitMonth
	}
	return Window{Key: key, Since: &start, Unit: unit}, nil
}

type RevenuePoint struct {
	Period  string  `json:"period" bson:"_id"`
	Revenue float64 `json:"revenue" bson:"revenue"`
	Orders  int64   `json:"orders" bson:"orders"`
}

type ProductStat struct {
	ProductID   string  `json:"productId" bson:"_id"`
	ProductName string  `json:"productName" bson:"productName"`
	Category    string  `json:"category" bson:"category"`
	Quantity    int64   `json:"quantity" bson:"quantity"`
	Revenue     float64 `json:"revenue" bson:"revenue"`
}

type CustomerStat struct {
	Email      string    `json:"email" bson:"_id"`
	Name       string    `json:"name" bson:"name"`
	Orders     int64     `json:"orders" bson:"orders"`
	TotalSpent float64   `json:"totalSpent" bson:"totalSpent"`
	FirstOrder time.Time `json:"firstOrder" bson:"firstOrder"`
	LastOrder  time.Time `json:"lastOrder" bson:"lastOrder"`
}

type Bucket struct {
	Label     string  `json:"label"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max,omitempty"`
	Customers int64   `json:"customers"`
}

type Segments struct {
	New       int64 `json:"new"`
	Returning int64 `json:"returning"`
	Loyal     int64 `json:"loyal"`
	AtRisk    int64 `json:"atRisk"`
}

type Totals struct {
	Orders            int64   `json:"orders"`
	PaidOrders        int64   `json:"paidOrders"`
	Revenue           float64 `json:"revenue"`
	AverageOrderValue float64 `json:"averageOrderValue"`
	Customers         int64   `json:"customers"`
	NewUsers          int64   `json:"newUsers"`
}

type Report struct {
	Range          string         `json:"range"`
	Since          *time.Time     `json:"since,omitempty"`
	Unit           string         `json:"unit"`
	RevenueSeries  []RevenuePoint `json:"revenueOverTime"`
	TopProducts    []ProductStat  `json:"topProducts"`
	TopCustomers   []CustomerStat `json:"topCustomers"`
	LifetimeValues []Bucket       `json:"lifetimeValue"`
	Segments       Segments       `json:"segments"`
	Totals         Totals         `json:"totals"`
}

// Source runs the aggregations. Revenue figures only count paid orders.
type Source interface {
	Revenue(ctx context.Context, w Window) ([]RevenuePoint, error)
	TopProducts(ctx context.Context, w Window, limit int) ([]ProductStat, error)
	Customers(ctx context.Context, w Window) ([]CustomerStat, error)
	OrderCount(ctx context.Context, w Window) (int64, error)
	NewUsers(ctx context.Context, w Window) (int64, error)
}

type Service struct {
	src Source
	now func() time.Time
}

func NewService(src Source) *Service {
	return &Service{src: src, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Report(ctx context.Context, rangeKey string) (*Report, error) {
	now := s.now()
	w, err := ParseWindow(rangeKey, now)
	if err != nil {
		return nil, err
	}

	series, err := s.src.Revenue(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("revenue over time: %w", err)
	}
	products, err := s.src.TopProducts(ctx, w, topLimit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	customers, err := s.src.Customers(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("customers: %w", err)
	}
	orderCount, err := s.src.OrderCount(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("order count: %w", err)
	}
	newUsers, err := s.src.NewUsers(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("new users: %w", err)
	}

	totals := Totals{Orders: orderCount, Customers: int64(len(customers)), NewUsers: newUsers}
	for _, c := range customers {
		totals.PaidOrders += c.Orders
		totals.Revenue += c.TotalSpent
	}
	if totals.PaidOrders > 0 {
		totals.AverageOrderValue = round2(totals.Revenue / float64(totals.PaidOrders))
	}
	totals.Revenue = round2(totals.Revenue)

	return &Report{
		Range:          w.Key,
		Since:          w.Since,
		Unit:           w.Unit,
		RevenueSeries:  series,
		TopProducts:    products,
		TopCustomers:   topCustomers(customers, topLimit),
		LifetimeValues: lifetimeBuckets(customers),
		Segments:       segment(customers, now),
		Totals:         totals,
	}, nil
}

func topCustomers(customers []CustomerStat, limit int) []CustomerStat {
	out := append([]CustomerStat(nil), customers...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalSpent != out[j].TotalSpent {
			return out[i].TotalSpent > out[j].TotalSpent
		}
		return out[i].Email < out[j].Email
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// lifetimeBuckets groups customers by total spend. Max is exclusive; the
// last bucket is open ended.
var ltvBounds = []Bucket{
	{Label: "under 1k", Min: 0, Max: 1000},
	{Label: "1k-5k", Min: 1000, Max: 5000},
	{Label: "5k-10k", Min: 5000, Max: 10000},
	{Label: "10k-25k", Min: 10000, Max: 25000},
	{Label: "25k+", Min: 25000},
}

func lifetimeBuckets(customers []CustomerStat) []Bucket {
	out := append([]Bucket(nil), ltvBounds...)
	for _, c := range customers {
		for i := range out {
			if c.TotalSpent >= out[i].Min && (out[i].Max == 0 || c.TotalSpent < out[i].Max) {
				out[i].Customers++
				break
			}
		}
	}
	return out
}

const atRiskAfter = 90 * 24 * time.Hour

// segment classifies customers by paid order count; anyone whose last order
// is older than 90 days is also counted as at risk.
func segment(customers []CustomerStat, now time.Time) Segments {
	var s Segments
	for _, c := range customers {
		switch {
		case c.Orders >= 5:
			s.Loyal++
		case c.Orders >= 2:
			s.Returning++
		default:
			s.New++
		}
		if !c.LastOrder.IsZero() && now.Sub(c.LastOrder) > atRiskAfter {
			s.AtRisk++
		}
	}
	return s
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
