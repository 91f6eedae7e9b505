package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
)

const statsMonths = 12

type MonthlyStats struct {
	Month   string          `json:"month"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// Stats is the admin dashboard summary. Revenue never counts cancelled
// orders.
type Stats struct {
	TotalOrders      int                        `json:"totalOrders"`
	TotalRevenue     decimal.Decimal            `json:"totalRevenue"`
	OrdersByStatus   map[models.OrderStatus]int `json:"ordersByStatus"`
	Monthly          []MonthlyStats             `json:"monthly"`
	TotalProducts    int64                      `json:"totalProducts"`
	LowStockProducts int64                      `json:"lowStockProducts"`
}

type StatsService struct {
	orders   *repositories.OrderRepository
	products *repositories.ProductRepository
	now      func() time.Time
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{
		orders:   repositories.NewOrderRepository(db),
		products: repositories.NewProductRepository(db),
		now:      time.Now,
	}
}

func (s *StatsService) Dashboard(ctx context.Context) (*Stats, error) {
	rows, err := s.orders.StatsRows(ctx)
	if err != nil {
		return nil, err
	}
	total, low, err := s.products.Count(ctx)
	if err != nil {
		return nil, err
	}

	st := Summarize(rows, s.now())
	st.TotalProducts, st.LowStockProducts = total, low
	return st, nil
}

// Summarize folds order rows into totals, per-status counts and the last
// twelve calendar months ending with now's month, oldest first.
func Summarize(rows []repositories.StatsRow, now time.Time) *Stats {
	st := &Stats{
		TotalRevenue:   decimal.Zero,
		OrdersByStatus: make(map[models.OrderStatus]int, len(models.OrderStatuses)),
		Monthly:        make([]MonthlyStats, statsMonths),
	}
	for _, status := range models.OrderStatuses {
		st.OrdersByStatus[status] = 0
	}

	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(statsMonths - 1), 0)
	index := make(map[string]int, statsMonths)
	for i := range st.Monthly {
		key := first.AddDate(0, i, 0).Format("2006-01")
		st.Monthly[i] = MonthlyStats{Month: key, Revenue: decimal.Zero}
		index[key] = i
	}

	for _, r := range rows {
		st.TotalOrders++
		st.OrdersByStatus[r.Status]++

		i, inWindow := index[r.CreatedAt.UTC().Format("2006-01")]
		if inWindow {
			st.Monthly[i].Orders++
		}
		if r.Status == models.StatusCancelled {
			continue
		}
		st.TotalRevenue = st.TotalRevenue.Add(r.TotalPrice)
		if inWindow {
			st.Monthly[i].Revenue = st.Monthly[i].Revenue.Add(r.TotalPrice)
		}
	}
	return st
}
