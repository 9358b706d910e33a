package services

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/cheongsim/delivery-app/models"
	"github.com/cheongsim/delivery-app/utils"
	"github.com/wcharczuk/go-chart/v2"
	"gorm.io/gorm"
)

type MenuSales struct {
	MenuName string `json:"menuName"`
	Count    int64  `json:"count"`
	Total    int64  `json:"total"`
}

type SalesStats struct {
	Menus        []MenuSales `json:"menus"`
	OrderCount   int64       `json:"orderCount"`
	TotalCount   int64       `json:"totalCount"`
	TotalRevenue int64       `json:"totalRevenue"`
}

type SalesService struct {
	db *gorm.DB
}

func NewSalesService(db *gorm.DB) *SalesService {
	return &SalesService{db: db}
}

// Stats menghitung jumlah dan pendapatan per nama menu dari harga yang dicatat di order
func (s *SalesService) Stats(ctx context.Context) (*SalesStats, error) {
	db := s.db.WithContext(ctx)

	stats := &SalesStats{Menus: []MenuSales{}}
	if err := db.Model(&models.Order{}).Count(&stats.OrderCount).Error; err != nil {
		return nil, err
	}

	var lines []models.OrderLine
	if err := db.Order("order_id ASC, position ASC").Find(&lines).Error; err != nil {
		return nil, err
	}

	// pakai resolveLineNames supaya pengelompokan sama dengan daftar order
	holder := []models.Order{{Lines: lines}}
	if err := resolveLineNames(db, holder); err != nil {
		return nil, err
	}

	byName := make(map[string]*MenuSales)
	for _, line := range holder[0].Lines {
		if line.MenuName == "" {
			continue
		}
		entry, ok := byName[line.MenuName]
		if !ok {
			entry = &MenuSales{MenuName: line.MenuName}
			byName[line.MenuName] = entry
		}
		entry.Count += int64(line.Count)
		entry.Total += line.Subtotal()
	}

	for _, entry := range byName {
		stats.Menus = append(stats.Menus, *entry)
		stats.TotalCount += entry.Count
		stats.TotalRevenue += entry.Total
	}
	sort.Slice(stats.Menus, func(i, j int) bool {
		if stats.Menus[i].Total != stats.Menus[j].Total {
			return stats.Menus[i].Total > stats.Menus[j].Total
		}
		return stats.Menus[i].MenuName < stats.Menus[j].MenuName
	})
	return stats, nil
}

// RenderChart menulis grafik batang pendapatan per menu dalam format PNG
func (s *SalesService) RenderChart(ctx context.Context, w io.Writer) error {
	stats, err := s.Stats(ctx)
	if err != nil {
		return err
	}
	if stats.TotalRevenue == 0 {
		return fmt.Errorf("sales: %w", ErrNotFound)
	}

	var highest int64
	bars := make([]chart.Value, 0, len(stats.Menus))
	for _, menu := range stats.Menus {
		bars = append(bars, chart.Value{
			Label: menu.MenuName,
			Value: float64(menu.Total),
		})
		if menu.Total > highest {
			highest = menu.Total
		}
	}

	graph := chart.BarChart{
		Title: "Sales " + utils.FormatWon(stats.TotalRevenue),
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		Height:   512,
		BarWidth: 60,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(highest)},
		},
		Bars: bars,
	}
	return graph.Render(chart.PNG, w)
}
