package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cheongsim/delivery-app/config"
	"github.com/cheongsim/delivery-app/models"
	"github.com/cheongsim/delivery-app/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	maxDestinationLength = 50
	maxMemoLength        = 20
)

var (
	customerNumberPattern = regexp.MustCompile(`^[0-9]{11}$`)
	// semua karakter selain word character ASCII dan whitespace dibuang.
	// whitespace mengikuti kelas \s ECMAScript (termasuk \v, NBSP, U+3000, BOM).
	memoPattern = regexp.MustCompile(`[^\w\t\n\v\f\r \x{00A0}\x{1680}\x{2000}-\x{200A}\x{2028}\x{2029}\x{202F}\x{205F}\x{3000}\x{FEFF}]`)
)

type OrderLineInput struct {
	MenuID string `json:"menuId"`
	Count  int    `json:"count"`
	// Price dari client diabaikan, harga selalu diambil dari menu
	Price *int64 `json:"price,omitempty"`
}

type PlaceOrderInput struct {
	CustomerName   string           `json:"customerName"`
	OrderList      []OrderLineInput `json:"orderList"`
	Destination    string           `json:"destination"`
	CustomerNumber string           `json:"customerNumber"`
	Memo           string           `json:"memo"`
}

func (in PlaceOrderInput) Validate() error {
	if strings.TrimSpace(in.CustomerName) == "" {
		return fmt.Errorf("%w: customerName is required", ErrValidation)
	}
	if len(in.OrderList) == 0 {
		return fmt.Errorf("%w: orderList must not be empty", ErrValidation)
	}
	for i, item := range in.OrderList {
		if strings.TrimSpace(item.MenuID) == "" {
			return fmt.Errorf("%w: orderList[%d].menuId is required", ErrValidation, i)
		}
		if item.Count <= 0 {
			return fmt.Errorf("%w: orderList[%d].count must be positive", ErrValidation, i)
		}
	}
	if strings.TrimSpace(in.Destination) == "" {
		return fmt.Errorf("%w: destination is required", ErrValidation)
	}
	if utf8.RuneCountInString(in.Destination) > maxDestinationLength {
		return fmt.Errorf("%w: destination must be at most %d characters", ErrValidation, maxDestinationLength)
	}
	if !customerNumberPattern.MatchString(in.CustomerNumber) {
		return fmt.Errorf("%w: customerNumber must be exactly 11 digits", ErrValidation)
	}
	return nil
}

// SanitizeMemo membuang karakter khusus lalu memotong memo menjadi 20 karakter
func SanitizeMemo(memo string) string {
	cleaned := memoPattern.ReplaceAllString(memo, "")
	if utf8.RuneCountInString(cleaned) <= maxMemoLength {
		return cleaned
	}
	return string([]rune(cleaned)[:maxMemoLength])
}

// BuildOrderMessage membuat teks SMS untuk rider
func BuildOrderMessage(order *models.Order) string {
	counts := make(map[string]int)
	var names []string
	for _, line := range order.Lines {
		if _, seen := counts[line.MenuName]; !seen {
			names = append(names, line.MenuName)
		}
		counts[line.MenuName] += line.Count
	}

	summary := make([]string, 0, len(names))
	for _, name := range names {
		summary = append(summary, fmt.Sprintf("%s - %d개", name, counts[name]))
	}

	return fmt.Sprintf("주문번호 : %d\n주문자 이름 : %s\n주문 내역 : %s\n주문장소 : %s\n주문자 번호 : %s\n전체 가격 : %d",
		order.OrderNumber,
		order.CustomerName,
		strings.Join(summary, ", "),
		order.Destination,
		order.CustomerNumber,
		order.TotalPrice,
	)
}

// WaitingPosition adalah posisi order pertama milik pelanggan di antrian
type WaitingPosition struct {
	OrderID     string `json:"orderId"`
	OrderNumber int64  `json:"orderNumber"`
	Position    int    `json:"position"`
	Total       int    `json:"total"`
}

type OrderService struct {
	db         *gorm.DB
	dispatcher *Dispatcher
	mode       string
}

func NewOrderService(db *gorm.DB, dispatcher *Dispatcher, mode string) *OrderService {
	if mode == "" {
		mode = config.NotificationModeSync
	}
	return &OrderService{
		db:         db,
		dispatcher: dispatcher,
		mode:       mode,
	}
}

func orderNotFound(id string) error {
	return fmt.Errorf("order %s: %w", id, ErrNotFound)
}

func linesByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// PlaceOrder memvalidasi input, menghitung total, menyimpan order dan
// menyiapkan notifikasi untuk semua rider dalam satu transaksi.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*models.Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var (
		order models.Order
		tasks []models.NotificationTask
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		menus, err := resolveMenus(tx, in.OrderList)
		if err != nil {
			return err
		}

		var riders []models.Rider
		if err := tx.Order("created_at ASC").Find(&riders).Error; err != nil {
			return err
		}
		recipients := make([]string, 0, len(riders))
		for _, rider := range riders {
			recipients = append(recipients, rider.Number)
		}

		number, err := NextOrderNumber(tx)
		if err != nil {
			return fmt.Errorf("error taking order number: %w", err)
		}

		order = models.Order{
			OrderNumber:    number,
			CustomerName:   in.CustomerName,
			Destination:    in.Destination,
			CustomerNumber: in.CustomerNumber,
			Memo:           SanitizeMemo(in.Memo),
			IsDone:         false,
		}
		for i, item := range in.OrderList {
			menu := menus[item.MenuID]
			order.Lines = append(order.Lines, models.OrderLine{
				Position:     i,
				MenuID:       menu.ID,
				MenuName:     menu.Name,
				Count:        item.Count,
				Price:        menu.Price,
				MenuResolved: true,
			})
			order.TotalPrice += menu.Price * int64(item.Count)
		}

		text := BuildOrderMessage(&order)

		if s.mode == config.NotificationModeSync {
			// mode lama: kirim dulu, baru simpan
			if err := s.dispatcher.SendNow(ctx, &order, text, recipients); err != nil {
				return err
			}
		}

		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for _, item := range in.OrderList {
			if err := tx.Model(&models.Menu{}).
				Where("id = ?", item.MenuID).
				UpdateColumn("count_per_menu", gorm.Expr("count_per_menu + ?", item.Count)).Error; err != nil {
				return err
			}
		}

		if s.mode == config.NotificationModeQueued {
			tasks, err = s.dispatcher.CreateTasks(tx, &order, text, recipients)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(tasks) > 0 {
		if err := s.dispatcher.Schedule(ctx, tasks); err != nil {
			// task tetap pending di database dan dipulihkan saat start-up
			utils.ErrorLogger.Printf("Error scheduling notifications for order %d: %v", order.OrderNumber, err)
		}
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order":       order.ID,
		"orderNumber": order.OrderNumber,
		"totalPrice":  order.TotalPrice,
		"riders":      len(tasks),
	}).Info("Order placed")

	return &order, nil
}

func resolveMenus(tx *gorm.DB, items []OrderLineInput) (map[string]models.Menu, error) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.MenuID)
	}

	var menus []models.Menu
	if err := tx.Where("id IN ?", ids).Find(&menus).Error; err != nil {
		return nil, err
	}

	byID := make(map[string]models.Menu, len(menus))
	for _, menu := range menus {
		byID[menu.ID] = menu
	}
	for _, item := range items {
		if _, ok := byID[item.MenuID]; !ok {
			return nil, &MenuNotFoundError{MenuID: item.MenuID}
		}
	}
	return byID, nil
}

// resolveLineNames memakai nama menu terkini jika masih ada,
// selain itu nama yang dicatat saat order dibuat.
func resolveLineNames(db *gorm.DB, orders []models.Order) error {
	idSet := make(map[string]struct{})
	for _, order := range orders {
		for _, line := range order.Lines {
			idSet[line.MenuID] = struct{}{}
		}
	}
	if len(idSet) == 0 {
		return nil
	}

	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	var menus []models.Menu
	if err := db.Select("id", "name").Where("id IN ?", ids).Find(&menus).Error; err != nil {
		return err
	}
	names := make(map[string]string, len(menus))
	for _, menu := range menus {
		names[menu.ID] = menu.Name
	}

	for i := range orders {
		for j := range orders[i].Lines {
			line := &orders[i].Lines[j]
			if name, ok := names[line.MenuID]; ok {
				line.MenuName = name
				line.MenuResolved = true
			} else {
				line.MenuResolved = false
			}
		}
	}
	return nil
}

// ListOrders mengembalikan semua order, terbaru lebih dulu
func (s *OrderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	db := s.db.WithContext(ctx)

	var orders []models.Order
	if err := db.Preload("Lines", linesByPosition).
		Order("created_at DESC, order_number DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	if err := resolveLineNames(db, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	db := s.db.WithContext(ctx)

	var order models.Order
	if err := db.Preload("Lines", linesByPosition).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, orderNotFound(id)
		}
		return nil, err
	}

	orders := []models.Order{order}
	if err := resolveLineNames(db, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// kolom yang boleh di-merge oleh PUT /api/orders/:id
var mergeableOrderFields = map[string]string{
	"customerName":   "customer_name",
	"destination":    "destination",
	"customerNumber": "customer_number",
	"memo":           "memo",
	"isDone":         "is_done",
	"totalPrice":     "total_price",
	"orderNumber":    "order_number",
}

func decodeOrderField(key string, raw json.RawMessage) (interface{}, error) {
	switch key {
	case "isDone":
		var v bool
		err := json.Unmarshal(raw, &v)
		return v, err
	case "totalPrice", "orderNumber":
		var v int64
		err := json.Unmarshal(raw, &v)
		return v, err
	default:
		var v string
		err := json.Unmarshal(raw, &v)
		return v, err
	}
}

// UpdateOrder menimpa field skalar yang dikirim apa adanya (kompatibel dengan client lama).
// Key yang tidak dikenal dan orderList diabaikan.
func (s *OrderService) UpdateOrder(ctx context.Context, id string, fields map[string]json.RawMessage) (*models.Order, error) {
	updates := make(map[string]interface{})
	var merged []string
	for key, raw := range fields {
		column, ok := mergeableOrderFields[key]
		if !ok {
			continue
		}
		value, err := decodeOrderField(key, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid value for %s", ErrValidation, key)
		}
		updates[column] = value
		merged = append(merged, key)
	}

	sort.Strings(merged)
	for _, key := range merged {
		if key != "isDone" {
			utils.ErrorLogger.WithFields(logrus.Fields{
				"order":  id,
				"fields": merged,
			}).Warn("Legacy order update merged fields other than isDone")
			break
		}
	}

	return s.applyUpdates(ctx, id, updates)
}

// SetCompletion mengubah status selesai sebuah order
func (s *OrderService) SetCompletion(ctx context.Context, id string, isDone bool) (*models.Order, error) {
	return s.applyUpdates(ctx, id, map[string]interface{}{"is_done": isDone})
}

func (s *OrderService) applyUpdates(ctx context.Context, id string, updates map[string]interface{}) (*models.Order, error) {
	updates["updated_at"] = time.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return orderNotFound(id)
			}
			return err
		}
		return tx.Model(&order).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: orderNumber already in use", ErrValidation)
		}
		return nil, err
	}

	return s.GetOrder(ctx, id)
}

// DeleteOrder menghapus order beserta baris-barisnya. Task notifikasi dibiarkan.
func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return orderNotFound(id)
			}
			return err
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderLine{}).Error; err != nil {
			return err
		}
		return tx.Delete(&order).Error
	})
}

// OrdersByCustomerNumber mengembalikan semua order pelanggan, terlama lebih dulu
func (s *OrderService) OrdersByCustomerNumber(ctx context.Context, number string) ([]models.Order, error) {
	db := s.db.WithContext(ctx)

	var orders []models.Order
	if err := db.Preload("Lines", linesByPosition).
		Where("customer_number = ?", number).
		Order("created_at ASC, order_number ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("orders for %s: %w", number, ErrNotFound)
	}
	if err := resolveLineNames(db, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// WaitingPosition menghitung posisi order pertama pelanggan di antara order yang belum selesai
func (s *OrderService) WaitingPosition(ctx context.Context, number string) (*WaitingPosition, error) {
	var pending []models.Order
	if err := s.db.WithContext(ctx).
		Select("id", "order_number", "customer_number", "created_at").
		Where("is_done = ?", false).
		Order("created_at ASC, order_number ASC").
		Find(&pending).Error; err != nil {
		return nil, err
	}

	for i, order := range pending {
		if order.CustomerNumber == number {
			return &WaitingPosition{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				Position:    i + 1,
				Total:       len(pending),
			}, nil
		}
	}
	return nil, fmt.Errorf("waiting order for %s: %w", number, ErrNotFound)
}
