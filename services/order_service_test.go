package services

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/cheongsim/delivery-app/config"
	"github.com/cheongsim/delivery-app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPlaceOrder(t *testing.T) {
	db := newTestDB(t)
	sender := &fakeSender{}
	svc := NewOrderService(db, newTestDispatcher(db, sender, 8), config.NotificationModeQueued)
	ctx := context.Background()

	kimbap := createMenu(t, db, "Kimbap", 3000, true)
	ramen := createMenu(t, db, "Ramen", 4500, false)
	createRider(t, db, "Kim", "01011112222")
	createRider(t, db, "Lee", "01033334444")

	in := orderInput("01099998888",
		OrderLineInput{MenuID: kimbap.ID, Count: 2},
		OrderLineInput{MenuID: ramen.ID, Count: 1},
	)
	in.Memo = "hi! there_2"

	order, err := svc.PlaceOrder(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, int64(1), order.OrderNumber)
	assert.Equal(t, int64(10500), order.TotalPrice)
	assert.False(t, order.IsDone)
	assert.Equal(t, "hi there_2", order.Memo)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, "Kimbap", order.Lines[0].MenuName)
	assert.Equal(t, int64(3000), order.Lines[0].Price)
	assert.Equal(t, "Ramen", order.Lines[1].MenuName)

	var stored models.Menu
	require.NoError(t, db.First(&stored, "id = ?", kimbap.ID).Error)
	assert.Equal(t, int64(2), stored.CountPerMenu)

	var tasks []models.NotificationTask
	require.NoError(t, db.Order("recipient ASC").Find(&tasks).Error)
	require.Len(t, tasks, 2)
	assert.Equal(t, "01011112222", tasks[0].Recipient)
	assert.Equal(t, "01033334444", tasks[1].Recipient)
	assert.Equal(t, models.NotificationPending, tasks[0].Status)
	assert.Contains(t, tasks[0].Text, "주문번호 : 1")
	assert.Contains(t, tasks[0].Text, "전체 가격 : 10500")

	// nomor berikutnya
	second, err := svc.PlaceOrder(ctx, orderInput("01099998888", OrderLineInput{MenuID: kimbap.ID, Count: 1}))
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.OrderNumber)
}

func TestPlaceOrderIgnoresClientPrice(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, newTestDispatcher(db, &fakeSender{}, 8), config.NotificationModeQueued)

	kimbap := createMenu(t, db, "Kimbap", 3000, true)
	cheap := int64(1)

	order, err := svc.PlaceOrder(context.Background(),
		orderInput("01099998888", OrderLineInput{MenuID: kimbap.ID, Count: 3, Price: &cheap}))
	require.NoError(t, err)
	assert.Equal(t, int64(9000), order.TotalPrice)
	assert.Equal(t, int64(3000), order.Lines[0].Price)
}

func TestPlaceOrderUnknownMenu(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, newTestDispatcher(db, &fakeSender{}, 8), config.NotificationModeQueued)
	ctx := context.Background()

	kimbap := createMenu(t, db, "Kimbap", 3000, true)
	createRider(t, db, "Kim", "01011112222")

	_, err := svc.PlaceOrder(ctx, orderInput("01099998888",
		OrderLineInput{MenuID: kimbap.ID, Count: 1},
		OrderLineInput{MenuID: "missing-menu", Count: 1},
	))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "menu item not found: missing-menu", err.Error())

	var menuErr *MenuNotFoundError
	require.True(t, errors.As(err, &menuErr))
	assert.Equal(t, "missing-menu", menuErr.MenuID)

	var orders, tasks int64
	db.Model(&models.Order{}).Count(&orders)
	db.Model(&models.NotificationTask{}).Count(&tasks)
	assert.Zero(t, orders)
	assert.Zero(t, tasks)

	var stored models.Menu
	require.NoError(t, db.First(&stored, "id = ?", kimbap.ID).Error)
	assert.Zero(t, stored.CountPerMenu)

	// nomor order tidak terpakai oleh percobaan yang gagal
	order, err := svc.PlaceOrder(ctx, orderInput("01099998888", OrderLineInput{MenuID: kimbap.ID, Count: 1}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), order.OrderNumber)
}

func TestPlaceOrderValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, newTestDispatcher(db, &fakeSender{}, 8), config.NotificationModeQueued)
	kimbap := createMenu(t, db, "Kimbap", 3000, true)
	line := OrderLineInput{MenuID: kimbap.ID, Count: 1}

	tests := []struct {
		name   string
		mutate func(in *PlaceOrderInput)
	}{
		{"empty customer name", func(in *PlaceOrderInput) { in.CustomerName = " " }},
		{"empty order list", func(in *PlaceOrderInput) { in.OrderList = nil }},
		{"zero count", func(in *PlaceOrderInput) { in.OrderList[0].Count = 0 }},
		{"negative count", func(in *PlaceOrderInput) { in.OrderList[0].Count = -2 }},
		{"empty destination", func(in *PlaceOrderInput) { in.Destination = "" }},
		{"destination too long", func(in *PlaceOrderInput) { in.Destination = strings.Repeat("가", 51) }},
		{"short customer number", func(in *PlaceOrderInput) { in.CustomerNumber = "0101234567" }},
		{"customer number with dashes", func(in *PlaceOrderInput) { in.CustomerNumber = "010-1234-56" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := orderInput("01099998888", line)
			tt.mutate(&in)

			_, err := svc.PlaceOrder(context.Background(), in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}

	// 50 karakter Hangul masih diterima
	in := orderInput("01099998888", line)
	in.Destination = strings.Repeat("가", 50)
	require.Equal(t, 50, utf8.RuneCountInString(in.Destination))
	order, err := svc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in.Destination, order.Destination)
}

func TestPlaceOrderConcurrentNumbersAreUnique(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, newTestDispatcher(db, &fakeSender{}, 8), config.NotificationModeQueued)
	kimbap := createMenu(t, db, "Kimbap", 3000, true)
	createRider(t, db, "Kim", "01011112222")

	const placements = 20
	numbers := make(chan int64, placements)
	var wg sync.WaitGroup
	for i := 0; i < placements; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, err := svc.PlaceOrder(context.Background(),
				orderInput("01099998888", OrderLineInput{MenuID: kimbap.ID, Count: 1}))
			if assert.NoError(t, err) {
				numbers <- order.OrderNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	var got []int
	for n := range numbers {
		got = append(got, int(n))
	}
	sort.Ints(got)
	require.Len(t, got, placements)
	for i, n := range got {
		assert.Equal(t, i+1, n)
	}
}

func TestPlaceOrderSyncMode(t *testing.T) {
	t.Run("send failure rolls back", func(t *testing.T) {
		db := newTestDB(t)
		sender := &fakeSender{alwaysFail: true}
		svc := NewOrderService(db, newTestDispatcher(db, sender, 8), config.NotificationModeSync)
		kimbap := createMenu(t, db, "Kimbap", 3000, true)
		createRider(t, db, "Kim", "01011112222")

		_, err := svc.PlaceOrder(context.Background(),
			orderInput("01099998888", OrderLineInput{MenuID: kimbap.ID, Count: 1}))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotificationFailed))

		var orders int64
		db.Model(&models.Order{}).Count(&orders)
		assert.Zero(t, orders)
	})

	t.Run("empty mode defaults to sync", func(t *testing.T) {
		db := newTestDB(t)
		sender := &fakeSender{alwaysFail: true}
		svc := NewOrderService(db, newTestDispatcher(db, sender, 8), "")
		kimbap := createMenu(t, db, "Kimbap", 3000, true)
		createRider(t, db, "Kim", "01011112222")

		_, err := svc.PlaceOrder(context.Background(),
			orderInput("01099998888", OrderLineInput{MenuID: kimbap.ID, Count: 1}))
		assert.True(t, errors.Is(err, ErrNotificationFailed))

		var orders, tasks int64
		db.Model(&models.Order{}).Count(&orders)
		db.Model(&models.NotificationTask{}).Count(&tasks)
		assert.Zero(t, orders)
		assert.Zero(t, tasks)
	})

	t.Run("sends before persisting", func(t *testing.T) {
		db := newTestDB(t)
		sender := &fakeSender{}
		svc := NewOrderService(db, newTestDispatcher(db, sender, 8), config.NotificationModeSync)
		kimbap := createMenu(t, db, "Kimbap", 3000, true)
		createRider(t, db, "Kim", "01011112222")

		order, err := svc.PlaceOrder(context.Background(),
			orderInput("01099998888", OrderLineInput{MenuID: kimbap.ID, Count: 1}))
		require.NoError(t, err)

		sent := sender.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "01011112222", sent[0].To)
		assert.Equal(t, BuildOrderMessage(order), sent[0].Text)

		var tasks int64
		db.Model(&models.NotificationTask{}).Count(&tasks)
		assert.Zero(t, tasks)
	})
}

func TestPlaceOrderWithoutRiders(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, newTestDispatcher(db, &fakeSender{}, 8), config.NotificationModeQueued)
	kimbap := createMenu(t, db, "Kimbap", 3000, true)

	order, err := svc.PlaceOrder(context.Background(),
		orderInput("01099998888", OrderLineInput{MenuID: kimbap.ID, Count: 1}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), order.OrderNumber)

	var tasks int64
	db.Model(&models.NotificationTask{}).Count(&tasks)
	assert.Zero(t, tasks)
}

func TestSanitizeMemo(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hi! there_2", "hi there_2"},
		{"", ""},
		{"<script>alert(1)</script>", "scriptalert1script"},
		{"문 앞에 놓아주세요", "  "},
		{"abcdefghijklmnopqrstuvwxyz", "abcdefghijklmnopqrst"},
		{"ring the bell!!! twice", "ring the bell twice"},
		{"문\u3000앞", "\u3000"},
		{"a\u00a0b", "a\u00a0b"},
		{"a\vb", "a\vb"},
		{"a\u2028b\u202f!", "a\u2028b\u202f"},
		{"\ufeffhi\u1680", "\ufeffhi\u1680"},
		{"x\u2000\u200ay\u200b", "x\u2000\u200ay"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeMemo(tt.in), "memo %q", tt.in)
	}
}

func TestSanitizeMemoProperties(t *testing.T) {
	allowed := regexp.MustCompile(`^[0-9A-Za-z_\t\n\v\f\r \x{00A0}\x{1680}\x{2000}-\x{200A}\x{2028}\x{2029}\x{202F}\x{205F}\x{3000}\x{FEFF}]*$`)

	rapid.Check(t, func(t *rapid.T) {
		memo := rapid.String().Draw(t, "memo")
		got := SanitizeMemo(memo)

		if utf8.RuneCountInString(got) > 20 {
			t.Fatalf("memo %q longer than 20 characters", got)
		}
		if !allowed.MatchString(got) {
			t.Fatalf("memo %q contains special characters", got)
		}
		if SanitizeMemo(got) != got {
			t.Fatalf("sanitizing %q twice changed it", got)
		}
	})
}

func TestTotalPriceProperty(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, newTestDispatcher(db, &fakeSender{}, 8), config.NotificationModeQueued)

	rapid.Check(t, func(rt *rapid.T) {
		lines := rapid.IntRange(1, 4).Draw(rt, "lines")

		var in []OrderLineInput
		var want int64
		for i := 0; i < lines; i++ {
			price := rapid.Int64Range(0, 50000).Draw(rt, "price")
			count := rapid.IntRange(1, 10).Draw(rt, "count")
			valid := rapid.Bool().Draw(rt, "valid")

			menu := createMenu(rt, db, "Menu", price, valid)
			in = append(in, OrderLineInput{MenuID: menu.ID, Count: count})
			want += price * int64(count)
		}

		order, err := svc.PlaceOrder(context.Background(), orderInput("01099998888", in...))
		require.NoError(rt, err)
		if order.TotalPrice != want {
			rt.Fatalf("totalPrice = %d, want %d", order.TotalPrice, want)
		}
	})
}

func TestBuildOrderMessage(t *testing.T) {
	order := &models.Order{
		OrderNumber:    7,
		CustomerName:   "Kim",
		Destination:    "Dorm A",
		CustomerNumber: "01099998888",
		TotalPrice:     12000,
		Lines: []models.OrderLine{
			{MenuName: "Kimbap", Count: 2},
			{MenuName: "Ramen", Count: 1},
			{MenuName: "Kimbap", Count: 1},
		},
	}

	want := "주문번호 : 7\n" +
		"주문자 이름 : Kim\n" +
		"주문 내역 : Kimbap - 3개, Ramen - 1개\n" +
		"주문장소 : Dorm A\n" +
		"주문자 번호 : 01099998888\n" +
		"전체 가격 : 12000"
	assert.Equal(t, want, BuildOrderMessage(order))
}

func TestListAndGetOrders(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, newTestDispatcher(db, &fakeSender{}, 8), config.NotificationModeQueued)
	ctx := context.Background()

	kimbap := createMenu(t, db, "Kimbap", 3000, true)
	ramen := createMenu(t, db, "Ramen", 4500, true)

	first, err := svc.PlaceOrder(ctx, orderInput("01099998888",
		OrderLineInput{MenuID: ramen.ID, Count: 1},
		OrderLineInput{MenuID: kimbap.ID, Count: 2},
	))
	require.NoError(t, err)
	second, err := svc.PlaceOrder(ctx, orderInput("01077776666", OrderLineInput{MenuID: kimbap.ID, Count: 1}))
	require.NoError(t, err)

	orders, err := svc.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)

	// urutan baris sama dengan urutan request
	require.Len(t, orders[1].Lines, 2)
	assert.Equal(t, "Ramen", orders[1].Lines[0].MenuName)
	assert.Equal(t, "Kimbap", orders[1].Lines[1].MenuName)
	assert.True(t, orders[1].Lines[0].MenuResolved)

	got, err := svc.GetOrder(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.OrderNumber, got.OrderNumber)

	_, err = svc.GetOrder(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMenuDeletionLeavesLinesUnresolved(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, newTestDispatcher(db, &fakeSender{}, 8), config.NotificationModeQueued)
	ctx := context.Background()

	kimbap := createMenu(t, db, "Kimbap", 3000, true)
	order, err := svc.PlaceOrder(ctx, orderInput("01099998888", OrderLineInput{MenuID: kimbap.ID, Count: 2}))
	require.NoError(t, err)

	require.NoError(t, db.Delete(&models.Menu{}, "id = ?", kimbap.ID).Error)

	got, err := svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.False(t, got.Lines[0].MenuResolved)
	assert.Equal(t, "Kimbap", got.Lines[0].MenuName)
	assert.Equal(t, 2, got.Lines[0].Count)
	assert.Equal(t, int64(3000), got.Lines[0].Price)
	assert.Equal(t, int64(6000), got.TotalPrice)
}

func TestMenuRenameShowsLiveName(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, newTestDispatcher(db, &fakeSender{}, 8), config.NotificationModeQueued)
	ctx := context.Background()

	kimbap := createMenu(t, db, "Kimbap", 3000, true)
	order, err := svc.PlaceOrder(ctx, orderInput("01099998888", OrderLineInput{MenuID: kimbap.ID, Count: 1}))
	require.NoError(t, err)

	require.NoError(t, db.Model(&kimbap).Updates(map[string]interface{}{"name": "Tuna Kimbap", "price": 5000}).Error)

	got, err := svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tuna Kimbap", got.Lines[0].MenuName)
	assert.Equal(t, int64(3000), got.Lines[0].Price)
	assert.Equal(t, int64(3000), got.TotalPrice)
}

func TestUpdateOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, newTestDispatcher(db, &fakeSender{}, 8), config.NotificationModeQueued)
	ctx := context.Background()

	kimbap := createMenu(t, db, "Kimbap", 3000, true)
	order, err := svc.PlaceOrder(ctx, orderInput("01099998888", OrderLineInput{MenuID: kimbap.ID, Count: 1}))
	require.NoError(t, err)

	fields := map[string]json.RawMessage{
		"isDone":      json.RawMessage(`true`),
		"destination": json.RawMessage(`"Dorm B 102"`),
		"unknown":     json.RawMessage(`"ignored"`),
		"orderList":   json.RawMessage(`[]`),
	}
	updated, err := svc.UpdateOrder(ctx, order.ID, fields)
	require.NoError(t, err)
	assert.True(t, updated.IsDone)
	assert.Equal(t, "Dorm B 102", updated.Destination)
	assert.Len(t, updated.Lines, 1)
	assert.False(t, updated.UpdatedAt.Before(order.UpdatedAt))

	_, err = svc.UpdateOrder(ctx, order.ID, map[string]json.RawMessage{"isDone": json.RawMessage(`"yes"`)})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = svc.UpdateOrder(ctx, "missing", map[string]json.RawMessage{"isDone": json.RawMessage(`true`)})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSetCompletion(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, newTestDispatcher(db, &fakeSender{}, 8), config.NotificationModeQueued)
	ctx := context.Background()

	kimbap := createMenu(t, db, "Kimbap", 3000, true)
	order, err := svc.PlaceOrder(ctx, orderInput("01099998888", OrderLineInput{MenuID: kimbap.ID, Count: 1}))
	require.NoError(t, err)

	done, err := svc.SetCompletion(ctx, order.ID, true)
	require.NoError(t, err)
	assert.True(t, done.IsDone)

	undone, err := svc.SetCompletion(ctx, order.ID, false)
	require.NoError(t, err)
	assert.False(t, undone.IsDone)

	_, err = svc.SetCompletion(ctx, "missing", true)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestWaitingPosition(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, newTestDispatcher(db, &fakeSender{}, 8), config.NotificationModeQueued)
	ctx := context.Background()
	kimbap := createMenu(t, db, "Kimbap", 3000, true)
	line := OrderLineInput{MenuID: kimbap.ID, Count: 1}

	a, err := svc.PlaceOrder(ctx, orderInput("01000000001", line))
	require.NoError(t, err)
	b, err := svc.PlaceOrder(ctx, orderInput("01000000002", line))
	require.NoError(t, err)
	c, err := svc.PlaceOrder(ctx, orderInput("01000000003", line))
	require.NoError(t, err)

	pos, err := svc.WaitingPosition(ctx, "01000000003")
	require.NoError(t, err)
	assert.Equal(t, &WaitingPosition{OrderID: c.ID, OrderNumber: 3, Position: 3, Total: 3}, pos)

	_, err = svc.SetCompletion(ctx, a.ID, true)
	require.NoError(t, err)

	pos, err = svc.WaitingPosition(ctx, "01000000002")
	require.NoError(t, err)
	assert.Equal(t, b.ID, pos.OrderID)
	assert.Equal(t, 1, pos.Position)
	assert.Equal(t, 2, pos.Total)

	_, err = svc.WaitingPosition(ctx, "01000000001")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = svc.WaitingPosition(ctx, "01055555555")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestOrdersByCustomerNumber(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, newTestDispatcher(db, &fakeSender{}, 8), config.NotificationModeQueued)
	ctx := context.Background()
	kimbap := createMenu(t, db, "Kimbap", 3000, true)
	line := OrderLineInput{MenuID: kimbap.ID, Count: 1}

	first, err := svc.PlaceOrder(ctx, orderInput("01099998888", line))
	require.NoError(t, err)
	_, err = svc.PlaceOrder(ctx, orderInput("01011110000", line))
	require.NoError(t, err)
	second, err := svc.PlaceOrder(ctx, orderInput("01099998888", line))
	require.NoError(t, err)
	_, err = svc.SetCompletion(ctx, first.ID, true)
	require.NoError(t, err)

	orders, err := svc.OrdersByCustomerNumber(ctx, "01099998888")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, first.ID, orders[0].ID)
	assert.True(t, orders[0].IsDone)
	assert.Equal(t, second.ID, orders[1].ID)
	assert.Equal(t, "Kimbap", orders[1].Lines[0].MenuName)

	_, err = svc.OrdersByCustomerNumber(ctx, "01000000000")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDeleteOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, newTestDispatcher(db, &fakeSender{}, 8), config.NotificationModeQueued)
	ctx := context.Background()
	kimbap := createMenu(t, db, "Kimbap", 3000, true)
	createRider(t, db, "Kim", "01011112222")

	order, err := svc.PlaceOrder(ctx, orderInput("01099998888", OrderLineInput{MenuID: kimbap.ID, Count: 1}))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteOrder(ctx, order.ID))

	var lines, tasks int64
	db.Model(&models.OrderLine{}).Where("order_id = ?", order.ID).Count(&lines)
	db.Model(&models.NotificationTask{}).Where("order_id = ?", order.ID).Count(&tasks)
	assert.Zero(t, lines)
	assert.Equal(t, int64(1), tasks)

	err = svc.DeleteOrder(ctx, order.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}
