package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cheongsim/delivery-app/config"
	"github.com/cheongsim/delivery-app/database"
	"github.com/cheongsim/delivery-app/models"
	"github.com/cheongsim/delivery-app/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	utils.SilenceLoggers()

	db, err := config.InitDB(&config.Config{DBDriver: "sqlite", DatabaseURL: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type fakeSender struct {
	mu         sync.Mutex
	sent       []SMSMessage
	failures   int
	alwaysFail bool
}

func (f *fakeSender) SendMany(ctx context.Context, messages []SMSMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.alwaysFail {
		return errors.New("provider unavailable")
	}
	if f.failures > 0 {
		f.failures--
		return errors.New("provider unavailable")
	}
	f.sent = append(f.sent, messages...)
	return nil
}

func (f *fakeSender) Sent() []SMSMessage {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]SMSMessage(nil), f.sent...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestDispatcher(db *gorm.DB, sender MessageSender, maxAttempts int) *Dispatcher {
	return NewDispatcher(db, sender, NewDBScheduler(db), DispatcherOptions{
		From:        "0212345678",
		MaxAttempts: maxAttempts,
	})
}

func createMenu(t require.TestingT, db *gorm.DB, name string, price int64, valid bool) models.Menu {
	menu := models.Menu{Name: name, Price: price, IsValid: valid}
	require.NoError(t, db.Create(&menu).Error)
	return menu
}

func createRider(t require.TestingT, db *gorm.DB, name, number string) models.Rider {
	rider := models.Rider{Name: name, Number: number}
	require.NoError(t, db.Create(&rider).Error)
	return rider
}

func orderInput(customerNumber string, lines ...OrderLineInput) PlaceOrderInput {
	return PlaceOrderInput{
		CustomerName:   "Kim",
		OrderList:      lines,
		Destination:    "Dorm A 301",
		CustomerNumber: customerNumber,
		Memo:           "no onions",
	}
}
