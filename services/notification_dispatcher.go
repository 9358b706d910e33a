package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cheongsim/delivery-app/models"
	"github.com/cheongsim/delivery-app/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const maxBackoff = time.Hour

// NotificationMetrics menyimpan metrik pengiriman notifikasi
type NotificationMetrics struct {
	Scheduled int64 `json:"scheduled"`
	Sent      int64 `json:"sent"`
	Failed    int64 `json:"failed"`
	Dead      int64 `json:"dead"`
}

// DispatcherOptions mengatur perilaku Dispatcher
type DispatcherOptions struct {
	// From adalah nomor pengirim; kosong berarti memakai nomor pemesan
	From         string
	MaxAttempts  int
	PollInterval time.Duration
	BatchSize    int
}

// Dispatcher mengirim NotificationTask secara at-least-once dengan retry
type Dispatcher struct {
	db        *gorm.DB
	sender    MessageSender
	scheduler Scheduler
	options   DispatcherOptions
	metrics   NotificationMetrics
	mutex     sync.Mutex
	// processing memastikan hanya satu ProcessDue berjalan
	processing sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
	now    func() time.Time
}

// NewDispatcher membuat instance baru Dispatcher
func NewDispatcher(db *gorm.DB, sender MessageSender, scheduler Scheduler, options DispatcherOptions) *Dispatcher {
	if options.MaxAttempts < 1 {
		options.MaxAttempts = 8
	}
	if options.PollInterval <= 0 {
		options.PollInterval = 2 * time.Second
	}
	if options.BatchSize <= 0 {
		options.BatchSize = 50
	}
	return &Dispatcher{
		db:        db,
		sender:    sender,
		scheduler: scheduler,
		options:   options,
		now:       time.Now,
	}
}

// Backoff -> min(2^(attempts-1) detik, 1 jam)
func Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	if attempts > 13 {
		return maxBackoff
	}
	delay := time.Second << uint(attempts-1)
	if delay > maxBackoff {
		return maxBackoff
	}
	return delay
}

func (d *Dispatcher) senderFor(customerNumber string) string {
	if d.options.From != "" {
		return d.options.From
	}
	return customerNumber
}

// CreateTasks menyimpan satu task per nomor rider di dalam transaksi order
func (d *Dispatcher) CreateTasks(tx *gorm.DB, order *models.Order, text string, recipients []string) ([]models.NotificationTask, error) {
	if len(recipients) == 0 {
		return nil, nil
	}

	now := d.now()
	tasks := make([]models.NotificationTask, 0, len(recipients))
	for _, recipient := range recipients {
		tasks = append(tasks, models.NotificationTask{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			Recipient:     recipient,
			Sender:        d.senderFor(order.CustomerNumber),
			Text:          text,
			Status:        models.NotificationPending,
			NextAttemptAt: now,
		})
	}

	if err := tx.Create(&tasks).Error; err != nil {
		return nil, fmt.Errorf("error creating notification tasks: %w", err)
	}
	return tasks, nil
}

// SendNow mengirim langsung ke semua rider (mode sync)
func (d *Dispatcher) SendNow(ctx context.Context, order *models.Order, text string, recipients []string) error {
	if len(recipients) == 0 {
		return nil
	}

	messages := make([]SMSMessage, 0, len(recipients))
	for _, recipient := range recipients {
		messages = append(messages, SMSMessage{
			To:   recipient,
			From: d.senderFor(order.CustomerNumber),
			Text: text,
		})
	}

	if err := d.sender.SendMany(ctx, messages); err != nil {
		d.mutex.Lock()
		d.metrics.Failed++
		d.mutex.Unlock()
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}

	d.mutex.Lock()
	d.metrics.Sent += int64(len(messages))
	d.mutex.Unlock()
	return nil
}

// Schedule mendaftarkan task ke scheduler
func (d *Dispatcher) Schedule(ctx context.Context, tasks []models.NotificationTask) error {
	var errs []error
	for _, task := range tasks {
		if err := d.scheduler.Schedule(ctx, task.ID, task.NextAttemptAt); err != nil {
			errs = append(errs, fmt.Errorf("task %s: %w", task.ID, err))
			continue
		}
		d.mutex.Lock()
		d.metrics.Scheduled++
		d.mutex.Unlock()
	}
	return errors.Join(errs...)
}

// ProcessDue mengirim semua task yang sudah jatuh tempo.
// Mengembalikan jumlah task yang diproses.
func (d *Dispatcher) ProcessDue(ctx context.Context) (int, error) {
	d.processing.Lock()
	defer d.processing.Unlock()

	ids, err := d.scheduler.PopDue(ctx, d.now(), d.options.BatchSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if d.deliver(ctx, id) {
			processed++
		}
	}
	return processed, nil
}

func (d *Dispatcher) deliver(ctx context.Context, taskID string) bool {
	var task models.NotificationTask
	if err := d.db.WithContext(ctx).First(&task, "id = ?", taskID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorLogger.Printf("Error finding notification task %s: %v", taskID, err)
		}
		return false
	}

	// Task sudah terkirim atau mati, tidak perlu dikirim ulang
	if task.Status != models.NotificationPending {
		return false
	}

	task.Attempts++
	sendErr := d.sender.SendMany(ctx, []SMSMessage{{
		To:   task.Recipient,
		From: task.Sender,
		Text: task.Text,
	}})

	fields := logrus.Fields{
		"task":        task.ID,
		"orderNumber": task.OrderNumber,
		"recipient":   task.Recipient,
		"attempts":    task.Attempts,
	}

	now := d.now()
	reschedule := false
	if sendErr == nil {
		task.Status = models.NotificationSent
		task.SentAt = &now
		task.LastError = ""
	} else {
		task.LastError = sendErr.Error()
		if task.Attempts >= d.options.MaxAttempts {
			task.Status = models.NotificationDead
		} else {
			task.NextAttemptAt = now.Add(Backoff(task.Attempts))
			reschedule = true
		}
	}

	if err := d.db.WithContext(ctx).Save(&task).Error; err != nil {
		utils.ErrorLogger.WithFields(fields).Errorf("Error updating notification task: %v", err)
		return false
	}

	d.mutex.Lock()
	switch task.Status {
	case models.NotificationSent:
		d.metrics.Sent++
	case models.NotificationDead:
		d.metrics.Failed++
		d.metrics.Dead++
	default:
		d.metrics.Failed++
	}
	d.mutex.Unlock()

	switch {
	case sendErr == nil:
		utils.InfoLogger.WithFields(fields).Info("Notification sent")
	case task.Status == models.NotificationDead:
		utils.ErrorLogger.WithFields(fields).Errorf("Notification gave up: %v", sendErr)
	default:
		utils.ErrorLogger.WithFields(fields).Warnf("Notification failed, retry at %s: %v",
			task.NextAttemptAt.Format(time.RFC3339), sendErr)
	}

	if reschedule {
		if err := d.scheduler.Schedule(ctx, task.ID, task.NextAttemptAt); err != nil {
			utils.ErrorLogger.WithFields(fields).Errorf("Error rescheduling notification task: %v", err)
		}
	}
	return true
}

// RecoverPending menjadwalkan ulang semua task pending, dipanggil saat start-up
func (d *Dispatcher) RecoverPending(ctx context.Context) (int, error) {
	var tasks []models.NotificationTask
	if err := d.db.WithContext(ctx).
		Where("status = ?", models.NotificationPending).
		Order("next_attempt_at ASC").
		Find(&tasks).Error; err != nil {
		return 0, err
	}

	if err := d.Schedule(ctx, tasks); err != nil {
		return 0, err
	}
	if len(tasks) > 0 {
		utils.InfoLogger.Printf("Recovered %d pending notification tasks", len(tasks))
	}
	return len(tasks), nil
}

// Retry mengembalikan task ke status pending supaya dikirim lagi
func (d *Dispatcher) Retry(ctx context.Context, taskID string) (*models.NotificationTask, error) {
	var task models.NotificationTask
	if err := d.db.WithContext(ctx).First(&task, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("notification task %s: %w", taskID, ErrNotFound)
		}
		return nil, err
	}

	if task.Status == models.NotificationSent {
		return nil, fmt.Errorf("%w: notification task already sent", ErrValidation)
	}

	task.Status = models.NotificationPending
	task.Attempts = 0
	task.NextAttemptAt = d.now()
	if err := d.db.WithContext(ctx).Save(&task).Error; err != nil {
		return nil, err
	}

	if err := d.Schedule(ctx, []models.NotificationTask{task}); err != nil {
		return nil, err
	}
	return &task, nil
}

// Tasks mengembalikan daftar task, opsional difilter per status
func (d *Dispatcher) Tasks(ctx context.Context, status string) ([]models.NotificationTask, error) {
	query := d.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var tasks []models.NotificationTask
	if err := query.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// StatusCounts menghitung jumlah task per status di database
func (d *Dispatcher) StatusCounts(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	if err := d.db.WithContext(ctx).
		Model(&models.NotificationTask{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := map[string]int64{
		models.NotificationPending: 0,
		models.NotificationSent:    0,
		models.NotificationDead:    0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// Metrics mengembalikan metrik saat ini
func (d *Dispatcher) Metrics() NotificationMetrics {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return d.metrics
}

// Start memulai goroutine polling
func (d *Dispatcher) Start() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})
	go d.run(ctx, d.done)

	utils.InfoLogger.Println("Notification dispatcher started")
}

// Stop menghentikan goroutine polling dan menunggu sampai selesai
func (d *Dispatcher) Stop() {
	d.mutex.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.mutex.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	utils.InfoLogger.Println("Notification dispatcher stopped")
}

func (d *Dispatcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(d.options.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.ProcessDue(ctx); err != nil && ctx.Err() == nil {
				utils.ErrorLogger.Printf("Error processing notification tasks: %v", err)
			}
		}
	}
}
