package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cheongsim/delivery-app/models"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const notificationQueueKey = "delivery:notifications:due"

// Scheduler menyimpan kapan sebuah notification task harus dicoba lagi
type Scheduler interface {
	Schedule(ctx context.Context, taskID string, at time.Time) error
	PopDue(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// DBScheduler memakai kolom next_attempt_at di tabel notification_tasks
type DBScheduler struct {
	db *gorm.DB
}

func NewDBScheduler(db *gorm.DB) *DBScheduler {
	return &DBScheduler{db: db}
}

func (s *DBScheduler) Schedule(ctx context.Context, taskID string, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.NotificationTask{}).
		Where("id = ? AND status = ?", taskID, models.NotificationPending).
		UpdateColumn("next_attempt_at", at).Error
}

func (s *DBScheduler) PopDue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.NotificationTask{}).
		Where("status = ? AND next_attempt_at <= ?", models.NotificationPending, now).
		Order("next_attempt_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// RedisScheduler menyimpan task id di sorted set dengan score = waktu jatuh tempo
type RedisScheduler struct {
	client *redis.Client
}

func NewRedisScheduler(redisURL string) (*RedisScheduler, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisScheduler{client: client}, nil
}

func (s *RedisScheduler) Close() error {
	return s.client.Close()
}

func (s *RedisScheduler) Schedule(ctx context.Context, taskID string, at time.Time) error {
	return s.client.ZAdd(ctx, notificationQueueKey, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: taskID,
	}).Err()
}

func (s *RedisScheduler) PopDue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	members, err := s.client.ZRangeByScore(ctx, notificationQueueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get due tasks: %w", err)
	}

	ids := make([]string, 0, len(members))
	for _, member := range members {
		removed, err := s.client.ZRem(ctx, notificationQueueKey, member).Result()
		if err != nil {
			return ids, fmt.Errorf("failed to remove task from queue: %w", err)
		}
		// sudah diambil worker lain
		if removed == 0 {
			continue
		}
		ids = append(ids, member)
	}
	return ids, nil
}
