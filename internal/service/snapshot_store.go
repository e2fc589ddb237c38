package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/SonetShaji6/quicklearn/internal/model"

	"github.com/go-redis/redis/v8"
)

// Snapshot 进行中会话的持久镜像。deadline 以落盘值为准，恢复时绝不重新计算
type Snapshot struct {
	TestID   string
	Deadline time.Time
	Answers  model.AnswerList
}

// SnapshotStore 会话快照的持久化适配器。
// 实现要求 Save 为写穿语义：调用返回即视为已落盘
type SnapshotStore interface {
	Save(ctx context.Context, userID uint, snap *Snapshot) error
	Load(ctx context.Context, userID uint, testID string) (*Snapshot, error)
	Delete(ctx context.Context, userID uint, testID string) error
}

// RedisSnapshotStore 三个键对应一份快照：活动卷标记、截止时刻、答案数组
type RedisSnapshotStore struct {
	Client *redis.Client
}

func NewRedisSnapshotStore(client *redis.Client) *RedisSnapshotStore {
	return &RedisSnapshotStore{Client: client}
}

func activeKey(userID uint) string {
	return fmt.Sprintf("ql:active:%d", userID)
}

func endtimeKey(userID uint, testID string) string {
	return fmt.Sprintf("ql:endtime:%d:%s", userID, testID)
}

func answersKey(userID uint, testID string) string {
	return fmt.Sprintf("ql:answers:%d:%s", userID, testID)
}

func (s *RedisSnapshotStore) Save(ctx context.Context, userID uint, snap *Snapshot) error {
	payload, err := json.Marshal(snap.Answers)
	if err != nil {
		return err
	}

	// 快照在截止后按陈旧策略处理，键本身多保留一天做兜底清理
	ttl := time.Until(snap.Deadline) + 24*time.Hour

	pipe := s.Client.TxPipeline()
	pipe.Set(ctx, activeKey(userID), snap.TestID, ttl)
	pipe.Set(ctx, endtimeKey(userID, snap.TestID), strconv.FormatInt(snap.Deadline.UnixMilli(), 10), ttl)
	pipe.Set(ctx, answersKey(userID, snap.TestID), payload, ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisSnapshotStore) Load(ctx context.Context, userID uint, testID string) (*Snapshot, error) {
	raw, err := s.Client.Get(ctx, endtimeKey(userID, testID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt snapshot deadline for user %d test %s: %w", userID, testID, err)
	}

	snap := &Snapshot{
		TestID:   testID,
		Deadline: time.UnixMilli(millis),
	}

	payload, err := s.Client.Get(ctx, answersKey(userID, testID)).Result()
	if err == redis.Nil {
		return snap, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &snap.Answers); err != nil {
		return nil, fmt.Errorf("corrupt snapshot answers for user %d test %s: %w", userID, testID, err)
	}

	return snap, nil
}

func (s *RedisSnapshotStore) Delete(ctx context.Context, userID uint, testID string) error {
	pipe := s.Client.TxPipeline()
	pipe.Del(ctx, activeKey(userID))
	pipe.Del(ctx, endtimeKey(userID, testID))
	pipe.Del(ctx, answersKey(userID, testID))
	_, err := pipe.Exec(ctx)
	return err
}
