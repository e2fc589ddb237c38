package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/SonetShaji6/quicklearn/internal/model"
	"github.com/SonetShaji6/quicklearn/internal/repository"
	"github.com/SonetShaji6/quicklearn/pkg/logger"
	"github.com/SonetShaji6/quicklearn/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const outboxKey = "ql:attempt_outbox"

type outboxEntry struct {
	Attempt  model.MockAttempt `json:"attempt"`
	Attempts int               `json:"attempts"`
}

// AttemptOutbox 落库失败的提交记录进入 redis 队列，由后台定时冲刷。
// 宁可最终一致也不让学生卡在提交中；彻底冲刷不动的条目记日志供人工跟进
type AttemptOutbox struct {
	Client      *redis.Client
	Repo        *repository.AttemptRepository
	FlushEvery  time.Duration
	MaxAttempts int

	stop chan struct{}
}

func NewAttemptOutbox(client *redis.Client, repo *repository.AttemptRepository, flushEvery time.Duration, maxAttempts int) *AttemptOutbox {
	return &AttemptOutbox{
		Client:      client,
		Repo:        repo,
		FlushEvery:  flushEvery,
		MaxAttempts: maxAttempts,
		stop:        make(chan struct{}),
	}
}

func (o *AttemptOutbox) Enqueue(ctx context.Context, attempt *model.MockAttempt) error {
	payload, err := json.Marshal(outboxEntry{Attempt: *attempt})
	if err != nil {
		return err
	}
	if err := o.Client.RPush(ctx, outboxKey, payload).Err(); err != nil {
		return err
	}
	o.updateDepth(ctx)
	return nil
}

// Flush 逐条重试落库。失败条目计数后放回队尾，超过次数上限的丢弃并告警
func (o *AttemptOutbox) Flush(ctx context.Context) {
	for {
		payload, err := o.Client.LPop(ctx, outboxKey).Result()
		if err == redis.Nil {
			break
		}
		if err != nil {
			logger.Log.Error("attempt outbox read failed", zap.Error(err))
			break
		}

		var entry outboxEntry
		if err := json.Unmarshal([]byte(payload), &entry); err != nil {
			logger.Log.Error("attempt outbox entry corrupt, dropped", zap.Error(err))
			continue
		}

		if err := o.Repo.Upsert(&entry.Attempt); err != nil {
			entry.Attempts++
			if entry.Attempts >= o.MaxAttempts {
				// 本地已给过分数而远端始终写不进去，这是必须人工对账的不一致
				logger.Log.Error("attempt permanently failed to commit, operator follow-up required",
					zap.String("testId", entry.Attempt.TestID),
					zap.Uint("userId", entry.Attempt.UserID),
					zap.Int("attempts", entry.Attempts),
					zap.Error(err))
				continue
			}
			requeued, _ := json.Marshal(entry)
			if err := o.Client.RPush(ctx, outboxKey, requeued).Err(); err != nil {
				logger.Log.Error("attempt outbox requeue failed", zap.Error(err))
			}
			break
		}

		logger.Log.Info("queued attempt committed",
			zap.String("testId", entry.Attempt.TestID),
			zap.Uint("userId", entry.Attempt.UserID))
	}
	o.updateDepth(ctx)
}

func (o *AttemptOutbox) Run() {
	ticker := time.NewTicker(o.FlushEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			o.Flush(context.Background())
		case <-o.stop:
			return
		}
	}
}

func (o *AttemptOutbox) Stop() {
	close(o.stop)
}

func (o *AttemptOutbox) updateDepth(ctx context.Context) {
	depth, err := o.Client.LLen(ctx, outboxKey).Result()
	if err != nil {
		return
	}
	monitoring.OutboxDepth.Set(float64(depth))
}

// OutboxCommitter 引擎使用的落库实现：直写失败时转入 outbox，
// 对引擎表现为提交成功（at-least-once）
type OutboxCommitter struct {
	Repo   *repository.AttemptRepository
	Outbox *AttemptOutbox
}

func NewOutboxCommitter(repo *repository.AttemptRepository, outbox *AttemptOutbox) *OutboxCommitter {
	return &OutboxCommitter{Repo: repo, Outbox: outbox}
}

func (c *OutboxCommitter) Commit(ctx context.Context, attempt *model.MockAttempt) error {
	if err := c.Repo.Upsert(attempt); err != nil {
		monitoring.CommitFailures.Inc()
		logger.Log.Warn("attempt commit failed, queued to outbox",
			zap.String("testId", attempt.TestID),
			zap.Uint("userId", attempt.UserID),
			zap.Error(err))
		return c.Outbox.Enqueue(ctx, attempt)
	}
	return nil
}

func (c *OutboxCommitter) Exists(userID uint, testID string) (bool, error) {
	return c.Repo.Exists(userID, testID)
}
