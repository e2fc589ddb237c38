package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SonetShaji6/quicklearn/internal/model"
	"github.com/SonetShaji6/quicklearn/internal/util"
	"github.com/SonetShaji6/quicklearn/pkg/logger"
	"github.com/SonetShaji6/quicklearn/pkg/monitoring"

	"go.uber.org/zap"
)

type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseInProgress Phase = "in_progress"
	PhaseSubmitting Phase = "submitting"
	PhaseCompleted  Phase = "completed"
)

// 陈旧快照处理策略：恢复时发现截止已过
const (
	// StalePolicyDiscard 丢弃快照，不代提交。恢复会话的一方无法确认
	// 内存答案是否最新，宁可作废也不默默提交陈旧数据
	StalePolicyDiscard = "discard"
	// StalePolicySubmit 按快照里最后落盘的答案补交
	StalePolicySubmit = "submit"
)

// TestSource 会话引擎读取卷面的来源，题目按卷面顺序给出
type TestSource interface {
	FindTestWithQuestions(id string) (*model.MockTest, error)
}

// AttemptCommitter 提交记录的远端落库。Commit 必须是 (test, user) 键上的
// upsert，重复调用只保留一条记录
type AttemptCommitter interface {
	Commit(ctx context.Context, attempt *model.MockAttempt) error
	Exists(userID uint, testID string) (bool, error)
}

// Session 一名用户在一张卷上的进行中状态
type Session struct {
	TestID   string
	UserID   uint
	Answers  model.AnswerList
	Deadline time.Time
	Phase    Phase

	test   *model.MockTest
	timer  *time.Timer
	result *SubmitResult // 提交一旦开始就固定，重复提交返回同一结果
}

type SessionState struct {
	TestID           string           `json:"testId"`
	Phase            Phase            `json:"phase"`
	Deadline         *time.Time       `json:"deadline,omitempty"`
	RemainingMS      int64            `json:"remainingMs"`
	RemainingSeconds int64            `json:"remainingSeconds"`
	Answers          model.AnswerList `json:"answers,omitempty"`
}

type SubmitResult struct {
	TestID      string           `json:"testId"`
	Score       int              `json:"score"`
	Total       int              `json:"total"`
	Answers     model.AnswerList `json:"answers"`
	SubmittedAt time.Time        `json:"submittedAt"`
	Auto        bool             `json:"auto"`
}

// SessionEngine 模拟测试答题的状态机。每个 (user, test) 至多一个会话：
// 开始、作答、倒计时到点自动提交、断线重连恢复都经由这里。
// 互斥锁串行化所有状态变更，远端落库是唯一在锁外进行的操作
type SessionEngine struct {
	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool

	tests       TestSource
	attempts    AttemptCommitter
	snapshots   SnapshotStore
	stalePolicy string

	now func() time.Time
}

func NewSessionEngine(tests TestSource, attempts AttemptCommitter, snapshots SnapshotStore, stalePolicy string) *SessionEngine {
	if stalePolicy != StalePolicySubmit {
		stalePolicy = StalePolicyDiscard
	}
	return &SessionEngine{
		sessions:    make(map[string]*Session),
		tests:       tests,
		attempts:    attempts,
		snapshots:   snapshots,
		stalePolicy: stalePolicy,
		now:         time.Now,
	}
}

func sessionKey(userID uint, testID string) string {
	return fmt.Sprintf("%d:%s", userID, testID)
}

// Start 开始答题。已有提交记录的卷不可重开；未到 startAt 或没有题目的卷
// 不可开始。同一会话重复 Start 幂等返回当前状态
func (e *SessionEngine) Start(ctx context.Context, userID uint, testID string) (*SessionState, error) {
	exists, err := e.attempts.Exists(userID, testID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, util.ErrAlreadyAttempted
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, util.ErrSessionNotActive
	}

	// 先走恢复路径：重启后再点开始也必须沿用快照里的截止，绝不重发一份时长
	if sess, err := e.sessionLocked(ctx, userID, testID); err != nil {
		return nil, err
	} else if sess != nil {
		return e.stateLocked(sess), nil
	}

	test, err := e.tests.FindTestWithQuestions(testID)
	if err != nil {
		return nil, util.ErrTestNotFound
	}

	now := e.now()
	if now.Before(test.StartAt) {
		return nil, util.ErrTestNotYetAvailable
	}
	if len(test.Questions) == 0 {
		return nil, util.ErrTestHasNoQuestions
	}

	sess := &Session{
		TestID:   testID,
		UserID:   userID,
		Answers:  NormalizeAnswers(nil, len(test.Questions)),
		Deadline: test.Deadline(now),
		Phase:    PhaseInProgress,
		test:     test,
	}

	// 写穿：快照落盘失败则本次开始失败，避免一个不可恢复的会话
	if err := e.snapshots.Save(ctx, userID, &Snapshot{
		TestID:   testID,
		Deadline: sess.Deadline,
		Answers:  sess.Answers,
	}); err != nil {
		return nil, err
	}

	e.armTimerLocked(sess)
	e.sessions[sessionKey(userID, testID)] = sess
	monitoring.ActiveSessions.Inc()

	logger.Log.Info("mock test session started",
		zap.Uint("userId", userID),
		zap.String("testId", testID),
		zap.Time("deadline", sess.Deadline))

	return e.stateLocked(sess), nil
}

// SetAnswer 记录第 questionIndex 题的选项。仅进行中可用；
// 内存与快照作为一个单元更新，函数返回前快照已写出
func (e *SessionEngine) SetAnswer(ctx context.Context, userID uint, testID string, questionIndex, optionIndex int) (*SessionState, error) {
	e.mu.Lock()

	sess, err := e.sessionLocked(ctx, userID, testID)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if sess == nil {
		e.mu.Unlock()
		return nil, util.ErrSessionNotFound
	}

	if sess.Phase == PhaseInProgress && !e.now().Before(sess.Deadline) {
		e.mu.Unlock()
		e.deadlineFired(userID, testID)
		return nil, util.ErrSessionNotActive
	}
	if sess.Phase != PhaseInProgress {
		e.mu.Unlock()
		return nil, util.ErrSessionNotActive
	}

	if questionIndex < 0 || questionIndex >= len(sess.Answers) || optionIndex < Unanswered || optionIndex > 3 {
		e.mu.Unlock()
		return nil, util.ErrAnswerOutOfRange
	}

	sess.Answers[questionIndex] = optionIndex

	saveErr := e.snapshots.Save(ctx, userID, &Snapshot{
		TestID:   testID,
		Deadline: sess.Deadline,
		Answers:  sess.Answers.Clone(),
	})
	state := e.stateLocked(sess)
	e.mu.Unlock()

	if saveErr != nil {
		// 内存已更新，丢的是这一笔快照；比阻塞作答可取，但要留痕
		logger.Log.Warn("session snapshot write failed",
			zap.Uint("userId", userID),
			zap.String("testId", testID),
			zap.Error(saveErr))
		return state, saveErr
	}
	return state, nil
}

// Submit 结束答题并落库。进行中 → 提交中的转换在锁内一次完成，
// 倒计时到点与手动提交同刻竞争时只有先到者真正提交，后到者拿到同一结果。
// 快照在远端落库前清除，确保重载不会复活一张正在定稿的卷
func (e *SessionEngine) Submit(ctx context.Context, userID uint, testID string, manual bool) (*SubmitResult, error) {
	e.mu.Lock()

	sess, err := e.sessionLocked(ctx, userID, testID)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if sess == nil {
		e.mu.Unlock()
		return nil, util.ErrSessionNotFound
	}

	if sess.Phase != PhaseInProgress {
		// 提交中或已完成：竞争中的第二次调用，静默返回首次结果
		res := sess.result
		e.mu.Unlock()
		if res != nil {
			return res, nil
		}
		return nil, util.ErrSessionNotActive
	}

	sess.Phase = PhaseSubmitting
	if sess.timer != nil {
		sess.timer.Stop()
		sess.timer = nil
	}

	if err := e.snapshots.Delete(ctx, userID, testID); err != nil {
		logger.Log.Warn("session snapshot delete failed",
			zap.Uint("userId", userID),
			zap.String("testId", testID),
			zap.Error(err))
	}

	answers := sess.Answers.Clone()
	score := ScoreAnswers(sess.test.Questions, answers)
	result := &SubmitResult{
		TestID:      testID,
		Score:       score,
		Total:       len(sess.test.Questions),
		Answers:     answers,
		SubmittedAt: e.now(),
		Auto:        !manual,
	}
	sess.result = result

	if !manual {
		monitoring.AutoSubmits.Inc()
	}

	e.mu.Unlock()

	// 唯一的挂起操作。失败不回滚本地完成态，由 committer 走重试队列
	attempt := &model.MockAttempt{
		TestID:      testID,
		UserID:      userID,
		Answers:     answers,
		Score:       score,
		Total:       result.Total,
		SubmittedAt: result.SubmittedAt,
	}
	if err := e.attempts.Commit(ctx, attempt); err != nil {
		logger.Log.Error("attempt commit failed, local result kept",
			zap.Uint("userId", userID),
			zap.String("testId", testID),
			zap.Error(err))
	}

	e.mu.Lock()
	sess.Phase = PhaseCompleted
	// Close 可能已在落库期间清空会话表，只有真正移除时才减计数
	if _, ok := e.sessions[sessionKey(userID, testID)]; ok {
		delete(e.sessions, sessionKey(userID, testID))
		monitoring.ActiveSessions.Dec()
	}
	e.mu.Unlock()

	logger.Log.Info("mock test submitted",
		zap.Uint("userId", userID),
		zap.String("testId", testID),
		zap.Int("score", score),
		zap.Int("total", result.Total),
		zap.Bool("auto", !manual))

	return result, nil
}

// Status 当前会话状态，必要时先从快照恢复。没有会话也没有快照时
// 返回 not_started，由上层结合提交记录决定展示
func (e *SessionEngine) Status(ctx context.Context, userID uint, testID string) (*SessionState, error) {
	e.mu.Lock()

	sess, err := e.sessionLocked(ctx, userID, testID)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if sess == nil {
		e.mu.Unlock()
		return &SessionState{TestID: testID, Phase: PhaseNotStarted}, nil
	}

	if sess.Phase == PhaseInProgress && !e.now().Before(sess.Deadline) {
		e.mu.Unlock()
		res, err := e.Submit(ctx, userID, testID, false)
		if err != nil {
			if errors.Is(err, util.ErrSessionNotFound) || errors.Is(err, util.ErrSessionNotActive) {
				return &SessionState{TestID: testID, Phase: PhaseCompleted}, nil
			}
			return nil, err
		}
		return &SessionState{TestID: testID, Phase: PhaseCompleted, Answers: res.Answers}, nil
	}

	state := e.stateLocked(sess)
	e.mu.Unlock()
	return state, nil
}

// Close 停掉所有计时器。引擎关闭后不再接受新会话，
// 防止残留的定时器对已不存在的会话触发提交
func (e *SessionEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	for key, sess := range e.sessions {
		if sess.timer != nil {
			sess.timer.Stop()
			sess.timer = nil
		}
		delete(e.sessions, key)
	}
	monitoring.ActiveSessions.Set(0)
}

// sessionLocked 取内存会话，没有则尝试从快照恢复。调用方必须持锁。
// 快照截止已过时按陈旧策略处理：discard 直接删除（视为弃考，绝不代提交），
// submit 重建会话交由到期路径补交
func (e *SessionEngine) sessionLocked(ctx context.Context, userID uint, testID string) (*Session, error) {
	if sess, ok := e.sessions[sessionKey(userID, testID)]; ok {
		return sess, nil
	}
	if e.closed {
		return nil, nil
	}

	snap, err := e.snapshots.Load(ctx, userID, testID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, nil
	}

	test, err := e.tests.FindTestWithQuestions(testID)
	if err != nil {
		return nil, util.ErrTestNotFound
	}

	now := e.now()
	if !now.Before(snap.Deadline) && e.stalePolicy == StalePolicyDiscard {
		logger.Log.Info("stale session snapshot discarded",
			zap.Uint("userId", userID),
			zap.String("testId", testID),
			zap.Time("deadline", snap.Deadline))
		if err := e.snapshots.Delete(ctx, userID, testID); err != nil {
			logger.Log.Warn("stale snapshot delete failed", zap.Error(err))
		}
		return nil, nil
	}

	// 恢复：沿用落盘的 deadline，绝不重新起算
	sess := &Session{
		TestID:   testID,
		UserID:   userID,
		Answers:  NormalizeAnswers(snap.Answers, len(test.Questions)),
		Deadline: snap.Deadline,
		Phase:    PhaseInProgress,
		test:     test,
	}
	e.armTimerLocked(sess)
	e.sessions[sessionKey(userID, testID)] = sess
	monitoring.ActiveSessions.Inc()

	logger.Log.Info("mock test session resumed from snapshot",
		zap.Uint("userId", userID),
		zap.String("testId", testID),
		zap.Time("deadline", sess.Deadline))

	return sess, nil
}

func (e *SessionEngine) armTimerLocked(sess *Session) {
	d := sess.Deadline.Sub(e.now())
	if d < 0 {
		d = 0
	}
	userID, testID := sess.UserID, sess.TestID
	sess.timer = time.AfterFunc(d, func() {
		e.deadlineFired(userID, testID)
	})
}

func (e *SessionEngine) deadlineFired(userID uint, testID string) {
	_, err := e.Submit(context.Background(), userID, testID, false)
	if err != nil && !errors.Is(err, util.ErrSessionNotFound) && !errors.Is(err, util.ErrSessionNotActive) {
		logger.Log.Error("deadline auto-submit failed",
			zap.Uint("userId", userID),
			zap.String("testId", testID),
			zap.Error(err))
	}
}

func (e *SessionEngine) stateLocked(sess *Session) *SessionState {
	remaining := sess.Deadline.Sub(e.now()).Milliseconds()
	if remaining < 0 {
		remaining = 0
	}
	deadline := sess.Deadline
	return &SessionState{
		TestID:           sess.TestID,
		Phase:            sess.Phase,
		Deadline:         &deadline,
		RemainingMS:      remaining,
		RemainingSeconds: remaining / 1000,
		Answers:          sess.Answers.Clone(),
	}
}
