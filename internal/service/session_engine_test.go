package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SonetShaji6/quicklearn/internal/model"
	"github.com/SonetShaji6/quicklearn/internal/util"
	"github.com/SonetShaji6/quicklearn/pkg/monitoring"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeTestSource struct {
	tests map[string]*model.MockTest
}

func (f *fakeTestSource) FindTestWithQuestions(id string) (*model.MockTest, error) {
	test, ok := f.tests[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return test, nil
}

type fakeCommitter struct {
	mu       sync.Mutex
	commits  []*model.MockAttempt
	existing map[string]bool
	fail     bool

	entered chan struct{} // 非空时每次进入 Commit 发一次信号
	block   chan struct{} // 非空时 Commit 阻塞到通道关闭，模拟慢落库
}

func (f *fakeCommitter) Commit(ctx context.Context, attempt *model.MockAttempt) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("db down")
	}
	f.commits = append(f.commits, attempt)
	if f.existing == nil {
		f.existing = make(map[string]bool)
	}
	f.existing[attempt.TestID] = true
	return nil
}

func (f *fakeCommitter) Exists(userID uint, testID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.existing[testID], nil
}

func (f *fakeCommitter) committed() []*model.MockAttempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.MockAttempt, len(f.commits))
	copy(out, f.commits)
	return out
}

type memorySnapshotStore struct {
	mu    sync.Mutex
	snaps map[string]*Snapshot
}

func newMemorySnapshotStore() *memorySnapshotStore {
	return &memorySnapshotStore{snaps: make(map[string]*Snapshot)}
}

func (m *memorySnapshotStore) Save(ctx context.Context, userID uint, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[sessionKey(userID, snap.TestID)] = &Snapshot{
		TestID:   snap.TestID,
		Deadline: snap.Deadline,
		Answers:  snap.Answers.Clone(),
	}
	return nil
}

func (m *memorySnapshotStore) Load(ctx context.Context, userID uint, testID string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[sessionKey(userID, testID)]
	if !ok {
		return nil, nil
	}
	return &Snapshot{TestID: snap.TestID, Deadline: snap.Deadline, Answers: snap.Answers.Clone()}, nil
}

func (m *memorySnapshotStore) Delete(ctx context.Context, userID uint, testID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, sessionKey(userID, testID))
	return nil
}

func (m *memorySnapshotStore) has(userID uint, testID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.snaps[sessionKey(userID, testID)]
	return ok
}

// 5分钟卷，两道题，答案 A(0) 和 C(2)
func newFixtureTest(startAt time.Time) *model.MockTest {
	test := &model.MockTest{
		Title:           "Fixture",
		DurationMinutes: 5,
		StartAt:         startAt,
		Questions:       questionsWithKeys(0, 2),
	}
	test.ID = "test-1"
	return test
}

type engineFixture struct {
	engine    *SessionEngine
	source    *fakeTestSource
	committer *fakeCommitter
	snaps     *memorySnapshotStore
	now       time.Time
}

func newEngineFixture(t *testing.T, stalePolicy string) *engineFixture {
	t.Helper()
	base := time.Now().Truncate(time.Second)
	f := &engineFixture{
		source:    &fakeTestSource{tests: map[string]*model.MockTest{}},
		committer: &fakeCommitter{},
		snaps:     newMemorySnapshotStore(),
		now:       base,
	}
	f.source.tests["test-1"] = newFixtureTest(base.Add(-time.Hour))
	f.engine = NewSessionEngine(f.source, f.committer, f.snaps, stalePolicy)
	f.engine.now = func() time.Time { return f.now }
	t.Cleanup(f.engine.Close)
	return f
}

// 模拟页面重载后打到另一个进程：内存会话没了，快照还在
func (f *engineFixture) reload(t *testing.T) {
	t.Helper()
	f.engine.Close()
	f.engine = NewSessionEngine(f.source, f.committer, f.snaps, f.engine.stalePolicy)
	f.engine.now = func() time.Time { return f.now }
	t.Cleanup(f.engine.Close)
}

func (f *engineFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// 到期定时器在独立 goroutine 里提交，断言前等它落库
func waitForCommits(t *testing.T, c *fakeCommitter, want int) []*model.MockAttempt {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if commits := c.committed(); len(commits) >= want {
			return commits
		}
		time.Sleep(10 * time.Millisecond)
	}
	commits := c.committed()
	t.Fatalf("commits = %d, want %d", len(commits), want)
	return commits
}

func TestSessionStart(t *testing.T) {
	f := newEngineFixture(t, StalePolicyDiscard)
	ctx := context.Background()

	state, err := f.engine.Start(ctx, 1, "test-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if state.Phase != PhaseInProgress {
		t.Errorf("phase = %s, want in_progress", state.Phase)
	}
	if state.RemainingMS != 5*60*1000 {
		t.Errorf("remainingMs = %d, want 300000", state.RemainingMS)
	}
	if len(state.Answers) != 2 || state.Answers[0] != Unanswered {
		t.Errorf("answers = %v, want [-1 -1]", state.Answers)
	}
	if !f.snaps.has(1, "test-1") {
		t.Error("snapshot not written on start")
	}

	// 重复 Start 幂等
	f.advance(30 * time.Second)
	again, err := f.engine.Start(ctx, 1, "test-1")
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if again.RemainingMS != 270000 {
		t.Errorf("remainingMs after 30s = %d, want 270000", again.RemainingMS)
	}
}

func TestSessionStartGuards(t *testing.T) {
	f := newEngineFixture(t, StalePolicyDiscard)
	ctx := context.Background()

	future := newFixtureTest(f.now.Add(time.Hour))
	future.ID = "future"
	f.source.tests["future"] = future

	empty := newFixtureTest(f.now.Add(-time.Hour))
	empty.ID = "empty"
	empty.Questions = nil
	f.source.tests["empty"] = empty

	if _, err := f.engine.Start(ctx, 1, "missing"); !errors.Is(err, util.ErrTestNotFound) {
		t.Errorf("missing test: got %v", err)
	}
	if _, err := f.engine.Start(ctx, 1, "future"); !errors.Is(err, util.ErrTestNotYetAvailable) {
		t.Errorf("future test: got %v", err)
	}
	if _, err := f.engine.Start(ctx, 1, "empty"); !errors.Is(err, util.ErrTestHasNoQuestions) {
		t.Errorf("empty test: got %v", err)
	}
}

func TestSessionStartAfterAttemptRejected(t *testing.T) {
	f := newEngineFixture(t, StalePolicyDiscard)
	ctx := context.Background()

	if _, err := f.engine.Start(ctx, 1, "test-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.engine.Submit(ctx, 1, "test-1", true); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := f.engine.Start(ctx, 1, "test-1"); !errors.Is(err, util.ErrAlreadyAttempted) {
		t.Errorf("restart after submit: got %v, want ErrAlreadyAttempted", err)
	}
}

func TestManualSubmitScoresAndCommits(t *testing.T) {
	f := newEngineFixture(t, StalePolicyDiscard)
	ctx := context.Background()

	if _, err := f.engine.Start(ctx, 1, "test-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// 答对第一题，答错第二题
	if _, err := f.engine.SetAnswer(ctx, 1, "test-1", 0, 0); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}
	if _, err := f.engine.SetAnswer(ctx, 1, "test-1", 1, 1); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}

	result, err := f.engine.Submit(ctx, 1, "test-1", true)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Score != 1 || result.Total != 2 {
		t.Errorf("score = %d/%d, want 1/2", result.Score, result.Total)
	}
	if result.Auto {
		t.Error("manual submit flagged as auto")
	}

	commits := f.committer.committed()
	if len(commits) != 1 {
		t.Fatalf("commits = %d, want 1", len(commits))
	}
	if commits[0].Score != 1 || commits[0].UserID != 1 {
		t.Errorf("committed attempt = %+v", commits[0])
	}
	if f.snaps.has(1, "test-1") {
		t.Error("snapshot survived submit")
	}

	// 会话已结束，再交报 not found
	if _, err := f.engine.Submit(ctx, 1, "test-1", true); !errors.Is(err, util.ErrSessionNotFound) {
		t.Errorf("second submit: got %v, want ErrSessionNotFound", err)
	}
}

// 手动提交与到点提交同刻竞争：只落库一次，后到者拿到先到者的结果
func TestConcurrentSubmitCommitsOnce(t *testing.T) {
	f := newEngineFixture(t, StalePolicyDiscard)
	ctx := context.Background()

	if _, err := f.engine.Start(ctx, 1, "test-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.engine.SetAnswer(ctx, 1, "test-1", 0, 0); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}

	f.committer.entered = make(chan struct{}, 1)
	f.committer.block = make(chan struct{})

	first := make(chan *SubmitResult, 1)
	go func() {
		res, err := f.engine.Submit(ctx, 1, "test-1", true)
		if err != nil {
			t.Errorf("winner Submit: %v", err)
		}
		first <- res
	}()
	<-f.committer.entered

	// 先到者已占住提交中状态但尚未落库，此刻的第二次提交不得再落一笔
	second, err := f.engine.Submit(ctx, 1, "test-1", false)
	if err != nil {
		t.Fatalf("loser Submit: %v", err)
	}
	close(f.committer.block)
	winner := <-first

	if winner == nil || second != winner {
		t.Errorf("loser result = %+v, want the winner's %+v", second, winner)
	}
	if commits := f.committer.committed(); len(commits) != 1 {
		t.Fatalf("commits = %d, want 1", len(commits))
	}
}

// 落库进行中关停引擎：计数已归零，提交返程不得再减成负数
func TestCloseDuringCommitKeepsGaugeNonNegative(t *testing.T) {
	f := newEngineFixture(t, StalePolicyDiscard)
	ctx := context.Background()

	if _, err := f.engine.Start(ctx, 1, "test-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	f.committer.entered = make(chan struct{}, 1)
	f.committer.block = make(chan struct{})

	done := make(chan struct{})
	go func() {
		f.engine.Submit(ctx, 1, "test-1", true)
		close(done)
	}()
	<-f.committer.entered

	f.engine.Close()
	close(f.committer.block)
	<-done

	if got := testutil.ToFloat64(monitoring.ActiveSessions); got != 0 {
		t.Errorf("active sessions gauge = %v, want 0", got)
	}
}

func TestEmptySubmitScoresZero(t *testing.T) {
	f := newEngineFixture(t, StalePolicyDiscard)
	ctx := context.Background()

	if _, err := f.engine.Start(ctx, 1, "test-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	result, err := f.engine.Submit(ctx, 1, "test-1", true)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Score != 0 || result.Total != 2 {
		t.Errorf("score = %d/%d, want 0/2", result.Score, result.Total)
	}
	for i, a := range result.Answers {
		if a != Unanswered {
			t.Errorf("answer %d = %d, want -1", i, a)
		}
	}
}

func TestSetAnswerValidation(t *testing.T) {
	f := newEngineFixture(t, StalePolicyDiscard)
	ctx := context.Background()

	if _, err := f.engine.SetAnswer(ctx, 1, "test-1", 0, 0); !errors.Is(err, util.ErrSessionNotFound) {
		t.Errorf("answer without session: got %v", err)
	}

	if _, err := f.engine.Start(ctx, 1, "test-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := f.engine.SetAnswer(ctx, 1, "test-1", 5, 0); !errors.Is(err, util.ErrAnswerOutOfRange) {
		t.Errorf("question index out of range: got %v", err)
	}
	if _, err := f.engine.SetAnswer(ctx, 1, "test-1", 0, 4); !errors.Is(err, util.ErrAnswerOutOfRange) {
		t.Errorf("option index out of range: got %v", err)
	}

	// -1 清除选择
	if _, err := f.engine.SetAnswer(ctx, 1, "test-1", 0, 2); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}
	state, err := f.engine.SetAnswer(ctx, 1, "test-1", 0, Unanswered)
	if err != nil {
		t.Fatalf("clear answer: %v", err)
	}
	if state.Answers[0] != Unanswered {
		t.Errorf("answer after clear = %d, want -1", state.Answers[0])
	}
}

func TestResumeKeepsOriginalDeadline(t *testing.T) {
	f := newEngineFixture(t, StalePolicyDiscard)
	ctx := context.Background()

	if _, err := f.engine.Start(ctx, 1, "test-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.engine.SetAnswer(ctx, 1, "test-1", 0, 0); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}

	f.advance(100 * time.Second)
	f.reload(t)

	state, err := f.engine.Status(ctx, 1, "test-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if state.Phase != PhaseInProgress {
		t.Fatalf("phase = %s, want in_progress", state.Phase)
	}
	// 5分钟的卷过了100秒：剩余一定是200秒，不是重新起算的300秒
	if state.RemainingMS != 200000 {
		t.Errorf("remainingMs = %d, want 200000", state.RemainingMS)
	}
	if state.Answers[0] != 0 || state.Answers[1] != Unanswered {
		t.Errorf("answers = %v, want [0 -1]", state.Answers)
	}
}

// 重启后学生点的是"开始"而不是刷新状态：同样必须接回原会话
func TestStartAfterReloadKeepsOriginalDeadline(t *testing.T) {
	f := newEngineFixture(t, StalePolicyDiscard)
	ctx := context.Background()

	if _, err := f.engine.Start(ctx, 1, "test-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.engine.SetAnswer(ctx, 1, "test-1", 0, 0); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}

	f.advance(100 * time.Second)
	f.reload(t)

	state, err := f.engine.Start(ctx, 1, "test-1")
	if err != nil {
		t.Fatalf("re-Start: %v", err)
	}
	if state.Phase != PhaseInProgress {
		t.Fatalf("phase = %s, want in_progress", state.Phase)
	}
	// 不得重发一份 300 秒时长
	if state.RemainingMS != 200000 {
		t.Errorf("remainingMs after re-start = %d, want 200000", state.RemainingMS)
	}
	if state.Answers[0] != 0 || state.Answers[1] != Unanswered {
		t.Errorf("answers after re-start = %v, want [0 -1]", state.Answers)
	}

	snap, err := f.snaps.Load(ctx, 1, "test-1")
	if err != nil {
		t.Fatalf("Load snapshot: %v", err)
	}
	if snap == nil || snap.Answers[0] != 0 {
		t.Errorf("snapshot overwritten by re-start: %+v", snap)
	}
}

// submit 策略下，重启后点"开始"遇到过期快照要补交而不是覆盖
func TestStartAfterReloadSubmitsStaleSnapshot(t *testing.T) {
	f := newEngineFixture(t, StalePolicySubmit)
	ctx := context.Background()

	if _, err := f.engine.Start(ctx, 1, "test-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.engine.SetAnswer(ctx, 1, "test-1", 0, 0); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}

	f.advance(10 * time.Minute)
	f.reload(t)

	state, err := f.engine.Start(ctx, 1, "test-1")
	if err != nil {
		t.Fatalf("re-Start: %v", err)
	}
	if state.RemainingMS != 0 {
		t.Errorf("remainingMs = %d, want 0", state.RemainingMS)
	}

	commits := waitForCommits(t, f.committer, 1)
	if commits[0].Score != 1 || commits[0].Total != 2 {
		t.Errorf("committed score = %d/%d, want 1/2", commits[0].Score, commits[0].Total)
	}
}

func TestStaleSnapshotDiscarded(t *testing.T) {
	f := newEngineFixture(t, StalePolicyDiscard)
	ctx := context.Background()

	if _, err := f.engine.Start(ctx, 1, "test-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.engine.SetAnswer(ctx, 1, "test-1", 0, 0); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}

	f.advance(10 * time.Minute)
	f.reload(t)

	state, err := f.engine.Status(ctx, 1, "test-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if state.Phase != PhaseNotStarted {
		t.Errorf("phase = %s, want not_started", state.Phase)
	}
	if f.snaps.has(1, "test-1") {
		t.Error("stale snapshot not deleted")
	}
	if len(f.committer.committed()) != 0 {
		t.Error("discard policy must not commit an attempt")
	}
}

func TestStaleSnapshotSubmitted(t *testing.T) {
	f := newEngineFixture(t, StalePolicySubmit)
	ctx := context.Background()

	if _, err := f.engine.Start(ctx, 1, "test-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.engine.SetAnswer(ctx, 1, "test-1", 0, 0); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}

	f.advance(10 * time.Minute)
	f.reload(t)

	state, err := f.engine.Status(ctx, 1, "test-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if state.Phase != PhaseCompleted {
		t.Errorf("phase = %s, want completed", state.Phase)
	}

	commits := waitForCommits(t, f.committer, 1)
	if commits[0].Score != 1 || commits[0].Total != 2 {
		t.Errorf("committed score = %d/%d, want 1/2", commits[0].Score, commits[0].Total)
	}
}

func TestDeadlineAutoSubmit(t *testing.T) {
	f := newEngineFixture(t, StalePolicyDiscard)
	ctx := context.Background()

	if _, err := f.engine.Start(ctx, 1, "test-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.engine.SetAnswer(ctx, 1, "test-1", 0, 0); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}
	if _, err := f.engine.SetAnswer(ctx, 1, "test-1", 1, 1); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}

	f.advance(6 * time.Minute)

	// 截止已过：作答被拒，状态查询触发自动提交
	if _, err := f.engine.SetAnswer(ctx, 1, "test-1", 1, 2); !errors.Is(err, util.ErrSessionNotActive) && !errors.Is(err, util.ErrSessionNotFound) {
		t.Errorf("answer after deadline: got %v", err)
	}

	state, err := f.engine.Status(ctx, 1, "test-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if state.Phase == PhaseInProgress {
		t.Error("session still in progress after deadline")
	}

	commits := f.committer.committed()
	if len(commits) != 1 {
		t.Fatalf("commits = %d, want 1", len(commits))
	}
	if commits[0].Score != 1 {
		t.Errorf("auto-submitted score = %d, want 1 (post-deadline answer must not count)", commits[0].Score)
	}
}

func TestStatusWithoutSession(t *testing.T) {
	f := newEngineFixture(t, StalePolicyDiscard)

	state, err := f.engine.Status(context.Background(), 1, "test-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if state.Phase != PhaseNotStarted {
		t.Errorf("phase = %s, want not_started", state.Phase)
	}
}

func TestCommitFailureKeepsLocalResult(t *testing.T) {
	f := newEngineFixture(t, StalePolicyDiscard)
	ctx := context.Background()

	if _, err := f.engine.Start(ctx, 1, "test-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.committer.fail = true

	result, err := f.engine.Submit(ctx, 1, "test-1", true)
	if err != nil {
		t.Fatalf("Submit with failing committer: %v", err)
	}
	if result == nil || result.Total != 2 {
		t.Fatalf("local result lost on commit failure: %+v", result)
	}
}

func TestEngineCloseStopsNewSessions(t *testing.T) {
	f := newEngineFixture(t, StalePolicyDiscard)
	f.engine.Close()

	if _, err := f.engine.Start(context.Background(), 1, "test-1"); !errors.Is(err, util.ErrSessionNotActive) {
		t.Errorf("start on closed engine: got %v", err)
	}
}
