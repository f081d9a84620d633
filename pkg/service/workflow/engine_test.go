package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/anzhiyu-c/anshen-app/internal/pkg/event"
	"github.com/anzhiyu-c/anshen-app/internal/pkg/types"
	"github.com/anzhiyu-c/anshen-app/pkg/constant"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/model"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/repository"
	"github.com/anzhiyu-c/anshen-app/pkg/idgen"
	"github.com/anzhiyu-c/anshen-app/pkg/service/utility"
)

func TestMain(m *testing.M) {
	if err := idgen.InitSqidsEncoder(); err != nil {
		fmt.Println("初始化公共ID编码器失败:", err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func TestApplyActionTransitionTable(t *testing.T) {
	tests := []struct {
		name         string
		startStage   string
		startRev     int
		action       string
		isAdmin      bool
		wantErr      error
		wantStage    string
		wantRevision int
	}{
		{name: "UPLOADED领取进入第一个阶段", startStage: constant.StageUploaded, action: "ASSIGN", wantStage: "QC"},
		{name: "UPLOADED直接通过进入第一个阶段", startStage: constant.StageUploaded, action: "APPROVE", wantStage: "QC"},
		{name: "UPLOADED入库即打回停留原地", startStage: constant.StageUploaded, action: "FAIL", wantStage: constant.StageUploaded, wantRevision: 1},
		{name: "UPLOADED没有上一阶段不能回退", startStage: constant.StageUploaded, action: "REVISE", wantErr: constant.ErrInvalidTransition},
		{name: "审核阶段不能再领取", startStage: "QC", action: "ASSIGN", wantErr: constant.ErrInvalidTransition},
		{name: "QC通过进入下一个阶段", startStage: "QC", action: "APPROVE", wantStage: "R1"},
		{name: "最后一个阶段通过即完成", startStage: "R1", action: "APPROVE", wantStage: constant.StageCompleted},
		{name: "QC打回停留原地并加修订", startStage: "QC", startRev: 2, action: "FAIL", wantStage: "QC", wantRevision: 3},
		{name: "第一个阶段回退到UPLOADED", startStage: "QC", action: "REVISE", wantStage: constant.StageUploaded, wantRevision: 1},
		{name: "后续阶段回退到上一个阶段", startStage: "R1", action: "REVISE", wantStage: "QC", wantRevision: 1},
		{name: "已完成不能通过", startStage: constant.StageCompleted, action: "APPROVE", wantErr: constant.ErrInvalidTransition},
		{name: "已完成不能打回", startStage: constant.StageCompleted, action: "FAIL", wantErr: constant.ErrInvalidTransition},
		{name: "已完成不能回退", startStage: constant.StageCompleted, action: "REVISE", wantErr: constant.ErrInvalidTransition},
		{name: "已完成可以重开", startStage: constant.StageCompleted, startRev: 5, action: "REOPEN", wantStage: "QC", wantRevision: 5},
		{name: "已归档只能通过重开离开", startStage: constant.StageArchived, action: "REOPEN", wantStage: "QC"},
		{name: "已归档不能通过", startStage: constant.StageArchived, action: "APPROVE", wantErr: constant.ErrInvalidTransition},
		{name: "管理员归档任意阶段", startStage: "R1", action: "ARCHIVE", isAdmin: true, wantStage: constant.StageArchived},
		{name: "管理员归档已完成文件", startStage: constant.StageCompleted, action: "ARCHIVE", isAdmin: true, wantStage: constant.StageArchived},
		{name: "非管理员不能归档", startStage: "QC", action: "ARCHIVE", wantErr: constant.ErrForbidden},
		{name: "动作大小写不敏感", startStage: constant.StageUploaded, action: "assign", wantStage: "QC"},
		{name: "未知动作返回参数错误", startStage: "QC", action: "DESTROY", wantErr: constant.ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEngineEnv(t, "QC", "R1")
			file := env.seedActiveFile(t, 1, tt.startStage, tt.startRev)

			resp, err := env.engine.ApplyAction(context.Background(), 1, 7, tt.isAdmin, filePublicID(t, file), &model.TransitionRequest{Action: tt.action})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ApplyAction() 错误 = %v, 期望 %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyAction() 意外失败: %v", err)
			}
			if resp.NewStage != tt.wantStage {
				t.Errorf("NewStage = %q, 期望 %q", resp.NewStage, tt.wantStage)
			}
			current, _ := env.files.FindByID(context.Background(), file.ID)
			if current.CurrentStage != tt.wantStage {
				t.Errorf("文件当前阶段 = %q, 期望 %q", current.CurrentStage, tt.wantStage)
			}
			if current.RevisionCount != tt.wantRevision {
				t.Errorf("修订次数 = %d, 期望 %d", current.RevisionCount, tt.wantRevision)
			}
			if resp.Transition.FromStage != tt.startStage || resp.Transition.ToStage != tt.wantStage {
				t.Errorf("台账记录 = (%q -> %q), 期望 (%q -> %q)", resp.Transition.FromStage, resp.Transition.ToStage, tt.startStage, tt.wantStage)
			}
		})
	}
}

func TestAssigneeLifecycle(t *testing.T) {
	env := newEngineEnv(t, "QC", "R1")
	ctx := context.Background()
	file := env.seedActiveFile(t, 1, constant.StageUploaded, 0)
	publicID := filePublicID(t, file)

	// ASSIGN 把负责人设为发起人
	if _, err := env.engine.ApplyAction(ctx, 1, 7, false, publicID, &model.TransitionRequest{Action: "ASSIGN"}); err != nil {
		t.Fatalf("ASSIGN 失败: %v", err)
	}
	current, _ := env.files.FindByID(ctx, file.ID)
	if !current.AssigneeID.Valid || current.AssigneeID.Uint64 != 7 {
		t.Fatalf("ASSIGN 后负责人 = %+v, 期望用户 7", current.AssigneeID)
	}

	// FAIL 保留负责人
	if _, err := env.engine.ApplyAction(ctx, 1, 9, false, publicID, &model.TransitionRequest{Action: "FAIL"}); err != nil {
		t.Fatalf("FAIL 失败: %v", err)
	}
	current, _ = env.files.FindByID(ctx, file.ID)
	if !current.AssigneeID.Valid || current.AssigneeID.Uint64 != 7 {
		t.Errorf("FAIL 后负责人 = %+v, 期望保留用户 7", current.AssigneeID)
	}

	// APPROVE 换阶段时清空负责人
	if _, err := env.engine.ApplyAction(ctx, 1, 9, false, publicID, &model.TransitionRequest{Action: "APPROVE"}); err != nil {
		t.Fatalf("APPROVE 失败: %v", err)
	}
	current, _ = env.files.FindByID(ctx, file.ID)
	if current.AssigneeID.Valid {
		t.Errorf("APPROVE 后负责人 = %+v, 期望清空", current.AssigneeID)
	}
}

func TestLedgerMatchesCurrentStage(t *testing.T) {
	env := newEngineEnv(t, "QC", "R1")
	ctx := context.Background()
	file := env.seedActiveFile(t, 1, constant.StageUploaded, 0)
	publicID := filePublicID(t, file)

	actions := []string{"ASSIGN", "FAIL", "APPROVE", "REVISE", "APPROVE", "APPROVE", "REOPEN", "ARCHIVE"}
	for _, action := range actions {
		if _, err := env.engine.ApplyAction(ctx, 1, 7, true, publicID, &model.TransitionRequest{Action: action}); err != nil {
			t.Fatalf("动作 %s 失败: %v", action, err)
		}
		current, _ := env.files.FindByID(ctx, file.ID)
		last, err := env.transitions.LastByFile(ctx, file.ID)
		if err != nil {
			t.Fatalf("动作 %s 后读取台账失败: %v", action, err)
		}
		if last.ToStage != current.CurrentStage {
			t.Errorf("动作 %s 后台账末行 toStage = %q, 文件当前阶段 = %q", action, last.ToStage, current.CurrentStage)
		}
	}
}

func TestIllegalActionWritesNothing(t *testing.T) {
	env := newEngineEnv(t, "QC")
	ctx := context.Background()
	file := env.seedActiveFile(t, 1, constant.StageCompleted, 3)
	publicID := filePublicID(t, file)

	before, _ := env.files.FindByID(ctx, file.ID)
	rowsBefore, _ := env.transitions.ListByFile(ctx, file.ID)
	reviewsBefore, _ := env.reviews.ListByFile(ctx, file.ID)

	for _, action := range []string{"APPROVE", "FAIL", "REVISE", "ASSIGN"} {
		if _, err := env.engine.ApplyAction(ctx, 1, 7, false, publicID, &model.TransitionRequest{Action: action}); !errors.Is(err, constant.ErrInvalidTransition) {
			t.Fatalf("动作 %s 错误 = %v, 期望 %v", action, err, constant.ErrInvalidTransition)
		}
	}

	after, _ := env.files.FindByID(ctx, file.ID)
	rowsAfter, _ := env.transitions.ListByFile(ctx, file.ID)
	reviewsAfter, _ := env.reviews.ListByFile(ctx, file.ID)
	if after.CurrentStage != before.CurrentStage || after.RevisionCount != before.RevisionCount {
		t.Error("非法动作之后文件状态不应有任何变化")
	}
	if len(rowsAfter) != len(rowsBefore) {
		t.Errorf("非法动作之后台账记录数 %d -> %d, 不应变化", len(rowsBefore), len(rowsAfter))
	}
	if len(reviewsAfter) != len(reviewsBefore) {
		t.Errorf("非法动作之后质检记录数 %d -> %d, 不应变化", len(reviewsBefore), len(reviewsAfter))
	}
}

func TestRevisionCountMonotonic(t *testing.T) {
	env := newEngineEnv(t, "QC", "R1")
	ctx := context.Background()
	file := env.seedActiveFile(t, 1, constant.StageUploaded, 0)
	publicID := filePublicID(t, file)

	steps := []struct {
		action string
		want   int
	}{
		{"ASSIGN", 0},
		{"FAIL", 1},
		{"FAIL", 2},
		{"APPROVE", 2},
		{"REVISE", 3},
		{"APPROVE", 3},
		{"APPROVE", 3},
		{"REOPEN", 3},
	}
	last := 0
	for _, step := range steps {
		if _, err := env.engine.ApplyAction(ctx, 1, 7, false, publicID, &model.TransitionRequest{Action: step.action}); err != nil {
			t.Fatalf("动作 %s 失败: %v", step.action, err)
		}
		current, _ := env.files.FindByID(ctx, file.ID)
		if current.RevisionCount != step.want {
			t.Errorf("动作 %s 后修订次数 = %d, 期望 %d", step.action, current.RevisionCount, step.want)
		}
		if current.RevisionCount < last {
			t.Errorf("修订次数出现回退: %d -> %d", last, current.RevisionCount)
		}
		last = current.RevisionCount
	}
}

func TestConcurrentAssignExactlyOneWins(t *testing.T) {
	env := newEngineEnv(t, "QC")
	ctx := context.Background()
	file := env.seedActiveFile(t, 1, constant.StageUploaded, 0)
	publicID := filePublicID(t, file)

	const workers = 6
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = env.engine.ApplyAction(ctx, 1, uint(10+idx), false, publicID, &model.TransitionRequest{Action: "ASSIGN"})
		}(i)
	}
	wg.Wait()

	var wins, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, constant.ErrInvalidTransition), errors.Is(err, constant.ErrBusy):
			rejected++
		default:
			t.Errorf("并发领取出现意外错误: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("并发领取成功数 = %d, 期望恰好 1", wins)
	}
	if wins+rejected != workers {
		t.Errorf("成功 %d + 拒绝 %d != 总数 %d", wins, rejected, workers)
	}

	rows, _ := env.transitions.ListByFile(ctx, file.ID)
	if len(rows) != 1 {
		t.Errorf("并发领取后台账记录数 = %d, 期望 1", len(rows))
	}
	current, _ := env.files.FindByID(ctx, file.ID)
	if current.CurrentStage != "QC" {
		t.Errorf("并发领取后阶段 = %q, 期望 QC", current.CurrentStage)
	}
}

func TestStageCheckFailureWritesNothing(t *testing.T) {
	env := newEngineEnv(t, "QC")
	ctx := context.Background()
	file := env.seedActiveFile(t, 1, constant.StageUploaded, 0)
	publicID := filePublicID(t, file)

	// 模拟条件更新窗口内阶段被外部改动
	env.files.beforeStageCheck = func() {
		env.files.mu.Lock()
		env.files.files[file.ID].CurrentStage = "QC"
		env.files.mu.Unlock()
		env.files.beforeStageCheck = nil
	}

	_, err := env.engine.ApplyAction(ctx, 1, 7, false, publicID, &model.TransitionRequest{Action: "ASSIGN"})
	if !errors.Is(err, constant.ErrBusy) {
		t.Fatalf("ApplyAction() 错误 = %v, 期望 %v", err, constant.ErrBusy)
	}
	rows, _ := env.transitions.ListByFile(ctx, file.ID)
	if len(rows) != 0 {
		t.Errorf("条件更新失败后台账记录数 = %d, 期望 0", len(rows))
	}
}

func TestReviewLifecycle(t *testing.T) {
	env := newEngineEnv(t, "QC", "R1")
	ctx := context.Background()
	file := env.seedActiveFile(t, 1, constant.StageUploaded, 0)
	publicID := filePublicID(t, file)

	// ASSIGN 在第一个阶段开启 PENDING 质检
	if _, err := env.engine.ApplyAction(ctx, 1, 7, false, publicID, &model.TransitionRequest{Action: "ASSIGN"}); err != nil {
		t.Fatalf("ASSIGN 失败: %v", err)
	}
	open, err := env.reviews.FindOpenByFileAndStage(ctx, file.ID, "QC")
	if err != nil {
		t.Fatalf("领取后 QC 阶段应有未裁决质检记录: %v", err)
	}
	if open.Status != model.ReviewStatusPending {
		t.Errorf("质检记录状态 = %v, 期望待裁决", open.Status)
	}

	// FAIL 关闭当前一轮并开启新一轮
	if _, err := env.engine.ApplyAction(ctx, 1, 7, false, publicID, &model.TransitionRequest{Action: "FAIL", Comment: "色彩不达标"}); err != nil {
		t.Fatalf("FAIL 失败: %v", err)
	}
	all, _ := env.reviews.ListByFile(ctx, file.ID)
	if len(all) != 2 {
		t.Fatalf("FAIL 后质检记录总数 = %d, 期望 2", len(all))
	}
	var closed, pending int
	for _, r := range all {
		switch r.Status {
		case model.ReviewStatusCompleted:
			closed++
			if r.Action != constant.ActionFail {
				t.Errorf("已关闭质检记录的裁决动作 = %s, 期望 FAIL", r.Action)
			}
			if !r.ReviewerID.Valid || r.ReviewerID.Uint64 != 7 {
				t.Errorf("已关闭质检记录的裁决人 = %+v, 期望用户 7", r.ReviewerID)
			}
		case model.ReviewStatusPending:
			pending++
		}
	}
	if closed != 1 || pending != 1 {
		t.Errorf("FAIL 后质检记录 = %d 关闭 / %d 待裁决, 期望 1/1", closed, pending)
	}

	// APPROVE 关闭 QC 一轮并在 R1 开启新一轮
	if _, err := env.engine.ApplyAction(ctx, 1, 7, false, publicID, &model.TransitionRequest{Action: "APPROVE"}); err != nil {
		t.Fatalf("APPROVE 失败: %v", err)
	}
	if _, err := env.reviews.FindOpenByFileAndStage(ctx, file.ID, "QC"); !errors.Is(err, constant.ErrNotFound) {
		t.Error("APPROVE 后 QC 阶段不应再有未裁决质检记录")
	}
	if _, err := env.reviews.FindOpenByFileAndStage(ctx, file.ID, "R1"); err != nil {
		t.Errorf("APPROVE 后 R1 阶段应有未裁决质检记录: %v", err)
	}

	// 最后一个阶段通过后全部关闭
	if _, err := env.engine.ApplyAction(ctx, 1, 7, false, publicID, &model.TransitionRequest{Action: "APPROVE"}); err != nil {
		t.Fatalf("最后阶段 APPROVE 失败: %v", err)
	}
	for _, stage := range []string{"QC", "R1"} {
		if _, err := env.reviews.FindOpenByFileAndStage(ctx, file.ID, stage); !errors.Is(err, constant.ErrNotFound) {
			t.Errorf("完成后阶段 %s 不应有未裁决质检记录", stage)
		}
	}
	current, _ := env.files.FindByID(ctx, file.ID)
	if current.CurrentStage != constant.StageCompleted {
		t.Errorf("最终阶段 = %q, 期望 %s", current.CurrentStage, constant.StageCompleted)
	}
}

func TestNoActiveStagesConfigured(t *testing.T) {
	env := newEngineEnv(t)
	ctx := context.Background()
	file := env.seedActiveFile(t, 1, constant.StageUploaded, 0)
	publicID := filePublicID(t, file)

	for _, action := range []string{"ASSIGN", "REOPEN"} {
		if _, err := env.engine.ApplyAction(ctx, 1, 7, false, publicID, &model.TransitionRequest{Action: action}); !errors.Is(err, constant.ErrInvalidTransition) {
			t.Errorf("无启用阶段时动作 %s 错误 = %v, 期望 %v", action, err, constant.ErrInvalidTransition)
		}
	}

	// 没有配置审核阶段时通过即完成
	resp, err := env.engine.ApplyAction(ctx, 1, 7, false, publicID, &model.TransitionRequest{Action: "APPROVE"})
	if err != nil {
		t.Fatalf("无启用阶段时 APPROVE 失败: %v", err)
	}
	if resp.NewStage != constant.StageCompleted {
		t.Errorf("无启用阶段时 APPROVE 后阶段 = %q, 期望 %s", resp.NewStage, constant.StageCompleted)
	}
}

func TestCrossTenantIsNotFound(t *testing.T) {
	env := newEngineEnv(t, "QC")
	ctx := context.Background()
	file := env.seedActiveFile(t, 1, constant.StageUploaded, 0)
	publicID := filePublicID(t, file)

	if _, err := env.engine.ApplyAction(ctx, 2, 7, false, publicID, &model.TransitionRequest{Action: "ASSIGN"}); !errors.Is(err, constant.ErrNotFound) {
		t.Errorf("跨租户流转错误 = %v, 期望 %v", err, constant.ErrNotFound)
	}
	if _, err := env.engine.GetHistory(ctx, 2, publicID); !errors.Is(err, constant.ErrNotFound) {
		t.Errorf("跨租户历史查询错误 = %v, 期望 %v", err, constant.ErrNotFound)
	}
}

func TestPendingFileInvisibleToWorkflow(t *testing.T) {
	env := newEngineEnv(t, "QC")
	ctx := context.Background()
	file := &model.File{
		TenantID:     1,
		OriginalName: "a.pdf",
		StorageKey:   "uploads/1/shared/x/a.pdf",
		Status:       model.FileStatusPending,
	}
	if err := env.files.Create(ctx, file); err != nil {
		t.Fatalf("创建占位记录失败: %v", err)
	}
	publicID := filePublicID(t, file)

	if _, err := env.engine.ApplyAction(ctx, 1, 7, false, publicID, &model.TransitionRequest{Action: "ASSIGN"}); !errors.Is(err, constant.ErrNotFound) {
		t.Errorf("对占位记录执行动作错误 = %v, 期望 %v", err, constant.ErrNotFound)
	}
	if _, err := env.engine.GetHistory(ctx, 1, publicID); !errors.Is(err, constant.ErrNotFound) {
		t.Errorf("查询占位记录历史错误 = %v, 期望 %v", err, constant.ErrNotFound)
	}
}

func TestGetHistoryOrder(t *testing.T) {
	env := newEngineEnv(t, "QC", "R1")
	ctx := context.Background()
	file := env.seedActiveFile(t, 1, constant.StageUploaded, 0)
	publicID := filePublicID(t, file)

	for _, action := range []string{"ASSIGN", "APPROVE", "REVISE"} {
		if _, err := env.engine.ApplyAction(ctx, 1, 7, false, publicID, &model.TransitionRequest{Action: action}); err != nil {
			t.Fatalf("动作 %s 失败: %v", action, err)
		}
	}

	history, err := env.engine.GetHistory(ctx, 1, publicID)
	if err != nil {
		t.Fatalf("GetHistory() 失败: %v", err)
	}
	if history.FileID != publicID {
		t.Errorf("历史中的文件ID = %q, 期望 %q", history.FileID, publicID)
	}
	wantStages := []string{"QC", "R1", "QC"}
	if len(history.Transitions) != len(wantStages) {
		t.Fatalf("历史记录数 = %d, 期望 %d", len(history.Transitions), len(wantStages))
	}
	for i, item := range history.Transitions {
		if item.ToStage != wantStages[i] {
			t.Errorf("第 %d 条历史 toStage = %q, 期望 %q", i, item.ToStage, wantStages[i])
		}
		if item.Actor == "" {
			t.Errorf("第 %d 条历史缺少发起人", i)
		}
	}
}

// --- 辅助函数与测试替身 ---

type engineEnv struct {
	files       *fakeFileRepo
	transitions *fakeTransitionRepo
	reviews     *fakeReviewRepo
	stageRepo   *fakeStageRepo
	stageSvc    *StageService
	engine      *Engine
}

func newEngineEnv(t *testing.T, stageNames ...string) *engineEnv {
	t.Helper()
	files := newFakeFileRepo()
	transitions := &fakeTransitionRepo{}
	reviews := &fakeReviewRepo{}
	stageRepo := newFakeStageRepo()
	bus := event.NewEventBus()
	t.Cleanup(bus.Shutdown)

	for i, name := range stageNames {
		if err := stageRepo.Create(context.Background(), &model.WorkflowStage{
			TenantID:    1,
			Name:        name,
			DisplayName: name,
			OrderIndex:  i + 1,
			IsActive:    true,
		}); err != nil {
			t.Fatalf("初始化阶段 %s 失败: %v", name, err)
		}
	}

	stageSvc := NewStageService(stageRepo, files, utility.NewMemoryCacheService())
	engine := &Engine{
		txManager:      &fakeTxManager{files: files, transitions: transitions, reviews: reviews, stages: stageRepo},
		fileRepo:       files,
		transitionRepo: transitions,
		stageSvc:       stageSvc,
		locker:         utility.NewFileLocker(),
		bus:            bus,
		lockTimeout:    500 * time.Millisecond,
	}
	return &engineEnv{files: files, transitions: transitions, reviews: reviews, stageRepo: stageRepo, stageSvc: stageSvc, engine: engine}
}

func (e *engineEnv) seedActiveFile(t *testing.T, tenantID uint, stage string, revision int) *model.File {
	t.Helper()
	file := &model.File{
		TenantID:      tenantID,
		OriginalName:  "brief.pdf",
		DeclaredMIME:  "application/pdf",
		Size:          2 * 1024 * 1024,
		StorageKey:    fmt.Sprintf("uploads/%d/shared/%d/brief.pdf", tenantID, time.Now().UnixNano()),
		Status:        model.FileStatusActive,
		CurrentStage:  stage,
		RevisionCount: revision,
	}
	if err := e.files.Create(context.Background(), file); err != nil {
		t.Fatalf("初始化文件失败: %v", err)
	}
	return file
}

func filePublicID(t *testing.T, file *model.File) string {
	t.Helper()
	publicID, err := idgen.GeneratePublicID(file.ID, idgen.EntityTypeFile)
	if err != nil {
		t.Fatalf("生成文件公共ID失败: %v", err)
	}
	return publicID
}

// fakeFileRepo 是内存版文件仓储。
// beforeStageCheck 供测试在条件更新前注入外部变更。
type fakeFileRepo struct {
	mu               sync.Mutex
	nextID           uint
	files            map[uint]*model.File
	beforeStageCheck func()
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{files: make(map[uint]*model.File)}
}

func (r *fakeFileRepo) Create(ctx context.Context, file *model.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.files {
		if f.StorageKey == file.StorageKey {
			return constant.ErrConflict
		}
	}
	r.nextID++
	file.ID = r.nextID
	file.CreatedAt = time.Now()
	file.UpdatedAt = file.CreatedAt
	cp := *file
	r.files[file.ID] = &cp
	return nil
}

func (r *fakeFileRepo) Update(ctx context.Context, file *model.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.files[file.ID]
	if !ok {
		return constant.ErrNotFound
	}
	cp := *file
	cp.StorageKey = stored.StorageKey
	cp.CreatedAt = stored.CreatedAt
	cp.UpdatedAt = time.Now()
	r.files[file.ID] = &cp
	return nil
}

func (r *fakeFileRepo) UpdateWithStageCheck(ctx context.Context, file *model.File, expectedStage string) error {
	if hook := r.beforeStageCheck; hook != nil {
		hook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.files[file.ID]
	if !ok {
		return constant.ErrNotFound
	}
	if stored.CurrentStage != expectedStage {
		return constant.ErrBusy
	}
	cp := *file
	cp.StorageKey = stored.StorageKey
	cp.CreatedAt = stored.CreatedAt
	cp.UpdatedAt = time.Now()
	r.files[file.ID] = &cp
	return nil
}

func (r *fakeFileRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[id]; !ok {
		return constant.ErrNotFound
	}
	delete(r.files, id)
	return nil
}

func (r *fakeFileRepo) FindByID(ctx context.Context, id uint) (*model.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, constant.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *fakeFileRepo) FindByIDAndTenant(ctx context.Context, id, tenantID uint) (*model.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok || f.TenantID != tenantID {
		return nil, constant.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *fakeFileRepo) FindByStorageKey(ctx context.Context, tenantID uint, key string) (*model.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.files {
		if f.TenantID == tenantID && f.StorageKey == key {
			cp := *f
			return &cp, nil
		}
	}
	return nil, constant.ErrNotFound
}

func (r *fakeFileRepo) List(ctx context.Context, params repository.FileListParams) ([]*model.File, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]*model.File, 0)
	for _, f := range r.files {
		if f.TenantID != params.TenantID {
			continue
		}
		if params.Status != 0 && f.Status != params.Status {
			continue
		}
		if params.Stage != "" && f.CurrentStage != params.Stage {
			continue
		}
		cp := *f
		matched = append(matched, &cp)
	}
	return matched, int64(len(matched)), nil
}

func (r *fakeFileRepo) CountActiveByStage(ctx context.Context, tenantID uint, stage string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, f := range r.files {
		if f.TenantID == tenantID && f.Status == model.FileStatusActive && f.CurrentStage == stage {
			n++
		}
	}
	return n, nil
}

func (r *fakeFileRepo) ListExpiredPending(ctx context.Context, olderThan time.Time, limit int) ([]*model.File, error) {
	return nil, nil
}

func (r *fakeFileRepo) ListRecentlyUpdated(ctx context.Context, since time.Time, limit int) ([]*model.File, error) {
	return nil, nil
}

type fakeTransitionRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   []*model.StageTransition
}

func (r *fakeTransitionRepo) Append(ctx context.Context, transition *model.StageTransition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	transition.ID = r.nextID
	transition.CreatedAt = time.Now()
	cp := *transition
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *fakeTransitionRepo) ListByFile(ctx context.Context, fileID uint) ([]*model.StageTransition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.StageTransition, 0)
	for _, row := range r.rows {
		if row.FileID == fileID {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeTransitionRepo) LastByFile(ctx context.Context, fileID uint) (*model.StageTransition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].FileID == fileID {
			cp := *r.rows[i]
			return &cp, nil
		}
	}
	return nil, constant.ErrNotFound
}

type fakeReviewRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   []*model.QCReview
}

func (r *fakeReviewRepo) Create(ctx context.Context, review *model.QCReview) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.FileID == review.FileID && row.Stage == review.Stage && row.Status == model.ReviewStatusPending {
			return constant.ErrConflict
		}
	}
	r.nextID++
	review.ID = r.nextID
	review.CreatedAt = time.Now()
	review.UpdatedAt = review.CreatedAt
	cp := *review
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *fakeReviewRepo) FindOpenByFileAndStage(ctx context.Context, fileID uint, stage string) (*model.QCReview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.FileID == fileID && row.Stage == stage && row.Status == model.ReviewStatusPending {
			cp := *row
			return &cp, nil
		}
	}
	return nil, constant.ErrNotFound
}

func (r *fakeReviewRepo) CloseOpenForStage(ctx context.Context, fileID uint, stage string, action constant.WorkflowAction, reviewerID types.NullUint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.FileID == fileID && row.Stage == stage && row.Status == model.ReviewStatusPending {
			row.Status = model.ReviewStatusCompleted
			row.Action = action
			row.ReviewerID = reviewerID
			row.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (r *fakeReviewRepo) ListByFile(ctx context.Context, fileID uint) ([]*model.QCReview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.QCReview, 0)
	for _, row := range r.rows {
		if row.FileID == fileID {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeStageRepo struct {
	mu        sync.Mutex
	nextID    uint
	stages    map[uint]*model.WorkflowStage
	listCalls int
}

func newFakeStageRepo() *fakeStageRepo {
	return &fakeStageRepo{stages: make(map[uint]*model.WorkflowStage)}
}

func (r *fakeStageRepo) Create(ctx context.Context, stage *model.WorkflowStage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stages {
		if s.TenantID == stage.TenantID && (s.Name == stage.Name || s.OrderIndex == stage.OrderIndex) {
			return constant.ErrConflict
		}
	}
	r.nextID++
	stage.ID = r.nextID
	stage.CreatedAt = time.Now()
	stage.UpdatedAt = stage.CreatedAt
	cp := *stage
	r.stages[stage.ID] = &cp
	return nil
}

func (r *fakeStageRepo) Update(ctx context.Context, stage *model.WorkflowStage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.stages[stage.ID]
	if !ok {
		return constant.ErrNotFound
	}
	for _, s := range r.stages {
		if s.ID != stage.ID && s.TenantID == stage.TenantID && s.OrderIndex == stage.OrderIndex {
			return constant.ErrConflict
		}
	}
	cp := *stage
	cp.CreatedAt = stored.CreatedAt
	cp.UpdatedAt = time.Now()
	r.stages[stage.ID] = &cp
	return nil
}

func (r *fakeStageRepo) FindByIDAndTenant(ctx context.Context, id, tenantID uint) (*model.WorkflowStage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stages[id]
	if !ok || s.TenantID != tenantID {
		return nil, constant.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeStageRepo) FindByName(ctx context.Context, tenantID uint, name string) (*model.WorkflowStage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stages {
		if s.TenantID == tenantID && s.Name == name {
			cp := *s
			return &cp, nil
		}
	}
	return nil, constant.ErrNotFound
}

func (r *fakeStageRepo) ListByTenant(ctx context.Context, tenantID uint) ([]*model.WorkflowStage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	out := make([]*model.WorkflowStage, 0)
	for _, s := range r.stages {
		if s.TenantID == tenantID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

type fakeTxManager struct {
	files       *fakeFileRepo
	transitions *fakeTransitionRepo
	reviews     *fakeReviewRepo
	stages      *fakeStageRepo
}

func (m *fakeTxManager) Do(ctx context.Context, fn func(repos repository.Repositories) error) error {
	return fn(repository.Repositories{
		File:       m.files,
		Stage:      m.stages,
		Transition: m.transitions,
		Review:     m.reviews,
	})
}
