package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/anzhiyu-c/anshen-app/pkg/constant"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/model"
	"github.com/anzhiyu-c/anshen-app/pkg/service/utility"
)

func newStageEnv(t *testing.T) (*StageService, *fakeStageRepo, *fakeFileRepo) {
	t.Helper()
	stageRepo := newFakeStageRepo()
	files := newFakeFileRepo()
	svc := NewStageService(stageRepo, files, utility.NewMemoryCacheService())
	return svc, stageRepo, files
}

func TestCreateStage(t *testing.T) {
	tests := []struct {
		name    string
		req     *model.CreateStageRequest
		seed    *model.CreateStageRequest
		wantErr error
	}{
		{
			name: "正常新建并以名称作为默认展示名",
			req:  &model.CreateStageRequest{Name: "QC", OrderIndex: 1},
		},
		{
			name:    "内置阶段名被拒绝",
			req:     &model.CreateStageRequest{Name: "UPLOADED", OrderIndex: 1},
			wantErr: constant.ErrBadRequest,
		},
		{
			name:    "内置阶段名小写同样被拒绝",
			req:     &model.CreateStageRequest{Name: "completed", OrderIndex: 1},
			wantErr: constant.ErrBadRequest,
		},
		{
			name:    "空白名称被拒绝",
			req:     &model.CreateStageRequest{Name: "   ", OrderIndex: 1},
			wantErr: constant.ErrBadRequest,
		},
		{
			name:    "顺序必须为正整数",
			req:     &model.CreateStageRequest{Name: "QC", OrderIndex: 0},
			wantErr: constant.ErrBadRequest,
		},
		{
			name:    "名称冲突返回冲突",
			seed:    &model.CreateStageRequest{Name: "QC", OrderIndex: 1},
			req:     &model.CreateStageRequest{Name: "QC", OrderIndex: 2},
			wantErr: constant.ErrConflict,
		},
		{
			name:    "顺序冲突返回冲突",
			seed:    &model.CreateStageRequest{Name: "QC", OrderIndex: 1},
			req:     &model.CreateStageRequest{Name: "R1", OrderIndex: 1},
			wantErr: constant.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newStageEnv(t)
			ctx := context.Background()
			if tt.seed != nil {
				if _, err := svc.CreateStage(ctx, 1, tt.seed); err != nil {
					t.Fatalf("预置阶段失败: %v", err)
				}
			}
			resp, err := svc.CreateStage(ctx, 1, tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CreateStage() 错误 = %v, 期望 %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateStage() 意外失败: %v", err)
			}
			if resp.DisplayName != tt.req.Name {
				t.Errorf("默认展示名 = %q, 期望 %q", resp.DisplayName, tt.req.Name)
			}
			if !resp.IsActive {
				t.Error("新建阶段应默认启用")
			}
		})
	}
}

func TestUpdateStage(t *testing.T) {
	t.Run("更新展示名与顺序", func(t *testing.T) {
		svc, _, _ := newStageEnv(t)
		ctx := context.Background()
		created, err := svc.CreateStage(ctx, 1, &model.CreateStageRequest{Name: "QC", OrderIndex: 1})
		if err != nil {
			t.Fatalf("CreateStage() 失败: %v", err)
		}

		displayName := "质检"
		orderIndex := 3
		updated, err := svc.UpdateStage(ctx, 1, created.ID, &model.UpdateStageRequest{
			DisplayName: &displayName,
			OrderIndex:  &orderIndex,
		})
		if err != nil {
			t.Fatalf("UpdateStage() 失败: %v", err)
		}
		if updated.DisplayName != "质检" || updated.OrderIndex != 3 {
			t.Errorf("更新结果 = (%q, %d), 期望 (质检, 3)", updated.DisplayName, updated.OrderIndex)
		}
	})

	t.Run("停用空阶段成功", func(t *testing.T) {
		svc, _, _ := newStageEnv(t)
		ctx := context.Background()
		created, err := svc.CreateStage(ctx, 1, &model.CreateStageRequest{Name: "QC", OrderIndex: 1})
		if err != nil {
			t.Fatalf("CreateStage() 失败: %v", err)
		}

		inactive := false
		updated, err := svc.UpdateStage(ctx, 1, created.ID, &model.UpdateStageRequest{IsActive: &inactive})
		if err != nil {
			t.Fatalf("UpdateStage() 失败: %v", err)
		}
		if updated.IsActive {
			t.Error("阶段应已停用")
		}
	})

	t.Run("停用仍被占用的阶段被拒绝", func(t *testing.T) {
		svc, _, files := newStageEnv(t)
		ctx := context.Background()
		created, err := svc.CreateStage(ctx, 1, &model.CreateStageRequest{Name: "QC", OrderIndex: 1})
		if err != nil {
			t.Fatalf("CreateStage() 失败: %v", err)
		}
		if err := files.Create(ctx, &model.File{
			TenantID:     1,
			OriginalName: "a.pdf",
			StorageKey:   "uploads/1/shared/k/a.pdf",
			Status:       model.FileStatusActive,
			CurrentStage: "QC",
		}); err != nil {
			t.Fatalf("预置文件失败: %v", err)
		}

		inactive := false
		_, err = svc.UpdateStage(ctx, 1, created.ID, &model.UpdateStageRequest{IsActive: &inactive})
		if !errors.Is(err, constant.ErrStageOccupied) {
			t.Fatalf("UpdateStage() 错误 = %v, 期望 %v", err, constant.ErrStageOccupied)
		}
	})

	t.Run("跨租户更新按不存在处理", func(t *testing.T) {
		svc, _, _ := newStageEnv(t)
		ctx := context.Background()
		created, err := svc.CreateStage(ctx, 1, &model.CreateStageRequest{Name: "QC", OrderIndex: 1})
		if err != nil {
			t.Fatalf("CreateStage() 失败: %v", err)
		}
		displayName := "质检"
		if _, err := svc.UpdateStage(ctx, 2, created.ID, &model.UpdateStageRequest{DisplayName: &displayName}); !errors.Is(err, constant.ErrNotFound) {
			t.Errorf("跨租户更新错误 = %v, 期望 %v", err, constant.ErrNotFound)
		}
	})

	t.Run("非法公共ID返回参数错误", func(t *testing.T) {
		svc, _, _ := newStageEnv(t)
		displayName := "质检"
		if _, err := svc.UpdateStage(context.Background(), 1, "not-a-real-id", &model.UpdateStageRequest{DisplayName: &displayName}); !errors.Is(err, constant.ErrInvalidPublicID) {
			t.Errorf("UpdateStage() 错误 = %v, 期望 %v", err, constant.ErrInvalidPublicID)
		}
	})
}

func TestStageListCache(t *testing.T) {
	t.Run("重复读取走缓存", func(t *testing.T) {
		svc, stageRepo, _ := newStageEnv(t)
		ctx := context.Background()
		if _, err := svc.CreateStage(ctx, 1, &model.CreateStageRequest{Name: "QC", OrderIndex: 1}); err != nil {
			t.Fatalf("CreateStage() 失败: %v", err)
		}
		stageRepo.listCalls = 0

		for i := 0; i < 3; i++ {
			stages, err := svc.ActiveStages(ctx, 1)
			if err != nil {
				t.Fatalf("第 %d 次 ActiveStages() 失败: %v", i+1, err)
			}
			if stages.Len() != 1 {
				t.Fatalf("启用阶段数 = %d, 期望 1", stages.Len())
			}
		}
		if stageRepo.listCalls != 1 {
			t.Errorf("数据库查询次数 = %d, 期望缓存命中后仅 1 次", stageRepo.listCalls)
		}
	})

	t.Run("写操作后缓存失效", func(t *testing.T) {
		svc, _, _ := newStageEnv(t)
		ctx := context.Background()
		if _, err := svc.CreateStage(ctx, 1, &model.CreateStageRequest{Name: "QC", OrderIndex: 1}); err != nil {
			t.Fatalf("CreateStage() 失败: %v", err)
		}
		stages, err := svc.ActiveStages(ctx, 1)
		if err != nil || stages.Len() != 1 {
			t.Fatalf("预热缓存失败: %v", err)
		}

		if _, err := svc.CreateStage(ctx, 1, &model.CreateStageRequest{Name: "R1", OrderIndex: 2}); err != nil {
			t.Fatalf("新建第二个阶段失败: %v", err)
		}
		stages, err = svc.ActiveStages(ctx, 1)
		if err != nil {
			t.Fatalf("ActiveStages() 失败: %v", err)
		}
		if stages.Len() != 2 {
			t.Errorf("新建后启用阶段数 = %d, 期望 2", stages.Len())
		}
		names := stages.Names()
		if len(names) != 2 || names[0] != "QC" || names[1] != "R1" {
			t.Errorf("阶段顺序 = %v, 期望 [QC R1]", names)
		}
	})

	t.Run("停用的阶段不参与导航", func(t *testing.T) {
		svc, _, _ := newStageEnv(t)
		ctx := context.Background()
		created, err := svc.CreateStage(ctx, 1, &model.CreateStageRequest{Name: "QC", OrderIndex: 1})
		if err != nil {
			t.Fatalf("CreateStage() 失败: %v", err)
		}
		if _, err := svc.CreateStage(ctx, 1, &model.CreateStageRequest{Name: "R1", OrderIndex: 2}); err != nil {
			t.Fatalf("CreateStage() 失败: %v", err)
		}
		inactive := false
		if _, err := svc.UpdateStage(ctx, 1, created.ID, &model.UpdateStageRequest{IsActive: &inactive}); err != nil {
			t.Fatalf("UpdateStage() 失败: %v", err)
		}

		stages, err := svc.ActiveStages(ctx, 1)
		if err != nil {
			t.Fatalf("ActiveStages() 失败: %v", err)
		}
		if stages.Len() != 1 || stages.Contains("QC") {
			t.Errorf("停用后启用阶段 = %v, 期望只剩 [R1]", stages.Names())
		}

		// 全部阶段列表仍包含停用的
		all, err := svc.ListStages(ctx, 1)
		if err != nil {
			t.Fatalf("ListStages() 失败: %v", err)
		}
		if len(all) != 2 {
			t.Errorf("全部阶段数 = %d, 期望 2", len(all))
		}
	})
}
