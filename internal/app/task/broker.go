// internal/app/task/broker.go
package task

import (
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/anzhiyu-c/anshen-app/internal/infra/storage"
	"github.com/anzhiyu-c/anshen-app/pkg/config"
	"github.com/anzhiyu-c/anshen-app/pkg/constant"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/repository"

	"github.com/robfig/cron/v3"
)

// Broker 是整个后台任务模块的核心协调者。
type Broker struct {
	cron           *cron.Cron
	logger         *slog.Logger
	fileRepo       repository.FileRepository
	transitionRepo repository.TransitionRepository
	provider       storage.IStorageProvider
	pendingTTL     time.Duration
	jobQueue       chan Job
}

// NewBroker 是 Broker 的构造函数。
func NewBroker(
	fileRepo repository.FileRepository,
	transitionRepo repository.TransitionRepository,
	provider storage.IStorageProvider,
	cfg *config.Config,
) *Broker {

	slogHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(slogHandler).With("system", "task_broker")

	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(
			NewPanicRecoveryWrapper(logger),
			NewLoggingWrapper(logger),
			cron.DelayIfStillRunning(cron.DefaultLogger),
		),
	)

	jobQueue := make(chan Job, 1000)

	pendingHours := cfg.GetIntOrDefault(config.KeyUploadPendingExpireHours, constant.DefaultPendingExpireHours)

	broker := &Broker{
		cron:           c,
		logger:         logger,
		fileRepo:       fileRepo,
		transitionRepo: transitionRepo,
		provider:       provider,
		pendingTTL:     time.Duration(pendingHours) * time.Hour,
		jobQueue:       jobQueue,
	}

	broker.startWorkerPool()

	return broker
}

// startWorkerPool 启动固定数量的 worker goroutine 来处理任务。
func (b *Broker) startWorkerPool() {
	workerCount := runtime.NumCPU()
	if workerCount <= 0 {
		workerCount = 4
	}
	b.logger.Info("Starting task worker pool", "concurrency", workerCount)

	for i := 0; i < workerCount; i++ {
		workerID := i + 1
		go func() {
			b.logger.Info("Worker started", "worker_id", workerID)
			for job := range b.jobQueue {
				jobWithWrappers := cron.NewChain(
					NewPanicRecoveryWrapper(b.logger),
					NewLoggingWrapper(b.logger),
				).Then(job)

				b.logger.Info("Worker picked up a job", "worker_id", workerID, "job_name", job.Name())
				jobWithWrappers.Run()
				b.logger.Info("Worker finished a job", "worker_id", workerID, "job_name", job.Name())
			}
			b.logger.Info("Worker stopped", "worker_id", workerID)
		}()
	}
}

// RegisterCronJobs 注册所有周期性任务。
func (b *Broker) RegisterCronJobs() {
	b.logger.Info("Registering all periodic jobs...")

	reaperJob := NewPendingReaperJob(b.fileRepo, b.provider, b.pendingTTL)
	_, err := b.cron.AddJob("0 30 * * * *", reaperJob) // 每小时的第30分钟
	if err != nil {
		b.logger.Error("Failed to add 'PendingReaperJob'", slog.Any("error", err))
		os.Exit(1)
	}
	b.logger.Info("-> Successfully registered 'PendingReaperJob'", "schedule", "every hour at :30")

	auditJob := NewLedgerAuditJob(b.fileRepo, b.transitionRepo)
	_, err = b.cron.AddJob("0 0 4 * * *", auditJob) // 每天凌晨4点
	if err != nil {
		b.logger.Error("Failed to add 'LedgerAuditJob'", slog.Any("error", err))
		os.Exit(1)
	}
	b.logger.Info("-> Successfully registered 'LedgerAuditJob'", "schedule", "every day at 4:00:00 AM")

	b.logger.Info("All periodic jobs registered.")
}

// Dispatch 将任务发送到队列中。
func (b *Broker) Dispatch(job Job) {
	b.jobQueue <- job
}

// DispatchPendingReap 创建一次占位记录回收任务并派发到后台执行。
func (b *Broker) DispatchPendingReap() {
	job := NewPendingReaperJob(b.fileRepo, b.provider, b.pendingTTL)
	b.Dispatch(job)
	b.logger.Info("Successfully queued pending reaper job")
}

// DispatchLedgerAudit 创建一次台账审计任务并派发到后台执行。
func (b *Broker) DispatchLedgerAudit() {
	job := NewLedgerAuditJob(b.fileRepo, b.transitionRepo)
	b.Dispatch(job)
	b.logger.Info("Successfully queued ledger audit job")
}

// Start 启动 cron 调度器，并在启动时先做一轮占位记录回收。
func (b *Broker) Start() {
	b.logger.Info("Task broker started.")
	b.cron.Start()

	// 服务可能停机很久，启动后不等整点先回收一次积压的占位记录
	b.DispatchPendingReap()
}

// Stop 优雅地停止 cron 调度器和所有 worker。
func (b *Broker) Stop() {
	b.logger.Info("Stopping task broker...")
	ctx := b.cron.Stop()
	<-ctx.Done()
	close(b.jobQueue)
	b.logger.Info("Task broker gracefully stopped.")
}
