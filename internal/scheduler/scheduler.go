// Package scheduler chạy sweep kiểm tra định kỳ và hàng đợi kiểm tra một lần.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	trackermodels "github.com/goagain/ircc-tracker/internal/api/tracker/models"
	"github.com/goagain/ircc-tracker/internal/checker"
	"github.com/goagain/ircc-tracker/internal/logger"
)

// Các trạng thái của một job kiểm tra.
const (
	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// JobInfo là trạng thái của một job kiểm tra một lần.
type JobInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	EnqueuedAt int64  `json:"enqueuedAt"`
	StartedAt  int64  `json:"startedAt,omitempty"`
	FinishedAt int64  `json:"finishedAt,omitempty"`
}

// Sweeper là phần của Checker mà scheduler cần.
type Sweeper interface {
	CheckAll(ctx context.Context) (int, int)
	CheckOne(ctx context.Context, credential trackermodels.TrackedCredential) ([]checker.Change, error)
}

type job struct {
	info JobInfo
	run  func(ctx context.Context) error
}

// Scheduler chạy 2 vòng lặp nền: sweep định kỳ cho toàn bộ credential và
// worker xử lý các job kiểm tra một lần do user yêu cầu.
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration

	mu             sync.Mutex
	jobs           map[string]*JobInfo
	queue          chan *job
	running        bool
	lastSweepStart time.Time
	cancel         context.CancelFunc
	wg             sync.WaitGroup
}

// NewScheduler tạo mới Scheduler với chu kỳ sweep cho trước.
func NewScheduler(sweeper Sweeper, interval time.Duration) *Scheduler {
	if interval < time.Minute {
		interval = 10 * time.Minute
	}
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		jobs:     make(map[string]*JobInfo),
		queue:    make(chan *job, 256),
	}
}

// Start khởi động các vòng lặp nền. Gọi lần thứ hai khi đang chạy là no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	log := logger.GetAppLogger()
	log.WithFields(map[string]interface{}{
		"interval": s.interval.String(),
	}).Info("⏰ [SCHEDULER] Starting status check scheduler...")

	s.wg.Add(2)
	go s.sweepLoop(runCtx)
	go s.workerLoop(runCtx)
}

// sweepLoop chạy sweep ngay khi khởi động rồi lặp lại theo chu kỳ.
func (s *Scheduler) sweepLoop(ctx context.Context) {
	defer s.wg.Done()
	log := logger.GetAppLogger()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runSweep(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info("⏰ [SCHEDULER] Sweep loop stopped")
			return
		case <-ticker.C:
			s.runSweep(ctx)
		}
	}
}

func (s *Scheduler) runSweep(ctx context.Context) {
	log := logger.GetAppLogger()

	defer func() {
		if r := recover(); r != nil {
			log.WithFields(map[string]interface{}{
				"panic": r,
			}).Error("⏰ [SCHEDULER] Panic trong sweep, sẽ tiếp tục ở chu kỳ sau")
		}
	}()

	start := time.Now()
	s.mu.Lock()
	s.lastSweepStart = start
	s.mu.Unlock()

	success, total := s.sweeper.CheckAll(ctx)
	log.WithFields(map[string]interface{}{
		"duration": time.Since(start).String(),
		"success":  success,
		"total":    total,
	}).Info("⏰ [SCHEDULER] Sweep định kỳ hoàn tất")
}

// workerLoop xử lý job một lần từ hàng đợi; khi rảnh thức dậy mỗi 10 giây
// để kiểm tra tín hiệu dừng.
func (s *Scheduler) workerLoop(ctx context.Context) {
	defer s.wg.Done()
	log := logger.GetAppLogger()

	idle := time.NewTicker(10 * time.Second)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("⏰ [SCHEDULER] Worker loop stopped")
			return
		case j := <-s.queue:
			s.runJob(ctx, j)
		case <-idle.C:
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context, j *job) {
	log := logger.GetAppLogger()

	s.setJobStatus(j.info.ID, func(info *JobInfo) {
		info.Status = JobRunning
		info.StartedAt = time.Now().UnixMilli()
	})

	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				runErr = fmt.Errorf("panic: %v", r)
			}
		}()
		runErr = j.run(ctx)
	}()

	if runErr != nil {
		log.WithFields(map[string]interface{}{
			"jobId": j.info.ID,
			"error": runErr.Error(),
		}).Error("⏰ [SCHEDULER] Job thất bại")
		s.setJobStatus(j.info.ID, func(info *JobInfo) {
			info.Status = JobFailed
			info.Error = runErr.Error()
			info.FinishedAt = time.Now().UnixMilli()
		})
		return
	}

	s.setJobStatus(j.info.ID, func(info *JobInfo) {
		info.Status = JobDone
		info.FinishedAt = time.Now().UnixMilli()
	})
}

func (s *Scheduler) setJobStatus(id string, update func(*JobInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info, ok := s.jobs[id]; ok {
		update(info)
	}
}

// EnqueueCheck xếp hàng một lần kiểm tra cho một credential và trả về job id.
func (s *Scheduler) EnqueueCheck(credential trackermodels.TrackedCredential) (string, error) {
	return s.enqueue("Status Check: "+credential.ApplicationNumber, func(ctx context.Context) error {
		_, err := s.sweeper.CheckOne(ctx, credential)
		return err
	})
}

// EnqueueSweep xếp hàng một lần sweep toàn bộ credential và trả về job id.
func (s *Scheduler) EnqueueSweep() (string, error) {
	return s.enqueue("Full Status Sweep", func(ctx context.Context) error {
		s.sweeper.CheckAll(ctx)
		return nil
	})
}

func (s *Scheduler) enqueue(name string, run func(ctx context.Context) error) (string, error) {
	jobID := "one_time_" + uuid.New().String()

	info := &JobInfo{
		ID:         jobID,
		Name:       name,
		Status:     JobPending,
		EnqueuedAt: time.Now().UnixMilli(),
	}
	j := &job{
		info: *info,
		run:  run,
	}

	s.mu.Lock()
	s.jobs[jobID] = info
	s.mu.Unlock()

	select {
	case s.queue <- j:
		logger.GetAppLogger().WithFields(map[string]interface{}{
			"jobId": jobID,
		}).Info("⏰ [SCHEDULER] Đã xếp hàng job kiểm tra một lần")
		return jobID, nil
	default:
		s.mu.Lock()
		delete(s.jobs, jobID)
		s.mu.Unlock()
		return "", fmt.Errorf("hàng đợi job đã đầy")
	}
}

// JobStatus trả về trạng thái của một job theo id.
func (s *Scheduler) JobStatus(jobID string) (JobInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.jobs[jobID]
	if !ok {
		return JobInfo{}, false
	}
	return *info, true
}

// Status trả về tổng quan scheduler cho endpoint admin.
func (s *Scheduler) Status() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]JobInfo, 0, len(s.jobs))
	for _, info := range s.jobs {
		jobs = append(jobs, *info)
	}

	var nextRunTime int64
	if s.running && !s.lastSweepStart.IsZero() {
		nextRunTime = s.lastSweepStart.Add(s.interval).UnixMilli()
	}

	return map[string]interface{}{
		"isRunning":   s.running,
		"interval":    s.interval.String(),
		"nextRunTime": nextRunTime,
		"totalJobs":   len(jobs),
		"jobs":        jobs,
	}
}

// Shutdown dừng các vòng lặp và chờ job đang chạy xong, tôn trọng deadline
// của ctx truyền vào.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.GetAppLogger().Info("⏰ [SCHEDULER] Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
