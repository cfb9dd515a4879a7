// Package scheduler - Test vòng đời job và shutdown với sweeper giả lập.
package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	trackermodels "github.com/goagain/ircc-tracker/internal/api/tracker/models"
	"github.com/goagain/ircc-tracker/internal/checker"
)

type fakeSweeper struct {
	sweepCalls int32
	checkCalls int32
	checkErr   error
}

func (f *fakeSweeper) CheckAll(ctx context.Context) (int, int) {
	atomic.AddInt32(&f.sweepCalls, 1)
	return 0, 0
}

func (f *fakeSweeper) CheckOne(ctx context.Context, credential trackermodels.TrackedCredential) ([]checker.Change, error) {
	atomic.AddInt32(&f.checkCalls, 1)
	return nil, f.checkErr
}

func waitForJob(t *testing.T, s *Scheduler, jobID string, wantStatus string) JobInfo {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		info, ok := s.JobStatus(jobID)
		if ok && info.Status == wantStatus {
			return info
		}
		time.Sleep(10 * time.Millisecond)
	}
	info, _ := s.JobStatus(jobID)
	t.Fatalf("job %s không đạt trạng thái %q trong 5s, trạng thái hiện tại: %+v", jobID, wantStatus, info)
	return JobInfo{}
}

func testCredential() trackermodels.TrackedCredential {
	return trackermodels.TrackedCredential{
		ID:                primitive.NewObjectID(),
		ApplicationNumber: "C000012345",
	}
}

func TestScheduler_EnqueueCheckLifecycle(t *testing.T) {
	sweeper := &fakeSweeper{}
	s := NewScheduler(sweeper, 10*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Shutdown(context.Background())

	jobID, err := s.EnqueueCheck(testCredential())
	if err != nil {
		t.Fatalf("EnqueueCheck trả về lỗi: %v", err)
	}
	if !strings.HasPrefix(jobID, "one_time_") {
		t.Errorf("job id phải có prefix one_time_, nhận được %q", jobID)
	}

	info := waitForJob(t, s, jobID, JobDone)
	if info.Error != "" {
		t.Errorf("job thành công không được có error, nhận được %q", info.Error)
	}
	if info.StartedAt == 0 || info.FinishedAt == 0 {
		t.Errorf("job xong phải có startedAt/finishedAt: %+v", info)
	}
	if atomic.LoadInt32(&sweeper.checkCalls) != 1 {
		t.Errorf("CheckOne phải được gọi đúng 1 lần, nhận được %d", sweeper.checkCalls)
	}
}

func TestScheduler_FailedJobCapturesError(t *testing.T) {
	sweeper := &fakeSweeper{checkErr: errors.New("IRCC không phản hồi")}
	s := NewScheduler(sweeper, 10*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Shutdown(context.Background())

	jobID, err := s.EnqueueCheck(testCredential())
	if err != nil {
		t.Fatalf("EnqueueCheck trả về lỗi: %v", err)
	}

	info := waitForJob(t, s, jobID, JobFailed)
	if info.Error != "IRCC không phản hồi" {
		t.Errorf("job thất bại phải giữ thông điệp lỗi, nhận được %q", info.Error)
	}
}

func TestScheduler_EnqueueSweepRunsCheckAll(t *testing.T) {
	sweeper := &fakeSweeper{}
	s := NewScheduler(sweeper, 10*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Shutdown(context.Background())

	// Chờ sweep khởi động xong để đếm riêng lần sweep do job gây ra.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && atomic.LoadInt32(&sweeper.sweepCalls) < 1 {
		time.Sleep(10 * time.Millisecond)
	}

	jobID, err := s.EnqueueSweep()
	if err != nil {
		t.Fatalf("EnqueueSweep trả về lỗi: %v", err)
	}
	if !strings.HasPrefix(jobID, "one_time_") {
		t.Errorf("job id phải có prefix one_time_, nhận được %q", jobID)
	}

	info := waitForJob(t, s, jobID, JobDone)
	if info.Name != "Full Status Sweep" {
		t.Errorf("tên job sweep không đúng: %q", info.Name)
	}
	if atomic.LoadInt32(&sweeper.sweepCalls) < 2 {
		t.Errorf("job sweep phải gọi CheckAll thêm một lần, tổng nhận được %d", sweeper.sweepCalls)
	}
	if atomic.LoadInt32(&sweeper.checkCalls) != 0 {
		t.Errorf("job sweep không được gọi CheckOne, nhận được %d", sweeper.checkCalls)
	}
}

func TestScheduler_StatusReportsNextRunTime(t *testing.T) {
	sweeper := &fakeSweeper{}
	s := NewScheduler(sweeper, 10*time.Minute)

	if got := s.Status()["nextRunTime"]; got != int64(0) {
		t.Errorf("chưa Start thì nextRunTime phải là 0, nhận được %v", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Shutdown(context.Background())

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && atomic.LoadInt32(&sweeper.sweepCalls) < 1 {
		time.Sleep(10 * time.Millisecond)
	}

	s.mu.Lock()
	lastSweep := s.lastSweepStart
	s.mu.Unlock()

	got, ok := s.Status()["nextRunTime"].(int64)
	if !ok || got == 0 {
		t.Fatalf("scheduler đang chạy phải báo nextRunTime, nhận được %v", s.Status()["nextRunTime"])
	}
	want := lastSweep.Add(10 * time.Minute).UnixMilli()
	if got != want {
		t.Errorf("nextRunTime phải là lần sweep cuối cộng chu kỳ: kỳ vọng %d, nhận được %d", want, got)
	}
}

func TestScheduler_ImmediateSweepOnStart(t *testing.T) {
	sweeper := &fakeSweeper{}
	s := NewScheduler(sweeper, 10*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Shutdown(context.Background())

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(&sweeper.sweepCalls) >= 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("sweep đầu tiên phải chạy ngay khi Start")
}

func TestScheduler_JobStatusUnknownID(t *testing.T) {
	s := NewScheduler(&fakeSweeper{}, 10*time.Minute)
	if _, ok := s.JobStatus("one_time_khong-ton-tai"); ok {
		t.Error("job id không tồn tại phải trả về ok=false")
	}
}

func TestScheduler_MinimumInterval(t *testing.T) {
	s := NewScheduler(&fakeSweeper{}, time.Second)
	if s.interval != 10*time.Minute {
		t.Errorf("chu kỳ dưới 1 phút phải về mặc định 10 phút, nhận được %v", s.interval)
	}
}

func TestScheduler_ShutdownStopsLoops(t *testing.T) {
	sweeper := &fakeSweeper{}
	s := NewScheduler(sweeper, 10*time.Minute)

	s.Start(context.Background())
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown trả về lỗi: %v", err)
	}

	// Shutdown lần hai khi đã dừng là no-op.
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown lặp lại phải là no-op, nhận được %v", err)
	}

	status := s.Status()
	if status["isRunning"] != false {
		t.Errorf("sau Shutdown isRunning phải là false, nhận được %v", status["isRunning"])
	}
}
