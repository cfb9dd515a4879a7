package checker

import (
	"testing"
	"time"
)

func TestRetryDelay_Table(t *testing.T) {
	cases := []struct {
		failureCount int
		want         time.Duration
	}{
		{0, 10 * time.Minute},
		{1, 10 * time.Minute},
		{2, 30 * time.Minute},
		{3, 1 * time.Hour},
		{4, 2 * time.Hour},
		{5, 4 * time.Hour},
		{6, 12 * time.Hour},
		{7, 24 * time.Hour},
		{8, 24 * time.Hour},
		{100, 24 * time.Hour},
		{-1, 10 * time.Minute},
	}
	for _, tc := range cases {
		got := RetryDelay(tc.failureCount)
		if got != tc.want {
			t.Errorf("RetryDelay(%d): kỳ vọng %v, nhận được %v", tc.failureCount, tc.want, got)
		}
	}
}

func TestRetryDelay_Monotonic(t *testing.T) {
	prev := RetryDelay(1)
	for i := 2; i <= 10; i++ {
		cur := RetryDelay(i)
		if cur < prev {
			t.Errorf("lịch backoff phải không giảm, RetryDelay(%d)=%v < RetryDelay(%d)=%v", i, cur, i-1, prev)
		}
		prev = cur
	}
}
