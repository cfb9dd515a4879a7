package checker

import "time"

// retryDelays là lịch backoff sau mỗi lần kiểm tra thất bại liên tiếp.
// Lần thất bại thứ n chờ retryDelays[n-1], vượt bảng thì giữ mức cuối.
var retryDelays = []time.Duration{
	10 * time.Minute,
	30 * time.Minute,
	1 * time.Hour,
	2 * time.Hour,
	4 * time.Hour,
	12 * time.Hour,
	24 * time.Hour,
}

// RetryDelay trả về khoảng chờ trước lần thử tiếp theo sau failureCount lần
// thất bại liên tiếp. failureCount <= 0 trả về mức thấp nhất.
func RetryDelay(failureCount int) time.Duration {
	if failureCount <= 0 {
		return retryDelays[0]
	}
	if failureCount > len(retryDelays) {
		return retryDelays[len(retryDelays)-1]
	}
	return retryDelays[failureCount-1]
}
