package agent

import (
	"sort"
	"time"

	trackermodels "github.com/goagain/ircc-tracker/internal/api/tracker/models"
)

// Các layout ISO mà API di trú dùng cho trường thời gian.
var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseISOMillis parse chuỗi thời gian ISO về epoch millis.
func parseISOMillis(value string) (int64, error) {
	var lastErr error
	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UnixMilli(), nil
		}
		lastErr = err
	}
	return 0, lastErr
}

// sortActivities sắp xếp theo tên để output ổn định
// (map activities của response di trú không có thứ tự).
func sortActivities(activities []trackermodels.Activity) {
	sort.Slice(activities, func(i, j int) bool {
		return activities[i].Activity < activities[j].Activity
	})
}
