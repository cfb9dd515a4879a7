// Package checker thực hiện pipeline kiểm tra trạng thái hồ sơ: fetch,
// so sánh với snapshot đã lưu, gửi thông báo và cập nhật lịch retry.
package checker

import (
	"fmt"
	"sort"

	trackermodels "github.com/goagain/ircc-tracker/internal/api/tracker/models"
)

// Các loại thay đổi phát hiện được giữa 2 snapshot.
const (
	ChangeKindChanged = "Changed"
	ChangeKindAdded   = "Added"
)

// Change mô tả một khác biệt giữa snapshot cũ và mới.
type Change struct {
	Subject  string // Application Status, Last Updated Time, tên activity, Event
	Kind     string // Changed, Added
	OldValue string
	NewValue string
}

// String render một dòng thay đổi dùng trong nội dung email.
func (c Change) String() string {
	return fmt.Sprintf("%s: %s: %s -> %s", c.Kind, c.Subject, c.OldValue, c.NewValue)
}

// Compare so sánh snapshot đã lưu với snapshot mới fetch về và trả về danh
// sách thay đổi theo thứ tự cố định: status, lastUpdatedTime, activities,
// history. previous == nil nghĩa là lần quan sát đầu tiên của hồ sơ: snapshot
// được lưu làm baseline và cố ý không phát sinh thay đổi nào, kể cả các dòng
// Added cho activities/history đã có sẵn, để lần kiểm tra đầu không gửi một
// loạt thông báo cho trạng thái cũ.
func Compare(previous, current *trackermodels.ApplicationStatusRecord) []Change {
	changes := []Change{}
	if current == nil {
		return changes
	}
	if previous == nil {
		return changes
	}

	if previous.Status != current.Status {
		changes = append(changes, Change{
			Subject:  "Application Status",
			Kind:     ChangeKindChanged,
			OldValue: previous.Status,
			NewValue: current.Status,
		})
	}

	if previous.LastUpdatedTime != current.LastUpdatedTime {
		changes = append(changes, Change{
			Subject:  "Last Updated Time",
			Kind:     ChangeKindChanged,
			OldValue: fmt.Sprintf("%d", previous.LastUpdatedTime),
			NewValue: fmt.Sprintf("%d", current.LastUpdatedTime),
		})
	}

	changes = append(changes, compareActivities(previous.Activities, current.Activities)...)
	changes = append(changes, compareHistory(previous.History, current.History)...)

	return changes
}

// compareActivities đối chiếu activity theo tên: activity mới xuất hiện được
// báo là Added với giá trị cũ "N/A", activity đổi trạng thái được báo là Changed.
func compareActivities(previous, current []trackermodels.Activity) []Change {
	previousByName := make(map[string]trackermodels.Activity, len(previous))
	for _, act := range previous {
		previousByName[act.Activity] = act
	}

	var changes []Change
	for _, act := range current {
		old, ok := previousByName[act.Activity]
		if !ok {
			changes = append(changes, Change{
				Subject:  act.Activity,
				Kind:     ChangeKindAdded,
				OldValue: "N/A",
				NewValue: act.Status,
			})
			continue
		}
		if old.Status != act.Status {
			changes = append(changes, Change{
				Subject:  act.Activity,
				Kind:     ChangeKindChanged,
				OldValue: old.Status,
				NewValue: act.Status,
			})
		}
	}
	return changes
}

// compareHistory sắp cả 2 danh sách theo thời gian rồi báo Added cho các
// entry vượt quá độ dài của danh sách cũ.
func compareHistory(previous, current []trackermodels.HistoryRecord) []Change {
	sorted := make([]trackermodels.HistoryRecord, len(current))
	copy(sorted, current)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time < sorted[j].Time
	})

	var changes []Change
	for i := len(previous); i < len(sorted); i++ {
		label := historyLabel(sorted[i])
		changes = append(changes, Change{
			Subject:  "Event",
			Kind:     ChangeKindAdded,
			OldValue: label,
			NewValue: label,
		})
	}
	return changes
}

// historyLabel chọn nhãn hiển thị cho một entry lịch sử: ưu tiên title tiếng
// Anh (hệ citizen), fallback sang trường activity (hệ immigrant).
func historyLabel(h trackermodels.HistoryRecord) string {
	if h.Title != nil && h.Title.En != "" {
		return h.Title.En
	}
	return h.Activity
}
