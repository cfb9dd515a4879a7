// Package models - ApplicationStatusRecord thuộc domain Tracker.
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Các giá trị trạng thái hoạt động mà IRCC trả về.
const (
	ActivityInProgress = "inProgress"
	ActivityNotStarted = "notStarted"
	ActivityCompleted  = "completed"
)

// ApplicationStatusRecord - Một snapshot trạng thái hồ sơ lấy về từ IRCC.
// Mỗi lần lastUpdatedTime thay đổi sẽ tạo một bản ghi mới (dedup theo cặp
// applicationNumber + lastUpdatedTime).
type ApplicationStatusRecord struct {
	ID                primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ApplicationNumber string             `json:"applicationNumber" bson:"applicationNumber" index:"single:1;compound:appNumber_lastUpdatedTime_unique"`
	UCI               string             `json:"uci,omitempty" bson:"uci,omitempty"`
	LastUpdatedTime   int64              `json:"lastUpdatedTime" bson:"lastUpdatedTime" index:"compound:appNumber_lastUpdatedTime_unique"`
	Status            string             `json:"status" bson:"status"`

	Activities []Activity      `json:"activities,omitempty" bson:"activities,omitempty"`
	History    []HistoryRecord `json:"history,omitempty" bson:"history,omitempty"`
	Actions    []string        `json:"actions,omitempty" bson:"actions,omitempty"`

	FetchedAt int64 `json:"fetchedAt" bson:"fetchedAt"`
	CreatedAt int64 `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}

// Activity - Một hạng mục xử lý của hồ sơ (language, backgroundVerification, ...)
type Activity struct {
	Activity string `json:"activity" bson:"activity"`
	Order    int    `json:"order" bson:"order"`
	Status   string `json:"status" bson:"status"` // inProgress, notStarted, completed
}

// HistoryRecord - Một dòng lịch sử của hồ sơ, thời gian tính bằng epoch millis.
type HistoryRecord struct {
	Time      int64          `json:"time" bson:"time"`
	IsNew     bool           `json:"isNew" bson:"isNew"`
	IsWaiting bool           `json:"isWaiting" bson:"isWaiting"`
	Type      string         `json:"type" bson:"type"`
	Activity  string         `json:"activity,omitempty" bson:"activity,omitempty"`
	LoadTime  int64          `json:"loadTime" bson:"loadTime"`
	Title     *BilingualText `json:"title,omitempty" bson:"title,omitempty"`
	Text      *BilingualText `json:"text,omitempty" bson:"text,omitempty"`
}

// BilingualText - Nội dung song ngữ Anh/Pháp từ IRCC.
type BilingualText struct {
	En string `json:"en,omitempty" bson:"en,omitempty"`
	Fr string `json:"fr,omitempty" bson:"fr,omitempty"`
}
