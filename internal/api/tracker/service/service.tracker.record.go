// Package trackersvc - ApplicationRecordService (xem service.tracker.credential.go cho package doc).
// File: service.tracker.record.go - giữ tên cấu trúc cũ (service.<domain>.<entity>.go).
package trackersvc

import (
	"context"
	"errors"
	"fmt"

	basesvc "github.com/goagain/ircc-tracker/internal/api/base/service"
	trackermodels "github.com/goagain/ircc-tracker/internal/api/tracker/models"
	"github.com/goagain/ircc-tracker/internal/common"
	"github.com/goagain/ircc-tracker/internal/global"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ApplicationRecordService là service quản lý các snapshot trạng thái hồ sơ.
type ApplicationRecordService struct {
	*basesvc.BaseServiceMongoImpl[trackermodels.ApplicationStatusRecord]
}

// NewApplicationRecordService tạo mới ApplicationRecordService
func NewApplicationRecordService() (*ApplicationRecordService, error) {
	collection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.ApplicationRecords)
	if !exist {
		return nil, fmt.Errorf("failed to get application_records collection: %v", common.ErrNotFound)
	}

	return &ApplicationRecordService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[trackermodels.ApplicationStatusRecord](collection),
	}, nil
}

// FindLatest trả về snapshot mới nhất của một hồ sơ theo lastUpdatedTime.
// Trả về (nil, nil) khi hồ sơ chưa có snapshot nào.
func (s *ApplicationRecordService) FindLatest(ctx context.Context, applicationNumber string) (*trackermodels.ApplicationStatusRecord, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "lastUpdatedTime", Value: -1}})
	record, err := s.FindOne(ctx, bson.M{"applicationNumber": applicationNumber}, opts)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// FindHistory trả về các snapshot của một hồ sơ, mới nhất trước.
func (s *ApplicationRecordService) FindHistory(ctx context.Context, applicationNumber string, limit int64) ([]trackermodels.ApplicationStatusRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "lastUpdatedTime", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}
	return s.Find(ctx, bson.M{"applicationNumber": applicationNumber}, opts)
}

// SaveVersion lưu một snapshot, dedup theo cặp (applicationNumber, lastUpdatedTime).
// Fetch lại cùng một phiên bản chỉ ghi đè snapshot cũ, không tạo bản ghi mới.
func (s *ApplicationRecordService) SaveVersion(ctx context.Context, record trackermodels.ApplicationStatusRecord) (trackermodels.ApplicationStatusRecord, error) {
	filter := bson.M{
		"applicationNumber": record.ApplicationNumber,
		"lastUpdatedTime":   record.LastUpdatedTime,
	}
	return s.Upsert(ctx, filter, record)
}
