// Package trackersvc chứa các service của domain Tracker (credential, application record).
// File: service.tracker.credential.go - giữ tên cấu trúc cũ (service.<domain>.<entity>.go).
package trackersvc

import (
	"context"
	"fmt"
	"time"

	basesvc "github.com/goagain/ircc-tracker/internal/api/base/service"
	trackermodels "github.com/goagain/ircc-tracker/internal/api/tracker/models"
	"github.com/goagain/ircc-tracker/internal/common"
	"github.com/goagain/ircc-tracker/internal/global"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CredentialService là service quản lý TrackedCredential.
type CredentialService struct {
	*basesvc.BaseServiceMongoImpl[trackermodels.TrackedCredential]
}

// NewCredentialService tạo mới CredentialService
func NewCredentialService() (*CredentialService, error) {
	collection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.TrackedCredentials)
	if !exist {
		return nil, fmt.Errorf("failed to get tracked_credentials collection: %v", common.ErrNotFound)
	}

	return &CredentialService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[trackermodels.TrackedCredential](collection),
	}, nil
}

// FindByOwner trả về toàn bộ credential của một user.
func (s *CredentialService) FindByOwner(ctx context.Context, ownerID string) ([]trackermodels.TrackedCredential, error) {
	return s.Find(ctx, bson.M{"ownerId": ownerID}, nil)
}

// FindEligible trả về các credential đến hạn kiểm tra tại thời điểm now:
// đang active và không còn trong cửa sổ backoff. Credential bị remote từ chối
// xác thực vẫn được quét đều đặn, chỉ chậm dần theo bảng backoff.
func (s *CredentialService) FindEligible(ctx context.Context, now time.Time) ([]trackermodels.TrackedCredential, error) {
	filter := bson.M{
		"isActive": true,
		"$or": []bson.M{
			{"nextRetryAt": bson.M{"$exists": false}},
			{"nextRetryAt": nil},
			{"nextRetryAt": bson.M{"$lte": now.UnixMilli()}},
		},
	}
	return s.Find(ctx, filter, nil)
}

// UpdateCheckSuccess ghi nhận một lần kiểm tra thành công: reset trạng thái
// retry và cập nhật kết quả gần nhất.
func (s *CredentialService) UpdateCheckSuccess(ctx context.Context, id primitive.ObjectID, status string, lastTimestamp int64, checkedAt time.Time) error {
	update := &basesvc.UpdateData{
		Set: bson.M{
			"lastChecked":   checkedAt.UnixMilli(),
			"lastStatus":    status,
			"lastTimestamp": lastTimestamp,
			"failureCount":  0,
		},
		Unset: bson.M{
			"nextRetryAt": "",
		},
	}
	_, err := s.UpdateById(ctx, id, update)
	return err
}

// UpdateCheckFailure ghi nhận một lần kiểm tra thất bại và đặt lịch retry.
func (s *CredentialService) UpdateCheckFailure(ctx context.Context, id primitive.ObjectID, failureCount int, nextRetryAt time.Time, checkedAt time.Time) error {
	update := &basesvc.UpdateData{
		Set: bson.M{
			"lastChecked":  checkedAt.UnixMilli(),
			"failureCount": failureCount,
			"nextRetryAt":  nextRetryAt.UnixMilli(),
		},
	}
	_, err := s.UpdateById(ctx, id, update)
	return err
}

// MarkCredentialInvalid gắn cờ credential bị remote từ chối xác thực để hiển
// thị cho user. Cờ được xóa khi user cập nhật mật khẩu; credential vẫn được
// sweep như bình thường.
func (s *CredentialService) MarkCredentialInvalid(ctx context.Context, id primitive.ObjectID) error {
	update := &basesvc.UpdateData{
		Set: bson.M{
			"credentialInvalid": true,
		},
	}
	_, err := s.UpdateById(ctx, id, update)
	return err
}

// Deactivate tắt theo dõi một credential thay vì xóa hẳn.
func (s *CredentialService) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	update := &basesvc.UpdateData{
		Set: bson.M{
			"isActive": false,
		},
	}
	_, err := s.UpdateById(ctx, id, update)
	return err
}
