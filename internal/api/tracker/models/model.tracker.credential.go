// Package models - các model thuộc domain Tracker.
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrackedCredential - Thông tin đăng nhập IRCC được theo dõi của một user.
// Mật khẩu chỉ được lưu dưới dạng đã mã hóa (AES-GCM), không bao giờ trả về qua JSON.
type TrackedCredential struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	OwnerID        string             `json:"ownerId" bson:"ownerId" index:"single:1;compound:ownerId_remoteUsername_unique"`
	RemoteUsername string             `json:"remoteUsername" bson:"remoteUsername" index:"compound:ownerId_remoteUsername_unique"`

	// Bí mật - không expose qua API
	Salt              string `json:"-" bson:"salt"`
	EncryptedPassword string `json:"-" bson:"encryptedPassword"`

	NotifyEmail       string `json:"notifyEmail" bson:"notifyEmail"`
	ApplicationType   string `json:"applicationType" bson:"applicationType"` // citizen, immigrant
	ApplicationNumber string `json:"applicationNumber,omitempty" bson:"applicationNumber,omitempty" index:"single:1"`
	UCI               string `json:"uci,omitempty" bson:"uci,omitempty"`

	IsActive          bool `json:"isActive" bson:"isActive" index:"single:1"`
	CredentialInvalid bool `json:"credentialInvalid" bson:"credentialInvalid"` // Remote từ chối xác thực, chờ user cập nhật mật khẩu

	// Kết quả lần kiểm tra gần nhất
	LastChecked   *int64 `json:"lastChecked,omitempty" bson:"lastChecked,omitempty"`
	LastStatus    string `json:"lastStatus,omitempty" bson:"lastStatus,omitempty"`
	LastTimestamp int64  `json:"lastTimestamp" bson:"lastTimestamp"`

	// Trạng thái retry khi kiểm tra thất bại
	FailureCount int    `json:"failureCount" bson:"failureCount"`
	NextRetryAt  *int64 `json:"nextRetryAt,omitempty" bson:"nextRetryAt,omitempty" index:"single:1"`

	CreatedAt int64 `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}
