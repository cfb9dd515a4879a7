// Package trackerdto chứa DTO cho domain Tracker (credential, check).
package trackerdto

// CredentialCreateInput - request đăng ký một credential IRCC mới.
// Mật khẩu chỉ tồn tại trong request, được verify với IRCC rồi mã hóa ngay,
// không bao giờ lưu hoặc log ở dạng plaintext.
type CredentialCreateInput struct {
	RemoteUsername  string `json:"remoteUsername" validate:"required"`
	RemotePassword  string `json:"remotePassword" validate:"required,min=1"`
	NotifyEmail     string `json:"notifyEmail,omitempty" validate:"omitempty,email"`
	ApplicationType string `json:"applicationType" validate:"required,oneof=citizen immigrant"`
	UCI             string `json:"uci,omitempty" validate:"omitempty,uci"`
}

// CredentialUpdateInput - request cập nhật credential.
// Đổi mật khẩu sẽ được verify lại với IRCC trước khi mã hóa.
type CredentialUpdateInput struct {
	RemotePassword string `json:"remotePassword,omitempty" validate:"omitempty,min=1"`
	NotifyEmail    string `json:"notifyEmail,omitempty" validate:"omitempty,email"`
	IsActive       *bool  `json:"isActive,omitempty"`
}

// CredentialResponse - credential trả về cho user, không chứa bí mật.
type CredentialResponse struct {
	ID                string `json:"id"`
	RemoteUsername    string `json:"remoteUsername"`
	NotifyEmail       string `json:"notifyEmail"`
	ApplicationType   string `json:"applicationType"`
	ApplicationNumber string `json:"applicationNumber,omitempty"`
	UCI               string `json:"uci,omitempty"`
	IsActive          bool   `json:"isActive"`
	CredentialInvalid bool   `json:"credentialInvalid"`
	LastChecked       *int64 `json:"lastChecked,omitempty"`
	LastStatus        string `json:"lastStatus,omitempty"`
	LastTimestamp     int64  `json:"lastTimestamp"`
	FailureCount      int    `json:"failureCount"`
	NextRetryAt       *int64 `json:"nextRetryAt,omitempty"`
	CreatedAt         int64  `json:"createdAt"`
	UpdatedAt         int64  `json:"updatedAt"`
}

// CheckEnqueueResponse - response khi user yêu cầu kiểm tra ngay.
type CheckEnqueueResponse struct {
	JobID    string `json:"jobId"`
	Status   string `json:"status"` // pending
	QueuedAt int64  `json:"queuedAt"`
}
