// Package agent gọi API tracker của IRCC (Cognito auth + 2 hệ thống
// citizen/immigrant) và chuyển kết quả về model nội bộ.
package agent

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	trackermodels "github.com/goagain/ircc-tracker/internal/api/tracker/models"
	"github.com/goagain/ircc-tracker/internal/global"
)

// Các loại hồ sơ được hỗ trợ.
const (
	TypeCitizen   = "citizen"
	TypeImmigrant = "immigrant"
)

// CognitoURL là endpoint xác thực chung cho cả 2 hệ thống tracker.
const CognitoURL = "https://cognito-idp.ca-central-1.amazonaws.com/"

// Credentials là thông tin đăng nhập IRCC ở dạng plaintext, chỉ tồn tại
// trong bộ nhớ trong thời gian một lần gọi. Không bao giờ ghi ra log hay DB.
type Credentials struct {
	UserID   string // định danh chủ sở hữu, dùng làm key cache token
	Username string
	Password string
}

// ApplicationSummary - một hồ sơ trong danh sách hồ sơ của user.
type ApplicationSummary struct {
	ApplicationType   string `json:"applicationType"`
	ApplicationNumber string `json:"applicationNumber"`
}

// RemoteAgent là interface chung cho agent của từng loại hồ sơ.
type RemoteAgent interface {
	// VerifyCredentials xác thực với IRCC, bỏ qua cache token.
	// Trả về common.ErrRemoteCredentials khi sai mật khẩu.
	VerifyCredentials(ctx context.Context, creds Credentials) error

	// GetApplicationSummary trả về danh sách hồ sơ của user.
	GetApplicationSummary(ctx context.Context, creds Credentials) ([]ApplicationSummary, error)

	// GetApplicationDetails trả về snapshot trạng thái hiện tại của một hồ sơ.
	GetApplicationDetails(ctx context.Context, creds Credentials, applicationNumber string) (*trackermodels.ApplicationStatusRecord, error)
}

// Factory cấp agent singleton theo loại hồ sơ, giống cách mỗi loại hồ sơ
// dùng chung một token cache.
type Factory struct {
	mu        sync.Mutex
	instances map[string]RemoteAgent
}

// NewFactory tạo mới Factory
func NewFactory() *Factory {
	return &Factory{
		instances: make(map[string]RemoteAgent),
	}
}

// GetAgent trả về agent cho loại hồ sơ tương ứng.
func (f *Factory) GetAgent(applicationType string) (RemoteAgent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if agent, ok := f.instances[applicationType]; ok {
		return agent, nil
	}

	cfg := global.ServerConfig
	httpClient := &http.Client{
		Timeout: time.Duration(cfg.RemoteTimeoutSec) * time.Second,
	}
	tokenTTL := time.Duration(cfg.TokenTTLSeconds) * time.Second

	var agent RemoteAgent
	switch applicationType {
	case TypeCitizen:
		agent = NewCitizenAgent(cfg.CitizenBaseURL, cfg.CitizenClientID, httpClient, tokenTTL)
	case TypeImmigrant:
		agent = NewImmigrantAgent(cfg.ImmigrantBaseURL, cfg.ImmigrantClientID, httpClient, tokenTTL)
	default:
		return nil, fmt.Errorf("loại hồ sơ không hợp lệ: %s", applicationType)
	}

	f.instances[applicationType] = agent
	return agent, nil
}
