package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/goagain/ircc-tracker/internal/common"
)

// tokenKey định danh một cặp (user, tài khoản IRCC) trong cache.
type tokenKey struct {
	userID   string
	username string
}

type tokenEntry struct {
	token     string
	expiresAt time.Time
}

// TokenCache giữ IdToken của Cognito theo từng tài khoản IRCC với TTL
// ngắn hơn hạn token thật, tránh phải đăng nhập lại mỗi lần kiểm tra.
type TokenCache struct {
	clientID   string
	cognitoURL string
	ttl        time.Duration
	httpClient *http.Client

	mu      sync.Mutex
	entries map[tokenKey]tokenEntry

	// cho phép test override thời gian
	now func() time.Time
}

// NewTokenCache tạo mới TokenCache cho một client id Cognito.
func NewTokenCache(clientID string, httpClient *http.Client, ttl time.Duration) *TokenCache {
	return &TokenCache{
		clientID:   clientID,
		cognitoURL: CognitoURL,
		ttl:        ttl,
		httpClient: httpClient,
		entries:    make(map[tokenKey]tokenEntry),
		now:        time.Now,
	}
}

// cognitoAuthRequest là payload InitiateAuth của Cognito.
type cognitoAuthRequest struct {
	AuthFlow       string            `json:"AuthFlow"`
	ClientId       string            `json:"ClientId"`
	AuthParameters map[string]string `json:"AuthParameters"`
	ClientMetadata map[string]string `json:"ClientMetadata"`
}

type cognitoAuthResponse struct {
	AuthenticationResult struct {
		IdToken string `json:"IdToken"`
	} `json:"AuthenticationResult"`
}

// GetToken trả về token từ cache, hoặc đăng nhập Cognito nếu cache miss.
func (tc *TokenCache) GetToken(ctx context.Context, creds Credentials) (string, error) {
	key := tokenKey{userID: creds.UserID, username: creds.Username}

	tc.mu.Lock()
	entry, ok := tc.entries[key]
	if ok && tc.now().Before(entry.expiresAt) {
		tc.mu.Unlock()
		return entry.token, nil
	}
	delete(tc.entries, key)
	tc.mu.Unlock()

	token, err := tc.authenticate(ctx, creds)
	if err != nil {
		return "", err
	}

	tc.mu.Lock()
	tc.entries[key] = tokenEntry{
		token:     token,
		expiresAt: tc.now().Add(tc.ttl),
	}
	tc.mu.Unlock()

	return token, nil
}

// Evict xóa token khỏi cache, buộc lần sau phải đăng nhập lại.
func (tc *TokenCache) Evict(userID, username string) {
	tc.mu.Lock()
	delete(tc.entries, tokenKey{userID: userID, username: username})
	tc.mu.Unlock()
}

// Verify xác thực trực tiếp với Cognito, bỏ qua token đang cache.
func (tc *TokenCache) Verify(ctx context.Context, creds Credentials) error {
	tc.Evict(creds.UserID, creds.Username)

	token, err := tc.authenticate(ctx, creds)
	if err != nil {
		return err
	}

	tc.mu.Lock()
	tc.entries[tokenKey{userID: creds.UserID, username: creds.Username}] = tokenEntry{
		token:     token,
		expiresAt: tc.now().Add(tc.ttl),
	}
	tc.mu.Unlock()

	return nil
}

// authenticate gọi Cognito InitiateAuth với flow USER_PASSWORD_AUTH.
func (tc *TokenCache) authenticate(ctx context.Context, creds Credentials) (string, error) {
	payload := cognitoAuthRequest{
		AuthFlow: "USER_PASSWORD_AUTH",
		ClientId: tc.clientID,
		AuthParameters: map[string]string{
			"USERNAME": creds.Username,
			"PASSWORD": creds.Password,
		},
		ClientMetadata: map[string]string{},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", common.ErrRemoteBadResponse
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tc.cognitoURL, bytes.NewReader(body))
	if err != nil {
		return "", common.ErrRemoteUnavailable
	}
	req.Header.Set("content-type", "application/x-amz-json-1.1")
	req.Header.Set("x-amz-target", "AWSCognitoIdentityProviderService.InitiateAuth")
	req.Header.Set("x-amz-user-agent", "aws-amplify/5.0.4 js")

	resp, err := tc.httpClient.Do(req)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"username": creds.Username,
			"error":    err.Error(),
		}).Warn("❌ [AGENT] Không gọi được Cognito")
		return "", common.ErrRemoteUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Cognito trả 400 NotAuthorizedException khi sai mật khẩu
		io.Copy(io.Discard, resp.Body)
		logrus.WithFields(logrus.Fields{
			"username":   creds.Username,
			"statusCode": resp.StatusCode,
		}).Warn("❌ [AGENT] Cognito từ chối đăng nhập")
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return "", common.ErrRemoteCredentials
		}
		return "", common.ErrRemoteUnavailable
	}

	var authResp cognitoAuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", common.ErrRemoteBadResponse
	}
	if authResp.AuthenticationResult.IdToken == "" {
		return "", common.ErrRemoteCredentials
	}

	return authResp.AuthenticationResult.IdToken, nil
}
