// Package agent - Test cache token Cognito với server giả lập.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goagain/ircc-tracker/internal/common"
)

// newCognitoServer giả lập endpoint InitiateAuth: đếm số lần gọi và trả về
// token cố định, hoặc mã lỗi nếu status != 0.
func newCognitoServer(t *testing.T, status int, calls *int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++

		if r.Header.Get("x-amz-target") != "AWSCognitoIdentityProviderService.InitiateAuth" {
			t.Errorf("thiếu header x-amz-target, nhận được %q", r.Header.Get("x-amz-target"))
		}
		if r.Header.Get("content-type") != "application/x-amz-json-1.1" {
			t.Errorf("content-type sai: %q", r.Header.Get("content-type"))
		}

		var payload cognitoAuthRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("không decode được payload: %v", err)
		}
		if payload.AuthFlow != "USER_PASSWORD_AUTH" {
			t.Errorf("AuthFlow sai: %q", payload.AuthFlow)
		}
		if payload.AuthParameters["USERNAME"] == "" || payload.AuthParameters["PASSWORD"] == "" {
			t.Error("AuthParameters phải có USERNAME và PASSWORD")
		}

		if status != 0 {
			w.WriteHeader(status)
			w.Write([]byte(`{"__type":"NotAuthorizedException"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"AuthenticationResult": map[string]string{"IdToken": "id-token-abc"},
		})
	}))
}

func testCreds() Credentials {
	return Credentials{UserID: "owner-1", Username: "user@example.com", Password: "secret"}
}

func TestTokenCache_CacheHitSkipsCognito(t *testing.T) {
	calls := 0
	server := newCognitoServer(t, 0, &calls)
	defer server.Close()

	tc := NewTokenCache("client-id", server.Client(), 3000*time.Second)
	tc.cognitoURL = server.URL

	token1, err := tc.GetToken(context.Background(), testCreds())
	if err != nil {
		t.Fatalf("GetToken lần đầu trả về lỗi: %v", err)
	}
	token2, err := tc.GetToken(context.Background(), testCreds())
	if err != nil {
		t.Fatalf("GetToken lần hai trả về lỗi: %v", err)
	}

	if token1 != "id-token-abc" || token2 != "id-token-abc" {
		t.Errorf("token sai: %q, %q", token1, token2)
	}
	if calls != 1 {
		t.Errorf("cache hit phải bỏ qua Cognito, kỳ vọng 1 lần gọi, nhận được %d", calls)
	}
}

func TestTokenCache_ExpiredEntryReauthenticates(t *testing.T) {
	calls := 0
	server := newCognitoServer(t, 0, &calls)
	defer server.Close()

	tc := NewTokenCache("client-id", server.Client(), 3000*time.Second)
	tc.cognitoURL = server.URL

	current := time.UnixMilli(1700000000000)
	tc.now = func() time.Time { return current }

	if _, err := tc.GetToken(context.Background(), testCreds()); err != nil {
		t.Fatalf("GetToken trả về lỗi: %v", err)
	}

	current = current.Add(3001 * time.Second)
	if _, err := tc.GetToken(context.Background(), testCreds()); err != nil {
		t.Fatalf("GetToken sau khi hết hạn trả về lỗi: %v", err)
	}
	if calls != 2 {
		t.Errorf("token hết hạn phải đăng nhập lại, kỳ vọng 2 lần gọi, nhận được %d", calls)
	}
}

func TestTokenCache_EvictForcesReauth(t *testing.T) {
	calls := 0
	server := newCognitoServer(t, 0, &calls)
	defer server.Close()

	tc := NewTokenCache("client-id", server.Client(), 3000*time.Second)
	tc.cognitoURL = server.URL

	creds := testCreds()
	if _, err := tc.GetToken(context.Background(), creds); err != nil {
		t.Fatalf("GetToken trả về lỗi: %v", err)
	}
	tc.Evict(creds.UserID, creds.Username)
	if _, err := tc.GetToken(context.Background(), creds); err != nil {
		t.Fatalf("GetToken sau Evict trả về lỗi: %v", err)
	}
	if calls != 2 {
		t.Errorf("Evict phải buộc đăng nhập lại, kỳ vọng 2 lần gọi, nhận được %d", calls)
	}
}

func TestTokenCache_VerifyBypassesCache(t *testing.T) {
	calls := 0
	server := newCognitoServer(t, 0, &calls)
	defer server.Close()

	tc := NewTokenCache("client-id", server.Client(), 3000*time.Second)
	tc.cognitoURL = server.URL

	creds := testCreds()
	if _, err := tc.GetToken(context.Background(), creds); err != nil {
		t.Fatalf("GetToken trả về lỗi: %v", err)
	}
	if err := tc.Verify(context.Background(), creds); err != nil {
		t.Fatalf("Verify trả về lỗi: %v", err)
	}
	if calls != 2 {
		t.Errorf("Verify phải bỏ qua cache, kỳ vọng 2 lần gọi, nhận được %d", calls)
	}

	// Verify thành công phải nạp lại cache cho lần GetToken kế tiếp.
	if _, err := tc.GetToken(context.Background(), creds); err != nil {
		t.Fatalf("GetToken sau Verify trả về lỗi: %v", err)
	}
	if calls != 2 {
		t.Errorf("GetToken sau Verify phải dùng cache, nhận được %d lần gọi", calls)
	}
}

func TestTokenCache_RejectedCredentials(t *testing.T) {
	calls := 0
	server := newCognitoServer(t, http.StatusBadRequest, &calls)
	defer server.Close()

	tc := NewTokenCache("client-id", server.Client(), 3000*time.Second)
	tc.cognitoURL = server.URL

	_, err := tc.GetToken(context.Background(), testCreds())
	if !errors.Is(err, common.ErrRemoteCredentials) {
		t.Errorf("Cognito trả 400 phải thành ErrRemoteCredentials, nhận được %v", err)
	}
}

func TestTokenCache_ServerErrorIsUnavailable(t *testing.T) {
	calls := 0
	server := newCognitoServer(t, http.StatusInternalServerError, &calls)
	defer server.Close()

	tc := NewTokenCache("client-id", server.Client(), 3000*time.Second)
	tc.cognitoURL = server.URL

	_, err := tc.GetToken(context.Background(), testCreds())
	if !errors.Is(err, common.ErrRemoteUnavailable) {
		t.Errorf("Cognito trả 500 phải thành ErrRemoteUnavailable, nhận được %v", err)
	}
}

func TestTokenCache_EmptyTokenIsRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"AuthenticationResult": map[string]string{"IdToken": ""},
		})
	}))
	defer server.Close()

	tc := NewTokenCache("client-id", server.Client(), 3000*time.Second)
	tc.cognitoURL = server.URL

	_, err := tc.GetToken(context.Background(), testCreds())
	if !errors.Is(err, common.ErrRemoteCredentials) {
		t.Errorf("token rỗng phải thành ErrRemoteCredentials, nhận được %v", err)
	}
}
