package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/goagain/ircc-tracker/internal/common"
)

// apiClient chứa phần dùng chung của 2 agent: token cache + gọi API tracker.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     *TokenCache
}

// apiHeaders dựng header giả lập trình duyệt mà frontend tracker của IRCC gửi.
func (c *apiClient) apiHeaders(req *http.Request, token string) {
	req.Header.Set("accept", "application/json")
	req.Header.Set("accept-language", "en-CA,en;q=0.9,zh-CN;q=0.8,zh;q=0.7,en-GB;q=0.6,en-US;q=0.5")
	req.Header.Set("authorization", "Bearer "+token)
	req.Header.Set("content-type", "application/json")
	req.Header.Set("origin", "https://tracker-suivi.apps.cic.gc.ca")
	req.Header.Set("referer", "https://tracker-suivi.apps.cic.gc.ca/")
	req.Header.Set("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/136.0.0.0 Safari/537.36")
}

// postAPI gọi API tracker với body {"method": ..., các tham số khác} và
// decode JSON trả về vào out.
func (c *apiClient) postAPI(ctx context.Context, creds Credentials, method string, params map[string]interface{}, out interface{}) error {
	token, err := c.tokens.GetToken(ctx, creds)
	if err != nil {
		return err
	}

	payload := map[string]interface{}{"method": method}
	for k, v := range params {
		payload[k] = v
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return common.ErrRemoteBadResponse
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return common.ErrRemoteUnavailable
	}
	c.apiHeaders(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"method": method,
			"error":  err.Error(),
		}).Warn("❌ [AGENT] Không gọi được API IRCC")
		return common.ErrRemoteUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		logrus.WithFields(logrus.Fields{
			"method":     method,
			"statusCode": resp.StatusCode,
		}).Warn("❌ [AGENT] API IRCC trả về lỗi")
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			// Token hết hạn giữa chừng, evict để lần sau đăng nhập lại
			c.tokens.Evict(creds.UserID, creds.Username)
			return common.ErrRemoteCredentials
		}
		return common.ErrRemoteUnavailable
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return common.ErrRemoteBadResponse
	}

	return nil
}

// verifyCredentials dùng chung cho cả 2 agent.
func (c *apiClient) verifyCredentials(ctx context.Context, creds Credentials) error {
	return c.tokens.Verify(ctx, creds)
}
