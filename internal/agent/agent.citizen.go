package agent

import (
	"context"
	"net/http"
	"time"

	trackermodels "github.com/goagain/ircc-tracker/internal/api/tracker/models"
)

// CitizenAgent gọi hệ thống tracker hồ sơ quốc tịch.
// API details trả thẳng về record phẳng nên gần như không cần chuyển đổi.
type CitizenAgent struct {
	*apiClient
}

// NewCitizenAgent tạo mới CitizenAgent
func NewCitizenAgent(baseURL, clientID string, httpClient *http.Client, tokenTTL time.Duration) *CitizenAgent {
	return &CitizenAgent{
		apiClient: &apiClient{
			baseURL:    baseURL,
			httpClient: httpClient,
			tokens:     NewTokenCache(clientID, httpClient, tokenTTL),
		},
	}
}

// VerifyCredentials xác thực với Cognito, bỏ qua cache.
func (a *CitizenAgent) VerifyCredentials(ctx context.Context, creds Credentials) error {
	return a.verifyCredentials(ctx, creds)
}

type citizenSummaryResponse struct {
	Apps []struct {
		AppNumber string `json:"appNumber"`
	} `json:"apps"`
}

// GetApplicationSummary trả về danh sách hồ sơ quốc tịch của user.
func (a *CitizenAgent) GetApplicationSummary(ctx context.Context, creds Credentials) ([]ApplicationSummary, error) {
	var resp citizenSummaryResponse
	err := a.postAPI(ctx, creds, "get-profile-summary", map[string]interface{}{"limit": "500"}, &resp)
	if err != nil {
		return nil, err
	}

	summaries := make([]ApplicationSummary, 0, len(resp.Apps))
	for _, app := range resp.Apps {
		summaries = append(summaries, ApplicationSummary{
			ApplicationType:   TypeCitizen,
			ApplicationNumber: app.AppNumber,
		})
	}
	return summaries, nil
}

// citizenDetailsResponse khớp với record phẳng mà API citizen trả về.
type citizenDetailsResponse struct {
	ApplicationNumber string `json:"applicationNumber"`
	UCI               string `json:"uci"`
	LastUpdatedTime   int64  `json:"lastUpdatedTime"`
	Status            string `json:"status"`
	Activities        []struct {
		Activity string `json:"activity"`
		Order    int    `json:"order"`
		Status   string `json:"status"`
	} `json:"activities"`
	History []struct {
		Time      int64  `json:"time"`
		IsNew     bool   `json:"isNew"`
		IsWaiting bool   `json:"isWaiting"`
		Type      string `json:"type"`
		Activity  string `json:"activity"`
		LoadTime  int64  `json:"loadTime"`
		Title     *struct {
			En string `json:"en"`
			Fr string `json:"fr"`
		} `json:"title"`
		Text *struct {
			En string `json:"en"`
			Fr string `json:"fr"`
		} `json:"text"`
	} `json:"history"`
	Actions []string `json:"actions"`
}

// GetApplicationDetails trả về snapshot trạng thái hiện tại của một hồ sơ quốc tịch.
func (a *CitizenAgent) GetApplicationDetails(ctx context.Context, creds Credentials, applicationNumber string) (*trackermodels.ApplicationStatusRecord, error) {
	var resp citizenDetailsResponse
	err := a.postAPI(ctx, creds, "get-application-details", map[string]interface{}{
		"applicationNumber": applicationNumber,
	}, &resp)
	if err != nil {
		return nil, err
	}

	record := &trackermodels.ApplicationStatusRecord{
		ApplicationNumber: resp.ApplicationNumber,
		UCI:               resp.UCI,
		LastUpdatedTime:   resp.LastUpdatedTime,
		Status:            resp.Status,
		Actions:           resp.Actions,
		FetchedAt:         time.Now().UnixMilli(),
	}

	for _, act := range resp.Activities {
		record.Activities = append(record.Activities, trackermodels.Activity{
			Activity: act.Activity,
			Order:    act.Order,
			Status:   act.Status,
		})
	}

	for _, h := range resp.History {
		entry := trackermodels.HistoryRecord{
			Time:      h.Time,
			IsNew:     h.IsNew,
			IsWaiting: h.IsWaiting,
			Type:      h.Type,
			Activity:  h.Activity,
			LoadTime:  h.LoadTime,
		}
		if h.Title != nil {
			entry.Title = &trackermodels.BilingualText{En: h.Title.En, Fr: h.Title.Fr}
		}
		if h.Text != nil {
			entry.Text = &trackermodels.BilingualText{En: h.Text.En, Fr: h.Text.Fr}
		}
		record.History = append(record.History, entry)
	}

	return record, nil
}
