package agent

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	trackermodels "github.com/goagain/ircc-tracker/internal/api/tracker/models"
	"github.com/goagain/ircc-tracker/internal/common"
)

// historyCodeNames dịch mã sự kiện nội bộ của hệ thống immigrant sang tên
// dễ đọc. Mã không có trong bảng vẫn được giữ nguyên, chỉ thiếu phần tên.
var historyCodeNames = map[string]string{
	"28":              "BIRTH_CERT",
	"29":              "DIVORCE_CERT",
	"31":              "CUSTODY",
	"41":              "PASSPORT",
	"42":              "PASSPORT_PHOTO",
	"54":              "MED_PROOF",
	"57":              "POLICE_CERT",
	"61":              "FAMILY_INFO",
	"63":              "USE_OF_REP",
	"65":              "GEN_APPL_FORM",
	"96":              "WITHDRAWAL",
	"437":             "ADD_FEES",
	"602":             "SPR_INFO",
	"609":             "SPR_UNDERTAKING",
	"651":             "RELATIONSHIP",
	"664":             "PAYMENT",
	"667":             "MARRIAGE_CERT",
	"723":             "ADD_FAMILY_INFO",
	"871":             "POLICE_CERT",
	"873":             "PASSPORT",
	"1021":            "ENQUIRY",
	"Word LTR 01":     "AOR",
	"Auto E-mail 01":  "AOR",
	"Auto E-mail 111": "BIOMETRICS",
	"IMM5756":         "BIOMETRIC_FEES",
	"Word LTR 20":     "COPR_ISSUED",
	"Word LTR 29":     "ELIG_DEC",
	"Word LTR 11":     "ELIG_DEC",
	"IMM1017":         "MED_REPORT",
	"IMM5706":         "MED_ADD",
	"IMM0535":         "MED_RESULT",
	"Auto E-mail 108": "PREARRIVAL",
	"IMM5801":         "PREARRIVAL",
	"Word LTR 28":     "PR_AUTH",
	"Word LTR 24":     "REFUND_FEES",
	"Word LTR 21":     "SPR_DEC",
	"Word LTR 22":     "SPR_DEC",
	"Word LTR 19":     "TRANSFERRED",
	"Word LTR 12":     "WITHDRAWN",
	"INITIAL":         "INITIAL",
}

// ImmigrantAgent gọi hệ thống tracker hồ sơ di trú. Response của hệ thống
// này có cấu trúc khác hẳn citizen (relations, history theo mã sự kiện,
// thời gian ISO) nên phải chuyển đổi về record chuẩn.
type ImmigrantAgent struct {
	*apiClient
}

// NewImmigrantAgent tạo mới ImmigrantAgent
func NewImmigrantAgent(baseURL, clientID string, httpClient *http.Client, tokenTTL time.Duration) *ImmigrantAgent {
	return &ImmigrantAgent{
		apiClient: &apiClient{
			baseURL:    baseURL,
			httpClient: httpClient,
			tokens:     NewTokenCache(clientID, httpClient, tokenTTL),
		},
	}
}

// VerifyCredentials xác thực với Cognito, bỏ qua cache.
func (a *ImmigrantAgent) VerifyCredentials(ctx context.Context, creds Credentials) error {
	return a.verifyCredentials(ctx, creds)
}

type immigrantSummaryResponse struct {
	Apps []struct {
		AppNum string `json:"appNum"`
	} `json:"apps"`
}

// GetApplicationSummary trả về danh sách hồ sơ di trú của user.
func (a *ImmigrantAgent) GetApplicationSummary(ctx context.Context, creds Credentials) ([]ApplicationSummary, error) {
	var resp immigrantSummaryResponse
	err := a.postAPI(ctx, creds, "get-profile-summary", map[string]interface{}{"limit": "500"}, &resp)
	if err != nil {
		return nil, err
	}

	summaries := make([]ApplicationSummary, 0, len(resp.Apps))
	for _, app := range resp.Apps {
		summaries = append(summaries, ApplicationSummary{
			ApplicationType:   TypeImmigrant,
			ApplicationNumber: app.AppNum,
		})
	}
	return summaries, nil
}

type immigrantDetailsResponse struct {
	App struct {
		LastUpdated string `json:"lastUpdated"`
		Status      string `json:"status"`
	} `json:"app"`
	Relations []struct {
		Activities map[string]string `json:"activities"`
		History    []struct {
			DateCreated string `json:"dateCreated"`
			DateLoaded  string `json:"dateLoaded"`
			Key         string `json:"key"`
		} `json:"history"`
		Actions []string `json:"actions"`
	} `json:"relations"`
}

// GetApplicationDetails lấy chi tiết hồ sơ di trú và chuẩn hóa về record chung.
// Username IRCC của hệ thống này chính là số UCI và được gửi kèm request.
func (a *ImmigrantAgent) GetApplicationDetails(ctx context.Context, creds Credentials, applicationNumber string) (*trackermodels.ApplicationStatusRecord, error) {
	var resp immigrantDetailsResponse
	err := a.postAPI(ctx, creds, "get-application-details", map[string]interface{}{
		"applicationNumber": applicationNumber,
		"uci":               creds.Username,
		"isAgent":           false,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.Relations) == 0 {
		logrus.WithFields(logrus.Fields{
			"applicationNumber": applicationNumber,
		}).Warn("❌ [AGENT] Response di trú không có relations")
		return nil, common.ErrRemoteBadResponse
	}
	relation := resp.Relations[0]

	lastUpdated, err := parseISOMillis(resp.App.LastUpdated)
	if err != nil {
		return nil, common.ErrRemoteBadResponse
	}

	record := &trackermodels.ApplicationStatusRecord{
		ApplicationNumber: applicationNumber,
		UCI:               creds.Username,
		LastUpdatedTime:   lastUpdated,
		Status:            resp.App.Status,
		Actions:           relation.Actions,
		FetchedAt:         time.Now().UnixMilli(),
	}

	for name, status := range relation.Activities {
		record.Activities = append(record.Activities, trackermodels.Activity{
			Activity: name,
			Order:    0,
			Status:   status,
		})
	}
	sortActivities(record.Activities)

	for _, h := range relation.History {
		created, err := parseISOMillis(h.DateCreated)
		if err != nil {
			return nil, common.ErrRemoteBadResponse
		}
		loaded, err := parseISOMillis(h.DateLoaded)
		if err != nil {
			return nil, common.ErrRemoteBadResponse
		}
		record.History = append(record.History, trackermodels.HistoryRecord{
			Time:     created,
			Type:     "Activity",
			Activity: h.Key + " " + historyCodeNames[h.Key],
			LoadTime: loaded,
		})
	}

	return record, nil
}
