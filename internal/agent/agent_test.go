// Package agent - Test parse response của 2 hệ thống tracker với server giả lập.
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

// seedToken nạp sẵn token vào cache để test không phải giả lập Cognito.
func seedToken(tokens *TokenCache, creds Credentials) {
	tokens.mu.Lock()
	tokens.entries[tokenKey{userID: creds.UserID, username: creds.Username}] = tokenEntry{
		token:     "seeded-token",
		expiresAt: time.Now().Add(time.Hour),
	}
	tokens.mu.Unlock()
}

func TestCitizenAgent_GetApplicationSummary(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("authorization") != "Bearer seeded-token" {
			t.Errorf("thiếu bearer token, nhận được %q", r.Header.Get("authorization"))
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"apps":[{"appNumber":"C000012345"},{"appNumber":"C000067890"}]}`))
	}))
	defer server.Close()

	a := NewCitizenAgent(server.URL, "client-id", server.Client(), time.Hour)
	creds := testCreds()
	seedToken(a.tokens, creds)

	summaries, err := a.GetApplicationSummary(context.Background(), creds)
	if err != nil {
		t.Fatalf("GetApplicationSummary trả về lỗi: %v", err)
	}
	if gotBody["method"] != "get-profile-summary" || gotBody["limit"] != "500" {
		t.Errorf("body request sai: %v", gotBody)
	}
	if len(summaries) != 2 {
		t.Fatalf("kỳ vọng 2 hồ sơ, nhận được %d", len(summaries))
	}
	if summaries[0].ApplicationNumber != "C000012345" || summaries[0].ApplicationType != TypeCitizen {
		t.Errorf("summary đầu tiên sai: %+v", summaries[0])
	}
}

func TestCitizenAgent_GetApplicationDetails(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{
			"applicationNumber": "C000012345",
			"uci": "1122334455",
			"lastUpdatedTime": 1700000000000,
			"status": "InProcess",
			"activities": [
				{"activity": "backgroundVerification", "order": 2, "status": "inProgress"},
				{"activity": "languageSkills", "order": 1, "status": "completed"}
			],
			"history": [
				{
					"time": 1699000000000,
					"isNew": true,
					"isWaiting": false,
					"type": "fileRequirement",
					"activity": "backgroundVerification",
					"loadTime": 1699000001000,
					"title": {"en": "We received your application", "fr": "Nous avons reçu votre demande"},
					"text": {"en": "Details here", "fr": "Détails ici"}
				}
			],
			"actions": ["confirmPresence"]
		}`))
	}))
	defer server.Close()

	a := NewCitizenAgent(server.URL, "client-id", server.Client(), time.Hour)
	creds := testCreds()
	seedToken(a.tokens, creds)

	record, err := a.GetApplicationDetails(context.Background(), creds, "C000012345")
	if err != nil {
		t.Fatalf("GetApplicationDetails trả về lỗi: %v", err)
	}
	if gotBody["method"] != "get-application-details" || gotBody["applicationNumber"] != "C000012345" {
		t.Errorf("body request sai: %v", gotBody)
	}
	if record.ApplicationNumber != "C000012345" || record.UCI != "1122334455" {
		t.Errorf("định danh hồ sơ sai: %+v", record)
	}
	if record.Status != "InProcess" || record.LastUpdatedTime != 1700000000000 {
		t.Errorf("status/lastUpdatedTime sai: %+v", record)
	}
	if len(record.Activities) != 2 || record.Activities[0].Activity != "backgroundVerification" || record.Activities[0].Order != 2 {
		t.Errorf("activities sai: %+v", record.Activities)
	}
	if len(record.History) != 1 {
		t.Fatalf("kỳ vọng 1 entry lịch sử, nhận được %d", len(record.History))
	}
	h := record.History[0]
	if h.Title == nil || h.Title.En != "We received your application" {
		t.Errorf("title lịch sử sai: %+v", h.Title)
	}
	if h.Text == nil || h.Text.Fr != "Détails ici" {
		t.Errorf("text lịch sử sai: %+v", h.Text)
	}
	if len(record.Actions) != 1 || record.Actions[0] != "confirmPresence" {
		t.Errorf("actions sai: %v", record.Actions)
	}
	if record.FetchedAt == 0 {
		t.Error("FetchedAt phải được gán")
	}
}

func TestImmigrantAgent_GetApplicationDetails(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{
			"app": {"lastUpdated": "2023-11-14T22:13:20Z", "status": "InProcess"},
			"relations": [
				{
					"activities": {"eligibility": "inProgress", "biometrics": "completed"},
					"history": [
						{"dateCreated": "2023-11-10T00:00:00Z", "dateLoaded": "2023-11-11T00:00:00Z", "key": "28"},
						{"dateCreated": "2023-11-12T00:00:00Z", "dateLoaded": "2023-11-13T00:00:00Z", "key": "unknown-code"}
					],
					"actions": ["addressUpdate"]
				}
			]
		}`))
	}))
	defer server.Close()

	a := NewImmigrantAgent(server.URL, "client-id", server.Client(), time.Hour)
	creds := testCreds()
	seedToken(a.tokens, creds)

	record, err := a.GetApplicationDetails(context.Background(), creds, "E000012345")
	if err != nil {
		t.Fatalf("GetApplicationDetails trả về lỗi: %v", err)
	}
	if gotBody["uci"] != creds.Username {
		t.Errorf("request phải gửi kèm uci = username IRCC, nhận được %v", gotBody["uci"])
	}
	if gotBody["isAgent"] != false {
		t.Errorf("request phải có isAgent=false, nhận được %v", gotBody["isAgent"])
	}
	if record.UCI != creds.Username {
		t.Errorf("UCI của record phải là username, nhận được %q", record.UCI)
	}
	if record.LastUpdatedTime != 1700000000000 {
		t.Errorf("lastUpdated ISO phải thành millis 1700000000000, nhận được %d", record.LastUpdatedTime)
	}

	// Activities là map nên phải được sắp theo tên cho ổn định.
	if len(record.Activities) != 2 {
		t.Fatalf("kỳ vọng 2 activity, nhận được %d", len(record.Activities))
	}
	if record.Activities[0].Activity != "biometrics" || record.Activities[1].Activity != "eligibility" {
		t.Errorf("activities phải được sắp theo tên: %+v", record.Activities)
	}

	if len(record.History) != 2 {
		t.Fatalf("kỳ vọng 2 entry lịch sử, nhận được %d", len(record.History))
	}
	if record.History[0].Activity != "28 BIRTH_CERT" {
		t.Errorf("mã có trong bảng phải được dịch, nhận được %q", record.History[0].Activity)
	}
	if record.History[1].Activity != "unknown-code " {
		t.Errorf("mã không có trong bảng giữ nguyên kèm tên rỗng, nhận được %q", record.History[1].Activity)
	}
	if record.History[0].Type != "Activity" {
		t.Errorf("type lịch sử phải là Activity, nhận được %q", record.History[0].Type)
	}
}

func TestImmigrantAgent_MissingRelationsIsBadResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"app": {"lastUpdated": "2023-11-14T22:13:20Z", "status": "InProcess"}, "relations": []}`))
	}))
	defer server.Close()

	a := NewImmigrantAgent(server.URL, "client-id", server.Client(), time.Hour)
	creds := testCreds()
	seedToken(a.tokens, creds)

	_, err := a.GetApplicationDetails(context.Background(), creds, "E000012345")
	if !errors.Is(err, common.ErrRemoteBadResponse) {
		t.Errorf("thiếu relations phải thành ErrRemoteBadResponse, nhận được %v", err)
	}
}

func TestPostAPI_UnauthorizedEvictsToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	a := NewCitizenAgent(server.URL, "client-id", server.Client(), time.Hour)
	creds := testCreds()
	seedToken(a.tokens, creds)

	_, err := a.GetApplicationSummary(context.Background(), creds)
	if !errors.Is(err, common.ErrRemoteCredentials) {
		t.Fatalf("401 phải thành ErrRemoteCredentials, nhận được %v", err)
	}

	a.tokens.mu.Lock()
	_, stillCached := a.tokens.entries[tokenKey{userID: creds.UserID, username: creds.Username}]
	a.tokens.mu.Unlock()
	if stillCached {
		t.Error("401 phải evict token khỏi cache")
	}
}

func TestParseISOMillis(t *testing.T) {
	cases := []struct {
		input string
		want  int64
		ok    bool
	}{
		{"2023-11-14T22:13:20Z", 1700000000000, true},
		{"2023-11-14T22:13:20.500Z", 1700000000500, true},
		{"2023-11-14T22:13:20", 1700000000000, true},
		{"2023-11-14", 1699920000000, true},
		{"not-a-date", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := parseISOMillis(tc.input)
		if tc.ok && err != nil {
			t.Errorf("parseISOMillis(%q) trả về lỗi: %v", tc.input, err)
			continue
		}
		if !tc.ok {
			if err == nil {
				t.Errorf("parseISOMillis(%q) phải trả về lỗi", tc.input)
			}
			continue
		}
		if got != tc.want {
			t.Errorf("parseISOMillis(%q): kỳ vọng %d, nhận được %d", tc.input, tc.want, got)
		}
	}
}
