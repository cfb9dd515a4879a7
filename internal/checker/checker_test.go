// Package checker - Test pipeline kiểm tra với các store/notifier giả lập.
package checker

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/goagain/ircc-tracker/internal/agent"
	trackermodels "github.com/goagain/ircc-tracker/internal/api/tracker/models"
	"github.com/goagain/ircc-tracker/internal/common"
)

type fakeSubjectStore struct {
	eligible []trackermodels.TrackedCredential

	successCalls int
	lastStatus   string
	lastTime     int64

	failureCalls     int
	lastFailureCount int
	lastNextRetryAt  time.Time

	invalidCalls int
}

func (f *fakeSubjectStore) FindEligible(ctx context.Context, now time.Time) ([]trackermodels.TrackedCredential, error) {
	return f.eligible, nil
}

func (f *fakeSubjectStore) UpdateCheckSuccess(ctx context.Context, id primitive.ObjectID, status string, lastTimestamp int64, checkedAt time.Time) error {
	f.successCalls++
	f.lastStatus = status
	f.lastTime = lastTimestamp
	return nil
}

func (f *fakeSubjectStore) UpdateCheckFailure(ctx context.Context, id primitive.ObjectID, failureCount int, nextRetryAt time.Time, checkedAt time.Time) error {
	f.failureCalls++
	f.lastFailureCount = failureCount
	f.lastNextRetryAt = nextRetryAt
	return nil
}

func (f *fakeSubjectStore) MarkCredentialInvalid(ctx context.Context, id primitive.ObjectID) error {
	f.invalidCalls++
	return nil
}

type fakeRecordStore struct {
	latest *trackermodels.ApplicationStatusRecord
	saved  []trackermodels.ApplicationStatusRecord
}

func (f *fakeRecordStore) FindLatest(ctx context.Context, applicationNumber string) (*trackermodels.ApplicationStatusRecord, error) {
	return f.latest, nil
}

func (f *fakeRecordStore) SaveVersion(ctx context.Context, record trackermodels.ApplicationStatusRecord) (trackermodels.ApplicationStatusRecord, error) {
	f.saved = append(f.saved, record)
	return record, nil
}

type fakeNotifier struct {
	calls   int
	to      string
	changes string
	err     error
}

func (f *fakeNotifier) SendStatusUpdate(ctx context.Context, to, username, applicationNumber, changes string, updatedAt time.Time) error {
	f.calls++
	f.to = to
	f.changes = changes
	return f.err
}

type fakeAgent struct {
	record *trackermodels.ApplicationStatusRecord
	err    error
}

func (f *fakeAgent) VerifyCredentials(ctx context.Context, creds agent.Credentials) error {
	return f.err
}

func (f *fakeAgent) GetApplicationSummary(ctx context.Context, creds agent.Credentials) ([]agent.ApplicationSummary, error) {
	return nil, f.err
}

func (f *fakeAgent) GetApplicationDetails(ctx context.Context, creds agent.Credentials, applicationNumber string) (*trackermodels.ApplicationStatusRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

type fakeAgentProvider struct {
	agent agent.RemoteAgent
}

func (f *fakeAgentProvider) GetAgent(applicationType string) (agent.RemoteAgent, error) {
	return f.agent, nil
}

type fakeCipher struct{}

func (fakeCipher) DecryptPassword(encryptedBase64 string, salt string) (string, error) {
	return "plaintext-password", nil
}

func newTestCredential() trackermodels.TrackedCredential {
	return trackermodels.TrackedCredential{
		ID:                primitive.NewObjectID(),
		OwnerID:           "owner-1",
		RemoteUsername:    "user@example.com",
		NotifyEmail:       "notify@example.com",
		ApplicationType:   agent.TypeCitizen,
		ApplicationNumber: "C000012345",
	}
}

func newTestChecker(subjects *fakeSubjectStore, records *fakeRecordStore, notifier *fakeNotifier, remote agent.RemoteAgent) *Checker {
	c := NewChecker(subjects, records, notifier, &fakeAgentProvider{agent: remote}, fakeCipher{})
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return c
}

func TestCheckOne_SuccessSavesVersionAndResetsRetry(t *testing.T) {
	subjects := &fakeSubjectStore{}
	records := &fakeRecordStore{
		latest: &trackermodels.ApplicationStatusRecord{Status: "InProcess", LastUpdatedTime: 1},
	}
	notifier := &fakeNotifier{}
	remote := &fakeAgent{
		record: &trackermodels.ApplicationStatusRecord{
			ApplicationNumber: "C000012345",
			Status:            "DecisionMade",
			LastUpdatedTime:   2,
		},
	}

	c := newTestChecker(subjects, records, notifier, remote)
	changes, err := c.CheckOne(context.Background(), newTestCredential())
	if err != nil {
		t.Fatalf("CheckOne trả về lỗi: %v", err)
	}
	if len(changes) != 2 {
		t.Errorf("kỳ vọng 2 thay đổi (status + timestamp), nhận được %v", changes)
	}
	if len(records.saved) != 1 {
		t.Fatalf("snapshot mới phải được lưu đúng 1 lần, nhận được %d", len(records.saved))
	}
	if subjects.successCalls != 1 || subjects.lastStatus != "DecisionMade" || subjects.lastTime != 2 {
		t.Errorf("UpdateCheckSuccess phải reset retry với status/timestamp mới, nhận được %+v", subjects)
	}
	if subjects.failureCalls != 0 {
		t.Error("lần kiểm tra thành công không được cập nhật failure")
	}
	if notifier.calls != 1 || notifier.to != "notify@example.com" {
		t.Errorf("phải gửi 1 email đến notifyEmail, nhận được calls=%d to=%q", notifier.calls, notifier.to)
	}
}

func TestCheckOne_NoChangesNoEmail(t *testing.T) {
	same := trackermodels.ApplicationStatusRecord{
		ApplicationNumber: "C000012345",
		Status:            "InProcess",
		LastUpdatedTime:   1,
	}
	subjects := &fakeSubjectStore{}
	records := &fakeRecordStore{latest: &same}
	notifier := &fakeNotifier{}
	cur := same
	remote := &fakeAgent{record: &cur}

	c := newTestChecker(subjects, records, notifier, remote)
	changes, err := c.CheckOne(context.Background(), newTestCredential())
	if err != nil {
		t.Fatalf("CheckOne trả về lỗi: %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("không có thay đổi nhưng nhận được %v", changes)
	}
	if notifier.calls != 0 {
		t.Error("không có thay đổi thì không được gửi email")
	}
	if len(records.saved) != 1 {
		t.Errorf("snapshot vẫn phải được lưu (upsert), nhận được %d lần", len(records.saved))
	}
	if subjects.successCalls != 1 {
		t.Error("lần kiểm tra thành công phải cập nhật lastChecked")
	}
}

func TestCheckOne_EmailFailureDoesNotFailCheck(t *testing.T) {
	subjects := &fakeSubjectStore{}
	records := &fakeRecordStore{
		latest: &trackermodels.ApplicationStatusRecord{Status: "InProcess", LastUpdatedTime: 1},
	}
	notifier := &fakeNotifier{err: errors.New("smtp down")}
	remote := &fakeAgent{
		record: &trackermodels.ApplicationStatusRecord{Status: "DecisionMade", LastUpdatedTime: 2},
	}

	c := newTestChecker(subjects, records, notifier, remote)
	if _, err := c.CheckOne(context.Background(), newTestCredential()); err != nil {
		t.Fatalf("lỗi gửi email không được làm hỏng lần kiểm tra: %v", err)
	}
	if subjects.successCalls != 1 {
		t.Error("lần kiểm tra vẫn phải được ghi nhận thành công")
	}
}

func TestCheckOne_RemoteFailureSchedulesRetry(t *testing.T) {
	subjects := &fakeSubjectStore{}
	records := &fakeRecordStore{}
	notifier := &fakeNotifier{}
	remote := &fakeAgent{err: common.ErrRemoteUnavailable}

	c := newTestChecker(subjects, records, notifier, remote)
	credential := newTestCredential()
	credential.FailureCount = 1

	if _, err := c.CheckOne(context.Background(), credential); err == nil {
		t.Fatal("kỳ vọng lỗi khi IRCC không phản hồi")
	}
	if subjects.failureCalls != 1 {
		t.Fatalf("UpdateCheckFailure phải được gọi 1 lần, nhận được %d", subjects.failureCalls)
	}
	if subjects.lastFailureCount != 2 {
		t.Errorf("failureCount phải tăng lên 2, nhận được %d", subjects.lastFailureCount)
	}
	wantRetryAt := time.UnixMilli(1700000000000).Add(30 * time.Minute)
	if !subjects.lastNextRetryAt.Equal(wantRetryAt) {
		t.Errorf("nextRetryAt phải theo bảng backoff: kỳ vọng %v, nhận được %v", wantRetryAt, subjects.lastNextRetryAt)
	}
	if subjects.invalidCalls != 0 {
		t.Error("lỗi mạng không được đánh dấu credential invalid")
	}
}

func TestCheckOne_CredentialsRejectedStillSchedulesRetry(t *testing.T) {
	subjects := &fakeSubjectStore{}
	records := &fakeRecordStore{}
	notifier := &fakeNotifier{}
	remote := &fakeAgent{err: common.ErrRemoteCredentials}

	c := newTestChecker(subjects, records, notifier, remote)
	if _, err := c.CheckOne(context.Background(), newTestCredential()); err == nil {
		t.Fatal("kỳ vọng lỗi khi IRCC từ chối đăng nhập")
	}
	if subjects.invalidCalls != 1 {
		t.Errorf("credential phải được gắn cờ invalid, nhận được %d lần", subjects.invalidCalls)
	}
	if subjects.failureCalls != 1 {
		t.Fatalf("lỗi xác thực vẫn phải đi qua bảng backoff như mọi lỗi khác, nhận được %d lần", subjects.failureCalls)
	}
	if subjects.lastFailureCount != 1 {
		t.Errorf("failureCount phải tăng từ 0 lên 1, nhận được %d", subjects.lastFailureCount)
	}
	wantRetryAt := time.UnixMilli(1700000000000).Add(10 * time.Minute)
	if !subjects.lastNextRetryAt.Equal(wantRetryAt) {
		t.Errorf("nextRetryAt phải theo bảng backoff: kỳ vọng %v, nhận được %v", wantRetryAt, subjects.lastNextRetryAt)
	}
}

func TestCheckAll_CountsSuccessAndTotal(t *testing.T) {
	good := newTestCredential()
	bad := newTestCredential()
	bad.ApplicationType = agent.TypeImmigrant

	goodAgent := &fakeAgent{
		record: &trackermodels.ApplicationStatusRecord{Status: "InProcess", LastUpdatedTime: 1},
	}
	badAgent := &fakeAgent{err: common.ErrRemoteUnavailable}

	subjects := &fakeSubjectStore{eligible: []trackermodels.TrackedCredential{good, bad}}
	records := &fakeRecordStore{}
	notifier := &fakeNotifier{}

	provider := &switchingProvider{agents: map[string]agent.RemoteAgent{
		agent.TypeCitizen:   goodAgent,
		agent.TypeImmigrant: badAgent,
	}}
	c := NewChecker(subjects, records, notifier, provider, fakeCipher{})
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }

	success, total := c.CheckAll(context.Background())
	if total != 2 {
		t.Errorf("tổng số credential phải là 2, nhận được %d", total)
	}
	if success != 1 {
		t.Errorf("chỉ 1 credential thành công, nhận được %d", success)
	}
}

type switchingProvider struct {
	agents map[string]agent.RemoteAgent
}

func (p *switchingProvider) GetAgent(applicationType string) (agent.RemoteAgent, error) {
	return p.agents[applicationType], nil
}
