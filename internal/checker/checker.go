package checker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/goagain/ircc-tracker/internal/agent"
	trackermodels "github.com/goagain/ircc-tracker/internal/api/tracker/models"
	"github.com/goagain/ircc-tracker/internal/common"
)

// SubjectStore là phần của CredentialService mà checker cần.
type SubjectStore interface {
	FindEligible(ctx context.Context, now time.Time) ([]trackermodels.TrackedCredential, error)
	UpdateCheckSuccess(ctx context.Context, id primitive.ObjectID, status string, lastTimestamp int64, checkedAt time.Time) error
	UpdateCheckFailure(ctx context.Context, id primitive.ObjectID, failureCount int, nextRetryAt time.Time, checkedAt time.Time) error
	MarkCredentialInvalid(ctx context.Context, id primitive.ObjectID) error
}

// RecordStore là phần của ApplicationRecordService mà checker cần.
type RecordStore interface {
	FindLatest(ctx context.Context, applicationNumber string) (*trackermodels.ApplicationStatusRecord, error)
	SaveVersion(ctx context.Context, record trackermodels.ApplicationStatusRecord) (trackermodels.ApplicationStatusRecord, error)
}

// Notifier gửi thông báo thay đổi trạng thái cho user.
type Notifier interface {
	SendStatusUpdate(ctx context.Context, to, username, applicationNumber, changes string, updatedAt time.Time) error
}

// AgentProvider cấp RemoteAgent theo loại hồ sơ.
type AgentProvider interface {
	GetAgent(applicationType string) (agent.RemoteAgent, error)
}

// Decryptor giải mã mật khẩu credential ngay trước khi dùng.
type Decryptor interface {
	DecryptPassword(encryptedBase64 string, salt string) (string, error)
}

// Checker chạy một lần kiểm tra cho từng credential: fetch trạng thái mới,
// so sánh với snapshot cuối, gửi email nếu có thay đổi và cập nhật lịch retry.
type Checker struct {
	subjects SubjectStore
	records  RecordStore
	notifier Notifier
	agents   AgentProvider
	cipher   Decryptor

	// khóa theo credential để một credential không bị kiểm tra chồng
	// (sweep định kỳ với kiểm tra thủ công chạy song song)
	mu      sync.Mutex
	inCheck map[string]*sync.Mutex

	now func() time.Time
}

// NewChecker tạo mới Checker
func NewChecker(subjects SubjectStore, records RecordStore, notifier Notifier, agents AgentProvider, cipher Decryptor) *Checker {
	return &Checker{
		subjects: subjects,
		records:  records,
		notifier: notifier,
		agents:   agents,
		cipher:   cipher,
		inCheck:  make(map[string]*sync.Mutex),
		now:      time.Now,
	}
}

// lockFor trả về mutex riêng của một credential.
func (c *Checker) lockFor(id primitive.ObjectID) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := id.Hex()
	lock, ok := c.inCheck[key]
	if !ok {
		lock = &sync.Mutex{}
		c.inCheck[key] = lock
	}
	return lock
}

// CheckOne kiểm tra một credential. Trả về danh sách thay đổi phát hiện
// được (rỗng nếu không có gì mới) và lỗi nếu lần kiểm tra thất bại.
func (c *Checker) CheckOne(ctx context.Context, credential trackermodels.TrackedCredential) ([]Change, error) {
	lock := c.lockFor(credential.ID)
	lock.Lock()
	defer lock.Unlock()

	changes, err := c.checkLocked(ctx, credential)
	if err != nil {
		c.recordFailure(ctx, credential, err)
		return nil, err
	}
	return changes, nil
}

func (c *Checker) checkLocked(ctx context.Context, credential trackermodels.TrackedCredential) ([]Change, error) {
	remoteAgent, err := c.agents.GetAgent(credential.ApplicationType)
	if err != nil {
		return nil, err
	}

	password, err := c.cipher.DecryptPassword(credential.EncryptedPassword, credential.Salt)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"credentialId": credential.ID.Hex(),
		}).Error("❌ [CHECKER] Không giải mã được mật khẩu credential")
		return nil, err
	}

	creds := agent.Credentials{
		UserID:   credential.OwnerID,
		Username: credential.RemoteUsername,
		Password: password,
	}

	record, err := remoteAgent.GetApplicationDetails(ctx, creds, credential.ApplicationNumber)
	if err != nil {
		return nil, err
	}
	record.UCI = firstNonEmpty(record.UCI, credential.UCI)

	previous, err := c.records.FindLatest(ctx, credential.ApplicationNumber)
	if err != nil {
		return nil, err
	}

	changes := Compare(previous, record)
	if len(changes) > 0 {
		logrus.WithFields(logrus.Fields{
			"applicationNumber": credential.ApplicationNumber,
			"changeCount":       len(changes),
			"newStatus":         record.Status,
		}).Info("📬 [CHECKER] Phát hiện thay đổi trạng thái hồ sơ")

		if credential.NotifyEmail != "" {
			c.notify(ctx, credential, record, changes)
		}
	}

	if _, err := c.records.SaveVersion(ctx, *record); err != nil {
		return nil, err
	}

	err = c.subjects.UpdateCheckSuccess(ctx, credential.ID, record.Status, record.LastUpdatedTime, c.now())
	if err != nil {
		return nil, err
	}

	return changes, nil
}

// notify gửi email thông báo; lỗi gửi chỉ được log, không làm hỏng lần kiểm tra.
func (c *Checker) notify(ctx context.Context, credential trackermodels.TrackedCredential, record *trackermodels.ApplicationStatusRecord, changes []Change) {
	lines := make([]string, 0, len(changes))
	for _, change := range changes {
		lines = append(lines, change.String())
	}

	err := c.notifier.SendStatusUpdate(
		ctx,
		credential.NotifyEmail,
		credential.RemoteUsername,
		credential.ApplicationNumber,
		strings.Join(lines, "\n"),
		time.UnixMilli(record.LastUpdatedTime),
	)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"applicationNumber": credential.ApplicationNumber,
			"error":             err.Error(),
		}).Error("❌ [CHECKER] Gửi email thông báo thất bại")
	}
}

// recordFailure cập nhật trạng thái retry sau một lần kiểm tra thất bại.
// Mọi loại lỗi (xác thực, mạng, response hỏng) đều tăng failureCount và lùi
// nextRetryAt theo bảng backoff; lỗi xác thực chỉ gắn thêm cờ credentialInvalid
// để hiển thị cho user, không loại credential khỏi sweep.
func (c *Checker) recordFailure(ctx context.Context, credential trackermodels.TrackedCredential, checkErr error) {
	if errors.Is(checkErr, common.ErrRemoteCredentials) {
		logrus.WithFields(logrus.Fields{
			"credentialId": credential.ID.Hex(),
		}).Warn("🔒 [CHECKER] IRCC từ chối đăng nhập credential")
		if err := c.subjects.MarkCredentialInvalid(ctx, credential.ID); err != nil {
			logrus.WithFields(logrus.Fields{
				"credentialId": credential.ID.Hex(),
				"error":        err.Error(),
			}).Error("❌ [CHECKER] Không đánh dấu được credential invalid")
		}
	}

	failureCount := credential.FailureCount + 1
	nextRetryAt := c.now().Add(RetryDelay(failureCount))

	err := c.subjects.UpdateCheckFailure(ctx, credential.ID, failureCount, nextRetryAt, c.now())
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"credentialId": credential.ID.Hex(),
			"error":        err.Error(),
		}).Error("❌ [CHECKER] Không cập nhật được trạng thái retry")
	}
}

// CheckAll kiểm tra toàn bộ credential đến hạn. Trả về (số thành công, tổng số).
// Lỗi của từng credential chỉ được log, không dừng cả sweep.
func (c *Checker) CheckAll(ctx context.Context) (int, int) {
	credentials, err := c.subjects.FindEligible(ctx, c.now())
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("❌ [CHECKER] Không lấy được danh sách credential đến hạn")
		return 0, 0
	}

	total := len(credentials)
	logrus.WithFields(logrus.Fields{
		"total": total,
	}).Info("🔍 [CHECKER] Bắt đầu sweep kiểm tra trạng thái")

	success := 0
	for _, credential := range credentials {
		if ctx.Err() != nil {
			break
		}
		if _, err := c.CheckOne(ctx, credential); err != nil {
			logrus.WithFields(logrus.Fields{
				"credentialId": credential.ID.Hex(),
				"error":        err.Error(),
			}).Error("❌ [CHECKER] Kiểm tra credential thất bại")
			continue
		}
		success++
	}

	logrus.WithFields(logrus.Fields{
		"success": success,
		"total":   total,
	}).Info("✅ [CHECKER] Sweep hoàn tất")

	return success, total
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
