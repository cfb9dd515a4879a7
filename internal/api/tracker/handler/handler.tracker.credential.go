// Package trackerhdl - Handler quản lý credential IRCC và trigger kiểm tra.
package trackerhdl

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	"github.com/goagain/ircc-tracker/internal/agent"
	basehdl "github.com/goagain/ircc-tracker/internal/api/base/handler"
	basesvc "github.com/goagain/ircc-tracker/internal/api/base/service"
	trackerdto "github.com/goagain/ircc-tracker/internal/api/tracker/dto"
	trackermodels "github.com/goagain/ircc-tracker/internal/api/tracker/models"
	trackersvc "github.com/goagain/ircc-tracker/internal/api/tracker/service"
	"github.com/goagain/ircc-tracker/internal/common"
	"github.com/goagain/ircc-tracker/internal/logger"
	"github.com/goagain/ircc-tracker/internal/scheduler"
	"github.com/goagain/ircc-tracker/internal/utility"
)

// CredentialHandler xử lý vòng đời credential: đăng ký (verify với IRCC rồi
// mã hóa mật khẩu), xem danh sách, cập nhật, tắt theo dõi và yêu cầu kiểm tra ngay.
type CredentialHandler struct {
	*basehdl.BaseHandler[trackermodels.TrackedCredential, trackerdto.CredentialCreateInput, trackerdto.CredentialUpdateInput]
	CredentialService *trackersvc.CredentialService
	Agents            *agent.Factory
	Cipher            *utility.PasswordCipher
	Scheduler         *scheduler.Scheduler
}

// NewCredentialHandler tạo mới CredentialHandler
func NewCredentialHandler(agents *agent.Factory, cipher *utility.PasswordCipher, sched *scheduler.Scheduler) (*CredentialHandler, error) {
	credentialService, err := trackersvc.NewCredentialService()
	if err != nil {
		return nil, fmt.Errorf("tạo CredentialService: %w", err)
	}

	handler := &CredentialHandler{
		BaseHandler:       basehdl.NewBaseHandler[trackermodels.TrackedCredential, trackerdto.CredentialCreateInput, trackerdto.CredentialUpdateInput](credentialService),
		CredentialService: credentialService,
		Agents:            agents,
		Cipher:            cipher,
		Scheduler:         sched,
	}
	return handler, nil
}

// ownerID lấy id user đã đăng nhập từ context (do AuthMiddleware set).
func ownerID(c fiber.Ctx) string {
	if id, ok := c.Locals("user_id").(string); ok {
		return id
	}
	return ""
}

func ownerEmail(c fiber.Ctx) string {
	if email, ok := c.Locals("user_email").(string); ok {
		return email
	}
	return ""
}

// toCredentialResponse chuyển model sang response, không bao giờ kèm bí mật.
func toCredentialResponse(credential trackermodels.TrackedCredential) trackerdto.CredentialResponse {
	return trackerdto.CredentialResponse{
		ID:                credential.ID.Hex(),
		RemoteUsername:    credential.RemoteUsername,
		NotifyEmail:       credential.NotifyEmail,
		ApplicationType:   credential.ApplicationType,
		ApplicationNumber: credential.ApplicationNumber,
		UCI:               credential.UCI,
		IsActive:          credential.IsActive,
		CredentialInvalid: credential.CredentialInvalid,
		LastChecked:       credential.LastChecked,
		LastStatus:        credential.LastStatus,
		LastTimestamp:     credential.LastTimestamp,
		FailureCount:      credential.FailureCount,
		NextRetryAt:       credential.NextRetryAt,
		CreatedAt:         credential.CreatedAt,
		UpdatedAt:         credential.UpdatedAt,
	}
}

// HandleCreate xử lý POST /credentials: verify mật khẩu với IRCC, lấy số hồ
// sơ từ summary, mã hóa mật khẩu rồi lưu và xếp hàng kiểm tra ngay lần đầu.
func (h *CredentialHandler) HandleCreate(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		owner := ownerID(c)
		if owner == "" {
			h.HandleResponse(c, nil, common.ErrTokenMissing)
			return nil
		}

		input := new(trackerdto.CredentialCreateInput)
		if err := h.ParseRequestBody(c, input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.ValidateInput(input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		remoteAgent, err := h.Agents.GetAgent(input.ApplicationType)
		if err != nil {
			h.HandleResponse(c, nil, common.NewError(
				common.ErrCodeValidationInput,
				"Loại hồ sơ không hợp lệ",
				common.StatusBadRequest,
				nil,
			))
			return nil
		}

		creds := agent.Credentials{
			UserID:   owner,
			Username: input.RemoteUsername,
			Password: input.RemotePassword,
		}

		// Verify trước khi lưu, mật khẩu sai bị chặn ngay tại đây
		if err := remoteAgent.VerifyCredentials(c.Context(), creds); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		summaries, err := remoteAgent.GetApplicationSummary(c.Context(), creds)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if len(summaries) == 0 {
			h.HandleResponse(c, nil, common.NewError(
				common.ErrCodeRemoteParse,
				"Tài khoản IRCC không có hồ sơ nào",
				common.StatusBadRequest,
				nil,
			))
			return nil
		}

		salt, err := utility.NewSalt()
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		encrypted, err := h.Cipher.EncryptPassword(input.RemotePassword, salt)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		notifyEmail := input.NotifyEmail
		if notifyEmail == "" {
			notifyEmail = ownerEmail(c)
		}

		credential := trackermodels.TrackedCredential{
			OwnerID:           owner,
			RemoteUsername:    input.RemoteUsername,
			Salt:              salt,
			EncryptedPassword: encrypted,
			NotifyEmail:       notifyEmail,
			ApplicationType:   input.ApplicationType,
			ApplicationNumber: summaries[0].ApplicationNumber,
			UCI:               input.UCI,
			IsActive:          true,
		}

		created, err := h.CredentialService.InsertOne(c.Context(), credential)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		logger.LogCRUD("create", "credential", created.ID.Hex(), c, map[string]interface{}{
			"applicationType":   created.ApplicationType,
			"applicationNumber": created.ApplicationNumber,
		})

		// Kiểm tra ngay lần đầu để user thấy trạng thái không phải đợi sweep
		if _, err := h.Scheduler.EnqueueCheck(created); err != nil {
			h.HandleResponse(c, toCredentialResponse(created), nil)
			return nil
		}

		h.HandleResponse(c, toCredentialResponse(created), nil)
		return nil
	})
}

// HandleMyCredentials xử lý GET /credentials/my: danh sách credential của user.
func (h *CredentialHandler) HandleMyCredentials(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		owner := ownerID(c)
		if owner == "" {
			h.HandleResponse(c, nil, common.ErrTokenMissing)
			return nil
		}

		credentials, err := h.CredentialService.FindByOwner(c.Context(), owner)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		responses := make([]trackerdto.CredentialResponse, 0, len(credentials))
		for _, credential := range credentials {
			responses = append(responses, toCredentialResponse(credential))
		}

		h.HandleResponse(c, fiber.Map{
			"credentials": responses,
			"total":       len(responses),
		}, nil)
		return nil
	})
}

// findOwned tìm credential theo id và kiểm tra quyền sở hữu.
func (h *CredentialHandler) findOwned(c fiber.Ctx) (*trackermodels.TrackedCredential, error) {
	owner := ownerID(c)
	if owner == "" {
		return nil, common.ErrTokenMissing
	}

	id := utility.String2ObjectID(h.GetIDFromContext(c))
	if id.IsZero() {
		return nil, common.NewError(
			common.ErrCodeValidationFormat,
			"ID không hợp lệ",
			common.StatusBadRequest,
			nil,
		)
	}

	credential, err := h.CredentialService.FindOneById(c.Context(), id)
	if err != nil {
		return nil, err
	}
	if credential.OwnerID != owner {
		return nil, common.NewError(
			common.ErrCodeAuth,
			"Không có quyền truy cập credential này",
			common.StatusForbidden,
			nil,
		)
	}
	return &credential, nil
}

// HandleGetOne xử lý GET /credentials/:id.
func (h *CredentialHandler) HandleGetOne(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		credential, err := h.findOwned(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		h.HandleResponse(c, toCredentialResponse(*credential), nil)
		return nil
	})
}

// HandleUpdate xử lý PUT /credentials/:id. Đổi mật khẩu sẽ được verify lại
// với IRCC, mã hóa bằng salt mới và mở khóa credential nếu đang bị đánh dấu
// sai mật khẩu.
func (h *CredentialHandler) HandleUpdate(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		credential, err := h.findOwned(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		input := new(trackerdto.CredentialUpdateInput)
		if err := h.ParseRequestBody(c, input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.ValidateInput(input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		set := map[string]interface{}{}
		unset := map[string]interface{}{}

		if input.RemotePassword != "" {
			remoteAgent, err := h.Agents.GetAgent(credential.ApplicationType)
			if err != nil {
				h.HandleResponse(c, nil, err)
				return nil
			}

			creds := agent.Credentials{
				UserID:   credential.OwnerID,
				Username: credential.RemoteUsername,
				Password: input.RemotePassword,
			}
			if err := remoteAgent.VerifyCredentials(c.Context(), creds); err != nil {
				h.HandleResponse(c, nil, err)
				return nil
			}

			salt, err := utility.NewSalt()
			if err != nil {
				h.HandleResponse(c, nil, err)
				return nil
			}
			encrypted, err := h.Cipher.EncryptPassword(input.RemotePassword, salt)
			if err != nil {
				h.HandleResponse(c, nil, err)
				return nil
			}

			set["salt"] = salt
			set["encryptedPassword"] = encrypted
			// Mật khẩu mới đã verify được nên mở khóa và reset lịch retry
			set["credentialInvalid"] = false
			set["failureCount"] = 0
			unset["nextRetryAt"] = ""
		}

		if input.NotifyEmail != "" {
			set["notifyEmail"] = input.NotifyEmail
		}
		if input.IsActive != nil {
			set["isActive"] = *input.IsActive
		}

		if len(set) == 0 {
			h.HandleResponse(c, nil, common.NewError(
				common.ErrCodeValidationInput,
				"Không có trường nào để cập nhật",
				common.StatusBadRequest,
				nil,
			))
			return nil
		}

		updated, err := h.CredentialService.UpdateById(c.Context(), credential.ID, &basesvc.UpdateData{Set: set, Unset: unset})
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		// Audit log không bao giờ chứa mật khẩu, chỉ tên các trường đã đổi
		changedFields := make([]string, 0, len(set))
		for field := range set {
			if field == "salt" || field == "encryptedPassword" {
				continue
			}
			changedFields = append(changedFields, field)
		}
		if input.RemotePassword != "" {
			changedFields = append(changedFields, "password")
		}
		logger.LogCRUD("update", "credential", credential.ID.Hex(), c, map[string]interface{}{
			"fields": changedFields,
		})

		h.HandleResponse(c, toCredentialResponse(updated), nil)
		return nil
	})
}

// HandleDeactivate xử lý DELETE /credentials/:id: tắt theo dõi, giữ lại dữ
// liệu lịch sử thay vì xóa hẳn.
func (h *CredentialHandler) HandleDeactivate(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		credential, err := h.findOwned(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		if err := h.CredentialService.Deactivate(c.Context(), credential.ID); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		logger.LogCRUD("deactivate", "credential", credential.ID.Hex(), c, nil)

		h.HandleResponse(c, fiber.Map{"deactivated": true}, nil)
		return nil
	})
}

// HandleCheckNow xử lý POST /credentials/:id/check: xếp hàng một lần kiểm tra.
func (h *CredentialHandler) HandleCheckNow(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		credential, err := h.findOwned(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		jobID, err := h.Scheduler.EnqueueCheck(*credential)
		if err != nil {
			h.HandleResponse(c, nil, common.NewError(
				common.ErrCodeInternalServer,
				"Không xếp hàng được job kiểm tra",
				common.StatusInternalServerError,
				nil,
			))
			return nil
		}

		job, _ := h.Scheduler.JobStatus(jobID)
		h.HandleResponse(c, trackerdto.CheckEnqueueResponse{
			JobID:    jobID,
			Status:   job.Status,
			QueuedAt: job.EnqueuedAt,
		}, nil)
		return nil
	})
}

// HandleJobStatus xử lý GET /jobs/:jobId.
func (h *CredentialHandler) HandleJobStatus(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		jobID := c.Params("jobId")
		job, ok := h.Scheduler.JobStatus(jobID)
		if !ok {
			h.HandleResponse(c, nil, common.NewError(
				common.ErrCodeDatabaseQuery,
				"Không tìm thấy job",
				common.StatusNotFound,
				nil,
			))
			return nil
		}
		h.HandleResponse(c, job, nil)
		return nil
	})
}

// HandleSweepNow xử lý POST /scheduler/sweep: xếp hàng một lần sweep toàn bộ
// credential đến hạn thay vì đợi chu kỳ kế tiếp.
func (h *CredentialHandler) HandleSweepNow(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		if ownerID(c) == "" {
			h.HandleResponse(c, nil, common.ErrTokenMissing)
			return nil
		}

		jobID, err := h.Scheduler.EnqueueSweep()
		if err != nil {
			h.HandleResponse(c, nil, common.NewError(
				common.ErrCodeInternalServer,
				"Không xếp hàng được job sweep",
				common.StatusInternalServerError,
				nil,
			))
			return nil
		}

		job, _ := h.Scheduler.JobStatus(jobID)
		h.HandleResponse(c, trackerdto.CheckEnqueueResponse{
			JobID:    jobID,
			Status:   job.Status,
			QueuedAt: job.EnqueuedAt,
		}, nil)
		return nil
	})
}

// HandleSchedulerStatus xử lý GET /scheduler/status.
func (h *CredentialHandler) HandleSchedulerStatus(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		h.HandleResponse(c, h.Scheduler.Status(), nil)
		return nil
	})
}
