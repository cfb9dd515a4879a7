// Package trackerhdl - Handler tra cứu snapshot trạng thái hồ sơ.
package trackerhdl

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson"

	basehdl "github.com/goagain/ircc-tracker/internal/api/base/handler"
	trackermodels "github.com/goagain/ircc-tracker/internal/api/tracker/models"
	trackersvc "github.com/goagain/ircc-tracker/internal/api/tracker/service"
	"github.com/goagain/ircc-tracker/internal/common"
	"github.com/goagain/ircc-tracker/internal/global"
	"github.com/goagain/ircc-tracker/internal/utility"
)

// validateAppNumberParam kiểm tra định dạng số hồ sơ lấy từ path param.
func validateAppNumberParam(applicationNumber string) error {
	if err := global.Validate.Var(applicationNumber, "required,app_number"); err != nil {
		return common.NewError(
			common.ErrCodeValidationFormat,
			"Số hồ sơ không hợp lệ",
			common.StatusBadRequest,
			nil,
		)
	}
	return nil
}

// ApplicationRecordHandler cho user xem lại các snapshot của hồ sơ mình theo dõi.
// Snapshot chỉ đọc, mọi ghi chép đều đi qua checker.
type ApplicationRecordHandler struct {
	*basehdl.BaseHandler[trackermodels.ApplicationStatusRecord, trackermodels.ApplicationStatusRecord, trackermodels.ApplicationStatusRecord]
	RecordService     *trackersvc.ApplicationRecordService
	CredentialService *trackersvc.CredentialService
}

// NewApplicationRecordHandler tạo mới ApplicationRecordHandler
func NewApplicationRecordHandler() (*ApplicationRecordHandler, error) {
	recordService, err := trackersvc.NewApplicationRecordService()
	if err != nil {
		return nil, fmt.Errorf("tạo ApplicationRecordService: %w", err)
	}
	credentialService, err := trackersvc.NewCredentialService()
	if err != nil {
		return nil, fmt.Errorf("tạo CredentialService: %w", err)
	}

	return &ApplicationRecordHandler{
		BaseHandler:       basehdl.NewBaseHandler[trackermodels.ApplicationStatusRecord, trackermodels.ApplicationStatusRecord, trackermodels.ApplicationStatusRecord](recordService),
		RecordService:     recordService,
		CredentialService: credentialService,
	}, nil
}

// requireOwnedApplication kiểm tra user có credential theo dõi hồ sơ này không.
func (h *ApplicationRecordHandler) requireOwnedApplication(c fiber.Ctx, applicationNumber string) error {
	owner := ownerID(c)
	if owner == "" {
		return common.ErrTokenMissing
	}

	count, err := h.CredentialService.CountDocuments(c.Context(), bson.M{
		"ownerId":           owner,
		"applicationNumber": applicationNumber,
	})
	if err != nil {
		return err
	}
	if count == 0 {
		return common.NewError(
			common.ErrCodeAuth,
			"Không có quyền truy cập hồ sơ này",
			common.StatusForbidden,
			nil,
		)
	}
	return nil
}

// HandleLatest xử lý GET /applications/:appNumber/latest.
func (h *ApplicationRecordHandler) HandleLatest(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		applicationNumber := c.Params("appNumber")
		if err := validateAppNumberParam(applicationNumber); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.requireOwnedApplication(c, applicationNumber); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		record, err := h.RecordService.FindLatest(c.Context(), applicationNumber)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if record == nil {
			h.HandleResponse(c, nil, common.ErrNotFound)
			return nil
		}

		h.HandleResponse(c, record, nil)
		return nil
	})
}

// HandleHistory xử lý GET /applications/:appNumber/history?limit=n.
func (h *ApplicationRecordHandler) HandleHistory(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		applicationNumber := c.Params("appNumber")
		if err := validateAppNumberParam(applicationNumber); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.requireOwnedApplication(c, applicationNumber); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		limit := utility.P2Int64(c.Query("limit", "0"))
		records, err := h.RecordService.FindHistory(c.Context(), applicationNumber, limit)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		h.HandleResponse(c, fiber.Map{
			"records": records,
			"total":   len(records),
		}, nil)
		return nil
	})
}
