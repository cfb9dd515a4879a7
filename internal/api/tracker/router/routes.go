// Package router đăng ký các route thuộc domain Tracker: credential,
// application record, job kiểm tra.
package router

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	"github.com/goagain/ircc-tracker/internal/agent"
	"github.com/goagain/ircc-tracker/internal/api/middleware"
	apirouter "github.com/goagain/ircc-tracker/internal/api/router"
	trackerhdl "github.com/goagain/ircc-tracker/internal/api/tracker/handler"
	"github.com/goagain/ircc-tracker/internal/scheduler"
	"github.com/goagain/ircc-tracker/internal/utility"
)

// Register đăng ký tất cả route tracker lên v1.
func Register(v1 fiber.Router, r *apirouter.Router, agents *agent.Factory, cipher *utility.PasswordCipher, sched *scheduler.Scheduler) error {
	credentialHandler, err := trackerhdl.NewCredentialHandler(agents, cipher, sched)
	if err != nil {
		return fmt.Errorf("create credential handler: %w", err)
	}

	auth := middleware.AuthMiddleware()
	authOnly := []fiber.Handler{auth}

	apirouter.RegisterRouteWithMiddleware(v1, "/credentials", "POST", "/", authOnly, credentialHandler.HandleCreate)
	apirouter.RegisterRouteWithMiddleware(v1, "/credentials", "GET", "/my", authOnly, credentialHandler.HandleMyCredentials)
	apirouter.RegisterRouteWithMiddleware(v1, "/credentials", "GET", "/:id", authOnly, credentialHandler.HandleGetOne)
	apirouter.RegisterRouteWithMiddleware(v1, "/credentials", "PUT", "/:id", authOnly, credentialHandler.HandleUpdate)
	apirouter.RegisterRouteWithMiddleware(v1, "/credentials", "DELETE", "/:id", authOnly, credentialHandler.HandleDeactivate)
	apirouter.RegisterRouteWithMiddleware(v1, "/credentials", "POST", "/:id/check", authOnly, credentialHandler.HandleCheckNow)
	apirouter.RegisterRouteWithMiddleware(v1, "/jobs", "GET", "/:jobId", authOnly, credentialHandler.HandleJobStatus)
	apirouter.RegisterRouteWithMiddleware(v1, "/scheduler", "GET", "/status", authOnly, credentialHandler.HandleSchedulerStatus)
	apirouter.RegisterRouteWithMiddleware(v1, "/scheduler", "POST", "/sweep", authOnly, credentialHandler.HandleSweepNow)

	recordHandler, err := trackerhdl.NewApplicationRecordHandler()
	if err != nil {
		return fmt.Errorf("create application record handler: %w", err)
	}

	apirouter.RegisterRouteWithMiddleware(v1, "/applications", "GET", "/:appNumber/latest", authOnly, recordHandler.HandleLatest)
	apirouter.RegisterRouteWithMiddleware(v1, "/applications", "GET", "/:appNumber/history", authOnly, recordHandler.HandleHistory)
	r.RegisterCRUDRoutes(v1, "/application-records", recordHandler, apirouter.ReadOnlyConfig)

	return nil
}
