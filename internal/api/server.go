// Package api exposes the monitoring workflows over HTTP.
package api

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/setevik/cranewatch/internal/analysis"
	"github.com/setevik/cranewatch/internal/audit"
	"github.com/setevik/cranewatch/internal/business"
	"github.com/setevik/cranewatch/internal/config"
	"github.com/setevik/cranewatch/internal/event"
	"github.com/setevik/cranewatch/internal/inventory"
	"github.com/setevik/cranewatch/internal/parts"
	"github.com/setevik/cranewatch/internal/store"
	"github.com/setevik/cranewatch/internal/telemetry"
)

// Server wires the HTTP surface to the monitoring workflows.
type Server struct {
	cfg *config.Config
	db  *store.DB
	sim *telemetry.Simulator
	eng *analysis.Engine
	inv *inventory.Store
	biz *business.View
}

// New creates a server over the given collaborators.
func New(cfg *config.Config, db *store.DB, sim *telemetry.Simulator, eng *analysis.Engine, inv *inventory.Store, biz *business.View) *Server {
	return &Server{cfg: cfg, db: db, sim: sim, eng: eng, inv: inv, biz: biz}
}

// Register mounts all routes on the app.
func (s *Server) Register(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	api.Get("/telemetry", s.getTelemetry)
	api.Get("/history", s.getHistory)
	api.Post("/analyze", s.postAnalyze)
	api.Get("/events", s.getEvents)
	api.Post("/events/:id/resolve", s.postResolve)
	api.Post("/verify_fix", s.postVerifyFix)
	api.Post("/decisions", s.postDecision)
	api.Post("/log_action", s.postLogAction)
	api.Get("/audit_log", s.getAuditLog)
	api.Get("/inventory", s.getInventory)
	api.Post("/parts/request", s.postPartRequest)
	api.Get("/parts/requests", s.getPartRequests)
	api.Post("/parts/approve/:id", s.postApprovePart)
	api.Get("/business/metrics", s.getBusinessMetrics)
}

func (s *Server) getTelemetry(c *fiber.Ctx) error {
	return c.JSON(s.sim.Current())
}

func (s *Server) getHistory(c *fiber.Ctx) error {
	return c.JSON(s.sim.History())
}

// postAnalyze runs a diagnosis on the posted snapshot, or on the current
// simulated one when the body is empty, and records the resulting event.
func (s *Server) postAnalyze(c *fiber.Ctx) error {
	var snap telemetry.Snapshot
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&snap); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid snapshot: " + err.Error()})
		}
	}
	if snap == (telemetry.Snapshot{}) {
		snap = s.sim.Current()
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}

	diag := s.eng.Analyze(c.Context(), snap)

	ev := event.New(s.cfg.Asset.ComponentID, snap, diag)
	if err := s.db.InsertEvent(ev); err != nil {
		slog.Error("storing event failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	// Audit is ordered last and non-fatal to the event write.
	if _, err := s.db.AppendAudit(audit.RoleTechnician, audit.ActionDiagnosticScan, &ev.ID, "Detected: "+ev.Type); err != nil {
		slog.Warn("audit write failed after event insert", "event_id", ev.ID, "error", err)
	}

	return c.Status(fiber.StatusCreated).JSON(ev)
}

func (s *Server) getEvents(c *fiber.Ctx) error {
	events, err := s.db.ListEvents(c.Query("status"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(events)
}

func (s *Server) postResolve(c *fiber.Ctx) error {
	var body struct {
		Notes string `json:"notes"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body: " + err.Error()})
		}
	}
	if body.Notes == "" {
		body.Notes = "Resolved via Dashboard"
	}

	id := c.Params("id")
	if err := s.db.ResolveEvent(id, body.Notes); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if _, err := s.db.AppendAudit(audit.RoleTechnician, audit.ActionResolvedIssue, &id, body.Notes); err != nil {
		slog.Warn("audit write failed after resolve", "event_id", id, "error", err)
	}

	return c.JSON(fiber.Map{"status": "success", "message": "Event resolved"})
}

func (s *Server) postVerifyFix(c *fiber.Ctx) error {
	var body struct {
		EventID string   `json:"event_id"`
		Checks  []string `json:"checks"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body: " + err.Error()})
		}
	}

	details := "Verified: " + strings.Join(body.Checks, ", ")
	if _, err := s.db.AppendAudit(audit.RoleTechnician, audit.ActionProtocolVerification, optionalID(body.EventID), details); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "success"})
}

func (s *Server) postDecision(c *fiber.Ctx) error {
	var body struct {
		Role     string `json:"role"`
		Decision string `json:"decision"`
		EventID  string `json:"event_id"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body: " + err.Error()})
		}
	}
	if body.Role == "" {
		body.Role = audit.RoleOwner
	}
	if body.Decision == "" {
		body.Decision = "Unknown Decision"
	}

	if err := s.db.SetOwnerDecision(body.EventID, body.Decision); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if _, err := s.db.AppendAudit(body.Role, audit.ActionExecutiveDecision, optionalID(body.EventID), body.Decision); err != nil {
		slog.Warn("audit write failed after decision", "event_id", body.EventID, "error", err)
	}

	return c.JSON(fiber.Map{"status": "success"})
}

func (s *Server) postLogAction(c *fiber.Ctx) error {
	var body struct {
		Role    string `json:"role"`
		Action  string `json:"action"`
		Details string `json:"details"`
		EventID string `json:"event_id"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body: " + err.Error()})
		}
	}
	if body.Role == "" {
		body.Role = audit.RoleSystem
	}
	if body.Action == "" {
		body.Action = "Activity"
	}

	if _, err := s.db.AppendAudit(body.Role, body.Action, optionalID(body.EventID), body.Details); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "success"})
}

func (s *Server) getAuditLog(c *fiber.Ctx) error {
	entries, err := s.db.ListAudit(c.Query("role"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(entries)
}

func (s *Server) getInventory(c *fiber.Ctx) error {
	return c.JSON(s.inv.Levels())
}

func (s *Server) postPartRequest(c *fiber.Ctx) error {
	var body struct {
		Part string `json:"part"`
		Role string `json:"role"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body: " + err.Error()})
		}
	}
	if body.Part == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "part is required"})
	}
	if body.Role == "" {
		body.Role = audit.RoleMaintenanceLead
	}

	req := parts.New(body.Part, body.Role)
	if err := s.db.InsertPartRequest(req); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if _, err := s.db.AppendAudit(body.Role, audit.ActionRequestedPart, &req.ID, "Requested restock: "+body.Part); err != nil {
		slog.Warn("audit write failed after part request", "request_id", req.ID, "error", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "id": req.ID})
}

func (s *Server) getPartRequests(c *fiber.Ctx) error {
	reqs, err := s.db.ListPartRequests(c.Query("status"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(reqs)
}

// postApprovePart approves a pending request and restocks the part. The
// stock increment is skipped for parts the inventory does not track;
// approval still succeeds with a null stock level.
func (s *Server) postApprovePart(c *fiber.Ctx) error {
	id := c.Params("id")

	req, err := s.db.GetPartRequest(id)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Request not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if err := s.db.ApprovePartRequest(id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	var newStock *int
	if level, err := s.inv.Adjust(req.PartName, s.cfg.Inventory.RestockQuantity); err == nil {
		newStock = &level
	} else {
		slog.Warn("approved part not tracked in inventory", "part", req.PartName)
	}

	if _, err := s.db.AppendAudit(audit.RoleOwner, audit.ActionApprovedPurchase, &req.ID, "Approved order for "+req.PartName+". Stock updated."); err != nil {
		slog.Warn("audit write failed after approval", "request_id", req.ID, "error", err)
	}

	return c.JSON(fiber.Map{"status": "success", "new_stock": newStock})
}

func (s *Server) getBusinessMetrics(c *fiber.Ctx) error {
	return c.JSON(s.biz.Current())
}

func optionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
