// Package admin реализует раздел администратора в портале: модерацию
// наставников, управление пользователями и выгрузку отчёта.
package admin

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/speakup/internal/http/handlers"
	"github.com/magabrotheeeer/speakup/internal/http/response"
	"github.com/magabrotheeeer/speakup/internal/lib/sl"
	"github.com/magabrotheeeer/speakup/internal/models"
	"github.com/magabrotheeeer/speakup/internal/report"
)

// Handler обрабатывает запросы раздела /admin.
type Handler struct {
	log      *slog.Logger
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger) *Handler {
	return &Handler{
		log:      log,
		validate: validator.New(),
	}
}

// Mentors отдаёт наставников во всех статусах проверки.
func (h *Handler) Mentors(w http.ResponseWriter, r *http.Request) {
	log := handlers.Logger(h.log, r, "handlers.admin.Mentors")
	scope, ok := handlers.Scope(w, r, log)
	if !ok {
		return
	}
	mentors, err := scope.Manager.AdminMentors(r.Context())
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"mentors": mentors})
}

// Moderate применяет действие verify, unverify или reject к наставнику.
func (h *Handler) Moderate(w http.ResponseWriter, r *http.Request) {
	log := handlers.Logger(h.log, r, "handlers.admin.Moderate")
	scope, ok := handlers.Scope(w, r, log)
	if !ok {
		return
	}
	id, ok := handlers.ID(w, r, log, "id")
	if !ok {
		return
	}
	action := models.VerificationAction(strings.ToLower(chi.URLParam(r, "action")))
	switch action {
	case models.ActionVerify, models.ActionUnverify, models.ActionReject:
	default:
		log.Info("unknown moderation action", slog.String("action", string(action)))
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("unknown action"))
		return
	}

	profile, err := scope.Manager.ModerateMentor(r.Context(), id, action)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	log.Info("mentor moderated", slog.Int64("mentor_id", id), slog.String("verification", string(profile.Verification)))
	handlers.OK(w, r, map[string]any{"profile": profile})
}

// Users отдаёт всех пользователей.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	log := handlers.Logger(h.log, r, "handlers.admin.Users")
	scope, ok := handlers.Scope(w, r, log)
	if !ok {
		return
	}
	users, err := scope.Manager.ListUsers(r.Context())
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"users": users})
}

// SetStatus активирует или деактивирует пользователя.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	log := handlers.Logger(h.log, r, "handlers.admin.SetStatus")
	scope, ok := handlers.Scope(w, r, log)
	if !ok {
		return
	}
	id, ok := handlers.ID(w, r, log, "id")
	if !ok {
		return
	}
	var req models.UserStatusUpdate
	if !handlers.Decode(w, r, log, h.validate, &req) {
		return
	}
	u, err := scope.Manager.SetUserActive(r.Context(), id, *req.IsActive)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	log.Info("user status changed", slog.Int64("target_id", u.ID), slog.Bool("is_active", u.IsActive))
	handlers.OK(w, r, map[string]any{"user": u})
}

// SetRole меняет роль пользователя.
func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	log := handlers.Logger(h.log, r, "handlers.admin.SetRole")
	scope, ok := handlers.Scope(w, r, log)
	if !ok {
		return
	}
	id, ok := handlers.ID(w, r, log, "id")
	if !ok {
		return
	}
	var req models.UserRoleUpdate
	if !handlers.Decode(w, r, log, h.validate, &req) {
		return
	}
	u, err := scope.Manager.SetUserRole(r.Context(), id, req.Role)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	log.Info("user role changed", slog.Int64("target_id", u.ID), slog.String("role", string(u.Role)))
	handlers.OK(w, r, map[string]any{"user": u})
}

// Report выгружает наставников и пользователей в XLSX.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	log := handlers.Logger(h.log, r, "handlers.admin.Report")
	scope, ok := handlers.Scope(w, r, log)
	if !ok {
		return
	}
	mentors, err := scope.Manager.AdminMentors(r.Context())
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	users, err := scope.Manager.ListUsers(r.Context())
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	f, err := report.Build(mentors, users)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"speakup_%s.xlsx\"", time.Now().Format("20060102")))
	if err := f.Write(w); err != nil {
		log.Error("failed to write report", sl.Err(err))
		return
	}
	log.Info("report exported", slog.Int("mentors", len(mentors)), slog.Int("users", len(users)))
}
