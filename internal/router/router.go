package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/formflow/dms/internal/auth"
	"github.com/formflow/dms/internal/handler"
	mw "github.com/formflow/dms/internal/middleware"
)

type Handlers struct {
	Auth      *handler.AuthHandler
	Templates *handler.TemplateHandler
	Workflow  *handler.WorkflowHandler
	Dashboard *handler.DashboardHandler
	Admin     *handler.AdminHandler
}

func New(log *zap.Logger, jwtSecret string, h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.Recovery(log))
	r.Use(mw.Logger(log))
	r.Use(mw.CORS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.Auth.Register)
		r.Post("/auth/login", h.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(jwtSecret))

			r.Get("/auth/me", h.Auth.Me)

			r.Route("/templates", func(r chi.Router) {
				r.Get("/", h.Templates.List)
				r.Post("/", h.Templates.Create)
				r.Get("/{templateId}", h.Templates.Get)
				r.Put("/{templateId}", h.Templates.Update)
				r.Delete("/{templateId}", h.Templates.Delete)
				r.Post("/{templateId}/stop", h.Templates.Stop)
				r.Get("/{templateId}/recipients", h.Templates.Recipients)
			})

			r.Route("/workflow", func(r chi.Router) {
				r.Post("/save-draft", h.Workflow.SaveDraft)
				r.Post("/delegate", h.Workflow.Delegate)
				r.Post("/mark-final", h.Workflow.MarkFinal)
				r.Post("/approve", h.Workflow.Approve)
				r.Post("/mark-back", h.Workflow.MarkBack)
				r.Post("/submit", h.Workflow.Submit)
				r.Get("/assignments", h.Workflow.Assignments)
				r.Get("/assignments/{assignmentId}/approval-targets", h.Workflow.ApprovalTargets)
				r.Get("/chain/{assignmentId}", h.Workflow.Chain)
				r.Get("/chain/by-data/{submissionId}", h.Workflow.ChainByData)
			})

			r.Get("/dashboard", h.Dashboard.Dashboard)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/templates/{templateId}/submissions", h.Admin.Submissions)
				r.Post("/chains/{assignmentId}/verify", h.Admin.VerifyChain)
			})
		})
	})

	return r
}
