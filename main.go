package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/formflow/dms/internal/config"
	"github.com/formflow/dms/internal/db"
	"github.com/formflow/dms/internal/directory"
	"github.com/formflow/dms/internal/handler"
	"github.com/formflow/dms/internal/logging"
	"github.com/formflow/dms/internal/notify"
	"github.com/formflow/dms/internal/repository"
	"github.com/formflow/dms/internal/router"
	"github.com/formflow/dms/internal/service"
	"github.com/formflow/dms/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New(cfg.GelfAddr)
	defer log.Sync()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("database open failed", zap.Error(err))
	}
	defer database.Close()

	users := repository.NewUserRepo(database)
	templates := repository.NewTemplateRepo(database)
	submissions := repository.NewSubmissionRepo(database)
	assignments := repository.NewAssignmentRepo(database)

	dir := directory.New(users)

	var sink notify.Sink
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		ks := notify.NewKafkaSink(brokers, cfg.KafkaTopic)
		defer ks.Close()
		sink = ks
		log.Info("workflow events to kafka", zap.Strings("brokers", brokers), zap.String("topic", cfg.KafkaTopic))
	} else {
		sink = notify.NewLogSink(log)
	}

	engine := workflow.NewEngine(database, dir, sink, log)

	authSvc := service.NewAuthService(users, cfg.JWTSecret)
	templateSvc := service.NewTemplateService(templates, dir)

	if cfg.AdminEmail != "" && cfg.AdminPass != "" {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := authSvc.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPass); err != nil {
				log.Warn("admin seeding failed", zap.Error(err))
			}
		}()
	}

	h := router.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Templates: handler.NewTemplateHandler(templateSvc),
		Workflow:  handler.NewWorkflowHandler(engine),
		Dashboard: handler.NewDashboardHandler(engine, templates, assignments),
		Admin:     handler.NewAdminHandler(engine, submissions),
	}

	srv := router.New(log, cfg.JWTSecret, h)

	log.Info("server listening", zap.String("addr", cfg.HTTPAddr))
	if err := http.ListenAndServe(cfg.HTTPAddr, srv); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
