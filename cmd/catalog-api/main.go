package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sellergrid/service-core-go/internal/catalog"
	catalogrepo "github.com/sellergrid/service-core-go/internal/catalog/repo"
	"github.com/sellergrid/service-core-go/internal/config"
	"github.com/sellergrid/service-core-go/internal/router"
	"github.com/sellergrid/service-core-go/internal/token"
	"github.com/sellergrid/service-core-go/pkg/database"
	"github.com/sellergrid/service-core-go/pkg/utilities"
)

func main() {
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	sugar := lg.Sugar()
	sugar.Info("starting catalog-api")

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("load config: %v", err)
	}

	db, err := database.Connect(database.Config{
		DSN:      cfg.DatabaseURL,
		MaxConns: cfg.DatabaseMaxConns,
	})
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	productRepo := catalogrepo.NewProductRepo(db)
	if err := productRepo.EnsureTable(ctx); err != nil {
		sugar.Fatalf("ensure products table: %v", err)
	}

	// same signing config as the identity service so its session tokens
	// validate here
	tokens := token.NewService(token.Config{
		Secret:     []byte(cfg.Token.Secret),
		Issuer:     cfg.Token.Issuer,
		Audience:   cfg.Token.Audience,
		SessionTTL: cfg.Token.SessionTTL,
	})
	svc := catalog.NewService(productRepo, sugar)
	handler := catalog.NewHandler(svc, sugar)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router.RegisterCatalogRoutes(handler, tokens, sugar),
	}

	go func() {
		sugar.Infow("catalog-api listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	sugar.Info("goodbye")
}
