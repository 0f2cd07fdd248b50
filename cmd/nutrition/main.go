package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	adapthttp "nutrition/internal/adapter/http"
	"nutrition/internal/adapter/memory"
	"nutrition/internal/adapter/postgres"
	"nutrition/internal/app"
	"nutrition/internal/config"
	"nutrition/internal/domain"
	"nutrition/internal/token"
)

type store interface {
	domain.UserRepository
	domain.ProfileRepository
	domain.TargetRepository
	domain.ProfileLocker
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db store
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db open: %v", err)
		}
		defer func() { _ = pg.Close() }()
		db = pg
	} else {
		log.Printf("DATABASE_URL not set, using in-memory store")
		db = memory.New()
	}

	issuer := token.NewIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authSvc := app.NewAuthService(db, issuer)
	profileSvc := app.NewProfileService(db, db, db)

	srv := adapthttp.New(profileSvc, authSvc)
	if cfg.OIDC.Enabled() {
		oidcCfg, err := adapthttp.NewOIDCConfig(ctx, cfg.OIDC.Issuer, cfg.OIDC.ClientID, cfg.OIDC.ClientSecret, cfg.OIDC.RedirectURL)
		if err != nil {
			log.Fatalf("sso: %v", err)
		}
		srv.WithOIDC(oidcCfg)
		log.Printf("sso enabled via %s", cfg.OIDC.Issuer)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Printf("listening on %s", cfg.Addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
