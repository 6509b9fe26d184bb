package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/adapters/googlebiz"
	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/adapters/googleplaces"
	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/adapters/hostaway"
	httpserver "github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/adapters/http_server"
	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/adapters/observability"
	redisad "github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/adapters/redis"
	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/app"
	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/domain"
	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/shared"
	mysqlrepo "github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	q := app.NewQueryService(repo, cache, cfg.CacheTTL)
	ha, pl, gb := buildClients(cfg)
	ing := app.NewIngestionService(ha, pl, gb, repo, cache)

	srv := httpserver.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&httpserver.Handlers{Q: q, Ing: ing})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

// buildClients wires the provider clients that are configured; an
// unconfigured provider simply stays nil and imports from it fail fast.
func buildClients(cfg shared.Config) (domain.HostawayClient, domain.PlacesClient, domain.BusinessClient) {
	var ha domain.HostawayClient
	if c, err := hostaway.New(cfg.Sources.Hostaway.BaseURL, cfg.Sources.Hostaway.APIKey, cfg.Sources.HostawayDelay()); err == nil {
		ha = c
	} else {
		log.Warn().Err(err).Msg("hostaway client disabled")
	}

	var pl domain.PlacesClient
	if c, err := googleplaces.New(cfg.Sources.GooglePlaces.BaseURL, cfg.Sources.GooglePlaces.APIKey, cfg.Sources.PlacesDelay()); err == nil {
		pl = c
	} else {
		log.Warn().Err(err).Msg("google places client disabled")
	}

	var gb domain.BusinessClient
	creds := googlebiz.Credentials{
		TokenURL:     cfg.Sources.GoogleBusiness.TokenURL,
		ClientID:     cfg.Sources.GoogleBusiness.ClientID,
		ClientSecret: cfg.Sources.GoogleBusiness.ClientSecret,
		RefreshToken: cfg.Sources.GoogleBusiness.RefreshToken,
	}
	if c, err := googlebiz.New(cfg.Sources.GoogleBusiness.BaseURL, creds, cfg.Sources.BusinessDelay()); err == nil {
		gb = c
	} else {
		log.Warn().Err(err).Msg("google business client disabled")
	}

	return ha, pl, gb
}
