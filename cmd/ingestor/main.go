// The ingestor runs a one-shot import across a set of source locators, with
// a semaphore bounding concurrent runs. Provider calls still serialize
// through each client's rate limiter, so the bound only controls how many
// normalization/persistence pipelines run at once.
package main

import (
	"context"
	"database/sql"
	"flag"
	"strings"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/adapters/googlebiz"
	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/adapters/googleplaces"
	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/adapters/hostaway"
	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/adapters/observability"
	redisad "github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/adapters/redis"
	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/app"
	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/domain"
	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/shared"
	mysqlrepo "github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/storage/mysql"
)

func main() {
	source := flag.String("source", "hostaway", "source to import from: hostaway|google_places|google_business")
	locators := flag.String("locators", "", "comma-separated provider locators (empty = full hostaway sync)")
	autoApprove := flag.Bool("auto-approve", false, "persist imported reviews as approved")
	flag.Parse()

	ctx := context.Background()
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv)

	src := domain.Source(*source)
	if !src.Valid() || src == domain.SourceManual {
		log.Fatal().Str("source", *source).Msg("unsupported import source")
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	// an unconfigured provider stays a nil interface; imports from it fail
	// fast with a provider error, but the selected source must come up
	var ha domain.HostawayClient
	if c, err := hostaway.New(cfg.Sources.Hostaway.BaseURL, cfg.Sources.Hostaway.APIKey, cfg.Sources.HostawayDelay()); err == nil {
		ha = c
	} else if src == domain.SourceHostaway {
		log.Fatal().Err(err).Msg("failed to initialize hostaway client")
	}
	var pl domain.PlacesClient
	if c, err := googleplaces.New(cfg.Sources.GooglePlaces.BaseURL, cfg.Sources.GooglePlaces.APIKey, cfg.Sources.PlacesDelay()); err == nil {
		pl = c
	} else if src == domain.SourceGooglePlaces {
		log.Fatal().Err(err).Msg("failed to initialize google places client")
	}
	var gb domain.BusinessClient
	if c, err := googlebiz.New(cfg.Sources.GoogleBusiness.BaseURL, googlebiz.Credentials{
		TokenURL:     cfg.Sources.GoogleBusiness.TokenURL,
		ClientID:     cfg.Sources.GoogleBusiness.ClientID,
		ClientSecret: cfg.Sources.GoogleBusiness.ClientSecret,
		RefreshToken: cfg.Sources.GoogleBusiness.RefreshToken,
	}, cfg.Sources.BusinessDelay()); err == nil {
		gb = c
	} else if src == domain.SourceGoogleBusiness {
		log.Fatal().Err(err).Msg("failed to initialize google business client")
	}

	ing := app.NewIngestionService(ha, pl, gb, repo, cache)

	targets := []string{""}
	if *locators != "" {
		targets = strings.Split(*locators, ",")
	}

	log.Info().
		Str("source", string(src)).
		Int("targets", len(targets)).
		Int("workers", cfg.Workers).
		Msg("ingestor starting")

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup

	for _, loc := range targets {
		loc := strings.TrimSpace(loc)

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(locator string) {
			defer wg.Done()
			defer sem.Release(1)

			res, err := ing.ImportFromSource(ctx, src, locator, domain.ImportOptions{AutoApprove: *autoApprove})
			if err != nil {
				log.Warn().Str("locator", locator).Err(err).Msg("import failed")
				return
			}
			log.Info().
				Str("locator", locator).
				Int("imported", res.Imported).
				Int("skipped", res.Skipped).
				Int("errors", len(res.Errors)).
				Bool("noItems", res.NoItems).
				Msg("import ok")
		}(loc)
	}

	wg.Wait()
	log.Info().Msg("ingestion completed")
}
