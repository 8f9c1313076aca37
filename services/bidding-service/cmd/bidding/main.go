package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/you/eventfoundry/pkg/commission"
	"github.com/you/eventfoundry/pkg/config"
	"github.com/you/eventfoundry/pkg/db"
	"github.com/you/eventfoundry/pkg/mq"
	"github.com/you/eventfoundry/pkg/obs"
	"github.com/you/eventfoundry/services/bidding-service/internal/docgen"
	"github.com/you/eventfoundry/services/bidding-service/internal/repository"
	"github.com/you/eventfoundry/services/bidding-service/internal/service"
	httpx "github.com/you/eventfoundry/services/bidding-service/internal/transport/http"
)

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func main() {
	_ = godotenv.Load(".env")
	cfg := must(config.Load())

	shutdown := obs.InitTracer("bidding-service")
	defer func() { _ = shutdown(context.Background()) }()

	// DB
	gdb := db.Open(cfg.PGForgeDSN)
	repo := repository.NewForgeRepo(gdb)
	must(0, repo.Migrate())

	// Publisher for lifecycle events
	pub := must(mq.NewPublisher(cfg.RabbitURL, cfg.BiddingExchange))
	defer pub.Close()

	var docs docgen.Generator = docgen.Disabled{}
	if cfg.DocgenBaseURL != "" {
		docs = docgen.NewHTTPGenerator(cfg.DocgenBaseURL)
	}

	closer := service.NewWindowCloser(repo, pub, cfg.ShortlistTopK)
	winner := service.NewWinnerSvc(repo, pub, docs, commission.DefaultPolicy())

	// Periodic expiry sweep. The HTTP trigger stays available for on-demand runs.
	cr := cron.New()
	must(cr.AddFunc("@every "+cfg.SweepEvery, func() {
		rep, err := closer.CloseExpiredWindows(context.Background())
		if err != nil {
			log.Printf("[bidding] sweep: %v", err)
			return
		}
		if rep.Examined > 0 {
			log.Printf("[bidding] sweep examined=%d closed=%d", rep.Examined, rep.Closed)
		}
	}))
	cr.Start()
	defer cr.Stop()

	h := httpx.NewBiddingHandler(closer, winner, repo)
	r := httpx.NewRouter(cfg.JWTSecret, h)

	go func() {
		log.Println("[bidding] http listening on", cfg.BiddingHTTPAddr)
		log.Fatal(r.Run(cfg.BiddingHTTPAddr))
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	log.Println("[bidding] shutting down")
}
