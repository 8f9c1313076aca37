package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"

	"github.com/you/eventfoundry/pkg/db"
	"github.com/you/eventfoundry/pkg/mq"
	"github.com/you/eventfoundry/pkg/obs"

	"github.com/you/eventfoundry/services/settlement-service/internal/consumer"
	httpx "github.com/you/eventfoundry/services/settlement-service/internal/http"
	"github.com/you/eventfoundry/services/settlement-service/internal/razorpay"
	"github.com/you/eventfoundry/services/settlement-service/internal/repository"
	"github.com/you/eventfoundry/services/settlement-service/internal/service"
)

type Cfg struct {
	DSN             string            `envconfig:"PG_SETTLEMENT_DSN" required:"true"`
	WebhookHTTPAddr string            `envconfig:"SETTLEMENT_HTTP_ADDR" default:":8081"`
	RazorpayKeyID   string            `envconfig:"RAZORPAY_KEY_ID" required:"true"`
	RazorpaySecret  string            `envconfig:"RAZORPAY_KEY_SECRET" required:"true"`
	WebhookSecret   string            `envconfig:"RAZORPAY_WEBHOOK_SECRET" required:"true"`
	PayoutAccount   string            `envconfig:"RAZORPAYX_ACCOUNT_NUMBER" required:"true"`
	FundAccounts    map[string]string `envconfig:"VENDOR_FUND_ACCOUNTS"` // vendorID:fund_account_id,...
	RabbitURL       string            `envconfig:"RABBIT_URL" required:"true"`
	BiddingExchange string            `envconfig:"BIDDING_EXCHANGE" default:"bidding.exchange"`
	PaymentExchange string            `envconfig:"PAYMENT_EXCHANGE" default:"settlement.exchange"`
	ContractQueue   string            `envconfig:"CONTRACT_QUEUE" default:"settlement.contract.created"`
	PayoutDelayHrs  int               `envconfig:"PAYOUT_DELAY_HOURS" default:"48"`
	PayoutSweep     string            `envconfig:"PAYOUT_SWEEP_EVERY" default:"10m"`
}

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func main() {
	_ = godotenv.Load()

	var cfg Cfg
	must(0, envconfig.Process("", &cfg))

	shutdownTracer := obs.InitTracer("settlement-service")
	defer shutdownTracer(context.Background())

	gdb := db.Open(cfg.DSN)
	repo := repository.NewSettlementRepo(gdb)
	must(0, repo.Migrate())

	gw := razorpay.NewClient(cfg.RazorpayKeyID, cfg.RazorpaySecret)

	pub := must(mq.NewPublisher(cfg.RabbitURL, cfg.PaymentExchange))
	defer pub.Close()

	svc := service.NewSettlementSvc(
		repo, gw, pub,
		service.StaticFundAccounts(cfg.FundAccounts),
		cfg.PayoutAccount,
		time.Duration(cfg.PayoutDelayHrs)*time.Hour,
	)
	gate := service.NewIngestionGate(repo, svc, cfg.WebhookSecret)

	// contract.created -> gateway order
	cons := must(mq.NewConsumer(cfg.RabbitURL, cfg.BiddingExchange, cfg.ContractQueue, []string{"contract.created"}))
	defer cons.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	must(0, consumer.NewContractConsumer(repo, gw, cons).Run(ctx))

	// due payout sweep
	cr := cron.New()
	must(cr.AddFunc("@every "+cfg.PayoutSweep, func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer scancel()
		if n, err := svc.RunDuePayouts(sctx); err != nil {
			log.Printf("[settlement] payout sweep error: %v", err)
		} else if n > 0 {
			log.Printf("[settlement] payout sweep initiated %d payouts", n)
		}
	}))
	cr.Start()
	defer cr.Stop()

	srv := &http.Server{
		Addr:    cfg.WebhookHTTPAddr,
		Handler: httpx.NewWebhookServer(gate, svc).Routes(),
	}
	go func() {
		log.Println("[settlement] webhook http listening on", cfg.WebhookHTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	log.Println("[settlement] shutting down")
	shctx, shcancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shcancel()
	_ = srv.Shutdown(shctx)
}
