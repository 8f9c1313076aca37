package config

import (
	"github.com/kelseyhightower/envconfig"
)

// App holds the bidding-service configuration. The settlement and
// notification services keep their own Cfg structs next to their mains.
type App struct {
	// DB
	PGForgeDSN string `envconfig:"PG_FORGE_DSN" required:"true"`
	// Auth
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
	// MQ
	RabbitURL       string `envconfig:"RABBIT_URL" required:"true"`
	BiddingExchange string `envconfig:"BIDDING_EXCHANGE" default:"bidding.exchange"`
	// Lifecycle policy
	ShortlistTopK int    `envconfig:"SHORTLIST_TOP_K" default:"5"`
	SweepEvery    string `envconfig:"BIDDING_SWEEP_EVERY" default:"1m"`
	// Collaborators
	DocgenBaseURL string `envconfig:"DOCGEN_BASE_URL" default:""`
	// Network
	BiddingHTTPAddr string `envconfig:"BIDDING_HTTP_ADDR" default:":8080"`
}

func Load() (App, error) {
	var c App
	err := envconfig.Process("", &c)
	return c, err
}
