// Command finchpool-demo is the only caller that exercises the
// viper-backed poolcfg loader end to end: load config, install rotating
// structured logging, build a Pool, issue a request, print its status.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/gofinch/connpool/conn"
	"github.com/gofinch/connpool/driver"
	"github.com/gofinch/connpool/internal/poollog"
	"github.com/gofinch/connpool/metrics"
	"github.com/gofinch/connpool/pool"
	"github.com/gofinch/connpool/poolcfg"
)

func main() {
	if err := poollog.Setup(poollog.Config{
		Level:      "info",
		FilePath:   "finchpool-demo.log",
		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 7,
	}); err != nil {
		log.Fatal().Err(err).Msg("logging setup")
	}

	cfg, err := poolcfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	pcfg, err := cfg.Build()
	if err != nil {
		log.Fatal().Err(err).Msg("build pool config")
	}
	pcfg.Registry = metrics.Default

	p := pool.New(pcfg)
	defer p.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	req := &conn.Request{Method: http.MethodGet, Path: "/"}
	fold := func(part conn.Part, acc any) (any, bool, error) {
		return acc, false, nil
	}
	if _, err := driver.Request(ctx, p, req, nil, fold, driver.Options{}); err != nil {
		log.Error().Err(err).Msg("request failed")
	}

	statuses, err := driver.GetPoolStatus(metrics.Default, p.Name(), p.Origin().String())
	if err != nil {
		log.Error().Err(err).Msg("status unavailable")
		return
	}
	for _, s := range statuses {
		log.Info().
			Int64("available", s.Available).
			Int64("in_use", s.InUse).
			Int64("avg_checkout_us", s.AvgCheckoutUS).
			Int64("max_checkout_us", s.MaxCheckoutUS).
			Int64("avg_usage_us", s.AvgUsageUS).
			Int64("max_usage_us", s.MaxUsageUS).
			Msg("pool status")
	}
}
