// Command hosttoken mints a bearer token for a host simulation. The secret comes
// from JWT_SECRET, the same variable the server reads.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/kingdom-capitals/internal/auth"
	"github.com/freeeve/kingdom-capitals/internal/config"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var (
		hostID string
		ttl    time.Duration
	)
	flag.StringVar(&hostID, "host", "", "Host id to embed in the token (required)")
	flag.DurationVar(&ttl, "ttl", auth.DefaultHostTokenTTL, "Token lifetime")
	flag.Parse()

	if hostID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	token, err := auth.NewJWTManager(cfg.JWTSecret).WithTTL(ttl).GenerateHostToken(hostID)
	if err != nil {
		log.Fatal().Err(err).Msg("Token generation failed")
	}
	fmt.Println(token)
}
