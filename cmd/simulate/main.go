// Command simulate replays a scenario script against an in-memory world and
// prints the capital registry after every step.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/kingdom-capitals/internal/config"
	"github.com/freeeve/kingdom-capitals/internal/model"
	"github.com/freeeve/kingdom-capitals/internal/repository/memory"
	"github.com/freeeve/kingdom-capitals/internal/repository/sqlite"
	"github.com/freeeve/kingdom-capitals/internal/service"
)

func main() {
	var (
		scenarioPath string
		seed         int64
		journalPath  string
		jsonOut      bool
		verbose      bool
	)

	flag.StringVar(&scenarioPath, "scenario", "scenarios/calradia.yaml", "Scenario YAML file")
	flag.Int64Var(&seed, "seed", 1, "Troop upgrade seed (0 = random)")
	flag.StringVar(&journalPath, "journal", "", "SQLite journal path (empty = in-memory only)")
	flag.BoolVar(&jsonOut, "json", false, "Print the final state as JSON")
	flag.BoolVar(&verbose, "v", false, "Log session internals")
	flag.Parse()

	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	settings := config.DefaultSettings()
	if err := env.Parse(&settings); err != nil {
		log.Fatal().Err(err).Msg("Invalid settings")
	}

	sc, err := memory.LoadScenario(scenarioPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Scenario load failed")
	}

	var out io.Writer = os.Stdout
	if jsonOut {
		out = io.Discard
	}

	opts := []service.Option{
		service.WithSeed(seed),
		service.WithNotifier(service.NotifierFunc(func(n model.Notification) {
			fmt.Fprintf(out, "  ! %s\n", n.Text)
		})),
	}
	if journalPath != "" {
		journal, err := sqlite.Open(journalPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", journalPath).Msg("Journal open failed")
		}
		defer journal.Close()
		opts = append(opts, service.WithJournal(journal))
	}

	world := memory.NewWorld(sc)
	r := &replayer{
		world:   world,
		session: service.NewSession(world, settings, opts...),
		out:     out,
	}

	ctx := context.Background()
	if err := r.run(ctx, sc.Script); err != nil {
		log.Fatal().Err(err).Msg("Replay failed")
	}

	if jsonOut {
		sum, err := r.summary(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Summary failed")
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(sum); err != nil {
			log.Fatal().Err(err).Msg("Encode summary failed")
		}
	}
}
