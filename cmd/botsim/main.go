package main

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mbit/botsim/internal/agent"
	"github.com/mbit/botsim/internal/config"
	"github.com/mbit/botsim/internal/eventbus"
	"github.com/mbit/botsim/internal/exchange"
	"github.com/mbit/botsim/internal/marketdata"
	"github.com/mbit/botsim/internal/provision"
	"github.com/mbit/botsim/internal/roster"
	"github.com/mbit/botsim/internal/sim"
	"github.com/mbit/botsim/internal/storage"
	"github.com/mbit/botsim/internal/types"
)

func main() {
	root := &cobra.Command{
		Use:   "botsim",
		Short: "Synthetic trading activity for the exchange",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			setupLogger()
		},
	}
	root.AddCommand(runCmd(), provisionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogger() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	if level, err := zerolog.ParseLevel(config.Load().LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the continuous trading simulation",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.Load()
			client := exchange.New(cfg.APIBaseURL, cfg.RequestTimeout)

			creds, err := roster.Load(cfg.RosterPath)
			if err != nil {
				log.Fatal().Err(err).Msg("Cannot load roster, run `botsim provision` first")
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			agents := buildAgents(ctx, creds, client, cfg.DryRun)
			if len(agents) == 0 {
				log.Fatal().Msg("No agent could authenticate")
			}
			log.Info().Int("agents", len(agents)).Msg("Roster logged in")

			var bus *eventbus.RedisEventBus
			if cfg.RedisAddr != "" {
				bus, err = eventbus.NewRedisEventBus(cfg.RedisAddr, cfg.EventStream)
				if err != nil {
					log.Fatal().Err(err).Msg("Failed to connect to Redis")
				}
				defer bus.Close()
			}

			var store *storage.PostgresStorage
			if cfg.PostgresURL != "" {
				store, err = storage.NewPostgres(cfg.PostgresURL)
				if err != nil {
					log.Fatal().Err(err).Msg("Failed to connect to database")
				}
				defer store.Close()
			}

			market := marketdata.New(client, cfg.SnapshotTTL, cfg.OrderbookTTL)
			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			simulator := sim.New(market, agents, rng, bus, store)

			// Stop after the current agent's action completes.
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigChan
				log.Info().Msg("Shutting down...")
				cancel()
			}()

			if err := simulator.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Fatal().Err(err).Msg("Simulation failed")
			}
		},
	}
}

// buildAgents authenticates the roster. Agents that cannot log in are
// excluded; they do not abort the run.
func buildAgents(ctx context.Context, creds []types.Credential, client *exchange.Client, dryRun bool) []*agent.Agent {
	agents := make([]*agent.Agent, 0, len(creds))
	for _, cred := range creds {
		a := agent.New(cred, client, dryRun)
		if err := a.Authenticate(ctx); err != nil {
			log.Warn().Err(err).Str("bot", cred.Username).Msg("Login failed, excluding agent")
			continue
		}
		if err := a.Resync(ctx); err != nil {
			log.Warn().Err(err).Str("bot", cred.Username).Msg("Initial portfolio sync failed")
		}
		agents = append(agents, a)
	}
	return agents
}

func provisionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "provision",
		Short: "Create and fund the bot accounts, then write the roster",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.Load()
			client := exchange.New(cfg.APIBaseURL, cfg.RequestTimeout)
			rng := rand.New(rand.NewSource(time.Now().UnixNano()))

			p := provision.New(client, cfg, rng)
			if err := p.Run(context.Background()); err != nil {
				log.Fatal().Err(err).Msg("Provisioning failed")
			}
		},
	}
}
