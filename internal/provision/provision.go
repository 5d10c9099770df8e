// Package provision creates and funds the bot accounts. Runs once,
// before the simulation, against the admin endpoints.
package provision

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mbit/botsim/internal/config"
	"github.com/mbit/botsim/internal/exchange"
	"github.com/mbit/botsim/internal/roster"
	"github.com/mbit/botsim/internal/types"
)

type Provisioner struct {
	client *exchange.Client
	cfg    *config.Config
	rng    *rand.Rand
}

func New(client *exchange.Client, cfg *config.Config, rng *rand.Rand) *Provisioner {
	return &Provisioner{client: client, cfg: cfg, rng: rng}
}

// Run provisions all bots and writes the roster file. An admin login
// failure aborts; a single bot failing only skips that bot.
func (p *Provisioner) Run(ctx context.Context) error {
	log.Info().Str("admin", p.cfg.AdminUsername).Msg("Logging in as admin")
	admin, err := p.client.Login(ctx, p.cfg.AdminUsername, p.cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("admin login: %w", err)
	}

	stocks, err := p.client.Stocks(ctx)
	if err != nil {
		return fmt.Errorf("fetch stocks: %w", err)
	}
	var active []exchange.Stock
	for _, st := range stocks {
		if st.IsActive {
			active = append(active, st)
		}
	}
	if len(active) == 0 {
		return fmt.Errorf("no active stocks to seed portfolios from")
	}
	log.Info().Int("stocks", len(active)).Msg("Found active stocks")

	var creds []types.Credential
	for i := 1; i <= p.cfg.RetailBots; i++ {
		if cred, err := p.setupBot(ctx, admin.Token, active, types.Retail, i); err != nil {
			log.Warn().Err(err).Int("index", i).Msg("Skipping retail bot")
		} else {
			creds = append(creds, cred)
		}
	}
	for i := 1; i <= p.cfg.BandarBots; i++ {
		if cred, err := p.setupBot(ctx, admin.Token, active, types.Bandar, i); err != nil {
			log.Warn().Err(err).Int("index", i).Msg("Skipping bandar bot")
		} else {
			creds = append(creds, cred)
		}
	}

	if err := roster.Save(p.cfg.RosterPath, creds); err != nil {
		return err
	}
	log.Info().Int("bots", len(creds)).Str("path", p.cfg.RosterPath).Msg("Provisioning complete")
	return nil
}

func (p *Provisioner) setupBot(ctx context.Context, adminToken string, stocks []exchange.Stock, role types.Archetype, index int) (types.Credential, error) {
	username := fmt.Sprintf("bot_%s_%d", strings.ToLower(string(role)), index)
	fullName := fmt.Sprintf("Bot %s %d", capitalize(string(role)), index)

	userID, err := p.ensureAccount(ctx, username, fullName)
	if err != nil {
		return types.Credential{}, err
	}

	cash := p.randRange(p.cfg.RetailCashMin, p.cfg.RetailCashMax)
	if role == types.Bandar {
		cash = p.randRange(p.cfg.BandarCashMin, p.cfg.BandarCashMax)
	}
	if err := p.client.SetBalance(ctx, adminToken, userID, cash, "Initial Bot Funding"); err != nil {
		log.Warn().Err(err).Str("bot", username).Msg("Cash funding failed")
	} else {
		log.Info().Str("bot", username).Int64("amount", cash).Msg("Funded cash")
	}

	// Seed a random subset of stocks into the portfolio. Grant failures
	// (such as a fully diluted stock) are skipped.
	count := 1 + p.rng.Intn(len(stocks))
	for _, idx := range p.rng.Perm(len(stocks))[:count] {
		st := stocks[idx]
		lots := p.randRange(p.cfg.RetailLotsMin, p.cfg.RetailLotsMax)
		if role == types.Bandar {
			lots = p.randRange(p.cfg.BandarLotsMin, p.cfg.BandarLotsMax)
		}
		if err := p.client.GrantShares(ctx, adminToken, userID, st.ID, lots, "Initial Bot Stock Grant"); err != nil {
			log.Debug().Err(err).Str("bot", username).Str("symbol", st.Symbol).Msg("Share grant skipped")
			continue
		}
		log.Info().Str("bot", username).Str("symbol", st.Symbol).Int64("lots", lots).Msg("Granted shares")
	}

	return types.Credential{
		Username: username,
		Password: p.cfg.BotPassword,
		Role:     role,
		ID:       userID,
	}, nil
}

// ensureAccount logs in if the bot already exists, otherwise registers it.
func (p *Provisioner) ensureAccount(ctx context.Context, username, fullName string) (int, error) {
	if res, err := p.client.Login(ctx, username, p.cfg.BotPassword); err == nil {
		log.Info().Str("bot", username).Int("id", res.User.ID).Msg("Account already exists")
		return res.User.ID, nil
	}

	res, err := p.client.Register(ctx, username, p.cfg.BotPassword, fullName)
	if err != nil {
		return 0, fmt.Errorf("register %s: %w", username, err)
	}
	log.Info().Str("bot", username).Int("id", res.User.ID).Msg("Created account")
	return res.User.ID, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func (p *Provisioner) randRange(min, max int64) int64 {
	if max <= min {
		return min
	}
	return min + p.rng.Int63n(max-min+1)
}
