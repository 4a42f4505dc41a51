package cmd

import (
	"clanaudit/internal/bot"
	"clanaudit/internal/clashapi"
	"clanaudit/internal/common"
	"clanaudit/internal/config"
	"clanaudit/internal/registry"
	"clanaudit/internal/roster"
	"fmt"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Discord bot",
	RunE: func(cmd *cobra.Command, args []string) error {

		cfg, err := config.Load(dotenvFile)
		if err != nil {
			return err
		}
		setupLogging(cfg.LogLevel)

		reg, err := registry.Load(cfg.FamilyConfig)
		if err != nil {
			return fmt.Errorf("loading family configuration: %w", err)
		}

		settings, err := bot.OpenSettings(cfg.SettingsFile)
		if err != nil {
			return fmt.Errorf("opening settings: %w", err)
		}

		// Values stored through bot commands win over environment defaults
		clanURL := settings.ClanAPIURL()
		if clanURL == "" {
			clanURL = cfg.ClanAPIURL
		}
		playerURL := settings.PlayerAPIURL()
		if playerURL == "" {
			playerURL = cfg.PlayerAPIURL
		}
		token := settings.AuthToken()
		if token == "" {
			token = cfg.APIToken
		}
		restrictions := []common.Restriction{{Requests: cfg.RateRequests, Duration: cfg.RateWindow}}
		client := clashapi.NewClient(clanURL, playerURL, token, restrictions)

		cache, err := roster.NewCache(cfg.CacheDir)
		if err != nil {
			return fmt.Errorf("opening roster cache: %w", err)
		}
		rosterService := roster.NewService(client, cache, settings)

		b := bot.New(cfg.DiscordToken, settings, reg, client, rosterService, cfg.RefreshInterval, cfg.MainCycle)
		return b.Run()
	},
}
