package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tandem/domain"
	"tandem/relay"
)

var (
	tokenTeam  string
	tokenAgent string
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a relay token for one agent",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenTeam, "team", "", "team name (defaults to sim.team)")
	tokenCmd.Flags().StringVar(&tokenAgent, "agent", "", "agent UUID (random when empty)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
}

func runToken(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, shutdown, err := setup(ctx, "tandem-token")
	if err != nil {
		return err
	}
	defer flush(ctx, shutdown)

	if cfg.Relay.Secret == "" {
		return errors.New("relay secret is empty; set relay.secret or RELAY_SECRET")
	}
	team := tokenTeam
	if team == "" {
		team = cfg.Sim.Team
	}
	id := domain.NewAgentID()
	if tokenAgent != "" {
		if id, err = domain.ParseAgentID(tokenAgent); err != nil {
			return err
		}
	}

	token, err := relay.IssueToken([]byte(cfg.Relay.Secret), team, id, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "agent: %s\nteam:  %s\ntoken: %s\n", id, team, token)
	return nil
}
