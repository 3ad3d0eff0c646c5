package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tandem/adapter/inproc"
	adapterwebsocket "tandem/adapter/websocket"
	"tandem/application"
	"tandem/arena"
	"tandem/config"
	"tandem/domain"
	"tandem/internal/agentloop"
	"tandem/relay"
)

var (
	simTicks    int64
	simSeed     uint64
	simRelayURL string
)

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Run a headless two-versus-one arena match",
	Long: `Runs two coordinating agents against a rule-based opponent. Team reports
travel over a lossy in-process bus, or over the relay when --relay is set.`,
	RunE: runSim,
}

func init() {
	simCmd.Flags().Int64Var(&simTicks, "ticks", 0, "maximum ticks (overrides sim.ticks)")
	simCmd.Flags().Uint64Var(&simSeed, "seed", 0, "random seed (overrides sim.seed)")
	simCmd.Flags().StringVar(&simRelayURL, "relay", "", "relay websocket URL, e.g. ws://localhost:9090/ws")
}

func runSim(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, shutdown, err := setup(ctx, "tandem-sim")
	if err != nil {
		return err
	}
	defer flush(ctx, shutdown)

	if cmd.Flags().Changed("ticks") {
		cfg.Sim.Ticks = simTicks
	}
	if cmd.Flags().Changed("seed") {
		cfg.Sim.Seed = simSeed
	}
	if simRelayURL != "" {
		cfg.Sim.RelayURL = simRelayURL
	}

	opts := arena.Options{
		Field: arena.Field{
			Width:     cfg.Sim.Width,
			Height:    cfg.Sim.Height,
			Footprint: cfg.Sim.Footprint,
		},
		Seed:     cfg.Sim.Seed,
		SkipRate: cfg.Sim.SkipRate,
		Tuning:   cfg.Tuning(),
		Bus: inproc.Options{
			DropRate:      cfg.Sim.DropRate,
			DuplicateRate: cfg.Sim.DuplicateRate,
		},
		Logger: slog.Default(),
	}

	if cfg.Sim.RelayURL == "" {
		return playMatch(ctx, cmd, opts, cfg.Sim.Ticks)
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, connCtx := errgroup.WithContext(connCtx)
	loops, err := dialRelay(connCtx, cfg, eg)
	if err != nil {
		return err
	}
	opts.Loops = loops

	matchErr := playMatch(ctx, cmd, opts, cfg.Sim.Ticks)
	for _, l := range loops {
		if err := l.DrainTimeout(time.Second); err != nil {
			slog.WarnContext(ctx, "agent loop did not drain", "err", err)
		}
	}
	cancel()
	if err := eg.Wait(); err != nil {
		slog.WarnContext(ctx, "relay connection ended with error", "err", err)
	}
	return matchErr
}

// dialRelay はチームの2体分の接続とエージェントのループを用意します。
// 受信ループと Forward は eg で動かします。
func dialRelay(ctx context.Context, cfg config.Config, eg *errgroup.Group) ([]*agentloop.Loop, error) {
	if cfg.Relay.Secret == "" {
		return nil, errors.New("relay secret is empty; set relay.secret or RELAY_SECRET")
	}
	var loops []*agentloop.Loop
	var conns []*domain.Connection
	fail := func(err error) ([]*agentloop.Loop, error) {
		for _, c := range conns {
			c.Close()
		}
		return nil, err
	}
	for i := range arena.TeamSize {
		name := fmt.Sprintf("agent-%d", i+1)
		id := domain.NewAgentID()
		token, err := relay.IssueToken([]byte(cfg.Relay.Secret), cfg.Sim.Team, id, time.Hour)
		if err != nil {
			return fail(err)
		}
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		transport, err := adapterwebsocket.Dial(dialCtx, cfg.Sim.RelayURL, token)
		cancel()
		if err != nil {
			return fail(err)
		}
		conn := domain.NewConnection(id, transport, cfg.Relay.QueueSize)
		conns = append(conns, conn)

		logger := slog.Default().With("bot", name)
		agent, err := application.NewAgent(application.Config{
			ID:          id,
			Broadcaster: conn,
			Tuning:      cfg.Tuning(),
			Logger:      logger,
		})
		if err != nil {
			return fail(err)
		}
		loop, err := agentloop.New(agentloop.Config{
			Agent:     agent,
			Logger:    logger,
			OnOutcome: logCommand(logger),
		})
		if err != nil {
			return fail(err)
		}
		if err := loop.Start(ctx); err != nil {
			return fail(err)
		}

		inbox := make(chan domain.Report, 64)
		eg.Go(func() error {
			return conn.Run(ctx, inbox)
		})
		eg.Go(func() error {
			return loop.Forward(ctx, inbox)
		})
		loops = append(loops, loop)
	}
	return loops, nil
}

// logCommand は何か指示を出した tick だけをデバッグログに残します。
func logCommand(logger *slog.Logger) func(context.Context, application.Outcome) {
	return func(ctx context.Context, out application.Outcome) {
		if out.Command.IsZero() {
			return
		}
		logger.DebugContext(ctx, "command issued",
			"role", out.Role,
			"waypoint", out.Waypoint.Kind,
			"ahead", out.Command.Ahead,
			"fire", out.Command.Fire,
		)
	}
}

func playMatch(ctx context.Context, cmd *cobra.Command, opts arena.Options, ticks int64) error {
	a, err := arena.New(opts)
	if err != nil {
		return err
	}
	res, err := a.Run(ctx, ticks)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	winner := "none"
	if res.Finished {
		winner = res.Winner.String()
	}
	fmt.Fprintf(out, "ticks: %d  winner: %s  hits: %d  rams: %d\n", res.Ticks, winner, res.Hits, res.Rams)

	names := make([]string, 0, len(res.Energies))
	for name := range res.Energies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-10s energy %6.1f", name, res.Energies[name])
		if st, ok := res.Stats[name]; ok {
			fmt.Fprintf(out, "  sent %d  failed %d  stale %d  skipped %d",
				st.Broadcasts, st.BroadcastFailures, st.StaleReports, st.SkippedTicks)
		}
		fmt.Fprintln(out)
	}
	return nil
}
