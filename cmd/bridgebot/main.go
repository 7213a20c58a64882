// Command bridgebot joins a bridge game and plays random allowed actions.
// It exercises the full client stack the way any consumer does: it reads
// only the view's reconciled state and submits through the submitter,
// leaving all state changes to the event channel.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"bridgeclient/internal/bridge"
	"bridgeclient/internal/config"
	"bridgeclient/internal/protocol"
	"bridgeclient/internal/table"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	gameArg := flag.String("game", "", "game UUID to join (created when empty)")
	name := flag.String("name", "bridgebot", "bot name, determines the player identity")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Fatal().Err(err).Str("level", cfg.Log.Level).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *gameArg, *name); err != nil {
		log.Fatal().Err(err).Msg("bridgebot failed")
	}
}

func run(ctx context.Context, cfg *config.Config, gameArg, name string) error {
	// The same name always yields the same player identity, so a
	// restarted bot reclaims its seat.
	player := uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))

	client, err := protocol.Connect(protocol.Config{
		URL:            cfg.NATS.URL,
		CommandPrefix:  cfg.Protocol.CommandPrefix,
		EventPrefix:    cfg.Protocol.EventPrefix,
		RequestTimeout: cfg.Protocol.RequestTimeout.Std(),
		MaxReconnects:  cfg.Protocol.MaxReconnects,
		ReconnectWait:  cfg.Protocol.ReconnectWait.Std(),
	}, player)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close()

	var game uuid.UUID
	if gameArg == "" {
		game, err = client.CreateGame(ctx)
		if err != nil {
			return fmt.Errorf("create game: %w", err)
		}
		log.Info().Str("game", game.String()).Msg("created game")
	} else {
		game, err = uuid.Parse(gameArg)
		if err != nil {
			return fmt.Errorf("parse game id: %w", err)
		}
	}

	game, position, err := client.Join(ctx, game, nil)
	if err != nil {
		return fmt.Errorf("join game: %w", err)
	}
	log.Info().
		Str("game", game.String()).
		Str("position", string(position)).
		Str("player", player.String()).
		Msg("joined game")

	view := table.NewView(table.ViewConfig{
		Fetcher: client,
		Actions: client,
		Feed: table.EventFeedFunc(func(ctx context.Context, game uuid.UUID) (table.Subscription, error) {
			return client.Subscribe(game)
		}),
		Reporter:       table.LogReporter{},
		Notifier:       table.LogNotifier{},
		ResyncDebounce: cfg.Table.ResyncDebounce.Std(),
	})
	if err := view.Open(ctx, game); err != nil {
		return err
	}
	defer view.Close()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return nil
		case <-view.Updates():
			if err := playTurn(ctx, view); err != nil {
				return err
			}
		}
	}
}

// playTurn plays one random allowed action when the bot has the turn.
// Anything submitted against a view that has meanwhile gone stale comes
// back as a legality conflict and resolves itself through a resync.
func playTurn(ctx context.Context, view *table.View) error {
	state := view.State()
	if state == nil || !state.Self.HasTurn() {
		return nil
	}
	if cards := state.Self.AllowedCards; len(cards) > 0 {
		card := cards[rand.IntN(len(cards))]
		log.Info().
			Str("rank", string(card.Rank)).
			Str("suit", string(card.Suit)).
			Msg("playing card")
		return view.SubmitCard(ctx, card)
	}
	calls := state.Self.AllowedCalls
	call := calls[rand.IntN(len(calls))]
	logCall(call)
	return view.SubmitCall(ctx, call)
}

func logCall(call bridge.Call) {
	ev := log.Info().Str("call", string(call.Type))
	if call.Bid != nil {
		ev = ev.Int("level", call.Bid.Level).Str("strain", string(call.Bid.Strain))
	}
	ev.Msg("making call")
}
