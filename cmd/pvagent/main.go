// Command pvagent is the interactive PV-curve dialogue agent: it shows the
// current simulation parameters, reads a message, runs it through the
// workflow engine, and prints the response, looping until quit.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/CURENT/pv-curve-llm/agent/config"
	"github.com/CURENT/pv-curve-llm/agent/db"
	"github.com/CURENT/pv-curve-llm/agent/dialogue"
	"github.com/CURENT/pv-curve-llm/agent/dialogue/adapters"
	"github.com/CURENT/pv-curve-llm/agent/dialogue/ports"
	"github.com/CURENT/pv-curve-llm/agent/params"
	"github.com/CURENT/pv-curve-llm/agent/retrieval"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "pvagent:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig(os.Getenv("PVAGENT_CONFIG"))
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Logging)

	// Engine wiring is fixed at startup; a config edit adjusts the log level
	// live and anything else on the next run.
	cfg.Watch(func(next *config.Config) {
		if level, err := zerolog.ParseLevel(next.Logging.Level); err == nil {
			zerolog.SetGlobalLevel(level)
		}
		logger.Info().Msg("configuration reloaded")
	}, func(err error) {
		logger.Warn().Err(err).Msg("configuration reload skipped")
	})

	var conn *sql.DB
	if cfg.Database.Enabled {
		conn, err = db.Connect(cfg.Database.Path, logger)
		if err != nil {
			return fmt.Errorf("session database unavailable: %w", err)
		}
		defer conn.Close()
		if err := retrieval.NewFTSIndex(conn).Seed(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("could not seed the snippet index")
		}
	}

	engine, err := dialogue.NewFactory(cfg, conn, logger).CreateEngine()
	if err != nil {
		return err
	}

	var store ports.SessionStore
	if conn != nil {
		store = adapters.NewLibSQLSessionStore(conn)
	}
	return repl(engine, store, logger)
}

func repl(engine *dialogue.Engine, store ports.SessionStore, logger zerolog.Logger) error {
	fmt.Println("Welcome to the PV Curve Agent! Type 'quit' or 'q' to exit.")

	var state dialogue.State
	if prev := os.Getenv("PVAGENT_SESSION"); prev != "" {
		resumed, err := engine.ResumeState(context.Background(), prev)
		if err != nil {
			return err
		}
		state = resumed
		logger.Info().Str("session_id", prev).Int("turns", state.TurnCount()).Msg("session resumed")
	} else {
		state = engine.NewState()
		logger.Info().Str("session_id", state.SessionID).Msg("session started")
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		divider()
		fmt.Println("Current parameters:")
		printParams(state.Params)
		divider()

		fmt.Print("\nMessage: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if lower := strings.ToLower(input); lower == "quit" || lower == "q" {
			fmt.Printf("Session %s: %d turns recorded.\n", state.SessionID, state.TurnCount())
			if store != nil {
				if stats, err := store.Stats(context.Background(), state.SessionID); err == nil && stats.TurnCount > 0 {
					fmt.Printf("Persisted %d turns (%s .. %s).\n",
						stats.TurnCount, stats.FirstTurn, stats.LatestTurn)
				}
			}
			break
		}

		next, reply, err := engine.Process(context.Background(), input, state)
		if err != nil {
			// Only caller misuse reaches here; the session state is intact.
			logger.Error().Err(err).Msg("turn rejected")
			continue
		}
		state = next

		fmt.Println()
		fmt.Println(reply)
	}
	return scanner.Err()
}

func printParams(set params.Set) {
	for _, name := range params.Names() {
		v, err := set.Value(name)
		if err != nil {
			continue
		}
		fmt.Printf("  %-15s %v\n", name, v)
	}
}

func divider() {
	fmt.Println(strings.Repeat("-", 60))
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	// The level is applied globally so a config reload can adjust it without
	// rebuilding the logger.
	zerolog.SetGlobalLevel(level)

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.With().Timestamp().Logger()
}
