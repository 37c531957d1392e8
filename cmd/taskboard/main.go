// Package main implements the taskboard CLI.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"taskboard/internal/api"
	"taskboard/internal/config"
	"taskboard/internal/session"
	"taskboard/internal/store"
	"taskboard/internal/tokenstore"
	"taskboard/internal/tracing"
	"taskboard/internal/ui"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), ui.Error("error: "+api.Message(err)))
		os.Exit(1)
	}
}

// app holds the client components shared by every command.
type app struct {
	configPath string
	apiURL     string
	logLevel   string

	logger   *slog.Logger
	tokens   session.TokenStore
	session  *session.Session
	projects *store.Projects
	tasks    *store.Tasks

	closers []func(context.Context) error
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "taskboard",
		Short:         "Manage taskboard projects and tasks from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to config file (default ~/.config/taskboard/config.toml)")
	root.PersistentFlags().StringVar(&a.apiURL, "api", "", "Backend base URL")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newProjectCmd(a),
		newTaskCmd(a),
		newUserCmd(a),
	)
	return root
}

// setup builds the client stack from config, environment and flags, in increasing
// precedence.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.APIURL = a.apiURL
	}
	if a.logLevel != "" {
		if _, err := config.ParseLevel(a.logLevel); err != nil {
			return err
		}
		cfg.LogLevel = a.logLevel
	}
	a.logger = config.Logger(cmd.ErrOrStderr(), cfg.LogLevel)

	shutdown, err := tracing.Init(cmd.Context(), a.logger, "taskboard")
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	switch cfg.Token.Backend {
	case config.TokenBackendRedis:
		ttl, _ := cfg.Token.TTL()
		rs, err := tokenstore.NewRedis(cfg.Token.RedisURL, cfg.Token.RedisKey, ttl)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func(context.Context) error { return rs.Close() })
		a.tokens = rs
	case config.TokenBackendMemory:
		a.tokens = tokenstore.NewMemory("")
	default:
		a.tokens = tokenstore.NewFile(cfg.Token.Path)
	}

	timeout, _ := cfg.TimeoutDuration()
	client := api.NewClient(cfg.APIURL, a.tokens, api.WithTimeout(timeout), api.WithLogger(a.logger))
	a.session = session.New(client, a.tokens, session.WithLogger(a.logger))
	a.projects = store.NewProjects(client, store.WithLogger(a.logger))
	a.tasks = store.NewTasks(client, client, store.WithLogger(a.logger))
	return nil
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func encodeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
