package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/aretw0/transferdesk"
	"github.com/aretw0/transferdesk/internal/adapters/file"
	"github.com/aretw0/transferdesk/internal/config"
	"github.com/aretw0/transferdesk/internal/logging"
	"github.com/aretw0/transferdesk/internal/metrics"
	"github.com/aretw0/transferdesk/internal/presentation/tui"
	"github.com/aretw0/transferdesk/pkg/adapters/memory"
	"github.com/aretw0/transferdesk/pkg/adapters/redis"
	"github.com/aretw0/transferdesk/pkg/domain"
	"github.com/aretw0/transferdesk/pkg/ports"
	"github.com/aretw0/transferdesk/pkg/store"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"golang.org/x/time/rate"
)

// app is one console wired from cfg for the lifetime of a command.
type app struct {
	console *transferdesk.Console
	metrics *metrics.Metrics
	logger  *slog.Logger
	out     io.Writer
	render  func(string) (string, error)
	closers []func() error
}

func newApp(cmd *cobra.Command) (*app, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.New(level, cfg.Log.Format)
	plain, _ := cmd.Flags().GetBool("plain")

	a := &app{
		metrics: metrics.New(),
		logger:  logger,
		out:     cmd.OutOrStdout(),
		render:  tui.NewRenderer(plain),
	}

	opts := []transferdesk.Option{
		transferdesk.WithLogger(logger),
		transferdesk.WithHooks(a.metrics.Hooks()),
		transferdesk.WithTokenWriteHook(a.metrics.ObserveTokenWrite),
		transferdesk.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		transferdesk.WithFlashLimit(cfg.FlashLimit),
	}
	if cfg.API.RateLimit > 0 {
		opts = append(opts, transferdesk.WithRateLimit(rate.Limit(cfg.API.RateLimit), cfg.API.Burst))
	}
	if cfg.API.PushPath != "" {
		opts = append(opts, transferdesk.WithPushRegistration(cfg.API.PushPath))
	}

	storage, err := a.tokenStorage(&opts)
	if err != nil {
		return nil, err
	}
	opts = append(opts, transferdesk.WithTokenStorage(storage))

	console, err := transferdesk.New(cfg.API.BaseURL, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.console = console
	a.console.Start(cmd.Context())
	return a, nil
}

func (a *app) tokenStorage(opts *[]transferdesk.Option) (ports.TokenStorage, error) {
	switch cfg.Tokens.Backend {
	case config.BackendMemory:
		return memory.NewTokenStore(), nil
	case config.BackendFile:
		return file.New(cfg.Tokens.Path), nil
	case config.BackendRedis:
		s := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Tokens.TTL),
		)
		a.closers = append(a.closers, s.Close)
		if cfg.Redis.Locks {
			*opts = append(*opts, transferdesk.WithDistributedLocker(redis.NewLocker(s.Client(), cfg.Redis.Prefix)))
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown token backend %q", cfg.Tokens.Backend)
}

// Close stops the console and releases backends.
func (a *app) Close() {
	if a.console != nil {
		a.console.Close()
	}
	for _, c := range a.closers {
		_ = c()
	}
}

// run dispatches a trigger, waits for its flow and turns the flow's failure
// into an error. Flash messages raised on the way are printed.
func (a *app) run(ctx context.Context, t domain.ActionType, payload any, flow domain.Flow) (store.State, error) {
	before := len(a.console.State().Flash)
	st, err := a.console.Do(ctx, t, payload)
	if err != nil {
		return st, err
	}
	if before < len(st.Flash) {
		for _, msg := range st.Flash[before:] {
			fmt.Fprintln(a.out, tui.Flash(msg))
		}
	}
	if msg := st.Request(flow).Error; msg != "" {
		return st, errors.New(msg)
	}
	return st, nil
}

// requireLogin fails unless the stored session was restored.
func (a *app) requireLogin() error {
	if a.console.State().Auth != domain.StateLoggedIn {
		return errors.New("not logged in, run `transferdesk login` first")
	}
	return nil
}

func (a *app) print(markdown string) error {
	out, err := a.render(markdown)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(a.out, out)
	return err
}

var stdin *bufio.Reader

// prompt reads a line from the command's input. Secret prompts do not echo
// when stdin is a terminal.
func prompt(cmd *cobra.Command, label string, secret bool) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	if secret && cmd.InOrStdin() == os.Stdin && term.IsTerminal(int(os.Stdin.Fd())) {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		return string(b), err
	}
	if stdin == nil {
		stdin = bufio.NewReader(cmd.InOrStdin())
	}
	line, err := stdin.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
