package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/common-nighthawk/go-figure"

	"github.com/buchungsbutler/voiceagent/pkg/client"
	"github.com/buchungsbutler/voiceagent/pkg/session"
)

const appname = "voiceagent"

const usage = `usage: voiceagentctl [-api URL] [-session FILE] <command> [args]

commands:
  login -email E [-password P]    sign in and store the credential
  logout                          sign out and forget the credential
  register -company C -contact N -email E -password P -phone T -street S -number H -zip Z -city X
  whoami                          show the current session
  route PATH                      show what the route guard does with PATH
  stats                           tenant dashboard numbers
  appointments                    list appointments
  users                           list tenant users
  users add -email E -username U -password P
  admin stats                     platform numbers
  admin tenants [-status S]       list tenants
  admin approve|reject|suspend ID change a tenant's status
`

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	apiURL := flag.String("api", envOr("VOICEAGENT_API_URL", "http://localhost:8001"), "API base URL")
	sessionPath := flag.String("session", "", "credential file (default ~/.voiceagent/session.db)")
	quiet := flag.Bool("q", false, "suppress the banner")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if !*quiet {
		figure.NewFigure(appname, "cybermedium", true).Print()
		fmt.Println()
	}

	path, err := sessionFile(*sessionPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *apiURL, path, flag.Args()); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Detail != "" {
			fmt.Fprintf(os.Stderr, "error: %s (%d)\n", apiErr.Detail, apiErr.StatusCode)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// sessionFile returns the credential file: the flag value, or the default
// under the home directory.
func sessionFile(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w (pass -session)", err)
	}
	return filepath.Join(home, ".voiceagent", "session.db"), nil
}

func run(ctx context.Context, apiURL, sessionPath string, args []string) error {
	store, err := session.OpenBoltStore(sessionPath)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	p := session.NewProvider(client.New(apiURL), store)
	if err := p.Init(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "stored session discarded: %v\n", err)
	}

	cli := &cli{provider: p, out: os.Stdout}
	return cli.dispatch(ctx, args)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
