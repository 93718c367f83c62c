// Command sessionctl exercises the auth gateway from a terminal: it probes
// session state, fetches Kakao login URLs and replays the callback sequence
// the web client runs after the provider redirect.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/joho/godotenv"

	"famletter/internal/authstate"
	"famletter/internal/callback"
	"famletter/internal/platform/logging"
	"famletter/internal/probe"
	"famletter/internal/returnurl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	gateway := flag.String("gateway", envOr("FAMLETTER_GATEWAY_URL", "http://localhost:8080"), "auth gateway base URL")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "warn"), "log level")
	flag.Parse()

	logger := logging.New(*logLevel)

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	client := probe.New(*gateway)
	holder := authstate.New(client, logger)

	var err error
	switch cmd := flag.Arg(0); cmd {
	case "status":
		err = runStatus(ctx, holder)
	case "login-url":
		err = runLoginURL(ctx, client, flag.Arg(1))
	case "logout":
		err = runLogout(ctx, holder)
	case "complete":
		if flag.NArg() < 2 {
			err = errors.New("complete requires a callback URL argument")
			break
		}
		err = runComplete(ctx, client, holder, logger, flag.Arg(1))
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: sessionctl [flags] <command>

commands:
  status                 probe the current session and print the member
  login-url [returnUrl]  fetch the Kakao consent URL
  logout                 end the session on the gateway
  complete <url>         replay the post-login callback sequence for url`)
	flag.PrintDefaults()
}

func runStatus(ctx context.Context, holder *authstate.Holder) error {
	snapshot := holder.Bootstrap(ctx)
	if !snapshot.Authenticated {
		fmt.Println("not authenticated")
		return nil
	}

	user := snapshot.User
	fmt.Printf("authenticated as %s <%s>\n", user.Name, user.Email)
	if !user.ProfileComplete() {
		fmt.Println("profile incomplete")
	}
	return nil
}

func runLoginURL(ctx context.Context, client *probe.Client, returnPath string) error {
	loginURL, err := client.LoginURL(ctx, returnPath)
	if err != nil {
		return err
	}
	fmt.Println(loginURL)
	return nil
}

func runLogout(ctx context.Context, holder *authstate.Holder) error {
	holder.Logout(ctx)
	fmt.Println("logged out")
	return nil
}

func runComplete(ctx context.Context, client *probe.Client, holder *authstate.Holder, logger *slog.Logger, rawURL string) error {
	callbackURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse callback URL: %w", err)
	}

	coordinator := callback.New(callback.Config{
		Prober: client,
		Env:    terminalEnv{},
		Store:  returnurl.New(returnurl.NewMemoryStorage()),
		Auth:   holder,
		Logger: logger,
	})

	outcome := coordinator.Run(ctx, callbackURL)
	fmt.Printf("%s: %s\n", outcome.State, outcome.Message)
	if outcome.State != callback.StateSuccess {
		return errors.New("callback did not complete successfully")
	}
	return nil
}

// terminalEnv stands in for the browser window: there is no opener and
// navigation just prints the destination.
type terminalEnv struct{}

func (terminalEnv) InPopup() bool { return false }

func (terminalEnv) PostToOpener(callback.Message) error {
	return errors.New("no opener window")
}

func (terminalEnv) CloseWindow() error {
	return errors.New("not a scripted window")
}

func (terminalEnv) Navigate(path string) {
	fmt.Println("navigate:", path)
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
