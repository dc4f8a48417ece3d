// Command voyago exercises the API access layer end to end: it bootstraps
// the client, fetches the home feed around a fixed point in Bengaluru and
// prints what each section resolved to. With no backend reachable the whole
// feed is served from the bundled seed dataset.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"voyago-client/internal/aggregate"
	"voyago-client/internal/apperrors"
	"voyago-client/internal/bootstrap"
	"voyago-client/internal/discovery"
	"voyago-client/internal/session"
)

func main() {
	// Missing .env is fine; environment variables still apply.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Run(ctx, bootstrap.Options{
		CredentialStore: session.NewFileStore(credentialPath()),
		Observer: session.ObserverFunc(func() {
			fmt.Println("session expired, please log in again")
		}),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap failed: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	if app.Offline {
		app.Logger.Info("running offline, feed will come from the seed dataset")
	}

	feedCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	res := app.Aggregator.HomeFeed(feedCtx, discovery.GeoQuery{
		Lat:      12.97,
		Lng:      77.59,
		RadiusKm: 5,
		Limit:    20,
	})

	res.Fold(
		func(bundle *aggregate.Bundle) {
			for section, records := range bundle.Sections {
				fmt.Printf("%-20s %d records\n", section, len(records))
			}
			for _, msg := range bundle.Errors {
				fmt.Printf("degraded: %s\n", msg)
			}
		},
		func(appErr *apperrors.AppError) {
			app.Logger.Error("home feed failed",
				zap.String("kind", string(appErr.Kind)),
				zap.String("debug", appErr.DebugMessage))
			fmt.Fprintln(os.Stderr, appErr.UserMessage)
			os.Exit(1)
		},
	)
}

func credentialPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".voyago-credentials.json"
	}
	return home + "/.voyago/credentials.json"
}
