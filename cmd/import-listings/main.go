// Command import-listings drives a resumable listing import from the
// terminal: uploads the CSV, steps through it batch by batch, and renders
// progress. The first interrupt pauses the import; a second one cancels it.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"directory-import-api/client"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var (
		file        = flag.String("file", "", "path to the CSV file to import (required)")
		server      = flag.String("server", envOr("IMPORT_SERVER", "http://localhost:8080"), "base URL of the directory import API")
		token       = flag.String("token", os.Getenv("IMPORT_TOKEN"), "bearer token for the API")
		dryRun      = flag.Bool("dry-run", false, "classify rows without writing to the store")
		createTerms = flag.Bool("create-terms", false, "create missing category terms during the import")
	)
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	c := client.New(client.Config{
		BaseURL:  *server,
		Token:    *token,
		Reporter: &client.LogReporter{},
	})

	// First SIGINT pauses so the operator can confirm; the second cancels.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		c.Pause()
		log.Println("Import paused. Press Ctrl-C again to cancel, or send SIGUSR1 to resume.")
		resumeCh := make(chan os.Signal, 1)
		signal.Notify(resumeCh, syscall.SIGUSR1)
		select {
		case <-sigCh:
			c.Cancel()
		case <-resumeCh:
			c.Resume()
			go func() {
				<-sigCh
				c.Cancel()
			}()
		}
	}()

	err := c.Run(context.Background(), *file, client.Options{
		DryRun:             *dryRun,
		CreateMissingTerms: *createTerms,
	})
	if err != nil {
		os.Exit(1)
	}
	if c.State() == client.StateCancelled {
		os.Exit(130)
	}
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
