package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	loadDotEnv()

	root := &cobra.Command{
		Use:   "monitor",
		Short: "Traffic-light telemetry backend",
		Long:  "Ingests traffic-light controller telemetry from the message bus and serves it back over HTTP.",
	}
	root.AddCommand(newWorkerCmd(), newAPICmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadDotEnv loads a .env file if one can be found - flexible path for
// both containers and local runs
func loadDotEnv() {
	envPaths := []string{
		".env",                     // Current working directory (works in pods/containers)
		"../../.env",               // If running from bin/ subdirectory
		filepath.Join(".", ".env"), // Explicit current dir
	}

	// Try to find .env file starting from current directory and moving up
	if workDir, err := os.Getwd(); err == nil {
		parentDir := filepath.Dir(workDir)
		grandParentDir := filepath.Dir(parentDir)

		envPaths = append(envPaths,
			filepath.Join(workDir, ".env"),
			filepath.Join(parentDir, ".env"),
			filepath.Join(grandParentDir, ".env"),
		)
	}

	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err == nil {
				absPath, _ := filepath.Abs(envPath)
				fmt.Printf("Loaded environment from: %s\n", absPath)
				return
			}
		}
	}

	fmt.Println("No .env file found, using system environment variables (OK for pods/containers)")
}

// runApp starts the fx application and blocks until an interrupt or
// termination signal arrives
func runApp(app *fx.App) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()

	if err := app.Start(startCtx); err != nil {
		if startCtx.Err() == context.DeadlineExceeded {
			fmt.Println("APPLICATION START TIMEOUT: a dependency (database or RabbitMQ) is probably not reachable; check the connection errors above")
		}
		return err
	}

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Println("error stopping app:", err)
		return err
	}
	return nil
}
