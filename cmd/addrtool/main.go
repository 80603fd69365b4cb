// Command addrtool runs address and parcel maintenance tasks against the
// address map database.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/addressmap/internal/app"
	"github.com/stwalsh4118/addressmap/internal/config"
	"github.com/stwalsh4118/addressmap/internal/database"
	"github.com/stwalsh4118/addressmap/internal/logger"
	"github.com/stwalsh4118/addressmap/internal/repository"
)

// toolEnv is what a command needs to do its work.
type toolEnv struct {
	svc   *app.Services
	close func()
}

// opener builds a toolEnv from the env file named on the command line.
type opener func(ctx context.Context, envFile string) (*toolEnv, error)

func main() {
	if err := newRootCmd(openDatabase).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(open opener) *cobra.Command {
	envFile := ""
	root := &cobra.Command{
		Use:           "addrtool",
		Short:         "Address map maintenance tasks.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&envFile, "env-file", "e", ".env", "Environment file read before the process environment.")

	withRuntime := func(fn func(cmd *cobra.Command, args []string, rt *toolEnv) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			rt, err := open(cmd.Context(), envFile)
			if err != nil {
				return err
			}
			defer rt.close()
			return fn(cmd, args, rt)
		}
	}

	root.AddCommand(
		newImportCmd(withRuntime),
		newLoadParcelsCmd(withRuntime),
		newTestAddressesCmd(withRuntime),
	)
	return root
}

func openDatabase(ctx context.Context, envFile string) (*toolEnv, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.NewWithOptions(logger.Options{
		Env:    cfg.Server.Env,
		Level:  cfg.Server.LogLevel,
		Output: os.Stderr,
	})

	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &toolEnv{
		svc:   app.New(cfg, repository.NewStore(db.Pool), log),
		close: db.Close,
	}, nil
}
