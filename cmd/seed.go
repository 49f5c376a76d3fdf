package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrops-br/inventory-scanner/internal/infrastructure/repository"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/seed"
	"github.com/spf13/cobra"
)

var seedFile string

var errSeedNotPersistent = errors.New("seed needs a persistent store: set STORE_ENGINE or --store to sqlite or mongo")

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load products from CSV into the inventory",
	Long: `Load products from a CSV file with the columns upc, name, brand,
quantity and image into the inventory store. Without --file a built-in
sample inventory is loaded.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "CSV file to import")
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if cfg.Store.Engine == "" || cfg.Store.Engine == repository.EngineMemory {
		return errSeedNotPersistent
	}

	records, err := seed.ParseFile(seedFile)
	if err != nil {
		return err
	}

	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.close(context.Background()); err != nil {
			app.logger.Error("Error during shutdown", "error", err.Error())
		}
	}()

	n, err := seed.Load(ctx, app.inventory, records, app.logger)
	if err != nil {
		return fmt.Errorf("seed failed after %d records: %w", n, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d products into %s store\n", n, cfg.Store.Engine)
	return nil
}
