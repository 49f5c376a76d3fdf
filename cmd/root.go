package cmd

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/config"
	"github.com/spf13/cobra"
)

var (
	cfg         *config.Config
	storeEngine string
)

var rootCmd = &cobra.Command{
	Use:   "scanner",
	Short: "Barcode inventory scanner",
	Long: `Scanner reads product barcodes from a camera or image files, resolves
them against the inventory and the Open Food Facts catalog, and records
confirmed products in the inventory store.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&storeEngine, "store", "", "Inventory store engine: memory, sqlite or mongo (overrides STORE_ENGINE)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(seedCmd)
}

func initConfig() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it: %v", err)
	}

	cfg = config.LoadConfig()
	if storeEngine != "" {
		cfg.Store.Engine = storeEngine
	}
}
