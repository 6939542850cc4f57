package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"cropadvisor/adapters/excel"
	"cropadvisor/adapters/sqlstore"
	"cropadvisor/internal/farmers"
	"cropadvisor/internal/migration"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	var databaseURL string
	rootCmd := &cobra.Command{
		Use:          "cropadvisor-migrate",
		Short:        "Apply the crop advisor schema and import farmer rosters",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "postgres:// or sqlite:// database URL")

	rootCmd.AddCommand(newUpCmd(&databaseURL), newImportCmd(&databaseURL))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newUpCmd(databaseURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Create the farmers and recommendations tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(cmd.Context(), *databaseURL)
		},
	}
}

func migrate(ctx context.Context, databaseURL string) error {
	if databaseURL == "" {
		return fmt.Errorf("--database-url or DATABASE_URL is required")
	}
	db, err := sqlstore.Open(databaseURL, 1, 0)
	if err != nil {
		return err
	}
	defer db.Close()

	runner := migration.NewRunner()
	start := time.Now()
	if err := runner.Run(ctx, db); err != nil {
		return err
	}
	log.Printf("Schema %s applied in %s", runner.Version(), time.Since(start).Round(time.Millisecond))
	return nil
}

func newImportCmd(databaseURL *string) *cobra.Command {
	var maxRows int

	cmd := &cobra.Command{
		Use:   "import-farmers [file]",
		Short: "Import a CSV or XLSX farmer roster (name, contact, location, crops_grown, notes)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migrate(cmd.Context(), *databaseURL); err != nil {
				return err
			}
			table, err := excel.ReadFile(args[0], maxRows)
			if err != nil {
				return err
			}

			db, err := sqlstore.Open(*databaseURL, 1, 0)
			if err != nil {
				return err
			}
			defer db.Close()

			service := farmers.NewService(sqlstore.NewFarmerRepository(db), 0, nil)
			summary, err := service.Import(cmd.Context(), table)
			if err != nil {
				return err
			}
			log.Printf("Imported %d farmers, skipped %d already registered", summary.Imported, summary.Skipped)
			for _, line := range summary.Errors {
				log.Printf("  %s", line)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxRows, "max-rows", 5000, "maximum number of roster rows")
	return cmd
}
