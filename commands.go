package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"oiko/internal/catalog"
	"oiko/internal/database"
	"oiko/internal/store"
)

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Create the MongoDB indexes and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, client, db, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.Background()) }()

		if err := database.EnsureIndexes(db); err != nil {
			return err
		}
		zap.L().Info("indexes ensured", zap.String("component", "main"), zap.String("db", db.Name()))
		return nil
	},
}

var seedFile string

// seedCmd loads a YAML catalog and upserts each product by slug, so running
// it twice leaves one copy of every product.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert products from a YAML catalog file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := os.Open(seedFile)
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		defer f.Close()

		products, err := catalog.Parse(f)
		if err != nil {
			return err
		}

		_, client, db, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.Background()) }()

		if err := database.EnsureIndexes(db); err != nil {
			return err
		}
		n, err := catalog.Seed(cmd.Context(), store.NewMongoProductStore(db), products)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products into %s\n", n, db.Name())
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "catalog.yaml", "catalog file to load")
}
