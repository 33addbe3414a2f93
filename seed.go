package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"social-service/config"
	"social-service/repo"
	"social-service/util"
)

func newSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import a data file into Neo4j",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger, err := util.NewLogger(cfg.Mode, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if file == "" {
				file = cfg.DataFile
			}
			ds, err := repo.LoadDataset(file)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := repo.NewNeo4jStore(repo.Neo4jOptions{
				URI:      cfg.Neo4j.URI,
				Username: cfg.Neo4j.Username,
				Password: cfg.Neo4j.Password,
			}, logger)
			if err != nil {
				return fmt.Errorf("connect to neo4j: %w", err)
			}
			defer store.Close(ctx)

			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}
			return store.Import(ctx, ds)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "data file to import (default: data_file from config)")
	return cmd
}
