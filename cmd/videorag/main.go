// Command videorag runs the video ingestion and question answering service,
// either as an HTTP server or as one-shot CLI operations.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"videorag/config"
	"videorag/rag"
	"videorag/server"
	"videorag/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "videorag",
		Short:         "Ingest videos into a searchable knowledge base and answer questions about them",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the configuration file")

	buildService := func(ctx context.Context) (*rag.Service, *config.Config, error) {
		// Missing .env is fine; real deployments set env vars directly.
		_ = godotenv.Load()
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, nil, err
		}
		store, err := storage.New(ctx, cfg.Store, cfg.OpenAI.EmbeddingDim)
		if err != nil {
			return nil, nil, fmt.Errorf("init %s store: %w", cfg.Store.Type, err)
		}
		logger := log.New(os.Stderr, "videorag ", log.LstdFlags)
		return rag.NewFromConfig(cfg, store, logger), cfg, nil
	}

	root.AddCommand(newServeCmd(buildService))
	root.AddCommand(newIngestCmd(buildService))
	root.AddCommand(newQueryCmd(buildService))
	root.AddCommand(newCleanupCmd(buildService))
	return root
}

type serviceBuilder func(ctx context.Context) (*rag.Service, *config.Config, error)

func newServeCmd(build serviceBuilder) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, cfg, err := build(ctx)
			if err != nil {
				return err
			}
			logger := log.New(os.Stderr, "videorag ", log.LstdFlags)
			srv := &http.Server{
				Addr:    cfg.Server.Addr,
				Handler: server.New(svc, logger),
			}
			errCh := make(chan error, 1)
			go func() {
				logger.Printf("listening on %s (store=%s)", cfg.Server.Addr, cfg.Store.Type)
				errCh <- srv.ListenAndServe()
			}()
			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logger.Printf("shutting down")
				return srv.Shutdown(context.Background())
			}
		},
	}
}

func newIngestCmd(build serviceBuilder) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "ingest <video-path>",
		Short: "Ingest one video into a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := build(cmd.Context())
			if err != nil {
				return err
			}
			return svc.Ingest(cmd.Context(), sessionID, args[0])
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id partitioning the stored records")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func newQueryCmd(build serviceBuilder) *cobra.Command {
	var sessionID string
	var topK int
	var threshold float64
	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Answer a question from a session's indexed segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := build(cmd.Context())
			if err != nil {
				return err
			}
			opts := rag.QueryOptions{TopK: topK}
			if cmd.Flags().Changed("threshold") {
				opts.SimilarityThreshold = &threshold
			}
			answer, err := svc.Query(cmd.Context(), sessionID, args[0], opts)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(answer, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id to query")
	cmd.Flags().IntVar(&topK, "top-k", 0, "maximum number of evidence items (default from config)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum similarity in [0,1]")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func newCleanupCmd(build serviceBuilder) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete every record stored for a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := build(cmd.Context())
			if err != nil {
				return err
			}
			return svc.Cleanup(cmd.Context(), sessionID)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id to delete")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}
