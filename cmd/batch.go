package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ocrmate/ocrmate/internal/annotate"
	"github.com/ocrmate/ocrmate/internal/schema"
	"github.com/ocrmate/ocrmate/internal/verify"
)

var (
	batchSchemaPath string
	batchLimit      int
)

// documentExtensions are the file types a batch run picks up from a directory.
var documentExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
}

var batchCmd = &cobra.Command{
	Use:   "batch <directory>",
	Short: "Verify every document in a directory concurrently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("verify"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, err := schema.Load(batchSchemaPath)
		if err != nil {
			return err
		}

		docs, err := collectDocuments(args[0], batchLimit)
		if err != nil {
			return err
		}

		verifier, err := buildVerifier()
		if err != nil {
			return err
		}

		store, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		return processBatch(ctx, docs, cfg.Batch.MaxConcurrentDocuments, store, func(ctx context.Context, path string) (*verify.DocumentVerification, error) {
			return verifier.VerifyDocument(ctx, path, s)
		})
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchSchemaPath, "schema", "schema.yaml", "path to the field schema")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of documents to process (0 = all)")
	rootCmd.AddCommand(batchCmd)
}

// collectDocuments lists supported document files in dir, sorted by name,
// truncated to limit when limit > 0.
func collectDocuments(dir string, limit int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "read directory %s", dir)
	}

	var docs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if documentExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			docs = append(docs, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(docs)

	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// verifyFunc is the callback signature for verifying a single document.
type verifyFunc func(ctx context.Context, path string) (*verify.DocumentVerification, error)

// processBatch verifies documents concurrently and persists each result.
// Individual failures are logged without aborting the batch.
func processBatch(ctx context.Context, docs []string, concurrency int, store annotate.Store, run verifyFunc) error {
	if len(docs) == 0 {
		zap.L().Info("no documents found")
		return nil
	}

	zap.L().Info("processing batch",
		zap.Int("documents", len(docs)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed, flagged atomic.Int64

	for _, doc := range docs {
		g.Go(func() error {
			log := zap.L().With(zap.String("document", doc))

			dv, err := run(gctx, doc)
			if err != nil {
				failed.Add(1)
				log.Error("verification failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			if store != nil {
				if err := store.SaveVerification(gctx, dv); err != nil {
					failed.Add(1)
					log.Error("save verification", zap.Error(err))
					return nil
				}
			}

			succeeded.Add(1)
			if dv.NeedsHumanReview {
				flagged.Add(1)
			}
			log.Info("document verified",
				zap.Float64("confidence", dv.OverallConfidence),
				zap.Float64("match_rate", dv.MatchRate),
				zap.Bool("needs_review", dv.NeedsHumanReview),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
		zap.Int64("flagged_for_review", flagged.Load()),
	)
	return nil
}
