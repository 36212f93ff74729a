package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wadjakorntonsri/custom-links/pkg/core/domain"
	"github.com/wadjakorntonsri/custom-links/pkg/core/services"
)

var importFile string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every link as JSON to stdout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportLinks(cmd.Context(), service, cmd.OutOrStdout())
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Create links from a JSON export",
	Long: `Create links from a JSON export, creating owners as needed.

Paths that already exist are skipped. Links are recreated, so their
timestamps and access counts start fresh.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := os.Open(importFile)
		if err != nil {
			return fmt.Errorf("open %s: %w", importFile, err)
		}
		defer file.Close()

		res, err := importLinks(cmd.Context(), service, logger, file)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d links, skipped %d\n", res.Imported, res.Skipped)
		return nil
	},
}

func exportLinks(ctx context.Context, svc *services.LinkService, w io.Writer) error {
	links, err := svc.AllLinks(ctx)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(links)
}

type importResult struct {
	Imported int
	Skipped  int
}

// importLinks creates each decoded link. A link created with failed
// secondary updates still counts as imported.
func importLinks(ctx context.Context, svc *services.LinkService, logger *slog.Logger, r io.Reader) (importResult, error) {
	var res importResult
	var links []domain.Link
	if err := json.NewDecoder(r).Decode(&links); err != nil {
		return res, fmt.Errorf("decode failed: %w", err)
	}

	for _, l := range links {
		if l.Path == "" || l.Owner == "" {
			logger.Warn("skipping incomplete record", "path", l.Path, "owner", l.Owner)
			res.Skipped++
			continue
		}
		if _, err := svc.FindOrCreateUser(ctx, l.Owner); err != nil {
			return res, err
		}

		created, err := svc.CreateLink(ctx, l.Path, l.Target, l.Owner)
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			logger.Info("skipping existing link", "path", l.Path)
			res.Skipped++
		case created != nil:
			if err != nil {
				logger.Warn("imported with partial failure", "path", l.Path, "error", err)
			}
			res.Imported++
		default:
			return res, err
		}
	}
	return res, nil
}

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "JSON file to import")
	_ = importCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
