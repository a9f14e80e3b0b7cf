package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/catalog/internal/export"
)

var exportCmd = &cobra.Command{
	Use:               "export",
	Short:             "Export every document and global as JSONL",
	Long:              "Export every document and global as JSONL to stdout, a file, or the configured S3 bucket.",
	GroupID:           "system",
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		out, _ := cmd.Flags().GetString("output")
		toS3, _ := cmd.Flags().GetBool("s3")

		cfg, docs, st, err := openDocs(logger)
		if err != nil {
			return err
		}
		defer st.Close()
		ctx := context.Background()

		var dests []export.Destination
		switch {
		case toS3:
			if cfg.S3Bucket == "" {
				return fmt.Errorf("--s3 requires CATALOG_S3_BUCKET")
			}
			d, err := export.NewS3Destination(ctx, cfg.S3Bucket, cfg.ExportS3Key, cfg.S3Region, cfg.S3Endpoint)
			if err != nil {
				return err
			}
			dests = append(dests, d)
		case out != "" && out != "-":
			dests = append(dests, &export.FileDestination{Path: out})
		default:
			dests = append(dests, &export.WriterDestination{W: os.Stdout, Label: "stdout"})
		}

		n, err := export.Run(ctx, docs, dests)
		if err != nil {
			return err
		}
		logger.Info("export complete", "bytes", n, "destination", dests[0].Name())
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")
	exportCmd.Flags().Bool("s3", false, "upload to CATALOG_S3_BUCKET at CATALOG_EXPORT_S3_KEY")
}
