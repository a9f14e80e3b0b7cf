package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/catalog/internal/client"
)

var uploadCmd = &cobra.Command{
	Use:     "upload <collection> <file> [key=value...]",
	Short:   "Upload a file into an upload collection",
	GroupID: "documents",
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := parseWhere(args[2:])
		if err != nil {
			return err
		}
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()

		contentType, _ := cmd.Flags().GetString("content-type")
		if contentType == "" {
			contentType = mime.TypeByExtension(filepath.Ext(args[1]))
		}

		doc, err := apiClient.Upload(context.Background(), args[0], &client.UploadRequest{
			Filename:    filepath.Base(args[1]),
			ContentType: contentType,
			Body:        f,
			Fields:      fields,
		})
		if err != nil {
			return fmt.Errorf("uploading %s: %w", args[1], err)
		}
		if jsonOutput {
			return printJSON(doc)
		}
		fmt.Printf("Uploaded %s/%s %s\n", args[0], doc.ID, formatValue(doc.Data["url"]))
		return nil
	},
}

func init() {
	uploadCmd.Flags().String("content-type", "", "MIME type (default: guessed from the file extension)")
}
