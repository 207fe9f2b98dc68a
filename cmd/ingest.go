package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"vidcompress/models"
	"vidcompress/storage"
)

func IngestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Upload a source video to the temporary bucket with the metadata the pipeline expects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dest, _ := cmd.Flags().GetString("dest")
			uploader, _ := cmd.Flags().GetString("uploader")

			prefix, err := storage.ParseLocation(dest)
			if err != nil {
				return err
			}

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer file.Close()

			info, err := file.Stat()
			if err != nil {
				return fmt.Errorf("failed to stat %s: %w", args[0], err)
			}

			name := filepath.Base(args[0])
			loc := prefix.Join(uuid.NewString() + "/" + name)
			metadata := uploadMetadata(name, info.Size(), uploader, time.Now())

			router, err := a.Storage(ctx)
			if err != nil {
				return err
			}
			if err := router.Put(ctx, loc, file, metadata); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), loc.String())
			return nil
		},
	}

	defaultUploader := os.Getenv("USER")
	if defaultUploader == "" {
		defaultUploader = "unknown"
	}
	cmd.Flags().String("dest", "s3://"+a.cfg.TempBucket+"/uploads/", "Destination prefix")
	cmd.Flags().String("uploader", defaultUploader, "Uploader recorded with the video")
	return cmd
}

// uploadMetadata is the user metadata the completion handler reads back from the job.
func uploadMetadata(name string, size int64, uploader string, now time.Time) map[string]string {
	return map[string]string{
		models.MetaOriginalFileName:    name,
		models.MetaOriginalSize:        strconv.FormatInt(size, 10),
		models.MetaUploader:            uploader,
		models.MetaProcessingStartTime: now.UTC().Format(time.RFC3339),
	}
}
