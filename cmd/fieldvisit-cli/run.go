package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	fieldvisit "github.com/goliatone/go-fieldvisit"
	"github.com/goliatone/go-fieldvisit/internal/googleapi"
	"github.com/goliatone/go-fieldvisit/pkg/submission"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start an interactive visit and submit it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.SheetID == "" {
			return fmt.Errorf("sheet_id is required (config file or %s_SHEET_ID)", envPrefix)
		}
		steps, err := loadSteps(cfg)
		if err != nil {
			return err
		}
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		ctx := cmd.Context()

		var opts []option.ClientOption
		if cfg.CredentialsFile != "" {
			opts = append(opts,
				option.WithCredentialsFile(cfg.CredentialsFile),
				option.WithScopes(sheets.SpreadsheetsScope, drive.DriveScope),
			)
		}
		tabular, err := googleapi.NewSheetsStore(ctx, opts...)
		if err != nil {
			return err
		}
		files, err := googleapi.NewDriveStore(ctx, opts...)
		if err != nil {
			return err
		}

		app, err := fieldvisit.New(fieldvisit.Config{
			Tabular:      tabular,
			Files:        files,
			TableID:      cfg.SheetID,
			RootFolderID: cfg.RootFolderID,
			Steps:        steps,
			Logger:       logger,
		})
		if err != nil {
			return err
		}

		sess, err := app.Collect(ctx)
		if errors.Is(err, fieldvisit.ErrAborted) {
			fmt.Println("Visit discarded.")
			return nil
		}
		if err != nil {
			return err
		}

		assets, err := readAssets(sess)
		if err != nil {
			return err
		}

		row, err := app.Submit(ctx, sess, assets)
		if err != nil {
			return fmt.Errorf("submit visit: %w", err)
		}
		fmt.Printf("Visit recorded: %d fields, %d files uploaded.\n", len(row), len(assets))
		return nil
	},
}

// readAssets loads the bytes of every file staged during the wizard.
func readAssets(sess *fieldvisit.Session) ([]fieldvisit.AssetFile, error) {
	var out []fieldvisit.AssetFile
	for _, asset := range sess.Assets() {
		data, err := os.ReadFile(asset.LocalName)
		if err != nil {
			return nil, fmt.Errorf("read attachment %s: %w", asset.LocalName, err)
		}
		name := filepath.Base(asset.LocalName)
		out = append(out, fieldvisit.AssetFile{
			LocalName: asset.LocalName,
			MIMEType:  submission.DetectMIME(name),
			Data:      data,
		})
	}
	return out, nil
}
