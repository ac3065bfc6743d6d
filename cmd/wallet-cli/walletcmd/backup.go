/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package walletcmd

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trustbloc/vcwallet/pkg/backup"
)

const (
	toFlagName   = "to"
	fromFlagName = "from"

	s3Scheme = "s3"
)

func newBackupCmd() *cobra.Command {
	var location string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Writes the credentials and sharing history to an encrypted backup",
		Long: "Writes the credentials and sharing history to a backup encrypted with a key derived from the " +
			"mnemonic. The location is a file path or s3://<bucket>/<key>.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithServices(cmd, func(ctx context.Context, svc *services) (interface{}, error) {
				b, name, err := newBackupService(ctx, svc, location)
				if err != nil {
					return nil, err
				}

				return b.Export(ctx, name)
			})
		},
	}

	cmd.Flags().StringVar(&location, toFlagName, "", "backup location: file path or s3://<bucket>/<key>")

	_ = cmd.MarkFlagRequired(toFlagName)

	return cmd
}

func newRestoreCmd() *cobra.Command {
	var location string

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restores credentials and sharing history from a backup made with the same mnemonic",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithServices(cmd, func(ctx context.Context, svc *services) (interface{}, error) {
				b, name, err := newBackupService(ctx, svc, location)
				if err != nil {
					return nil, err
				}

				return b.Restore(ctx, name)
			})
		},
	}

	cmd.Flags().StringVar(&location, fromFlagName, "", "backup location: file path or s3://<bucket>/<key>")

	_ = cmd.MarkFlagRequired(fromFlagName)

	return cmd
}

// newBackupService returns the backup service for location and the archive name within its sink.
func newBackupService(ctx context.Context, svc *services, location string) (*backup.Service, string, error) {
	cfg := &backup.Config{
		Credentials: svc.credentials,
		History:     svc.history,
		Sealer:      svc.backupSealer,
		Sink:        backup.FileSink{},
	}

	if !strings.HasPrefix(location, s3Scheme+"://") {
		return backup.NewService(cfg), location, nil
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, "", fmt.Errorf("parse backup location: %w", err)
	}

	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return nil, "", fmt.Errorf("backup location %s: expected s3://<bucket>/<key>", location)
	}

	client, err := backup.NewS3Client(ctx, svc.s3Region, svc.s3Endpoint)
	if err != nil {
		return nil, "", err
	}

	cfg.Sink = backup.NewS3Sink(client, u.Host)

	return backup.NewService(cfg), key, nil
}
