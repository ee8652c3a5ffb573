// Copyright 2026 Kdeps, KvK 94834768
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/lifelong-app/lifelong/pkg/environment"
	"github.com/lifelong-app/lifelong/pkg/logging"
	"github.com/lifelong-app/lifelong/pkg/store"
)

// NewEntriesCommand groups the diary entry maintenance subcommands.
func NewEntriesCommand(ctx context.Context, fs afero.Fs, env *environment.Environment, logger *logging.Logger) *cobra.Command {
	entriesCmd := &cobra.Command{
		Use:     "entries",
		Aliases: []string{"e"},
		Short:   "Inspect and manage stored diary entries",
	}
	entriesCmd.AddCommand(newEntriesListCommand(ctx, fs, env, logger))
	entriesCmd.AddCommand(newEntriesShowCommand(ctx, fs, env, logger))
	entriesCmd.AddCommand(newEntriesDeleteCommand(ctx, fs, env, logger))

	return entriesCmd
}

func newEntriesListCommand(ctx context.Context, fs afero.Fs, env *environment.Environment, logger *logging.Logger) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored entries, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := store.Open(env.DatabasePath(), env.BlobDir(), fs, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			previews, err := st.ListEntryPreviews(ctx)
			if err != nil {
				return err
			}
			if len(previews) == 0 {
				cmd.Println("No entries yet.")
				return nil
			}
			for _, p := range previews {
				when := humanize.Time(time.UnixMilli(p.Timestamp))
				cmd.Printf("%s  %s  (%s)\n", p.ID, p.Date, when)
			}
			return nil
		},
	}
}

func newEntriesShowCommand(ctx context.Context, fs afero.Fs, env *environment.Environment, logger *logging.Logger) *cobra.Command {
	return &cobra.Command{
		Use:     "show [id]",
		Example: "$ lifelong entries show entry-1756400000000-a1b2c3d4e",
		Short:   "Print one entry as JSON",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(env.DatabasePath(), env.BlobDir(), fs, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			entry, err := st.GetEntry(ctx, args[0])
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(entry, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to render entry: %w", err)
			}
			cmd.Println(string(out))
			return nil
		},
	}
}

func newEntriesDeleteCommand(ctx context.Context, fs afero.Fs, env *environment.Environment, logger *logging.Logger) *cobra.Command {
	return &cobra.Command{
		Use:     "delete [id]",
		Aliases: []string{"rm"},
		Short:   "Delete an entry and its associated images",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(env.DatabasePath(), env.BlobDir(), fs, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.DeleteEntry(ctx, args[0]); err != nil {
				return err
			}
			cmd.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}
