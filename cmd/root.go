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

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/lifelong-app/lifelong/pkg/environment"
	"github.com/lifelong-app/lifelong/pkg/logging"
	"github.com/lifelong-app/lifelong/pkg/version"
)

// NewRootCommand returns the root command with all subcommands attached.
func NewRootCommand(ctx context.Context, fs afero.Fs, env *environment.Environment, logger *logging.Logger) *cobra.Command {
	cobra.EnableCommandSorting = false
	rootCmd := &cobra.Command{
		Use:   "lifelong",
		Short: "Voice diary service.",
		Long: `Lifelong turns spoken recollections into illustrated diary entries. It
transcribes audio, rewrites the transcript into a warm first-person narrative,
pairs uploaded photos with the paragraphs they belong to, and keeps every
entry in a local store.`,
		Version:      version.String(),
		SilenceUsage: true,
	}
	rootCmd.AddCommand(NewServeCommand(ctx, fs, env, logger))
	rootCmd.AddCommand(NewEntriesCommand(ctx, fs, env, logger))

	return rootCmd
}
