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
	"github.com/lifelong-app/lifelong/pkg/llmclient"
	"github.com/lifelong-app/lifelong/pkg/logging"
	"github.com/lifelong-app/lifelong/pkg/mapper"
	"github.com/lifelong-app/lifelong/pkg/narrative"
	"github.com/lifelong-app/lifelong/pkg/server"
	"github.com/lifelong-app/lifelong/pkg/store"
	"github.com/lifelong-app/lifelong/pkg/transcribe"
)

// NewServeCommand creates the 'serve' command and wires the HTTP pipeline.
func NewServeCommand(ctx context.Context, fs afero.Fs, env *environment.Environment, logger *logging.Logger) *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Example: "$ lifelong serve",
		Short:   "Run the diary API server",
		RunE: func(_ *cobra.Command, _ []string) error {
			model, err := llmclient.New(ctx, env)
			if err != nil {
				return err
			}

			st, err := store.Open(env.DatabasePath(), env.BlobDir(), fs, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			srv := server.New(server.Config{
				Generator:   narrative.NewGenerator(model, logger),
				Mapper:      mapper.NewMapper(model, logger),
				Transcriber: transcribe.New(env.ElevenLabsAPIKey, env.ElevenLabsModel, logger),
				Store:       st,
				Logger:      logger,
			})

			logger.Info("starting server", "addr", env.ListenAddr(), "backend", env.LLMBackend)
			return srv.Run(ctx, env.ListenAddr())
		},
	}
}
