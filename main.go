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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/lifelong-app/lifelong/cmd"
	"github.com/lifelong-app/lifelong/pkg/environment"
	"github.com/lifelong-app/lifelong/pkg/logging"
)

func main() {
	fs := afero.NewOsFs()
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// A missing .env file is fine, real deployments use the environment.
	_ = godotenv.Load()

	logger := logging.New()

	env, err := environment.NewEnvironment(fs)
	if err != nil {
		logger.Error("failed to set up environment", "error", err)
		os.Exit(1)
	}

	rootCmd := cmd.NewRootCommand(ctx, fs, env, logger)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
