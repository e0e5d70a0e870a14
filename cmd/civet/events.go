// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"log/slog"
	"os"

	"github.com/blinklabs-io/civet/internal/config"
	"github.com/blinklabs-io/civet/internal/node"
	"github.com/spf13/cobra"
)

func eventsRun(cfg *config.Config, startSeq uint64, count int) {
	// Event records go to stdout, so logs go to stderr
	logger := commonRun(os.Stderr)

	if err := node.DumpEvents(cfg, logger, os.Stdout, startSeq, count); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func eventsCommand() *cobra.Command {
	var startSeq uint64
	var count int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Dump event log records as JSON lines (requires a stopped node)",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			eventsRun(cfg, startSeq, count)
		},
	}
	cmd.Flags().
		Uint64Var(&startSeq, "from", 1, "sequence number to start from")
	cmd.Flags().
		IntVar(&count, "count", 0, "maximum number of records to dump, 0 for all")
	return cmd
}
