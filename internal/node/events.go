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

package node

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/civet/database"
	"github.com/blinklabs-io/civet/internal/config"
)

// eventJson is the output shape for a single dumped event record. It
// matches the REST API event representation.
type eventJson struct {
	Seq       uint64 `json:"seq"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Payload   any    `json:"payload"`
}

// DumpEvents opens the database directly and writes event log records as
// JSON lines, one record per line, starting at startSeq. A count of zero
// dumps all records through the end of the log. This runs against a node's
// data directory while the node is stopped.
func DumpEvents(
	cfg *config.Config,
	logger *slog.Logger,
	out io.Writer,
	startSeq uint64,
	count int,
) error {
	// Load database
	db, err := database.New(&database.Config{
		DataDir:        cfg.DatabasePath,
		Logger:         logger,
		BlobPlugin:     cfg.BlobPlugin,
		MetadataPlugin: cfg.MetadataPlugin,
		MaxConnections: cfg.DatabaseMaxConns,
	})
	if db == nil {
		return errors.New("failed to create database: empty database returned")
	}
	defer db.Close() //nolint:errcheck
	if err != nil {
		// The event log lives in the blob store, so a commit timestamp
		// mismatch does not block reading it
		var dbErr database.CommitTimestampError
		if !errors.As(err, &dbErr) {
			return fmt.Errorf("failed to open database: %w", err)
		}
		logger.Warn(
			"database needs recovery, event log may be ahead of state",
			"error", err,
			"component", "node",
		)
	}

	iter := db.EventsFrom(startSeq)
	defer iter.Close()
	encoder := json.NewEncoder(out)
	var dumped int
	for {
		if count > 0 && dumped >= count {
			break
		}
		next, err := iter.Next()
		if err != nil {
			return fmt.Errorf("failed to read event log: %w", err)
		}
		// No more records
		if next == nil {
			break
		}
		payload, err := next.DecodePayloadGeneric()
		if err != nil {
			return fmt.Errorf(
				"failed to decode event %d payload: %w",
				next.Seq,
				err,
			)
		}
		if err := encoder.Encode(eventJson{
			Seq:       next.Seq,
			Type:      next.Type,
			Timestamp: next.Timestamp,
			Payload:   payload,
		}); err != nil {
			return fmt.Errorf("failed to write event %d: %w", next.Seq, err)
		}
		dumped++
	}
	logger.Info(
		fmt.Sprintf("dumped %d event(s) from the event log", dumped),
		"component", "node",
	)
	return nil
}
