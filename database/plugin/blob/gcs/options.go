// Copyright 2025 Blink Labs Software
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

package gcs

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OptionFunc configures a Store before Start connects
// it to the bucket
type OptionFunc func(*Store)

// WithLogger sets the logger used for messages from the store
func WithLogger(logger *slog.Logger) OptionFunc {
	return func(b *Store) {
		b.logger = NewGcsLogger(logger)
	}
}

// WithPromRegistry sets the prometheus registry that store metrics are
// registered on
func WithPromRegistry(
	registry prometheus.Registerer,
) OptionFunc {
	return func(b *Store) {
		b.promRegistry = registry
	}
}

// WithBucket sets the GCS bucket name
func WithBucket(bucket string) OptionFunc {
	return func(b *Store) {
		b.bucketName = bucket
	}
}

// WithCredentialsFile sets the service account credentials file. An
// empty value means default application credentials
func WithCredentialsFile(credentialsFile string) OptionFunc {
	return func(b *Store) {
		b.credentialsFile = credentialsFile
	}
}

// WithTimeout sets the per-operation timeout
func WithTimeout(timeout time.Duration) OptionFunc {
	return func(b *Store) {
		b.timeout = timeout
	}
}
