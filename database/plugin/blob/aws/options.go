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

package aws

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OptionFunc configures a Store before Start connects it
// to the bucket
type OptionFunc func(*Store)

// WithLogger sets the logger used for messages from the store
func WithLogger(logger *slog.Logger) OptionFunc {
	return func(b *Store) {
		b.logger = NewS3Logger(logger)
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

// WithBucket sets the S3 bucket name
func WithBucket(bucket string) OptionFunc {
	return func(b *Store) {
		b.bucket = bucket
	}
}

// WithRegion overrides the AWS region from the ambient configuration
func WithRegion(region string) OptionFunc {
	return func(b *Store) {
		b.region = region
	}
}

// WithPrefix sets a key prefix that is prepended to every object name
func WithPrefix(prefix string) OptionFunc {
	return func(b *Store) {
		b.prefix = prefix
	}
}

// WithTimeout sets the per-operation timeout, which also bounds AWS
// config loading at startup
func WithTimeout(timeout time.Duration) OptionFunc {
	return func(b *Store) {
		b.timeout = timeout
	}
}

// WithEndpoint points the client at a custom S3 endpoint. This is mostly
// useful for testing against a fake S3 such as minio
func WithEndpoint(endpoint string) OptionFunc {
	return func(b *Store) {
		b.endpoint = endpoint
	}
}
