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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/blinklabs-io/civet/database/types"
	"github.com/prometheus/client_golang/prometheus"
)

// defaultTimeout bounds individual S3 calls when no timeout option was
// given
const defaultTimeout = 60 * time.Second

// Store stores data in an AWS S3 bucket
type Store struct {
	promRegistry prometheus.Registerer
	logger       *S3Logger
	client       *s3.Client
	metrics      *blobMetrics
	bucket       string
	prefix       string
	region       string
	endpoint     string
	timeout      time.Duration
}

// parseS3Path splits an "s3://<bucket>[/prefix]" path into bucket and key
// prefix. The returned prefix always carries a trailing slash when non-empty.
func parseS3Path(dataDir string) (string, string, error) {
	const scheme = "s3://"
	if !strings.HasPrefix(dataDir, scheme) {
		return "", "", errors.New(
			"s3 blob: expected dataDir='s3://<bucket>[/prefix]'",
		)
	}

	path := strings.TrimPrefix(dataDir, scheme)
	if path == "" {
		return "", "", errors.New("s3 blob: bucket not set")
	}

	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		return "", "", errors.New("s3 blob: invalid S3 path (missing bucket)")
	}

	bucket := parts[0]
	keyPrefix := ""
	if len(parts) > 1 && parts[1] != "" {
		keyPrefix = strings.TrimSuffix(parts[1], "/")
		if keyPrefix != "" {
			keyPrefix += "/"
		}
	}
	return bucket, keyPrefix, nil
}

// New creates a new S3-backed blob store and dataDir must be "s3://bucket" or "s3://bucket/prefix"
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*Store, error) {
	bucket, keyPrefix, err := parseS3Path(dataDir)
	if err != nil {
		return nil, err
	}

	return NewWithOptions(
		WithBucket(bucket),
		WithPrefix(keyPrefix),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
}

// NewWithOptions creates a new S3-backed blob store using options. The
// AWS credential chain is not touched until Start
func NewWithOptions(opts ...OptionFunc) (*Store, error) {
	db := &Store{}
	for _, opt := range opts {
		opt(db)
	}
	if db.logger == nil {
		db.logger = NewS3Logger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	}
	return db, nil
}

// opContext returns a context bounding a single S3 call
func (d *Store) opContext() (context.Context, context.CancelFunc) {
	timeout := d.timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}

// Start implements the plugin.Plugin interface. It loads the AWS
// credential chain and builds the S3 client
func (d *Store) Start() error {
	if d.bucket == "" {
		return errors.New("s3 blob: bucket not set")
	}

	ctx, cancel := d.opContext()
	defer cancel()
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("s3 blob: load default AWS config: %w", err)
	}
	if d.region != "" {
		awsCfg.Region = d.region
	}

	d.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if d.endpoint != "" {
			// Custom endpoints (e.g. minio) generally want path-style keys
			o.BaseEndpoint = aws.String(d.endpoint)
			o.UsePathStyle = true
		}
	})

	if d.promRegistry != nil {
		d.registerBlobMetrics()
	}
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *Store) Stop() error {
	// S3 client doesn't need explicit closing
	return nil
}

// Close implements the BlobStore interface.
func (d *Store) Close() error {
	return d.Stop()
}

// NewTransaction returns a lightweight transaction wrapper.
func (d *Store) NewTransaction(readWrite bool) types.Txn {
	return &s3Txn{store: d, readWrite: readWrite}
}

// Get retrieves a value from S3 within a transaction
func (d *Store) Get(txn types.Txn, key []byte) ([]byte, error) {
	if _, err := d.validateTxn(txn); err != nil {
		return nil, err
	}
	ctx, cancel := d.opContext()
	defer cancel()
	data, err := d.getInternal(ctx, string(key))
	if err != nil {
		if isS3NotFound(err) {
			return nil, types.ErrBlobKeyNotFound
		}
		return nil, err
	}
	return data, nil
}

// Set stores a key-value pair in S3 within a transaction
func (d *Store) Set(txn types.Txn, key, val []byte) error {
	t, err := d.validateTxn(txn)
	if err != nil {
		return err
	}
	if err := t.assertWritable(); err != nil {
		return err
	}
	ctx, cancel := d.opContext()
	defer cancel()
	if err := d.Put(ctx, string(key), val); err != nil {
		return err
	}
	return nil
}

// Delete removes a key from S3 within a transaction
func (d *Store) Delete(txn types.Txn, key []byte) error {
	t, err := d.validateTxn(txn)
	if err != nil {
		return err
	}
	if err := t.assertWritable(); err != nil {
		return err
	}
	ctx, cancel := d.opContext()
	defer cancel()
	_, err = d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.fullKey(string(key))),
	})
	if err != nil {
		if isS3NotFound(err) {
			return types.ErrBlobKeyNotFound
		}
		d.logger.Errorf("s3 delete %q failed: %v", string(key), err)
		return err
	}
	d.observeOp(0)
	return nil
}

// NewIterator creates an iterator over a snapshot of the keys listed at
// creation time. See types.BlobIterator for the item lifetime rules
func (d *Store) NewIterator(
	txn types.Txn,
	opts types.BlobIteratorOptions,
) types.BlobIterator {
	if _, err := d.validateTxn(txn); err != nil {
		return &s3ErrorIterator{err: err}
	}
	keys, err := d.listKeys(opts)
	if err != nil {
		d.logger.Errorf("s3 list failed: %v", err)
		return &s3Iterator{
			store:   d,
			keys:    []string{},
			reverse: opts.Reverse,
			err:     err,
			txn:     txn,
		}
	}
	return &s3Iterator{store: d, keys: keys, reverse: opts.Reverse, txn: txn}
}

// isS3NotFound matches both the typed NoSuchKey error and the generic
// API error code, since which one surfaces depends on the call
func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
		return true
	}
	var noSuchKey *s3types.NoSuchKey
	return errors.As(err, &noSuchKey)
}

// fullKey prepends the configured key prefix
func (d *Store) fullKey(key string) string {
	return d.prefix + key
}

// getInternal reads the value at key.
func (d *Store) getInternal(
	ctx context.Context,
	key string,
) ([]byte, error) {
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.fullKey(key)),
	})
	if err != nil {
		if !isS3NotFound(err) {
			d.logger.Errorf("s3 get %q failed: %v", key, err)
		}
		return nil, err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		d.logger.Errorf("s3 read %q failed: %v", key, err)
		return nil, err
	}
	d.observeOp(len(data))
	d.logger.Infof("s3 get %q ok (%d bytes)", key, len(data))
	return data, nil
}

// Put writes a value to key.
func (d *Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.fullKey(key)),
		Body:   bytes.NewReader(value),
	})
	if err != nil {
		d.logger.Errorf("s3 put %q failed: %v", key, err)
		return err
	}
	d.observeOp(len(value))
	d.logger.Infof("s3 put %q ok (%d bytes)", key, len(value))
	return nil
}

// GetEventURL returns a presigned URL for fetching an event log record
// directly from S3. The URL expires after one minute.
func (d *Store) GetEventURL(seq uint64) (*url.URL, error) {
	if d.client == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	key := d.fullKey(string(types.EventBlobKey(seq)))

	presignClient := s3.NewPresignClient(d.client)
	presignedURL, err := presignClient.PresignGetObject(
		context.TODO(),
		&s3.GetObjectInput{
			Bucket: aws.String(d.bucket),
			Key:    aws.String(key),
		},
		s3.WithPresignExpires(time.Minute))
	if err != nil {
		return nil, fmt.Errorf("s3: failed to generate presigned url: %w", err)
	}

	u, err := url.Parse(presignedURL.URL)
	if err != nil {
		return nil, fmt.Errorf("s3: failed to parse presigned url: %w", err)
	}

	return u, nil
}
