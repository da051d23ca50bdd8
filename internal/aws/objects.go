// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectAPI is the subset of the S3 client used by ObjectStore.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3v2.GetObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3v2.PutObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.PutObjectOutput, error)
}

// ObjectStore persists cache files as objects in an S3 bucket. File names
// are mapped to keys beneath Prefix using their slash form.
type ObjectStore struct {
	Client ObjectAPI
	Bucket string
	Prefix string
}

// ReadFile returns the object stored for name, or nil data and a nil error if
// there is none.
func (s *ObjectStore) ReadFile(ctx context.Context, name string) ([]byte, error) {
	key := s.key(name)
	out, err := s.Client.GetObject(ctx, &s3v2.GetObjectInput{
		Bucket: awsv2.String(s.Bucket),
		Key:    awsv2.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			log.Debugf("no object s3://%s/%s", s.Bucket, key)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", s.Bucket, key, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", s.Bucket, key, err)
	}
	return b, nil
}

// WriteFile stores data as the object for name.
func (s *ObjectStore) WriteFile(ctx context.Context, name string, data []byte) error {
	key := s.key(name)
	_, err := s.Client.PutObject(ctx, &s3v2.PutObjectInput{
		Bucket:        awsv2.String(s.Bucket),
		Key:           awsv2.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: awsv2.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to put s3://%s/%s: %w", s.Bucket, key, err)
	}
	log.Debugf("stored %d bytes at s3://%s/%s", len(data), s.Bucket, key)
	return nil
}

func (s *ObjectStore) key(name string) string {
	return path.Join(s.Prefix, path.Clean("/" + filepath.ToSlash(name))[1:])
}
