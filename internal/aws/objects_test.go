// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package aws

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	getErr  error
}

func (f *fakeS3) GetObject(_ context.Context, in *s3v2.GetObjectInput, _ ...func(*s3v2.Options)) (*s3v2.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	b, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3v2.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3v2.PutObjectInput, _ ...func(*s3v2.Options)) (*s3v2.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = b
	return &s3v2.PutObjectOutput{}, nil
}

func TestObjectStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{objects: map[string][]byte{}}
	store := &ObjectStore{Client: fake, Bucket: "feeds", Prefix: "cache"}

	b, err := store.ReadFile(ctx, "/var/cache/example.com.abc.json")
	require.NoError(t, err)
	assert.Nil(t, b)

	require.NoError(t, store.WriteFile(ctx, "/var/cache/example.com.abc.json", []byte(`{"alfa":"bravo"}`)))
	assert.Contains(t, fake.objects, "feeds/cache/var/cache/example.com.abc.json")

	b, err = store.ReadFile(ctx, "/var/cache/example.com.abc.json")
	require.NoError(t, err)
	assert.Equal(t, `{"alfa":"bravo"}`, string(b))
}

func TestObjectStore_ReadError(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, getErr: errors.New("access denied")}
	store := &ObjectStore{Client: fake, Bucket: "feeds"}

	_, err := store.ReadFile(context.Background(), "a.json")
	assert.ErrorContains(t, err, "s3://feeds/a.json")
	assert.ErrorContains(t, err, "access denied")
}

func TestObjectStore_Key(t *testing.T) {
	tests := []struct {
		prefix, name, want string
	}{
		{"", "a.json", "a.json"},
		{"cache", "dir/a.json", "cache/dir/a.json"},
		{"cache/", "../../a.json", "cache/a.json"},
	}
	for _, tt := range tests {
		s := &ObjectStore{Prefix: tt.prefix}
		assert.Equal(t, tt.want, s.key(tt.name))
	}
}

func TestWithEndpoint(t *testing.T) {
	var o s3v2.Options
	WithEndpoint("")(&o)
	assert.Nil(t, o.BaseEndpoint)
	assert.False(t, o.UsePathStyle)

	WithEndpoint("http://localhost:9000")(&o)
	require.NotNil(t, o.BaseEndpoint)
	assert.Equal(t, "http://localhost:9000", *o.BaseEndpoint)
	assert.True(t, o.UsePathStyle)
}
