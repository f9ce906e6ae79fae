/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		ref    string
		bucket string
		key    string
		ok     bool
	}{
		{"s3://catalogs/evening.yaml", "catalogs", "evening.yaml", true},
		{"S3://catalogs/2026/late/night.json", "catalogs", "2026/late/night.json", true},
		{"s3://catalogs/", "", "", false},
		{"s3:///evening.yaml", "", "", false},
		{"evening.yaml", "", "", false},
		{"https://example.com/evening.yaml", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			bucket, key, err := ParseURI(tt.ref)
			if !tt.ok {
				if !errors.Is(err, ErrNotObjectURI) {
					t.Fatalf("expected ErrNotObjectURI, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if bucket != tt.bucket || key != tt.key {
				t.Fatalf("got %q/%q", bucket, key)
			}
		})
	}
}

func TestIsObjectURI(t *testing.T) {
	if !IsObjectURI("s3://a/b") || IsObjectURI("/tmp/a.yaml") || IsObjectURI("evening") {
		t.Fatal("unexpected classification")
	}
}

func TestNewS3StoreWithStaticCredentials(t *testing.T) {
	store, err := NewS3Store(context.Background(), S3Config{
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Region:          "us-east-1",
		Endpoint:        "http://127.0.0.1:9000",
		UsePathStyle:    true,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if store.client == nil {
		t.Fatal("client not built")
	}
}
