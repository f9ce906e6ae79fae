/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package storage fetches catalog documents from object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNotObjectURI is returned by ParseURI for anything but s3://bucket/key.
var ErrNotObjectURI = errors.New("not an object storage URI")

// ObjectStore abstracts object storage operations.
type ObjectStore interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// IsObjectURI reports whether ref names an object rather than a local file
// or stored catalog.
func IsObjectURI(ref string) bool {
	return strings.HasPrefix(strings.ToLower(ref), "s3://")
}

// ParseURI splits s3://bucket/path/to/key.
func ParseURI(ref string) (bucket, key string, err error) {
	u, err := url.Parse(ref)
	if err != nil || !strings.EqualFold(u.Scheme, "s3") {
		return "", "", fmt.Errorf("%w: %q", ErrNotObjectURI, ref)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q needs both bucket and key", ErrNotObjectURI, ref)
	}
	return u.Host, key, nil
}
