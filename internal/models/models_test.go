/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"reflect"
	"testing"
)

func TestStringListRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  StringList
	}{
		{"bytes", []byte(`["a","b"]`), StringList{"a", "b"}},
		{"string", `["c"]`, StringList{"c"}},
		{"nil", nil, StringList{}},
		{"empty", []byte{}, StringList{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got StringList
			if err := got.Scan(tt.input); err != nil {
				t.Fatalf("Scan: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Scan(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}

	var bad StringList
	if err := bad.Scan(42); err == nil {
		t.Fatal("expected error for unsupported type")
	}

	v, err := StringList(nil).Value()
	if err != nil || v != "[]" {
		t.Fatalf("Value(nil) = %v, %v", v, err)
	}
}

func TestBeforeCreateAssignsIDs(t *testing.T) {
	c := &Catalog{}
	if err := c.BeforeCreate(nil); err != nil || c.ID == "" {
		t.Fatalf("catalog id not assigned: %q %v", c.ID, err)
	}
	r := &SequenceRun{ID: "fixed"}
	if err := r.BeforeCreate(nil); err != nil || r.ID != "fixed" {
		t.Fatalf("run id overwritten: %q %v", r.ID, err)
	}
}
