//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

// Package test provides shared helpers for unit tests.
package test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// AssertTrue asserts b is true.
func AssertTrue(t *testing.T, b bool, message string) {
	t.Helper()

	if !b {
		t.Fatal(message)
	}
}

// AssertFalse asserts b is false.
func AssertFalse(t *testing.T, b bool, message string) {
	t.Helper()

	if b {
		t.Fatal(message)
	}
}

// AssertEqual asserts expected and actual are equivalent.
func AssertEqual(t *testing.T, expected, actual interface{}, message string) {
	t.Helper()

	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Fatalf("%s (-want, +got):\n%s", message, diff)
	}
}

// CmpErr compares two errors for equivalence. A nil expected error
// requires a nil actual error; otherwise the actual error message must
// contain the expected error message.
func CmpErr(t *testing.T, expected, actual error) {
	t.Helper()

	if expected == nil && actual == nil {
		return
	}
	if expected == nil {
		t.Fatalf("unexpected error: %v", actual)
	}
	if actual == nil {
		t.Fatalf("expected error %q, got nil", expected)
	}
	if !strings.Contains(actual.Error(), expected.Error()) {
		t.Fatalf("unexpected error\n  want: %s\n  got:  %s", expected, actual)
	}
}

// Context returns a context which is canceled when the test completes.
func Context(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// ShowBufferOnFailure displays captured log output if and only if the
// test failed, then resets the buffer for the next test.
func ShowBufferOnFailure(t *testing.T, buf fmt.Stringer) {
	t.Helper()

	if t.Failed() {
		t.Logf("captured log output:\n%s", buf.String())
	}
	if rb, ok := buf.(interface{ Reset() }); ok {
		rb.Reset()
	}
}

// MustWriteFile writes the given contents to path, creating parent
// directories as needed.
func MustWriteFile(t *testing.T, path, contents string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}
