//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

package logging_test

import (
	"strings"
	"testing"

	"github.com/hwqual/hwqual/logging"
)

func TestLogging_LevelFiltering(t *testing.T) {
	log, buf := logging.NewTestLogger("test")

	log.SetLevel(logging.LogLevelError)
	log.Debugf("should not appear: %d", 1)
	log.Infof("should not appear: %d", 2)
	log.Errorf("should appear: %d", 3)

	got := buf.String()
	if strings.Contains(got, "should not appear") {
		t.Fatalf("unexpected output at level %s:\n%s", log.Level(), got)
	}
	if !strings.Contains(got, "should appear: 3") {
		t.Fatalf("missing error output:\n%s", got)
	}
}

func TestLogging_SetString(t *testing.T) {
	for name, tc := range map[string]struct {
		input    string
		expLevel logging.LogLevel
		expErr   bool
	}{
		"debug":         {input: "debug", expLevel: logging.LogLevelDebug},
		"mixed case":    {input: "Info", expLevel: logging.LogLevelInfo},
		"error":         {input: "ERROR", expLevel: logging.LogLevelError},
		"disabled":      {input: "disabled", expLevel: logging.LogLevelDisabled},
		"unknown level": {input: "verbose", expErr: true},
	} {
		t.Run(name, func(t *testing.T) {
			var level logging.LogLevel
			err := level.SetString(tc.input)
			if tc.expErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if level.Get() != tc.expLevel {
				t.Fatalf("expected %s, got %s", tc.expLevel, level.Get())
			}
		})
	}
}
