// Package logging tests for the structured logger.
package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

// TestLoggerJSONOutput verifies entries come out as parseable JSON with
// merged fields. Init latches the global logger, so a single test drives all
// assertions against one buffer.
func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, "debug")

	Info("record enqueued", logrus.Fields{"id": 7}, logrus.Fields{"category": "task"})

	line := strings.TrimSpace(buf.String())
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, line)
	}

	if entry["msg"] != "record enqueued" {
		t.Errorf("msg = %v, want record enqueued", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if entry["id"] != float64(7) {
		t.Errorf("id field = %v, want 7", entry["id"])
	}
	if entry["category"] != "task" {
		t.Errorf("category field = %v, want task (merged from second map)", entry["category"])
	}

	buf.Reset()
	Error("sync failed", errAcceptorDown)

	var errEntry map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &errEntry); err != nil {
		t.Fatalf("error line is not JSON: %v", err)
	}
	if errEntry["error"] != "acceptor down" {
		t.Errorf("error field = %v, want acceptor down", errEntry["error"])
	}

	buf.Reset()
	Debug("visible at debug level")
	if buf.Len() == 0 {
		t.Error("debug entry suppressed at debug level")
	}
}

// TestMergeFields verifies field map merging.
func TestMergeFields(t *testing.T) {
	if mergeFields() != nil {
		t.Error("mergeFields() with no maps should be nil")
	}

	single := logrus.Fields{"a": 1}
	if got := mergeFields(single); got["a"] != 1 {
		t.Errorf("mergeFields(single) = %v", got)
	}

	merged := mergeFields(logrus.Fields{"a": 1, "b": 1}, logrus.Fields{"b": 2})
	if merged["a"] != 1 || merged["b"] != 2 {
		t.Errorf("merged = %v, want later maps to win", merged)
	}
}

type acceptorErr struct{}

func (acceptorErr) Error() string { return "acceptor down" }

var errAcceptorDown = acceptorErr{}
