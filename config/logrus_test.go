package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLogger(t *testing.T) {
	cases := []struct {
		level, format string
		want          logrus.Level
		text          bool
	}{
		{"", "", logrus.ErrorLevel, false},
		{"nonsense", "json", logrus.ErrorLevel, false},
		{"debug", "TEXT", logrus.DebugLevel, true},
	}
	for _, tc := range cases {
		l := newLogger(tc.level, tc.format, "")
		if l.GetLevel() != tc.want {
			t.Fatalf("level %q: expected %s, got %s", tc.level, tc.want, l.GetLevel())
		}
		if _, isText := l.Formatter.(*logrus.TextFormatter); isText != tc.text {
			t.Fatalf("format %q: unexpected formatter %T", tc.format, l.Formatter)
		}
	}
}

func TestLogError_StampsServiceFields(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger("", "", "production")
	l.SetOutput(&buf)

	LogError(l, "models", "LogChanges", "insert activity logs", nil, errors.New("no such table"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	want := map[string]string{
		"service":  ServiceName,
		"env":      "production",
		"module":   "models",
		"funcName": "LogChanges",
		"context":  "insert activity logs",
		"msg":      "no such table",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Fatalf("%s: expected %q, got %v", k, v, entry[k])
		}
	}
	if _, ok := entry["data"]; ok {
		t.Fatalf("nil data should be omitted, got %v", entry["data"])
	}
}
