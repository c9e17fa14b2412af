package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type sample struct {
	Screen   string    `json:"screen" yaml:"screen"`
	HasToken bool      `json:"has_token" yaml:"has_token"`
	Hidden   string    `json:"-" yaml:"-"`
	Skipped  string    `table:"-" json:"skipped" yaml:"skipped"`
	At       time.Time `json:"at" yaml:"at"`
	internal string
}

func render(t *testing.T, f Formatter, data any) string {
	t.Helper()
	var buf bytes.Buffer
	if err := f.Format(&buf, data); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	return buf.String()
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{" JSON ", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON).(*JSONFormatter); !ok {
		t.Error("json format should give JSONFormatter")
	}
	if _, ok := NewFormatter(FormatYAML).(*YAMLFormatter); !ok {
		t.Error("yaml format should give YAMLFormatter")
	}
	if _, ok := NewFormatter("other").(*TableFormatter); !ok {
		t.Error("unknown format should fall back to TableFormatter")
	}
}

func TestTableFormatter_Struct(t *testing.T) {
	out := render(t, &TableFormatter{}, sample{Screen: "Welcome", HasToken: true, Skipped: "x", internal: "y"})
	want := "FIELD      VALUE\n" +
		"screen     Welcome\n" +
		"has_token  true\n" +
		"at         -\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestTableFormatter_MapIsSorted(t *testing.T) {
	out := render(t, &TableFormatter{NoHeaders: true}, map[string]any{"b": 2, "a": "", "c": nil})
	want := "a  -\nb  2\nc  -\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestTableFormatter_Slice(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	out := render(t, &TableFormatter{}, []*sample{{Screen: "Init", At: at}, nil, {Screen: "Error"}})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "SCREEN") || !strings.Contains(lines[0], "HAS_TOKEN") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "2026-01-02T03:04:05Z") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestTableFormatter_FallbackToJSON(t *testing.T) {
	out := render(t, &TableFormatter{}, []string{"a", "b"})
	if !strings.Contains(out, `"a"`) {
		t.Errorf("expected JSON fallback, got %q", out)
	}
	if render(t, &TableFormatter{}, nil) != "" {
		t.Error("nil should render nothing")
	}
}

func TestTable_Render(t *testing.T) {
	tbl := &Table{Headers: []string{"A", "B"}}
	tbl.AddRow("1", "22")
	var buf bytes.Buffer
	if err := tbl.Render(&buf); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("A  B\n1  22\n", buf.String()); diff != "" {
		t.Errorf("render mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONFormatter(t *testing.T) {
	out := render(t, &JSONFormatter{}, map[string]bool{"ok": true})
	if diff := cmp.Diff("{\n  \"ok\": true\n}\n", out); diff != "" {
		t.Errorf("json mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONFormatter_KeepsURLs(t *testing.T) {
	out := render(t, &JSONFormatter{}, map[string]string{"url": "https://a.example/?view=x&auth_token=t"})
	if !strings.Contains(out, "?view=x&auth_token=t") {
		t.Errorf("url was escaped: %s", out)
	}
}

func TestYAMLFormatter(t *testing.T) {
	out := render(t, &YAMLFormatter{}, sample{Screen: "Offline", HasToken: false, Hidden: "h"})
	for _, want := range []string{"screen: Offline\n", "has_token: false\n", "skipped: \"\"\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Hidden") || strings.Contains(out, ": h\n") {
		t.Errorf("yaml:\"-\" field rendered:\n%s", out)
	}
}
