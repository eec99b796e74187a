package main

import (
	"strings"
	"testing"
)

func TestSeverityKind(t *testing.T) {
	cases := []struct {
		severity string
		want     statusKind
	}{
		{"low", statusInfo},
		{"medium", statusWarn},
		{"high", statusError},
		{"critical", statusError},
		{"", statusInfo},
	}
	for _, tc := range cases {
		if got := severityKind(tc.severity); got != tc.want {
			t.Fatalf("severityKind(%q) = %d, want %d", tc.severity, got, tc.want)
		}
	}
}

func TestRenderStatusLinePlain(t *testing.T) {
	line := renderStatusLine("Chain", statusOK, "all clear", false)
	if !strings.HasPrefix(line, "  Chain:") {
		t.Fatalf("line = %q", line)
	}
	if !strings.Contains(line, "[ ok ] all clear") {
		t.Fatalf("line = %q", line)
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("uncolored line carries ANSI codes: %q", line)
	}

	colored := renderStatusLine("Chain", statusError, "broken", true)
	if !strings.Contains(colored, ansiRed+"[fail]"+ansiReset) {
		t.Fatalf("colored tag missing: %q", colored)
	}
	if strings.Contains(colored, ansiRed+"  Chain") {
		t.Fatalf("color must cover only the tag: %q", colored)
	}
}

func TestRenderTableColumns(t *testing.T) {
	out := renderTable(
		[]tableColumn{
			{title: "ID", numeric: true},
			{title: "Name"},
		},
		[][]string{
			{"7", "Night Drive"},
			{"12"},
		},
	)
	if !strings.Contains(out, "ID") || !strings.Contains(out, "Name") {
		t.Fatalf("headers missing:\n%s", out)
	}
	if !strings.Contains(out, "Night Drive") {
		t.Fatalf("row missing:\n%s", out)
	}

	if renderTable(nil, nil) != "" {
		t.Fatal("empty column set should render nothing")
	}
}
