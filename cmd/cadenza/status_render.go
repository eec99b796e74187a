package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

const statusLabelWidth = 14

// severityKind maps a conflict severity onto a display kind so the worst
// findings stand out when scanning terminal output.
func severityKind(severity string) statusKind {
	switch severity {
	case "low":
		return statusInfo
	case "medium":
		return statusWarn
	case "high", "critical":
		return statusError
	default:
		return statusInfo
	}
}

// renderStatusLine formats "  label:  [tag] message". Only the tag takes
// color so the message stays readable on any background.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	tag := statusTag(kind)
	if colorize {
		tag = statusColor(kind) + tag + ansiReset
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", tag)
	if message != "" {
		line += " " + message
	}
	return line
}

func statusTag(kind statusKind) string {
	switch kind {
	case statusOK:
		return "[ ok ]"
	case statusWarn:
		return "[warn]"
	case statusError:
		return "[fail]"
	default:
		return "[info]"
	}
}

func statusColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	default:
		return ansiCyan
	}
}

// renderSectionHeader returns a bold title over a dashed rule.
func renderSectionHeader(title string, colorize bool) string {
	trimmed := strings.TrimSpace(title)
	rule := strings.Repeat("-", len(trimmed))
	if colorize {
		trimmed = ansiBold + trimmed + ansiReset
	}
	return trimmed + "\n" + rule
}

// shouldColorize respects NO_COLOR and only emits ANSI codes when the
// destination is an interactive terminal.
func shouldColorize(writer io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
