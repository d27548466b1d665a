package main

import (
	"fmt"
	"os"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

// Styling is disabled by --no-color or the NO_COLOR convention.
func colorEnabled() bool {
	if noColor {
		return false
	}
	_, plain := os.LookupEnv("NO_COLOR")
	return !plain
}

func style(code, s string) string {
	if !colorEnabled() {
		return s
	}
	return code + s + ansiReset
}

func bold(s string) string { return style(ansiBold, s) }
func cyan(s string) string { return style(ansiCyan, s) }

// Outcome lines go to stderr so piped stdout stays clean.
func printSuccess(format string, args ...any) {
	fmt.Fprintln(os.Stderr, style(ansiGreen, "✓ "+fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(os.Stderr, style(ansiYellow, "⚠ "+fmt.Sprintf(format, args...)))
}

func printError(format string, args ...any) {
	fmt.Fprintln(os.Stderr, style(ansiRed, "✗ "+fmt.Sprintf(format, args...)))
}

// printStatus renders one "Label: value" line of `eduquest status`.
func printStatus(label, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s %s\n", bold(label+":"), fmt.Sprintf(format, args...))
}
