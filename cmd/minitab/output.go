package main

import (
	"fmt"
	"io"

	"github.com/nikbrunner/minitab/internal/app"
)

// printFeed writes the notifications collected while a command ran.
// Errors are skipped; they reach the user as the command's error.
func printFeed(w io.Writer, feed *app.Feed) {
	for _, n := range feed.Drain() {
		if n.Level == app.LevelError {
			continue
		}
		fmt.Fprintf(w, "%s %s\n", levelPrefix(n.Level), n.Message)
	}
}

func levelPrefix(l app.Level) string {
	switch l {
	case app.LevelSuccess:
		return "✓"
	case app.LevelWarning:
		return "!"
	default:
		return "-"
	}
}
