package diag

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiDim    = "\x1b[2m"
)

// ColorEnabled reports whether f is an interactive terminal, in which
// case the text renderer emits ANSI color.
func ColorEnabled(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// RenderText writes diagnostics one per line, colored when color is
// true. Fatal kinds render red, satisfaction kinds yellow.
func RenderText(w io.Writer, diags List, color bool) {
	for _, d := range diags {
		line := d.Error()
		if d.Hint != "" {
			line += " — " + d.Hint
		}
		if color {
			tint := ansiYellow
			if d.Kind.Fatal() {
				tint = ansiRed
			}
			// Color only the kind token; sites stay plain so they remain
			// clickable in terminals that linkify file:line.
			line = strings.Replace(line, string(d.Kind), tint+string(d.Kind)+ansiReset, 1)
			if d.Hint != "" {
				line = strings.Replace(line, d.Hint, ansiDim+d.Hint+ansiReset, 1)
			}
		}
		fmt.Fprintln(w, line)
	}
}

// RenderJSON writes the diagnostic list as a JSON array.
func RenderJSON(w io.Writer, diags List) error {
	if diags == nil {
		diags = List{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(diags)
}
