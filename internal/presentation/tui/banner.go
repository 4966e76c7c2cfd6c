package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Switchboard banner followed by the version.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	lines := []struct {
		text, color string
	}{
		{`   ___        _ _      _    _                     _ `, "#34d399"},
		{`  / __|_ __ _(_) |_ __| |_ | |__  ___  __ _ _ _ __| |`, "#2dd4bf"},
		{`  \__ \ V  V / |  _/ _| ' \| '_ \/ _ \/ _' | '_/ _' |`, "#22d3ee"},
		{`  |___/\_/\_/|_|\__\__|_||_|_.__/\___/\__,_|_| \__,_|`, "#38bdf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  version "+version).Faint())
	fmt.Fprintln(w)
}
