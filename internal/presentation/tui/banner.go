package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"  _____                     __          ___         _   ", "#818cf8"},
	{" |_   _| _ __ _ _ _  ___ / _|___ _ _  |   \\ ___ __| |__", "#a78bfa"},
	{"   | || '_/ _' | ' \\(_-<|  _/ -_) '_| | |) / -_|_-< / /", "#e879f9"},
	{"   |_||_| \\__,_|_||_/__/|_| \\___|_|   |___/\\___/__/_\\_\\", "#fb7185"},
}

// PrintBanner writes the console banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
