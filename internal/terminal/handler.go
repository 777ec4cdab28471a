package terminal

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// GetBracketedLine returns the user@host and profile@root banner printed
// above a text report.
func GetBracketedLine(s Styles, profile, root string) string {
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME")
	}
	if username == "" {
		username = "user"
	}

	// Get local hostname
	localHostname, err := os.Hostname()
	if err != nil {
		localHostname = "localhost"
	}

	var bracketed strings.Builder
	bracketed.WriteString("«")
	bracketed.WriteString(username)
	bracketed.WriteString("@")
	bracketed.WriteString(localHostname)
	bracketed.WriteString(" — ")
	bracketed.WriteString(profile)
	bracketed.WriteString("@")
	bracketed.WriteString(root)
	bracketed.WriteString("»")

	return s.Banner.Render(bracketed.String()) + "\n"
}
