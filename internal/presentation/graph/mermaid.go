package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/transferdesk/pkg/domain"
)

// Transition is one edge of the authentication state machine.
type Transition struct {
	From domain.AuthState
	On   domain.ActionType
	To   domain.AuthState
}

// AuthTransitions are the edges the store applies to the auth state.
var AuthTransitions = []Transition{
	{domain.StateLoggedOut, domain.LoginRequest, domain.StateAuthenticating},
	{domain.StateLoggedOut, domain.ReauthRequest, domain.StateReauthenticating},
	{domain.StateAuthenticating, domain.LoginSuccess, domain.StateLoggedIn},
	{domain.StateAuthenticating, domain.LoginPartial, domain.StateTfaPending},
	{domain.StateAuthenticating, domain.LoginFailure, domain.StateLoggedOut},
	{domain.StateReauthenticating, domain.LoginSuccess, domain.StateLoggedIn},
	{domain.StateReauthenticating, domain.LoginFailure, domain.StateLoggedOut},
	{domain.StateTfaPending, domain.LoginSuccess, domain.StateLoggedIn},
	{domain.StateTfaPending, domain.ValidateTFAFailure, domain.StateTfaPending},
	{domain.StateTfaPending, domain.Logout, domain.StateLoggedOut},
	{domain.StateLoggedIn, domain.Logout, domain.StateLoggedOut},
}

// Overlay contains session data to highlight on the graph.
type Overlay struct {
	Visited []domain.AuthState
	Current domain.AuthState
}

// GenerateMermaid renders transitions as a Mermaid state diagram.
// Transient states (authenticating, reauthenticating) are drawn as rounded
// nodes, the resting ones as rectangles.
func GenerateMermaid(transitions []Transition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	seen := make(map[domain.AuthState]bool)
	declare := func(s domain.AuthState) {
		if seen[s] {
			return
		}
		seen[s] = true
		opener, closer := "[", "]"
		switch s {
		case domain.StateLoggedOut:
			opener, closer = "((", "))"
		case domain.StateAuthenticating, domain.StateReauthenticating:
			opener, closer = "(", ")"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(string(s)), opener, s, closer)
	}

	for _, t := range transitions {
		declare(t.From)
		declare(t.To)
	}
	for _, t := range transitions {
		arrow := fmt.Sprintf("-- \"%s\" -->", strings.ReplaceAll(string(t.On), "\"", "'"))
		if t.On == domain.Logout {
			arrow = fmt.Sprintf("-. \"%s\" .->", t.On)
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(string(t.From)), arrow, sanitizeMermaidID(string(t.To)))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for contrast on either theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visited := make(map[string]bool)
		for _, s := range overlay.Visited {
			id := sanitizeMermaidID(string(s))
			if id != "" && !visited[id] {
				visited[id] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", id)
			}
		}
		if overlay.Current != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(string(overlay.Current)))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
