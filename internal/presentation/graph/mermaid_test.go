package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/transferdesk/internal/presentation/graph"
	"github.com/aretw0/transferdesk/pkg/domain"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name        string
		transitions []graph.Transition
		overlay     *graph.Overlay
		contains    []string
		excludes    []string
	}{
		{
			name:        "State Shapes",
			transitions: graph.AuthTransitions,
			contains: []string{
				"logged_out((\"logged_out\"))",
				"authenticating(\"authenticating\")",
				"tfa_pending[\"tfa_pending\"]",
				"logged_in[\"logged_in\"]",
			},
			excludes: []string{"classDef"},
		},
		{
			name:        "Edges",
			transitions: graph.AuthTransitions,
			contains: []string{
				`authenticating -- "LOGIN_PARTIAL" --> tfa_pending`,
				`tfa_pending -- "LOGIN_SUCCESS" --> logged_in`,
				`logged_in -. "LOGOUT" .-> logged_out`,
			},
		},
		{
			name: "ID Sanitization",
			transitions: []graph.Transition{
				{From: "state-a", On: domain.LoginRequest, To: "state.b"},
			},
			contains: []string{
				"state_a[\"state-a\"]",
				`state_a -- "LOGIN_REQUEST" --> state_b`,
			},
		},
		{
			name:        "Overlay",
			transitions: graph.AuthTransitions,
			overlay: &graph.Overlay{
				Visited: []domain.AuthState{domain.StateLoggedOut, domain.StateAuthenticating, domain.StateLoggedOut},
				Current: domain.StateLoggedIn,
			},
			contains: []string{
				"class logged_out visited;",
				"class authenticating visited;",
				"class logged_in current;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.transitions, tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("GenerateMermaid() = \n%v\nUnexpected substring: %v", got, unwanted)
				}
			}
			if n := strings.Count(got, "class logged_out visited;"); n > 1 {
				t.Errorf("visited state styled %d times", n)
			}
		})
	}
}
