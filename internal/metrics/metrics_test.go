package metrics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/transferdesk/internal/metrics"
	"github.com/aretw0/transferdesk/pkg/domain"
	"github.com/aretw0/transferdesk/pkg/ports"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "/transfer_account/:id/", metrics.Endpoint("/transfer_account/5/"))
	assert.Equal(t, "/transfer_account/", metrics.Endpoint("/transfer_account/"))
	assert.Equal(t, "/auth/tfa/", metrics.Endpoint("/auth/tfa/"))
}

func TestHooks(t *testing.T) {
	m := metrics.New()
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnFlowStart(ctx, &domain.FlowEvent{Trigger: domain.LoginRequest})
	hooks.OnFlowEnd(ctx, &domain.FlowEvent{Trigger: domain.LoginRequest, Outcome: domain.OutcomeSuccess, Duration: time.Millisecond})
	hooks.OnGatewayCall(ctx, &domain.GatewayEvent{Method: http.MethodPut, Endpoint: "/user/12/", StatusCode: 200})
	hooks.OnAction(ctx, &domain.Action{Type: domain.LoginSuccess})
	m.ObserveTokenWrite("store", ports.SlotPrimary)

	count, err := testutil.GatherAndCount(m.Registry(),
		"transferdesk_flows_total",
		"transferdesk_gateway_calls_total",
		"transferdesk_actions_total",
		"transferdesk_token_writes_total",
	)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestHandler(t *testing.T) {
	m := metrics.New()
	m.ObserveAction(context.Background(), &domain.Action{Type: domain.Logout})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `transferdesk_actions_total{type="LOGOUT"} 1`)
	assert.Contains(t, rec.Body.String(), "transferdesk_flows_in_flight 0")
}
