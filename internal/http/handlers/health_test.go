package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler_GetHealth(t *testing.T) {
	h := NewHealthHandler("1.2.3")

	out, err := h.GetHealth(context.Background(), &HealthInput{})
	require.NoError(t, err)

	assert.Equal(t, "healthy", out.Body.Status)
	assert.Equal(t, "1.2.3", out.Body.Version)
	assert.NotEmpty(t, out.Body.Uptime)
	assert.NotZero(t, out.Body.CPU.Cores)
	assert.Equal(t, "not_configured", out.Body.Database.Status)
}
