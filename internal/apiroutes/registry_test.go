package apiroutes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterSortsAndReplaces(t *testing.T) {
	ClearForTesting()
	t.Cleanup(ClearForTesting)

	RegisterFor("system.catalog", "/api/shows", "GET", "List shows")
	Register("/api/health", "GET", "Health")
	RegisterFor("system.catalog", "/api/shows", "POST", "Create show")
	RegisterFor("system.catalog", "/api/shows", "GET", "List and filter shows")

	routes := Get()
	require.Len(t, routes, 3)
	assert.Equal(t, "/api/health", routes[0].Path)
	assert.Equal(t, "GET", routes[1].Method)
	assert.Equal(t, "List and filter shows", routes[1].Description)
	assert.Equal(t, "POST", routes[2].Method)
	assert.Equal(t, "system.catalog", routes[2].Module)

	routes[0].Path = "/changed"
	assert.Equal(t, "/api/health", Get()[0].Path)
}
