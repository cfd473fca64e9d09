package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestDocIsValidJSON(t *testing.T) {
	doc, err := swag.ReadDoc()
	require.NoError(t, err)

	var parsed struct {
		Swagger  string                     `json:"swagger"`
		BasePath string                     `json:"basePath"`
		Paths    map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(doc), &parsed), doc)

	assert.Equal(t, "2.0", parsed.Swagger)
	assert.Equal(t, "/api", parsed.BasePath)
	for _, path := range []string{
		"/health", "/giveaway", "/giveaway/active", "/giveaway/{id}", "/giveaway/{id}/winner",
		"/giveaway/{id}/participants", "/giveaway/{id}/chat", "/giveaway/stats/{channel}",
		"/chat/message", "/simulate/chat", "/clear-all",
	} {
		assert.Contains(t, parsed.Paths, path)
	}
}
