package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/dfs-lineup/internal/optimizer"
)

// SchemaHandler serves the built-in roster schemas.
type SchemaHandler struct{}

func NewSchemaHandler() *SchemaHandler {
	return &SchemaHandler{}
}

// ListSchemas returns every built-in schema, optionally filtered by the
// sport and platform query parameters.
func (h *SchemaHandler) ListSchemas(c *gin.Context) {
	sport := c.Query("sport")
	platform := c.Query("platform")

	schemas := make([]optimizer.Schema, 0)
	for _, s := range optimizer.Schemas() {
		if sport != "" && s.Sport != sport {
			continue
		}
		if platform != "" && s.Platform != platform {
			continue
		}
		schemas = append(schemas, s)
	}
	c.JSON(http.StatusOK, gin.H{"schemas": schemas})
}

func (h *SchemaHandler) GetSchema(c *gin.Context) {
	id := c.Param("id")
	schema, ok := optimizer.LookupSchema(id)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Unknown schema",
			Code:    "SCHEMA_NOT_FOUND",
			Details: map[string]string{"schema_id": id},
		})
		return
	}
	c.JSON(http.StatusOK, schema)
}
