// Package validation validates request payloads against JSON schemas and
// enforces upload limits on the public channel.
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "medclaim-portal/internal/common/errors"
)

// Schemas for the mutating endpoints. Kept as Go maps so the loader never
// touches the filesystem.
var (
	CreateQuerySchema = map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"applicationId": map[string]interface{}{"type": "string", "minLength": 1},
			"subject":       map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 500},
			"message":       map[string]interface{}{"type": "string", "minLength": 1},
			"priority": map[string]interface{}{
				"type": "string",
				"enum": []string{"low", "normal", "high", "urgent"},
			},
		},
		"required":             []string{"applicationId", "subject", "message", "priority"},
		"additionalProperties": false,
	}

	ReplySchema = map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"message":        map[string]interface{}{"type": "string", "minLength": 1},
			"isInternalNote": map[string]interface{}{"type": "boolean"},
		},
		"required":             []string{"message"},
		"additionalProperties": false,
	}

	PublicReplySchema = map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"message":  map[string]interface{}{"type": "string", "minLength": 1},
			"userName": map[string]interface{}{"type": "string", "maxLength": 200},
		},
		"required":             []string{"message"},
		"additionalProperties": false,
	}

	ClaimStatusSchema = map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"status": map[string]interface{}{
				"type": "string",
				"enum": []string{
					"pending", "under_review", "back_to_obc",
					"approved", "rejected", "completed", "reimbursed",
				},
			},
			"comments":     map[string]interface{}{"type": "string"},
			"amountPassed": map[string]interface{}{"type": "number", "minimum": 0},
		},
		"required":             []string{"status"},
		"additionalProperties": false,
	}
)

// ValidatePayload checks data against the given schema and returns a
// VALIDATION_FAILED StandardError listing every violated field.
func ValidatePayload(data map[string]interface{}, schema map[string]interface{}) error {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("schema evaluation: %v", err))
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, resErr := range result.Errors() {
			details = append(details, resErr.String())
		}
		return apperrors.NewValidationError(strings.Join(details, "; "))
	}

	return nil
}
