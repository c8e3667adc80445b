package credentials

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	steperrors "github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/errors"
)

// serviceAccountSchema describes the shape of a Google service-account key
// file. Only the fields the androidpublisher JWT flow actually needs are
// required.
const serviceAccountSchema = `{
	"type": "object",
	"required": ["type", "project_id", "private_key", "client_email", "token_uri"],
	"properties": {
		"type": {"type": "string", "enum": ["service_account"]},
		"project_id": {"type": "string", "minLength": 1},
		"private_key_id": {"type": "string"},
		"private_key": {"type": "string", "pattern": "BEGIN.*PRIVATE KEY"},
		"client_email": {"type": "string", "format": "email"},
		"client_id": {"type": "string"},
		"token_uri": {"type": "string", "format": "uri"}
	}
}`

// ValidateServiceAccountJSON checks that data is a well-formed service-account
// key. It returns a user-facing error listing every violated constraint.
func ValidateServiceAccountJSON(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(serviceAccountSchema)
	documentLoader := gojsonschema.NewStringLoader(string(data))

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return steperrors.UserError{
			Message:    "Service account key is not valid JSON",
			Details:    err.Error(),
			Suggestion: "Re-download the JSON key from the Google Cloud console (IAM > Service Accounts > Keys)",
		}
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return steperrors.UserError{
			Message:    "Service account key is missing required fields",
			Details:    strings.Join(problems, "; "),
			Suggestion: "Make sure the file is a service_account key, not an OAuth client or API key",
		}
	}

	return nil
}
