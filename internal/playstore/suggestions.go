package playstore

import (
	"errors"
	"strings"

	"google.golang.org/api/googleapi"
)

// errorSuggestion provides helpful suggestions based on Play API errors
func errorSuggestion(err error) string {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401:
			return "The credentials have been revoked or expired. Generate a new service account key and update the step input"
		case 403:
			return "Grant the service account access to the app in Play Console (Users and permissions > Invite new users)"
		case 404:
			return "Check the package name and that the app exists in this developer account"
		case 429:
			return "Play API rate limit exceeded. Wait a moment and re-run the build"
		}
	}

	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "invalid_grant"):
		return "The credentials have been revoked or expired. Generate a new service account key and update the step input"
	case strings.Contains(errStr, "oauth2"), strings.Contains(errStr, "token"):
		return "Check that the service account key is valid and the Play Developer API is enabled for the project"
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "connection"):
		return "The Play API did not respond. Check the network and try again"
	default:
		return "Check the service account key, package name, and Play Console permissions"
	}
}
