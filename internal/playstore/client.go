// Package playstore wraps the Google Play Developer API (androidpublisher v3)
// calls the step needs: opening an edit, reading a track, and abandoning the
// edit again.
package playstore

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/option"

	"github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/credentials"
	steperrors "github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/errors"
	"github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/logging"
)

// Client talks to the Play Developer API for a single service account.
type Client struct {
	service *androidpublisher.Service
	logger  *logging.Logger
}

// NewClient authenticates with the given service-account key and builds an
// androidpublisher client. The key is materialized as a 0600 temp file for
// the credential loader; it lives until key.Close removes it. Extra options
// are appended last so tests can override the endpoint; when key is nil no
// credentials are attached and the caller must supply its own auth option.
func NewClient(ctx context.Context, key *credentials.Key, logger *logging.Logger, opts ...option.ClientOption) (*Client, error) {
	var clientOptions []option.ClientOption

	if key != nil {
		keyPath, err := key.Materialize("")
		if err != nil {
			return nil, fmt.Errorf("failed to write service account key file: %w", err)
		}
		data, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read service account key file: %w", err)
		}
		conf, err := google.JWTConfigFromJSON(data, androidpublisher.AndroidpublisherScope)
		if err != nil {
			return nil, steperrors.UserError{
				Message:    "Failed to build Play API credentials from the service account key",
				Details:    err.Error(),
				Suggestion: "Re-download the JSON key from the Google Cloud console",
				Err:        err,
			}
		}
		logger.Debug("using service account key file %s", keyPath)
		clientOptions = append(clientOptions, option.WithHTTPClient(conf.Client(ctx)))
	}

	clientOptions = append(clientOptions, opts...)

	service, err := androidpublisher.NewService(ctx, clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create androidpublisher service: %w", err)
	}

	return &Client{service: service, logger: logger}, nil
}

// InsertEdit begins an edit transaction and returns its ID.
func (c *Client) InsertEdit(ctx context.Context, packageName string) (string, error) {
	edit, err := c.service.Edits.Insert(packageName, &androidpublisher.AppEdit{}).Context(ctx).Do()
	if err != nil {
		return "", steperrors.UserError{
			Message:    fmt.Sprintf("Failed to open a Play Console edit for %s", packageName),
			Details:    err.Error(),
			Suggestion: errorSuggestion(err),
			Err:        err,
		}
	}
	c.logger.Debug("opened edit %s for %s", edit.Id, packageName)
	return edit.Id, nil
}

// GetTrack fetches release metadata for a track within an edit.
func (c *Client) GetTrack(ctx context.Context, packageName, editID, track string) (*androidpublisher.Track, error) {
	result, err := c.service.Edits.Tracks.Get(packageName, editID, track).Context(ctx).Do()
	if err != nil {
		return nil, steperrors.UserError{
			Message:    fmt.Sprintf("Failed to read track '%s' for %s", track, packageName),
			Details:    err.Error(),
			Suggestion: errorSuggestion(err),
			Err:        err,
		}
	}
	return result, nil
}

// DeleteEdit abandons an edit transaction. The step only ever reads, so a
// failed delete is harmless; callers log it and move on.
func (c *Client) DeleteEdit(ctx context.Context, packageName, editID string) error {
	if err := c.service.Edits.Delete(packageName, editID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete edit %s: %w", editID, err)
	}
	return nil
}

// ValidateAccess probes the API by opening and immediately abandoning an
// edit. Used by the doctor command.
func (c *Client) ValidateAccess(ctx context.Context, packageName string) error {
	editID, err := c.InsertEdit(ctx, packageName)
	if err != nil {
		return err
	}
	if err := c.DeleteEdit(ctx, packageName, editID); err != nil {
		c.logger.Debug("probe edit cleanup failed: %v", err)
	}
	return nil
}
