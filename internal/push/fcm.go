package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2/google"
)

const fcmScope = "https://www.googleapis.com/auth/firebase.messaging"

// FCM sends notifications through Firebase Cloud Messaging's HTTP v1
// API, authenticating with a service-account token source from
// golang.org/x/oauth2/google. The token source caches and refreshes the
// short-lived OAuth token itself.
type FCM struct {
	projectID string
	client    *http.Client
	logger    *slog.Logger
	sendURL   string // overridable in tests
}

// NewFCM builds an FCM sender from a service-account credentials file.
func NewFCM(ctx context.Context, projectID, credentialsPath string, logger *slog.Logger) (*FCM, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("push: reading FCM credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, fcmScope)
	if err != nil {
		return nil, fmt.Errorf("push: parsing FCM credentials: %w", err)
	}

	client := &http.Client{
		Transport: &credsTransport{source: creds, base: http.DefaultTransport},
		Timeout:   15 * time.Second,
	}

	return &FCM{
		projectID: projectID,
		client:    client,
		logger:    logger,
		sendURL:   fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", projectID),
	}, nil
}

// credsTransport attaches the service-account bearer token to requests.
type credsTransport struct {
	source *google.Credentials
	base   http.RoundTripper
}

func (t *credsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.source.TokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("push: obtaining FCM access token: %w", err)
	}
	clone := req.Clone(req.Context())
	token.SetAuthHeader(clone)
	return t.base.RoundTrip(clone)
}

// fcmMessage is the HTTP v1 request envelope.
type fcmMessage struct {
	Message struct {
		Token        string            `json:"token"`
		Notification struct {
			Title string `json:"title"`
			Body  string `json:"body"`
		} `json:"notification"`
		Data map[string]string `json:"data,omitempty"`
	} `json:"message"`
}

// Send delivers one notification. A 4xx from FCM means the token is bad
// and returns (false, nil); transport failures return an error.
func (f *FCM) Send(ctx context.Context, token, title, body string, data map[string]string) (bool, error) {
	var msg fcmMessage
	msg.Message.Token = token
	msg.Message.Notification.Title = title
	msg.Message.Notification.Body = body
	msg.Message.Data = data

	payload, err := json.Marshal(msg)
	if err != nil {
		return false, fmt.Errorf("push: encoding FCM message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.sendURL, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("push: building FCM request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("push: calling FCM: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		f.logger.Warn("FCM rejected notification",
			slog.Int("status", resp.StatusCode),
		)
		return false, nil
	default:
		return false, fmt.Errorf("push: FCM returned status %d", resp.StatusCode)
	}
}
