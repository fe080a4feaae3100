package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/awardintel/award-engine/internal/config"
	"github.com/awardintel/award-engine/internal/pkg/errors"
	"github.com/awardintel/award-engine/internal/pkg/httpclient"
	"github.com/awardintel/award-engine/internal/pkg/logger"
	"github.com/awardintel/award-engine/internal/pkg/security"
)

// DefaultResendURL is the Resend send-email endpoint.
const DefaultResendURL = "https://api.resend.com/emails"

// ResendNotifier sends alerts as email through the Resend API.
type ResendNotifier struct {
	endpoint string
	apiKey   string
	from     string
	to       []string
	client   *http.Client
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// NewResendNotifier creates an email notifier. Sends are limited to two
// per second, the API's default quota.
func NewResendNotifier(apiKey, from string, to []string) (*ResendNotifier, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.ConfigurationError("resend API key cannot be empty")
	}
	if len(to) == 0 {
		return nil, errors.ConfigurationError("resend notifier needs at least one recipient")
	}
	return &ResendNotifier{
		endpoint: DefaultResendURL,
		apiKey:   apiKey,
		from:     from,
		to:       to,
		client:   httpclient.NewRateLimited(10*time.Second, 2, 1),
	}, nil
}

func (n *ResendNotifier) Name() string { return "resend" }

// Notify sends one email.
func (n *ResendNotifier) Notify(ctx context.Context, a Alert) error {
	html, err := a.HTML()
	if err != nil {
		return errors.InternalError("rendering alert", err)
	}

	body, err := json.Marshal(resendRequest{
		From:    n.from,
		To:      n.to,
		Subject: a.Subject(),
		HTML:    html,
	})
	if err != nil {
		return errors.InternalError("encoding email", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.InternalError("building request", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return errors.FromRequest("send email", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.New(errors.CodeForHTTPStatus(resp.StatusCode),
			fmt.Sprintf("send email: %s", http.StatusText(resp.StatusCode))).
			WithDetail("status", fmt.Sprintf("%d", resp.StatusCode)).
			WithDetail("body", security.SanitizeForLog(strings.TrimSpace(string(msg))))
	}
	return nil
}

// LogNotifier writes alerts to the application log.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Notify(_ context.Context, a Alert) error {
	n.log.Info(a.Subject(),
		"route", a.Route,
		"program", a.Program,
		"miles_required", a.MilesRequired,
		"threshold", a.Threshold,
	)
	return nil
}

// NewNotifiers builds the notifiers enabled by cfg. The log notifier is
// always present; email is added when a Resend key is configured.
func NewNotifiers(cfg config.AlertConfig, log *logger.Logger) ([]Notifier, error) {
	notifiers := []Notifier{NewLogNotifier(log)}

	if cfg.ResendAPIKey != "" {
		resend, err := NewResendNotifier(cfg.ResendAPIKey, cfg.From, cfg.To)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, resend)
	}
	return notifiers, nil
}
