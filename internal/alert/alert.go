// Package alert notifies subscribers when the latest award price drops to
// or below a target.
package alert

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/awardintel/award-engine/internal/observation"
)

// Status strings reported by Check.
const (
	StatusSent      = "Alert Sent!"
	StatusPriceHigh = "Price still high. No alert sent."
)

// Alert is the message handed to every notifier.
type Alert struct {
	Route         string
	Airline       string
	Program       string
	MilesRequired int
	TaxUSD        float64
	Threshold     int
	DashboardURL  string
	CapturedAt    time.Time
}

func newAlert(obs observation.AwardObservation, threshold int, route, dashboard string) Alert {
	return Alert{
		Route:         route,
		Airline:       obs.Airline,
		Program:       obs.Program,
		MilesRequired: obs.MilesRequired,
		TaxUSD:        obs.TaxUSD,
		Threshold:     threshold,
		DashboardURL:  dashboard,
		CapturedAt:    obs.CapturedAt,
	}
}

// Subject is the email subject line.
func (a Alert) Subject() string {
	return fmt.Sprintf("🚨 ALERT: %s Price Drop!", a.Airline)
}

var bodyTemplate = template.Must(template.New("alert").Parse(`<h2>Rare Deal Found for {{.Route}}</h2>
<p>A business class seat is now available for <strong>{{.MilesRequired}} miles</strong>.</p>
<p><strong>Program:</strong> {{.Program}}</p>
<p>This is below your target of {{.Threshold}}.</p>
{{if .DashboardURL}}<a href="{{.DashboardURL}}">Go to Dashboard to Book</a>
{{end}}`))

// HTML renders the email body.
func (a Alert) HTML() (string, error) {
	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, a); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Notifier delivers an alert somewhere.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, a Alert) error
}
