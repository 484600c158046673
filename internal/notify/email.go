package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/k3a/html2text"
	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/tphakala/chargewatch-go/internal/conf"
	"github.com/tphakala/chargewatch-go/internal/datastore/entities"
)

// emailChannel delivers alerts over SMTP via shoutrrr.
type emailChannel struct {
	settings conf.EmailSettings
}

// NewEmailChannel creates the email channel. Alerts below severity 3 are
// not emailed.
func NewEmailChannel(settings conf.EmailSettings) Channel {
	return &emailChannel{settings: settings}
}

func (c *emailChannel) Name() string     { return "email" }
func (c *emailChannel) MinSeverity() int { return 3 }

// Send emails the alert to every configured recipient. An empty
// recipient list is a no-op, matching the other channels.
func (c *emailChannel) Send(ctx context.Context, alert *entities.Alert) error {
	if len(c.settings.Recipients) == 0 {
		return nil
	}

	sender, err := shoutrrr.CreateSender(c.smtpURL())
	if err != nil {
		return fmt.Errorf("failed to create email sender: %w", err)
	}

	html := renderAlertHTML(alert)
	body := html2text.HTML2Text(html)
	params := types.Params{
		"subject": fmt.Sprintf("[ChargeWatch] %s alert (severity %d)", alert.AlertType, alert.Severity),
	}
	for _, sendErr := range sender.Send(body, &params) {
		if sendErr != nil {
			return fmt.Errorf("failed to send email: %w", sendErr)
		}
	}
	return nil
}

func (c *emailChannel) smtpURL() string {
	q := url.Values{}
	q.Set("from", c.settings.Username)
	q.Set("to", strings.Join(c.settings.Recipients, ","))
	u := url.URL{
		Scheme:   "smtp",
		User:     url.UserPassword(c.settings.Username, c.settings.Password),
		Host:     fmt.Sprintf("%s:%d", c.settings.SMTPServer, c.settings.SMTPPort),
		RawQuery: q.Encode(),
	}
	return u.String()
}

func renderAlertHTML(alert *entities.Alert) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<h2>%s alert</h2>", alert.AlertType)
	fmt.Fprintf(&b, "<p>%s</p>", alert.Message)
	b.WriteString("<ul>")
	fmt.Fprintf(&b, "<li>Severity: %d</li>", alert.Severity)
	fmt.Fprintf(&b, "<li>Source: %s %s</li>", alert.SourceType, alert.SourceID)
	if alert.Location != "" {
		fmt.Fprintf(&b, "<li>Location: %s</li>", alert.Location)
	}
	fmt.Fprintf(&b, "<li>Raised: %s</li>", alert.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	b.WriteString("</ul>")
	if alert.ImageURL != "" {
		fmt.Fprintf(&b, "<p>Snapshot: %s</p>", alert.ImageURL)
	}
	b.WriteString("</body></html>")
	return b.String()
}
