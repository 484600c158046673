package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/chargewatch-go/internal/conf"
	"github.com/tphakala/chargewatch-go/internal/datastore/entities"
	"github.com/tphakala/chargewatch-go/internal/logger"
)

type fakeChannel struct {
	name        string
	minSeverity int
	err         error
	sent        []uint
}

func (c *fakeChannel) Name() string     { return c.name }
func (c *fakeChannel) MinSeverity() int { return c.minSeverity }
func (c *fakeChannel) Send(_ context.Context, alert *entities.Alert) error {
	c.sent = append(c.sent, alert.ID)
	return c.err
}

type countingRecorder struct {
	counts map[string]int
}

func (r *countingRecorder) NotificationSent(channel, result string) {
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[channel+"/"+result]++
}

func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
}

func TestDispatchRespectsSeverityGates(t *testing.T) {
	email := &fakeChannel{name: "email", minSeverity: 3}
	sms := &fakeChannel{name: "sms", minSeverity: 4}
	webhook := &fakeChannel{name: "webhook", minSeverity: 0}
	d := NewDispatcher([]Channel{email, sms, webhook}, nil, testLogger())

	d.Dispatch(context.Background(), &entities.Alert{ID: 1, AlertType: "overcurrent", Severity: 3})

	assert.Len(t, email.sent, 1)
	assert.Empty(t, sms.sent, "severity 3 does not clear the SMS gate")
	assert.Len(t, webhook.sent, 1, "webhooks carry every severity")
}

func TestDispatchIsolatesFailures(t *testing.T) {
	failing := &fakeChannel{name: "email", err: errors.New("smtp down")}
	healthy := &fakeChannel{name: "webhook"}
	recorder := &countingRecorder{}
	d := NewDispatcher([]Channel{failing, healthy}, recorder, testLogger())

	d.Dispatch(context.Background(), &entities.Alert{ID: 7, AlertType: "smoke", Severity: 5})

	assert.Len(t, healthy.sent, 1, "failure on one channel never blocks another")
	assert.Equal(t, 1, recorder.counts["email/error"])
	assert.Equal(t, 1, recorder.counts["webhook/success"])
}

func TestWebhookChannelPostsAlert(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, "http://hooks.local/alerts",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			assert.Equal(t, "secret", req.Header.Get("X-Auth-Token"))
			return httpmock.NewStringResponse(http.StatusAccepted, "ok"), nil
		})

	channel := NewWebhookChannel(conf.WebhookSettings{
		Enabled: true,
		URL:     "http://hooks.local/alerts",
		Headers: map[string]string{"X-Auth-Token": "secret"},
	}, client)

	err := channel.Send(context.Background(), &entities.Alert{ID: 3, AlertType: "fire", Severity: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestWebhookChannelRejectsErrorStatus(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, "http://hooks.local/alerts",
		httpmock.NewStringResponder(http.StatusInternalServerError, "boom"))

	channel := NewWebhookChannel(conf.WebhookSettings{URL: "http://hooks.local/alerts"}, client)
	err := channel.Send(context.Background(), &entities.Alert{ID: 3, AlertType: "fire", Severity: 5})
	assert.Error(t, err)
}

func TestSMSChannelRequiresExactOK(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, "http://sms.local/send",
		httpmock.NewStringResponder(http.StatusAccepted, "queued"))

	channel := NewSMSChannel(conf.SMSSettings{
		APIURL:     "http://sms.local/send",
		APIKey:     "key",
		Recipients: []string{"+3581234567"},
	}, client)

	err := channel.Send(context.Background(), &entities.Alert{ID: 9, AlertType: "smoke", Severity: 5, Message: "smoke critical"})
	assert.Error(t, err, "SMS gateway success is status 200 only")
}

func TestSMSChannelSuccess(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, "http://sms.local/send",
		httpmock.NewStringResponder(http.StatusOK, "sent"))

	channel := NewSMSChannel(conf.SMSSettings{
		APIURL:     "http://sms.local/send",
		APIKey:     "key",
		Recipients: []string{"+3581234567"},
	}, client)

	err := channel.Send(context.Background(), &entities.Alert{ID: 9, AlertType: "smoke", Severity: 5, Message: "smoke critical"})
	assert.NoError(t, err)
}

func TestSMSChannelTextsEachRecipient(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, "http://sms.local/send",
		httpmock.NewStringResponder(http.StatusOK, "sent"))

	channel := NewSMSChannel(conf.SMSSettings{
		APIURL:     "http://sms.local/send",
		APIKey:     "key",
		Recipients: []string{"+3581234567", "+3587654321"},
	}, client)

	err := channel.Send(context.Background(), &entities.Alert{ID: 9, AlertType: "smoke", Severity: 5, Message: "smoke critical"})
	require.NoError(t, err)
	assert.Equal(t, 2, httpmock.GetTotalCallCount(), "one request per recipient")
}

func TestSMSChannelWithoutRecipientsIsNoOp(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	channel := NewSMSChannel(conf.SMSSettings{APIURL: "http://sms.local/send"}, client)
	err := channel.Send(context.Background(), &entities.Alert{ID: 9, AlertType: "smoke", Severity: 5})
	assert.NoError(t, err)
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestPushChannelWithoutURLIsNoOp(t *testing.T) {
	channel := NewPushChannel(conf.PushSettings{Enabled: true}, testLogger())
	err := channel.Send(context.Background(), &entities.Alert{ID: 2, AlertType: "overheat", Severity: 4})
	assert.NoError(t, err)
}

func TestEmailChannelWithoutRecipientsIsNoOp(t *testing.T) {
	channel := NewEmailChannel(conf.EmailSettings{Enabled: true, SMTPServer: "smtp.local", SMTPPort: 587})
	err := channel.Send(context.Background(), &entities.Alert{ID: 4, AlertType: "overheat", Severity: 4})
	assert.NoError(t, err)
}

func TestBuildChannelsHonorsEnabledFlags(t *testing.T) {
	channels := BuildChannels(conf.NotificationSettings{
		Email:   conf.EmailSettings{Enabled: true, Recipients: []string{"ops@example.com"}},
		Webhook: conf.WebhookSettings{Enabled: true, URL: "http://hooks.local/alerts"},
	}, nil, testLogger())

	require.Len(t, channels, 2)
	assert.Equal(t, "email", channels[0].Name())
	assert.Equal(t, "webhook", channels[1].Name())
}

func TestRenderAlertHTMLIncludesDetails(t *testing.T) {
	html := renderAlertHTML(&entities.Alert{
		AlertType: "overcurrent",
		Message:   "current 25.00A exceeds critical threshold",
		Severity:  4,
		Location:  "bay 3",
	})
	assert.Contains(t, html, "overcurrent")
	assert.Contains(t, html, "bay 3")
	assert.Contains(t, html, "Severity: 4")
}
