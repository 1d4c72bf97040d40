// Package sendgridgw delivers absentee alerts by email through SendGrid,
// for deployments without an SMS transport.
package sendgridgw

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"rollcall/internal/notify"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

// Gateway sends alert emails via the SendGrid v3 API.
type Gateway struct {
	key  string
	from *sgmail.Email
}

var _ notify.Gateway = (*Gateway)(nil)

func New(key, appName, fromEmail string) *Gateway {
	return &Gateway{
		key:  key,
		from: sgmail.NewEmail(appName, fromEmail),
	}
}

func (g *Gateway) Send(ctx context.Context, alert notify.Alert) error {
	if alert.Contact == "" {
		return fmt.Errorf("alert for %s has no contact address", alert.StudentID)
	}

	p := sgmail.NewPersonalization()
	p.Subject = notify.Subject(alert)
	p.AddTos(sgmail.NewEmail("", alert.Contact))

	m := sgmail.NewV3Mail()
	m.SetFrom(g.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", notify.Message(alert)))

	req := sendgrid.GetRequest(g.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid rejected alert: status %d", res.StatusCode)
	}
	return nil
}
