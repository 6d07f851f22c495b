package gotify

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/caddyserver/caddy"
	"github.com/gotify/go-api-client/v2/auth"
	"github.com/gotify/go-api-client/v2/client/message"
	"github.com/gotify/go-api-client/v2/gotify"
	"github.com/gotify/go-api-client/v2/models"
	"github.com/nextdhcp/leasehook/core/events"
	"github.com/nextdhcp/leasehook/core/matcher"
)

const (
	defaultTitle    = "leasehook"
	defaultPriority = 5
	requestTimeout  = 10 * time.Second
)

type (
	// msgFactory creates the gotify notification message
	// from the given lease event
	msgFactory func(l *events.Lease) (string, error)

	// gotifyPlugin matches lease events against a set of conditions
	// and sends notifications
	gotifyPlugin struct {
		notifications []*notification
		l             log.Interface
	}

	// notification combines the matcher (condition) and a message
	// factory for a gotify notification
	notification struct {
		*matcher.Matcher
		msg      msgFactory
		title    msgFactory
		srv      string
		token    string
		priority int
		events   map[caddy.EventName]struct{}
	}
)

// notify sends msg to the gotify server at srv. Tests replace it
var notify = func(srv *url.URL, token string, msg *message.CreateMessageParams) error {
	cli := gotify.NewClient(srv, &http.Client{Timeout: requestTimeout})

	_, err := cli.Message.CreateMessage(msg, auth.TokenAuth(token))
	return err
}

// Prepare checks if we should send a notification for the given lease event
// and returns the message title and body. An empty message body indicates
// that no notification should be sent
func (n *notification) Prepare(event caddy.EventName, l *events.Lease) (string, string, error) {
	if n.msg == nil {
		return "", "", nil
	}

	if len(n.events) > 0 {
		if _, ok := n.events[event]; !ok {
			return "", "", nil
		}
	}

	matched, err := n.Match(l)
	if err != nil {
		return "", "", err
	}

	if !matched {
		return "", "", nil
	}

	msg, err := n.msg(l)
	if err != nil {
		return "", "", err
	}

	var title string

	if n.title != nil {
		title, _ = n.title(l)
	}

	if title == "" {
		title = defaultTitle
	}

	return title, msg, nil
}

// Send sends a notification to the gotify server
func (n *notification) Send(title, msg string) error {
	gotifyURL, err := url.Parse(n.srv)
	if err != nil {
		return err
	}

	params := message.NewCreateMessageParams()
	params.Body = &models.MessageExternal{
		Title:    title,
		Message:  msg,
		Priority: n.priority,
	}

	return notify(gotifyURL, n.token, params)
}

// addNotification adds a new notification to the gotify plugin
func (g *gotifyPlugin) addNotification(n *notification) {
	g.notifications = append(g.notifications, n)
}

// findLastCreds returns the last credentials used for a notification
func (g *gotifyPlugin) findLastCreds() (string, string, bool) {
	if len(g.notifications) == 0 {
		return "", "", false
	}

	last := g.notifications[len(g.notifications)-1]
	return last.srv, last.token, true
}

// handle sends all notifications that match the lease event. Notifications
// are sent synchronously as the process exits once the event has been
// handled
func (g *gotifyPlugin) handle(event caddy.EventName, l *events.Lease) error {
	var errs []string

	for _, n := range g.notifications {
		title, body, err := n.Prepare(event, l)
		if err != nil {
			errs = append(errs, fmt.Sprintf("failed to prepare notification: %s", err))
			continue
		}

		if body == "" {
			continue
		}

		g.l.Debugf("sending notification: %s\n%s", title, body)

		if err := n.Send(title, body); err != nil {
			errs = append(errs, fmt.Sprintf("failed to send notification via %s: %s", n.srv, err))
			continue
		}

		g.l.Debugf("notification sent via %s: %s\n%s", n.srv, title, body)
	}

	if len(errs) > 0 {
		return fmt.Errorf("gotify: %s", strings.Join(errs, "; "))
	}
	return nil
}
