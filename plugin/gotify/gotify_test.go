package gotify

import (
	"errors"
	"net/url"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
	"github.com/caddyserver/caddy"
	"github.com/gotify/go-api-client/v2/client/message"
	"github.com/gotify/go-api-client/v2/models"
	"github.com/nextdhcp/leasehook/core/events"
	"github.com/nextdhcp/leasehook/core/lease"
	"github.com/nextdhcp/leasehook/core/matcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func releaseLease(t *testing.T) *events.Lease {
	reg := lease.NewRegistry(lease.Table{{MAC: "aa:bb", IP: "10.0.0.5", Hostname: "rsa-tc", Location: ".112"}})
	res, err := reg.Apply(lease.NewEvent(lease.KindRelease, "aa:bb", "10.0.0.5", ""))
	require.NoError(t, err)

	return &events.Lease{
		Result:   res,
		Instance: "pod-manager",
		Note:     lease.NoteReleased,
	}
}

func TestNotificationPrepare(t *testing.T) {
	l := releaseLease(t)
	emptyMatcher, err := matcher.SetupMatcherString("")
	require.NoError(t, err)

	var (
		msg    string
		title  string
		msgErr error
	)

	n := notification{
		Matcher: emptyMatcher,
		msg: func(_ *events.Lease) (string, error) {
			return msg, msgErr
		},
		title: func(_ *events.Lease) (string, error) {
			return title, nil
		},
		srv:   "http://gotify.com",
		token: "some-token",
	}

	// empty title should be replaced with the default one
	nt, nm, err := n.Prepare(events.EventLeaseReleased, l)
	assert.NoError(t, err)
	assert.Equal(t, "leasehook", nt)
	assert.Empty(t, nm)

	msg = "some message"
	title = "some title"
	nt, nm, err = n.Prepare(events.EventLeaseReleased, l)
	assert.NoError(t, err)
	assert.Equal(t, "some title", nt)
	assert.Equal(t, "some message", nm)

	// events not subscribed to are skipped
	n.events = map[caddy.EventName]struct{}{events.EventLeaseCommitted: {}}
	nt, nm, err = n.Prepare(events.EventLeaseReleased, l)
	assert.NoError(t, err)
	assert.Empty(t, nt)
	assert.Empty(t, nm)
	n.events = nil

	alwaysFalse, err := matcher.SetupMatcherString("1 == 0")
	require.NoError(t, err)
	n.Matcher = alwaysFalse
	nt, nm, err = n.Prepare(events.EventLeaseReleased, l)
	assert.NoError(t, err)
	assert.Empty(t, nm)
	assert.Empty(t, nt)

	errorMatcher, err := matcher.SetupMatcherString("'string'")
	require.NoError(t, err)
	n.Matcher = errorMatcher
	_, _, err = n.Prepare(events.EventLeaseReleased, l)
	assert.Error(t, err)

	n.Matcher = emptyMatcher
	msgErr = errors.New("simulated error")
	nt, nm, err = n.Prepare(events.EventLeaseReleased, l)
	assert.Equal(t, msgErr, err)
	assert.Empty(t, nt)
	assert.Empty(t, nm)
}

func TestNotificationSend(t *testing.T) {
	emptyMatcher, err := matcher.SetupMatcherString("")
	require.NoError(t, err)

	n := notification{
		Matcher:  emptyMatcher,
		srv:      "http://gotify.com",
		token:    "some-token",
		priority: defaultPriority,
	}

	called := false
	returnErr := errors.New("simulated error")
	notify = func(srv *url.URL, token string, msg *message.CreateMessageParams) error {
		called = true

		assert.Equal(t, "http://gotify.com", srv.String())
		assert.Equal(t, "some-token", token)
		assert.Equal(t, "title", msg.Body.Title)
		assert.Equal(t, "message", msg.Body.Message)
		assert.Equal(t, 5, msg.Body.Priority)

		return returnErr
	}

	assert.Equal(t, returnErr, n.Send("title", "message"))
	assert.True(t, called)
}

func TestGotifyHandle(t *testing.T) {
	emptyMatcher, _ := matcher.SetupMatcherString("")
	alwaysFalse, _ := matcher.SetupMatcherString("1 == 0")
	releasedOnly, _ := matcher.SetupMatcherString("event == 'lease-released'")

	var messages []*models.MessageExternal
	var servers []string

	notify = func(srv *url.URL, token string, msg *message.CreateMessageParams) error {
		servers = append(servers, srv.String())
		messages = append(messages, msg.Body)
		if srv.Host == "broken.example" {
			return errors.New("simulated error")
		}
		return nil
	}

	handler := memory.New()
	g := &gotifyPlugin{
		l: &log.Logger{Handler: handler, Level: log.DebugLevel},
		notifications: []*notification{
			{
				Matcher: emptyMatcher,
				msg:     getStringFactory("{hostname} released {ip}"),
				title:   getStringFactory("{instance}"),
				srv:     "http://gotify1.example",
				token:   "token-1",
			},
			{
				Matcher: alwaysFalse,
				msg:     getStringFactory("never"),
				srv:     "http://gotify2.example",
				token:   "token-2",
			},
			{
				// credentials only
				Matcher: emptyMatcher,
				srv:     "http://gotify3.example",
				token:   "token-3",
			},
			{
				Matcher:  releasedOnly,
				msg:      getStringFactory("{mac}"),
				srv:      "http://broken.example",
				token:    "token-4",
				priority: 8,
			},
		},
	}

	err := g.handle(events.EventLeaseReleased, releaseLease(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.example")

	assert.Equal(t, []string{"http://gotify1.example", "http://broken.example"}, servers)
	require.Len(t, messages, 2)
	assert.Equal(t, "pod-manager", messages[0].Title)
	assert.Equal(t, "rsa-tc released 10.0.0.5", messages[0].Message)
	assert.Equal(t, "leasehook", messages[1].Title)
	assert.Equal(t, "aa:bb", messages[1].Message)
	assert.Equal(t, 8, messages[1].Priority)
}
