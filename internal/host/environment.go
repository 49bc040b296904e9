// Package host models the context the embedding page hands the widget: where
// it runs, the theme, the signed-in user, and the properties it was given.
package host

import (
	"net"
	"net/http"
	"strings"

	"github.com/livetemplate/accordion/internal/config"
)

// Host names reported by the embedding surface
const (
	HostSharePoint  = "SharePoint"
	HostTeams       = "Teams"
	HostTeamsModern = "TeamsModern"
	HostOffice      = "Office"
	HostOutlook     = "Outlook"
)

// Environment messages shown by the widget
const (
	MessageSharePoint      = "The app is running on SharePoint page"
	MessageTeams           = "The app is running in Microsoft Teams"
	MessageOffice          = "The app is running in office.com"
	MessageOutlook         = "The app is running in Outlook"
	MessageLocalSharePoint = "The app is running on your local environment as SharePoint web part"
	MessageLocalTeams      = "The app is running on your local environment as Microsoft Teams app"
	MessageLocalOffice     = "The app is running on your local environment in office.com"
	MessageLocalOutlook    = "The app is running on your local environment in Outlook"
	MessageUnknown         = "The app is running in an unknown environment"
)

// Environment describes the surface the widget is embedded in
type Environment struct {
	Host      string // empty means a plain page (SharePoint)
	Localhost bool   // served from a local development server
}

// HasTeamsContext reports whether the widget is hosted through the Teams SDK
// (Teams, office.com or Outlook) rather than directly on a page.
func (e Environment) HasTeamsContext() bool {
	return e.Host != "" && !strings.EqualFold(e.Host, HostSharePoint)
}

// Message returns the display string for the environment
func (e Environment) Message() string {
	if !e.HasTeamsContext() {
		if e.Localhost {
			return MessageLocalSharePoint
		}
		return MessageSharePoint
	}

	switch e.Host {
	case HostOffice:
		return pick(e.Localhost, MessageLocalOffice, MessageOffice)
	case HostOutlook:
		return pick(e.Localhost, MessageLocalOutlook, MessageOutlook)
	case HostTeams, HostTeamsModern:
		return pick(e.Localhost, MessageLocalTeams, MessageTeams)
	default:
		return MessageUnknown
	}
}

func pick(local bool, localMsg, msg string) string {
	if local {
		return localMsg
	}
	return msg
}

// DetectEnvironment resolves the environment for a request. The "host" query
// parameter overrides the configured host; local serving is inferred from the
// request's Host header unless the config forces it.
func DetectEnvironment(r *http.Request, cfg config.EnvironmentConfig) Environment {
	env := Environment{Host: cfg.Host, Localhost: cfg.Localhost}
	if r == nil {
		return env
	}
	if h := r.URL.Query().Get("host"); h != "" {
		env.Host = h
	}
	if !env.Localhost {
		env.Localhost = isLocalHost(r.Host)
	}
	return env
}

func isLocalHost(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
