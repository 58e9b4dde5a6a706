package transport

import (
	"net/url"
	"strings"
)

// Retry destinations per originating flow. The redirect-context flag on the
// contribution request picks one; it has no other effect on processing.
const (
	RouteContribute = "/donate"
	RouteEvent      = "/events/register"
	RouteMembership = "/membership/join"
)

func RetryRoute(redirectContext string) string {
	switch redirectContext {
	case "event":
		return RouteEvent
	case "membership":
		return RouteMembership
	default:
		return RouteContribute
	}
}

// BuildRedirectURL joins the configured base URL with a route and query.
func BuildRedirectURL(baseURL, route string, query url.Values) string {
	u := strings.TrimRight(baseURL, "/") + route
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}
