package domain

import (
	"fmt"
	"strings"

	"github.com/ghettovoice/gosip/sip/parser"
)

// DefaultSIPTechnology is the channel technology SIP URIs are dialed with.
const DefaultSIPTechnology = "PJSIP"

// NormalizeEndpoint turns a dial endpoint into the technology/resource form
// the telephony service expects. Technology strings pass through unchanged;
// SIP URIs are parsed and rewritten as PJSIP/user@host[:port].
func NormalizeEndpoint(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty endpoint", ErrInvalidEndpoint)
	}

	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "sip:") && !strings.HasPrefix(lower, "sips:") {
		tech, resource, ok := strings.Cut(raw, "/")
		if !ok || tech == "" || resource == "" {
			return "", fmt.Errorf("%w: %q is neither TECH/resource nor a SIP URI", ErrInvalidEndpoint, raw)
		}
		return raw, nil
	}

	uri, err := parser.ParseUri(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}

	host := uri.Host()
	if host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrInvalidEndpoint, raw)
	}
	if port := uri.Port(); port != nil {
		host = fmt.Sprintf("%s:%d", host, *port)
	}

	user := ""
	if u := uri.User(); u != nil {
		user = u.String()
	}
	if user == "" {
		return fmt.Sprintf("%s/%s", DefaultSIPTechnology, host), nil
	}
	return fmt.Sprintf("%s/%s@%s", DefaultSIPTechnology, user, host), nil
}
