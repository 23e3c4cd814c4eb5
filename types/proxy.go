package types

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// ProxyProtocol is the allowed upstream proxy protocol.
type ProxyProtocol string

const (
	ProxyProtocolHTTP  ProxyProtocol = "http"
	ProxyProtocolHTTPS ProxyProtocol = "https"
)

// ProxyEndpoint is a secondary proxy that outbound connections are tunnelled
// through. It only affects connection establishment, never the data path.
type ProxyEndpoint struct {
	// Protocol is the proxy protocol (default http).
	Protocol ProxyProtocol `json:"protocol" yaml:"protocol" msgpack:"protocol"`
	// Host is the proxy host.
	Host string `json:"host" yaml:"host" msgpack:"host"`
	// Port is the proxy port (1-65535).
	Port int `json:"port" yaml:"port" msgpack:"port"`
	// Username is the optional username for authentication.
	Username *string `json:"username,omitempty" yaml:"username,omitempty" msgpack:"username,omitempty"`
	// Password is the optional password for authentication.
	Password *string `json:"password,omitempty" yaml:"password,omitempty" msgpack:"password,omitempty"`
}

// Validate validates the endpoint.
func (p *ProxyEndpoint) Validate() error {
	switch p.Protocol {
	case ProxyProtocolHTTP, ProxyProtocolHTTPS, "":
		// valid; empty defaults to http
	default:
		return fmt.Errorf("invalid protocol %q: must be http or https", p.Protocol)
	}

	if p.Host == "" {
		return fmt.Errorf("proxy host is required")
	}

	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", p.Port)
	}

	hasUsername := p.Username != nil && *p.Username != ""
	hasPassword := p.Password != nil && *p.Password != ""
	if hasUsername != hasPassword {
		return fmt.Errorf("username and password must be provided together")
	}

	return nil
}

// Addr returns host:port.
func (p *ProxyEndpoint) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// URL returns the endpoint as a proxy URL including credentials.
func (p *ProxyEndpoint) URL() *url.URL {
	scheme := string(p.Protocol)
	if scheme == "" {
		scheme = string(ProxyProtocolHTTP)
	}
	u := &url.URL{Scheme: scheme, Host: p.Addr()}
	if p.Username != nil && *p.Username != "" {
		pw := ""
		if p.Password != nil {
			pw = *p.Password
		}
		u.User = url.UserPassword(*p.Username, pw)
	}
	return u
}

// Redact returns a copy of the endpoint without the password.
func (p *ProxyEndpoint) Redact() ProxyEndpointRedacted {
	return ProxyEndpointRedacted{
		Protocol: p.Protocol,
		Host:     p.Host,
		Port:     p.Port,
		Username: p.Username,
	}
}

// ProxyEndpointRedacted is a proxy endpoint without password.
// Used wherever the endpoint is logged.
type ProxyEndpointRedacted struct {
	Protocol ProxyProtocol `json:"protocol"`
	Host     string        `json:"host"`
	Port     int           `json:"port"`
	Username *string       `json:"username,omitempty"`
}
