// Package validation checks user input before it reaches the network.
//
// Host URLs name the Imbo server and are checked when a client first sends
// a request. Source URLs are images the server should ingest through
// "images add --url"; they are fetched by the CLI itself, so private and
// cloud metadata addresses are refused.
//
// Private and loopback hosts can be allowed with the IMBO_ALLOW_PRIVATE
// environment variable (any value strconv.ParseBool accepts) or
// SetAllowPrivate(true). Cloud metadata endpoints stay blocked either way.
package validation

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

var allowPrivate atomic.Bool

var privateNetworks []*net.IPNet

func init() {
	v, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv("IMBO_ALLOW_PRIVATE")))
	allowPrivate.Store(v)

	for _, cidr := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"100.64.0.0/10",
		"169.254.0.0/16",
		"192.0.0.0/24",
		"198.18.0.0/15",
		"240.0.0.0/4",
		"fc00::/7",
		"fe80::/10",
		"ff00::/8",
		"100::/64",
	} {
		if _, network, err := net.ParseCIDR(cidr); err == nil {
			privateNetworks = append(privateNetworks, network)
		}
	}
}

// SetAllowPrivate enables or disables private and loopback hosts.
func SetAllowPrivate(enabled bool) {
	allowPrivate.Store(enabled)
}

// AllowPrivateEnabled reports whether private and loopback hosts are allowed.
func AllowPrivateEnabled() bool {
	return allowPrivate.Load()
}

type policy struct {
	allowLoopback bool
	allowPrivate  bool
	resolve       bool
}

// ValidateHostURL validates the URL of an Imbo server. It must use http or
// https, name a host and carry no credentials, query or fragment. Loopback
// and private addresses are accepted, since Imbo servers commonly run on
// the local network, unless they are cloud metadata endpoints.
func ValidateHostURL(rawURL string) error {
	u, err := parseHTTPURL(rawURL)
	if err != nil {
		return err
	}
	if u.User != nil {
		return fmt.Errorf("host URL must not contain credentials")
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("host URL must not contain a query or fragment")
	}
	return checkHost(u.Hostname(), policy{allowLoopback: true, allowPrivate: true})
}

// ValidateSourceURL validates a remote image URL the CLI downloads on the
// user's behalf. Loopback is allowed for local development; private ranges
// only when AllowPrivateEnabled.
func ValidateSourceURL(rawURL string) error {
	u, err := parseHTTPURL(rawURL)
	if err != nil {
		return err
	}
	return checkHost(u.Hostname(), policy{
		allowLoopback: true,
		allowPrivate:  allowPrivate.Load(),
		resolve:       true,
	})
}

func parseHTTPURL(rawURL string) (*url.URL, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("URL cannot be empty")
	}
	if len(rawURL) > MaxURLLength {
		return nil, fmt.Errorf("URL exceeds maximum length of %d characters", MaxURLLength)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL scheme: only http and https are allowed, got %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("URL must contain a hostname")
	}
	return u, nil
}

func checkHost(hostname string, p policy) error {
	if isCloudMetadata(hostname) {
		return fmt.Errorf("cloud metadata endpoints are not allowed")
	}
	if isLocalhost(hostname) {
		if !p.allowLoopback {
			return fmt.Errorf("localhost URLs are not allowed")
		}
		return nil
	}

	if ip := net.ParseIP(hostname); ip != nil {
		return checkIP(ip, p)
	}
	if !p.resolve {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ips, err := (&net.Resolver{}).LookupIP(ctx, "ip", hostname)
	if err != nil {
		// unresolvable names fail later at request time
		return nil
	}
	for _, ip := range ips {
		if err := checkIP(ip, p); err != nil {
			return fmt.Errorf("domain %q resolves to forbidden IP %s: %w", hostname, ip, err)
		}
	}
	return nil
}

func checkIP(ip net.IP, p policy) error {
	switch {
	case ip.String() == "169.254.169.254":
		return fmt.Errorf("cloud metadata IP address is not allowed")
	case ip.IsUnspecified():
		return fmt.Errorf("unspecified IP addresses are not allowed")
	case ip.IsLoopback():
		if !p.allowLoopback {
			return fmt.Errorf("loopback IP addresses are not allowed")
		}
		return nil
	case ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast():
		return fmt.Errorf("link-local IP addresses are not allowed")
	case !p.allowPrivate && isPrivateIP(ip):
		return fmt.Errorf("private IP addresses are not allowed")
	}
	return nil
}

func isLocalhost(hostname string) bool {
	h := strings.ToLower(hostname)
	return h == "localhost" || strings.HasSuffix(h, ".localhost")
}

func isCloudMetadata(hostname string) bool {
	switch h := strings.ToLower(hostname); h {
	case "169.254.169.254", "metadata.google.internal", "metadata", "instance-data", "fd00:ec2::254":
		return true
	default:
		return strings.HasSuffix(h, ".metadata.google.internal")
	}
}

func isPrivateIP(ip net.IP) bool {
	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
