package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
)

// DetectionMetrics tracks security detection events
type DetectionMetrics struct {
	SuspiciousRequests int64
}

// Detector flags suspicious requests and resolves the real client address.
type Detector struct {
	suspicious     int64
	trustedProxies []*net.IPNet
}

var (
	suspiciousPatterns = []string{
		"../", "..\\", ".env", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", ".git", ".ssh",
		"eval(", "javascript:", "<script", "union select",
		"etc/passwd", "cmd.exe",
	}
	suspiciousAgents = []string{
		"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan",
	}
	unusualMethods = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}
)

func NewDetector() *Detector {
	return &Detector{
		trustedProxies: []*net.IPNet{
			parseCIDR("127.0.0.0/8"),    // localhost
			parseCIDR("10.0.0.0/8"),     // private networks
			parseCIDR("172.16.0.0/12"),  // private networks
			parseCIDR("192.168.0.0/16"), // private networks
		},
	}
}

func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

// DetectSuspiciousRequest reports whether r matches a known probing pattern.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	suspicious := containsAny(strings.ToLower(r.URL.Path), suspiciousPatterns) ||
		containsAny(strings.ToLower(r.URL.RawQuery), suspiciousPatterns) ||
		containsAny(strings.ToLower(r.Header.Get("User-Agent")), suspiciousAgents) ||
		len(r.URL.String()) > 2048 ||
		strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5

	for _, method := range unusualMethods {
		if r.Method == method {
			suspicious = true
		}
	}

	if suspicious {
		atomic.AddInt64(&d.suspicious, 1)
	}
	return suspicious
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// ExtractClientIP returns the direct peer address, or the forwarded client
// address when the peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsedDirectIP := net.ParseIP(directIP)
	if parsedDirectIP == nil || !d.isTrustedProxy(parsedDirectIP) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		clientIP := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(clientIP) != nil {
			return clientIP
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}
	return directIP
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetMetrics returns current security metrics
func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{SuspiciousRequests: atomic.LoadInt64(&d.suspicious)}
}

// AddTrustedProxy adds a trusted proxy network
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}
