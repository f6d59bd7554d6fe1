package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"strings"
	"time"
	"golang.org/x/net/idna"
)

var lookupProfile = idna.New(idna.MapForLookup(), idna.StrictDomainName(false), idna.RemoveLeadingDots(true), idna.Transitional(false))

// NormalizeHostname lowercases, strips the trailing root dot and converts
// IDN labels to their ASCII form.
func NormalizeHostname(name string) (string, error) {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".")
	if name == "" {
		return "", fmt.Errorf("empty hostname")
	}
	ascii, err := lookupProfile.ToASCII(name)
	if err != nil {
		return "", fmt.Errorf("invalid hostname %q: %w", name, err)
	}
	return strings.ToLower(ascii), nil
}

func GenerateShortID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

func IsValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}

// WithDefaultPort appends :53 to a bare nameserver address.
func WithDefaultPort(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(strings.Trim(server, "[]"), "53")
}

func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

func HumanizeDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}
