package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mssola/useragent"
)

// DeviceFingerprint derives a stable fingerprint from a User-Agent string for
// onboarding audit events. IP addresses are deliberately excluded; they are
// too volatile to contribute to a fingerprint.
func DeviceFingerprint(userAgentString string) string {
	if strings.TrimSpace(userAgentString) == "" {
		return ""
	}

	ua := useragent.New(userAgentString)
	browser, version := ua.Browser()

	majorVersion := "unknown"
	if version != "" {
		if parts := strings.Split(version, "."); len(parts) > 0 && parts[0] != "" {
			majorVersion = parts[0]
		}
	}

	platform := "desktop"
	if ua.Mobile() {
		platform = "mobile"
	}

	browser = strings.ToLower(strings.TrimSpace(browser))
	if browser == "" {
		browser = "unknown"
	}
	os := strings.ToLower(strings.TrimSpace(ua.OS()))
	if os == "" {
		os = "unknown"
	}

	data := fmt.Sprintf("%s|%s|%s|%s", browser, majorVersion, os, platform)
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
