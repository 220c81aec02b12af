package utils

import (
	"strings"

	ua "github.com/mssola/user_agent"
)

// DeviceInfo describes the device that scanned a QR code or signed in
type DeviceInfo struct {
	DeviceType string `json:"device_type"` // mobile, tablet, desktop, unknown
	OS         string `json:"os"`
	Browser    string `json:"browser"`
	BrowserVer string `json:"browser_ver,omitempty"`
	Platform   string `json:"platform"`
	IsBot      bool   `json:"is_bot"`
}

var tabletMarkers = []string{"ipad", "tablet", "kindle", "playbook", "nexus 7", "nexus 9", "nexus 10", "sm-t"}

var platforms = []struct {
	marker   string
	platform string
}{
	{"android", "android"},
	{"iphone os", "ios"},
	{"ios", "ios"},
	{"windows", "windows"},
	{"mac os x", "mac"},
	{"macos", "mac"},
	{"chrome os", "chromeos"},
	{"cros", "chromeos"},
	{"linux", "linux"},
	{"ubuntu", "linux"},
}

// ParseUserAgent extracts device details from a User-Agent header
func ParseUserAgent(userAgent string) DeviceInfo {
	if userAgent == "" || userAgent == "Unknown" {
		return DeviceInfo{DeviceType: "unknown", OS: "Unknown", Browser: "Unknown", Platform: "unknown"}
	}

	parser := ua.New(userAgent)
	browser, version := parser.Browser()
	if browser == "" {
		browser = "Unknown"
	}

	return DeviceInfo{
		DeviceType: deviceType(parser, userAgent),
		OS:         osName(parser),
		Browser:    browser,
		BrowserVer: version,
		Platform:   platform(parser),
		IsBot:      parser.Bot(),
	}
}

func deviceType(parser *ua.UserAgent, raw string) string {
	lower := strings.ToLower(raw)
	for _, marker := range tabletMarkers {
		if strings.Contains(lower, marker) {
			return "tablet"
		}
	}
	if parser.Mobile() {
		return "mobile"
	}
	return "desktop"
}

func osName(parser *ua.UserAgent) string {
	info := parser.OSInfo()
	if info.Name == "" {
		return "Unknown"
	}
	if info.Version != "" {
		return info.Name + " " + info.Version
	}
	return info.Name
}

// platform checks markers in a fixed order so iOS wins over the "like Mac OS X" suffix
func platform(parser *ua.UserAgent) string {
	name := strings.ToLower(parser.OSInfo().Name + " " + parser.OS())
	for _, p := range platforms {
		if strings.Contains(name, p.marker) {
			return p.platform
		}
	}
	return "unknown"
}
