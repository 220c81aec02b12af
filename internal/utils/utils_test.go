package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		name       string
		agent      string
		deviceType string
		platform   string
	}{
		{
			name:       "Android phone",
			agent:      "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Mobile Safari/537.36",
			deviceType: "mobile",
			platform:   "android",
		},
		{
			name:       "iPhone",
			agent:      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			deviceType: "mobile",
			platform:   "ios",
		},
		{
			name:       "iPad",
			agent:      "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1",
			deviceType: "tablet",
		},
		{
			name:       "Windows desktop",
			agent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
			deviceType: "desktop",
			platform:   "windows",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseUserAgent(tt.agent)
			assert.Equal(t, tt.deviceType, info.DeviceType)
			if tt.platform != "" {
				assert.Equal(t, tt.platform, info.Platform)
			}
			assert.NotEqual(t, "Unknown", info.Browser)
		})
	}

	unknown := ParseUserAgent("")
	assert.Equal(t, "unknown", unknown.DeviceType)
	assert.Equal(t, "Unknown", unknown.OS)
}

func TestGetRealIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"X-Real-IP public", map[string]string{"X-Real-IP": "203.0.113.7"}, "203.0.113.7"},
		{"Forwarded skips private hops", map[string]string{"X-Forwarded-For": "10.0.0.4, 198.51.100.2"}, "198.51.100.2"},
		{"Forwarded all private", map[string]string{"X-Forwarded-For": "10.0.0.4, 192.168.1.1"}, "10.0.0.4"},
		{"No headers", nil, "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/", nil)
			c.Request.RemoteAddr = "192.0.2.1:1234"
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetRealIP(c))
		})
	}
}

func TestGenerateJWTSecret(t *testing.T) {
	a, err := GenerateJWTSecret()
	require.NoError(t, err)
	b, err := GenerateJWTSecret()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
