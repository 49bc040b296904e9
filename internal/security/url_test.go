package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		allowPrivate bool
		wantErr      string
	}{
		{"public https", "https://lists.example.com/api", false, ""},
		{"public ip", "http://8.8.8.8/api", false, ""},
		{"ftp scheme", "ftp://lists.example.com", false, "scheme must be http or https"},
		{"no host", "http:///api", false, "must have a host"},
		{"query", "https://lists.example.com/api?x=1", false, "query or fragment"},
		{"localhost", "http://localhost:8080/api", false, "localhost"},
		{"loopback", "http://127.0.0.1:8080/api", false, "loopback"},
		{"ipv6 loopback", "http://[::1]:8080/api", false, "loopback"},
		{"private", "http://10.1.2.3/api", false, "private network"},
		{"link local", "http://169.254.169.254/latest", false, "link-local"},
		{"unspecified", "http://0.0.0.0/api", false, "unspecified"},
		{"localhost allowed", "http://localhost:8080/api", true, ""},
		{"private allowed", "http://10.1.2.3/api", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ValidateBaseURL(tt.url, tt.allowPrivate)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, u)
		})
	}
}
