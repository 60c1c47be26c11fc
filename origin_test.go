package connpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrigin(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Origin
		wantErr bool
	}{
		{"http with port", "http://example.com:8080", Origin{"http", "example.com", 8080}, false},
		{"http default port", "http://example.com", Origin{"http", "example.com", 80}, false},
		{"https default port", "https://example.com", Origin{"https", "example.com", 443}, false},
		{"uppercase scheme", "HTTP://example.com:9", Origin{"http", "example.com", 9}, false},
		{"missing scheme", "example.com:80", Origin{}, true},
		{"unsupported scheme", "ftp://example.com", Origin{}, true},
		{"missing host", "http://:80", Origin{}, true},
		{"bad port", "http://example.com:abc", Origin{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOrigin(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrigin_StringAndAddress(t *testing.T) {
	o := Origin{Scheme: "https", Host: "api.example.com", Port: 443}
	assert.Equal(t, "https://api.example.com:443", o.String())
	assert.Equal(t, "api.example.com:443", o.Address())
}
