package website

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Publisher.Example.COM", "publisher.example.com"},
		{"www.publisher.example.com", "publisher.example.com"},
		{"https://www.publisher.example.com/", "publisher.example.com"},
		{"http://publisher.example.com", "publisher.example.com"},
		{"  publisher.example.com  ", "publisher.example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDomain(tt.in), "input %q", tt.in)
	}
}

func TestMatches(t *testing.T) {
	site := Website{Domain: "publisher.example.com"}
	assert.True(t, site.Matches("https://WWW.publisher.example.com/"))
	assert.False(t, site.Matches("other.example.com"))
}
