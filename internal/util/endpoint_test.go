package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanEndpoint(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "removes duplicated prefix",
			in:   "https://factory.example.com/api/v1/api/v1/chatbots/chat/abc",
			want: "https://factory.example.com/api/v1/chatbots/chat/abc",
		},
		{
			name: "removes tripled prefix",
			in:   "https://factory.example.com/api/v1/api/v1/api/v1/chatbots/chat/abc",
			want: "https://factory.example.com/api/v1/chatbots/chat/abc",
		},
		{
			name: "clean link untouched",
			in:   "https://factory.example.com/api/v1/chatbots/chat/abc",
			want: "https://factory.example.com/api/v1/chatbots/chat/abc",
		},
		{
			name: "empty string",
			in:   "",
			want: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanEndpoint(tc.in))
		})
	}
}

func TestCleanEndpointIdempotent(t *testing.T) {
	inputs := []string{
		"https://factory.example.com/api/v1/api/v1/chatbots/chat/abc",
		"https://factory.example.com/api/v1/chatbots",
		"/api/v1/api/v1/api/v1/x",
		"no-prefix-at-all",
	}

	for _, in := range inputs {
		once := CleanEndpoint(in)
		assert.Equal(t, once, CleanEndpoint(once), "second pass must not change %q", in)
	}
}

func TestTrimEndpointPath(t *testing.T) {
	assert.Equal(t, "/chatbots/chat/abc", TrimEndpointPath("/api/v1/chatbots/chat/abc"))
	assert.Equal(t, "/chatbots/chat/abc", TrimEndpointPath("/chatbots/chat/abc"))
	assert.Equal(t, "", TrimEndpointPath("/api/v1"))
}
