package rtc

import (
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestICEServersGroupsBySchemes(t *testing.T) {
	servers := ICEServers([]string{
		"stun:stun.l.google.com:19302",
		" turn:turn.example.com:3478?transport=udp ",
		"http://nope",
		"",
	}, "u", "p")

	require.Len(t, servers, 2)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, servers[0].URLs)
	assert.Equal(t, []string{"turn:turn.example.com:3478?transport=udp"}, servers[1].URLs)
	assert.Equal(t, "u", servers[1].Username)
	assert.Equal(t, "p", servers[1].Credential)
	assert.Equal(t, webrtc.ICECredentialTypePassword, servers[1].CredentialType)
}

func TestICEServersDropsTURNWithoutCredentials(t *testing.T) {
	servers := ICEServers([]string{"stun:a:1", "turns:b:5349"}, "", "")
	require.Len(t, servers, 1)
	assert.Equal(t, []string{"stun:a:1"}, servers[0].URLs)
}

func TestConfiguration(t *testing.T) {
	cfg := Configuration(nil, "", "")
	assert.Empty(t, cfg.ICEServers)
}
