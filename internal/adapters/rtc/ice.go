// Package rtc builds the ICE configuration handed to browsers for peer-to-peer negotiation.
package rtc

import (
	"strings"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// ICEServers groups STUN URLs into one entry and TURN URLs into another carrying the shared
// credentials. TURN URLs without credentials are dropped; unknown schemes are skipped.
func ICEServers(urls []string, username, credential string) []webrtc.ICEServer {
	var stun, turn []string
	for _, raw := range urls {
		u := strings.TrimSpace(raw)
		lower := strings.ToLower(u)
		switch {
		case strings.HasPrefix(lower, "stun:"), strings.HasPrefix(lower, "stuns:"):
			stun = append(stun, u)
		case strings.HasPrefix(lower, "turn:"), strings.HasPrefix(lower, "turns:"):
			turn = append(turn, u)
		case u == "":
		default:
			log.Warn().Str("module", "rtc").Str("url", u).Msg("unsupported ICE URL scheme")
		}
	}

	out := make([]webrtc.ICEServer, 0, 2)
	if len(stun) > 0 {
		out = append(out, webrtc.ICEServer{URLs: stun})
	}
	if len(turn) > 0 {
		if strings.TrimSpace(username) == "" || strings.TrimSpace(credential) == "" {
			log.Warn().Str("module", "rtc").Strs("urls", turn).Msg("TURN URLs without credentials ignored")
		} else {
			out = append(out, webrtc.ICEServer{
				URLs:           turn,
				Username:       username,
				Credential:     credential,
				CredentialType: webrtc.ICECredentialTypePassword,
			})
		}
	}
	return out
}

// Configuration is the RTCConfiguration clients should use.
func Configuration(urls []string, username, credential string) webrtc.Configuration {
	return webrtc.Configuration{ICEServers: ICEServers(urls, username, credential)}
}
