// Package rtcfeed streams mouse events to a browser over a WebRTC data channel.
package rtcfeed

import "github.com/pion/webrtc/v3"

// ChannelLabel is the data channel the viewer opens to receive events.
const ChannelLabel = "events"

// Message is a websocket signaling payload.
type Message struct {
	T         string                   `json:"t"`
	SDP       string                   `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
	Reason    string                   `json:"reason,omitempty"`
}
