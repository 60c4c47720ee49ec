// Package track implements the Track Router from spec.md §4.6: classifying
// an inbound remote track as camera or screen-share, and deciding which
// existing track it replaces. There is no teacher precedent for this
// exactly — the retrieved pack's WebRTC code is peer-to-peer file transfer
// and SFU relaying, neither of which classifies track content — so this is
// built fresh in the idiom pion/webrtc/v4 establishes (TrackRemote,
// RTPCodecType) plus the teacher's small-pure-function style.
package track

import "strings"

// Kind is the classification spec.md §4.6 assigns to an inbound track.
type Kind int

const (
	KindAudio Kind = iota
	KindCamera
	KindScreenShare
)

func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindCamera:
		return "camera"
	case KindScreenShare:
		return "screen-share"
	default:
		return "unknown"
	}
}

// screenShareLabels are substrings that, when found in a track or stream
// label (case-insensitive), mark a video track as a screen-share capture
// rather than a camera feed.
var screenShareLabels = []string{"screen", "window", "tab", "display"}

// Descriptor carries the signals available about an inbound track at the
// point classification must happen: pion only exposes a label and kind
// directly, so the richer signals (displaySurface, resolution) are passed
// in from whatever out-of-band hint the sender attached to its offer.
type Descriptor struct {
	Label          string
	IsAudio        bool
	DisplaySurface string // mirrors the MediaTrackSettings.displaySurface a browser sender would report
	Width, Height  int
}

// Classify implements spec.md §4.6's classification rule: a track is a
// screen-share if its label names one, if a display surface hint is
// present, or if its resolution exceeds the 1000x700 threshold typical of
// a captured display rather than a webcam.
func Classify(d Descriptor) Kind {
	if d.IsAudio {
		return KindAudio
	}

	label := strings.ToLower(d.Label)
	for _, s := range screenShareLabels {
		if strings.Contains(label, s) {
			return KindScreenShare
		}
	}

	if d.DisplaySurface != "" {
		return KindScreenShare
	}

	if d.Width > 1000 && d.Height > 700 {
		return KindScreenShare
	}

	return KindCamera
}
