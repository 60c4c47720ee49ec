package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Audio(t *testing.T) {
	assert.Equal(t, KindAudio, Classify(Descriptor{IsAudio: true, Label: "camera audio track"}))
}

func TestClassify_LabelHeuristics(t *testing.T) {
	cases := []string{"screen-share-1", "Window Capture", "tab-capture-video", "Display 1"}
	for _, label := range cases {
		assert.Equal(t, KindScreenShare, Classify(Descriptor{Label: label}), label)
	}
}

func TestClassify_DisplaySurfaceHint(t *testing.T) {
	assert.Equal(t, KindScreenShare, Classify(Descriptor{Label: "video0", DisplaySurface: "monitor"}))
}

func TestClassify_LargeResolutionIsScreenShare(t *testing.T) {
	assert.Equal(t, KindScreenShare, Classify(Descriptor{Label: "video0", Width: 1920, Height: 1080}))
}

func TestClassify_DefaultIsCamera(t *testing.T) {
	assert.Equal(t, KindCamera, Classify(Descriptor{Label: "video0", Width: 640, Height: 480}))
}

func TestRouter_CameraReplacesCamera(t *testing.T) {
	r := NewRouter()
	kind, replaced := r.Route("u1", Descriptor{Label: "video0", Width: 640, Height: 480})
	assert.Equal(t, KindCamera, kind)
	assert.False(t, replaced)

	kind, replaced = r.Route("u1", Descriptor{Label: "video1", Width: 640, Height: 480})
	assert.Equal(t, KindCamera, kind)
	assert.True(t, replaced)
}

func TestRouter_ScreenShareDoesNotDisturbCamera(t *testing.T) {
	r := NewRouter()
	r.Route("u1", Descriptor{Label: "video0", Width: 640, Height: 480})
	kind, replaced := r.Route("u1", Descriptor{Label: "screen-share"})

	assert.Equal(t, KindScreenShare, kind)
	assert.False(t, replaced)

	slots := r.Slots("u1")
	assert.Contains(t, slots, KindCamera)
	assert.Contains(t, slots, KindScreenShare)
}
