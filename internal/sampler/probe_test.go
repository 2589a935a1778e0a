package sampler

import (
	"encoding/json"
	"testing"
)

func parseProbeJSON(t *testing.T, payload string) probeResult {
	t.Helper()
	var result probeResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		t.Fatalf("unmarshal probe payload: %v", err)
	}
	return result
}

func TestProbeResultDuration(t *testing.T) {
	result := parseProbeJSON(t, `{
		"streams": [{"codec_type": "video", "duration": "120.5", "nb_frames": "2890"}],
		"format": {"duration": "121.0"}
	}`)
	if got := result.durationSeconds(); got != 120.5 {
		t.Errorf("duration: got %v, want stream value 120.5", got)
	}
	if got := result.frameCount(); got != 2890 {
		t.Errorf("frame count: got %v, want 2890", got)
	}
}

func TestProbeResultFormatFallback(t *testing.T) {
	result := parseProbeJSON(t, `{
		"streams": [{"codec_type": "video", "avg_frame_rate": "30000/1001"}],
		"format": {"duration": "60.0"}
	}`)
	if got := result.durationSeconds(); got != 60 {
		t.Errorf("duration fallback: got %v, want 60", got)
	}
	// 60s at ~29.97fps
	if got := result.frameCount(); got < 1700 || got > 1800 {
		t.Errorf("estimated frame count out of range: %d", got)
	}
}

func TestProbeResultNoVideoStream(t *testing.T) {
	result := parseProbeJSON(t, `{"streams": [{"codec_type": "audio"}], "format": {}}`)
	if result.hasVideoStream() {
		t.Error("audio-only container should report no video stream")
	}
	if got := result.frameCount(); got != 0 {
		t.Errorf("frame count without video data: got %d, want 0", got)
	}
}

func TestParseRate(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"25/1", 25},
		{"0/0", 0},
		{"", 0},
		{"24", 24},
		{"30000/1001", 29.97002997002997},
	}
	for _, tc := range cases {
		if got := parseRate(tc.in); got != tc.want {
			t.Errorf("parseRate(%q): got %v, want %v", tc.in, got, tc.want)
		}
	}
}
