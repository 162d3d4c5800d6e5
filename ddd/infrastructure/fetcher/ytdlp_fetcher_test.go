package fetcher

import (
	"testing"

	"audio-convert-service/ddd/domain/vo"
)

func dumpWithFormats(formats ...[3]interface{}) *dumpResult {
	d := &dumpResult{}
	for _, f := range formats {
		d.Formats = append(d.Formats, struct {
			URL    string  `json:"url"`
			ACodec string  `json:"acodec"`
			VCodec string  `json:"vcodec"`
			ABR    float64 `json:"abr"`
		}{
			URL:    f[0].(string),
			ACodec: f[1].(string),
			VCodec: "none",
			ABR:    float64(f[2].(int)),
		})
	}
	return d
}

func TestPickAudioURLPrefersNearestTier(t *testing.T) {
	dump := dumpWithFormats(
		[3]interface{}{"http://cdn/low", "opus", 96},
		[3]interface{}{"http://cdn/mid", "opus", 160},
		[3]interface{}{"http://cdn/high", "opus", 251},
	)

	tests := []struct {
		quality vo.QualityTier
		want    string
	}{
		{vo.QualityLow, "http://cdn/low"},       // 128: 251和160超档，96入选
		{vo.QualityMedium, "http://cdn/mid"},    // 192: 160是不超档的最高
		{vo.QualityHigh, "http://cdn/high"},     // 320: 251是不超档的最高
	}
	for _, tt := range tests {
		if got := pickAudioURL(dump, tt.quality); got != tt.want {
			t.Errorf("pickAudioURL(%s) = %q, want %q", tt.quality, got, tt.want)
		}
	}
}

func TestPickAudioURLAllAboveTierTakesLowest(t *testing.T) {
	dump := dumpWithFormats(
		[3]interface{}{"http://cdn/a", "opus", 256},
		[3]interface{}{"http://cdn/b", "opus", 320},
	)
	if got := pickAudioURL(dump, vo.QualityLow); got != "http://cdn/a" {
		t.Errorf("pickAudioURL() = %q, want lowest available", got)
	}
}

func TestPickAudioURLSkipsVideoFormats(t *testing.T) {
	d := &dumpResult{}
	d.Formats = append(d.Formats, struct {
		URL    string  `json:"url"`
		ACodec string  `json:"acodec"`
		VCodec string  `json:"vcodec"`
		ABR    float64 `json:"abr"`
	}{URL: "http://cdn/muxed", ACodec: "aac", VCodec: "h264", ABR: 128})

	// 只有混流时回退到顶层直链
	d.URL = "http://cdn/bestaudio"
	if got := pickAudioURL(d, vo.QualityMedium); got != "http://cdn/bestaudio" {
		t.Errorf("pickAudioURL() = %q, want top-level url fallback", got)
	}

	// 连顶层直链都没有则为空
	d.URL = ""
	if got := pickAudioURL(d, vo.QualityMedium); got != "" {
		t.Errorf("pickAudioURL() = %q, want empty", got)
	}
}

func TestIsUnresolvable(t *testing.T) {
	tests := []struct {
		stderr string
		want   bool
	}{
		{"ERROR: [youtube] abc: Video unavailable", true},
		{"ERROR: Unsupported URL: http://example.com", true},
		{"ERROR: 'ftp://x' is not a valid URL", true},
		{"ERROR: unable to download webpage: timed out", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isUnresolvable(tt.stderr); got != tt.want {
			t.Errorf("isUnresolvable(%q) = %v, want %v", tt.stderr, got, tt.want)
		}
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("line one\nline two"); got != "line one" {
		t.Errorf("firstLine() = %q", got)
	}
	if got := firstLine(""); got != "no error output" {
		t.Errorf("firstLine(empty) = %q", got)
	}
}
