package ffmpeg

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	ffmpeggo "github.com/u2takey/ffmpeg-go"
)

// ProbeFunc returns ffprobe's JSON description of a media file
type ProbeFunc func(path string) (string, error)

// DefaultProbe runs ffprobe through ffmpeg-go
func DefaultProbe(path string) (string, error) {
	return ffmpeggo.Probe(path)
}

// StreamInfo is what the decoder needs to know about a video stream
type StreamInfo struct {
	Width      int
	Height     int
	FPS        float64
	FrameCount int
	Duration   float64
	HasAudio   bool
}

type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		NbFrames     string `json:"nb_frames"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ParseProbe extracts StreamInfo from ffprobe JSON output
func ParseProbe(data string) (StreamInfo, error) {
	var out probeOutput
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return StreamInfo{}, fmt.Errorf("failed to parse probe output: %w", err)
	}

	var info StreamInfo
	found := false
	for _, s := range out.Streams {
		switch s.CodecType {
		case "audio":
			info.HasAudio = true
		case "video":
			if found {
				continue
			}
			found = true
			info.Width = s.Width
			info.Height = s.Height
			info.FPS = parseRate(s.RFrameRate)
			if info.FPS <= 0 {
				info.FPS = parseRate(s.AvgFrameRate)
			}
			info.FrameCount, _ = strconv.Atoi(s.NbFrames)
			info.Duration, _ = strconv.ParseFloat(s.Duration, 64)
		}
	}
	if !found {
		return StreamInfo{}, fmt.Errorf("no video stream found")
	}
	if info.FPS <= 0 {
		return StreamInfo{}, fmt.Errorf("video stream has no usable frame rate")
	}
	if info.Duration <= 0 {
		info.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)
	}
	if info.FrameCount <= 0 && info.Duration > 0 {
		info.FrameCount = int(math.Round(info.Duration * info.FPS))
	}
	return info, nil
}

// parseRate parses "30000/1001" or "25"
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
