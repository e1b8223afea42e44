package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"time"

	"github.com/kikiluvv/actionseg/pkg/util"
)

// ProbeVideo extracts metadata from a video file
func (e *Executor) ProbeVideo(ctx context.Context, filePath string) (*VideoInfo, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	info, err := parseProbeOutput(output, filePath)
	if err != nil {
		return nil, err
	}

	e.logger.Debug().
		Str("file", filePath).
		Float64("fps", info.FPS).
		Int("frames", info.FrameCount).
		Dur("duration", info.Duration).
		Msg("probed video")

	return info, nil
}

// parseProbeOutput converts ffprobe JSON into VideoInfo. The frame count
// comes from nb_frames when the container reports it, else from
// duration * fps.
func parseProbeOutput(output []byte, filePath string) (*VideoInfo, error) {
	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &VideoInfo{
		FilePath: filePath,
	}

	if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = time.Duration(dur * float64(time.Second))
	}

	if br, err := strconv.ParseInt(probe.Format.BitRate, 10, 64); err == nil {
		info.Bitrate = br
	}

	foundVideo := false
	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			if foundVideo {
				continue
			}
			foundVideo = true
			info.Width = stream.Width
			info.Height = stream.Height
			info.VideoCodec = stream.CodecName

			info.FPS = util.ParseFrameRate(stream.AvgFrameRate)
			if info.FPS <= 0 {
				info.FPS = util.ParseFrameRate(stream.RFrameRate)
			}

			if n, err := strconv.Atoi(stream.NbFrames); err == nil && n > 0 {
				info.FrameCount = n
			}
			if info.Duration == 0 {
				if dur, err := strconv.ParseFloat(stream.Duration, 64); err == nil {
					info.Duration = time.Duration(dur * float64(time.Second))
				}
			}
		case "audio":
			info.HasAudio = true
			info.AudioCodec = stream.CodecName
		}
	}

	if !foundVideo {
		return nil, fmt.Errorf("no video stream in %s", filePath)
	}

	if info.FrameCount == 0 && info.FPS > 0 {
		info.FrameCount = int(math.Round(info.Duration.Seconds() * info.FPS))
	}

	return info, nil
}

// probeResult matches ffprobe JSON output structure
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		NbFrames     string `json:"nb_frames"`
		Duration     string `json:"duration"`
	} `json:"streams"`
}
