package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"loraset/logger"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// FFmpegProcessor implements the Processor interface using ffmpeg and ffprobe.
type FFmpegProcessor struct{}

// NewFFmpegProcessor creates a new FFmpegProcessor.
func NewFFmpegProcessor() *FFmpegProcessor {
	return &FFmpegProcessor{}
}

// probeOutput defines the parts of the ffprobe JSON output we read.
type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
	TimeBase   string `json:"time_base"`
	DurationTS int64  `json:"duration_ts"`
	Duration   string `json:"duration"`
}

func (p *FFmpegProcessor) probe(inputFile string) (*probeOutput, *probeStream, error) {
	data, err := ffmpeg.Probe(inputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("ffprobe execution failed for %s: %w", inputFile, err)
	}
	var out probeOutput
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal ffprobe output for %s: %w", inputFile, err)
	}
	for i := range out.Streams {
		if out.Streams[i].CodecType == "audio" {
			return &out, &out.Streams[i], nil
		}
	}
	return nil, nil, fmt.Errorf("no audio streams found in %s", inputFile)
}

// GetAudioDuration returns the length of the first audio stream in whole seconds,
// computed from its frame count and time base and truncated.
func (p *FFmpegProcessor) GetAudioDuration(inputFile string) (int, error) {
	out, stream, err := p.probe(inputFile)
	if err != nil {
		return 0, err
	}
	return streamSeconds(stream, out.Format.Duration)
}

func streamSeconds(s *probeStream, formatDuration string) (int, error) {
	if s.DurationTS > 0 {
		if num, den, ok := parseRational(s.TimeBase); ok {
			return int(s.DurationTS * num / den), nil
		}
	}
	for _, d := range []string{s.Duration, formatDuration} {
		if d == "" || d == "N/A" {
			continue
		}
		f, err := strconv.ParseFloat(d, 64)
		if err != nil {
			continue
		}
		return int(math.Trunc(f)), nil
	}
	return 0, fmt.Errorf("duration not found in ffprobe output")
}

func parseRational(s string) (int64, int64, bool) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	num, err1 := strconv.ParseInt(parts[0], 10, 64)
	den, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0, 0, false
	}
	return num, den, true
}

// Decode asks ffmpeg for 32-bit float PCM resampled to sampleRate, keeping the source
// channel layout so callers decide how to fold channels.
func (p *FFmpegProcessor) Decode(ctx context.Context, inputFile string, sampleRate int) (*Waveform, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, stream, err := p.probe(inputFile)
	if err != nil {
		return nil, err
	}
	channels := stream.Channels
	if channels <= 0 {
		channels = 2
	}

	var out, stderr bytes.Buffer
	err = ffmpeg.Input(inputFile).
		Output("pipe:1", ffmpeg.KwArgs{
			"f":        "f32le",
			"acodec":   "pcm_f32le",
			"ar":       sampleRate,
			"ac":       channels,
			"loglevel": "error",
		}).
		WithOutput(&out, &stderr).
		Run()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w\nFFmpeg Error: %s", inputFile, err, stderr.String())
	}

	raw := out.Bytes()
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	w := Deinterleave(samples, channels, sampleRate)
	logger.Debug("decoded audio",
		logger.String("file", inputFile),
		logger.Int("channels", channels),
		logger.Int("frames", w.Frames()),
		logger.Int("sampleRate", sampleRate))
	return w, nil
}
