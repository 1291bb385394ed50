package util

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// AudioInfo is the subset of ffprobe output needed for speech uploads.
type AudioInfo struct {
	Duration   float64 `json:"duration"` // seconds
	SampleRate int     `json:"sampleRate"`
	Channels   int     `json:"channels"`
	Format     string  `json:"format"`
	Size       int64   `json:"size"`
}

// GetAudioInfo probes an audio file with ffprobe.
func GetAudioInfo(audioPath string) (*AudioInfo, error) {
	fileInfo, err := os.Stat(audioPath)
	if err != nil {
		return nil, fmt.Errorf("audio file not found: %w", err)
	}

	jsonOutput, err := ffmpeg.Probe(audioPath)
	if err != nil {
		return nil, fmt.Errorf("probe audio: %w", err)
	}

	var result struct {
		Streams []struct {
			CodecType  string `json:"codec_type"`
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
			Size     string `json:"size"`
			Format   string `json:"format_name"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(jsonOutput), &result); err != nil {
		return nil, fmt.Errorf("decode probe output: %w", err)
	}

	info := &AudioInfo{Format: "unknown", Size: fileInfo.Size()}
	for _, stream := range result.Streams {
		if stream.CodecType == "audio" {
			info.SampleRate, _ = strconv.Atoi(stream.SampleRate)
			info.Channels = stream.Channels
			break
		}
	}
	if d, err := strconv.ParseFloat(result.Format.Duration, 64); err == nil {
		info.Duration = d
	}
	if s, err := strconv.ParseInt(result.Format.Size, 10, 64); err == nil {
		info.Size = s
	}
	if parts := strings.Split(result.Format.Format, ","); len(parts) > 0 && parts[0] != "" {
		info.Format = parts[0]
	}
	return info, nil
}

// NormalizeSpeech converts any supported recording into 16 kHz mono PCM WAV,
// the format transcription models handle best.
func NormalizeSpeech(inputPath, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	return ffmpeg.Input(inputPath).
		Output(outputPath, ffmpeg.KwArgs{
			"ac":     "1",
			"ar":     "16000",
			"acodec": "pcm_s16le",
		}).
		OverWriteOutput().
		Silent(true).
		Run()
}
