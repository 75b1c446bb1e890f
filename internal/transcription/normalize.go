package transcription

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Format is a detected audio container
type Format string

const (
	FormatWAV     Format = "wav"
	FormatWebM    Format = "webm"
	FormatOgg     Format = "ogg"
	FormatMP3     Format = "mp3"
	FormatM4A     Format = "m4a"
	FormatUnknown Format = "unknown"
)

const (
	// TargetSampleRate is the sample rate every provider call receives
	TargetSampleRate = 16000
	targetBitDepth   = 16
)

// ErrUnsupportedFormat is returned for audio that cannot be identified
var ErrUnsupportedFormat = errors.New("unsupported audio format")

var mimeFormats = map[string]Format{
	"audio/wav":   FormatWAV,
	"audio/x-wav": FormatWAV,
	"audio/wave":  FormatWAV,
	"audio/webm":  FormatWebM,
	"video/webm":  FormatWebM,
	"audio/ogg":   FormatOgg,
	"audio/mpeg":  FormatMP3,
	"audio/mp3":   FormatMP3,
	"audio/mp4":   FormatM4A,
	"audio/x-m4a": FormatM4A,
}

// DecodeDataURL decodes a browser data URL (data:audio/webm;base64,...) or a
// bare base64 payload. The format comes from the mime type when present and
// from the payload otherwise.
func DecodeDataURL(payload string) ([]byte, Format, error) {
	payload = strings.TrimSpace(payload)
	mime := ""

	if strings.HasPrefix(payload, "data:") {
		header, body, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, FormatUnknown, fmt.Errorf("malformed data url")
		}
		if !strings.HasSuffix(header, ";base64") {
			return nil, FormatUnknown, fmt.Errorf("data url is not base64 encoded")
		}

		mime, _, _ = strings.Cut(strings.TrimPrefix(header, "data:"), ";")
		payload = body
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, FormatUnknown, fmt.Errorf("failed to decode audio payload: %w", err)
	}

	format := DetectFormat(data)
	if format == FormatUnknown {
		if f, ok := mimeFormats[strings.ToLower(mime)]; ok {
			format = f
		}
	}

	return data, format, nil
}

// DetectFormat sniffs the container from leading magic bytes
func DetectFormat(data []byte) Format {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return FormatWAV
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return FormatWebM
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte("OggS")):
		return FormatOgg
	case len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")):
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3
	case len(data) >= 8 && bytes.Equal(data[4:8], []byte("ftyp")):
		return FormatM4A
	}
	return FormatUnknown
}

// Normalizer converts captured audio to 16 kHz mono 16-bit WAV. WAV input is
// converted in memory; other containers go through ffmpeg and temporary files.
type Normalizer struct {
	FFmpegPath string // defaults to "ffmpeg" on PATH
	Dir        string // directory for temporary files, defaults to os.TempDir
}

// NewNormalizer creates a normalizer
func NewNormalizer(ffmpegPath, dir string) *Normalizer {
	return &Normalizer{FFmpegPath: ffmpegPath, Dir: dir}
}

// Normalize returns the canonical WAV rendition of data. Temporary files are
// removed before it returns, whatever the outcome.
func (n *Normalizer) Normalize(ctx context.Context, data []byte, format Format) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("audio buffer is empty")
	}

	if format == "" || format == FormatUnknown {
		format = DetectFormat(data)
	}

	switch format {
	case FormatWAV:
		return n.normalizeWAV(data)
	case FormatWebM, FormatOgg, FormatMP3, FormatM4A:
		return n.transcode(ctx, data, format)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// normalizeWAV downmixes, resamples and requantizes a WAV buffer
func (n *Normalizer) normalizeWAV(data []byte) ([]byte, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode wav: %w", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 || buf.Format.SampleRate < 1 {
		return nil, fmt.Errorf("wav file has no audio format")
	}

	mono := downmix(buf.Data, buf.Format.NumChannels)
	mono = requantize(mono, int(decoder.BitDepth), targetBitDepth)
	mono = resample(mono, buf.Format.SampleRate, TargetSampleRate)

	out := &wavBuffer{}
	encoder := wav.NewEncoder(out, TargetSampleRate, targetBitDepth, 1, 1)
	err = encoder.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: TargetSampleRate},
		Data:           mono,
		SourceBitDepth: targetBitDepth,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode wav: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize wav: %w", err)
	}

	return out.Bytes(), nil
}

// transcode runs ffmpeg over temporary input and output files
func (n *Normalizer) transcode(ctx context.Context, data []byte, format Format) ([]byte, error) {
	in, err := n.tempFile("capture-*." + string(format))
	if err != nil {
		return nil, err
	}
	defer cleanup(in)

	if _, err := in.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write temporary audio: %w", err)
	}
	if err := in.Close(); err != nil {
		return nil, fmt.Errorf("failed to write temporary audio: %w", err)
	}

	out, err := n.tempFile("normalized-*.wav")
	if err != nil {
		return nil, err
	}
	defer cleanup(out)
	out.Close()

	ffmpeg := n.FFmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}

	cmd := exec.CommandContext(ctx, ffmpeg,
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", in.Name(),
		"-ac", "1",
		"-ar", fmt.Sprint(TargetSampleRate),
		"-sample_fmt", "s16",
		"-f", "wav",
		out.Name(),
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	return os.ReadFile(out.Name())
}

func (n *Normalizer) tempFile(pattern string) (*os.File, error) {
	f, err := os.CreateTemp(n.Dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	return f, nil
}

// cleanup closes and removes a temporary file
func cleanup(f *os.File) {
	f.Close()
	os.Remove(f.Name())
}

// downmix averages interleaved channels into one
func downmix(samples []int, channels int) []int {
	if channels <= 1 {
		return append([]int(nil), samples...)
	}

	frames := len(samples) / channels
	out := make([]int, frames)
	for i := range frames {
		sum := 0
		for c := range channels {
			sum += samples[i*channels+c]
		}
		out[i] = sum / channels
	}
	return out
}

// requantize rescales samples from one bit depth to another. 8-bit WAV
// samples are unsigned and are recentred first.
func requantize(samples []int, from, to int) []int {
	if from == 0 || from == to {
		return samples
	}

	out := make([]int, len(samples))
	for i, s := range samples {
		if from == 8 {
			s -= 128
		}
		if from < to {
			out[i] = s << (to - from)
		} else {
			out[i] = s >> (from - to)
		}
	}
	return out
}

// resample converts the sample rate with linear interpolation
func resample(samples []int, from, to int) []int {
	if from == to || len(samples) == 0 {
		return samples
	}

	length := int(int64(len(samples)) * int64(to) / int64(from))
	if length == 0 {
		length = 1
	}

	out := make([]int, length)
	ratio := float64(from) / float64(to)
	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= last {
			out[i] = samples[last]
			continue
		}
		frac := pos - float64(idx)
		out[i] = int(float64(samples[idx])*(1-frac) + float64(samples[idx+1])*frac)
	}
	return out
}
