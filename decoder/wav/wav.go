// Package wav is the one reference decoder backend this module ships,
// wired to github.com/go-audio/wav + github.com/go-audio/audio. Real
// MP3/FLAC/Opus bitstream decoding is explicitly out of scope; this
// backend exists so the scanner has a runnable end-to-end example.
package wav

import (
	"errors"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cwbudde/loudness-scanner/decoder"
	"github.com/cwbudde/loudness-scanner/measure/loudness"
)

// ErrUnsupportedBitDepth is returned when a file's PCM bit depth is 8
// or otherwise outside the set this backend normalizes, per the
// consumed contract's "8-bit PCM is rejected upstream" rule.
var ErrUnsupportedBitDepth = errors.New("wav: 8-bit (and other unsupported) PCM bit depths are rejected")

const framesPerRead = 4096

// Decoder reads interleaved float32 frames from a PCM WAV file.
type Decoder struct {
	f          *os.File
	dec        *wav.Decoder
	channels   int
	sampleRate float64
	intBuf     *goaudio.IntBuffer
	out        []float32
}

// Open implements decoder.OpenFunc for ".wav" files.
func Open(path string) (decoder.Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wav: open %s: %w", path, err)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("wav: %s is not a valid WAV file", path)
	}

	dec.ReadInfo()

	if dec.BitDepth == 8 {
		f.Close()
		return nil, ErrUnsupportedBitDepth
	}

	channels := int(dec.NumChans)

	return &Decoder{
		f:          f,
		dec:        dec,
		channels:   channels,
		sampleRate: float64(dec.SampleRate),
		intBuf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: channels, SampleRate: int(dec.SampleRate)},
			Data:           make([]int, framesPerRead*channels),
			SourceBitDepth: int(dec.BitDepth),
		},
	}, nil
}

func (d *Decoder) Channels() int { return d.channels }

func (d *Decoder) SampleRate() float64 { return d.sampleRate }

// ChannelRoles returns nil: plain WAV carries no channel-layout
// metadata, so callers fall back to the default channel map.
func (d *Decoder) ChannelRoles() []loudness.ChannelRole { return nil }

func (d *Decoder) TotalFrames() (int64, bool) {
	duration, err := d.dec.Duration()
	if err != nil || d.channels == 0 {
		return 0, false
	}

	return int64(duration.Seconds() * d.sampleRate), true
}

// ReadFrames decodes the next block of interleaved float32 samples,
// reusing its internal buffer across calls. A nil slice with a nil
// error signals EOF.
func (d *Decoder) ReadFrames() ([]float32, error) {
	n, err := d.dec.PCMBuffer(d.intBuf)
	if err != nil {
		return nil, fmt.Errorf("wav: read pcm: %w", err)
	}

	if n == 0 {
		return nil, nil
	}

	floatBuf := &goaudio.IntBuffer{
		Format:         d.intBuf.Format,
		Data:           d.intBuf.Data[:n],
		SourceBitDepth: d.intBuf.SourceBitDepth,
	}

	f32 := floatBuf.AsFloat32Buffer()

	if cap(d.out) < len(f32.Data) {
		d.out = make([]float32, len(f32.Data))
	}

	d.out = d.out[:len(f32.Data)]
	copy(d.out, f32.Data)

	return d.out, nil
}

func (d *Decoder) Close() error {
	return d.f.Close()
}
