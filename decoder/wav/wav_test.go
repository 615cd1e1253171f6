package wav

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeTestWAV(t *testing.T, sampleRate, bitDepth, channels int, samples []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.wav")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: bitDepth,
	}

	if err := enc.Write(buf); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := enc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	return path
}

func TestOpen_ReadsInfoAndFrames(t *testing.T) {
	const (
		sampleRate = 44100
		channels   = 2
		frames     = 100
	)

	samples := make([]int, frames*channels)
	for i := 0; i < frames; i++ {
		v := int(16384 * math.Sin(2*math.Pi*440*float64(i)/sampleRate))
		samples[2*i] = v
		samples[2*i+1] = v
	}

	path := writeTestWAV(t, sampleRate, 16, channels, samples)

	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	if d.Channels() != channels {
		t.Errorf("Channels() = %d, want %d", d.Channels(), channels)
	}

	if d.SampleRate() != float64(sampleRate) {
		t.Errorf("SampleRate() = %v, want %v", d.SampleRate(), sampleRate)
	}

	if roles := d.ChannelRoles(); roles != nil {
		t.Errorf("ChannelRoles() = %v, want nil", roles)
	}

	total := 0
	for {
		block, err := d.ReadFrames()
		if err != nil {
			t.Fatalf("ReadFrames: %v", err)
		}

		if len(block) == 0 {
			break
		}

		total += len(block) / channels

		for _, s := range block {
			if s < -1.0 || s > 1.0 {
				t.Errorf("sample %v out of [-1,1] range", s)
			}
		}
	}

	if total != frames {
		t.Errorf("decoded %d frames, want %d", total, frames)
	}
}

func TestOpen_RejectsEightBit(t *testing.T) {
	path := writeTestWAV(t, 44100, 8, 1, []int{10, 20, 30})

	if _, err := Open(path); err == nil {
		t.Error("Open should reject 8-bit PCM")
	}
}
