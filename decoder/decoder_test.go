package decoder

import (
	"errors"
	"testing"

	"github.com/cwbudde/loudness-scanner/measure/loudness"
)

type stubDecoder struct {
	closed bool
}

func (s *stubDecoder) Channels() int                            { return 2 }
func (s *stubDecoder) SampleRate() float64                      { return 48000 }
func (s *stubDecoder) ChannelRoles() []loudness.ChannelRole     { return nil }
func (s *stubDecoder) TotalFrames() (int64, bool)                { return 0, false }
func (s *stubDecoder) ReadFrames() ([]float32, error)            { return nil, nil }
func (s *stubDecoder) Close() error {
	s.closed = true
	return nil
}

func TestRegistry_OpenUnsupportedExtension(t *testing.T) {
	r := NewRegistry()

	_, err := r.Open("/tmp/foo.xyz", "xyz")
	if !errors.Is(err, ErrUnsupportedExtension) {
		t.Errorf("Open() error = %v, want ErrUnsupportedExtension", err)
	}
}

func TestRegistry_RegisterAndOpen(t *testing.T) {
	r := NewRegistry()

	var (
		opened string
		stub   = &stubDecoder{}
	)

	r.Register("wav", func(path string) (Decoder, error) {
		opened = path
		return stub, nil
	})

	d, err := r.Open("/tmp/song.wav", "wav")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if opened != "/tmp/song.wav" {
		t.Errorf("backend received path %q, want /tmp/song.wav", opened)
	}

	if err := r.Close(d); err != nil {
		t.Errorf("Close: %v", err)
	}

	if !stub.closed {
		t.Error("Close should have closed the underlying decoder")
	}
}
