// Package decoder defines the narrow contract this module consumes from
// an audio decoder, and a registry of compiled-in backends selected by
// file extension: a closed set of compiled-in decoder backends, rather
// than dynamically loaded plugin shared libraries.
package decoder

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cwbudde/loudness-scanner/measure/loudness"
)

// ErrUnsupportedExtension is returned by Registry.Open when no backend
// is registered for a file's extension.
var ErrUnsupportedExtension = errors.New("decoder: no backend registered for this file extension")

// Decoder is the contract a compiled-in backend implements. ReadFrames
// produces a lazy, finite sequence of interleaved float32 blocks;
// the returned slice is owned by the Decoder and may be overwritten by
// the next call, so callers must copy or fully consume it before
// calling again. An empty (nil or zero-length) slice with a nil error
// signals EOF.
type Decoder interface {
	Channels() int
	SampleRate() float64
	// ChannelRoles reports the BS.1770 role of each channel, or nil if
	// the backend has no opinion and the default channel map should be
	// used.
	ChannelRoles() []loudness.ChannelRole
	// TotalFrames is a hint, not a guarantee; callers must still read
	// to EOF. The second return is false when the backend cannot
	// estimate a total (e.g. a streaming source).
	TotalFrames() (int64, bool)
	ReadFrames() ([]float32, error)
	Close() error
}

// OpenFunc constructs a Decoder for a file path. Backends register one
// per supported extension.
type OpenFunc func(path string) (Decoder, error)

// Registry dispatches Open calls to a compiled-in backend by file
// extension, serializing open/close through a single mutex because
// some underlying codec libraries keep non-reentrant global state.
// Reads are not serialized: once Open returns, ReadFrames on the
// resulting Decoder is lock-free.
type Registry struct {
	mu       sync.Mutex
	backends map[string]OpenFunc
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]OpenFunc)}
}

// Register adds a backend for ext (without the leading dot, matched
// case-insensitively by callers). Registering the same extension twice
// replaces the previous backend.
func (r *Registry) Register(ext string, open OpenFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.backends[ext] = open
}

// Open serializes backend selection and construction behind the
// registry's global mutex, then releases it before returning --
// the Decoder it hands back is safe to read concurrently with other
// tracks' Open/Close calls.
func (r *Registry) Open(path, ext string) (Decoder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	open, ok := r.backends[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}

	d, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("decoder: open %s: %w", path, err)
	}

	return d, nil
}

// Close serializes a Decoder's Close call behind the same mutex Open
// uses, per the shared global init/exit lock the consumed contract
// documents for non-reentrant codec registries.
func (r *Registry) Close(d Decoder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return d.Close()
}
