package tags

import "errors"

// ErrUnsupportedFormat is returned when a file extension has no
// registered tag writer.
var ErrUnsupportedFormat = errors.New("tags: unsupported file extension")
