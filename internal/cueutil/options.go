// SPDX-License-Identifier: MPL-2.0

package cueutil

// DefaultMaxFileSize bounds documents read without WithMaxFileSize.
const DefaultMaxFileSize int64 = 1 << 20

type (
	decodeOptions struct {
		maxFileSize int64
		concrete    bool
		filename    string
	}

	// Option configures Decode.
	Option func(*decodeOptions)
)

// WithMaxFileSize rejects documents larger than size bytes.
func WithMaxFileSize(size int64) Option {
	return func(o *decodeOptions) { o.maxFileSize = size }
}

// WithConcrete controls whether every value must be concrete after
// unification. Schemas whose fields are all optional need false.
func WithConcrete(concrete bool) Option {
	return func(o *decodeOptions) { o.concrete = concrete }
}

// WithFilename names the document in error messages and CUE positions.
func WithFilename(name string) Option {
	return func(o *decodeOptions) { o.filename = name }
}
