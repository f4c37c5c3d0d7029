// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Decode compiles schema, unifies the definition at defPath with data,
// validates the result, and decodes it into a T.
func Decode[T any](schema string, data []byte, defPath string, opts ...Option) (T, error) {
	var out T

	o := decodeOptions{maxFileSize: DefaultMaxFileSize, concrete: true, filename: "<input>"}
	for _, opt := range opts {
		opt(&o)
	}

	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return out, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(schema)
	if err := schemaValue.Err(); err != nil {
		return out, fmt.Errorf("internal error: failed to compile schema: %w", err)
	}
	def := schemaValue.LookupPath(cue.ParsePath(defPath))
	if err := def.Err(); err != nil {
		return out, fmt.Errorf("internal error: schema definition %s not found: %w", defPath, err)
	}

	userValue := ctx.CompileBytes(data, cue.Filename(o.filename))
	if err := userValue.Err(); err != nil {
		return out, FormatError(err, o.filename)
	}

	unified := def.Unify(userValue)
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return out, FormatError(err, o.filename)
	}
	if err := unified.Decode(&out); err != nil {
		return out, FormatError(err, o.filename)
	}
	return out, nil
}

// CheckFileSize returns an error when data is larger than maxSize bytes.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", filename, len(data), maxSize)
	}
	return nil
}
