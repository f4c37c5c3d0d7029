// SPDX-License-Identifier: MPL-2.0

package container

import (
	"errors"
	"fmt"
	"strings"

	"toolhost-cli/internal/vpath"
)

const (
	// SELinuxLabelNone means no SELinux label is applied to volume mounts.
	SELinuxLabelNone SELinuxLabel = ""
	// SELinuxLabelShared allows sharing the volume between containers.
	SELinuxLabelShared SELinuxLabel = "z"
	// SELinuxLabelPrivate restricts the volume to a single container.
	SELinuxLabelPrivate SELinuxLabel = "Z"
)

var (
	// ErrInvalidVolumeMount is the sentinel error wrapped by volume parsing and validation errors.
	ErrInvalidVolumeMount = errors.New("invalid volume mount")

	// ErrInvalidSELinuxLabel is the sentinel error wrapped by InvalidSELinuxLabelError.
	ErrInvalidSELinuxLabel = errors.New("invalid SELinux label")
)

type (
	// SELinuxLabel represents an SELinux volume labeling option.
	// The zero value ("") means no SELinux label is applied.
	SELinuxLabel string

	// InvalidSELinuxLabelError is returned when an SELinuxLabel is not a recognized label.
	InvalidSELinuxLabelError struct {
		Value SELinuxLabel
	}

	// VolumeMount represents a bind mount of a host directory into the container.
	VolumeMount struct {
		HostPath      string
		ContainerPath string
		ReadOnly      bool
		SELinux       SELinuxLabel
	}
)

// Error implements the error interface.
func (e *InvalidSELinuxLabelError) Error() string {
	return fmt.Sprintf("invalid SELinux label %q (valid: empty, z, Z)", e.Value)
}

// Unwrap returns ErrInvalidSELinuxLabel so callers can use errors.Is for programmatic detection.
func (e *InvalidSELinuxLabelError) Unwrap() error { return ErrInvalidSELinuxLabel }

// Validate returns an error if the SELinuxLabel is not one of the defined labels.
func (s SELinuxLabel) Validate() error {
	switch s {
	case SELinuxLabelNone, SELinuxLabelShared, SELinuxLabelPrivate:
		return nil
	default:
		return &InvalidSELinuxLabelError{Value: s}
	}
}

// ParseVolumeMount parses "host:container[:opts]" where opts is a comma
// separated list of ro, rw, z and Z.
func ParseVolumeMount(spec string) (VolumeMount, error) {
	rest, opts := spec, ""
	if i := strings.LastIndex(spec, ":"); i >= 0 && isVolumeOptions(spec[i+1:]) {
		rest, opts = spec[:i], spec[i+1:]
	}

	m, err := vpath.ParseMount(rest)
	if err != nil {
		return VolumeMount{}, fmt.Errorf("%w: %w", ErrInvalidVolumeMount, err)
	}
	v := VolumeMount{HostPath: m.HostPath, ContainerPath: m.ContextPath}
	for opt := range strings.SplitSeq(opts, ",") {
		switch opt {
		case "ro":
			v.ReadOnly = true
		case "z", "Z":
			v.SELinux = SELinuxLabel(opt)
		}
	}
	return v, nil
}

func isVolumeOptions(s string) bool {
	if s == "" {
		return false
	}
	for opt := range strings.SplitSeq(s, ",") {
		switch opt {
		case "ro", "rw", "z", "Z":
		default:
			return false
		}
	}
	return true
}

// Validate returns an error if any field of the VolumeMount is invalid.
func (v VolumeMount) Validate() error {
	var errs []error
	if strings.TrimSpace(v.HostPath) == "" {
		errs = append(errs, fmt.Errorf("%w: host path must be non-empty", ErrInvalidVolumeMount))
	}
	if !strings.HasPrefix(v.ContainerPath, "/") {
		errs = append(errs, fmt.Errorf("%w: container path %q must be absolute", ErrInvalidVolumeMount, v.ContainerPath))
	}
	if err := v.SELinux.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// String returns the volume mount in "host:container[:opts]" format.
func (v VolumeMount) String() string {
	s := v.HostPath + ":" + v.ContainerPath
	var opts []string
	if v.ReadOnly {
		opts = append(opts, "ro")
	}
	if v.SELinux != "" {
		opts = append(opts, string(v.SELinux))
	}
	if len(opts) > 0 {
		s += ":" + strings.Join(opts, ",")
	}
	return s
}

// Mount returns the path mapping the volume establishes.
func (v VolumeMount) Mount() vpath.Mount {
	return vpath.Mount{HostPath: v.HostPath, ContextPath: v.ContainerPath}
}
