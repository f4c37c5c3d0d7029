// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates CUE documents against an embedded schema and
// decodes them into Go values, reporting failures with the field path of
// the offending value.
package cueutil
