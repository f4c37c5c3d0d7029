// SPDX-License-Identifier: MPL-2.0

// Package platform provides cross-platform compatibility utilities: OS name
// constants and detection of application sandboxes whose process view differs
// from the host's.
package platform
