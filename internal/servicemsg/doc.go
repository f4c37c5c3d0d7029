// SPDX-License-Identifier: MPL-2.0

// Package servicemsg recognizes structured service messages embedded in plain
// tool output and writes them back out.
//
// A service message occupies part of a line:
//
//	##tool[messageName attr1='value1' attr2='value2']
//	##tool[messageName 'single value']
//
// Attribute values escape ' as |', newline as |n, carriage return as |r,
// | as ||, [ as |[ and ] as |]. The CI dialect extensions |x (U+0085),
// |l (U+2028), |p (U+2029) and |0xNNNN (any code point) are accepted too.
//
// Lines that do not carry a well-formed message are plain output. Parsing never
// fails with an error; malformed messages degrade to plain lines.
package servicemsg
