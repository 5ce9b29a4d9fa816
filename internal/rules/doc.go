// Package rules is a pure-Go content scanner: files are matched against
// named rules loaded from INI sources.
//
// Each section of a source is one rule; the section name is its
// identifier. A rule holds any number of patterns and a condition:
//
//	[Windows_PE]
//	text = This program cannot be run in DOS mode
//	hex = 4d 5a
//	condition = all
//
//	[Base64_Eval]
//	regex = (?i)eval\s*\(\s*base64_decode
//
// Keys may repeat. text matches literal bytes, hex matches decoded bytes
// and regex uses RE2 syntax. condition is "any" (default) or "all".
//
// [Scanner.Compile] reports per-source diagnostics at error, warning or
// success level and keeps whatever compiled. The active set is swapped
// atomically, so Scan can run concurrently with a recompile.
package rules
