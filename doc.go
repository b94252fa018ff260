// Package ply reads and writes files in the PLY (Polygon File Format)
// interchange format, in all three of its encodings: ascii,
// binary_little_endian, and binary_big_endian.
//
// Decoded content is exposed as a Container holding an ordered list of
// Elements, each a columnar row table. PLY is treated as a generic
// tabular format: "vertex", "face", and similar element names carry no
// special geometric meaning to this package.
package ply
