package ply

// reservedKeywords are header keywords that cannot be used as an element
// or property name, since the line-oriented grammar would no longer be
// able to tell a name apart from a keyword at the start of a line.
var reservedKeywords = map[string]bool{
	"ply":        true,
	"format":     true,
	"comment":    true,
	"obj_info":   true,
	"element":    true,
	"property":   true,
	"list":       true,
	"end_header": true,
}

// validateName reports whether name is usable as an element or property
// identifier: non-empty, printable ASCII only (no whitespace, control
// characters or non-ASCII), and not a header keyword.
func validateName(name string) error {
	if name == "" {
		return ErrInvalidName
	}
	for _, r := range name {
		if r <= ' ' || r >= 0x7f {
			return ErrInvalidName
		}
	}
	if reservedKeywords[name] {
		return ErrInvalidName
	}
	return nil
}

// validateComment reports whether a comment or obj_info body is safe to
// round-trip through the header: it must not itself contain a newline,
// since the line reader would silently split it into two lines.
func validateComment(s string) error {
	for _, r := range s {
		if r == '\n' || r == '\r' {
			return ErrInvalidName
		}
	}
	return nil
}
