package types

// IsIdentifier reports whether s is a non-empty run of [A-Za-z0-9_].
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if !((ch >= 'a' && ch <= 'z') ||
			(ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') ||
			ch == '_') {
			return false
		}
	}
	return true
}

// CheckIdentifier returns an IdentifierError when s is not an identifier.
func CheckIdentifier(kind, s string) error {
	if !IsIdentifier(s) {
		return &IdentifierError{Kind: kind, Ident: s}
	}
	return nil
}
