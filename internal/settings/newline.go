package settings

import "strings"

// NormalizeToLF converts CRLF line endings to LF; lone carriage returns
// are left in place (supplemented feature: CRLF preservation, grounded on
// the original `normalize_to_lf`). The merge and solve commands do not
// call it or ImitateLineEndings: they merge the bytes as read.
func NormalizeToLF(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// HasCRLF reports whether s contains at least one CRLF line ending.
func HasCRLF(s string) bool {
	return strings.Contains(s, "\r\n")
}

// ImitateLineEndings re-applies CRLF line endings to merged (LF-only)
// output when the reference revision used CRLF, so a merge of
// Windows-style files doesn't silently rewrite every line ending
// (supplemented feature: CRLF preservation, grounded on the original
// `imitate_cr_lf_from_input`).
func ImitateLineEndings(merged string, reference string) string {
	if !HasCRLF(reference) {
		return merged
	}
	return strings.ReplaceAll(merged, "\n", "\r\n")
}
