package domain

import dErrors "sevasetu/pkg/domain-errors"

// Language is the citizen-facing portal language. The portal serves Hindi and
// English only; anything else is rejected at parse time.
type Language string

const (
	LanguageHindi   Language = "hi"
	LanguageEnglish Language = "en"
)

// ParseLanguage validates a language flag supplied by a client.
func ParseLanguage(s string) (Language, error) {
	switch Language(s) {
	case LanguageHindi, LanguageEnglish:
		return Language(s), nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "language must be hi or en")
	}
}

func (l Language) String() string { return string(l) }

// IsNil returns true when no language preference has been recorded.
func (l Language) IsNil() bool { return l == "" }
