package ledger

import (
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
	"golang.org/x/text/language"
)

// DefaultLanguage is the language every account name must exist in
const DefaultLanguage = "en"

// SupportedLanguages are the display languages of the chart of accounts
var SupportedLanguages = []string{"en", "ar", "tr"}

// Localizer resolves display names keyed by language code
type Localizer struct {
	codes   []string
	matcher language.Matcher
}

// NewLocalizer creates a localizer for the given base language codes.
// The first code is the fallback. With no codes the supported set is used.
func NewLocalizer(codes ...string) *Localizer {
	if len(codes) == 0 {
		codes = SupportedLanguages
	}
	tags := make([]language.Tag, 0, len(codes))
	kept := make([]string, 0, len(codes))
	for _, c := range codes {
		tag, err := language.Parse(c)
		if err != nil {
			continue
		}
		base, _ := tag.Base()
		tags = append(tags, tag)
		kept = append(kept, base.String())
	}
	if len(tags) == 0 {
		tags = []language.Tag{language.English}
		kept = []string{DefaultLanguage}
	}
	return &Localizer{codes: kept, matcher: language.NewMatcher(tags)}
}

// Languages returns the supported base codes, fallback first
func (l *Localizer) Languages() []string {
	out := make([]string, len(l.codes))
	copy(out, l.codes)
	return out
}

// Canonical normalizes a caller-supplied code ("AR-sa", "tr_TR") to a supported base code
func (l *Localizer) Canonical(code string) (string, error) {
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
	if err != nil {
		return "", shared.NewDomainError(CodeUnsupportedLanguage, "Language code "+code+" is not valid")
	}
	base, _ := tag.Base()
	for _, c := range l.codes {
		if c == base.String() {
			return c, nil
		}
	}
	return "", shared.NewDomainError(CodeUnsupportedLanguage, "Language "+code+" is not supported")
}

// Match picks the best supported language for an Accept-Language style value.
// Unknown or empty input yields the fallback language.
func (l *Localizer) Match(accept string) string {
	accept = strings.TrimSpace(accept)
	if accept == "" {
		return l.codes[0]
	}
	if c, err := l.Canonical(accept); err == nil {
		return c
	}
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return l.codes[0]
	}
	_, idx, conf := l.matcher.Match(tags...)
	if conf == language.No {
		return l.codes[0]
	}
	return l.codes[idx]
}

// Name returns the account name in lang, falling back to the default language and then to the code
func (l *Localizer) Name(account *GlAccount, lang string) string {
	if account == nil {
		return ""
	}
	if n, ok := account.Names[lang]; ok && n != "" {
		return n
	}
	if n, ok := account.Names[l.codes[0]]; ok && n != "" {
		return n
	}
	if n, ok := account.Names[DefaultLanguage]; ok && n != "" {
		return n
	}
	return account.Code
}
