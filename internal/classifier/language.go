package classifier

// Language labels used across prompts and replies.
const (
	LanguageEnglish = "en"
	LanguageArabic  = "ar"
	LanguageMixed   = "mixed"
)

// DetectLanguage applies a cheap Unicode-range heuristic: the ratio of Arabic
// script to Latin letters decides between en, ar, and mixed. It only feeds
// prompt construction, so precision beyond that is not needed.
func DetectLanguage(text string) string {
	if text == "" {
		return LanguageEnglish
	}

	var arabic, latin, total int
	for _, r := range text {
		total++
		switch {
		case isArabicRune(r):
			arabic++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin++
		}
	}

	arabicRatio := float64(arabic) / float64(total)
	latinRatio := float64(latin) / float64(total)

	switch {
	case arabicRatio > 0.3 && latinRatio > 0.2:
		return LanguageMixed
	case arabicRatio > 0.3:
		return LanguageArabic
	case latinRatio > 0.3:
		return LanguageEnglish
	default:
		return LanguageMixed
	}
}

func isArabicRune(r rune) bool {
	return (r >= 0x0600 && r <= 0x06FF) ||
		(r >= 0x0750 && r <= 0x077F) ||
		(r >= 0x08A0 && r <= 0x08FF) ||
		(r >= 0xFB50 && r <= 0xFDFF) ||
		(r >= 0xFE70 && r <= 0xFEFF)
}
