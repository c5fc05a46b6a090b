package translation

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// AutoDetect 自动检测源语言
const AutoDetect = "auto"

// DefaultMaxTextLength 默认单次翻译文本的最大字符数
const DefaultMaxTextLength = 10000

// Language 支持的语言
type Language struct {
	Code       string
	Name       string
	NativeName string
}

// SupportedLanguages 支持的语言列表
var SupportedLanguages = []Language{
	{Code: "en", Name: "English", NativeName: "English"},
	{Code: "es", Name: "Spanish", NativeName: "Español"},
	{Code: "fr", Name: "French", NativeName: "Français"},
	{Code: "de", Name: "German", NativeName: "Deutsch"},
	{Code: "it", Name: "Italian", NativeName: "Italiano"},
	{Code: "pt", Name: "Portuguese", NativeName: "Português"},
	{Code: "ru", Name: "Russian", NativeName: "Русский"},
	{Code: "ja", Name: "Japanese", NativeName: "日本語"},
	{Code: "ko", Name: "Korean", NativeName: "한국어"},
	{Code: "zh", Name: "Chinese", NativeName: "中文"},
	{Code: "ar", Name: "Arabic", NativeName: "العربية"},
	{Code: "hi", Name: "Hindi", NativeName: "हिन्दी"},
	{Code: "tl", Name: "Filipino", NativeName: "Filipino"},
}

// IsSupported 检查语言代码是否受支持
func IsSupported(code string) bool {
	_, ok := LookupLanguage(code)
	return ok
}

// LookupLanguage 按代码查找语言
func LookupLanguage(code string) (Language, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, lang := range SupportedLanguages {
		if lang.Code == code {
			return lang, true
		}
	}
	return Language{}, false
}

// NormalizeLanguage 将语言代码或名称规范化为语言代码
//
// 支持 "zh-CN" 这样的地区后缀，以及英文名或本地名的模糊匹配。
func NormalizeLanguage(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", fmt.Errorf("%w: empty language", ErrUnsupportedLanguage)
	}
	if strings.EqualFold(s, AutoDetect) {
		return AutoDetect, nil
	}

	base := strings.ToLower(s)
	if i := strings.IndexAny(base, "-_"); i > 0 {
		base = base[:i]
	}
	if lang, ok := LookupLanguage(base); ok {
		return lang.Code, nil
	}

	names := make([]string, 0, len(SupportedLanguages)*2)
	codes := make([]string, 0, len(SupportedLanguages)*2)
	for _, lang := range SupportedLanguages {
		names = append(names, lang.Name, lang.NativeName)
		codes = append(codes, lang.Code, lang.Code)
	}

	ranks := fuzzy.RankFindNormalizedFold(s, names)
	if len(ranks) == 0 {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedLanguage, input)
	}
	sort.Sort(ranks)
	return codes[ranks[0].OriginalIndex], nil
}

// DetectLanguage 根据字符所属的书写系统粗略判断语言，无法判断时返回 "en"
func DetectLanguage(text string) string {
	var han, kana, hangul, arabic, cyrillic, devanagari, latinExt int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Hiragana, r), unicode.Is(unicode.Katakana, r):
			kana++
		case unicode.Is(unicode.Han, r):
			han++
		case unicode.Is(unicode.Hangul, r):
			hangul++
		case unicode.Is(unicode.Arabic, r):
			arabic++
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case unicode.Is(unicode.Devanagari, r):
			devanagari++
		case r >= 0xC0 && r <= 0xFF:
			latinExt++
		}
	}

	switch {
	case kana > 0:
		return "ja"
	case han > 0:
		return "zh"
	case hangul > 0:
		return "ko"
	case arabic > 0:
		return "ar"
	case cyrillic > 0:
		return "ru"
	case devanagari > 0:
		return "hi"
	case latinExt > 0:
		return detectLatin(text)
	}
	return "en"
}

// detectLatin 区分带变音符号的拉丁语系
func detectLatin(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "ß"):
		return "de"
	case strings.ContainsAny(lower, "ñ¿¡"):
		return "es"
	case strings.ContainsAny(lower, "ãõ"):
		return "pt"
	case strings.ContainsAny(lower, "äöü") && !strings.ContainsAny(lower, "àâçèéêëîïôùû"):
		return "de"
	}
	return "fr"
}

// ValidateText 检查待翻译文本
func ValidateText(text string, maxLength int) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	if maxLength > 0 {
		if n := utf8.RuneCountInString(text); n > maxLength {
			return fmt.Errorf("%w: %d > %d characters", ErrTextTooLong, n, maxLength)
		}
	}
	return nil
}

// ValidateLanguages 检查语言对，源语言可以为 auto
func ValidateLanguages(from, to string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("%w: target language not specified", ErrUnsupportedLanguage)
	}
	if !IsSupported(to) {
		return fmt.Errorf("%w: %s", ErrUnsupportedLanguage, to)
	}
	if from != AutoDetect && !IsSupported(from) {
		return fmt.Errorf("%w: %s", ErrUnsupportedLanguage, from)
	}
	return nil
}
