package usecase

import "strings"

// irregularSingulars は接尾辞ルールでは正しく単数化できない語の対応表です。
// 食品ドメインで頻出する不規則形のみを扱います。
var irregularSingulars = map[string]string{
	"leaves":   "leaf",
	"loaves":   "loaf",
	"knives":   "knife",
	"halves":   "half",
	"potatoes": "potato",
	"tomatoes": "tomato",
	"mangoes":  "mango",
}

// uncountables は単数・複数が同形の語です。変換せずそのまま返します。
var uncountables = map[string]struct{}{
	"fish":     {},
	"shrimp":   {},
	"molasses": {},
	"couscous": {},
	"hummus":   {},
	"citrus":   {},
}

// Normalize はアレルゲン・原材料トークンを比較用の正規形に変換します。
// 小文字化と英語の単数化を行い、単数化が適用できない場合は
// 小文字化した入力をそのまま返します。どんな入力に対しても失敗しません。
func Normalize(token string) string {
	t := strings.ToLower(strings.TrimSpace(token))
	if t == "" {
		return ""
	}
	if s, ok := irregularSingulars[t]; ok {
		return s
	}
	if _, ok := uncountables[t]; ok {
		return t
	}
	return singularize(t)
}

// singularize は規則的な英語複数形の接尾辞を単数形に戻します。
func singularize(t string) string {
	switch {
	case len(t) > 4 && strings.HasSuffix(t, "ies"):
		// berries -> berry
		return t[:len(t)-3] + "y"
	case len(t) > 3 && (strings.HasSuffix(t, "ses") || strings.HasSuffix(t, "xes") ||
		strings.HasSuffix(t, "zes") || strings.HasSuffix(t, "ches") || strings.HasSuffix(t, "shes")):
		// radishes -> radish
		return t[:len(t)-2]
	case len(t) > 3 && strings.HasSuffix(t, "s") && !strings.HasSuffix(t, "ss") && !strings.HasSuffix(t, "us"):
		// peanuts -> peanut, olives -> olive
		return t[:len(t)-1]
	default:
		return t
	}
}
