// Package faq implements keyword-based short-circuit matching of inbound
// questions against curated answers, plus usage accounting.
package faq

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxKeywords = 10

// Portuguese stop words dropped during normalization. Informal forms common
// in WhatsApp messages (vc, pra, q) are included.
var stopWords = map[string]bool{
	"a": true, "o": true, "e": true, "as": true, "os": true,
	"um": true, "uma": true, "uns": true, "umas": true,
	"de": true, "da": true, "do": true, "das": true, "dos": true,
	"em": true, "no": true, "na": true, "nos": true, "nas": true,
	"por": true, "para": true, "pra": true, "com": true, "sem": true,
	"que": true, "q": true, "se": true, "ja": true, "la": true,
	"qual": true, "quais": true, "quando": true, "onde": true, "como": true,
	"quem": true, "porque": true, "mais": true, "mas": true, "ou": true,
	"eu": true, "tu": true, "ele": true, "ela": true, "eles": true, "elas": true,
	"vc": true, "voce": true, "voces": true, "meu": true, "minha": true,
	"seu": true, "sua": true, "ser": true, "ter": true, "foi": true,
	"sao": true, "esta": true, "estao": true, "tem": true, "nao": true, "sim": true,
	"aqui": true, "ai": true, "isso": true, "este": true, "esse": true, "essa": true,
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// removeDiacritics folds accented characters to their base form, so
// "horário" and "horario" normalize identically.
func removeDiacritics(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize reduces free-form message text to a bounded keyword set:
// lowercase, diacritics folded, punctuation stripped, stop words and short
// tokens dropped, capped at maxKeywords. Deterministic for identical input.
func Normalize(text string) []string {
	lowered := removeDiacritics(strings.ToLower(text))

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	var keywords []string
	for _, tok := range strings.Fields(b.String()) {
		if len(tok) <= 2 || stopWords[tok] {
			continue
		}
		keywords = append(keywords, tok)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}
