// Package validate holds the small input checks shared by the flows:
// student full names, spreadsheet links and Russian plural forms.
package validate

import (
	"regexp"
	"strings"
	"unicode"
)

// FullName reports whether the string is an acceptable student name:
// three or four words, every rune a letter.
func FullName(name string) bool {
	words := strings.Fields(strings.TrimSpace(name))
	if len(words) < 3 || len(words) > 4 {
		return false
	}
	for _, w := range words {
		for _, r := range w {
			if !unicode.IsLetter(r) {
				return false
			}
		}
	}
	return true
}

// spreadsheetIDRe matches the 44-character document id inside a Google
// Sheets link.
var spreadsheetIDRe = regexp.MustCompile(`/spreadsheets/d/([A-Za-z0-9_-]{44})`)

// SpreadsheetID extracts the spreadsheet id from a share link. A bare
// 44-character id is accepted as-is.
func SpreadsheetID(link string) (string, bool) {
	link = strings.TrimSpace(link)
	if m := spreadsheetIDRe.FindStringSubmatch(link); m != nil {
		return m[1], true
	}
	if len(link) == 44 && !strings.ContainsAny(link, "/ \t") {
		return link, true
	}
	return "", false
}

// JSONFile reports whether the path names a .json file.
func JSONFile(path string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(path)), ".json")
}

// MinutesRu returns the Russian plural form for a number of minutes:
// минута, минуты, минут.
func MinutesRu(n int) string {
	if n < 0 {
		n = -n
	}
	n %= 100
	if n >= 11 && n <= 14 {
		return "минут"
	}
	switch n % 10 {
	case 1:
		return "минута"
	case 2, 3, 4:
		return "минуты"
	default:
		return "минут"
	}
}
