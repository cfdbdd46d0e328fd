package analysisapi

import (
	"log/slog"
	"sort"
	"strings"
)

// languageCodes maps language names and aliases to the MMS model's 3-letter
// codes. Codes map to themselves so callers may pass either form.
var languageCodes = map[string]string{
	"hindi":     "hin",
	"tamil":     "tam",
	"telugu":    "tel",
	"bengali":   "ben",
	"marathi":   "mar",
	"gujarati":  "guj",
	"kannada":   "kan",
	"malayalam": "mal",
	"punjabi":   "pan",
	"urdu":      "urd",
	"assamese":  "asm",
	"odia":      "ory",
	"oriya":     "ory",

	"bhojpuri": "bho",
	"maithili": "mai",
	"sanskrit": "san",
	"konkani":  "kok",
	"dogri":    "doi",
	"kashmiri": "kas",
	"sindhi":   "snd",
	"nepali":   "nep",
	"bodo":     "brx",
	"santali":  "sat",
	"manipuri": "mni",

	"english": "eng",

	"hin": "hin",
	"tam": "tam",
	"tel": "tel",
	"ben": "ben",
	"mar": "mar",
	"guj": "guj",
	"kan": "kan",
	"mal": "mal",
	"pan": "pan",
	"urd": "urd",
	"eng": "eng",
	"asm": "asm",
	"ory": "ory",
}

// SupportedLanguages lists the display names exposed to the upload surface.
var SupportedLanguages = []string{
	"Hindi", "Tamil", "Telugu", "Bengali", "Marathi", "Gujarati",
	"Kannada", "Malayalam", "Punjabi", "Urdu", "Assamese", "Odia",
	"Bhojpuri", "Maithili", "Sanskrit", "Konkani", "Dogri", "Kashmiri",
	"Sindhi", "Nepali", "English",
}

func resolveLanguage(language, defaultLanguage string) string {
	fallback := func() string {
		if code, ok := languageCodes[strings.ToLower(strings.TrimSpace(defaultLanguage))]; ok {
			return code
		}
		return "hin"
	}

	lang := strings.ToLower(strings.TrimSpace(language))
	if lang == "" || lang == "auto" {
		return fallback()
	}
	if code, ok := languageCodes[lang]; ok {
		return code
	}

	// Prefix-based fuzzy match on the first three characters, checked in
	// sorted key order so the result is deterministic.
	prefix := lang
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	keys := make([]string, 0, len(languageCodes))
	for key := range languageCodes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		keyPrefix := key
		if len(keyPrefix) > 3 {
			keyPrefix = keyPrefix[:3]
		}
		if strings.HasPrefix(lang, keyPrefix) || strings.HasPrefix(key, prefix) {
			return languageCodes[key]
		}
	}

	slog.Warn("unknown language, using default", "language", language, "default", defaultLanguage)
	return fallback()
}
