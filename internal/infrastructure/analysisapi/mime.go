package analysisapi

import "strings"

var audioMIMETypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".webm": "audio/webm",
	".m4a":  "audio/m4a",
	".flac": "audio/flac",
	".aac":  "audio/aac",
}

func mimeTypeForExtension(ext string) string {
	if mime, ok := audioMIMETypes[strings.ToLower(ext)]; ok {
		return mime
	}
	return "audio/wav"
}
