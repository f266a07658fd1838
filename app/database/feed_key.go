package database

import (
	"regexp"
	"strings"
)

const maxFeedKeyLength = 100

var schemePattern = regexp.MustCompile(`https?://`)

// FeedKey derives the storage key of a feed URL: the first http(s) scheme is
// dropped, every non-alphanumeric character becomes "_" and the result is cut
// to 100 characters. Characters outside the BMP count twice, so keys match
// those written by the browser client.
func FeedKey(feedURL string) string {
	loc := schemePattern.FindStringIndex(feedURL)
	if loc != nil {
		feedURL = feedURL[:loc[0]] + feedURL[loc[1]:]
	}

	var sb strings.Builder
	for _, r := range feedURL {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r > 0xFFFF:
			sb.WriteString("__")
		default:
			sb.WriteByte('_')
		}
	}

	key := sb.String()
	if len(key) > maxFeedKeyLength {
		key = key[:maxFeedKeyLength]
	}
	return key
}
