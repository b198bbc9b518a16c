package service

import "regexp"

// Substitution order is load-bearing: markdown links must collapse to their
// label before the bare-URL rule runs, otherwise the label survives while
// the URL inside the same construct is stripped separately, leaving dangling
// bracket artifacts.
var (
	mdLinkPattern      = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdImagePattern     = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	bareURLPattern     = regexp.MustCompile(`https?://[^\s<>"']+`)
	queryStringPattern = regexp.MustCompile(`\?[^\s<>"']+`)
	imageViewPipe      = regexp.MustCompile(`\|imageView2[^\s<>"']+`)
	imageViewQuery     = regexp.MustCompile(`\?imageView2[^\s<>"']+`)
	excessNewlinePat   = regexp.MustCompile(`\n{3,}`)
)

// SanitizeContent strips navigational noise from a page snapshot before it
// is sent to the language model: link/image markup collapses to label text,
// raw URLs and query-string fragments disappear, and runs of blank lines
// shrink. Purely to cut token usage; the result is not meant to be readable.
// Idempotent.
func SanitizeContent(content string) string {
	cleaned := content
	cleaned = mdImagePattern.ReplaceAllString(cleaned, "$1")
	cleaned = mdLinkPattern.ReplaceAllString(cleaned, "$1")
	cleaned = bareURLPattern.ReplaceAllString(cleaned, "")
	cleaned = imageViewQuery.ReplaceAllString(cleaned, "")
	cleaned = queryStringPattern.ReplaceAllString(cleaned, "")
	cleaned = imageViewPipe.ReplaceAllString(cleaned, "")
	cleaned = excessNewlinePat.ReplaceAllString(cleaned, "\n\n")
	return cleaned
}
