package markdown

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

var (
	escapedRe = regexp.MustCompile("\\\\([\\\\`*_{}\\[\\]()#+\\-.!|<>~])")
	controlRe = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

var invisibleChars = []string{
	"\u200B", // zero-width space
	"\u200C", // zero-width non-joiner
	"\u200D", // zero-width joiner
	"\u200E", // left-to-right mark
	"\u200F", // right-to-left mark
	"\u2028", // line separator
	"\u2029", // paragraph separator
	"\uFEFF", // byte order mark
	"\uFFFD", // replacement character
}

// CommentText turns the HTML YouTube returns for a comment (textDisplay) into
// plain lines suitable for a prompt. Links keep only their visible text and
// images are dropped.
func CommentText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + html + "</body>"))
	if err != nil {
		return StripInvisible(html)
	}
	body := doc.Find("body")
	body.Find("img, script, style").Remove()
	body.Find("a").Each(func(_ int, s *goquery.Selection) {
		if s.Contents().Length() == 0 {
			s.Remove()
			return
		}
		s.Contents().Unwrap()
	})

	inner, err := body.Html()
	if err != nil {
		return StripInvisible(body.Text())
	}
	out, err := md.NewConverter("", true, nil).ConvertString(inner)
	if err != nil {
		return StripInvisible(body.Text())
	}
	out = escapedRe.ReplaceAllString(out, "$1")
	return cleanLines(StripInvisible(out))
}

// StripInvisible removes control and zero-width characters that confuse both
// the model and JSON encoders.
func StripInvisible(text string) string {
	text = controlRe.ReplaceAllString(text, "")
	for _, c := range invisibleChars {
		text = strings.ReplaceAll(text, c, "")
	}
	return text
}

func cleanLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if line := strings.TrimSpace(l); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
