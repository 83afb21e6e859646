package chat

import (
	"regexp"
	"strings"
)

// 模型输出里不该给用户看的标记
var (
	systemNoteRe = regexp.MustCompile(`(?is)\[SYSTEM NOTE:[^\]]*\]`)
	transferRe   = regexp.MustCompile(`(?i)\[[^\]]*transfer[^\]]*\]`)
	citationRe   = regexp.MustCompile(`【[^】]*†[^】]*】`)
	fileRefRe    = regexp.MustCompile(`【\d+:[^】]*】`)
	multiSpaceRe = regexp.MustCompile(`[ \t]{2,}`)
)

// Scrub 去掉内部备注和引用标记
// 落库、发邮件、回给前端的文本都要先过这里
func Scrub(text string) string {
	text = systemNoteRe.ReplaceAllString(text, "")
	text = transferRe.ReplaceAllString(text, "")
	text = citationRe.ReplaceAllString(text, "")
	text = fileRefRe.ReplaceAllString(text, "")
	text = multiSpaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
