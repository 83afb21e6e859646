package chat

import (
	"html"
	"regexp"
	"strings"
)

var (
	boldRe    = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	bulletRe  = regexp.MustCompile(`^[-*]\s+(.*)$`)
	orderedRe = regexp.MustCompile(`^\d+[.)]\s+(.*)$`)
)

// RenderMarkdown 把模型输出的简易 markdown 转成展示用 HTML
// 只认加粗、无序/有序列表和段落，不是完整的 markdown 解析器
func RenderMarkdown(text string) string {
	var sb strings.Builder
	var listItems []string
	var listTag string

	flushList := func() {
		if len(listItems) == 0 {
			return
		}
		sb.WriteString("<" + listTag + ">")
		for _, item := range listItems {
			sb.WriteString("<li>" + item + "</li>")
		}
		sb.WriteString("</" + listTag + ">")
		listItems = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flushList()
			continue
		}
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			if listTag != "ul" {
				flushList()
				listTag = "ul"
			}
			listItems = append(listItems, inline(m[1]))
			continue
		}
		if m := orderedRe.FindStringSubmatch(line); m != nil {
			if listTag != "ol" {
				flushList()
				listTag = "ol"
			}
			listItems = append(listItems, inline(m[1]))
			continue
		}
		flushList()
		sb.WriteString("<p>" + inline(line) + "</p>")
	}
	flushList()

	return sb.String()
}

// inline 行内转换：先转义再替换加粗标记
func inline(line string) string {
	escaped := html.EscapeString(line)
	return boldRe.ReplaceAllString(escaped, "<strong>$1</strong>")
}
