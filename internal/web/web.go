// Package web 内嵌管理后台的 HTML 模板
package web

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates 解析后的模板集合，按文件名取用
var Templates = template.Must(template.New("").Funcs(template.FuncMap{
	"money": formatMoney,
}).ParseFS(templateFS, "templates/*.html"))

// formatMoney 费用展示，最多 6 位小数，去掉末尾零
func formatMoney(v float64) string {
	s := fmt.Sprintf("%.6f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "-" {
		s = "0"
	}
	return "$" + s
}
