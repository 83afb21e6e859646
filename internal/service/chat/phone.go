package chat

import "regexp"

var (
	phoneCandidateRe = regexp.MustCompile(`\+?[\d][\d\s\-().]{7,}\d`)
	nonDigitRe       = regexp.MustCompile(`\D`)
	emailRe          = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ExtractPhone 从自由文本里找电话号码
// 去掉非数字字符后长度在 10 到 15 位之间才算，返回纯数字串
func ExtractPhone(text string) string {
	for _, candidate := range phoneCandidateRe.FindAllString(text, -1) {
		digits := nonDigitRe.ReplaceAllString(candidate, "")
		if len(digits) >= 10 && len(digits) <= 15 {
			return digits
		}
	}
	return ""
}

// ValidEmail 校验邮箱格式
func ValidEmail(email string) bool {
	return emailRe.MatchString(email)
}
