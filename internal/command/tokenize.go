package command

import "strings"

// MaxSubCommands 每行最多处理的子命令数，超出部分忽略
const MaxSubCommands = 500

const (
	commandDelimiters = ",;&"
	tokenDelimiters   = " ,;\t\v\f"
)

// SplitCommands 按 , ; & 拆分子命令，保持顺序，丢弃空段
func SplitCommands(line string) []string {
	parts := strings.FieldsFunc(line, func(r rune) bool {
		return strings.ContainsRune(commandDelimiters, r)
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
		if len(out) == MaxSubCommands {
			break
		}
	}
	return out
}

// Tokenize 按空白及分隔符拆分 token
func Tokenize(sub string) []string {
	return strings.FieldsFunc(sub, func(r rune) bool {
		return strings.ContainsRune(tokenDelimiters, r) || r == '\r' || r == '\n'
	})
}
