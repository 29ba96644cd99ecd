package domain

import (
	"regexp"
	"strings"
)

// MatterID 是案件编号，形如 2020-00025（4 位年份 + '-' + 5 位序号）。
// 空串表示“未识别到编号”。
type MatterID string

var (
	matterIDExactRE = regexp.MustCompile(`^\d{4}-\d{5}$`)
	matterIDTokenRE = regexp.MustCompile(`\b(\d{4}-\d{5})\b`)
)

// ParseMatterID 要求 s（裁剪后）整体就是一个编号。
func ParseMatterID(s string) (MatterID, bool) {
	s = strings.TrimSpace(s)
	if !matterIDExactRE.MatchString(s) {
		return "", false
	}
	return MatterID(s), true
}

// FindMatterID 在任意文本中查找第一个独立的编号 token。
func FindMatterID(text string) (MatterID, bool) {
	m := matterIDTokenRE.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", false
	}
	return MatterID(m[1]), true
}
