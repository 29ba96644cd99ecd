package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/John-Robertt/cardfinder/internal/dom"
)

var (
	nameLikeRE    = regexp.MustCompile(`^[A-Za-z\s.,'-]+$`)
	idNameLineRE  = regexp.MustCompile(`^(\d{4}-\d{5})\s+(.+)$`)
	properNamesRE = regexp.MustCompile(`[A-Z][a-z]+\s+[A-Z][a-z]+`)
)

// nonNameLabels 是卡片首行常见、但不是人名的标签（案由/状态）。
var nonNameLabels = map[string]struct{}{
	"General Negligence":    {},
	"Auto Accident":         {},
	"School Case":           {},
	"Medical Malpractice":   {},
	"Workers Compensation":  {},
	"Workers' Compensation": {},
	"Premises Liability":    {},
	"Wrongful Termination":  {},
	"PI":                    {},
	"3rd Party":             {},
	"New":                   {},
	"Card Pinned":           {},
}

const pinnedMarker = "Card Pinned"

// nameFallbackSelectors 是最后一档：在这些后代里找“像名字”的文本。
var nameFallbackSelectors = []string{
	".card-body", ".card-text", "p", "div", "span",
	`[class*="name"]`, `[class*="client"]`, `[class*="matter"]`,
}

type nameStrategy struct {
	name string
	find func(card dom.Element, lines []string) (string, bool)
}

var nameStrategies = []nameStrategy{
	{name: "first-line", find: nameFromFirstLine},
	{name: "id-name-line", find: nameFromIDLine},
	{name: "comma-line", find: nameFromCommaLine},
	{name: "descendant-text", find: nameFromDescendants},
}

// extractName 依次尝试 nameStrategies；全部失败返回 ok=false（由调用方决定用占位名还是丢弃）。
func extractName(card dom.Element, lines []string) (string, bool, []Attempt) {
	attempts := make([]Attempt, 0, len(nameStrategies))
	for _, s := range nameStrategies {
		name, ok := s.find(card, lines)
		attempts = append(attempts, Attempt{Step: "name", Strategy: s.name, OK: ok})
		if ok {
			return name, true, attempts
		}
	}
	return "", false, attempts
}

// textLines 把卡片文本拆成“裁剪后的非空行”。
func textLines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

// lenBetween 判断 s 的字符数是否落在开区间 (min, max)。
func lenBetween(s string, min, max int) bool {
	n := utf8.RuneCountInString(s)
	return n > min && n < max
}

func nameFromFirstLine(_ dom.Element, lines []string) (string, bool) {
	if len(lines) == 0 {
		return "", false
	}
	first := lines[0]
	if !lenBetween(first, 3, 100) || !nameLikeRE.MatchString(first) {
		return "", false
	}
	if _, ok := nonNameLabels[first]; ok {
		return "", false
	}
	return first, true
}

// nameFromIDLine 识别 "2020-00025 Steiner,Joseph" 形式的行，取编号后的部分。
func nameFromIDLine(_ dom.Element, lines []string) (string, bool) {
	for _, l := range lines {
		if m := idNameLineRE.FindStringSubmatch(l); len(m) == 3 {
			return m[2], true
		}
	}
	return "", false
}

// nameFromCommaLine 识别 "Steiner,Joseph" 形式的行。
func nameFromCommaLine(_ dom.Element, lines []string) (string, bool) {
	for _, l := range lines {
		if strings.Contains(l, ",") &&
			lenBetween(l, 3, 100) &&
			nameLikeRE.MatchString(l) &&
			!strings.Contains(l, pinnedMarker) {
			return l, true
		}
	}
	return "", false
}

func nameFromDescendants(card dom.Element, _ []string) (string, bool) {
	for _, sel := range nameFallbackSelectors {
		for _, el := range card.QueryAll(sel) {
			text := strings.TrimSpace(el.InnerText())
			if text == "" || !lenBetween(text, 3, 200) {
				continue
			}
			if looksLikeName(text) {
				return text, true
			}
		}
	}
	return "", false
}

func looksLikeName(text string) bool {
	if strings.Contains(text, ",") {
		return true
	}
	if strings.Contains(text, " ") {
		if n := len(strings.Split(text, " ")); n >= 2 && n <= 6 {
			return true
		}
	}
	return properNamesRE.MatchString(text)
}
