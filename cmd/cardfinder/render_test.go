package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/John-Robertt/cardfinder/internal/domain"
)

func TestRenderSearch_TTY(t *testing.T) {
	var buf bytes.Buffer
	renderSearch(&buf, true, "e", domain.SearchResponse{
		Matches: []domain.Match{
			{MatterID: "2020-00025", MatterName: "Joseph N. Steiner", Column: "New"},
			{MatterID: "2019-11111", Column: "Active"},
		},
		TotalCards: 5,
	})

	want := "Found 2 match(es) out of 5 cards:\n" +
		"  - Joseph N. Steiner (2020-00025) - New\n" +
		"  - 2019-11111 - Active\n"
	if buf.String() != want {
		t.Fatalf("TTY 输出不符合预期：\n got=%q\nwant=%q", buf.String(), want)
	}
}

func TestRenderSearch_MessageWins(t *testing.T) {
	var buf bytes.Buffer
	msg := domain.MsgNoCards
	renderSearch(&buf, true, "x", domain.SearchResponse{Message: &msg})
	if strings.TrimSpace(buf.String()) != domain.MsgNoCards {
		t.Fatalf("有 message 时应原样输出，实际 %q", buf.String())
	}
}

func TestRenderSearch_NonTTYIsSingleJSON(t *testing.T) {
	var buf bytes.Buffer
	renderSearch(&buf, false, "x", domain.SearchResponse{TotalCards: 3})

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("stdout 不是合法 JSON：%v\n%q", err, buf.String())
	}
	if m, ok := got["matches"].([]any); !ok || len(m) != 0 {
		t.Fatalf("matches 必须是空数组，实际 %v", got["matches"])
	}
}

func TestMatchLabel(t *testing.T) {
	cases := []struct {
		m    domain.Match
		want string
	}{
		{domain.Match{MatterID: "2020-00025", MatterName: "Jane Doe"}, "Jane Doe (2020-00025)"},
		{domain.Match{MatterName: "Jane Doe"}, "Jane Doe"},
		{domain.Match{MatterID: "No ID", MatterName: "Jane Doe"}, "Jane Doe"},
		{domain.Match{MatterID: "2020-00025"}, "2020-00025"},
	}
	for _, tc := range cases {
		if got := matchLabel(tc.m); got != tc.want {
			t.Fatalf("matchLabel(%+v)=%q，期望 %q", tc.m, got, tc.want)
		}
	}
}

func TestRenderCards_TTYTable(t *testing.T) {
	var buf bytes.Buffer
	renderCards(&buf, true, []domain.CardView{
		{MatterID: "2020-00025", MatterName: "Joseph N. Steiner", Column: "New", Method: domain.MethodTextPattern, Element: "div#c1"},
		{MatterName: "Mary Major", Column: "Unknown"},
	})
	out := buf.String()
	for _, want := range []string{"Found 2 cards", "MATTER ID", "div#c1", "No ID", "Mary Major"} {
		if !strings.Contains(out, want) {
			t.Fatalf("输出缺少 %q：\n%s", want, out)
		}
	}
}

func TestRenderCards_NonTTYEmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	renderCards(&buf, false, nil)
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("空列表应输出 []，实际 %q", buf.String())
	}
}

func TestRenderTraces_Summary(t *testing.T) {
	var buf bytes.Buffer
	renderTraces(&buf, true, []domain.MatchTrace{
		{Index: 0, MatterID: "2020-00025", NameMatch: true, Overall: true},
		{Index: 1, MatterID: "2019-11111"},
	})
	if !strings.Contains(buf.String(), "1 of 2 cards match") {
		t.Fatalf("缺少汇总行：\n%s", buf.String())
	}
}
