package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/John-Robertt/cardfinder/internal/domain"
	"github.com/John-Robertt/cardfinder/internal/extract"
)

// 输出契约（固定）：
// - TTY：给人看的文本
// - 非 TTY：stdout 必须且仅输出一个 JSON 文档；提示/日志走 stderr

func isTTY(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func emitJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// noticeDoc 是只有一句提示时的 JSON 形态。
type noticeDoc struct {
	Message string `json:"message"`
}

func renderNotice(w io.Writer, tty bool, msg string) {
	if !tty {
		emitJSON(w, noticeDoc{Message: msg})
		return
	}
	fmt.Fprintln(w, msg)
}

func renderSearch(w io.Writer, tty bool, query string, resp domain.SearchResponse) {
	if !tty {
		emitJSON(w, resp)
		return
	}
	if msg := resp.MessageText(); msg != "" {
		fmt.Fprintln(w, msg)
		return
	}
	if len(resp.Matches) == 0 {
		fmt.Fprintf(w, "No matches found for '%s'.\n", query)
		return
	}

	header := fmt.Sprintf("Found %d match(es)", len(resp.Matches))
	if resp.TotalCards > 0 {
		header += fmt.Sprintf(" out of %d cards", resp.TotalCards)
	}
	fmt.Fprintln(w, header+":")
	for _, m := range resp.Matches {
		fmt.Fprintf(w, "  - %s - %s\n", matchLabel(m), m.Column)
	}
}

// matchLabel：有名称时显示 "名称 (编号)"，否则只显示编号。
func matchLabel(m domain.Match) string {
	if m.MatterName == "" {
		return m.MatterID
	}
	if m.MatterID == "" || m.MatterID == "No ID" {
		return m.MatterName
	}
	return fmt.Sprintf("%s (%s)", m.MatterName, m.MatterID)
}

func renderCards(w io.Writer, tty bool, cards []domain.CardView) {
	if !tty {
		if cards == nil {
			cards = []domain.CardView{}
		}
		emitJSON(w, cards)
		return
	}
	fmt.Fprintf(w, "Found %d cards\n", len(cards))
	if len(cards) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tMATTER ID\tNAME\tCOLUMN\tMETHOD\tELEMENT")
	for i, c := range cards {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, orNoID(c.MatterID), c.MatterName, c.Column, orDash(string(c.Method)), c.Element)
	}
	_ = tw.Flush()
}

func renderTraces(w io.Writer, tty bool, traces []domain.MatchTrace) {
	if !tty {
		if traces == nil {
			traces = []domain.MatchTrace{}
		}
		emitJSON(w, traces)
		return
	}
	matched := 0
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tMATTER ID\tNAME\tCOLUMN\tID\tNAME\tMATCH")
	for _, t := range traces {
		if t.Overall {
			matched++
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", t.Index+1, orNoID(t.MatterID), t.MatterName, t.Column, mark(t.IDMatch), mark(t.NameMatch), mark(t.Overall))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "%d of %d cards match\n", matched, len(traces))
}

// extractReport 是 extract 子命令的输出。
type extractReport struct {
	File       string            `json:"file"`
	Selector   string            `json:"selector"`
	Candidates int               `json:"candidates"`
	Skipped    int               `json:"skipped"`
	Dropped    int               `json:"dropped"`
	Cards      []domain.CardView `json:"cards"`
}

func newExtractReport(file string, res extract.Result) extractReport {
	rep := extractReport{
		File:       file,
		Selector:   res.Selector,
		Candidates: res.Candidates,
		Skipped:    res.Skipped,
		Dropped:    res.Dropped,
		Cards:      make([]domain.CardView, 0, len(res.Cards)),
	}
	for _, c := range res.Cards {
		rep.Cards = append(rep.Cards, domain.ViewFromCard(c))
	}
	return rep
}

func renderExtract(w io.Writer, tty bool, rep extractReport) {
	if !tty {
		emitJSON(w, rep)
		return
	}
	if rep.Selector == "" {
		fmt.Fprintln(w, domain.MsgNoCards)
		return
	}
	fmt.Fprintf(w, "selector=%s candidates=%d skipped=%d dropped=%d\n", rep.Selector, rep.Candidates, rep.Skipped, rep.Dropped)
	renderCards(w, tty, rep.Cards)
}

// pushDoc 是 push 子命令的 JSON 输出。
type pushDoc struct {
	Applied bool `json:"applied"`
}

func renderPush(w io.Writer, tty bool, applied bool) {
	if !tty {
		emitJSON(w, pushDoc{Applied: applied})
		return
	}
	if applied {
		fmt.Fprintln(w, "Board snapshot applied.")
		return
	}
	fmt.Fprintln(w, "Board snapshot saved; the server will pick it up shortly.")
}

func renderHealth(w io.Writer, tty bool, h domain.Health) {
	if !tty {
		emitJSON(w, h)
		return
	}
	state := "loading"
	if h.Ready {
		state = "ready"
	}
	fmt.Fprintf(w, "status: %s\npage: %s (%s)\ncards: %d\n", h.Status, orDash(h.PageURL), state, h.Cards)
}

func orNoID(id string) string {
	if id == "" {
		return "No ID"
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func mark(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}
