// Package search 实现 SEARCH_MATTER：强制重建索引、按子串过滤、高亮第一条命中。
//
// 约束：
// - 所有方法只能在事件循环上调用（Handler 负责把请求投递过去）
// - 高亮是 fire-and-forget：响应不等待移除定时器
package search

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/John-Robertt/cardfinder/internal/domain"
	"github.com/John-Robertt/cardfinder/internal/index"
	"github.com/John-Robertt/cardfinder/internal/metrics"
)

// 未命中时日志里列出的卡片数。
const noMatchSampleSize = 5

// Scheduler 在延迟后执行回调（eventloop.Loop 满足该接口）。
type Scheduler interface {
	AfterFunc(d time.Duration, task func()) clockwork.Timer
}

type Config struct {
	// HighlightDuration 是高亮保持的时间；<=0 使用 DefaultHighlightDuration。
	HighlightDuration time.Duration
}

type Service struct {
	idx     *index.Index
	hl      *Highlighter
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func New(idx *index.Index, src index.DocumentSource, sched Scheduler, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		idx:     idx,
		hl:      NewHighlighter(src, sched, cfg.HighlightDuration, logger),
		logger:  logger,
		metrics: m,
	}
}

// Search 处理一次搜索请求。
func (s *Service) Search(query string) domain.SearchResponse {
	s.logger.Debug("received search request", zap.String("query", query))

	// 搜索前总是重新抽取，避免读到旧列表。
	s.idx.Rebuild(index.TriggerSearch)
	total := s.idx.Len()

	q := domain.NormalizeQuery(query)
	if q == "" {
		s.metrics.ObserveSearch("empty_query")
		return domain.SearchResponse{TotalCards: total, Message: msgPtr(domain.MsgEmptyQuery)}
	}

	if total == 0 {
		s.metrics.ObserveSearch("no_cards")
		s.logger.Debug("no cards indexed; page might not be a board view or still loading")
		return domain.SearchResponse{Message: msgPtr(domain.MsgNoCards)}
	}

	cards := s.idx.Query(q)
	s.logger.Debug("search finished", zap.String("query", q), zap.Int("matches", len(cards)), zap.Int("total", total))

	resp := domain.SearchResponse{
		Matches:    make([]domain.Match, 0, len(cards)),
		TotalCards: total,
	}
	for _, c := range cards {
		resp.Matches = append(resp.Matches, domain.MatchFromCard(c))
	}

	if len(cards) == 0 {
		s.metrics.ObserveSearch("no_match")
		s.logNoMatch()
		resp.Message = msgPtr(fmt.Sprintf("No matches found for \"%s\" among %d cards", q, total))
		return resp
	}

	s.metrics.ObserveSearch("match")
	if s.logger.Core().Enabled(zap.DebugLevel) {
		s.logger.Debug("matches found", zap.Any("matches", resp.Matches))
	}
	s.hl.Highlight(cards[0].Source)
	return resp
}

// Snapshot 重新抽取并返回全部卡片（控制台里的 testCardFinder）。
func (s *Service) Snapshot() []domain.CardView {
	s.idx.Rebuild(index.TriggerDebug)
	cards := s.idx.Cards()
	out := make([]domain.CardView, 0, len(cards))
	for _, c := range cards {
		out = append(out, domain.ViewFromCard(c))
	}
	return out
}

// Explain 是不重新抽取的 dry-run（控制台里的 debugSearch）：逐卡给出编号/名称的判定。
func (s *Service) Explain(query string) []domain.MatchTrace {
	q := domain.NormalizeQuery(query)
	cards := s.idx.Cards()
	out := make([]domain.MatchTrace, 0, len(cards))
	for i, c := range cards {
		idMatch := c.MatchesID(q)
		nameMatch := c.MatchesName(q)
		out = append(out, domain.MatchTrace{
			Index:      i,
			MatterID:   string(c.MatterID),
			MatterName: c.Name,
			Column:     c.Column,
			IDMatch:    idMatch,
			NameMatch:  nameMatch,
			Overall:    idMatch || nameMatch,
		})
	}
	s.logger.Debug("debug search", zap.String("query", q), zap.Int("cards", len(out)))
	return out
}

func (s *Service) logNoMatch() {
	if !s.logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	cards := s.idx.Cards()
	if len(cards) > noMatchSampleSize {
		cards = cards[:noMatchSampleSize]
	}
	sample := make([]domain.CardView, 0, len(cards))
	for _, c := range cards {
		sample = append(sample, domain.ViewFromCard(c))
	}
	s.logger.Debug("no matches; first cards to check", zap.Any("cards", sample))
}

func msgPtr(s string) *string { return &s }
