package tool

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"

	"toolrelay/internal/codec"
	"toolrelay/internal/domain"
)

// amountPattern matches amounts written with a decimal comma, e.g. "1299,00".
var amountPattern = regexp.MustCompile(`\d+,\d{2}`)

type PricePage struct {
	URL     string
	Content string
}

// PriceStats aggregates every amount found across the analyzed pages.
type PriceStats struct {
	Count   int           `json:"count"`
	Min     float64       `json:"min"`
	Max     float64       `json:"max"`
	Mean    float64       `json:"mean"`
	Details []PageDetails `json:"details"`
}

type PageDetails struct {
	URL    string    `json:"url"`
	Prices []float64 `json:"prices"`
}

// PriceAnalyzer extracts decimal-comma prices from scraped text and summarizes them.
type PriceAnalyzer struct {
	logger *slog.Logger
}

func NewPriceAnalyzer(logger *slog.Logger) *PriceAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PriceAnalyzer{logger: logger}
}

func (p *PriceAnalyzer) Name() string { return "price_analyze" }
func (p *PriceAnalyzer) Description() string {
	return "Analyzes the prices found in the content scraped from multiple web pages."
}

func (p *PriceAnalyzer) Parameters() *jsonschema.Schema {
	page := ObjectSchema([]Param{
		StringParam("url", ""),
		StringParam("content", ""),
	}, "url", "content")
	return ObjectSchema([]Param{
		ArrayParam("pages", "List of pages with the scraped content", page),
	}, "pages")
}

func (p *PriceAnalyzer) Execute(_ context.Context, req domain.Request) domain.Response {
	pages, err := mapPriceRequest(req.Content)
	if err != nil {
		return domain.Failure(err)
	}

	stats, err := AnalyzePrices(pages)
	if err != nil {
		return domain.Failure(err)
	}
	p.logger.Debug("analyzed prices", "pages", len(pages), "count", stats.Count)

	summary := stats.Summary()
	return domain.Success(map[string]any{
		"count":   stats.Count,
		"min":     round2(stats.Min),
		"max":     round2(stats.Max),
		"mean":    round2(stats.Mean),
		"details": stats.Details,
		"summary": summary,
	})
}

// AnalyzePrices returns a "no prices found" DataError when no amount is
// found in any page, an empty page list included.
func AnalyzePrices(pages []PricePage) (PriceStats, error) {
	var stats PriceStats
	sum := 0.0
	for _, page := range pages {
		detail := PageDetails{URL: page.URL, Prices: []float64{}}
		for _, raw := range amountPattern.FindAllString(page.Content, -1) {
			v, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
			if err != nil {
				continue
			}
			detail.Prices = append(detail.Prices, v)
			if stats.Count == 0 || v < stats.Min {
				stats.Min = v
			}
			if stats.Count == 0 || v > stats.Max {
				stats.Max = v
			}
			sum += v
			stats.Count++
		}
		stats.Details = append(stats.Details, detail)
	}

	if stats.Count == 0 {
		return stats, domain.Dataf("no prices found")
	}
	stats.Mean = sum / float64(stats.Count)
	return stats, nil
}

// Summary renders the statistics as prose with two-decimal amounts.
func (s PriceStats) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d prices. Min: %.2f, Max: %.2f, Mean: %.2f.", s.Count, s.Min, s.Max, s.Mean)
	for _, d := range s.Details {
		if len(d.Prices) == 0 {
			fmt.Fprintf(&sb, "\n- %s: no prices", d.URL)
			continue
		}
		parts := make([]string, len(d.Prices))
		for i, v := range d.Prices {
			parts[i] = fmt.Sprintf("%.2f", v)
		}
		fmt.Fprintf(&sb, "\n- %s: %s", d.URL, strings.Join(parts, ", "))
	}
	return sb.String()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// mapPriceRequest accepts a pages list, or bare text treated as one page
// without a URL.
func mapPriceRequest(content any) ([]PricePage, error) {
	a := newArgs(content, "")
	if _, ok := a.lookup("pages"); !ok {
		if text, isRaw := a.raw(); isRaw && strings.TrimSpace(text) != "" {
			return []PricePage{{Content: text}}, nil
		}
	}

	list, err := a.requireList("pages")
	if err != nil {
		return nil, err
	}
	pages := make([]PricePage, 0, len(list))
	for i, item := range list {
		path := indexPath("pages", i)
		if text, ok := item.(string); ok {
			decoded, err := codec.DecodeObject(text)
			if err != nil {
				pages = append(pages, PricePage{Content: text})
				continue
			}
			item = decoded
		}
		obj, err := asObject(item, path)
		if err != nil {
			return nil, err
		}
		content, ok := obj["content"].(string)
		if !ok {
			return nil, domain.Validationf("missing argument: %s.content", path)
		}
		url, _ := scalarString(obj["url"])
		pages = append(pages, PricePage{URL: url, Content: content})
	}
	return pages, nil
}
