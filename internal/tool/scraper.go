package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/invopop/jsonschema"

	"toolrelay/internal/domain"
)

// ScraperPolicy is operator configuration, not something the planner controls.
type ScraperPolicy struct {
	// GroupSelector matches the element wrapping one product card.
	GroupSelector string
	// LimitResults turns on MaxProducts for every call.
	LimitResults bool
	// MaxProducts: with limiting on, extraction stops once more than this many
	// products have been collected.
	MaxProducts int
}

func DefaultScraperPolicy() ScraperPolicy {
	return ScraperPolicy{GroupSelector: ".meta-wrapper", MaxProducts: 3}
}

type scrapeRequest struct {
	Shops        []shopSelectors
	LimitResults bool
}

// shopSelectors is a shop entry with its selectors already compiled, so a
// bad selector is rejected before the page is fetched.
type shopSelectors struct {
	domain.ShopEntry
	sku, price, description cascadia.Selector
}

func compileShop(shop domain.ShopEntry, path string) (shopSelectors, error) {
	out := shopSelectors{ShopEntry: shop}
	var err error
	skuExpr := fmt.Sprintf("%s[%s]", shop.SelectorSKU.Tag, shop.SelectorSKU.Attribute)
	if out.sku, err = compileSelector(skuExpr, path+"selector_sku"); err != nil {
		return out, err
	}
	if out.price, err = compileSelector(shop.SelectorPrice, path+"selector_price"); err != nil {
		return out, err
	}
	if out.description, err = compileSelector(shop.SelectorDescription, path+"selector_description"); err != nil {
		return out, err
	}
	return out, nil
}

// WebScraper extracts product cards from shop pages using per-shop selectors.
type WebScraper struct {
	fetcher  domain.PageFetcher
	policy   ScraperPolicy
	group    cascadia.Selector
	groupErr error
	logger   *slog.Logger
}

type WebScraperConfig struct {
	Fetcher domain.PageFetcher
	Policy  ScraperPolicy
	Logger  *slog.Logger
}

func NewWebScraper(cfg WebScraperConfig) *WebScraper {
	def := DefaultScraperPolicy()
	if cfg.Policy.GroupSelector == "" {
		cfg.Policy.GroupSelector = def.GroupSelector
	}
	if cfg.Policy.MaxProducts <= 0 {
		cfg.Policy.MaxProducts = def.MaxProducts
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	group, err := compileSelector(cfg.Policy.GroupSelector, "product group selector")
	if err != nil {
		cfg.Logger.Error("web_scrape calls will fail", "error", err)
	}
	return &WebScraper{fetcher: cfg.Fetcher, policy: cfg.Policy, group: group, groupErr: err, logger: cfg.Logger}
}

func (s *WebScraper) Name() string { return "web_scrape" }
func (s *WebScraper) Description() string {
	return "Scrapes multiple products from one or more shop URLs (price, description and SKU per product, with configurable selectors)."
}

func (s *WebScraper) Parameters() *jsonschema.Schema {
	sku := ObjectSchema([]Param{
		StringParam("tag", ""),
		StringParam("attribute", ""),
	}, "tag", "attribute")
	shop := ObjectSchema([]Param{
		StringParam("url", ""),
		StringParam("selector_price", ""),
		StringParam("selector_description", ""),
		ObjectParam("selector_sku", sku),
	}, "url", "selector_price", "selector_description", "selector_sku")
	return Closed(ObjectSchema([]Param{ArrayParam("shops", "", shop)}, "shops"))
}

func (s *WebScraper) Execute(ctx context.Context, req domain.Request) domain.Response {
	in, err := mapScrapeRequest(req.Content)
	if err != nil {
		return domain.Failure(err)
	}
	if s.fetcher == nil {
		return domain.Failure(domain.Validationf("no page fetcher configured"))
	}
	if s.groupErr != nil {
		return domain.Failure(s.groupErr)
	}

	limit := 0
	if s.policy.LimitResults || in.LimitResults {
		limit = s.policy.MaxProducts
	}

	var products []domain.Product
	for _, shop := range in.Shops {
		html, err := s.fetcher.Fetch(ctx, shop.URL)
		if err != nil {
			return domain.Failure(domain.Transport(err, ""))
		}
		found, stop, err := extractProducts(html, shop, s.group, limit, len(products))
		if err != nil {
			return domain.Failure(err)
		}
		s.logger.Debug("scraped shop", "url", shop.URL, "products", len(found))
		products = append(products, found...)
		if stop {
			s.logger.Debug("product limit reached", "limit", limit)
			break
		}
	}

	rows := make([]map[string]any, 0, len(products))
	for _, p := range products {
		rows = append(rows, p.Flatten())
	}
	msg := fmt.Sprintf("scraped %d products from %d shops", len(products), len(in.Shops))
	return domain.SuccessWithMessage(map[string]any{"products": rows}, msg)
}

// extractProducts finds every SKU-bearing node, climbs to its product group
// and reads price and description inside that group. Nodes outside a group
// are skipped. With limit > 0 it stops as soon as already+len(found) exceeds
// limit and reports stop=true.
func extractProducts(html string, shop shopSelectors, groupSel cascadia.Selector, limit, already int) ([]domain.Product, bool, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, false, &domain.Error{Kind: domain.KindData, Msg: "parse " + shop.URL, Err: err}
	}

	var found []domain.Product
	stop := false
	doc.FindMatcher(shop.sku).EachWithBreak(func(_ int, node *goquery.Selection) bool {
		group := node.ParentsMatcher(groupSel).First()
		if group.Length() == 0 {
			return true
		}
		sku, _ := node.Attr(shop.SelectorSKU.Attribute)
		found = append(found, domain.Product{
			Description: cleanText(group.FindMatcher(shop.description).First().Text()),
			Price:       cleanText(group.FindMatcher(shop.price).First().Text()),
			SKU:         strings.TrimSpace(sku),
		})
		if limit > 0 && already+len(found) > limit {
			stop = true
			return false
		}
		return true
	})
	return found, stop, nil
}

func compileSelector(sel, field string) (cascadia.Selector, error) {
	compiled, err := cascadia.Compile(sel)
	if err != nil {
		return nil, domain.Validationf("invalid %s %q: %v", field, sel, err)
	}
	return compiled, nil
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// mapScrapeRequest accepts a shops list (top level or under kwargs) or a
// single shop entry spread over the top level.
func mapScrapeRequest(content any) (scrapeRequest, error) {
	a := newArgs(content, "")
	out := scrapeRequest{LimitResults: a.optionalBool("limit_results")}

	if _, ok := a.lookup("shops"); !ok {
		if _, single := a.lookup("url"); single {
			shop, err := shopFromArgs(a)
			if err != nil {
				return out, err
			}
			compiled, err := compileShop(shop, "")
			if err != nil {
				return out, err
			}
			out.Shops = []shopSelectors{compiled}
			return out, nil
		}
	}

	list, err := a.requireList("shops")
	if err != nil {
		return out, err
	}
	if len(list) == 0 {
		return out, domain.Validationf("shops must contain at least one entry")
	}
	for i, item := range list {
		path := indexPath("shops", i)
		obj, err := asObject(item, path)
		if err != nil {
			return out, err
		}
		shop, err := shopFromObject(obj, path)
		if err != nil {
			return out, err
		}
		compiled, err := compileShop(shop, path+".")
		if err != nil {
			return out, err
		}
		out.Shops = append(out.Shops, compiled)
	}
	return out, nil
}

func shopFromObject(obj map[string]any, path string) (domain.ShopEntry, error) {
	var shop domain.ShopEntry
	var err error
	if shop.URL, err = objectField(obj, "url", path); err != nil {
		return shop, err
	}
	if shop.SelectorPrice, err = objectField(obj, "selector_price", path); err != nil {
		return shop, err
	}
	if shop.SelectorDescription, err = objectField(obj, "selector_description", path); err != nil {
		return shop, err
	}
	rawSKU, ok := obj["selector_sku"]
	if !ok || rawSKU == nil {
		return shop, domain.Validationf("missing argument: %s.selector_sku", path)
	}
	skuPath := path + ".selector_sku"
	skuObj, err := asObject(rawSKU, skuPath)
	if err != nil {
		return shop, err
	}
	if shop.SelectorSKU.Tag, err = objectField(skuObj, "tag", skuPath); err != nil {
		return shop, err
	}
	if shop.SelectorSKU.Attribute, err = objectField(skuObj, "attribute", skuPath); err != nil {
		return shop, err
	}
	return shop, nil
}

func shopFromArgs(a args) (domain.ShopEntry, error) {
	obj := map[string]any{}
	for _, key := range []string{"url", "selector_price", "selector_description", "selector_sku"} {
		if v, ok := a.lookup(key); ok {
			obj[key] = v
		}
	}
	return shopFromObject(obj, "shop")
}
