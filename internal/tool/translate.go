package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/invopop/jsonschema"

	"toolrelay/internal/buffer"
	"toolrelay/internal/domain"
)

// languageAliases maps the names planners use for a language to its code.
var languageAliases = map[string]string{
	"english":    "EN",
	"en":         "EN",
	"inglés":     "EN",
	"ingles":     "EN",
	"spanish":    "ES",
	"es":         "ES",
	"español":    "ES",
	"espanol":    "ES",
	"castellano": "ES",
	"portuguese": "PT",
	"pt":         "PT",
	"portugués":  "PT",
	"portugues":  "PT",
	"french":     "FR",
	"fr":         "FR",
	"francés":    "FR",
	"frances":    "FR",
	"german":     "DE",
	"de":         "DE",
	"alemán":     "DE",
	"aleman":     "DE",
	"italian":    "IT",
	"it":         "IT",
	"italiano":   "IT",
}

// LanguageCode normalizes a requested language to an upper-case code.
func LanguageCode(lang string) string {
	lang = strings.TrimSpace(lang)
	if code, ok := languageAliases[strings.ToLower(lang)]; ok {
		return code
	}
	return strings.ToUpper(lang)
}

const translatePrompt = "Translate the following text to %s. Respond only with the translation, without explanations:\n%s"

type translateRequest struct {
	Products []domain.Product
	Codes    []string
}

// Translator adds one translated description per requested language to each product.
type Translator struct {
	model   domain.LanguageModel
	results *buffer.Buffer
	timeout time.Duration
	logger  *slog.Logger
}

type TranslatorConfig struct {
	Model   domain.LanguageModel // nil makes every call fail with "no provider configured"
	Results *buffer.Buffer
	Timeout time.Duration // per model call
	Logger  *slog.Logger
}

func NewTranslator(cfg TranslatorConfig) *Translator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Translator{model: cfg.Model, results: cfg.Results, timeout: cfg.Timeout, logger: cfg.Logger}
}

func (t *Translator) Name() string { return "translate_products" }
func (t *Translator) Description() string {
	return "Translates product descriptions into the requested languages using a language model."
}

func (t *Translator) Parameters() *jsonschema.Schema {
	product := ObjectSchema([]Param{
		StringParam("description", ""),
		StringParam("price", ""),
		StringParam("sku", ""),
	}, "description", "price", "sku")
	lang := ObjectSchema([]Param{StringParam("lang", "")}, "lang")
	return Closed(ObjectSchema([]Param{
		ArrayParam("products", "", product),
		ArrayParam("langs", "", lang),
	}, "products", "langs"))
}

// OwnsResultBuffer tells the dispatcher this agent writes the buffer itself.
func (t *Translator) OwnsResultBuffer() bool { return t.results != nil }

func (t *Translator) Execute(ctx context.Context, req domain.Request) domain.Response {
	resp := t.execute(ctx, req)
	t.record(resp)
	return resp
}

func (t *Translator) execute(ctx context.Context, req domain.Request) domain.Response {
	if t.model == nil {
		return domain.Failure(domain.Validationf("no provider configured"))
	}
	in, err := mapTranslateRequest(req.Content)
	if err != nil {
		return domain.Failure(err)
	}

	rows := make([]map[string]any, 0, len(in.Products))
	for _, product := range in.Products {
		for _, code := range in.Codes {
			text, err := t.translate(ctx, product.Description, code)
			if err != nil {
				return domain.Failure(err)
			}
			product.SetTranslation(code, text)
		}
		rows = append(rows, product.Flatten())
	}

	msg := fmt.Sprintf("translated %d products into %s", len(in.Products), strings.Join(in.Codes, ", "))
	return domain.SuccessWithMessage(map[string]any{"products": rows}, msg)
}

// translate returns the original text when the model fails or answers with
// nothing. Only a timeout fails the whole call.
func (t *Translator) translate(ctx context.Context, text, code string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	gen, err := t.model.Generate(callCtx, domain.GenerationRequest{
		Prompt: fmt.Sprintf(translatePrompt, code, text),
	})
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return "", domain.Transport(context.DeadlineExceeded, fmt.Sprintf("translation to %s timed out after %s", code, t.timeout))
	case errors.Is(err, context.Canceled):
		return "", domain.Transport(err, "translation cancelled")
	case err != nil:
		t.logger.Warn("translation failed, keeping original", "lang", code, "model", t.model.Name(), "err", err)
		return text, nil
	case gen == nil || strings.TrimSpace(gen.Text) == "":
		t.logger.Warn("empty translation, keeping original", "lang", code, "model", t.model.Name())
		return text, nil
	}
	return strings.TrimSpace(gen.Text), nil
}

// record mirrors the outcome into the result buffer so the closing step can
// read structured data even after a failure.
func (t *Translator) record(resp domain.Response) {
	if t.results == nil {
		return
	}
	payload, ok := resp.Content.(map[string]any)
	if !resp.OK() || !ok {
		payload = map[string]any{"status": domain.StatusError.String(), "message": resp.Message}
	}
	if err := t.results.Set(payload); err != nil {
		t.logger.Error("store translation result", "err", err)
	}
}

func mapTranslateRequest(content any) (translateRequest, error) {
	var out translateRequest
	a := newArgs(content, "")

	products, err := a.requireList("products")
	if err != nil {
		return out, err
	}
	// A previous step's whole {"products": [...]} payload passed through as is.
	if len(products) == 1 {
		if inner, ok := products[0].(map[string]any); ok {
			if nested, ok := asList(inner["products"]); ok {
				products = nested
			}
		}
	}
	for i, item := range products {
		path := indexPath("products", i)
		obj, err := asObject(item, path)
		if err != nil {
			return out, err
		}
		var p domain.Product
		desc, ok := obj["description"]
		if !ok || desc == nil {
			return out, domain.Validationf("missing argument: %s.description", path)
		}
		if p.Description, ok = scalarString(desc); !ok {
			return out, domain.Validationf("argument %s.description must be a string", path)
		}
		// Fields may be empty when a scraper selector matched nothing.
		p.Price, _ = scalarString(obj["price"])
		p.SKU, _ = scalarString(obj["sku"])
		out.Products = append(out.Products, p)
	}

	langs, err := a.requireList("langs")
	if err != nil {
		v, _ := a.lookup("langs")
		csv, isString := v.(string)
		if !isString {
			return out, err
		}
		langs = nil
		for _, part := range strings.Split(csv, ",") {
			langs = append(langs, part)
		}
	}
	seen := make(map[string]bool)
	for i, item := range langs {
		var raw string
		switch v := item.(type) {
		case string:
			raw = v
		case map[string]any:
			if raw, err = objectField(v, "lang", indexPath("langs", i)); err != nil {
				return out, err
			}
		default:
			return out, domain.Validationf("%s must be a language name or {lang}", indexPath("langs", i))
		}
		code := LanguageCode(raw)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		out.Codes = append(out.Codes, code)
	}
	if len(out.Codes) == 0 {
		return out, domain.Validationf("missing argument: langs")
	}
	return out, nil
}
