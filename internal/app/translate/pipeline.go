package translate

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const DefaultTimeout = 8 * time.Second

// Pipeline runs the enrichment steps for one message under a time budget.
// Identical calls already in flight are shared rather than repeated.
type Pipeline struct {
	tr      Translator
	timeout time.Duration
	sf      singleflight.Group
}

func NewPipeline(tr Translator, timeout time.Duration) *Pipeline {
	if tr == nil {
		tr = NopTranslator{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Pipeline{tr: tr, timeout: timeout}
}

// Enrich never fails: on any error or timeout it returns what it has,
// and the caller stores the original text.
func (p *Pipeline) Enrich(ctx context.Context, text string) Enrichment {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	logger := log.With().Str("module", "translate").Logger()

	src, err := p.do(ctx, "detect", "", text, func(ctx context.Context) (string, error) {
		return p.tr.Detect(ctx, text)
	})
	if err != nil {
		logger.Warn().Err(err).Msg("detect failed, message left untranslated")
		return Enrichment{SourceLanguage: LangUndefined}
	}
	src = normalizeLang(src)
	out := Enrichment{SourceLanguage: src}
	target := TargetFor(src)

	var translated, romaji string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		translated, err = p.do(gctx, "translate", target, text, func(ctx context.Context) (string, error) {
			return p.tr.Translate(ctx, text, target)
		})
		return err
	})
	if src == LangJapanese {
		g.Go(func() error {
			var err error
			romaji, err = p.transliterate(gctx, text)
			if err != nil {
				logger.Warn().Err(err).Msg("transliteration failed")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Warn().Err(err).Str("source", src).Str("target", target).Msg("translate failed, message left untranslated")
		return out
	}
	if strings.TrimSpace(translated) == "" {
		return out
	}

	out.TranslatedText = translated
	out.TargetLanguage = target
	out.Transliteration = romaji
	if target == LangJapanese {
		if r, err := p.transliterate(ctx, translated); err == nil {
			out.Transliteration = r
		} else {
			logger.Warn().Err(err).Msg("transliteration failed")
		}
	}
	return out
}

// Probe times a single translation, for the client's latency check.
func (p *Pipeline) Probe(ctx context.Context, text, target string) (string, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	start := time.Now()
	out, err := p.do(ctx, "translate", target, text, func(ctx context.Context) (string, error) {
		return p.tr.Translate(ctx, text, target)
	})
	return out, time.Since(start), err
}

func (p *Pipeline) transliterate(ctx context.Context, text string) (string, error) {
	return p.do(ctx, "romaji", "", text, func(ctx context.Context) (string, error) {
		return p.tr.Transliterate(ctx, text)
	})
}

// do shares in-flight calls by key and gives up when ctx ends, even if
// the translator ignores cancellation. The shared call runs on its own
// deadline so one caller going away does not fail the others.
func (p *Pipeline) do(ctx context.Context, op, lang, text string, fn func(context.Context) (string, error)) (string, error) {
	key := op + "\x00" + lang + "\x00" + text
	ch := p.sf.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()
		return fn(shared)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func normalizeLang(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	if tag == "" {
		return LangUndefined
	}
	return tag
}
