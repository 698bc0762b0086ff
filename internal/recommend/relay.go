// Package recommend relays opportunity pages to a generative model: it picks
// the best opportunity of a list and locates listings on the map.
package recommend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/go-resty/resty/v2"
	"github.com/immxrtalbeast/globe_rooms/internal/catalog"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/immxrtalbeast/globe_rooms/lib/logger/sl"
	"golang.org/x/sync/errgroup"
)

const (
	fetchConcurrency = 4
	fullTextInPrompt = 500
	userAgent        = "Mozilla/5.0 (compatible; globe-rooms/1.0)"
)

var (
	ErrNoOpportunities = errors.New("no opportunities provided")
	ErrNoLinks         = errors.New("no links provided")
)

type Generator interface {
	Generate(ctx context.Context, system, prompt, model string) (string, error)
}

type OpportunityLink struct {
	Name    string `json:"name"`
	Link    string `json:"link"`
	Country string `json:"country,omitempty"`
}

type Recommendation struct {
	Text          string `json:"recommendation"`
	AnalyzedCount int    `json:"analyzed_count"`
}

type Relay struct {
	pages     *resty.Client
	gen       Generator
	model     string
	fastModel string
	log       *slog.Logger
}

type RelayOptions struct {
	Model     string
	FastModel string
	// PageTimeout bounds each opportunity page fetch.
	PageTimeout time.Duration
}

func NewRelay(gen Generator, opts RelayOptions, log *slog.Logger) *Relay {
	if log == nil {
		log = slog.Default()
	}
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 10 * time.Second
	}
	pages := resty.New().
		SetTimeout(opts.PageTimeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "text/html")

	return &Relay{
		pages:     pages,
		gen:       gen,
		model:     opts.Model,
		fastModel: opts.FastModel,
		log:       log,
	}
}

const advisorPrompt = `You are an expert advisor for volunteering opportunities.
Analyze the provided volunteering opportunities and recommend the best one based on:
- Available Times (when volunteers can participate)
- Time Commitment (how much time is required)
- Recurrence (one-time vs recurring)
- Cost (any fees required)
- Cause Areas (what causes they support)
- Benefits (training, housing, language support, etc.)
- Good For (who can participate: kids, teens, groups, etc.)

Provide a clear, concise recommendation explaining why this opportunity is the best fit.
Focus on practical considerations that help volunteers make informed decisions.`

// Recommend fetches every opportunity page, summarizes it and asks the model
// for the best fit. Pages that cannot be fetched are still listed.
func (r *Relay) Recommend(ctx context.Context, links []OpportunityLink) (Recommendation, error) {
	const op = "recommend.relay.recommend"
	log := r.log.With(slog.String("op", op))

	if len(links) == 0 {
		return Recommendation{}, ErrNoOpportunities
	}

	descriptions := make([]Description, len(links))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, l := range links {
		g.Go(func() error {
			descriptions[i] = r.describe(gctx, l.Link)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Recommendation{}, err
	}

	prompt := buildPrompt(links, descriptions)
	text, err := r.gen.Generate(ctx, advisorPrompt, prompt, r.model)
	if err != nil {
		log.Error("failed to generate recommendation", sl.Err(err))
		return Recommendation{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("recommendation generated", slog.Int("analyzed", len(links)))
	return Recommendation{Text: text, AnalyzedCount: len(links)}, nil
}

const locatePrompt = `You are given a JSON array of URLs (links) pointing to volunteer opportunity pages.
Task: For each URL produce a JSON object with these exact keys:
  - "latlon": an array [lat, lon] where lat and lon are parseable floats (latitude first),
  - "country": the country for that lat/lon, as a lower-case English name (for example: 'japan').
Requirements (strict):
 - Output MUST be a single valid JSON array and nothing else. Example:
   [ {"latlon": [35.6897, 139.6922], "country": "japan"} ]
 - Do NOT include markdown, backticks, commentary, notes, or any extra text.
 - Make sure that the countries are full English names in lower case (no country codes).
 - Return entries in the same order as the input links array. If you cannot find coordinates for a link, omit that link's object entirely.
 - Each array element MUST contain both keys: "latlon" and "country" (if country is unknown, set it to null explicitly).`

// Locate asks the fast model for coordinates of each link and returns the
// parsed locations as opportunities.
func (r *Relay) Locate(ctx context.Context, links []string) ([]domain.Opportunity, error) {
	const op = "recommend.relay.locate"
	log := r.log.With(slog.String("op", op))

	if len(links) == 0 {
		return nil, ErrNoLinks
	}

	payload, err := json.Marshal(links)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	prompt := "Input links array:\n" + string(payload) + "\nReply now with only the JSON array (no extra text)."

	text, err := r.gen.Generate(ctx, locatePrompt, prompt, r.fastModel)
	if err != nil {
		log.Error("failed to locate links", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	locations := catalog.ParseModelLocations(text)
	if len(locations) < len(links) {
		log.Warn("model located fewer links than given", slog.Int("links", len(links)), slog.Int("located", len(locations)))
	}
	return catalog.AttachLinks(locations, links), nil
}

func (r *Relay) describe(ctx context.Context, link string) Description {
	const op = "recommend.relay.describe"

	resp, err := r.pages.R().SetContext(ctx).Get(link)
	if err == nil && resp.IsError() {
		err = fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	if err != nil {
		r.log.Warn("failed to fetch opportunity page", slog.String("op", op), slog.String("link", link), sl.Err(err))
		return Description{Err: err.Error()}
	}

	d, err := ExtractDescription(bytes.NewReader(resp.Body()))
	if err != nil {
		return Description{Err: err.Error()}
	}
	return d
}

func buildPrompt(links []OpportunityLink, descriptions []Description) string {
	var b strings.Builder
	b.WriteString("Please analyze these volunteering opportunities and recommend the best one:\n\n")
	for i, l := range links {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, l.Name, l.Country)
		fmt.Fprintf(&b, "   Link: %s\n", l.Link)

		d := descriptions[i]
		switch {
		case d.Err != "":
			fmt.Fprintf(&b, "   Note: Could not fetch full description (%s)\n", d.Err)
		case d.Empty():
			b.WriteString("   Note: No description details found\n")
		default:
			b.WriteString("   Description Details:\n")
			for _, f := range d.Fields {
				fmt.Fprintf(&b, "   - %s: %s\n", f.Label, f.Value)
			}
			if d.FullText != "" {
				fmt.Fprintf(&b, "   - Full Description: %s...\n", truncate(d.FullText, fullTextInPrompt))
			}
		}
	}
	b.WriteString("\nBased on the available information, which opportunity would you recommend and why?\n")
	b.WriteString("Consider all the factors mentioned in your instructions.")
	return b.String()
}
