package chromedp_fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/stay-harvester/internal/entity"
)

// blockedResources keeps pages light: only the HTML and the scripts that
// embed the page state are needed.
var blockedResources = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.avif", "*.svg",
	"*.woff", "*.woff2", "*.ttf", "*.mp4", "*.webm",
}

// Options configures the browser behind the fetcher.
type Options struct {
	BaseURL         string
	Headless        bool
	ProxyURL        string
	PageLoadTimeout time.Duration
	UserAgents      []string
}

// ChromedpFetcher fetches listings by rendering the site in headless Chrome.
// One browser process serves the whole run; every page gets its own tab.
type ChromedpFetcher struct {
	browserCtx context.Context
	cancel     context.CancelFunc
	identity   *identityRotator
	baseURL    string
	timeout    time.Duration
	logger     *zap.Logger
}

// NewChromedpFetcher starts the browser.
func NewChromedpFetcher(opts Options, logger *zap.Logger) (*ChromedpFetcher, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1280, 900),
	)
	if opts.ProxyURL != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.ProxyURL))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Sugar().Debugf))
	// the first Run launches the browser
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := opts.PageLoadTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChromedpFetcher{
		browserCtx: browserCtx,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
		identity: newIdentityRotator(opts.UserAgents),
		baseURL:  base,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// Close shuts the browser down.
func (f *ChromedpFetcher) Close() {
	f.cancel()
}

// newTab opens a tab that is closed when ctx is done or the returned
// cancel is called.
func (f *ChromedpFetcher) newTab(ctx context.Context) (context.Context, context.CancelFunc) {
	tabCtx, cancelTab := chromedp.NewContext(f.browserCtx)
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.timeout)
	stop := context.AfterFunc(ctx, cancelTab)
	return tabCtx, func() {
		stop()
		cancelTimeout()
		cancelTab()
	}
}

func (f *ChromedpFetcher) render(tabCtx context.Context, pageURL string) (string, error) {
	var html string
	err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetBlockedURLs(blockedResources),
		emulation.SetUserAgentOverride(f.identity.UserAgent()),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady(stateSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrNavigationFailed, pageURL, err)
	}
	return html, nil
}

func (f *ChromedpFetcher) SearchListings(ctx context.Context, params entity.SearchParams) ([]entity.ListingSummary, error) {
	tabCtx, cancel := f.newTab(ctx)
	defer cancel()

	pageURL := SearchURL(f.baseURL, params)
	html, err := f.render(tabCtx, pageURL)
	if err != nil {
		return nil, err
	}
	summaries, err := ParseSearchPage(html)
	if err != nil {
		return nil, fmt.Errorf("parse search page %s: %w", pageURL, err)
	}
	f.logger.Debug("Search page parsed", zap.String("url", pageURL), zap.Int("results", len(summaries)))
	return summaries, nil
}

func (f *ChromedpFetcher) GetListingDetails(ctx context.Context, listingID string, params entity.DetailParams) (*entity.DetailRecord, error) {
	tabCtx, cancel := f.newTab(ctx)
	defer cancel()

	pageURL := RoomURL(f.baseURL, listingID, params)
	html, err := f.render(tabCtx, pageURL)
	if err != nil {
		return nil, err
	}
	rec, err := ParseRoomPage(listingID, html)
	if err != nil {
		return nil, fmt.Errorf("parse room page %s: %w", pageURL, err)
	}
	if base, err := url.Parse(pageURL); err == nil {
		resolveImageURLs(base, rec)
	}

	apiKey, ok := ExtractAPIKey(html)
	if !ok {
		return nil, fmt.Errorf("room page %s: api key: %w", pageURL, ErrStateNotFound)
	}
	rec.Calendar, err = f.fetchCalendar(tabCtx, listingID, apiKey, params)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// fetchCalendar runs the calendar request from inside the listing tab so it
// carries the page's cookies.
func (f *ChromedpFetcher) fetchCalendar(tabCtx context.Context, listingID, apiKey string, params entity.DetailParams) ([]entity.CalendarMonth, error) {
	calendarURL, err := CalendarURL(f.baseURL, listingID, params)
	if err != nil {
		return nil, err
	}
	urlJSON, _ := json.Marshal(calendarURL)
	keyJSON, _ := json.Marshal(apiKey)
	script := fmt.Sprintf(`(async () => {
		const resp = await fetch(%s, {headers: {"X-Airbnb-API-Key": %s}, credentials: "include"});
		if (!resp.ok) { throw new Error("calendar request failed with status " + resp.status); }
		return await resp.text();
	})()`, urlJSON, keyJSON)

	var body string
	err = chromedp.Run(tabCtx, chromedp.Evaluate(script, &body, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
	if err != nil {
		return nil, fmt.Errorf("calendar of listing %s: %w", listingID, err)
	}
	months, err := ParseCalendar([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("calendar of listing %s: %w", listingID, err)
	}
	return months, nil
}
