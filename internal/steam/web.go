package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/amdu/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	detailsPath     = "/ISteamRemoteStorage/GetPublishedFileDetails/v1/"
	unsubscribePath = "/IPublishedFileService/Unsubscribe/v1/"
	resultOK        = 1
)

// WebOptions configures a [WebClient].
type WebOptions struct {
	AppID          AppID
	LibraryPath    string
	PIDFile        string
	RequireRunning bool
	BaseURL        string
	APIKey         string
	AccessToken    string

	RequestsPerSecond float64
	Timeout           time.Duration

	// HTTPClient overrides the transport; the access token is still applied on top of it.
	HTTPClient *http.Client
	Logger     *log.Logger
}

// WebOptionsFromConfig maps the [steam] config section onto [WebOptions].
func WebOptionsFromConfig(cfg shared.SteamConfig, logger *log.Logger) WebOptions {
	return WebOptions{
		AppID:             AppID(cfg.AppID),
		LibraryPath:       shared.ExpandPath(cfg.LibraryPath),
		PIDFile:           shared.ExpandPath(cfg.PIDFile),
		RequireRunning:    cfg.RequireRunning,
		BaseURL:           cfg.WebAPIURL,
		APIKey:            cfg.APIKey,
		AccessToken:       cfg.AccessToken,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Timeout:           cfg.RequestTimeout(),
		Logger:            logger,
	}
}

// WebClient implements [Client] over the local workshop manifest and the Steam Web API.
type WebClient struct {
	opts    WebOptions
	http    *http.Client
	limiter *rate.Limiter
	logger  *log.Logger
	queue   CallbackQueue

	mu         sync.RWMutex
	subscribed []PublishedFileID
	installed  map[PublishedFileID]InstallInfo

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	life   sync.Mutex
	closed bool
}

// Init connects to the local client for opts.AppID.
//
// It fails with [shared.ErrServiceUnavailable] when Steam is not running or the workshop manifest
// cannot be read.
func Init(opts WebOptions) (*WebClient, error) {
	if opts.AppID == 0 {
		return nil, fmt.Errorf("%w: app id is required", shared.ErrInvalidConfig)
	}
	if opts.RequireRunning {
		if err := checkRunning(opts.PIDFile); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
		}
	}

	m, err := ReadManifest(opts.LibraryPath, opts.AppID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.steampowered.com"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &WebClient{
		opts:       opts,
		http:       newHTTPClient(opts),
		limiter:    rate.NewLimiter(limit, 1),
		logger:     shared.WithLogger(logger, "component", "steam", "app_id", opts.AppID),
		subscribed: m.Subscribed,
		installed:  m.Installed,
		ctx:        ctx,
		cancel:     cancel,
	}
	c.logger.Debug("workshop manifest loaded", "subscribed", len(m.Subscribed), "installed", len(m.Installed))
	return c, nil
}

func newHTTPClient(opts WebOptions) *http.Client {
	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{}
	}
	if opts.AccessToken == "" {
		client := *base
		if opts.Timeout > 0 {
			client.Timeout = opts.Timeout
		}
		return &client
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.AccessToken}))
	if opts.Timeout > 0 {
		client.Timeout = opts.Timeout
	}
	return client
}

func (c *WebClient) RunCallbacks() {
	c.queue.Run()
}

func (c *WebClient) SubscribedItems() []PublishedFileID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.subscribed)
}

func (c *WebClient) ItemInstallInfo(id PublishedFileID) (InstallInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.installed[id]
	return info, ok
}

func (c *WebClient) QueryItems(ids []PublishedFileID, cb func([]QueryResult, error)) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: empty id list", shared.ErrSubmissionRejected)
	}
	if len(ids) > MaxQueryItems {
		return fmt.Errorf("%w: %d ids exceeds limit of %d", shared.ErrSubmissionRejected, len(ids), MaxQueryItems)
	}

	ids = slices.Clone(ids)
	if !c.start() {
		return fmt.Errorf("%w: client closed", shared.ErrSubmissionRejected)
	}
	go func() {
		defer c.wg.Done()
		results, err := c.fetchDetails(c.ctx, ids)
		c.queue.Push(func() { cb(results, err) })
	}()
	return nil
}

func (c *WebClient) UnsubscribeItem(id PublishedFileID, cb func(error)) {
	if !c.start() {
		return
	}
	go func() {
		defer c.wg.Done()
		err := c.unsubscribe(c.ctx, id)
		if err == nil {
			c.forget(id)
		}
		c.queue.Push(func() { cb(err) })
	}()
}

// Close cancels in-flight requests and drops undelivered callbacks. It is safe to call more than once.
func (c *WebClient) Close() error {
	c.life.Lock()
	if c.closed {
		c.life.Unlock()
		return nil
	}
	c.closed = true
	c.life.Unlock()

	c.cancel()
	c.wg.Wait()
	c.queue.Close()
	return nil
}

// start registers one in-flight request unless the client is closed.
func (c *WebClient) start() bool {
	c.life.Lock()
	defer c.life.Unlock()
	if c.closed {
		return false
	}
	c.wg.Add(1)
	return true
}

func (c *WebClient) forget(id PublishedFileID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed = slices.DeleteFunc(c.subscribed, func(v PublishedFileID) bool { return v == id })
	delete(c.installed, id)
}

type detailsResponse struct {
	Response struct {
		Result  int `json:"result"`
		Details []struct {
			PublishedFileID flexUint `json:"publishedfileid"`
			Result          int      `json:"result"`
			Title           string   `json:"title"`
			FileSize        flexUint `json:"file_size"`
			TimeUpdated     flexUint `json:"time_updated"`
			Tags            []struct {
				Tag string `json:"tag"`
			} `json:"tags"`
		} `json:"publishedfiledetails"`
	} `json:"response"`
}

func (c *WebClient) fetchDetails(ctx context.Context, ids []PublishedFileID) ([]QueryResult, error) {
	form := url.Values{}
	form.Set("itemcount", strconv.Itoa(len(ids)))
	for i, id := range ids {
		form.Set(fmt.Sprintf("publishedfileids[%d]", i), id.String())
	}

	var resp detailsResponse
	if err := c.post(ctx, "query", detailsPath, form, &resp); err != nil {
		return nil, err
	}
	if resp.Response.Result != resultOK {
		return nil, &Error{Op: "query", Msg: fmt.Sprintf("result code %d", resp.Response.Result)}
	}

	results := make([]QueryResult, 0, len(resp.Response.Details))
	for _, d := range resp.Response.Details {
		if d.Result != resultOK {
			c.logger.Debug("skipping unavailable item", "id", uint64(d.PublishedFileID), "result", d.Result)
			continue
		}
		id := PublishedFileID(d.PublishedFileID)
		r := QueryResult{
			PublishedFileID: id,
			Title:           d.Title,
			URL:             CommunityItemURL + id.String(),
			FileSize:        uint64(d.FileSize),
		}
		if d.TimeUpdated > 0 {
			r.TimeUpdated = time.Unix(int64(d.TimeUpdated), 0).UTC()
		}
		for _, t := range d.Tags {
			r.Tags = append(r.Tags, t.Tag)
		}
		results = append(results, r)
	}
	return results, nil
}

func (c *WebClient) unsubscribe(ctx context.Context, id PublishedFileID) error {
	form := url.Values{}
	form.Set("publishedfileid", id.String())
	form.Set("appid", strconv.FormatUint(uint64(c.opts.AppID), 10))
	return c.post(ctx, "unsubscribe", unsubscribePath, form, nil)
}

func (c *WebClient) post(ctx context.Context, op, path string, form url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if c.opts.APIKey != "" {
		form.Set("key", c.opts.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &Error{Op: op, Status: resp.StatusCode, Msg: http.StatusText(resp.StatusCode)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// flexUint decodes numbers the Web API sends either as JSON numbers or as decimal strings.
type flexUint uint64

func (f *flexUint) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid numeric field %s: %w", b, err)
	}
	*f = flexUint(n)
	return nil
}
