package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jamiefw/flux/internal/types"
)

// GBFS feed names consumed by the bikeshare collectors.
const (
	GBFSStationInformation = "station_information"
	GBFSStationStatus      = "station_status"
)

// gbfsDiscovery is the wire shape of a GBFS 2.3 discovery document:
// data.<language>.feeds[] with name/url pairs.
type gbfsDiscovery struct {
	Data map[string]struct {
		Feeds []struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"feeds"`
	} `json:"data"`
}

// Directory resolves GBFS feed names to URLs for one bikeshare system.
// It is an explicit cache: Refresh repopulates the map from the discovery
// document and EnsureLoaded populates it at most once per Directory
// lifetime. There is no implicit invalidation; a process restart (or an
// explicit Refresh) picks up feed topology changes.
type Directory struct {
	system       string
	discoveryURL string
	client       Fetcher
	logger       *slog.Logger

	mu    sync.Mutex
	feeds map[string]string
}

// NewDirectory creates a Directory for one GBFS system. The cache starts
// empty; the first URL lookup (or an explicit Refresh) populates it.
func NewDirectory(client Fetcher, system, discoveryURL string, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{
		system:       system,
		discoveryURL: discoveryURL,
		client:       client,
		logger:       logger,
	}
}

// System returns the bikeshare system name this directory serves.
func (d *Directory) System() string {
	return d.system
}

// Refresh fetches the discovery document and replaces the cached
// feed-name -> URL map. English feeds are preferred; if the document does
// not publish an "en" block the first language present is used.
func (d *Directory) Refresh(ctx context.Context) error {
	var doc gbfsDiscovery
	if err := d.client.GetJSON(ctx, d.discoveryURL, &doc); err != nil {
		return err
	}

	lang, ok := doc.Data["en"]
	if !ok {
		for _, v := range doc.Data {
			lang = v
			break
		}
	}

	feeds := make(map[string]string, len(lang.Feeds))
	for _, f := range lang.Feeds {
		if f.Name == "" || f.URL == "" {
			continue
		}
		feeds[f.Name] = f.URL
	}

	if len(feeds) == 0 {
		return types.NewAppError(
			types.ErrCodeDecodeFailed,
			fmt.Sprintf("gbfs discovery document for %s lists no feeds", d.system),
			nil,
		)
	}

	d.mu.Lock()
	d.feeds = feeds
	d.mu.Unlock()

	names := make([]string, 0, len(feeds))
	for name := range feeds {
		names = append(names, name)
	}
	d.logger.InfoContext(ctx, "gbfs feed directory refreshed",
		"system", d.system,
		"feeds", names,
	)
	return nil
}

// URL returns the cached URL for the named feed, populating the cache on
// first use. A feed absent from the discovery document is a
// ErrCodeDiscoveryFeedMissing failure.
func (d *Directory) URL(ctx context.Context, name string) (string, error) {
	d.mu.Lock()
	loaded := d.feeds != nil
	d.mu.Unlock()

	if !loaded {
		if err := d.Refresh(ctx); err != nil {
			return "", err
		}
	}

	d.mu.Lock()
	u, ok := d.feeds[name]
	d.mu.Unlock()

	if !ok {
		return "", types.NewAppError(
			types.ErrCodeDiscoveryFeedMissing,
			fmt.Sprintf("gbfs system %s does not publish feed %q", d.system, name),
			nil,
		)
	}
	return u, nil
}
