package integrations

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"talentpool-backend/internal/cache"
)

// GeoCacheTTL is how long a resolved address is reused
const GeoCacheTTL = 24 * time.Hour

// Location is coarse location of an IP address
type Location struct {
	Country string `json:"country"`
	City    string `json:"city"`
}

// GeoLocator resolve IP address to location
type GeoLocator interface {
	Locate(ctx context.Context, ip string) (Location, error)
}

// Geo queries an ip-api compatible endpoint ({url}/{ip}), answers are kept in cache
type Geo struct {
	apiURL string
	cache  cache.Cache
}

// NewGeo create locator, disabled when apiURL is empty. c may be nil to skip caching.
func NewGeo(apiURL string, c cache.Cache) *Geo {
	return &Geo{apiURL: apiURL, cache: c}
}

// Locate implements GeoLocator. Private and loopback address resolve to empty location.
func (g *Geo) Locate(ctx context.Context, ip string) (Location, error) {
	if g == nil || g.apiURL == "" {
		return Location{}, ErrDisabled
	}
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return Location{}, nil
	}

	key := "geo:" + parsed.String()
	if g.cache != nil {
		var loc Location
		found, err := g.cache.Get(ctx, key, &loc)
		if err != nil {
			logrus.WithError(err).Warn("geo cache read failed")
		}
		if found {
			return loc, nil
		}
	}

	var body struct {
		Status  string `json:"status"`
		Country string `json:"country"`
		City    string `json:"city"`
	}
	resp, err := newClient(g.apiURL, 5*time.Second).R().
		SetContext(ctx).
		SetPathParam("ip", ip).
		SetResult(&body).
		ForceContentType(jsonContentType).
		Get("/{ip}")
	if err := checkResponse("geo", resp, err); err != nil {
		return Location{}, err
	}
	if body.Status != "" && body.Status != "success" {
		return Location{}, nil
	}

	loc := Location{Country: body.Country, City: body.City}
	if g.cache != nil {
		if err := g.cache.Set(ctx, key, loc, GeoCacheTTL); err != nil {
			logrus.WithError(err).Warn("geo cache write failed")
		}
	}
	return loc, nil
}
