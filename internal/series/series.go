// Package series describes the NWS text-product endpoints a harvest can target.
package series

import (
	"fmt"
	"net/url"
	"sort"
)

// DefaultBaseURL is the product browser endpoint of the National Weather Service.
const DefaultBaseURL = "https://forecast.weather.gov/product.php"

// Series identifies one periodically reissued text product: a daily climate
// bulletin issued by a forecast office for a reporting station.
type Series struct {
	Name     string `mapstructure:"name"`
	Site     string `mapstructure:"site"`
	IssuedBy string `mapstructure:"issued_by"`
	Product  string `mapstructure:"product"`
	BaseURL  string `mapstructure:"base_url"`
}

// Validate enforces the fields required to build endpoint URLs.
func (s Series) Validate() error {
	if s.Site == "" {
		return fmt.Errorf("series %q: site is required", s.Name)
	}
	if s.IssuedBy == "" {
		return fmt.Errorf("series %q: issued_by is required", s.Name)
	}
	if s.Product == "" {
		return fmt.Errorf("series %q: product is required", s.Name)
	}
	return nil
}

func (s Series) baseURL() string {
	if s.BaseURL != "" {
		return s.BaseURL
	}
	return DefaultBaseURL
}

// ListingURL returns the URL of the version listing page. The listing is the
// same product page as any single version; the version browser widget on it
// enumerates every available revision.
func (s Series) ListingURL() string {
	return s.VersionURL(1)
}

// VersionURL returns the URL for one specific revision of the product.
func (s Series) VersionURL(version int) string {
	q := url.Values{}
	q.Set("site", s.Site)
	q.Set("issuedby", s.IssuedBy)
	q.Set("product", s.Product)
	q.Set("format", "TXT")
	q.Set("version", fmt.Sprintf("%d", version))
	q.Set("glossary", "0")
	return s.baseURL() + "?" + q.Encode()
}

// FileName returns the conventional output file name for this series.
func (s Series) FileName() string {
	return fmt.Sprintf("weather_reports_%s_%s.txt", s.Site, s.Name)
}

// Catalog maps a short selector to a Series definition.
type Catalog map[string]Series

// DefaultCatalog returns the built-in station list.
func DefaultCatalog() Catalog {
	return Catalog{
		"newyork": {Name: "NewYork", Site: "OKX", IssuedBy: "NYC", Product: "CLI"},
		"austin":  {Name: "Austin", Site: "EWX", IssuedBy: "AUS", Product: "CLI"},
		"chicago": {Name: "Chicago", Site: "LOT", IssuedBy: "MDW", Product: "CLI"},
		"miami":   {Name: "Miami", Site: "MFL", IssuedBy: "MIA", Product: "CLI"},
	}
}

// Keys returns the catalog selectors in stable sorted order, for menus.
func (c Catalog) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup resolves a selector to its Series.
func (c Catalog) Lookup(key string) (Series, bool) {
	s, ok := c[key]
	return s, ok
}
