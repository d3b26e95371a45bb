// Package postcodes resolves UK postcodes to a town, county and
// coordinates via a postcodes.io compatible service.
package postcodes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"property-ingest/models"
	"property-ingest/utils"
)

// ErrNotFound is returned for postcodes the service does not know.
var ErrNotFound = errors.New("postcode not found")

type Client struct {
	baseURL string
	http    *http.Client
	logger  *utils.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *utils.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type lookupResponse struct {
	Status int `json:"status"`
	Result *struct {
		Postcode      string   `json:"postcode"`
		Latitude      *float64 `json:"latitude"`
		Longitude     *float64 `json:"longitude"`
		AdminDistrict string   `json:"admin_district"`
		AdminCounty   string   `json:"admin_county"`
		Region        string   `json:"region"`
	} `json:"result"`
	Error string `json:"error"`
}

// Lookup returns the place for postcode. Postcodes without coordinates
// are reported as ErrNotFound.
func (c *Client) Lookup(ctx context.Context, postcode string) (*models.Place, error) {
	postcode = strings.TrimSpace(postcode)
	if postcode == "" {
		return nil, ErrNotFound
	}

	endpoint := c.baseURL + "/postcodes/" + url.PathEscape(postcode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("postcodes: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("postcodes: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("postcodes: %s: %w", postcode, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("postcodes: %s: unexpected status %d", postcode, resp.StatusCode)
	}

	var decoded lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("postcodes: decode: %w", err)
	}
	r := decoded.Result
	if r == nil || r.Latitude == nil || r.Longitude == nil {
		return nil, fmt.Errorf("postcodes: %s: %w", postcode, ErrNotFound)
	}

	county := r.AdminCounty
	if county == "" {
		county = r.Region
	}
	c.logger.Debug("[postcodes] %s -> %s, %s", postcode, r.AdminDistrict, county)

	return &models.Place{
		Town:      r.AdminDistrict,
		County:    county,
		Latitude:  *r.Latitude,
		Longitude: *r.Longitude,
	}, nil
}
