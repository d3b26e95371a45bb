// Package pricepaid fetches sold-price transactions from a government
// price paid API and turns them into raw rows for the import pipeline.
package pricepaid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"property-ingest/models"
	"property-ingest/utils"
)

const DefaultLimit = 100

// Headers are the column names Fetch emits. They match the default
// dictionary aliases exactly, so mapping detection needs no fallbacks.
var Headers = []string{
	"address", "postcode", "price paid", "date of transfer", "property type",
	"tenure", "status", "town", "county", "district", "new build",
}

// Transaction is one registered sale.
type Transaction struct {
	Price        float64 `json:"price"`
	Date         string  `json:"date"`
	Postcode     string  `json:"postcode"`
	PropertyType string  `json:"propertyType"`
	Duration     string  `json:"duration"`
	PAON         string  `json:"paon"`
	SAON         string  `json:"saon"`
	Street       string  `json:"street"`
	Locality     string  `json:"locality"`
	Town         string  `json:"town"`
	District     string  `json:"district"`
	County       string  `json:"county"`
	NewBuild     bool    `json:"newBuild"`
}

type Query struct {
	Postcode string
	Limit    int
}

type response struct {
	Items []Transaction `json:"items"`
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

type Client struct {
	baseURL string
	http    *http.Client
	retry   *utils.RetryConfig
	logger  *utils.Logger
}

func NewClient(baseURL string, timeout time.Duration, retries int, logger *utils.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		retry: &utils.RetryConfig{
			MaxAttempts: retries,
			BaseDelay:   time.Second,
			Logger:      logger,
			Retryable: func(err error) bool {
				var se *statusError
				if errors.As(err, &se) {
					return se.code >= 500 || se.code == http.StatusTooManyRequests
				}
				return true
			},
		},
		logger: logger,
	}
}

// Transactions returns the sales registered against q.Postcode.
func (c *Client) Transactions(ctx context.Context, q Query) ([]Transaction, error) {
	postcode := strings.TrimSpace(q.Postcode)
	if postcode == "" {
		return nil, errors.New("pricepaid: postcode is required")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	params := url.Values{}
	params.Set("postcode", strings.ToUpper(postcode))
	params.Set("limit", strconv.Itoa(limit))
	endpoint := c.baseURL + "/transactions?" + params.Encode()

	var items []Transaction
	err := c.retry.Do(ctx, "price paid request", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("pricepaid: build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("pricepaid: request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("pricepaid: %w", &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))})
		}

		var decoded response
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return fmt.Errorf("pricepaid: decode: %w", err)
		}
		items = decoded.Items
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(items) > limit {
		items = items[:limit]
	}
	c.logger.Debug("[pricepaid] %d transactions for %s", len(items), postcode)
	return items, nil
}

// Fetch returns transactions for postcode as headers and raw rows.
func (c *Client) Fetch(ctx context.Context, postcode string, limit int) ([]string, []models.RawRow, error) {
	items, err := c.Transactions(ctx, Query{Postcode: postcode, Limit: limit})
	if err != nil {
		return nil, nil, err
	}
	rows := make([]models.RawRow, len(items))
	for i, t := range items {
		rows[i] = t.Row()
	}
	return Headers, rows, nil
}

// Row renders the transaction under Headers. Every row is marked sold.
func (t Transaction) Row() models.RawRow {
	return models.RawRow{
		"address":          t.Address(),
		"postcode":         t.Postcode,
		"price paid":       t.Price,
		"date of transfer": t.Date,
		"property type":    propertyTypeName(t.PropertyType),
		"tenure":           durationName(t.Duration),
		"status":           "sold",
		"town":             t.Town,
		"county":           t.County,
		"district":         t.District,
		"new build":        yesNo(t.NewBuild),
	}
}

// Address joins the address parts as "saon paon street, locality, town".
func (t Transaction) Address() string {
	var first []string
	for _, s := range []string{t.SAON, t.PAON, t.Street} {
		if s = strings.TrimSpace(s); s != "" {
			first = append(first, s)
		}
	}

	var parts []string
	if len(first) > 0 {
		parts = append(parts, strings.Join(first, " "))
	}
	for _, s := range []string{t.Locality, t.Town} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// propertyTypeName translates the register's single-letter codes.
func propertyTypeName(code string) string {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "D":
		return "detached"
	case "S":
		return "semi-detached"
	case "T":
		return "terraced"
	case "F":
		return "flat"
	case "O":
		return "other"
	}
	return code
}

func durationName(code string) string {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "F":
		return "freehold"
	case "L":
		return "leasehold"
	}
	return code
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
