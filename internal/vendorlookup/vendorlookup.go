// Package vendorlookup resolves the vendor behind a MAC address OUI via the
// macaddress.io API. The lookup is strictly best-effort: every failure mode of
// the remote call collapses to "no vendor found" and nothing is retried.
package vendorlookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"stocktake/internal/config"
	"stocktake/internal/device"
)

// Resolver maps a normalized MAC address to a vendor name. An empty string
// means the lookup contributed nothing; callers must never treat that as an
// error to propagate.
type Resolver interface {
	Vendor(ctx context.Context, mac string) string
}

const defaultTimeout = 10 * time.Second

// Client queries api.macaddress.io.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient builds a lookup client. A missing API key disables the lookup
// (every call returns absence); the warning is logged once here rather than
// per call.
func NewClient(cfg config.MACLookupConfig, log *zap.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.macaddress.io/v1"
	}
	if cfg.APIKey == "" {
		log.Warn("mac vendor lookup disabled: no API key configured")
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Duration(cfg.Timeout, defaultTimeout),
		},
		log: log,
	}
}

// lookupResponse mirrors the slice of the macaddress.io payload we care
// about.
type lookupResponse struct {
	VendorDetails struct {
		OUI         string `json:"oui"`
		CompanyName string `json:"companyName"`
	} `json:"vendorDetails"`
}

// Vendor returns the cleaned vendor name for a normalized MAC address, or ""
// when the address is the sentinel, the credential is missing, or the remote
// call fails in any way (timeout, non-200, malformed body, absent field).
func (c *Client) Vendor(ctx context.Context, mac string) string {
	if c.apiKey == "" || mac == device.Unknown || mac == "" {
		return ""
	}

	query := url.Values{}
	query.Set("apiKey", c.apiKey)
	query.Set("output", "json")
	query.Set("search", mac)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", c.baseURL, query.Encode()), nil)
	if err != nil {
		return ""
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("mac vendor lookup failed", zap.String("mac", mac), zap.Error(err))
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Debug("mac vendor lookup returned non-200",
			zap.String("mac", mac), zap.Int("status", resp.StatusCode))
		return ""
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}

	var payload lookupResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		c.log.Debug("mac vendor lookup returned malformed body", zap.String("mac", mac), zap.Error(err))
		return ""
	}

	name := CleanVendorName(payload.VendorDetails.CompanyName)
	if name != "" {
		c.log.Debug("mac vendor resolved", zap.String("mac", mac), zap.String("vendor", name))
	}
	return name
}

// legalSuffixes are trailing legal-entity tokens stripped off vendor names.
// Compared lowercase after trimming trailing punctuation.
var legalSuffixes = map[string]bool{
	"inc":          true,
	"incorporated": true,
	"llc":          true,
	"ltd":          true,
	"limited":      true,
	"co":           true,
	"company":      true,
	"corp":         true,
	"corporation":  true,
	"gmbh":         true,
	"ag":           true,
	"sa":           true,
	"bv":           true,
	"srl":          true,
	"plc":          true,
	"pte":          true,
}

// CleanVendorName trims legal-entity suffixes from the tail of an
// organization name and applies name canonicalization rules.
func CleanVendorName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	if strings.Contains(strings.ToUpper(name), "YEALINK") {
		return "Yealink"
	}

	fields := strings.Fields(name)
	for len(fields) > 1 {
		last := strings.ToLower(strings.Trim(fields[len(fields)-1], ".,()"))
		if !legalSuffixes[last] {
			break
		}
		fields = fields[:len(fields)-1]
	}

	cleaned := strings.Join(fields, " ")
	return strings.Trim(cleaned, " ,.")
}
