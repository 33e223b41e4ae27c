package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/turtacn/IsomerScope/pkg/errors"
)

const maxResponseBytes = 1 << 20

type clientOptions struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

// Option configures an OPSIN or PubChem client.
type Option func(*clientOptions)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *clientOptions) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// WithTimeout bounds each request. Zero leaves it to the caller context.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

func buildOptions(opts []Option) clientOptions {
	o := clientOptions{httpClient: http.DefaultClient, userAgent: "isoscope"}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// getJSON issues a GET and decodes a 200 response into dest.
func (o clientOptions) getJSON(ctx context.Context, rawURL string, dest interface{}) error {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", o.userAgent)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return errors.Newf(errors.ErrCodeDataSourceUnavailable, "unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeDataSourceParseError, "decode response")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// OPSIN
// ─────────────────────────────────────────────────────────────────────────────

// OPSINClient parses systematic names with the OPSIN web service.
type OPSINClient struct {
	baseURL string
	opts    clientOptions
}

type opsinResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	SMILES  string `json:"smiles"`
}

// NewOPSINClient returns a client for baseURL, for example
// "https://opsin.ch.cam.ac.uk/opsin". timeout bounds every request.
func NewOPSINClient(baseURL string, timeout time.Duration, opts ...Option) *OPSINClient {
	o := buildOptions(opts)
	o.timeout = timeout
	return &OPSINClient{baseURL: strings.TrimRight(baseURL, "/"), opts: o}
}

func (c *OPSINClient) Name() string { return SourceOPSIN }

// Lookup requests {base}/{name}.json and returns its smiles field.
func (c *OPSINClient) Lookup(ctx context.Context, name string) (string, error) {
	var body opsinResponse
	if err := c.opts.getJSON(ctx, c.baseURL+"/"+url.PathEscape(name)+".json", &body); err != nil {
		return "", err
	}
	if body.SMILES == "" {
		return "", errors.New(errors.ErrCodeDataSourceParseError, "opsin response has no smiles").WithDetail(body.Message)
	}
	return body.SMILES, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// PubChem
// ─────────────────────────────────────────────────────────────────────────────

// PubChemClient looks names up through PUG REST.
type PubChemClient struct {
	baseURL string
	opts    clientOptions
	pacer   *pacer
}

type pubchemResponse struct {
	PropertyTable struct {
		Properties []pubchemProperties `json:"Properties"`
	} `json:"PropertyTable"`
}

// PubChem renamed IsomericSMILES to SMILES; both are accepted.
type pubchemProperties struct {
	CID            int    `json:"CID"`
	IsomericSMILES string `json:"IsomericSMILES"`
	SMILES         string `json:"SMILES"`
}

const pubchemProperty = "IsomericSMILES,SMILES"

// NewPubChemClient returns a client for baseURL, for example
// "https://pubchem.ncbi.nlm.nih.gov". rps > 0 spaces requests evenly at
// that rate; PubChem asks for at most five per second.
func NewPubChemClient(baseURL string, rps int, opts ...Option) *PubChemClient {
	c := &PubChemClient{baseURL: strings.TrimRight(baseURL, "/"), opts: buildOptions(opts)}
	if rps > 0 {
		c.pacer = newPacer(rps)
	}
	return c
}

func (c *PubChemClient) Name() string { return SourcePubChem }

// Lookup returns the isomeric SMILES of the first matching compound.
func (c *PubChemClient) Lookup(ctx context.Context, name string) (string, error) {
	if c.pacer != nil {
		if err := c.pacer.Wait(ctx); err != nil {
			return "", errors.Wrap(err, errors.ErrCodeDataSourceRateLimited, "rate limiter")
		}
	}
	u := fmt.Sprintf("%s/rest/pug/compound/name/%s/property/%s/JSON", c.baseURL, url.PathEscape(name), pubchemProperty)

	var body pubchemResponse
	if err := c.opts.getJSON(ctx, u, &body); err != nil {
		return "", err
	}
	if len(body.PropertyTable.Properties) == 0 {
		return "", errors.New(errors.ErrCodeDataSourceParseError, "pubchem returned no records")
	}
	first := body.PropertyTable.Properties[0]
	if first.IsomericSMILES != "" {
		return first.IsomericSMILES, nil
	}
	if first.SMILES != "" {
		return first.SMILES, nil
	}
	return "", errors.Newf(errors.ErrCodeDataSourceParseError, "pubchem record %d has no smiles", first.CID)
}

//Personal.AI order the ending
