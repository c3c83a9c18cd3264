package opentdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"trivia-quiz/internal/domain"
)

// DefaultEndpoint is the public Open Trivia DB API.
const DefaultEndpoint = "https://opentdb.com/api.php"

// API response codes; anything but success means the upstream could not
// serve the request.
const responseCodeSuccess = 0

// Client fetches multiple-choice question batches over the Open Trivia DB
// wire contract: GET {endpoint}?amount=N&category=C&type=multiple returning
// {"response_code": int, "results": [...]}.
type Client struct {
	endpoint string
	category int
	httpc    *http.Client
}

// NewClient builds a Client. An empty endpoint uses the public API; a nil
// httpc uses http.DefaultClient (set a Timeout on the injected client —
// the session never self-cancels a stalled load).
func NewClient(endpoint string, category int, httpc *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpc == nil {
		httpc = http.DefaultClient
	}
	return &Client{endpoint: endpoint, category: category, httpc: httpc}
}

type envelope struct {
	ResponseCode int                  `json:"response_code"`
	Results      []domain.RawQuestion `json:"results"`
}

// Fetch requests a batch of amount questions. Any transport failure,
// non-200 status, unparseable body, or non-success API code surfaces as
// ErrSourceUnavailable; the upstream may also legitimately return fewer
// questions than requested.
func (c *Client) Fetch(ctx context.Context, amount int) ([]domain.RawQuestion, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: bad endpoint: %v", domain.ErrSourceUnavailable, err)
	}
	query := u.Query()
	query.Set("amount", strconv.Itoa(amount))
	if c.category > 0 {
		query.Set("category", strconv.Itoa(c.category))
	}
	query.Set("type", "multiple")
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", domain.ErrSourceUnavailable, resp.StatusCode)
	}

	var body envelope
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", domain.ErrSourceUnavailable, err)
	}
	if body.ResponseCode != responseCodeSuccess {
		return nil, fmt.Errorf("%w: api response code %d", domain.ErrSourceUnavailable, body.ResponseCode)
	}
	return body.Results, nil
}
