package buildbot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// BuildBot result code for an exception (master-side error rather than a
// failing build).
const resultException = 5

// Client fetches builder status from a BuildBot master's JSON API.
type Client struct {
	builderURL string
	httpClient *http.Client
}

func NewClient(baseURL, builderName string, timeout time.Duration) *Client {
	return &Client{
		builderURL: fmt.Sprintf("%s/json/builders/%s", baseURL, url.PathEscape(builderName)),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type builderState struct {
	State string `json:"state"`
}

type lastBuild struct {
	Results *int `json:"results"`
}

// FetchStatus returns the current aggregate status of the builder. A builder
// that is idle is resolved further by inspecting the results of its most
// recent build.
func (c *Client) FetchStatus(ctx context.Context) (Status, error) {
	var state builderState
	if err := c.getJSON(ctx, c.builderURL, &state); err != nil {
		return StatusUnknown, fmt.Errorf("fetch builder state: %w", err)
	}

	switch state.State {
	case "building":
		return StatusBuilding, nil
	case "offline":
		return StatusOffline, nil
	case "idle":
		return c.lastBuildStatus(ctx)
	default:
		return StatusUnknown, nil
	}
}

// lastBuildStatus inspects the most recent completed build. BuildBot keys the
// response by the requested selector, so the build sits under "-1".
func (c *Client) lastBuildStatus(ctx context.Context) (Status, error) {
	var builds map[string]lastBuild
	if err := c.getJSON(ctx, c.builderURL+"/builds?select=-1", &builds); err != nil {
		return StatusUnknown, fmt.Errorf("fetch last build: %w", err)
	}

	build, ok := builds["-1"]
	if !ok {
		return StatusUnknown, nil
	}

	if build.Results == nil || *build.Results == 0 {
		return StatusSuccess, nil
	}
	if *build.Results == resultException {
		return StatusException, nil
	}
	return StatusFailure, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected response status %d from %s", resp.StatusCode, rawURL)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response from %s: %w", rawURL, err)
	}
	return nil
}
