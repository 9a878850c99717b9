// Package reputation fetches a user's voting power from the snapshot score
// service. Callers treat it as a soft dependency: failures degrade instead
// of aborting.
package reputation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Strategies the score service evaluates, mirroring the governance space
// configuration: MANA balances across networks plus LAND, estates, and
// names with their multipliers.
const strategies = `[
  {
    "name": "multichain",
    "network": "1",
    "params": {
      "name": "multichain",
      "graphs": {
        "137": "https://api.thegraph.com/subgraphs/name/decentraland/blocks-matic-mainnet"
      },
      "symbol": "MANA",
      "strategies": [
        {
          "name": "erc20-balance-of",
          "params": { "address": "0x0f5d2fb29fb7d3cfee444a200298f468908cc942", "decimals": 18 },
          "network": "1"
        },
        {
          "name": "erc20-balance-of",
          "params": { "address": "0xA1c57f48F0Deb89f569dFbE6E2B7f46D33606fD4", "decimals": 18 },
          "network": "137"
        }
      ]
    }
  },
  {
    "name": "erc20-balance-of",
    "network": "1",
    "params": { "symbol": "WMANA", "address": "0xfd09cf7cfffa9932e33668311c4777cb9db3c9be", "decimals": 18 }
  },
  {
    "name": "erc721-with-multiplier",
    "network": "1",
    "params": { "symbol": "LAND", "address": "0xf87e31492faf9a91b02ee0deaad50d51d56d5d4d", "multiplier": 2000 }
  },
  {
    "name": "decentraland-estate-size",
    "network": "1",
    "params": { "symbol": "ESTATE", "address": "0x959e104e1a4db6317fa58f8295f586e1a978c297", "multiplier": 2000 }
  },
  {
    "name": "erc721-with-multiplier",
    "network": "1",
    "params": { "symbol": "NAMES", "address": "0x2a187453064356c898cae034eaed119e1663acb8", "multiplier": 100 }
  }
]`

const space = "snapshot.dcl.eth"

type Client struct {
	url  string
	http *http.Client
}

func New(snapshotURL string) *Client {
	return &Client{
		url:  snapshotURL,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func NewWithHTTPClient(snapshotURL string, httpClient *http.Client) *Client {
	return &Client{url: snapshotURL, http: httpClient}
}

type scoreRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  scoreParams `json:"params"`
}

type scoreParams struct {
	Network    string          `json:"network"`
	Address    string          `json:"address"`
	Strategies json.RawMessage `json:"strategies"`
	Space      string          `json:"space"`
	Delegation bool            `json:"delegation"`
}

// GetScore returns the user's voting power, truncated to an integer.
func (c *Client) GetScore(ctx context.Context, address string) (int, error) {
	payload, err := json.Marshal(scoreRequest{
		JSONRPC: "2.0",
		Method:  "get_vp",
		Params: scoreParams{
			Network:    "1",
			Address:    strings.ToLower(address),
			Strategies: json.RawMessage(strategies),
			Space:      space,
			Delegation: false,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("query score service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("score service returned status %d", resp.StatusCode)
	}

	var decoded struct {
		Result struct {
			VP float64 `json:"vp"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, fmt.Errorf("decode score response: %w", err)
	}

	return int(decoded.Result.VP), nil
}
