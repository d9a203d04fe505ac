package pairfinder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/luxfi/geth/common"
)

// HTTPOracle calls an external price-and-liquidity API (the out-of-scope
// "external liquidity-oracle HTTP API" of §1) scoped to one chain. There is
// no ecosystem client library for this one-off GET-and-parse in the
// retrieved pack, so it uses net/http directly — the genuinely external
// system boundary, not a domain concern any pack dependency covers.
type HTTPOracle struct {
	BaseURL string
	ChainID string
	Client  *http.Client
}

func NewHTTPOracle(baseURL, chainID string) *HTTPOracle {
	return &HTTPOracle{BaseURL: baseURL, ChainID: chainID, Client: http.DefaultClient}
}

type oraclePairsResponse struct {
	Pairs []struct {
		ChainID      string `json:"chainId"`
		PairAddress  string `json:"pairAddress"`
		LiquidityUSD string `json:"liquidityUsd"`
	} `json:"pairs"`
}

func (o *HTTPOracle) Liquidity(ctx context.Context, token common.Address) (map[string]float64, error) {
	url := fmt.Sprintf("%s/tokens/%s", strings.TrimRight(o.BaseURL, "/"), token.Hex())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	var parsed oraclePairsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(parsed.Pairs))
	for _, p := range parsed.Pairs {
		if o.ChainID != "" && p.ChainID != o.ChainID {
			continue
		}
		usd, err := strconv.ParseFloat(p.LiquidityUSD, 64)
		if err != nil {
			continue
		}
		out[strings.ToLower(p.PairAddress)] = usd
	}
	return out, nil
}
