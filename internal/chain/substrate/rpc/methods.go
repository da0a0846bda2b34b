package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/emperorhan/node-watchdog/internal/signalerr"
)

const MethodGetHeader = "chain_getHeader"

// GetHeader returns the header of the best block known to the endpoint.
func (c *Client) GetHeader(ctx context.Context) (*Header, error) {
	result, err := c.call(ctx, MethodGetHeader, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MethodGetHeader, err)
	}
	if len(result) == 0 || string(result) == "null" {
		return nil, signalerr.Parse(fmt.Errorf("%s: empty result", MethodGetHeader))
	}

	var header Header
	if err := json.Unmarshal(result, &header); err != nil {
		return nil, signalerr.Parse(fmt.Errorf("unmarshal header: %w", err))
	}
	return &header, nil
}

// GetBlockNumber returns the best block number decoded from chain_getHeader.
func (c *Client) GetBlockNumber(ctx context.Context) (uint64, error) {
	header, err := c.GetHeader(ctx)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(header.Number) == "" {
		return 0, signalerr.Parse(errors.New("missing block number in header"))
	}
	number, err := ParseHexUint64(header.Number)
	if err != nil {
		return 0, signalerr.Parse(fmt.Errorf("parse block number: %w", err))
	}
	return number, nil
}

// ParseHexUint64 parses a hex quantity with or without the 0x prefix.
func ParseHexUint64(value string) (uint64, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return 0, fmt.Errorf("empty hex value")
	}
	raw = strings.TrimPrefix(strings.ToLower(raw), "0x")
	if raw == "" {
		return 0, fmt.Errorf("empty hex body in %q", value)
	}
	parsed, err := strconv.ParseUint(raw, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hex %q: %w", value, err)
	}
	return parsed, nil
}
