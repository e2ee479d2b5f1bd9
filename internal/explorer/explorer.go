// Package explorer looks up chain data that cardano-cli does not expose by
// reading pages of a block explorer.
package explorer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"

	"github.com/Klingon-tech/automint/internal/log"
)

// DefaultURL is the explorer used when none is configured.
const DefaultURL = "https://cardanoscan.io"

// Explorer errors.
var (
	ErrNotFound   = errors.New("not found on explorer page")
	ErrBadRequest = errors.New("explorer request failed")
)

// inputsMarker precedes the input addresses on a transaction page.
const inputsMarker = "FROM ADDRESSES"

// Client reads transaction and address pages.
type Client struct {
	http *resty.Client
}

// New creates a client for the explorer at baseURL.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c := resty.New().
		SetHostURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(15*time.Second).
		SetRetryCount(2).
		SetHeader("User-Agent", "automint")
	return &Client{http: c}
}

func (c *Client) page(ctx context.Context, path string) (*html.Node, error) {
	resp, err := c.http.R().SetContext(ctx).Get(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadRequest, path, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: %s: status %d", ErrBadRequest, path, resp.StatusCode())
	}
	doc, err := html.Parse(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// ReturnAddress returns the first input address of the transaction that
// created utxo ("<tx_hash>#<index>" or a bare hash). Used to refund the
// sender of a payment.
func (c *Client) ReturnAddress(ctx context.Context, utxo string) (string, error) {
	txHash, _, _ := strings.Cut(utxo, "#")
	doc, err := c.page(ctx, "/transaction/"+txHash)
	if err != nil {
		return "", err
	}
	addr, ok := firstLinkAfter(doc, inputsMarker, "/address/")
	if !ok {
		return "", fmt.Errorf("%w: input address of %s", ErrNotFound, txHash)
	}
	log.Explorer.Debug().Str("tx", txHash).Str("address", addr).Msg("Resolved return address")
	return addr, nil
}

// StakeKey returns the stake key registered for addr.
func (c *Client) StakeKey(ctx context.Context, addr string) (string, error) {
	doc, err := c.page(ctx, "/address/"+addr)
	if err != nil {
		return "", err
	}
	key, ok := firstLinkAfter(doc, "", "/stakekey/")
	if !ok {
		return "", fmt.Errorf("%w: stake key of %s", ErrNotFound, addr)
	}
	return key, nil
}

// firstLinkAfter walks doc in order and returns the remainder of the first
// href starting with prefix that appears after a text node containing
// marker. An empty marker matches from the start.
func firstLinkAfter(doc *html.Node, marker, prefix string) (string, bool) {
	seen := marker == ""
	var (
		found string
		ok    bool
		walk  func(*html.Node)
	)
	walk = func(n *html.Node) {
		if ok {
			return
		}
		switch {
		case n.Type == html.TextNode && !seen:
			seen = strings.Contains(n.Data, marker)
		case n.Type == html.ElementNode && n.Data == "a" && seen:
			for _, a := range n.Attr {
				if a.Key == "href" && strings.HasPrefix(a.Val, prefix) {
					found, ok = strings.TrimPrefix(a.Val, prefix), true
					return
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return found, ok && found != ""
}
