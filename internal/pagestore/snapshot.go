// Package pagestore reads the browsing context state a page leaves behind:
// cookies and the web storage areas.
package pagestore

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

// Cookie mirrors the browser's structured cookie record.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Snapshot holds everything captured from the page's storage in one read.
type Snapshot struct {
	Cookies        []Cookie          `json:"cookies"`
	LocalStorage   map[string]string `json:"localStorage"`
	SessionStorage map[string]string `json:"sessionStorage"`
}

const jsEnumerateLocalStorage = `(function(){
var out = {};
for (var i = 0; i < localStorage.length; i++) {
  var k = localStorage.key(i);
  out[k] = localStorage.getItem(k);
}
return out;
})()`

const jsEnumerateSessionStorage = `(function(){
var out = {};
for (var i = 0; i < sessionStorage.length; i++) {
  var k = sessionStorage.key(i);
  out[k] = sessionStorage.getItem(k);
}
return out;
})()`

// Capture reads cookies plus both storage areas. All-or-nothing: if any of
// the three reads fails the whole snapshot is dropped, so callers never see
// partial storage data.
func Capture(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return fmt.Errorf("read cookies: %w", err)
		}
		for _, c := range cookies {
			snap.Cookies = append(snap.Cookies, Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				HTTPOnly: c.HTTPOnly,
				Secure:   c.Secure,
				SameSite: string(c.SameSite),
			})
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}

	if err := chromedp.Run(ctx, chromedp.Evaluate(jsEnumerateLocalStorage, &snap.LocalStorage)); err != nil {
		return nil, fmt.Errorf("read localStorage: %w", err)
	}
	if err := chromedp.Run(ctx, chromedp.Evaluate(jsEnumerateSessionStorage, &snap.SessionStorage)); err != nil {
		return nil, fmt.Errorf("read sessionStorage: %w", err)
	}

	return snap, nil
}
