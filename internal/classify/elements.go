package classify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/chromedp"
)

// Element filter types accepted by ExtractElements.
const (
	FilterText   = "text"
	FilterImage  = "image"
	FilterLink   = "link"
	FilterScript = "script"
)

// Element is one DOM element surfaced by extraction, with a derived CSS
// selector. Selector uniqueness is heuristic: when no unique selector can be
// established within the ancestor depth bound, the plain class- or tag-based
// selector is returned even though it may match more than one node.
type Element struct {
	Content    string            `json:"content"`
	Selector   string            `json:"selector"`
	Type       string            `json:"type"`
	Tag        string            `json:"tag"`
	Attributes map[string]string `json:"attributes"`
}

type evalEnvelope struct {
	OK           bool            `json:"ok"`
	Data         json.RawMessage `json:"data,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// ValidFilter reports whether the filter type names a supported extraction.
func ValidFilter(filterType string) bool {
	switch filterType {
	case FilterText, FilterImage, FilterLink, FilterScript:
		return true
	}
	return false
}

// ExtractElements evaluates the extraction script in page context and
// returns the matched elements in document order. Per-element failures are
// swallowed inside the script; only a whole-evaluation failure errors.
func ExtractElements(ctx context.Context, filterType string) ([]Element, error) {
	if !ValidFilter(filterType) {
		return nil, fmt.Errorf("unsupported filter type: %q", filterType)
	}

	var raw string
	if err := chromedp.Run(ctx, chromedp.Evaluate(jsExtractElements(filterType), &raw)); err != nil {
		return nil, fmt.Errorf("element extraction eval: %w", err)
	}

	var env evalEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("element extraction envelope: %w", err)
	}
	if !env.OK {
		return nil, fmt.Errorf("element extraction failed in page: %s", env.ErrorMessage)
	}

	var elements []Element
	if err := json.Unmarshal(env.Data, &elements); err != nil {
		return nil, fmt.Errorf("element extraction decode: %w", err)
	}
	return elements, nil
}

// selectorQueries maps a filter type to the CSS query gathering its elements.
var selectorQueries = map[string]string{
	FilterText:   "p, h1, h2, h3, h4, h5, h6, span",
	FilterImage:  "img",
	FilterLink:   "a",
	FilterScript: "script",
}

const selectorDepthBound = 4

func jsExtractElements(filterType string) string {
	return wrapJSEval(fmt.Sprintf(`
var filter = %s;
var nodes = document.querySelectorAll(%s);
function ownSelector(el) {
  if (el.classList && el.classList.length > 0) {
    return "." + Array.prototype.slice.call(el.classList).join(".");
  }
  return el.tagName.toLowerCase();
}
function isUnique(sel) {
  try { return document.querySelectorAll(sel).length === 1; } catch (_) { return false; }
}
function deriveSelector(el) {
  if (el.id) return "#" + el.id;
  var own = ownSelector(el);
  if (el.classList && el.classList.length > 0 && isUnique(own)) return own;
  var parts = [own];
  var p = el.parentElement;
  for (var depth = 0; depth < %d && p && p.tagName; depth++) {
    var pSel = p.id ? "#" + p.id : ownSelector(p);
    parts.unshift(pSel);
    var candidate = parts.join(" > ");
    if (isUnique(candidate)) return candidate;
    p = p.parentElement;
  }
  return own;
}
function contentOf(el) {
  switch (filter) {
  case "text": return (el.textContent || "").trim();
  case "image": return el.getAttribute("src") || "";
  case "link": return el.getAttribute("href") || "";
  case "script":
    var src = el.getAttribute("src");
    return src ? src : (el.textContent || "").trim();
  }
  return "";
}
var out = [];
for (var i = 0; i < nodes.length; i++) {
  try {
    var el = nodes[i];
    var attrs = {};
    for (var a = 0; a < el.attributes.length; a++) {
      attrs[el.attributes[a].name] = el.attributes[a].value;
    }
    out.push({
      content: contentOf(el),
      selector: deriveSelector(el),
      type: filter,
      tag: el.tagName.toLowerCase(),
      attributes: attrs
    });
  } catch (_) {}
}
return JSON.stringify({ok:true,data:out});
`, jsString(filterType), jsString(selectorQueries[filterType]), selectorDepthBound))
}
