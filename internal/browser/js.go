package browser

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// markerAttr tags elements found by Query and QueryText so later actions can
// address them with a plain attribute selector.
const markerAttr = "data-cortex-capture"

func markerSelector(id int64) string {
	return fmt.Sprintf(`[%s="%d"]`, markerAttr, id)
}

// jsString renders s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func queryScript(selector string, id int64) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	el.setAttribute(%s, %s);
	return true;
})()`, jsString(selector), jsString(markerAttr), jsString(strconv.FormatInt(id, 10)))
}

// textScript finds the innermost visible element of tag whose normalised text
// contains text, ignoring case.
func textScript(tag, text string, id int64) string {
	return fmt.Sprintf(`(() => {
	const norm = s => (s || '').replace(/\s+/g, ' ').trim().toLowerCase();
	const needle = norm(%s);
	if (!needle) return false;
	const visible = el => {
		const r = el.getBoundingClientRect();
		const st = getComputedStyle(el);
		return r.width > 0 && r.height > 0 && st.visibility !== 'hidden' && st.display !== 'none';
	};
	const hits = Array.from(document.querySelectorAll(%s)).filter(el => norm(el.textContent).includes(needle));
	const inner = hits.filter(el => !hits.some(o => o !== el && el.contains(o)));
	const el = inner.find(visible);
	if (!el) return false;
	el.setAttribute(%s, %s);
	return true;
})()`, jsString(text), jsString(tag), jsString(markerAttr), jsString(strconv.FormatInt(id, 10)))
}

// fillScript sets the value through the native setter so framework-bound
// inputs observe the change.
func fillScript(selector, value string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	el.focus();
	const proto = el instanceof HTMLTextAreaElement ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
	Object.getOwnPropertyDescriptor(proto, 'value').set.call(el, %s);
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
})()`, jsString(selector), jsString(value))
}

func scrollByScript(dx, dy int) string {
	return fmt.Sprintf(`(() => { window.scrollBy(%d, %d); return true; })()`, dx, dy)
}
