// internal/agent/probe/script.go
package probe

// snapshotJS extracts raw element facts from the live page in one evaluate
// round trip. Every candidate element gets a stable data-pa-ref attribute so
// process-side decisions can address it by selector afterwards. The script
// is synchronous and must never throw: the whole body is wrapped so a DOM in
// any state yields a usable (possibly partial) snapshot.
const snapshotJS = `
(() => {
    const MAX_TEXT = 20000;
    const REF_ATTR = 'data-pa-ref';

    const tag = (el) => {
        try {
            if (!el.hasAttribute(REF_ATTR)) {
                window.__paRefSeq = (window.__paRefSeq || 0) + 1;
                el.setAttribute(REF_ATTR, 'pa-' + window.__paRefSeq);
            }
            return el.getAttribute(REF_ATTR);
        } catch (e) { return ''; }
    };
    const style = (el) => window.getComputedStyle(el);
    const visible = (el) => {
        try {
            const r = el.getBoundingClientRect();
            if (r.width <= 0 || r.height <= 0) return false;
            const s = style(el);
            return s.display !== 'none' && s.visibility !== 'hidden' &&
                parseFloat(s.opacity || '1') > 0.01;
        } catch (e) { return false; }
    };
    const zIndexOf = (el) => {
        const z = parseInt(style(el).zIndex, 10);
        return isNaN(z) ? 0 : z;
    };
    const textOf = (el) => {
        let t = el.tagName === 'INPUT' ? (el.value || '') :
            (el.innerText || el.textContent || '');
        return t.replace(/\s+/g, ' ').trim();
    };
    const classOf = (el) =>
        (typeof el.className === 'string' ? el.className : '');

    const POPUPISH = ['modal', 'popup', 'overlay', 'notice', 'banner',
        'alert', 'notification', 'callout', 'announcement'];
    const inPopupContainer = (el) => {
        let n = el;
        while (n && n !== document.body) {
            if (n.getAttribute && n.getAttribute('role') === 'dialog') return true;
            const cls = classOf(n).toLowerCase();
            if (POPUPISH.some(k => cls.includes(k))) return true;
            n = n.parentElement;
        }
        return false;
    };

    const out = {
        url: location.href,
        title: document.title || '',
        viewportWidth: window.innerWidth,
        viewportHeight: window.innerHeight,
        bodyText: '',
        inputs: [],
        buttons: [],
        closeCandidates: [],
        overlays: [],
    };

    try {
        out.bodyText = ((document.body && document.body.innerText) || '')
            .slice(0, MAX_TEXT);
    } catch (e) {}

    try {
        document.querySelectorAll('input, textarea').forEach(el => {
            if (out.inputs.length >= 50) return;
            out.inputs.push({
                ref: tag(el),
                type: (el.getAttribute('type') || 'text').toLowerCase(),
                name: el.getAttribute('name') || '',
                id: el.id || '',
                placeholder: el.getAttribute('placeholder') || '',
                visible: visible(el),
                hasValue: !!(el.value && el.value.length > 0),
            });
        });
    } catch (e) {}

    try {
        document.querySelectorAll(
            'button, a, [role="button"], input[type="submit"], input[type="button"]'
        ).forEach(el => {
            if (out.buttons.length >= 80) return;
            const r = el.getBoundingClientRect();
            out.buttons.push({
                ref: tag(el),
                tag: el.tagName.toLowerCase(),
                text: textOf(el).slice(0, 80),
                visible: visible(el),
                width: r.width,
                height: r.height,
                inPopup: inPopupContainer(el),
            });
        });
    } catch (e) {}

    try {
        document.querySelectorAll(
            '[data-dismiss], [data-close], [aria-label], button, [role="button"], a'
        ).forEach(el => {
            if (out.closeCandidates.length >= 30) return;
            const aria = (el.getAttribute('aria-label') || '').toLowerCase();
            const cls = classOf(el).toLowerCase();
            const hit = el.hasAttribute('data-dismiss') ||
                el.hasAttribute('data-close') ||
                aria.includes('close') || aria.includes('dismiss') ||
                cls.includes('close') || cls.includes('dismiss');
            if (!hit) return;
            const r = el.getBoundingClientRect();
            out.closeCandidates.push({
                ref: tag(el),
                text: textOf(el).slice(0, 30),
                visible: visible(el),
                width: r.width,
                height: r.height,
            });
        });
    } catch (e) {}

    const hasCloseChild = (el) =>
        !!el.querySelector('button, [data-dismiss], [data-close], a[role="button"]');
    const interactiveChildren = (el) => {
        const kids = [];
        el.querySelectorAll(
            'button, a, [role="button"], input[type="submit"], input[type="button"]'
        ).forEach(c => {
            if (kids.length >= 10 || !visible(c)) return;
            kids.push({ ref: tag(c), text: textOf(c).slice(0, 40) });
        });
        return kids;
    };
    const hasFormInputs = (el) => !!el.querySelector(
        'input:not([type="hidden"]):not([type="submit"]):not([type="button"]), textarea, select'
    );

    try {
        const seen = new Set();
        const consider = (el) => {
            if (!el || seen.has(el) || out.overlays.length >= 40 ||
                el === document.body || el === document.documentElement) return;
            seen.add(el);
            const s = style(el);
            const r = el.getBoundingClientRect();
            out.overlays.push({
                ref: tag(el),
                tag: el.tagName.toLowerCase(),
                class: classOf(el).slice(0, 120),
                role: el.getAttribute('role') || '',
                position: s.position,
                zIndex: zIndexOf(el),
                width: r.width,
                height: r.height,
                visible: visible(el),
                hasCloseChild: hasCloseChild(el),
                children: interactiveChildren(el),
                hasFormInputs: hasFormInputs(el),
            });
        };
        document.querySelectorAll('[role="dialog"]').forEach(consider);
        document.querySelectorAll('div, section, aside').forEach(el => {
            const p = style(el).position;
            if (p === 'fixed' || p === 'absolute') consider(el);
        });
        document.querySelectorAll(
            '[class*="modal" i], [class*="dialog" i], [class*="popup" i]'
        ).forEach(consider);
    } catch (e) {}

    return out;
})()
`
