package browser

// JS script to highlight clicked elements
const HighlightClickScript = `(e) => e.style.border = "3px solid #00FF00"`

// JS script to highlight filled elements
const HighlightTypeScript = `(e) => e.style.border = "3px solid blue"`

const ScrollDownScript = `() => { window.scrollBy(0, window.innerHeight * 0.7); return true; }`

const ScrollUpScript = `() => { window.scrollBy(0, -window.innerHeight * 0.7); return true; }`

// ObserveElementsScript collects visible interactive elements together
// with their absolute XPaths. XPaths use 1-based positional predicates
// so they match back against a parsed snapshot of the same document.
const ObserveElementsScript = `function() {
    const MAX_ITEMS = 600;

    function absoluteXPath(el) {
        const parts = [];
        let node = el;
        while (node && node.nodeType === Node.ELEMENT_NODE) {
            const tag = node.tagName.toLowerCase();
            let index = 1;
            let sibling = node.previousElementSibling;
            while (sibling) {
                if (sibling.tagName === node.tagName) index++;
                sibling = sibling.previousElementSibling;
            }
            let count = index;
            sibling = node.nextElementSibling;
            while (sibling) {
                if (sibling.tagName === node.tagName) count++;
                sibling = sibling.nextElementSibling;
            }
            parts.unshift(count > 1 || index > 1 ? tag + "[" + index + "]" : tag);
            node = node.parentElement;
        }
        return "/" + parts.join("/");
    }

    function isVisible(el) {
        const rect = el.getBoundingClientRect();
        if (rect.width < 1 || rect.height < 1) return false;
        const style = window.getComputedStyle(el);
        return style.visibility !== 'hidden' && style.display !== 'none' && style.opacity !== '0';
    }

    function label(el, fallback) {
        let t = el.innerText || el.getAttribute('aria-label') ||
            el.getAttribute('placeholder') || el.getAttribute('title') ||
            el.getAttribute('alt') || el.value || "";
        t = String(t).replace(/[\n\r]+/g, " ").trim().substring(0, 50);
        return t || fallback;
    }

    const items = [];
    let idCounter = 1;
    const seen = new Set();

    function hasSeenAncestor(el) {
        let parent = el.parentElement;
        while (parent && parent !== document.body) {
            if (seen.has(parent)) return true;
            parent = parent.parentElement;
        }
        return false;
    }

    const all = document.body.querySelectorAll('*');

    for (const el of all) {
        if (items.length >= MAX_ITEMS) break;
        if (seen.has(el)) continue;
        if (!isVisible(el)) continue;

        const tagName = el.tagName.toLowerCase();
        const role = el.getAttribute('role');
        const style = window.getComputedStyle(el);
        const isClickableStyle = style.cursor === 'pointer';
        const isContentEditable = el.getAttribute('contenteditable') === 'true' || el.isContentEditable;

        let tag = "";
        let text = "";

        if (tagName === 'input' || tagName === 'textarea') {
            if (el.type === 'checkbox' || el.type === 'radio') {
                const state = el.checked ? ' (V)' : ' ( )';
                tag = 'checkbox';
                text = label(el, "Checkbox") + state;
            } else if (el.type === 'submit' || el.type === 'button') {
                tag = 'button';
                text = label(el, "Button");
            } else {
                tag = 'input';
                text = label(el, "Text Field");
            }
        } else if (isContentEditable || role === 'textbox') {
            if (hasSeenAncestor(el)) continue;
            tag = 'input';
            text = label(el, "Text Input");
        } else if (tagName === 'a') {
            const href = el.getAttribute('href');
            if (!href && !el.getAttribute('onclick') && !role && !isClickableStyle) continue;
            tag = 'link';
            text = label(el, "Link");
        } else if (tagName === 'button' || role === 'button') {
            tag = 'button';
            text = label(el, "Button");
        } else if (tagName === 'select') {
            tag = 'select';
            text = label(el, "Dropdown");
        } else if ((tagName === 'div' || tagName === 'span' || tagName === 'li' ||
                    tagName === 'img' || tagName === 'svg') && isClickableStyle) {
            const rect = el.getBoundingClientRect();
            if (rect.width > 500 && rect.height > 500) continue;
            if (hasSeenAncestor(el)) continue;
            tag = 'clickable';
            text = label(el, "Item");
        } else {
            continue;
        }

        seen.add(el);
        items.push({ id: idCounter++, xpath: absoluteXPath(el), tag: tag, text: text });
    }

    return JSON.stringify(items);
}`
