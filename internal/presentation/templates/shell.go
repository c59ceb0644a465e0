package templates

import (
	"html/template"
	"io"

	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
)

// ShellData parameterises the render surface page
type ShellData struct {
	SessionID string
	Token     string
	Viewport  canvas.Breakpoint
	// SocketPath is the websocket path relative to the page origin
	SocketPath string
}

var surfaceShell = template.Must(template.New("surfaceShell").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Render surface</title>
<style>
html, body { margin: 0; min-height: 100%; }
[data-element-id] { box-sizing: border-box; }
.pb-hover { outline: 1px dashed #1f6feb; }
.pb-selected { outline: 2px solid #1f6feb; outline-offset: -2px; }
.pb-drop-before { box-shadow: 0 -3px 0 #1f6feb; }
.pb-drop-after { box-shadow: 0 3px 0 #1f6feb; }
.pb-drop-inside { background-color: rgba(31, 111, 235, 0.08); }
</style>
</head>
<body data-session-id="{{.SessionID}}" data-viewport="{{.Viewport}}">
<div id="pb-mount"></div>
<script>
(function () {
  const sessionId = {{.SessionID}};
  const token = {{.Token}};
  const socketPath = {{.SocketPath}};
  const voidTags = new Set(["img", "input", "br", "hr", "meta", "link", "source"]);
  const mount = document.getElementById("pb-mount");
  let socket = null;
  let elements = {};
  let selectedId = null;
  let hoveredId = null;
  let draggingId = null;
  let dropMark = null;
  let rootId = null;

  function send(type, payload) {
    if (socket && socket.readyState === WebSocket.OPEN) {
      socket.send(JSON.stringify(payload === undefined ? { type: type } : { type: type, payload: payload }));
    }
  }

  function reportError(message, elementId) {
    send("RENDER_ERROR", { message: String(message), elementId: elementId || null });
  }

  function idOf(node) {
    const hit = node && node.closest ? node.closest("[data-element-id]") : null;
    return hit ? hit.getAttribute("data-element-id") : null;
  }

  function nodeFor(id) {
    return id ? mount.querySelector('[data-element-id="' + CSS.escape(id) + '"]') : null;
  }

  function build(id) {
    const el = elements[id];
    if (!el) return null;
    let node;
    try {
      node = document.createElement(el.tag || "div");
    } catch (err) {
      node = document.createElement("div");
    }
    node.setAttribute("data-element-id", el.id);
    const attrs = el.attributes || {};
    Object.keys(attrs).forEach(function (k) {
      if (k.toLowerCase().indexOf("on") === 0) return;
      try { node.setAttribute(k, attrs[k]); } catch (err) {}
    });
    if (el.classList && el.classList.length) node.className = el.classList.join(" ");
    const style = el.computedStyle || {};
    Object.keys(style).forEach(function (k) { node.style[k] = style[k]; });
    node.draggable = id !== rootId;
    if (!voidTags.has(node.tagName.toLowerCase())) {
      if (el.innerHTML) node.innerHTML = el.innerHTML;
      else if (el.textContent) node.textContent = el.textContent;
      (el.children || []).forEach(function (c) {
        const child = build(c);
        if (child) node.appendChild(child);
      });
    }
    return node;
  }

  function render(payload) {
    elements = payload.elements || {};
    rootId = payload.rootId;
    const tree = build(payload.rootId);
    mount.replaceChildren();
    if (tree) mount.appendChild(tree);
    mark(selectedId, "pb-selected");
    mark(hoveredId, "pb-hover");
  }

  function mark(id, cls) {
    mount.querySelectorAll("." + cls).forEach(function (n) { n.classList.remove(cls); });
    const node = nodeFor(id);
    if (node) node.classList.add(cls);
  }

  function clearDrop() {
    if (dropMark) dropMark.node.classList.remove("pb-drop-" + dropMark.position);
    dropMark = null;
  }

  const handlers = {
    RENDER_ELEMENTS: render,
    UPDATE_SELECTION: function (p) { selectedId = p.selectedElementId; mark(selectedId, "pb-selected"); },
    UPDATE_HOVER: function (p) { hoveredId = p.hoveredElementId; mark(hoveredId, "pb-hover"); },
    UPDATE_VIEWPORT: function (p) { document.body.setAttribute("data-viewport", p.viewport); }
  };

  function connect() {
    const scheme = location.protocol === "https:" ? "wss://" : "ws://";
    socket = new WebSocket(scheme + location.host + socketPath + "?token=" + encodeURIComponent(token));
    socket.onopen = function () { send("IFRAME_READY"); };
    socket.onmessage = function (event) {
      let msg;
      try { msg = JSON.parse(event.data); } catch (err) { return; }
      const handle = handlers[msg.type];
      if (!handle) return;
      try { handle(msg.payload || {}); } catch (err) { reportError(err && err.message ? err.message : err); }
    };
    socket.onclose = function () { setTimeout(connect, 1000); };
  }

  mount.addEventListener("click", function (e) {
    e.preventDefault();
    send("CLICK_ELEMENT", { elementId: idOf(e.target) });
  });
  mount.addEventListener("dblclick", function (e) {
    const id = idOf(e.target);
    if (!id) return;
    send("DOUBLE_CLICK_ELEMENT", { elementId: id });
    const node = nodeFor(id);
    if (!node || voidTags.has(node.tagName.toLowerCase())) return;
    node.contentEditable = "true";
    node.focus();
    node.addEventListener("blur", function done() {
      node.removeEventListener("blur", done);
      node.contentEditable = "false";
      send("UPDATE_TEXT_CONTENT", { elementId: id, textContent: node.textContent });
    });
  });
  mount.addEventListener("mouseover", function (e) { send("HOVER_ELEMENT", { elementId: idOf(e.target) }); });
  mount.addEventListener("mouseleave", function () { send("HOVER_ELEMENT", { elementId: null }); });
  mount.addEventListener("dragstart", function (e) {
    draggingId = idOf(e.target);
    if (!draggingId) return;
    e.dataTransfer.effectAllowed = "move";
    send("DRAG_START", { elementId: draggingId });
  });
  mount.addEventListener("dragover", function (e) {
    const id = idOf(e.target);
    if (!id) return;
    e.preventDefault();
    const node = nodeFor(id);
    const rect = node.getBoundingClientRect();
    const offsetY = e.clientY - rect.top;
    const edge = rect.height / 4;
    const position = offsetY < edge ? "before" : offsetY > rect.height - edge ? "after" : "inside";
    if (!dropMark || dropMark.node !== node || dropMark.position !== position) {
      clearDrop();
      dropMark = { node: node, position: position };
      node.classList.add("pb-drop-" + position);
      send("UPDATE_DRAG_TARGET", { targetId: id, position: position, pointer: { offsetY: offsetY, height: rect.height } });
    }
  });
  mount.addEventListener("dragleave", function (e) {
    if (!draggingId || (e.relatedTarget && mount.contains(e.relatedTarget))) return;
    clearDrop();
    send("UPDATE_DRAG_TARGET", { targetId: null });
  });
  mount.addEventListener("drop", function (e) {
    e.preventDefault();
    const raw = e.dataTransfer.getData("application/x-pagebuilder-template");
    const target = dropMark ? { targetId: idOf(dropMark.node), dropPosition: dropMark.position } : null;
    clearDrop();
    if (raw && target) {
      try { send("DROP_TEMPLATE_ELEMENT", { template: JSON.parse(raw), position: target }); } catch (err) { reportError(err.message); }
      return;
    }
    if (draggingId) send("DRAG_END");
    draggingId = null;
  });
  mount.addEventListener("dragend", function (e) {
    clearDrop();
    if (draggingId) {
      // cancelled with Esc or released outside any target
      if (e.dataTransfer.dropEffect === "none") send("UPDATE_DRAG_TARGET", { targetId: null });
      send("DRAG_END");
    }
    draggingId = null;
  });
  window.addEventListener("error", function (e) { reportError(e.message); });

  document.body.setAttribute("data-session", sessionId);
  connect();
})();
</script>
</body>
</html>
`))

// RenderSurfaceShell writes the render surface page
func RenderSurfaceShell(w io.Writer, data ShellData) error {
	if data.Viewport == "" {
		data.Viewport = canvas.BreakpointDesktop
	}
	return surfaceShell.Execute(w, data)
}
