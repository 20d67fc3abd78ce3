package server

// indexHTML is the embedded explorer page. It fetches /api/tree and
// /api/summary and renders the hierarchy with native <details> elements, so
// the page needs no external assets.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>tensorview</title>
<style>
  body { font-family: ui-monospace, SFMono-Regular, Menlo, monospace; margin: 2rem; background: #1e1e22; color: #d4d4d8; }
  h1 { font-size: 1.2rem; }
  #summary { margin-bottom: 1rem; color: #a1a1aa; }
  #search { width: 24rem; padding: 0.3rem 0.5rem; background: #27272c; color: inherit; border: 1px solid #3f3f46; border-radius: 4px; }
  details { margin-left: 1.2rem; }
  details > summary { cursor: pointer; color: #93c5fd; }
  .leaf { margin-left: 2.4rem; }
  .tensor { color: #d4d4d8; }
  .meta { color: #86efac; }
  .dim { color: #71717a; }
</style>
</head>
<body>
<h1>tensorview</h1>
<div id="summary"></div>
<input id="search" type="search" placeholder="Filter tensor names..." autocomplete="off">
<div id="tree"></div>
<script>
function label(n) {
  if (n.kind === "group") return n.name + " (" + (n.tensor_count || 0) + " tensors)";
  if (n.kind === "tensor") return n.name + " [" + n.tensor.dtype + ", (" + (n.tensor.shape || []).join(", ") + ")]";
  return n.name + ": " + n.metadata.value;
}

function renderNode(n) {
  if (n.kind === "group") {
    const d = document.createElement("details");
    d.open = !!n.expanded;
    const s = document.createElement("summary");
    s.textContent = label(n);
    d.appendChild(s);
    for (const c of n.children || []) d.appendChild(renderNode(c));
    return d;
  }
  const div = document.createElement("div");
  div.className = "leaf " + (n.kind === "tensor" ? "tensor" : "meta");
  div.textContent = label(n);
  return div;
}

async function refresh(q) {
  const res = await fetch("/api/tree?q=" + encodeURIComponent(q || ""));
  const body = await res.json();
  const root = document.getElementById("tree");
  root.replaceChildren();
  for (const n of body.roots) root.appendChild(renderNode(n));
}

async function loadSummary() {
  const res = await fetch("/api/summary");
  const s = await res.json();
  document.getElementById("summary").textContent =
    s.files + " file(s), " + s.tensors + " tensors, " +
    s.parameters_human + " parameters, " + s.size_human;
}

let timer;
document.getElementById("search").addEventListener("input", (e) => {
  clearTimeout(timer);
  timer = setTimeout(() => refresh(e.target.value), 150);
});

loadSummary();
refresh("");
</script>
</body>
</html>
`
