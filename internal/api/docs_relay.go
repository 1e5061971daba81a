package api

const relayDocsHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Event Stream - chartdeck</title>
  <style>
    *, *::before, *::after { box-sizing: border-box; }

    body {
      margin: 0;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", sans-serif;
      font-size: 14px;
      line-height: 1.65;
      background: #0d1117;
      color: #c9d1d9;
      display: flex;
      flex-direction: column;
      min-height: 100vh;
    }

    a { color: #58a6ff; text-decoration: none; }
    a:hover { text-decoration: underline; }

    /* ── top nav ── */
    nav {
      background: #161b22;
      border-bottom: 1px solid #30363d;
      padding: 0 24px;
      height: 48px;
      display: flex;
      align-items: center;
      gap: 24px;
      flex-shrink: 0;
    }
    nav .brand {
      font-weight: 600;
      font-size: 15px;
      color: #e6edf3;
    }
    nav .sep { color: #484f58; }
    nav .current { color: #e6edf3; font-weight: 500; }
    nav .back { font-size: 13px; }

    /* ── layout ── */
    .layout {
      display: flex;
      flex: 1;
      max-width: 1100px;
      width: 100%;
      margin: 0 auto;
      padding: 0 16px;
    }

    /* ── sidebar ── */
    aside {
      width: 220px;
      flex-shrink: 0;
      padding: 32px 16px 32px 0;
      position: sticky;
      top: 0;
      height: calc(100vh - 48px);
      overflow-y: auto;
    }
    aside h4 {
      margin: 0 0 8px;
      font-size: 11px;
      font-weight: 600;
      text-transform: uppercase;
      letter-spacing: .08em;
      color: #8b949e;
    }
    aside ul {
      list-style: none;
      margin: 0 0 24px;
      padding: 0;
    }
    aside ul li a {
      display: block;
      padding: 4px 8px;
      border-radius: 4px;
      font-size: 13px;
      color: #8b949e;
    }
    aside ul li a:hover {
      background: #21262d;
      color: #c9d1d9;
      text-decoration: none;
    }

    /* ── main content ── */
    main {
      flex: 1;
      padding: 32px 0 64px 32px;
      border-left: 1px solid #21262d;
      min-width: 0;
    }

    h1 {
      margin: 0 0 8px;
      font-size: 28px;
      font-weight: 600;
      color: #e6edf3;
    }
    .subtitle {
      color: #8b949e;
      margin: 0 0 36px;
      font-size: 15px;
    }

    h2 {
      margin: 40px 0 12px;
      font-size: 18px;
      font-weight: 600;
      color: #e6edf3;
      padding-bottom: 8px;
      border-bottom: 1px solid #21262d;
    }
    h3 {
      margin: 28px 0 10px;
      font-size: 15px;
      font-weight: 600;
      color: #e6edf3;
    }

    p { margin: 0 0 12px; }

    /* ── method + path badge ── */
    .endpoint {
      display: inline-flex;
      align-items: center;
      gap: 10px;
      background: #161b22;
      border: 1px solid #30363d;
      border-radius: 6px;
      padding: 10px 16px;
      margin-bottom: 20px;
      font-family: "SFMono-Regular", Consolas, "Liberation Mono", Menlo, monospace;
      font-size: 14px;
    }
    .method {
      background: #1f6feb;
      color: #fff;
      font-weight: 700;
      font-size: 11px;
      padding: 2px 7px;
      border-radius: 4px;
      letter-spacing: .04em;
    }
    .path { color: #e6edf3; }

    /* ── tables ── */
    table {
      width: 100%;
      border-collapse: collapse;
      margin-bottom: 20px;
      font-size: 13px;
    }
    th {
      text-align: left;
      padding: 8px 12px;
      background: #161b22;
      color: #8b949e;
      font-weight: 600;
      border-bottom: 1px solid #30363d;
    }
    td {
      padding: 8px 12px;
      border-bottom: 1px solid #21262d;
      vertical-align: top;
    }
    tr:last-child td { border-bottom: none; }
    code {
      font-family: "SFMono-Regular", Consolas, "Liberation Mono", Menlo, monospace;
      font-size: 12px;
      background: #161b22;
      border: 1px solid #30363d;
      border-radius: 3px;
      padding: 1px 5px;
      color: #e6edf3;
    }

    /* ── code blocks ── */
    pre {
      background: #161b22;
      border: 1px solid #30363d;
      border-radius: 6px;
      padding: 16px;
      overflow-x: auto;
      margin: 0 0 20px;
    }
    pre code {
      background: none;
      border: none;
      padding: 0;
      font-size: 13px;
      line-height: 1.6;
      color: #c9d1d9;
    }

    /* ── callout ── */
    .callout {
      background: #161b22;
      border-left: 3px solid #1f6feb;
      border-radius: 0 6px 6px 0;
      padding: 12px 16px;
      margin-bottom: 20px;
      font-size: 13px;
    }
    .callout.warning { border-color: #d29922; }
    .callout strong { color: #e6edf3; }

    /* ── feed cards ── */
    .feed-card {
      background: #161b22;
      border: 1px solid #30363d;
      border-radius: 8px;
      padding: 16px 20px;
      margin-bottom: 14px;
    }
    .feed-card h3 { margin: 0 0 10px; font-size: 14px; }
    .feed-card code { font-size: 13px; }
    .feed-meta {
      display: flex;
      flex-wrap: wrap;
      gap: 8px;
      margin-bottom: 10px;
      font-size: 12px;
    }
    .feed-meta span { color: #8b949e; }
    .tag {
      background: #21262d;
      border: 1px solid #30363d;
      border-radius: 3px;
      padding: 1px 6px;
      font-family: "SFMono-Regular", Consolas, "Liberation Mono", Menlo, monospace;
      font-size: 11px;
      color: #8b949e;
    }

    /* ── SSE format visualization ── */
    .sse-block {
      background: #161b22;
      border: 1px solid #30363d;
      border-radius: 6px;
      padding: 16px;
      margin-bottom: 20px;
      font-family: "SFMono-Regular", Consolas, "Liberation Mono", Menlo, monospace;
      font-size: 13px;
      line-height: 1.8;
    }
    .sse-key { color: #79c0ff; }
    .sse-value { color: #a5d6ff; }
    .sse-comment { color: #484f58; }
  </style>
</head>
<body>

<nav>
  <span class="brand">chartdeck</span>
  <span class="sep">/</span>
  <span class="current">Event Stream</span>
  <a class="back" href="/docs">&larr; REST API Docs</a>
</nav>

<div class="layout">

  <aside>
    <h4>On this page</h4>
    <ul>
      <li><a href="#overview">Overview</a></li>
      <li><a href="#endpoints">Endpoints</a></li>
      <li><a href="#feeds">Available Feeds</a></li>
      <li><a href="#inbound">Client Messages</a></li>
      <li><a href="#examples">Examples</a></li>
    </ul>
  </aside>

  <main>
    <h1>Event Stream</h1>
    <p class="subtitle">Follow pane mutations and notifications, and drive panes from a browser.</p>

    <h2 id="overview">Overview</h2>
    <p>
      In <code>relay</code> surface mode every pane keeps its chart state in the engine and
      publishes each mutation on the <code>pane</code> feed. A browser client renders the
      panes from that feed and reports user interaction back over the WebSocket, where it
      flows through the same sync groups as interaction in the CDP deck page.
    </p>
    <div class="callout">
      Slow clients have events dropped once their buffer of 256 events is full.
      Re-read pane state with <code>GET /api/v1/panes/{pane_id}</code> after a gap.
    </div>

    <h2 id="endpoints">Endpoints</h2>
    <div class="endpoint">
      <span class="method">GET</span>
      <span class="path">/events</span>
    </div>
    <p>Server-Sent Events. The SSE event name is the feed name.</p>
    <div class="endpoint">
      <span class="method">GET</span>
      <span class="path">/ws</span>
    </div>
    <p>WebSocket. Server messages are <code>{"feed": ..., "payload": {...}}</code>.</p>

    <h3>Query Parameters</h3>
    <table>
      <thead>
        <tr><th>Name</th><th>Type</th><th>Required</th><th>Description</th></tr>
      </thead>
      <tbody>
        <tr>
          <td><code>feeds</code></td>
          <td>string</td>
          <td>No</td>
          <td>Comma-separated feed names. Omit to receive every feed.</td>
        </tr>
      </tbody>
    </table>

    <h2 id="feeds">Available Feeds</h2>

    <div class="feed-card">
      <h3><code>pane</code></h3>
      <div class="feed-meta">
        <span class="tag">set_series</span>
        <span class="tag">remove_series</span>
        <span class="tag">visible_range</span>
        <span class="tag">crosshair</span>
        <span class="tag">clear_crosshair</span>
        <span class="tag">markers</span>
        <span class="tag">resize</span>
        <span class="tag">release</span>
      </div>
      <p>One message per surface call, keyed by <code>pane_id</code> (for example <code>w1/price</code> or <code>perf/balance</code>).</p>
    </div>

    <div class="feed-card">
      <h3><code>notifications</code></h3>
      <div class="feed-meta">
        <span class="tag">show</span>
        <span class="tag">dismiss</span>
      </div>
      <p>Toasts. Each notification is dismissed automatically after its TTL.</p>
    </div>

    <div class="sse-block">
      <span class="sse-key">event:</span> <span class="sse-value">pane</span><br>
      <span class="sse-key">data:</span> <span class="sse-value">{"pane_id":"w1/price","op":"visible_range","range":{"from":1704067200,"to":1706745600}}</span><br>
      <br>
      <span class="sse-key">event:</span> <span class="sse-value">notifications</span><br>
      <span class="sse-key">data:</span> <span class="sse-value">{"op":"show","id":"...","level":"error","message":"no data for 600000"}</span>
    </div>

    <h2 id="inbound">Client Messages</h2>
    <p>Text frames sent on <code>/ws</code>. Failures are answered on the <code>error</code> feed.</p>
    <table>
      <thead>
        <tr><th>type</th><th>Fields</th><th>Effect</th></tr>
      </thead>
      <tbody>
        <tr><td><code>range</code></td><td><code>pane</code>, <code>range</code></td><td>User scrolled or zoomed. <code>null</code> range means no valid range.</td></tr>
        <tr><td><code>crosshair</code></td><td><code>pane</code>, <code>time</code></td><td>User moved the cursor. <code>null</code> time means the cursor left.</td></tr>
        <tr><td><code>layout</code></td><td><code>layout</code></td><td>Apply a layout such as <code>2x2</code>.</td></tr>
        <tr><td><code>viewport</code></td><td><code>width</code>, <code>height</code></td><td>Browser window resized.</td></tr>
      </tbody>
    </table>

    <h2 id="examples">Examples</h2>

    <h3>Browser, EventSource</h3>
    <pre><code>const es = new EventSource("/events?feeds=pane");
es.addEventListener("pane", (e) =&gt; render(JSON.parse(e.data)));</code></pre>

    <h3>Browser, WebSocket</h3>
    <pre><code>const ws = new WebSocket("ws://" + location.host + "/ws");
ws.send(JSON.stringify({type: "range", pane: "w1/price", range: {from: 1704067200, to: 1706745600}}));</code></pre>

    <h3>curl</h3>
    <pre><code>curl -N http://127.0.0.1:8190/events?feeds=notifications</code></pre>
  </main>
</div>

</body>
</html>`
