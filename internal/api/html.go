package api

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Porthole</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: 'Inter', -apple-system, system-ui, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; display: flex; flex-direction: column; }
        .header { background: linear-gradient(135deg, #1e293b, #334155); padding: 1.25rem 2rem; border-bottom: 1px solid #475569; display: flex; justify-content: space-between; align-items: center; }
        .header h1 { font-size: 1.5rem; background: linear-gradient(135deg, #38bdf8, #818cf8); background-clip: text; -webkit-background-clip: text; -webkit-text-fill-color: transparent; }
        .header .status { padding: 0.5rem 1rem; border-radius: 9999px; font-size: 0.875rem; font-weight: 600; }
        .status.idle { background: #334155; color: #94a3b8; }
        .status.fetching { background: #854d0e; color: #fde047; }
        .status.done { background: #166534; color: #4ade80; }
        .status.failed { background: #991b1b; color: #fca5a5; }
        .controls { display: flex; gap: 0.75rem; padding: 1.5rem 2rem 0.5rem; align-items: center; flex-wrap: wrap; }
        .controls input[type=url] { flex: 1; min-width: 280px; padding: 0.75rem 1rem; border-radius: 8px; border: 1px solid #334155; background: #1e293b; color: #f1f5f9; font-size: 1rem; }
        .controls input[type=url]:focus { outline: none; border-color: #38bdf8; }
        .controls button { padding: 0.75rem 1.5rem; border-radius: 8px; border: none; font-size: 1rem; font-weight: 600; cursor: pointer; }
        .controls button:disabled { opacity: 0.5; cursor: not-allowed; }
        #fetchBtn { background: linear-gradient(135deg, #38bdf8, #818cf8); color: #0f172a; }
        #exportBtn { background: #1e293b; color: #e2e8f0; border: 1px solid #475569; }
        .controls label { font-size: 0.875rem; color: #94a3b8; display: flex; gap: 0.4rem; align-items: center; }
        .banner { display: none; margin: 0.5rem 2rem; padding: 0.75rem 1rem; border-radius: 8px; background: #991b1b; color: #fecaca; font-size: 0.9rem; }
        .relays { display: flex; gap: 0.5rem; padding: 0.5rem 2rem; flex-wrap: wrap; }
        .relay { display: flex; gap: 0.4rem; align-items: center; padding: 0.3rem 0.8rem; border-radius: 9999px; background: #1e293b; border: 1px solid #334155; font-size: 0.8rem; color: #94a3b8; }
        .relay .dot { width: 8px; height: 8px; border-radius: 50%; background: #64748b; }
        .relay .dot.up { background: #4ade80; }
        .relay .dot.down { background: #f87171; }
        .summary { display: none; gap: 1rem; padding: 0.5rem 2rem; flex-wrap: wrap; font-size: 0.85rem; color: #94a3b8; }
        .summary span b { color: #f1f5f9; }
        .frame-wrap { flex: 1; margin: 1rem 2rem 2rem; border: 1px solid #334155; border-radius: 12px; overflow: hidden; background: #fff; min-height: 420px; }
        iframe { width: 100%; height: 100%; min-height: 420px; border: none; }
        .footer { text-align: center; padding: 0.75rem; color: #475569; font-size: 0.75rem; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Porthole</h1>
        <span class="status idle" id="status">Idle</span>
    </div>
    <div class="controls">
        <input type="url" id="target" placeholder="https://example.com" spellcheck="false">
        <button id="fetchBtn">Fetch</button>
        <button id="exportBtn" disabled>Download HTML</button>
        <label><input type="checkbox" id="sanitize"> sanitize</label>
    </div>
    <div class="banner" id="banner"></div>
    <div class="relays" id="relays"></div>
    <div class="summary" id="summary"></div>
    <div class="frame-wrap">
        <iframe id="preview" sandbox title="page preview"></iframe>
    </div>
    <div class="footer">Porthole · pages render in a sandboxed frame, scripts stay off</div>
    <script>
        var lastHTML = '';
        var statusEl = document.getElementById('status');
        var banner = document.getElementById('banner');
        var fetchBtn = document.getElementById('fetchBtn');
        var exportBtn = document.getElementById('exportBtn');

        function setStatus(cls, text) {
            statusEl.className = 'status ' + cls;
            statusEl.textContent = text;
        }

        function showError(msg) {
            banner.textContent = msg;
            banner.style.display = 'block';
        }

        async function fetchPage() {
            var url = document.getElementById('target').value.trim();
            if (!url) return;

            fetchBtn.disabled = true;
            exportBtn.disabled = true;
            banner.style.display = 'none';
            document.getElementById('summary').style.display = 'none';
            setStatus('fetching', 'Fetching…');

            try {
                var r = await fetch('/api/fetch', {
                    method: 'POST',
                    headers: {'Content-Type': 'application/json'},
                    body: JSON.stringify({url: url, sanitize: document.getElementById('sanitize').checked})
                });
                var d = await r.json();
                if (!d.ok) {
                    setStatus('failed', 'Failed');
                    showError(d.error || 'fetch failed');
                    return;
                }
                lastHTML = d.html;
                document.getElementById('preview').srcdoc = d.html;
                exportBtn.disabled = false;
                setStatus('done', d.relay ? 'via ' + d.relay : 'Done');
                renderSummary(d);
            } catch (e) {
                setStatus('failed', 'Failed');
                showError('request failed: ' + e);
            } finally {
                fetchBtn.disabled = false;
                refreshRelays();
            }
        }

        function renderSummary(d) {
            var el = document.getElementById('summary');
            var parts = [];
            if (d.summary) {
                if (d.summary.title) parts.push('<span>title <b>' + escapeHTML(d.summary.title) + '</b></span>');
                parts.push('<span>links <b>' + d.summary.links + '</b></span>');
                parts.push('<span>images <b>' + d.summary.images + '</b></span>');
                parts.push('<span>scripts <b>' + d.summary.scripts + '</b></span>');
            }
            parts.push('<span>bytes <b>' + (d.html ? d.html.length : 0).toLocaleString() + '</b></span>');
            if (d.elapsedMs) parts.push('<span>took <b>' + d.elapsedMs + ' ms</b></span>');
            el.innerHTML = parts.join('');
            el.style.display = 'flex';
        }

        function escapeHTML(s) {
            var div = document.createElement('div');
            div.textContent = s;
            return div.innerHTML;
        }

        async function exportPage() {
            if (!lastHTML) return;
            try {
                var r = await fetch('/api/export', {
                    method: 'POST',
                    headers: {'Content-Type': 'application/json'},
                    body: JSON.stringify({html: lastHTML})
                });
                var blob = await r.blob();
                var name = 'page.html';
                var cd = r.headers.get('Content-Disposition') || '';
                var m = cd.match(/filename="?([^"]+)"?/);
                if (m) name = m[1];
                var a = document.createElement('a');
                a.href = URL.createObjectURL(blob);
                a.download = name;
                a.click();
                URL.revokeObjectURL(a.href);
            } catch (e) {
                showError('export failed: ' + e);
            }
        }

        async function refreshRelays() {
            try {
                var r = await fetch('/api/relays');
                var d = await r.json();
                var el = document.getElementById('relays');
                el.innerHTML = (d.relays || []).map(function(rel) {
                    var dot = rel.attempts > 0 ? (rel.healthy ? 'up' : 'down') : '';
                    var latency = rel.latency_ms ? ' ' + rel.latency_ms + 'ms' : '';
                    return '<span class="relay"><span class="dot ' + dot + '"></span>' + escapeHTML(rel.name) + latency + '</span>';
                }).join('');
            } catch (e) {}
        }

        fetchBtn.addEventListener('click', fetchPage);
        exportBtn.addEventListener('click', exportPage);
        document.getElementById('target').addEventListener('keydown', function(e) {
            if (e.key === 'Enter') fetchPage();
        });
        refreshRelays();
    </script>
</body>
</html>`
