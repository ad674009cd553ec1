package auth

const pageCSS = `
        :root {
            --bg: #101418;
            --panel: #1a2028;
            --text: #e8edf2;
            --muted: #8a96a3;
            --accent: #e8582d;
            --ok: #3fb950;
            --err: #f85149;
        }
        * { box-sizing: border-box; }
        body {
            margin: 0;
            min-height: 100vh;
            display: flex;
            align-items: center;
            justify-content: center;
            background: var(--bg);
            color: var(--text);
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif;
        }
        .card {
            width: 100%;
            max-width: 28rem;
            padding: 2rem;
            border-radius: 0.75rem;
            background: var(--panel);
        }
        h1 { margin: 0 0 0.25rem; font-size: 1.375rem; }
        p.sub { margin: 0 0 1.5rem; color: var(--muted); font-size: 0.875rem; }
        label { display: block; margin: 1rem 0 0.375rem; font-size: 0.8125rem; color: var(--muted); }
        input, textarea {
            width: 100%;
            padding: 0.625rem 0.75rem;
            border: 1px solid #2c3540;
            border-radius: 0.375rem;
            background: var(--bg);
            color: var(--text);
            font: inherit;
        }
        .hint { margin-top: 0.25rem; font-size: 0.75rem; color: var(--muted); }
        .actions { display: flex; gap: 0.75rem; margin-top: 1.5rem; }
        button {
            flex: 1;
            padding: 0.625rem;
            border: 0;
            border-radius: 0.375rem;
            background: var(--accent);
            color: #fff;
            font: inherit;
            cursor: pointer;
        }
        button.secondary { background: #2c3540; }
        #status { margin-top: 1rem; min-height: 1.25rem; font-size: 0.875rem; }
        #status.ok { color: var(--ok); }
        #status.err { color: var(--err); }
        code { color: var(--accent); }
`

const setupTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>imbo - Setup</title>
    <style>` + pageCSS + `</style>
</head>
<body>
<div class="card">
    <h1>Connect to Imbo</h1>
    <p class="sub">Credentials are saved to your keychain as profile <code>{{.Profile}}</code>.</p>
    <form id="setup" autocomplete="off">
        <label for="hosts">Hosts</label>
        <textarea id="hosts" rows="2" placeholder="https://imbo.example.com" required></textarea>
        <div class="hint">One URL per line. Image requests are spread across all hosts.</div>

        <label for="user">User</label>
        <input id="user" required>

        <label for="public_key">Public key</label>
        <input id="public_key" placeholder="defaults to the user">

        <label for="private_key">Private key</label>
        <input id="private_key" type="password" required>

        <div class="actions">
            <button type="button" class="secondary" id="test">Test connection</button>
            <button type="submit">Save</button>
        </div>
        <div id="status"></div>
    </form>
</div>
<script>
    const csrfToken = "{{.CSRFToken}}";
    const status = document.getElementById("status");

    function payload() {
        return {
            hosts: document.getElementById("hosts").value.split(/\s+/).filter(Boolean),
            user: document.getElementById("user").value,
            public_key: document.getElementById("public_key").value,
            private_key: document.getElementById("private_key").value
        };
    }

    async function post(path) {
        const res = await fetch(path, {
            method: "POST",
            headers: {"Content-Type": "application/json", "X-CSRF-Token": csrfToken},
            body: JSON.stringify(payload())
        });
        return res.json();
    }

    function show(ok, text) {
        status.className = ok ? "ok" : "err";
        status.textContent = text;
    }

    document.getElementById("test").addEventListener("click", async () => {
        show(true, "Testing...");
        const data = await post("/validate");
        show(data.success, data.success ? data.user + " has " + data.num_images + " images" : data.error);
    });

    document.getElementById("setup").addEventListener("submit", async (e) => {
        e.preventDefault();
        show(true, "Saving...");
        const data = await post("/submit");
        if (!data.success) {
            show(false, data.error);
            return;
        }
        window.location = "/success?user=" + encodeURIComponent(data.user);
    });
</script>
</body>
</html>`

const successTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>imbo - Connected</title>
    <style>` + pageCSS + `</style>
</head>
<body>
<div class="card">
    <h1>Connected</h1>
    <p class="sub">Saved {{if .User}}<code>{{.User}}</code> {{end}}as profile <code>{{.Profile}}</code>. You can close this tab.</p>
    <p>Try <code>imbo images list</code> in your terminal.</p>
</div>
<script>
    fetch("/complete", {method: "POST"});
</script>
</body>
</html>`
