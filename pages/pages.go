// Package pages holds the static HTML served by the local host.
package pages

// Player hosts the YouTube iframe player and bridges it to /player/ws.
var Player = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>songbird player</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            background: #111;
            color: #eee;
            margin: 0;
            padding: 20px;
        }
        #scrub {
            width: 640px;
        }
        #status {
            font-size: 12px;
            opacity: 0.6;
        }
    </style>
</head>
<body>
    <div id="player"></div>
    <input id="scrub" type="range" min="0" max="0" step="0.1" value="0">
    <p id="status">connecting</p>
    <script src="https://www.youtube.com/iframe_api"></script>
    <script id="bridge">
        var player;
        var ws;
        var statusEl = document.getElementById("status");

        function send(msg) {
            if (!ws || ws.readyState !== WebSocket.OPEN) return;
            if (player && player.getCurrentTime) {
                msg.currentTime = player.getCurrentTime() || 0;
                msg.duration = player.getDuration() || 0;
            }
            ws.send(JSON.stringify(msg));
        }

        function connect() {
            var proto = location.protocol === "https:" ? "wss://" : "ws://";
            ws = new WebSocket(proto + location.host + "/player/ws");
            ws.onopen = function () { statusEl.textContent = "connected"; if (player) send({event: "ready"}); };
            ws.onclose = function () { statusEl.textContent = "disconnected"; setTimeout(connect, 2000); };
            ws.onmessage = function (e) {
                var cmd = JSON.parse(e.data);
                if (!player) return;
                switch (cmd.cmd) {
                case "load": player.loadVideoById(cmd.mediaId); break;
                case "play": player.playVideo(); break;
                case "pause": player.pauseVideo(); break;
                case "seek": player.seekTo(cmd.seconds, true); break;
                case "volume": player.setVolume(cmd.percent); break;
                }
            };
        }

        function onYouTubeIframeAPIReady() {
            player = new YT.Player("player", {
                height: "360",
                width: "640",
                playerVars: {playsinline: 1, controls: 0},
                events: {
                    onReady: function () { send({event: "ready"}); },
                    onStateChange: function (e) { send({event: "state_changed", state: e.data}); },
                    onError: function (e) { send({event: "error", code: e.data}); }
                }
            });
            setInterval(function () { send({event: "progress"}); }, 1000);
        }

        var scrubEl = document.getElementById("scrub");
        var dragging = false;

        function post(path, body) {
            return fetch(path, {
                method: "POST",
                headers: {"Content-Type": "application/json"},
                body: JSON.stringify(body)
            }).then(function (r) { return r.json(); });
        }

        function render(st) {
            scrubEl.max = st.durationSeconds || 0;
            scrubEl.value = st.displaySeconds || 0;
        }

        scrubEl.addEventListener("pointerdown", function () {
            dragging = true;
            post("/api/scrub/begin", {seconds: Number(scrubEl.value)}).then(render);
        });
        scrubEl.addEventListener("input", function () {
            if (dragging) post("/api/scrub/move", {seconds: Number(scrubEl.value)});
        });
        scrubEl.addEventListener("change", function () {
            dragging = false;
            post("/api/scrub/release", {seconds: Number(scrubEl.value)}).then(render);
        });
        setInterval(function () {
            if (dragging) return;
            fetch("/api/scrub").then(function (r) { return r.json(); }).then(render);
        }, 1000);

        connect();
    </script>
</body>
</html>`
