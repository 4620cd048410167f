package widget

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.BotName}}</title>
<style>
  * { box-sizing: border-box; margin: 0; padding: 0; }
  body {
    min-height: 100vh;
    background: #f3f4f6;
    display: flex;
    align-items: center;
    justify-content: center;
    padding: 1rem;
    font-family: -apple-system, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
    -webkit-font-smoothing: antialiased;
  }
  .card {
    background: #fff;
    border-radius: 0.75rem;
    box-shadow: 0 25px 50px -12px rgba(0, 0, 0, 0.25);
    width: 100%;
    max-width: 28rem;
    height: 80vh;
    display: flex;
    flex-direction: column;
    overflow: hidden;
  }
  .header {
    background: linear-gradient(to right, #3b82f6, #9333ea);
    color: #fff;
    padding: 1rem;
    display: flex;
    align-items: center;
    justify-content: space-between;
  }
  .header h1 { font-size: 1.5rem; font-weight: 700; }
  .header svg { width: 1.5rem; height: 1.5rem; }
  .messages {
    flex: 1;
    padding: 1rem;
    overflow-y: auto;
  }
  .row { display: flex; margin-bottom: 1rem; }
  .row.user { justify-content: flex-end; }
  .row.bot { justify-content: flex-start; }
  .bubble {
    max-width: 75%;
    padding: 0.75rem;
    border-radius: 0.5rem;
    box-shadow: 0 1px 2px rgba(0, 0, 0, 0.05);
    word-wrap: break-word;
    white-space: pre-wrap;
  }
  .row.user .bubble {
    background: #3b82f6;
    color: #fff;
    border-bottom-right-radius: 0;
  }
  .row.bot .bubble {
    background: #e5e7eb;
    color: #1f2937;
    border-bottom-left-radius: 0;
  }
  .row.typing .bubble { animation: pulse 1.5s ease-in-out infinite; }
  @keyframes pulse {
    0%, 100% { opacity: 1; }
    50% { opacity: 0.5; }
  }
  .composer {
    padding: 1rem;
    background: #f9fafb;
    border-top: 1px solid #e5e7eb;
    display: flex;
    align-items: center;
    gap: 0.75rem;
  }
  .composer input {
    flex: 1;
    padding: 0.75rem;
    border: 1px solid #d1d5db;
    border-radius: 9999px;
    font-size: 1rem;
    outline: none;
  }
  .composer input:focus { border-color: #3b82f6; }
  .composer input:disabled { background: #f3f4f6; }
  .composer button {
    background: #2563eb;
    color: #fff;
    border: none;
    border-radius: 9999px;
    padding: 0.75rem;
    cursor: pointer;
    display: flex;
    align-items: center;
    justify-content: center;
  }
  .composer button:hover:not(:disabled) { background: #1d4ed8; }
  .composer button:disabled { opacity: 0.5; cursor: not-allowed; }
  .composer button svg { width: 1.5rem; height: 1.5rem; }
</style>
</head>
<body>
<div class="card">
  <div class="header">
    <h1>{{.BotName}}</h1>
    <svg xmlns="http://www.w3.org/2000/svg" fill="none" viewBox="0 0 24 24" stroke="currentColor" stroke-width="2">
      <path stroke-linecap="round" stroke-linejoin="round" d="M8 12h.01M12 12h.01M16 12h.01M21 12c0 4.418-4.03 8-9 8a9.863 9.863 0 01-4.255-.949L3 20l1.395-3.72C3.512 15.042 3 13.574 3 12c0-4.418 4.03-8 9-8s9 3.582 9 8z"/>
    </svg>
  </div>
  <div class="messages" id="messages">
    <div class="row bot typing" id="typing" style="display: none;">
      <div class="bubble">Bot is typing...</div>
    </div>
    <div id="end"></div>
  </div>
  <div class="composer">
    <input type="text" id="input" placeholder="Type your message..." autocomplete="off">
    <button id="send" disabled>
      <svg xmlns="http://www.w3.org/2000/svg" fill="none" viewBox="0 0 24 24" stroke="currentColor" stroke-width="2">
        <path stroke-linecap="round" stroke-linejoin="round" d="M14 5l7 7m0 0l-7 7m7-7H3"/>
      </svg>
    </button>
  </div>
</div>
<script>
(function () {
  'use strict';

  var state = { sessionId: null, typing: false };

  var messagesEl = document.getElementById('messages');
  var typingEl = document.getElementById('typing');
  var endEl = document.getElementById('end');
  var inputEl = document.getElementById('input');
  var sendBtn = document.getElementById('send');

  function api(path) { return '/api' + path; }

  function scrollToBottom() {
    endEl.scrollIntoView({ behavior: 'smooth' });
  }

  function updateControls() {
    inputEl.disabled = state.typing;
    sendBtn.disabled = state.typing || inputEl.value.trim() === '';
  }

  function updateTyping() {
    typingEl.style.display = state.typing ? 'flex' : 'none';
    updateControls();
    scrollToBottom();
  }

  function appendBubble(message) {
    var row = document.createElement('div');
    row.className = 'row ' + (message.sender === 'user' ? 'user' : 'bot');
    var bubble = document.createElement('div');
    bubble.className = 'bubble';
    bubble.textContent = message.text;
    row.appendChild(bubble);
    messagesEl.insertBefore(row, typingEl);
    scrollToBottom();
  }

  function renderAll(messages) {
    var rows = messagesEl.querySelectorAll('.row.user, .row.bot:not(.typing)');
    for (var i = 0; i < rows.length; i++) { rows[i].remove(); }
    for (var j = 0; j < messages.length; j++) { appendBubble(messages[j]); }
  }

  function subscribe() {
    var source = new EventSource(api('/stream/' + state.sessionId));

    source.addEventListener('state', function (e) {
      var snapshot = JSON.parse(e.data);
      state.typing = snapshot.typing;
      renderAll(snapshot.messages || []);
      updateTyping();
    });

    source.addEventListener('message', function (e) {
      var event = JSON.parse(e.data);
      state.typing = event.typing;
      if (event.message) { appendBubble(event.message); }
      updateTyping();
    });

    source.addEventListener('typing', function (e) {
      var event = JSON.parse(e.data);
      state.typing = event.typing;
      updateTyping();
    });

    source.addEventListener('input', function (e) {
      var event = JSON.parse(e.data);
      if (document.activeElement !== inputEl) { inputEl.value = event.input; }
      updateControls();
    });

    source.onerror = function () {
      console.error('event stream interrupted');
    };
  }

  function send() {
    var text = inputEl.value;
    if (state.typing || text.trim() === '') { return; }

    inputEl.value = '';
    updateControls();

    fetch(api('/messages'), {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify({ sessionId: state.sessionId, text: text })
    }).catch(function (err) {
      console.error('send failed:', err);
    });
  }

  inputEl.addEventListener('input', function () {
    updateControls();
    if (!state.sessionId) { return; }
    fetch(api('/input'), {
      method: 'PUT',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify({ sessionId: state.sessionId, text: inputEl.value })
    }).catch(function () {});
  });

  inputEl.addEventListener('keypress', function (e) {
    if (e.key === 'Enter' && !state.typing) { send(); }
  });

  sendBtn.addEventListener('click', send);

  fetch(api('/session'), { method: 'POST' })
    .then(function (res) { return res.json(); })
    .then(function (session) {
      state.sessionId = session.id;
      subscribe();
      updateControls();
    })
    .catch(function (err) {
      console.error('session create failed:', err);
    });
})();
</script>
</body>
</html>
`
