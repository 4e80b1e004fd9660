package res

// AboutContent is the Markdown shown by Help > About.
const AboutContent = `A desktop music player that drives mpv over its IPC socket.

**Features:**
- Gapless playback with the next song prefetched
- Drag to reorder the queue, shuffle and repeat
- Global media keys and configurable shortcuts
- Tray menu and a websocket remote
`
