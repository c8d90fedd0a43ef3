package main

import (
	"encoding/json"
	"io"
	"net"
	"sync"

	"contest-rooms/room"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// WatcherWebsocket streams room snapshots to a websocket client. Writes from
// the stream and the control replies of WaitForClose share writeLock.
type WatcherWebsocket struct {
	conn      net.Conn
	writeLock sync.Mutex
}

func NewWatcherWebsocket(conn net.Conn) *WatcherWebsocket {
	return &WatcherWebsocket{conn: conn}
}

func (h *WatcherWebsocket) sendMessage(message any) error {
	encoded, _ := json.Marshal(message)
	h.writeLock.Lock()
	defer h.writeLock.Unlock()
	return wsutil.WriteServerText(h.conn, encoded)
}

func (h *WatcherWebsocket) SendSnapshot(snapshot room.Room) error {
	return h.sendMessage(newSnapshotMessage(snapshot))
}

func (h *WatcherWebsocket) SendRoomClosedMessage() error {
	return h.sendMessage(CloseMessage{Type: "close"})
}

// WaitForClose drains client frames until the connection fails or the
// client closes it. Watchers only listen, so incoming payloads are ignored.
func (h *WatcherWebsocket) WaitForClose() {
	control := wsutil.ControlFrameHandler(h.conn, ws.StateServerSide)
	handleControl := func(hdr ws.Header, r io.Reader) error {
		h.writeLock.Lock()
		defer h.writeLock.Unlock()
		return control(hdr, r)
	}
	rd := wsutil.Reader{
		Source:         h.conn,
		State:          ws.StateServerSide,
		CheckUTF8:      true,
		OnIntermediate: handleControl,
	}
	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return
		}
		if hdr.OpCode.IsControl() {
			if err := handleControl(hdr, &rd); err != nil {
				return
			}
			continue
		}
		if err := rd.Discard(); err != nil {
			return
		}
	}
}
