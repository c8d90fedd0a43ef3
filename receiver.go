package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"contest-rooms/room"
)

type SnapshotMessage struct {
	Type string    `json:"type"`
	Room room.Room `json:"room"`
}

type CloseMessage struct {
	Type string `json:"type"`
}

func newSnapshotMessage(r room.Room) SnapshotMessage {
	return SnapshotMessage{Type: "snapshot", Room: r}
}

type ReceiverSSE struct {
	w http.ResponseWriter
	f http.Flusher
}

func NewReceiverSSE(w http.ResponseWriter, f http.Flusher) *ReceiverSSE {
	return &ReceiverSSE{w, f}
}

func (r ReceiverSSE) SendByteSlice(msg []byte) {
	fmt.Fprintf(r.w, "data: %v\n\n", string(msg))
	r.f.Flush()
}

func (r ReceiverSSE) sendJSON(msg any) {
	data, _ := json.Marshal(msg)
	r.SendByteSlice(data)
}

func (r ReceiverSSE) SendSnapshot(snapshot room.Room) {
	r.sendJSON(newSnapshotMessage(snapshot))
}

func (r ReceiverSSE) SendRoomClosedMessage() {
	r.sendJSON(CloseMessage{Type: "close"})
}
