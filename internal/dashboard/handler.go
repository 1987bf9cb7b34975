package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/mschirtzinger/flowboard/internal/board"
	"github.com/mschirtzinger/flowboard/internal/risk"
	"github.com/mschirtzinger/flowboard/internal/schema"
	"github.com/mschirtzinger/flowboard/internal/view"
)

// Handler turns board events into dashboard messages.
type Handler struct {
	server *Server
	board  *board.Board
	now    func() time.Time
	logger *log.Logger
}

// NewHandler creates a handler that broadcasts through server.
func NewHandler(server *Server, b *board.Board, now func() time.Time, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Handler{server: server, board: b, now: now, logger: logger}
}

// Run forwards events until ctx is done or the channel closes.
func (h *Handler) Run(ctx context.Context, events <-chan board.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.OnSave(ev)
		}
	}
}

// BoardData evaluates risk for doc as of today.
func (h *Handler) BoardData(doc *schema.Document, status board.Status) BoardData {
	return BoardData{
		Board:  view.NewBoard(doc, risk.Today(h.now())),
		Status: status,
		Remote: h.board.RemoteName(),
	}
}

// DocumentMessage builds a document_changed message for doc.
func (h *Handler) DocumentMessage(doc *schema.Document, status board.Status) (Message, error) {
	return newMessage(MessageTypeDocument, h.BoardData(doc, status))
}

// OnSave broadcasts the saved document and then the save status. A reload
// only broadcasts the document.
func (h *Handler) OnSave(ev board.Event) {
	doc, err := h.DocumentMessage(ev.Document, ev.Result.Status)
	if err != nil {
		h.logger.Printf("Failed to marshal board: %v", err)
		return
	}
	h.server.Broadcast(doc)

	if ev.Reloaded {
		return
	}
	st, err := newMessage(MessageTypeSaveStatus, saveStatus(ev.Result))
	if err != nil {
		h.logger.Printf("Failed to marshal save status: %v", err)
		return
	}
	h.server.Broadcast(st)
}

// OnConfigReloaded tells clients the config file at path changed.
func (h *Handler) OnConfigReloaded(path string) {
	h.logger.Printf("Config reloaded: %s", path)
	msg, err := newMessage(MessageTypeConfigReloaded, map[string]string{"path": path})
	if err != nil {
		h.logger.Printf("Failed to marshal config event: %v", err)
		return
	}
	h.server.Broadcast(msg)
}

func newMessage(typ MessageType, v interface{}) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: typ, Timestamp: time.Now(), Data: data}, nil
}
