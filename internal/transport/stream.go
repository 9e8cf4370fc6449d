package transport

import (
	"encoding/json"
	"io"

	"github.com/gorilla/websocket"
	"github.com/sourcegraph/jsonrpc2"
)

// wsStream adapts a websocket connection to jsonrpc2.ObjectStream, one JSON
// object per text frame. jsonrpc2.Conn serializes writes, and reads happen
// on its single reader goroutine.
type wsStream struct {
	conn *websocket.Conn
}

// NewStream wraps conn for use with jsonrpc2.NewConn.
func NewStream(conn *websocket.Conn) jsonrpc2.ObjectStream {
	return &wsStream{conn: conn}
}

func (s *wsStream) ReadObject(v interface{}) error {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		// Normal close frames end the stream without an error.
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return io.EOF
		}
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *wsStream) WriteObject(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsStream) Close() error {
	return s.conn.Close()
}

var _ jsonrpc2.ObjectStream = (*wsStream)(nil)
