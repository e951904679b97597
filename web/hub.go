package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/gekko3d/balok"
	"github.com/gekko3d/balok/scene/compose"
	"github.com/gekko3d/balok/scene/linalg"
)

const (
	writeWait    = 40 * time.Second
	pingInterval = 30 * time.Second
	pongWait     = pingInterval + writeWait
	maxCommand   = 4096
	sendBuffer   = 32
)

type FrameNode struct {
	Name     string      `json:"name"`
	Vertices [24]float32 `json:"vertices"`
}

// Frame is one composed pass as sent to browsers. View is column-major,
// ready for uniformMatrix4fv. Indices and texcoords are shared by every
// node.
type Frame struct {
	Figure    string            `json:"figure"`
	Seq       uint64            `json:"seq"`
	View      mgl32.Mat4        `json:"view"`
	Indices   [36]uint16        `json:"indices"`
	TexCoords [16]float32       `json:"texcoords"`
	Nodes     []FrameNode       `json:"nodes"`
	Joints    []balok.JointInfo `json:"joints"`
	Spinning  bool              `json:"spinning"`
	SpinAngle float64           `json:"spin_angle"`
}

// Command is what a browser may send over the socket.
type Command struct {
	Joint string   `json:"joint,omitempty"`
	Angle *float64 `json:"angle,omitempty"`
	Spin  string   `json:"spin,omitempty"`
	Reset bool     `json:"reset,omitempty"`
}

// Hub renders frames to JSON and broadcasts them to websocket clients.
// BeginFrame, Draw, EndFrame and ObserveFigure run on the app loop;
// everything else may be called from HTTP goroutines.
type Hub struct {
	Queue  *balok.InputQueue
	Logger balok.Logger

	upgrader websocket.Upgrader
	pending  Frame

	mu      sync.Mutex
	clients map[*client]bool
	last    []byte
	joints  []balok.JointInfo
	preset  *balok.PosePreset
}

func NewHub(queue *balok.InputQueue, logger balok.Logger) *Hub {
	if logger == nil {
		logger = balok.NewNopLogger()
	}
	return &Hub{
		Queue:   queue,
		Logger:  logger,
		clients: make(map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
		},
	}
}

var _ compose.FrameRenderer = (*Hub)(nil)
var _ balok.FigureObserver = (*Hub)(nil)

func (h *Hub) ObserveFigure(f *balok.Figure) {
	h.pending.Figure = f.Def.Name
	h.pending.Joints = f.JointInfos()
	h.pending.Spinning = f.Spinning()
	h.pending.SpinAngle = f.SpinAngle()
}

func (h *Hub) BeginFrame(view linalg.Mat4) error {
	h.pending.View = view.ColumnMajor32()
	h.pending.Nodes = h.pending.Nodes[:0]
	return nil
}

func (h *Hub) Draw(d *compose.DrawCall) error {
	h.pending.Nodes = append(h.pending.Nodes, FrameNode{Name: d.Name, Vertices: d.Vertices})
	h.pending.Indices = d.Indices
	h.pending.TexCoords = d.TexCoords
	return nil
}

func (h *Hub) EndFrame() error {
	h.pending.Seq++
	data, err := json.Marshal(&h.pending)
	if err != nil {
		return errors.Wrap(err, "marshal frame")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = data
	h.joints = append(h.joints[:0], h.pending.Joints...)
	h.preset = balok.PresetFromJoints(h.pending.Figure, h.pending.Joints, h.pending.Spinning, h.pending.SpinAngle)
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.Logger.Debugf("[hub] client %v is behind, frame %d dropped", c.conn.RemoteAddr(), h.pending.Seq)
		}
	}
	return nil
}

// LastFrame is the JSON of the most recent frame, nil before the first.
func (h *Hub) LastFrame() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// Joints is the joint list as of the last frame.
func (h *Hub) Joints() []balok.JointInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]balok.JointInfo(nil), h.joints...)
}

// Preset is the pose of the last frame, nil before the first.
func (h *Hub) Preset() *balok.PosePreset {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.preset
}

// HasJoint reports whether name is a known joint. Before the first frame
// every name is accepted.
func (h *Hub) HasJoint(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return true
	}
	for _, j := range h.joints {
		if j.Name == name {
			return true
		}
	}
	return false
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
	if h.last != nil {
		c.send <- h.last
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

// ServeWs upgrades the request and streams frames until the peer goes away.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warnf("[hub] upgrade: %v", err)
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)
	h.Logger.Infof("[hub] client %v connected", conn.RemoteAddr())
	go c.writePump()
	go c.readPump()
}

// Apply pushes a browser command into the input queue.
func (h *Hub) Apply(cmd Command) error {
	if cmd.Joint != "" {
		if cmd.Angle == nil {
			return errors.Errorf("joint %q: missing angle", cmd.Joint)
		}
		if !h.HasJoint(cmd.Joint) {
			return errors.Wrapf(balok.ErrUnknownJoint, "%q", cmd.Joint)
		}
		h.Queue.SetJointAngle(cmd.Joint, *cmd.Angle)
	}
	if cmd.Spin != "" {
		spin, err := balok.ParseSpinCommand(cmd.Spin)
		if err != nil {
			return err
		}
		h.Queue.SetSpin(spin)
	}
	if cmd.Reset {
		h.Queue.ResetPose()
	}
	return nil
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.hub.unregister(c)
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.Logger.Warnf("[hub] ws write msg error: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.Logger.Warnf("[hub] ws write ping error: %v", err)
				return
			}
		}
	}
}

func (c *client) readPump() {
	defer c.hub.unregister(c)

	c.conn.SetReadLimit(maxCommand)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.Logger.Warnf("[hub] ws read error: %v", err)
			}
			return
		}
		if err := c.hub.Apply(cmd); err != nil {
			c.hub.Logger.Warnf("[hub] command from %v: %v", c.conn.RemoteAddr(), err)
		}
	}
}
