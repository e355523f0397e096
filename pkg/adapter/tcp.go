package adapter

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"net"
	"sync"

	"github.com/cuemby/tessera/pkg/log"
	"github.com/cuemby/tessera/pkg/metrics"
	"github.com/cuemby/tessera/pkg/store"
)

// maxFrameBuffer bounds the incoming byte buffer of a TCP adapter. The
// framing is self-delimiting (a length prefix), so an oversized,
// presumably corrupt, incoming frame cannot be recovered from; it is
// dropped and the buffer reset.
const maxFrameBuffer = 50 * 1024

type wireKind byte

const (
	wireNewTask wireKind = iota
	wireInputs
	wireExecute
	wireOutputs
	wireResponse
)

// wireMsg is the tagged union transmitted over a TCP adapter
// connection: NewTask, Inputs, ExecuteTask, Outputs, or TaskResponse.
type wireMsg struct {
	Kind   wireKind
	TaskID uint32
	Cfg    BrokerTaskConfig
	BT     BrokerTime
	Batch  []store.Datapoint
}

// tcpConn wraps one net.Conn with the framing and queuing needed to
// implement both BrokerAdapter and NodeAdapter; only one of those
// interfaces is exposed to any given caller via TCPBrokerSide /
// TCPNodeSide.
type tcpConn struct {
	conn net.Conn
	id   string

	writeMu sync.Mutex

	mu        sync.Mutex
	newTasks  []BrokerTaskConfig
	inputs    []inputBatch
	execute   []executeMsg
	outputs   []outputBatch
	responses []uint32

	closed chan struct{}
}

func newTCPConn(conn net.Conn) *tcpConn {
	c := &tcpConn{conn: conn, closed: make(chan struct{})}
	go c.readLoop()
	return c
}

// readLoop maintains an incoming byte buffer; after each socket read
// it attempts incremental deserialization, draining consumed bytes and
// dispatching decoded messages, and otherwise waits for more data.
func (c *tcpConn) readLoop() {
	logger := log.WithComponent("adapter.tcp")
	defer close(c.closed)

	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		n, err := c.conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		for {
			consumed, msg, ok, decErr := decodeFrame(buf)
			if !ok {
				break
			}
			buf = buf[consumed:]
			if decErr != nil {
				logger.Warn().Err(decErr).Msg("tcp adapter dropped undecodable frame")
				continue
			}
			c.dispatch(msg)
		}
		if len(buf) > maxFrameBuffer {
			logger.Warn().Int("buffered", len(buf)).Msg("tcp adapter buffer overflow, dropping")
			buf = buf[:0]
			metrics.AdapterFramesDropped.WithLabelValues(c.id).Inc()
		}
		if err != nil {
			return
		}
	}
}

// decodeFrame attempts to decode one length-prefixed frame from buf.
// It returns ok=false (consuming nothing) when buf holds fewer bytes
// than the frame needs. A complete frame whose payload fails to decode
// is consumed and reported through err, so the caller can drop it.
func decodeFrame(buf []byte) (consumed int, msg wireMsg, ok bool, err error) {
	if len(buf) < 4 {
		return 0, wireMsg{}, false, nil
	}
	length := binary.BigEndian.Uint32(buf[:4])
	total := 4 + int(length)
	if len(buf) < total {
		return 0, wireMsg{}, false, nil
	}
	var m wireMsg
	if err := gob.NewDecoder(bytes.NewReader(buf[4:total])).Decode(&m); err != nil {
		// The length prefix is intact, so skip this frame's bytes and
		// keep reading the next one.
		return total, wireMsg{}, true, err
	}
	return total, m, true, nil
}

func (c *tcpConn) dispatch(m wireMsg) {
	c.mu.Lock()
	switch m.Kind {
	case wireNewTask:
		c.newTasks = append(c.newTasks, m.Cfg)
	case wireInputs:
		c.inputs = append(c.inputs, inputBatch{taskID: m.TaskID, dps: m.Batch})
	case wireExecute:
		c.execute = append(c.execute, executeMsg{cfg: m.Cfg, bt: m.BT})
	case wireOutputs:
		c.outputs = append(c.outputs, outputBatch{taskID: m.TaskID, dps: m.Batch})
	case wireResponse:
		c.responses = append(c.responses, m.TaskID)
	}
	depth := len(c.newTasks) + len(c.inputs) + len(c.execute) + len(c.outputs) + len(c.responses)
	c.mu.Unlock()
	metrics.AdapterQueueDepth.WithLabelValues(c.id, "recv").Set(float64(depth))
}

// send serializes m and writes the length-prefixed frame, retrying
// partial writes until the whole frame is sent.
func (c *tcpConn) send(m wireMsg) error {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(m); err != nil {
		return fmt.Errorf("adapter: encode frame: %w", err)
	}
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(payload.Len()))

	frame := append(header, payload.Bytes()...)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	for len(frame) > 0 {
		n, err := c.conn.Write(frame)
		if err != nil {
			return fmt.Errorf("adapter: write frame: %w", err)
		}
		frame = frame[n:]
	}
	return nil
}

// TCPBrokerSide wraps a connection as the broker-facing BrokerAdapter.
type TCPBrokerSide struct{ c *tcpConn }

// NewTCPBrokerSide starts reading conn in the background and returns
// the broker-side adapter view of it.
func NewTCPBrokerSide(conn net.Conn) *TCPBrokerSide {
	return &TCPBrokerSide{c: newTCPConn(conn)}
}

// SetID labels this connection for adapter metrics (queue depth and
// dropped frame counters); it has no effect on protocol behavior.
func (s *TCPBrokerSide) SetID(id string) { s.c.id = id }

func (s *TCPBrokerSide) GetNewTasks() ([]BrokerTaskConfig, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	out := s.c.newTasks
	s.c.newTasks = nil
	return out, nil
}

func (s *TCPBrokerSide) SendInputs(taskID uint32, batch []store.Datapoint) error {
	return s.c.send(wireMsg{Kind: wireInputs, TaskID: taskID, Batch: batch})
}

func (s *TCPBrokerSide) SendExecute(cfg BrokerTaskConfig, bt BrokerTime) error {
	return s.c.send(wireMsg{Kind: wireExecute, TaskID: cfg.TaskID, Cfg: cfg, BT: bt})
}

func (s *TCPBrokerSide) RecvOutputs(taskID uint32) ([]store.Datapoint, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	var out []store.Datapoint
	remaining := s.c.outputs[:0]
	for _, ob := range s.c.outputs {
		if ob.taskID == taskID {
			out = append(out, ob.dps...)
		} else {
			remaining = append(remaining, ob)
		}
	}
	s.c.outputs = remaining
	return out, nil
}

func (s *TCPBrokerSide) RecvResponse(taskID uint32) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	for i, id := range s.c.responses {
		if id == taskID {
			s.c.responses = append(s.c.responses[:i], s.c.responses[i+1:]...)
			return nil
		}
	}
	return ErrWaitingForTaskResponse
}

// TCPNodeSide wraps a connection as the node-facing NodeAdapter.
type TCPNodeSide struct{ c *tcpConn }

// NewTCPNodeSide starts reading conn in the background and returns the
// node-side adapter view of it.
func NewTCPNodeSide(conn net.Conn) *TCPNodeSide {
	return &TCPNodeSide{c: newTCPConn(conn)}
}

// SetID labels this connection for adapter metrics.
func (s *TCPNodeSide) SetID(id string) { s.c.id = id }

func (s *TCPNodeSide) SendNewTask(cfg BrokerTaskConfig) error {
	return s.c.send(wireMsg{Kind: wireNewTask, TaskID: cfg.TaskID, Cfg: cfg})
}

func (s *TCPNodeSide) RecvInputs() (uint32, []store.Datapoint, bool, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if len(s.c.inputs) == 0 {
		return 0, nil, false, nil
	}
	ib := s.c.inputs[0]
	s.c.inputs = s.c.inputs[1:]
	return ib.taskID, ib.dps, true, nil
}

func (s *TCPNodeSide) RecvExecute() (BrokerTaskConfig, BrokerTime, bool, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if len(s.c.execute) == 0 {
		return BrokerTaskConfig{}, BrokerTime{}, false, nil
	}
	em := s.c.execute[0]
	s.c.execute = s.c.execute[1:]
	return em.cfg, em.bt, true, nil
}

func (s *TCPNodeSide) SendOutputs(taskID uint32, batch []store.Datapoint) error {
	return s.c.send(wireMsg{Kind: wireOutputs, TaskID: taskID, Batch: batch})
}

func (s *TCPNodeSide) SendResponse(taskID uint32) error {
	return s.c.send(wireMsg{Kind: wireResponse, TaskID: taskID})
}
