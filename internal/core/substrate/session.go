// Package substrate 实现基于 WebSocket JSON-RPC 的节点会话与句柄
//
// 会话（Session）负责单条连接上的请求/响应匹配：每个请求分配递增 id，
// 读循环按 id 将响应投递给等待方。连接断开后等待中的请求全部失败，
// 下一次调用时按需重新拨号，连接的存活由会话自身维护。
package substrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/weisyn/nodegate/pkg/interfaces/chain"
	"github.com/weisyn/nodegate/pkg/interfaces/infrastructure/log"
)

// ErrSessionClosed 会话已关闭
var ErrSessionClosed = errors.New("session closed")

// RPCError 节点返回的 JSON-RPC 错误
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("%d: %s: %s", e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcMessage struct {
	ID     *uint64         `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

type rpcReply struct {
	msg *rpcMessage
	err error
}

// SessionOptions 会话参数
type SessionOptions struct {
	HandshakeTimeout time.Duration
	ReadLimit        int64
	Logger           log.Logger
}

// Session 单端点 JSON-RPC 会话
type Session struct {
	endpoint string
	opts     SessionOptions
	dialer   websocket.Dialer

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[uint64]chan rpcReply
	closed  bool

	writeMu sync.Mutex
	nextID  atomic.Uint64
}

// 编译时校验
var _ chain.RPCCaller = (*Session)(nil)

// Dial 建立会话并完成首次拨号
func Dial(ctx context.Context, endpoint string, opts SessionOptions) (*Session, error) {
	s := &Session{
		endpoint: endpoint,
		opts:     opts,
		dialer: websocket.Dialer{
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		pending: make(map[uint64]chan rpcReply),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.connectLocked(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Endpoint 会话端点
func (s *Session) Endpoint() string {
	return s.endpoint
}

// connectLocked 调用方需持有 s.mu
func (s *Session) connectLocked(ctx context.Context) (*websocket.Conn, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.conn != nil {
		return s.conn, nil
	}

	conn, resp, err := s.dialer.DialContext(ctx, s.endpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", s.endpoint, err)
	}
	if s.opts.ReadLimit > 0 {
		conn.SetReadLimit(s.opts.ReadLimit)
	}

	s.conn = conn
	go s.readLoop(conn)
	return conn, nil
}

// Call 发送请求并等待响应
func (s *Session) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if params == nil {
		params = []any{}
	}

	id := s.nextID.Add(1)
	ch := make(chan rpcReply, 1)

	s.mu.Lock()
	conn, err := s.connectLocked(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.pending[id] = ch
	s.mu.Unlock()

	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	s.writeMu.Lock()
	err = conn.WriteJSON(req)
	s.writeMu.Unlock()
	if err != nil {
		s.forget(id)
		s.dropConn(conn, err)
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		s.forget(id)
		return nil, ctx.Err()
	case reply := <-ch:
		if reply.err != nil {
			return nil, fmt.Errorf("%s: %w", method, reply.err)
		}
		if reply.msg.Error != nil {
			return nil, fmt.Errorf("%s: %w", method, reply.msg.Error)
		}
		if len(reply.msg.Result) == 0 {
			return json.RawMessage("null"), nil
		}
		return reply.msg.Result, nil
	}
}

func (s *Session) forget(id uint64) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

// readLoop 读取响应并按 id 投递
func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.dropConn(conn, err)
			return
		}

		var msg rpcMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			if s.opts.Logger != nil {
				s.opts.Logger.Warnf("节点消息解析失败: endpoint=%s err=%v", s.endpoint, err)
			}
			continue
		}
		// 无 id 的为订阅通知，当前不处理
		if msg.ID == nil {
			continue
		}

		s.mu.Lock()
		ch, ok := s.pending[*msg.ID]
		delete(s.pending, *msg.ID)
		s.mu.Unlock()
		if ok {
			ch <- rpcReply{msg: &msg}
		}
	}
}

// dropConn 废弃连接并使所有等待中的请求失败
func (s *Session) dropConn(conn *websocket.Conn, cause error) {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	pending := s.pending
	s.pending = make(map[uint64]chan rpcReply)
	closed := s.closed
	s.mu.Unlock()

	_ = conn.Close()

	err := fmt.Errorf("connection lost: %w", cause)
	if closed {
		err = ErrSessionClosed
	}
	for _, ch := range pending {
		ch <- rpcReply{err: err}
	}

	if !closed && s.opts.Logger != nil {
		s.opts.Logger.Warnf("节点连接断开，下次调用时重连: endpoint=%s err=%v", s.endpoint, cause)
	}
}

// Close 关闭会话，之后的调用返回 ErrSessionClosed
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	s.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.writeMu.Unlock()
	s.dropConn(conn, ErrSessionClosed)
	return nil
}
