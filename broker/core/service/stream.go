package service

import (
	"fmt"
	"net"

	"github.com/lybxkl/simq/broker/core/message"
	. "github.com/lybxkl/simq/common/log"
)

// stream 单连接的入站累积缓冲。对端数据按到达顺序追加，
// 攒够一个完整报文才解码，半包继续等，粘包在上层循环中排空。
type stream struct {
	conn net.Conn
	buf  []byte // 已到达未消费的数据
	tmp  []byte // 单次Read的块
	max  uint32 // 允许的最大报文长度，0不限
}

func newStream(conn net.Conn, readSize int, maxPacketSize uint32) *stream {
	if readSize <= 0 {
		readSize = 8192
	}
	return &stream{
		conn: conn,
		tmp:  make([]byte, readSize),
		max:  maxPacketSize,
	}
}

// ReadMessage 阻塞到解出下一个可处理的报文。
// 单报文级的问题（报头无法解析、子集之外的类型、报文体解码失败）在
// 内部记日志后丢弃并继续，只有连接级错误（读失败、超长报文）才返回。
func (s *stream) ReadMessage(cid string) (message.Message, int, error) {
	for {
		mtype, total, err := message.PeekMessageSize(s.buf)
		switch {
		case err == message.ErrIncompleteHeader:
			// 半包，等更多数据
			if err = s.fill(); err != nil {
				return nil, 0, err
			}
			continue
		case err != nil:
			// 报头无法解析（保留类型或剩余长度非法），无从定位下一个
			// 报文的边界，丢弃整段缓冲，连接保持
			Log.Errorf("(%s) unparseable fixed header, %d buffered bytes dropped: %v", cid, len(s.buf), err)
			s.buf = s.buf[:0]
			if err = s.fill(); err != nil {
				return nil, 0, err
			}
			continue
		}

		if s.max > 0 && uint32(total) > s.max {
			return nil, 0, fmt.Errorf("stream: message of %d bytes exceeds the %d byte limit", total, s.max)
		}
		if len(s.buf) < total {
			if err = s.fill(); err != nil {
				return nil, 0, err
			}
			continue
		}

		msg, err := mtype.New()
		if err != nil {
			Log.Debugf("(%s) %s not handled, frame of %d bytes skipped", cid, mtype, total)
			s.advance(total)
			continue
		}
		// CONNECT报文的Decode允许少于帧长（载荷尾部按帧长跳过），
		// 缓冲的推进始终以帧长为准。解码出的字段都是拷贝，压缩缓冲
		// 不影响已返回的报文。
		if _, err = msg.Decode(s.buf[:total]); err != nil {
			Log.Errorf("(%s) decode %s: %v, frame of %d bytes dropped", cid, mtype, err, total)
			s.advance(total)
			continue
		}
		s.advance(total)
		return msg, total, nil
	}
}

func (s *stream) advance(n int) {
	s.buf = s.buf[:copy(s.buf, s.buf[n:])]
}

func (s *stream) fill() error {
	n, err := s.conn.Read(s.tmp)
	if n > 0 {
		s.buf = append(s.buf, s.tmp[:n]...)
		return nil
	}
	return err
}
