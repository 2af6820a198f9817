// Package framer implements the Framer worker described by the
// concurrency model: the sole reader of a session's inbound and outbound
// byte streams, and the only caller into the Session finite-state
// machine. It decodes each inbound fragment and dispatches it to the
// Session, forwards every outbound fragment (already encoded and
// published by the proxy) to the network writer and then archives it,
// and feeds the Indexer's event stream for both directions -- all from
// one single-threaded Tick, so the FSM, the archive, and the physical
// socket are never touched from more than one goroutine.
package framer

import (
	"io"
	"strconv"
	"time"

	"fixgateway/archive"
	"fixgateway/constants"
	"fixgateway/errors"
	"fixgateway/indexer"
	"fixgateway/seqindex"
	"fixgateway/session"
	"fixgateway/transport"
	"fixgateway/wire"

	"github.com/quickfixgo/quickfix"
)

// envelopeTags are the fields the Encoder stamps itself (or that mark a
// resend) rather than content the sender chose. Archiving strips them so
// a replayed RawBody holds only the fields Proxy.SendApplicationReplay
// should re-wrap under a fresh envelope.
var envelopeTags = map[quickfix.Tag]bool{
	constants.TagBeginString:     true,
	constants.TagBodyLength:      true,
	constants.TagMsgType:         true,
	constants.TagSenderCompId:    true,
	constants.TagTargetCompId:    true,
	constants.TagMsgSeqNum:       true,
	constants.TagSendingTime:     true,
	constants.TagPossDupFlag:     true,
	constants.TagOrigSendingTime: true,
	constants.TagCheckSum:        true,
}

func bodyOnly(fields []wire.Field) []byte {
	out := make([]byte, 0, len(fields)*8)
	for _, f := range fields {
		if envelopeTags[f.Tag] {
			continue
		}
		out = append(out, []byte(strconv.Itoa(int(f.Tag)))...)
		out = append(out, '=')
		out = append(out, []byte(f.Value)...)
		out = append(out, constants.SOH)
	}
	return out
}

var sendingTimeLayouts = []string{
	"20060102-15:04:05.000000000",
	"20060102-15:04:05.000000",
	"20060102-15:04:05.000",
	"20060102-15:04:05",
}

// parseSendingTime inverts wire.Encoder.FormatSendingTime. A value that
// matches none of the four configured precisions archives as zero rather
// than failing the fragment outright.
func parseSendingTime(v string) int64 {
	for _, layout := range sendingTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC().UnixNano()
		}
	}
	return 0
}

func tagInt32(d *wire.Decoded, tag quickfix.Tag) int32 {
	v, ok := d.Get(tag)
	if !ok {
		return 0
	}
	n, _ := strconv.Atoi(v)
	return int32(n)
}

// pendingRecord is one fact queued for the Indexer, waiting out its
// stream's back pressure without losing order.
type pendingRecord struct {
	seqNum     int32
	archivePos int64
	dir        seqindex.Direction
}

// Framer drives one session's Tick loop.
type Framer struct {
	sess      *session.Session
	sessionID uint64

	inbound  transport.Cursor
	outbound transport.Cursor
	netOut   io.Writer

	arch  archive.Archive
	rec   *indexer.Recorder
	onErr errors.Handler

	lastArchivePos int64
	pendingAppends []archive.ArchivedMessage
	pendingRecords []pendingRecord
}

// New creates a Framer for sess. inboundStreamID is where the physical
// socket adapter publishes raw bytes read from the peer; outboundStreamID
// is the stream sess's Proxy already publishes encoded bytes to (the
// session's comp-ID pair, by convention). netOut receives every outbound
// fragment before it is archived, typically the socket's net.Conn; arch and rec
// may be nil for a session the engine chooses not to archive (tests,
// mostly).
func New(sess *session.Session, sessionID uint64, sub transport.Subscriber, inboundStreamID, outboundStreamID string, netOut io.Writer, arch archive.Archive, rec *indexer.Recorder, onErr errors.Handler) *Framer {
	if onErr == nil {
		onErr = errors.Noop
	}
	return &Framer{
		sess:      sess,
		sessionID: sessionID,
		inbound:   sub.Subscribe(inboundStreamID, 0),
		outbound:  sub.Subscribe(outboundStreamID, 0),
		netOut:    netOut,
		arch:      arch,
		rec:       rec,
		onErr:     onErr,
	}
}

// Tick drains both streams, pushes what it collected through the
// archive/index pipeline as far as back pressure allows, then polls the
// session's own timers. Call it repeatedly from the engine's single
// Framer goroutine.
func (f *Framer) Tick(nowMonotonicNs int64) {
	f.drainOutbound()
	f.drainInbound()
	f.flushAppends()
	f.flushRecords()
	f.sess.Poll(nowMonotonicNs)
}

func (f *Framer) flushAppends() {
	if f.arch == nil {
		f.pendingAppends = nil
		return
	}
	for len(f.pendingAppends) > 0 {
		msg := f.pendingAppends[0]
		stored, err := f.arch.Append(msg)
		if err != nil {
			f.onErr(errors.New(errors.PersistenceFailure, f.sessionID, err))
			return
		}
		f.pendingAppends = f.pendingAppends[1:]
		f.lastArchivePos = stored.ArchivePos
		f.pendingRecords = append(f.pendingRecords, pendingRecord{
			seqNum:     stored.MsgSeqNum,
			archivePos: stored.ArchivePos,
			dir:        seqindex.DirectionSent,
		})
	}
}

func (f *Framer) flushRecords() {
	if f.rec == nil {
		f.pendingRecords = nil
		return
	}
	for len(f.pendingRecords) > 0 {
		pr := f.pendingRecords[0]
		if f.rec.Record(f.sessionID, pr.seqNum, pr.archivePos, pr.dir) != transport.OK {
			return
		}
		f.pendingRecords = f.pendingRecords[1:]
	}
}

// drainOutbound forwards every fragment the Proxy has already published
// to netOut, then queues it for archiving. Forwarding is attempted before
// archiving deliberately: a slow disk must never hold up bytes already
// encoded and ready for the wire.
func (f *Framer) drainOutbound() {
	f.outbound.Poll(func(pos transport.Position, buf []byte) bool {
		if f.netOut != nil {
			if _, err := f.netOut.Write(buf); err != nil {
				f.onErr(errors.New(errors.IOFailure, f.sessionID, err))
				return false
			}
		}

		decoded, err := wire.Decode(buf)
		if err != nil {
			// Our own Encoder produced buf; a decode failure here means a
			// programmer error in the encoder, not a peer-supplied
			// malformed message. Report it and move on rather than
			// wedging the outbound stream on bytes already on the wire.
			f.onErr(errors.New(errors.ProgrammerError, f.sessionID, err))
			return true
		}

		if f.arch != nil {
			f.pendingAppends = append(f.pendingAppends, archive.ArchivedMessage{
				SessionID:   f.sessionID,
				MsgSeqNum:   tagInt32(decoded, constants.TagMsgSeqNum),
				MsgType:     decoded.MsgType,
				RawBody:     bodyOnly(decoded.Fields),
				SendingTime: parseSendingTime(valueOrEmpty(decoded, constants.TagSendingTime)),
			})
		}
		return true
	})
}

// drainInbound decodes and dispatches every fragment the network adapter
// has published, recording the fact for the Indexer. Inbound messages are
// never archived: the archive exists to replay what this side sent, and
// a malformed fragment still advances the cursor, since it cannot be
// retried into something parseable.
func (f *Framer) drainInbound() {
	f.inbound.Poll(func(pos transport.Position, buf []byte) bool {
		decoded, err := wire.Decode(buf)
		if err != nil {
			f.onErr(errors.New(errors.DecoderFailure, f.sessionID, err))
			f.sess.HandleDecodeFailure(err.Error())
			return true
		}

		f.sess.HandleInbound(decoded)
		f.pendingRecords = append(f.pendingRecords, pendingRecord{
			seqNum:     tagInt32(decoded, constants.TagMsgSeqNum),
			archivePos: f.lastArchivePos,
			dir:        seqindex.DirectionReceived,
		})
		return true
	})
}

func valueOrEmpty(d *wire.Decoded, tag quickfix.Tag) string {
	v, _ := d.Get(tag)
	return v
}
