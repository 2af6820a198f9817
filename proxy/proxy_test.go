package proxy

import (
	"testing"

	"fixgateway/constants"
	"fixgateway/session"
	"fixgateway/transport"
	"fixgateway/wire"
)

func subscribeAndSend(t *testing.T, fn func(p *TransportProxy, id session.Identity) transport.Status) *wire.Decoded {
	t.Helper()
	tr := transport.NewInprocTransport()
	p := New(wire.NewEncoder(constants.PrecisionMillis), tr)
	id := session.Identity{SenderCompID: "US", TargetCompID: "THEM"}

	cursor := tr.Subscribe("US->THEM", 0)

	status := fn(p, id)
	if status != transport.OK {
		t.Fatalf("expected OK, got %v", status)
	}

	var decoded *wire.Decoded
	cursor.Poll(func(pos transport.Position, buf []byte) bool {
		d, err := wire.Decode(buf)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		decoded = d
		return true
	})
	if decoded == nil {
		t.Fatalf("expected a published message")
	}
	return decoded
}

func TestSendLogonStampsHeartBtIntAndReset(t *testing.T) {
	d := subscribeAndSend(t, func(p *TransportProxy, id session.Identity) transport.Status {
		return p.SendLogon(id, 1, 0, 30, true)
	})
	if d.MsgType != constants.MsgTypeLogon {
		t.Fatalf("expected Logon MsgType, got %q", d.MsgType)
	}
	if v, _ := d.Get(constants.TagHeartBtInt); v != "30" {
		t.Errorf("expected HeartBtInt=30, got %q", v)
	}
	if v, _ := d.Get(constants.TagResetSeqNumFlag); v != constants.ResetSeqNumYes {
		t.Errorf("expected ResetSeqNumFlag=Y, got %q", v)
	}
	if v, _ := d.Get(constants.TagSenderCompId); v != "US" {
		t.Errorf("expected SenderCompID=US, got %q", v)
	}
}

func TestSendResendRequestStampsRange(t *testing.T) {
	d := subscribeAndSend(t, func(p *TransportProxy, id session.Identity) transport.Status {
		return p.SendResendRequest(id, 2, 0, 5, 10)
	})
	if v, _ := d.Get(constants.TagBeginSeqNo); v != "5" {
		t.Errorf("expected BeginSeqNo=5, got %q", v)
	}
	if v, _ := d.Get(constants.TagEndSeqNo); v != "10" {
		t.Errorf("expected EndSeqNo=10, got %q", v)
	}
}

func TestSendSequenceResetGapFillSetsPossDupAndFlag(t *testing.T) {
	d := subscribeAndSend(t, func(p *TransportProxy, id session.Identity) transport.Status {
		return p.SendSequenceReset(id, 3, 0, 8, true, true)
	})
	if v, _ := d.Get(constants.TagGapFillFlag); v != constants.GapFillYes {
		t.Errorf("expected GapFillFlag=Y, got %q", v)
	}
	if v, _ := d.Get(constants.TagNewSeqNo); v != "8" {
		t.Errorf("expected NewSeqNo=8, got %q", v)
	}
	if v, _ := d.Get(constants.TagPossDupFlag); v != constants.PossDupYes {
		t.Errorf("expected PossDupFlag=Y, got %q", v)
	}
}

func TestSendApplicationReplayCarriesRawBodyAndPossDup(t *testing.T) {
	d := subscribeAndSend(t, func(p *TransportProxy, id session.Identity) transport.Status {
		return p.SendApplicationReplay(id, 4, 0, session.ReplayMessage{
			MsgType:         "8",
			RawBody:         []byte("55=BTC-USD\x01"),
			OrigSendingTime: "20260101-00:00:00.000",
		})
	})
	if d.MsgType != "8" {
		t.Fatalf("expected MsgType=8, got %q", d.MsgType)
	}
	if v, ok := d.Get(55); !ok || v != "BTC-USD" {
		t.Errorf("expected raw body field 55=BTC-USD to survive encode/decode, got %q ok=%v", v, ok)
	}
	if v, _ := d.Get(constants.TagOrigSendingTime); v != "20260101-00:00:00.000" {
		t.Errorf("expected OrigSendingTime preserved, got %q", v)
	}
	if v, _ := d.Get(constants.TagPossDupFlag); v != constants.PossDupYes {
		t.Errorf("expected PossDupFlag=Y, got %q", v)
	}
}

func TestBackPressurePropagatesFromTransport(t *testing.T) {
	tr := transport.NewInprocTransport()
	p := New(wire.NewEncoder(constants.PrecisionMillis), tr)
	id := session.Identity{SenderCompID: "US", TargetCompID: "THEM"}

	var last transport.Status
	for i := 0; i < 4200; i++ {
		last = p.SendHeartbeat(id, int32(i+1), 0, "")
	}
	if last != transport.BackPressure {
		t.Fatalf("expected BackPressure once the ring fills, got %v", last)
	}
}
