package session

import (
	"testing"
	"time"

	"fixgateway/clock"
	"fixgateway/transport"

	"github.com/quickfixgo/quickfix"
)

// recordingProxy implements Proxy and records every call for assertions, a
// small hand-rolled test double in place of a mocking framework.
type recordingProxy struct {
	calls      []string
	nextStatus transport.Status
	lastBegin  int32
	lastEnd    int32
	disconnects int
}

func (p *recordingProxy) status() transport.Status {
	if p.nextStatus == 0 {
		return transport.OK
	}
	return p.nextStatus
}

func (p *recordingProxy) SendLogon(id Identity, seq int32, st int64, hb int, reset bool) transport.Status {
	p.calls = append(p.calls, "logon")
	return p.status()
}
func (p *recordingProxy) SendLogout(id Identity, seq int32, st int64, text string) transport.Status {
	p.calls = append(p.calls, "logout")
	return p.status()
}
func (p *recordingProxy) SendHeartbeat(id Identity, seq int32, st int64, testReqID string) transport.Status {
	p.calls = append(p.calls, "heartbeat")
	return p.status()
}
func (p *recordingProxy) SendTestRequest(id Identity, seq int32, st int64, testReqID string) transport.Status {
	p.calls = append(p.calls, "test_request")
	return p.status()
}
func (p *recordingProxy) SendResendRequest(id Identity, seq int32, st int64, begin, end int32) transport.Status {
	p.calls = append(p.calls, "resend_request")
	p.lastBegin, p.lastEnd = begin, end
	return p.status()
}
func (p *recordingProxy) SendReject(id Identity, seq int32, st int64, refSeqNum int32, refTagID quickfix.Tag, refMsgType, reason, text string) transport.Status {
	p.calls = append(p.calls, "reject")
	return p.status()
}
func (p *recordingProxy) SendSequenceReset(id Identity, seq int32, st int64, newSeqNo int32, gapFill, possDup bool) transport.Status {
	p.calls = append(p.calls, "sequence_reset")
	return p.status()
}
func (p *recordingProxy) SendApplicationReplay(id Identity, seq int32, st int64, msg ReplayMessage) transport.Status {
	p.calls = append(p.calls, "application_replay")
	return p.status()
}
func (p *recordingProxy) Disconnect(id Identity) {
	p.disconnects++
}

func (p *recordingProxy) count(name string) int {
	n := 0
	for _, c := range p.calls {
		if c == name {
			n++
		}
	}
	return n
}

func newActiveSession(proxy *recordingProxy, mc *clock.Manual) *Session {
	sess := New(Config{
		SessionID:            1,
		SenderCompID:         "US",
		TargetCompID:         "THEM",
		HeartbeatIntervalSec: 30,
	}, mc, proxy, nil, nil)
	sess.state = Active
	sess.expectedSeqNo = 1
	sess.lastSentMsgSeqNum = 1
	sess.markActive()
	return sess
}

func TestHeartbeatAfterInterval(t *testing.T) {
	mc := clock.NewManual(0)
	proxy := &recordingProxy{}
	sess := newActiveSession(proxy, mc)

	mc.Advance(30 * time.Second)
	sess.Poll(mc.MonotonicNanos())

	if proxy.count("heartbeat") != 1 {
		t.Fatalf("expected exactly one heartbeat, got calls=%v", proxy.calls)
	}
	if sess.LastSentMsgSeqNum() != 2 {
		t.Errorf("expected lastSentMsgSeqNum=2, got %d", sess.LastSentMsgSeqNum())
	}
}

func TestTimeoutDisconnect(t *testing.T) {
	mc := clock.NewManual(0)
	proxy := &recordingProxy{}
	sess := newActiveSession(proxy, mc)

	mc.Advance(1 * time.Second)
	sess.OnMessage(10, false)

	mc.Advance(60 * time.Second) // 60s since onMessage's receive at t0+1s: reaches 2*30s
	sess.Poll(mc.MonotonicNanos())

	if sess.State() != Disconnected {
		t.Fatalf("expected state=DISCONNECTED, got %s", sess.State())
	}
	if proxy.disconnects != 1 {
		t.Errorf("expected Disconnect called once, got %d", proxy.disconnects)
	}
}

func TestHighSeqTriggersResend(t *testing.T) {
	mc := clock.NewManual(0)
	proxy := &recordingProxy{}
	sess := newActiveSession(proxy, mc)
	sess.expectedSeqNo = 1

	accepted := sess.OnMessage(3, false)

	if accepted {
		t.Errorf("expected message not accepted while gap outstanding")
	}
	if sess.State() != AwaitingResend {
		t.Fatalf("expected state=AWAITING_RESEND, got %s", sess.State())
	}
	if sess.ExpectedSeqNo() != 1 {
		t.Errorf("expected expectedSeqNo to remain 1, got %d", sess.ExpectedSeqNo())
	}
	if proxy.count("resend_request") != 1 {
		t.Fatalf("expected one ResendRequest, got calls=%v", proxy.calls)
	}
	if proxy.lastBegin != 1 || proxy.lastEnd != 0 {
		t.Errorf("expected ResendRequest(begin=1,end=0), got begin=%d end=%d", proxy.lastBegin, proxy.lastEnd)
	}
}

func TestRequestResendSendsManualResendRequest(t *testing.T) {
	mc := clock.NewManual(0)
	proxy := &recordingProxy{}
	sess := newActiveSession(proxy, mc)

	sess.RequestResend(4, 9)

	if proxy.count("resend_request") != 1 {
		t.Fatalf("expected one ResendRequest, got calls=%v", proxy.calls)
	}
	if proxy.lastBegin != 4 || proxy.lastEnd != 9 {
		t.Errorf("expected ResendRequest(begin=4,end=9), got begin=%d end=%d", proxy.lastBegin, proxy.lastEnd)
	}
}

func TestLowSeqWithoutPossDupDisconnects(t *testing.T) {
	mc := clock.NewManual(0)
	proxy := &recordingProxy{}
	sess := newActiveSession(proxy, mc)
	sess.expectedSeqNo = 3

	sess.OnMessage(1, false)

	if sess.State() != Disconnected {
		t.Fatalf("expected DISCONNECTED, got %s", sess.State())
	}
	if proxy.count("logout") != 1 {
		t.Errorf("expected a Logout to be sent, got calls=%v", proxy.calls)
	}
}

// Low seq, PossDup=Y -> silently ignored.
func TestLowSeqWithPossDupIgnored(t *testing.T) {
	mc := clock.NewManual(0)
	proxy := &recordingProxy{}
	sess := newActiveSession(proxy, mc)
	sess.expectedSeqNo = 3

	accepted := sess.OnMessage(1, true)

	if accepted {
		t.Errorf("expected possdup low-seq message not 'accepted'")
	}
	if sess.State() != Active {
		t.Errorf("expected state to remain ACTIVE, got %s", sess.State())
	}
	if len(proxy.calls) != 0 {
		t.Errorf("expected no outbound messages, got %v", proxy.calls)
	}
}

func TestUnnecessarySequenceResetAccepted(t *testing.T) {
	mc := clock.NewManual(0)
	proxy := &recordingProxy{}
	sess := newActiveSession(proxy, mc)
	sess.expectedSeqNo = 4

	sess.OnSequenceReset(4, 4, false, false)

	if sess.ExpectedSeqNo() != 4 {
		t.Errorf("expected expectedSeqNo=4, got %d", sess.ExpectedSeqNo())
	}
	if len(proxy.calls) != 0 {
		t.Errorf("expected no outbound messages, got %v", proxy.calls)
	}
}

func TestSequenceResetRejectsNonIncreasingNewSeqNo(t *testing.T) {
	mc := clock.NewManual(0)
	proxy := &recordingProxy{}
	sess := newActiveSession(proxy, mc)
	sess.expectedSeqNo = 5

	sess.OnSequenceReset(5, 3, false, false)

	if proxy.count("reject") != 1 {
		t.Fatalf("expected Reject for newSeqNo < expected, got calls=%v", proxy.calls)
	}
	if sess.ExpectedSeqNo() != 5 {
		t.Errorf("expected expectedSeqNo unchanged at 5, got %d", sess.ExpectedSeqNo())
	}
}

func TestGapFillAdvancesExpectedSeqNo(t *testing.T) {
	mc := clock.NewManual(0)
	proxy := &recordingProxy{}
	sess := newActiveSession(proxy, mc)
	sess.expectedSeqNo = 3

	sess.OnSequenceReset(3, 5, true, false)

	if sess.ExpectedSeqNo() != 5 {
		t.Errorf("expected expectedSeqNo=5, got %d", sess.ExpectedSeqNo())
	}
}

func TestGapFillWithNewSeqNoBelowMsgSeqNumDisconnects(t *testing.T) {
	mc := clock.NewManual(0)
	proxy := &recordingProxy{}
	sess := newActiveSession(proxy, mc)
	sess.expectedSeqNo = 3

	sess.OnSequenceReset(3, 2, true, false)

	if sess.State() != Disconnected {
		t.Fatalf("expected DISCONNECTED for newSeqNo < msgSeqNum, got %s", sess.State())
	}
}

func TestBackPressureRetriesWithoutDuplicating(t *testing.T) {
	mc := clock.NewManual(0)
	proxy := &recordingProxy{nextStatus: transport.BackPressure}
	sess := newActiveSession(proxy, mc)

	mc.Advance(30 * time.Second)
	sess.Poll(mc.MonotonicNanos())
	if proxy.count("heartbeat") != 1 {
		t.Fatalf("expected 1 heartbeat attempt, got %v", proxy.calls)
	}
	if sess.LastSentMsgSeqNum() != 1 {
		t.Errorf("expected lastSentMsgSeqNum to remain 1 on back-pressure, got %d", sess.LastSentMsgSeqNum())
	}

	proxy.nextStatus = transport.OK
	sess.Poll(mc.MonotonicNanos())
	if proxy.count("heartbeat") != 2 {
		t.Fatalf("expected retry to re-attempt heartbeat, got %v", proxy.calls)
	}
	if sess.LastSentMsgSeqNum() != 2 {
		t.Errorf("expected lastSentMsgSeqNum=2 after successful retry, got %d", sess.LastSentMsgSeqNum())
	}
}

func TestResetSeqNumFlagOnLogon(t *testing.T) {
	mc := clock.NewManual(0)
	proxy := &recordingProxy{}
	sess := New(Config{SessionID: 1, SenderCompID: "US", TargetCompID: "THEM", HeartbeatIntervalSec: 30}, mc, proxy, nil, nil)

	sess.OnLogon(1, 30, true)

	if sess.ExpectedSeqNo() != 2 {
		t.Errorf("expected expectedSeqNo=2 after reset logon, got %d", sess.ExpectedSeqNo())
	}
	if sess.State() != Active {
		t.Errorf("expected state=ACTIVE after acceptor replies to logon, got %s", sess.State())
	}
	if proxy.count("logon") != 1 {
		t.Errorf("expected acceptor to echo Logon, got calls=%v", proxy.calls)
	}
}
