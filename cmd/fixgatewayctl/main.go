// Command fixgatewayctl is the operator console: a readline REPL that
// talks to a running fixgateway process over its control HTTP API to
// inspect session state, force a logout, or issue a manual
// ResendRequest. Same readline completer tree and command dispatch loop
// as a market-data/order-entry console, applied instead to session
// inspection commands.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
)

type sessionSummary struct {
	SessionID         uint64
	State             int
	LastSentMsgSeqNum int32
	ExpectedSeqNo     int32
}

var stateNames = []string{"CONNECTING", "CONNECTED", "SENT_LOGON", "ACTIVE", "AWAITING_RESEND", "SENT_LOGOUT", "DISCONNECTED"}

func (s sessionSummary) stateName() string {
	if s.State < 0 || s.State >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s.State]
}

type client struct {
	baseURL string
	http    *http.Client
}

func newClient(addr string) *client {
	return &client{
		baseURL: "http://" + addr,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *client) sessions() ([]sessionSummary, error) {
	resp, err := c.http.Get(c.baseURL + "/sessions")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}
	var out []sessionSummary
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) resend(sessionID uint64, begin, end int32) error {
	return c.post("/resend", map[string]any{"session_id": sessionID, "begin": begin, "end": end})
}

func (c *client) logout(sessionID uint64) error {
	return c.post("/logout", map[string]any{"session_id": sessionID})
}

func (c *client) post(path string, body map[string]any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(buf))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}

func main() {
	addr := flag.String("addr", "127.0.0.1:9091", "fixgateway control address")
	flag.Parse()

	c := newClient(*addr)
	repl(c)
}

func repl(c *client) {
	completer := readline.NewPrefixCompleter(
		readline.PcItem("sessions"),
		readline.PcItem("resend"),
		readline.PcItem("logout"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "fixgatewayctl> ",
		HistoryFile:     "/tmp/fixgatewayctl_history",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Println("failed to create readline:", err)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}

		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) == 0 {
			continue
		}

		switch strings.ToLower(parts[0]) {
		case "sessions":
			handleSessions(c)
		case "resend":
			handleResend(c, parts)
		case "logout":
			handleLogout(c, parts)
		case "help":
			displayHelp()
		case "exit":
			return
		default:
			fmt.Println("Unknown command. Type 'help' for available commands.")
		}
	}
}

func handleSessions(c *client) {
	sessions, err := c.sessions()
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions configured")
		return
	}
	fmt.Printf("%-12s %-16s %-10s %-10s\n", "SessionID", "State", "LastSent", "Expected")
	for _, s := range sessions {
		fmt.Printf("%-12d %-16s %-10d %-10d\n", s.SessionID, s.stateName(), s.LastSentMsgSeqNum, s.ExpectedSeqNo)
	}
}

func handleResend(c *client, parts []string) {
	if len(parts) != 4 {
		fmt.Println("Usage: resend <sessionId> <beginSeqNo> <endSeqNo>")
		return
	}
	sessionID, begin, end, err := parseSessionRange(parts)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if err := c.resend(sessionID, begin, end); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Printf("ResendRequest queued for session %d [%d, %d]\n", sessionID, begin, end)
}

func handleLogout(c *client, parts []string) {
	if len(parts) != 2 {
		fmt.Println("Usage: logout <sessionId>")
		return
	}
	sessionID, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		fmt.Println("Error: invalid sessionId:", err)
		return
	}
	if err := c.logout(sessionID); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Printf("Logout requested for session %d\n", sessionID)
}

func parseSessionRange(parts []string) (uint64, int32, int32, error) {
	sessionID, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid sessionId: %w", err)
	}
	begin, err := strconv.ParseInt(parts[2], 10, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid beginSeqNo: %w", err)
	}
	end, err := strconv.ParseInt(parts[3], 10, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid endSeqNo: %w", err)
	}
	return sessionID, int32(begin), int32(end), nil
}

func displayHelp() {
	fmt.Print(`Commands:
  sessions                          - list configured sessions and their state
  resend <sessionId> <begin> <end>  - issue a manual ResendRequest
  logout <sessionId>                - force a graceful logout
  help                               - show this message
  exit                               - quit
`)
}
