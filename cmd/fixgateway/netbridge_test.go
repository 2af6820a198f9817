package main

import (
	"bufio"
	"strings"
	"testing"
)

func TestReadFixMessageStopsAtChecksumField(t *testing.T) {
	const logon = "8=FIX.4.4\x019=40\x0135=A\x0149=THEM\x0156=US\x0134=1\x0198=0\x01108=30\x0110=128\x01"
	const next = "35=0\x0149=THEM\x0156=US\x0134=2\x0110=045\x01"

	r := bufio.NewReader(strings.NewReader(logon + next))

	first, err := readFixMessage(r)
	if err != nil {
		t.Fatalf("readFixMessage: %v", err)
	}
	if string(first) != logon {
		t.Fatalf("expected the scanner to stop exactly at the first CheckSum field,\n got %q\nwant %q", first, logon)
	}

	second, err := readFixMessage(r)
	if err != nil {
		t.Fatalf("readFixMessage (second): %v", err)
	}
	if string(second) != next {
		t.Fatalf("expected the second message isolated from the first,\n got %q\nwant %q", second, next)
	}
}

func TestEndsWithChecksumFieldRejectsOtherTrailingFields(t *testing.T) {
	if endsWithChecksumField([]byte("35=A\x01108=30\x01")) {
		t.Errorf("a trailing HeartBtInt field must not look like a CheckSum field")
	}
	if !endsWithChecksumField([]byte("35=A\x0110=000\x01")) {
		t.Errorf("expected a trailing 10=000 field to be recognized as CheckSum")
	}
}
