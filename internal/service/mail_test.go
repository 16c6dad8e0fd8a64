package service

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listen(t *testing.T) (net.Listener, string, int) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	return ln, host, p
}

// smtpServer answers one session and reports the envelope and DATA it saw.
func smtpServer(t *testing.T, ln net.Listener) <-chan []string {
	got := make(chan []string, 1)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var lines []string
		r := bufio.NewReader(conn)
		reply := func(s string) { conn.Write([]byte(s + "\r\n")) }

		reply("220 test ESMTP")
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				got <- lines
				return
			}
			line = strings.TrimRight(line, "\r\n")
			cmd := strings.ToUpper(line)

			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				reply("250 test")
			case strings.HasPrefix(cmd, "MAIL FROM"), strings.HasPrefix(cmd, "RCPT TO"):
				lines = append(lines, line)
				reply("250 ok")
			case cmd == "DATA":
				reply("354 go ahead")
				for {
					l, err := r.ReadString('\n')
					if err != nil {
						got <- lines
						return
					}
					if l == ".\r\n" {
						break
					}
					lines = append(lines, strings.TrimRight(l, "\r\n"))
				}
				reply("250 queued")
			case cmd == "QUIT":
				reply("221 bye")
				got <- lines
				return
			default:
				reply("502 unsupported")
			}
		}
	}()

	return got
}

func TestSMTPMailerDelivers(t *testing.T) {
	ln, host, port := listen(t)
	got := smtpServer(t, ln)

	// Admin mail goes to the sender address itself
	m := NewSMTPMailer(host, port, "noreply@x.com", "", 5*time.Second)
	err := m.Send(context.Background(), &Mail{
		To:      []string{"noreply@x.com", "b@x.com"},
		Subject: "Pending API keys",
		Body:    "<p>hi</p>",
	})
	require.NoError(t, err)

	var lines []string
	select {
	case lines = <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("server saw no session")
	}

	session := strings.Join(lines, "\n")
	assert.Contains(t, session, "MAIL FROM:<noreply@x.com>")
	assert.Contains(t, session, "RCPT TO:<noreply@x.com>")
	assert.Contains(t, session, "RCPT TO:<b@x.com>")
	assert.Contains(t, session, "Subject: Pending API keys")
}

func TestSMTPMailerTimesOutOnStalledServer(t *testing.T) {
	ln, host, port := listen(t)

	closed := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		// Never greet, wait for the client to hang up
		conn.Read(make([]byte, 1))
		conn.Close()
		close(closed)
	}()

	m := NewSMTPMailer(host, port, "noreply@x.com", "", 200*time.Millisecond)

	start := time.Now()
	err := m.Send(context.Background(), &Mail{To: []string{"a@x.com"}})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("connection left open after the timeout")
	}
}

func TestSMTPMailerHonoursCallerContext(t *testing.T) {
	ln, host, port := listen(t)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			defer conn.Close()
			conn.Read(make([]byte, 1))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	m := NewSMTPMailer(host, port, "noreply@x.com", "", time.Minute)
	err := m.Send(ctx, &Mail{To: []string{"a@x.com"}})
	assert.ErrorIs(t, err, context.Canceled)
}
