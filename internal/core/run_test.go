package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x-stp/extref/internal/client"
	"github.com/x-stp/extref/internal/target"
	"github.com/x-stp/extref/internal/wire"
)

// cannedServer answers a single connection with resp once the request head
// has arrived, then closes it.
func cannedServer(t *testing.T, resp string) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := make([]byte, 4096)
		var head []byte
		for !bytes.Contains(head, []byte(wire.HeaderDelimiter)) {
			n, err := conn.Read(buf)
			head = append(head, buf[:n]...)
			if err != nil {
				return
			}
		}
		io.WriteString(conn, resp)
	}()
	return ln.Addr().String()
}

func TestRunPrintsReport(t *testing.T) {
	t.Parallel()

	addr := cannedServer(t, "HTTP/1.1 200 OK\r\nContent-Type: text/html\r\n\r\n"+
		`<a href="https://example.org/a">x</a>`+
		`<img src="http://cdn.example.net/i.png">`+
		`<a href="https://example.org/b">y</a>`)

	var out bytes.Buffer
	res, err := Run(context.Background(), Options{URL: "http://" + addr + "/"}, &out, zerolog.Nop())
	require.NoError(t, err)

	want := client.ClosingNotice + "\n" +
		"\n" +
		"UNIQUE EXTERNAL REFERENCE DOMAINS:\n" +
		"==========================================\n" +
		"cdn.example.net\n" +
		"example.org\n" +
		"\n" +
		"TOTAL OF 2 UNIQUE EXTERNAL REFERENCES\n"
	assert.Equal(t, want, out.String())
	assert.Equal(t, "HTTP/1.1 200 OK", res.StatusLine)
	assert.Equal(t, "127.0.0.1", res.Target.Host)
	assert.Equal(t, addr, res.Target.Authority)
}

func TestRunExcludesOnlyTheVerbatimAuthority(t *testing.T) {
	t.Parallel()

	// The page lives at 127.0.0.1:<port>, so a link to the bare IP is a
	// different name and must be reported.
	addr := cannedServer(t, "HTTP/1.1 200 OK\r\n\r\n"+
		`<a href="http://127.0.0.1/self">`+
		`<a href="https://example.org/">`)

	var out bytes.Buffer
	res, err := Run(context.Background(), Options{URL: "http://" + addr + "/"}, &out, zerolog.Nop())
	require.NoError(t, err)

	assert.True(t, res.Refs.Contains("127.0.0.1"))
	assert.Equal(t, []string{"127.0.0.1", "example.org"}, res.Refs.Sorted())
	assert.Contains(t, out.String(), "\n127.0.0.1\nexample.org\n")
	assert.Contains(t, out.String(), "TOTAL OF 2 UNIQUE EXTERNAL REFERENCES\n")
}

func TestRunSendsAuthorityAsHostHeader(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	heads := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			heads <- ""
			return
		}
		defer conn.Close()
		buf := make([]byte, 4096)
		var head []byte
		for !bytes.Contains(head, []byte(wire.HeaderDelimiter)) {
			n, err := conn.Read(buf)
			head = append(head, buf[:n]...)
			if err != nil {
				break
			}
		}
		heads <- string(head)
		io.WriteString(conn, "HTTP/1.1 200 OK\r\n\r\n")
	}()

	_, err = Run(context.Background(), Options{URL: "http://" + ln.Addr().String() + "/p"}, io.Discard, zerolog.Nop())
	require.NoError(t, err)
	assert.Contains(t, <-heads, "GET /p HTTP/1.1\r\nHost: "+ln.Addr().String()+"\r\n")
}

func TestRunFingerprintIgnoresOrderAndDuplicates(t *testing.T) {
	t.Parallel()

	first := cannedServer(t, "HTTP/1.1 200 OK\r\n\r\n"+
		`<a href="https://a.example/">`+`<a href="https://b.example/">`)
	second := cannedServer(t, "HTTP/1.1 200 OK\r\n\r\n"+
		`<a href="https://b.example/x">`+`<a href="https://a.example/y">`+`<a href="https://b.example/z">`)
	third := cannedServer(t, "HTTP/1.1 200 OK\r\n\r\n"+`<a href="https://a.example/">`)

	run := func(addr string) string {
		res, err := Run(context.Background(), Options{URL: "http://" + addr + "/"}, io.Discard, zerolog.Nop())
		require.NoError(t, err)
		assert.Len(t, res.Fingerprint, 16)
		return res.Fingerprint
	}
	fpFirst, fpSecond, fpThird := run(first), run(second), run(third)
	assert.Equal(t, fpFirst, fpSecond)
	assert.NotEqual(t, fpFirst, fpThird)
}

func TestRunNoneFound(t *testing.T) {
	t.Parallel()

	addr := cannedServer(t, "HTTP/1.1 200 OK\r\n\r\n<p>nothing here</p>")

	var out bytes.Buffer
	_, err := Run(context.Background(), Options{URL: "http://" + addr + "/"}, &out, zerolog.Nop())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "NONE FOUND\n")
	assert.Contains(t, out.String(), "TOTAL OF 0 UNIQUE EXTERNAL REFERENCES\n")
}

func TestRunMalformedResponse(t *testing.T) {
	t.Parallel()

	addr := cannedServer(t, "HTTP/1.1 200 OK\r\nno delimiter anywhere")

	var out bytes.Buffer
	_, err := Run(context.Background(), Options{URL: "http://" + addr + "/"}, &out, zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, wire.ErrNoBody)
	assert.Equal(t, KindMalformed, KindOf(err))
	assert.Equal(t, ExitMalformed, ExitCode(err))
	assert.Equal(t, client.ClosingNotice+"\n", out.String(), "socket is closed before the split fails")
}

func TestRunRejectsUnsupportedScheme(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	_, err := Run(context.Background(), Options{URL: "ftp://example.com"}, &out, zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, target.ErrUnsupportedScheme)
	assert.True(t, IsUsage(err))
	assert.Equal(t, ExitUsage, ExitCode(err))
	assert.Empty(t, out.String())
}

func TestRunConnectionRefused(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	var out bytes.Buffer
	_, err = Run(context.Background(), Options{URL: "http://" + addr + "/"}, &out, zerolog.Nop())
	require.Error(t, err)
	assert.Equal(t, ExitConnection, ExitCode(err))
	assert.Empty(t, out.String())
}

func TestRunSavesBody(t *testing.T) {
	t.Parallel()

	body := `<a href="https://example.org/">`
	addr := cannedServer(t, "HTTP/1.1 200 OK\r\n\r\n"+body)
	dir := filepath.Join(t.TempDir(), "bodies")

	_, err := Run(context.Background(), Options{
		URL:         "http://" + addr + "/index.html",
		SaveBodyDir: dir,
		Client:      &client.Config{ChunkSize: 3},
	}, io.Discard, zerolog.Nop())
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "127.0.0.1_"+addr[len("127.0.0.1:"):]+"_index.html.body", entries[0].Name())

	got, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
}

func TestRunSaveBodyFailureIsIO(t *testing.T) {
	t.Parallel()

	addr := cannedServer(t, "HTTP/1.1 200 OK\r\n\r\nbody")
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := Run(context.Background(), Options{
		URL:         "http://" + addr + "/",
		SaveBodyDir: blocker,
	}, io.Discard, zerolog.Nop())
	require.Error(t, err)
	assert.Equal(t, ExitIO, ExitCode(err))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("stdout gone") }

func TestRunReportWriteFailureIsIO(t *testing.T) {
	t.Parallel()

	addr := cannedServer(t, "HTTP/1.1 200 OK\r\n\r\nbody")
	_, err := Run(context.Background(), Options{URL: "http://" + addr + "/"}, failingWriter{}, zerolog.Nop())
	require.Error(t, err)
	assert.Equal(t, KindIO, KindOf(err))
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{NewError(KindUsage, UsageMissingURI), ExitUsage},
		{WrapError(KindConnection, "", errors.New("refused")), ExitConnection},
		{fmt.Errorf("outer: %w", WrapError(KindMalformed, "", wire.ErrNoBody)), ExitMalformed},
		{WrapError(KindIO, "dump", errors.New("disk full")), ExitIO},
		{errors.New("unclassified"), ExitUsage},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(tt.err), "%v", tt.err)
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	assert.Nil(t, WrapError(KindIO, "x", nil))
	assert.Equal(t, "disk full", WrapError(KindIO, "", errors.New("disk full")).Error())
	assert.Equal(t, "dump: disk full", WrapError(KindIO, "dump", errors.New("disk full")).Error())
	assert.Equal(t, UsageMissingURI, NewError(KindUsage, UsageMissingURI).Error())
	assert.Equal(t, "connection", KindConnection.String())
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}
