package relay

import (
	"io"
	"net/http"

	"github.com/pion/rtp"
)

const tsSyncByte = 0x47

// mediaPayload returns the MPEG-TS bytes of a multicast datagram. Operators
// send either raw TS or TS wrapped in RTP; the RTP header is stripped when
// present.
func mediaPayload(datagram []byte) []byte {
	if len(datagram) == 0 || datagram[0] == tsSyncByte {
		return datagram
	}
	if datagram[0]>>6 != 2 {
		return datagram
	}
	var pkt rtp.Packet
	if err := pkt.Unmarshal(datagram); err != nil {
		return datagram
	}
	return pkt.Payload
}

// flushWriter forwards chunks to the client and flushes after each one when
// the writer supports it.
type flushWriter struct {
	w       io.Writer
	flusher http.Flusher
	written int64
}

func newFlushWriter(w io.Writer) *flushWriter {
	fw := &flushWriter{w: w}
	if f, ok := w.(http.Flusher); ok {
		fw.flusher = f
	}
	return fw
}

func (fw *flushWriter) write(p []byte) error {
	n, err := fw.w.Write(p)
	fw.written += int64(n)
	if err != nil {
		return err
	}
	if fw.flusher != nil {
		fw.flusher.Flush()
	}
	return nil
}
