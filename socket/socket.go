// Package socket frames GIOP messages on a buffered byte stream.
package socket

import (
	"bufio"
	"context"
	"io"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/brodyxchen/giop/constant"
	"github.com/brodyxchen/giop/corba"
	"github.com/brodyxchen/giop/protocols"
)

var logger = loggo.GetLogger("giop.socket")

// ReadMessage reads one GIOP message and returns its parsed header and
// the whole message, header bytes included. Header validation errors are
// system exceptions; they leave the stream unsynchronised and the caller
// must close the connection.
func ReadMessage(ctx context.Context, key string, reader *bufio.Reader) (protocols.Header, []byte, error) {
	select {
	case <-ctx.Done():
		return protocols.Header{}, nil, corba.ErrCtxReadDone
	default:
	}

	headerBuf := make([]byte, protocols.HeaderSize)
	n, err := io.ReadFull(reader, headerBuf)
	if err != nil {
		if err == io.EOF {
			// clean close between two messages
			return protocols.Header{}, nil, err
		}
		logger.Debugf("%v read header failed after %d bytes: %v", key, n, err)
		return protocols.Header{}, nil, err
	}

	header, err := protocols.ParseHeader(headerBuf)
	if err != nil {
		logger.Errorf("%v invalid header % x: %v", key, headerBuf, err)
		return protocols.Header{}, nil, err
	}
	if header.Length > constant.MaxMessageSize {
		logger.Errorf("%v message length %d exceeds %d", key, header.Length, constant.MaxMessageSize)
		return header, nil, errors.Annotatef(corba.ErrExceedBody, "length %d", header.Length)
	}

	msg := make([]byte, protocols.HeaderSize+int(header.Length))
	copy(msg, headerBuf)
	if header.Length == 0 {
		return header, msg, nil
	}
	if _, err = io.ReadFull(reader, msg[protocols.HeaderSize:]); err != nil {
		if err == io.EOF {
			return header, nil, io.ErrUnexpectedEOF
		}
		return header, nil, err
	}
	return header, msg, nil
}

// WriteMessage writes complete messages and flushes the writer once.
func WriteMessage(ctx context.Context, writer *bufio.Writer, msgs ...[]byte) error {
	select {
	case <-ctx.Done():
		return corba.ErrCtxWriteDone
	default:
	}

	for _, msg := range msgs {
		if len(msg) < protocols.HeaderSize {
			return errors.Trace(corba.ErrInvalidHeader)
		}
		if _, err := writer.Write(msg); err != nil {
			return err
		}
	}
	return writer.Flush()
}
