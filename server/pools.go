package server

import (
	"bufio"
	"io"
	"sync"
)

// bufferPools recycles the buffered reader and writer of accepted
// connections. All buffers of one pool have the configured size.
type bufferPools struct {
	readSize  int
	writeSize int

	readers sync.Pool
	writers sync.Pool
}

func newBufferPools(readSize, writeSize int) *bufferPools {
	return &bufferPools{readSize: readSize, writeSize: writeSize}
}

func (p *bufferPools) getReader(r io.Reader) *bufio.Reader {
	if v := p.readers.Get(); v != nil {
		br := v.(*bufio.Reader)
		br.Reset(r)
		return br
	}
	return bufio.NewReaderSize(r, p.readSize)
}

func (p *bufferPools) putReader(br *bufio.Reader) {
	br.Reset(nil)
	p.readers.Put(br)
}

func (p *bufferPools) getWriter(w io.Writer) *bufio.Writer {
	if v := p.writers.Get(); v != nil {
		bw := v.(*bufio.Writer)
		bw.Reset(w)
		return bw
	}
	return bufio.NewWriterSize(w, p.writeSize)
}

func (p *bufferPools) putWriter(bw *bufio.Writer) {
	bw.Reset(nil)
	p.writers.Put(bw)
}
