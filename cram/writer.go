package cram

import (
	"fmt"
	"io"

	"github.com/Schaudge/cram/refcache"
	"github.com/Schaudge/cram/sam"
	"v.io/x/lib/vlog"
)

// Writer buffers sam.Records into slices and assembles CRAM containers
// as Options' sizing thresholds trip. With Verbose set, failures are
// logged to stderr before the error is returned.
type Writer struct {
	opts    Options
	header  *sam.Header
	refs    *refcache.Cache
	metrics *tagMetrics
	pool    *Pool
	out     io.Writer

	current      *sliceAssembler
	curAux       *auxEncoder
	pending      []*sliceAssembler
	recCounter   int64
	containerSeq int
	closed       bool

	// jobs holds in-flight/completed container builds in submission
	// order. Building runs on the pool as container-grained work units;
	// emit always drains jobs front-to-back, so output ordering matches
	// submission ordering even though build completion order may not.
	jobs []*containerJob
}

// containerJob is one pending or completed container build.
type containerJob struct {
	done chan struct{}
	c    *Container
	err  error
}

// NewWriter constructs a Writer for header, writing containers to out as
// thresholds trip. refs is the reference cache collaborator; pool may be
// nil (containers are then built on the calling goroutine).
func NewWriter(out io.Writer, header *sam.Header, refs *refcache.Cache, opts Options, pool *Pool) (*Writer, error) {
	if header == nil {
		return nil, fmt.Errorf("cram: nil header")
	}
	if opts.SeqsPerSlice <= 0 {
		return nil, fmt.Errorf("cram: SeqsPerSlice must be positive")
	}
	if opts.SlicesPerContainer <= 0 {
		return nil, fmt.Errorf("cram: SlicesPerContainer must be positive")
	}
	w := &Writer{
		opts:    opts,
		header:  header,
		refs:    refs,
		metrics: newTagMetrics(),
		pool:    pool,
		out:     out,
	}
	w.curAux = newAuxEncoder(w.metrics)
	w.current = newSliceAssembler(opts, header, refs, w.curAux, w.recCounter)
	return w, nil
}

// AddRecord appends rec to the current slice. Allocation, CIGAR, and
// reference failures are fatal for the current container: the caller
// must discard it, and this Writer cannot be reused after an error.
func (w *Writer) AddRecord(rec *sam.Record) error {
	if w.closed {
		return fmt.Errorf("cram: write on closed Writer")
	}
	if err := w.current.AddRecord(rec); err != nil {
		w.logf("cram: record add failed: %v", err)
		return err
	}
	w.recCounter++

	full := len(w.current.records) >= w.opts.SeqsPerSlice
	if w.opts.BasesPerSlice > 0 && len(w.current.bases) >= w.opts.BasesPerSlice {
		full = true
	}
	if full {
		if err := w.rotateSlice(); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) rotateSlice() error {
	w.pending = append(w.pending, w.current)

	var err error
	if len(w.pending) >= w.opts.SlicesPerContainer {
		err = w.flushContainer()
	}
	// A new container gets a fresh aux encoder; slices within one
	// container keep sharing it so TL indices remain container-wide.
	w.current = newSliceAssembler(w.opts, w.header, w.refs, w.curAux, w.recCounter)
	return err
}

// flushContainer hands the pending slices off as one container-grained
// work unit, building it on w.pool if one was supplied, and
// opportunistically draining any jobs whose turn has come.
func (w *Writer) flushContainer() error {
	if len(w.pending) == 0 {
		return nil
	}
	slices := w.pending
	w.pending = nil
	w.containerSeq++
	w.curAux = newAuxEncoder(w.metrics)

	job := &containerJob{done: make(chan struct{})}
	w.jobs = append(w.jobs, job)

	if w.pool != nil {
		w.pool.Submit(func() {
			job.c, job.err = w.buildContainer(slices)
			close(job.done)
		})
	} else {
		job.c, job.err = w.buildContainer(slices)
		close(job.done)
	}

	return w.drainReady()
}

// drainReady emits every completed job at the front of the queue, in
// submission order, without blocking on a job that hasn't finished yet.
func (w *Writer) drainReady() error {
	for len(w.jobs) > 0 {
		select {
		case <-w.jobs[0].done:
			if err := w.emitJob(w.jobs[0]); err != nil {
				return err
			}
			w.jobs = w.jobs[1:]
		default:
			return nil
		}
	}
	return nil
}

// drainAll blocks until every outstanding job has completed and been
// emitted, in submission order.
func (w *Writer) drainAll() error {
	for len(w.jobs) > 0 {
		<-w.jobs[0].done
		if err := w.emitJob(w.jobs[0]); err != nil {
			return err
		}
		w.jobs = w.jobs[1:]
	}
	return nil
}

func (w *Writer) emitJob(job *containerJob) error {
	if job.err != nil {
		w.logf("cram: container build failed: %v", job.err)
		return job.err
	}
	if err := w.emit(job.c); err != nil {
		w.logf("cram: container emit failed: %v", err)
		return err
	}
	return nil
}

// emit writes the container header, the compression header, and then
// each slice's header and blocks, in on-disk order.
func (w *Writer) emit(c *Container) error {
	if _, err := w.out.Write(c.MarshalContainerHeader()); err != nil {
		return err
	}
	if _, err := w.out.Write(c.Header.Marshal()); err != nil {
		return err
	}
	for _, sl := range c.Slices {
		if _, err := w.out.Write(sl.MarshalSliceHeader()); err != nil {
			return err
		}
		if _, err := w.out.Write(sl.CoreBlock); err != nil {
			return err
		}
		for _, id := range sl.ContentIDs {
			if _, err := w.out.Write(sl.Blocks[id]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close flushes any buffered records into a final (possibly short)
// container and closes out the Writer. A second call does nothing and
// returns nil.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if len(w.current.records) > 0 {
		w.pending = append(w.pending, w.current)
	}
	if err := w.flushContainer(); err != nil {
		return err
	}
	return w.drainAll()
}

func (w *Writer) logf(format string, args ...interface{}) {
	if w.opts.Verbose {
		vlog.Errorf(format, args...)
	}
}
