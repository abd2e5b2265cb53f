package builder

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"

	"github.com/9seconds/iplocation/geolib"
	"github.com/spf13/afero"
)

const streamWriteBufferSize = 1024 * 1024

// queue is a bounded channel between a CSV producer and a writer. A
// full queue blocks the producer until the writer drains it.
type queue chan []byte

func (q queue) Send(ctx context.Context, data []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q <- data:
		return nil
	}
}

type sink interface {
	Run() error
	Close()
}

// streamSink appends everything it gets into a single file.
type streamSink struct {
	fs    afero.Fs
	path  string
	queue queue
}

func (s *streamSink) Run() (err error) {
	fp, err := s.fs.Create(s.path)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", s.path, err)
	}

	defer func() {
		if closeErr := fp.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("cannot close %s: %w", s.path, closeErr)
		}
	}()

	writer := bufio.NewWriterSize(fp, streamWriteBufferSize)

	for data := range s.queue {
		if _, err := writer.Write(data); err != nil {
			return fmt.Errorf("cannot write to %s: %w", s.path, err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("cannot flush %s: %w", s.path, err)
	}

	return nil
}

func (s *streamSink) Close() {
	close(s.queue)
}

// shardSink distributes (end, payload) records into shard files of
// small memory mode. Each shard is collected in memory and written in
// one shot, so at most one shard is buffered at any moment.
type shardSink struct {
	fs       afero.Fs
	dir      string
	geometry geolib.ShardGeometry
	queue    queue
}

func (s *shardSink) Run() error {
	buf := make([]byte, 0, s.geometry.FileLineMax*s.geometry.RecordSize)
	line := 0
	folder, file := "", ""
	currentFolder := ""

	for data := range s.queue {
		if len(buf) == 0 {
			folder, file, _ = s.geometry.Locate(line)
		}

		buf = append(buf, data...)
		line++

		if line%s.geometry.FileLineMax != 0 {
			continue
		}

		if err := s.write(folder, file, buf, folder != currentFolder); err != nil {
			return err
		}

		currentFolder = folder
		buf = buf[:0]
	}

	if len(buf) > 0 {
		return s.write(folder, file, buf, folder != currentFolder)
	}

	return nil
}

func (s *shardSink) write(folder, file string, data []byte, newFolder bool) error {
	dir := filepath.Join(s.dir, folder)

	if newFolder {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create a shard folder %s: %w", dir, err)
		}
	}

	path := filepath.Join(dir, file)

	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write a shard %s: %w", path, err)
	}

	return nil
}

func (s *shardSink) Close() {
	close(s.queue)
}

// rangeWriter routes compacted ranges to sinks. In full memory mode
// starts, ends and payloads go to 3 separate files. In small memory
// mode starts still go to a file while ends and payloads go to shards.
type rangeWriter struct {
	starts   *streamSink
	ends     *streamSink
	payloads *streamSink
	shards   *shardSink
}

func (r *rangeWriter) Write(ctx context.Context, start, end, payload []byte) error {
	if err := r.starts.queue.Send(ctx, start); err != nil {
		return err
	}

	if r.shards != nil {
		record := make([]byte, 0, len(end)+len(payload))
		record = append(record, end...)
		record = append(record, payload...)

		return r.shards.queue.Send(ctx, record)
	}

	if err := r.ends.queue.Send(ctx, end); err != nil {
		return err
	}

	return r.payloads.queue.Send(ctx, payload)
}

func (r *rangeWriter) Sinks() []sink {
	if r.shards != nil {
		return []sink{r.starts, r.shards}
	}

	return []sink{r.starts, r.ends, r.payloads}
}

func (r *rangeWriter) Close() {
	for _, v := range r.Sinks() {
		v.Close()
	}
}
