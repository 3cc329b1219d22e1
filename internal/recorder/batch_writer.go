package recorder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

const schemaVersion = "tick_row_v1"

// TickRow summarises one simulated tick.
type TickRow struct {
	Tick           int64  `parquet:"tick" json:"tick"`
	UnixMillis     int64  `parquet:"unix_millis" json:"unixMillis"`
	DurationMicros int64  `parquet:"duration_micros" json:"durationMicros"`
	Overrun        bool   `parquet:"overrun" json:"overrun"`
	Players        int32  `parquet:"players" json:"players"`
	Cells          int32  `parquet:"cells" json:"cells"`
	Food           int32  `parquet:"food" json:"food"`
	Commands       int32  `parquet:"commands" json:"commands"`
	Left           int32  `parquet:"left" json:"left"`
	FoodEaten      int32  `parquet:"food_eaten" json:"foodEaten"`
	FoodSpawned    int32  `parquet:"food_spawned" json:"foodSpawned"`
	Absorptions    int32  `parquet:"absorptions" json:"absorptions"`
	Merges         int32  `parquet:"merges" json:"merges"`
	Eliminated     int32  `parquet:"eliminated" json:"eliminated"`
	LeaderID       string `parquet:"leader_id,dict" json:"leaderId"`
	LeaderName     string `parquet:"leader_name,dict" json:"leaderName"`
	LeaderScore    int64  `parquet:"leader_score" json:"leaderScore"`
}

// batchWriter streams rows into tmp/<name> and moves the file into the output
// directory on finalize, so readers never observe a partial file.
type batchWriter struct {
	tmpPath string
	outPath string

	file   *os.File
	writer *parquet.GenericWriter[TickRow]

	rows int
}

func newBatchWriter(outDir string, now time.Time, seq uint64) (*batchWriter, error) {
	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("ticks_%d_%04d.parquet", now.UnixNano(), seq)
	tmpPath := filepath.Join(tmpDir, name)
	outPath := filepath.Join(outDir, name)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}

	w := parquet.NewGenericWriter[TickRow](
		f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	w.SetKeyValueMetadata("schema", schemaVersion)

	return &batchWriter{
		tmpPath: tmpPath,
		outPath: outPath,
		file:    f,
		writer:  w,
	}, nil
}

func (b *batchWriter) write(rows []TickRow) error {
	if b.writer == nil || b.file == nil {
		return fmt.Errorf("batch writer is closed")
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := b.writer.Write(rows); err != nil {
		return err
	}
	b.rows += len(rows)
	return nil
}

// finalize closes the writer and publishes the file. An empty batch is
// discarded and reports an empty path.
func (b *batchWriter) finalize() (string, int, error) {
	if b.writer == nil && b.file == nil {
		return "", 0, nil
	}

	var closeErr error
	if b.writer != nil {
		closeErr = b.writer.Close()
		b.writer = nil
	}
	var fileErr error
	if b.file != nil {
		_ = b.file.Sync()
		fileErr = b.file.Close()
		b.file = nil
	}
	if closeErr != nil {
		return "", 0, fmt.Errorf("close parquet writer: %w", closeErr)
	}
	if fileErr != nil {
		return "", 0, fmt.Errorf("close parquet file: %w", fileErr)
	}

	if b.rows == 0 {
		_ = os.Remove(b.tmpPath)
		return "", 0, nil
	}
	if err := os.Rename(b.tmpPath, b.outPath); err != nil {
		return "", 0, fmt.Errorf("rename parquet: %w", err)
	}
	return b.outPath, b.rows, nil
}

// ReadFile loads every row of a recorded batch.
func ReadFile(path string) ([]TickRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := parquet.NewGenericReader[TickRow](f)
	defer reader.Close()

	rows := make([]TickRow, 0, int(reader.NumRows()))
	buf := make([]TickRow, 256)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			rows = append(rows, buf[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return rows, err
		}
	}
	return rows, nil
}
