package stats

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

type replyEntry struct {
	ReplyRecord
	Type string `json:"type"`
}

// Document builds the results document: all the deliveries followed by all
// the replies.
func Document(deliveries []DeliveryRecord, replies []ReplyRecord) []any {
	doc := make([]any, 0, len(deliveries)+len(replies))

	for _, d := range deliveries {
		doc = append(doc, d)
	}

	for _, r := range replies {
		doc = append(doc, replyEntry{ReplyRecord: r, Type: "reply"})
	}

	return doc
}

// Marshal renders the results document with four-space indentation.
func Marshal(deliveries []DeliveryRecord, replies []ReplyRecord) ([]byte, error) {
	data, err := json.MarshalIndent(Document(deliveries, replies), "", "    ")
	if err != nil {
		return nil, err
	}

	return append(data, '\n'), nil
}

type writerSink struct {
	w io.Writer
}

// JSONSink writes the results document to w.
func JSONSink(w io.Writer) Sink {
	return writerSink{w: w}
}

func (s writerSink) Write(deliveries []DeliveryRecord, replies []ReplyRecord) error {
	data, err := Marshal(deliveries, replies)
	if err != nil {
		return err
	}

	_, err = io.Copy(s.w, bytes.NewReader(data))

	return err
}

// FileSink writes the results document of one endpoint into a directory. Every
// export replaces the file.
type FileSink struct {
	Dir      string
	Endpoint string
}

// JSONFileSink creates a sink that writes
// dir/simulation_results_<endpoint>.json.
func JSONFileSink(dir, endpoint string) *FileSink {
	return &FileSink{Dir: dir, Endpoint: endpoint}
}

// Path returns the file that the sink writes.
func (s *FileSink) Path() string {
	return filepath.Join(s.Dir, fmt.Sprintf("simulation_results_%s.json", s.Endpoint))
}

func (s *FileSink) Write(deliveries []DeliveryRecord, replies []ReplyRecord) error {
	data, err := Marshal(deliveries, replies)
	if err != nil {
		return err
	}

	err = os.MkdirAll(s.Dir, 0o755)
	if err != nil {
		return fmt.Errorf("creating results directory: %w", err)
	}

	return os.WriteFile(s.Path(), data, 0o644)
}
