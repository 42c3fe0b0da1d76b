package pipeline

import (
	"bytes"
	"encoding/json"

	"github.com/jonathan/resume-parser/internal/types"
)

// OutputMessage is the message carried by every successful batch response.
const OutputMessage = "Resumes parsed and saved successfully"

// Output is the wire form of a batch: one entry per document in submission order.
type Output struct {
	Message string       `json:"message"`
	BatchID string       `json:"batch_id"`
	Data    []OutputItem `json:"data"`
}

// OutputItem renders as the flat record with a leading "file" key, or as
// {"file": ..., "error": ...} for a failed document.
type OutputItem struct {
	File   string
	Record *types.Record
	Error  string
}

// NewOutput converts a batch result to its wire form.
func NewOutput(res *BatchResult) *Output {
	out := &Output{
		Message: OutputMessage,
		BatchID: res.ID.String(),
		Data:    make([]OutputItem, 0, len(res.Items)),
	}
	for _, it := range res.Items {
		item := OutputItem{File: it.Filename}
		if it.Err != nil {
			item.Error = it.Err.Error()
		} else {
			item.Record = it.Record
		}
		out.Data = append(out.Data, item)
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (o OutputItem) MarshalJSON() ([]byte, error) {
	if o.Error != "" || o.Record == nil {
		msg := o.Error
		if msg == "" {
			msg = "no record produced"
		}
		return json.Marshal(struct {
			File  string `json:"file"`
			Error string `json:"error"`
		}{o.File, msg})
	}

	file, err := json.Marshal(o.File)
	if err != nil {
		return nil, err
	}
	rec, err := o.Record.MarshalJSON()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"file":`)
	buf.Write(file)
	buf.WriteByte(',')
	buf.Write(rec[1:])
	return buf.Bytes(), nil
}
