// Code generated by musgen-go. DO NOT EDIT.

package core

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

var (
	sliceESSqNS8XUA7gaZdxaXG9IAΞΞ = ord.NewSliceSer[float32](varint.Float32)
	slicevJsLTWD7mVLDvEiLFhfc3AΞΞ = ord.NewSliceSer[MessageRecord](MessageRecordMUS)
)

var RoleMUS = roleMUS{}

type roleMUS struct{}

func (s roleMUS) Marshal(v Role, bs []byte) (n int) {
	return ord.String.Marshal(string(v), bs)
}

func (s roleMUS) Unmarshal(bs []byte) (v Role, n int, err error) {
	tmp, n, err := ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	v = Role(tmp)
	return
}

func (s roleMUS) Size(v Role) (size int) {
	return ord.String.Size(string(v))
}

func (s roleMUS) Skip(bs []byte) (n int, err error) {
	return ord.String.Skip(bs)
}

var IndexRecordMUS = indexRecordMUS{}

type indexRecordMUS struct{}

func (s indexRecordMUS) Marshal(v IndexRecord, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Text, bs[n:])
	n += sliceESSqNS8XUA7gaZdxaXG9IAΞΞ.Marshal(v.Vector, bs[n:])
	n += ord.String.Marshal(v.Metadata, bs[n:])
	return n + raw.TimeUnixMicro.Marshal(v.IndexedAt, bs[n:])
}

func (s indexRecordMUS) Unmarshal(bs []byte) (v IndexRecord, n int, err error) {
	v.ID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Vector, n1, err = sliceESSqNS8XUA7gaZdxaXG9IAΞΞ.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Metadata, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.IndexedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	return
}

func (s indexRecordMUS) Size(v IndexRecord) (size int) {
	size = ord.String.Size(v.ID)
	size += ord.String.Size(v.Text)
	size += sliceESSqNS8XUA7gaZdxaXG9IAΞΞ.Size(v.Vector)
	size += ord.String.Size(v.Metadata)
	return size + raw.TimeUnixMicro.Size(v.IndexedAt)
}

func (s indexRecordMUS) Skip(bs []byte) (n int, err error) {
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = sliceESSqNS8XUA7gaZdxaXG9IAΞΞ.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	return
}

var MessageRecordMUS = messageRecordMUS{}

type messageRecordMUS struct{}

func (s messageRecordMUS) Marshal(v MessageRecord, bs []byte) (n int) {
	n = RoleMUS.Marshal(v.Role, bs)
	n += ord.String.Marshal(v.Content, bs[n:])
	return n + raw.TimeUnixMicro.Marshal(v.Timestamp, bs[n:])
}

func (s messageRecordMUS) Unmarshal(bs []byte) (v MessageRecord, n int, err error) {
	v.Role, n, err = RoleMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Timestamp, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	return
}

func (s messageRecordMUS) Size(v MessageRecord) (size int) {
	size = RoleMUS.Size(v.Role)
	size += ord.String.Size(v.Content)
	return size + raw.TimeUnixMicro.Size(v.Timestamp)
}

func (s messageRecordMUS) Skip(bs []byte) (n int, err error) {
	n, err = RoleMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	return
}

var SessionRecordMUS = sessionRecordMUS{}

type sessionRecordMUS struct{}

func (s sessionRecordMUS) Marshal(v SessionRecord, bs []byte) (n int) {
	n = ord.String.Marshal(v.SessionID, bs)
	n += ord.String.Marshal(v.UserID, bs[n:])
	n += slicevJsLTWD7mVLDvEiLFhfc3AΞΞ.Marshal(v.Messages, bs[n:])
	n += ord.String.Marshal(v.Context, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.CreatedAt, bs[n:])
	return n + raw.TimeUnixMicro.Marshal(v.LastActivity, bs[n:])
}

func (s sessionRecordMUS) Unmarshal(bs []byte) (v SessionRecord, n int, err error) {
	v.SessionID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.UserID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Messages, n1, err = slicevJsLTWD7mVLDvEiLFhfc3AΞΞ.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Context, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CreatedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.LastActivity, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	return
}

func (s sessionRecordMUS) Size(v SessionRecord) (size int) {
	size = ord.String.Size(v.SessionID)
	size += ord.String.Size(v.UserID)
	size += slicevJsLTWD7mVLDvEiLFhfc3AΞΞ.Size(v.Messages)
	size += ord.String.Size(v.Context)
	size += raw.TimeUnixMicro.Size(v.CreatedAt)
	return size + raw.TimeUnixMicro.Size(v.LastActivity)
}

func (s sessionRecordMUS) Skip(bs []byte) (n int, err error) {
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = slicevJsLTWD7mVLDvEiLFhfc3AΞΞ.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	return
}
