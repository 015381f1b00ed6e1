package storage

import (
	"encoding"

	"github.com/vmihailenco/msgpack/v5"
)

type Storeable interface {
	Key() []byte
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// DBReadMark is the persisted form of one optimistic read mark.
type DBReadMark struct {
	ConversationID string `msgpack:"conversationId"`
	ReadAtMs       int64  `msgpack:"readAtMs"`
}

func (m *DBReadMark) Key() []byte {
	return []byte(m.ConversationID)
}

func (m *DBReadMark) MarshalBinary() (data []byte, err error) {
	type alias DBReadMark
	return msgpack.Marshal((*alias)(m))
}

func (m *DBReadMark) UnmarshalBinary(data []byte) error {
	type alias DBReadMark
	return msgpack.Unmarshal(data, (*alias)(m))
}
