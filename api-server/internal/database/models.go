package database

import (
	"encoding/json"
	"time"

	"github.com/cx-tal-miterani/flight-surety/api-server/internal/journal"
)

// EventRow is a row of surety_events
type EventRow struct {
	Seq        int64     `json:"seq"`
	Type       string    `json:"type"`
	RecordedAt time.Time `json:"recordedAt"`
	Data       []byte    `json:"data"`
}

func rowFromRecord(rec journal.Record) EventRow {
	return EventRow{
		Seq:        int64(rec.Offset),
		Type:       rec.Type,
		RecordedAt: rec.Time,
		Data:       rec.Data,
	}
}

func (r EventRow) Record() journal.Record {
	return journal.Record{
		Offset: uint64(r.Seq),
		Type:   r.Type,
		Time:   r.RecordedAt.UTC(),
		Data:   json.RawMessage(r.Data),
	}
}
