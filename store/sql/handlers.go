package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func channelHandlers() repository.ModelHandlers[*channelRecord] {
	return repository.ModelHandlers[*channelRecord]{
		NewRecord: func() *channelRecord {
			return &channelRecord{}
		},
		GetID: func(record *channelRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.UUID)
		},
		SetID: func(record *channelRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.UUID = id.String()
		},
		GetIdentifier: func() string {
			return "uuid"
		},
		GetIdentifierValue: func(record *channelRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.UUID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
