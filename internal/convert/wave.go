// Package convert maps between on-chain wave layouts and domain models.
package convert

import (
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	u "github.com/gofrs/uuid/v5"
	"github.com/samber/lo"

	model "github.com/and161185/wave-portal/internal/model"
)

// archiveNS namespaces content-derived archive ids.
var archiveNS = u.NewV5(u.NamespaceURL, "https://wave-portal/archive")

// SecondsToTime converts a uint256 unix timestamp (seconds) into UTC time.
// A nil timestamp maps to the zero time.
func SecondsToTime(sec *big.Int) time.Time {
	if sec == nil {
		return time.Time{}
	}
	return time.Unix(sec.Int64(), 0).UTC()
}

// FromRaw converts one getAllWaves tuple into a WaveEntry.
func FromRaw(w model.RawWave) model.WaveEntry {
	return FromEvent(w.Waver, w.Timestamp, w.Message)
}

// FromRawBatch converts tuples preserving their order. Never returns nil.
func FromRawBatch(ws []model.RawWave) []model.WaveEntry {
	if len(ws) == 0 {
		return []model.WaveEntry{}
	}
	return lo.Map(ws, func(w model.RawWave, _ int) model.WaveEntry { return FromRaw(w) })
}

// FromEvent converts NewWave event fields into a WaveEntry.
func FromEvent(from common.Address, sec *big.Int, message string) model.WaveEntry {
	return model.WaveEntry{
		Author:      model.AccountFromAddress(from),
		SubmittedAt: SecondsToTime(sec),
		Message:     message,
	}
}

// ArchiveID derives a stable id from the wave content, so the same wave seen through a bulk
// read and through its live event maps to one archive row.
func ArchiveID(contract common.Address, e model.WaveEntry) u.UUID {
	name := strings.Join([]string{
		contract.Hex(),
		strings.ToLower(string(e.Author)),
		strconv.FormatInt(e.SubmittedAt.Unix(), 10),
		e.Message,
	}, "\x1f")
	return u.NewV5(archiveNS, name)
}

// ToArchived wraps an entry for persistence. ObservedAt is left to the database.
func ToArchived(contract common.Address, e model.WaveEntry) model.ArchivedWave {
	return model.ArchivedWave{
		ID:          ArchiveID(contract, e),
		Contract:    contract.Hex(),
		Author:      e.Author,
		Message:     e.Message,
		SubmittedAt: e.SubmittedAt,
	}
}

// ToArchivedBatch wraps entries for persistence preserving order.
func ToArchivedBatch(contract common.Address, es []model.WaveEntry) []model.ArchivedWave {
	return lo.Map(es, func(e model.WaveEntry, _ int) model.ArchivedWave { return ToArchived(contract, e) })
}

// FromArchived drops archive bookkeeping.
func FromArchived(a model.ArchivedWave) model.WaveEntry {
	return model.WaveEntry{Author: a.Author, SubmittedAt: a.SubmittedAt, Message: a.Message}
}
