package docindex

import (
	"log/slog"

	"github.com/SaidislomSaidazimovv/Docbrand/internal/document"
)

// VerifySync builds a throwaway fresh index from snap and compares it
// against the live index: linked-block count, per-block link counts, and
// per-block requirement membership. It is a diagnostic, not a correction
// path; correction is always available via RebuildFromSnapshot.
func (li *LinkIndex) VerifySync(snap *document.Snapshot, logger *slog.Logger) bool {
	fresh := NewLinkIndex()
	fresh.RebuildFromSnapshot(snap)

	if len(fresh.blockToReqs) != len(li.blockToReqs) {
		logger.Warn("link index drift: block count mismatch",
			slog.Int("live", len(li.blockToReqs)),
			slog.Int("fresh", len(fresh.blockToReqs)))
		return false
	}

	for blockID, want := range fresh.blockToReqs {
		got, ok := li.blockToReqs[blockID]
		if !ok || len(got) != len(want) {
			logger.Warn("link index drift: per-block link count mismatch",
				slog.String("block_id", blockID),
				slog.Int("live", len(got)),
				slog.Int("fresh", len(want)))
			return false
		}
		for _, rec := range want {
			if _, found := findRecord(got, rec.ReqID); !found {
				logger.Warn("link index drift: missing requirement record",
					slog.String("block_id", blockID),
					slog.String("req_id", rec.ReqID))
				return false
			}
		}
	}

	return true
}

func findRecord(records []document.LinkRecord, reqID string) (document.LinkRecord, bool) {
	for _, r := range records {
		if r.ReqID == reqID {
			return r, true
		}
	}
	return document.LinkRecord{}, false
}
