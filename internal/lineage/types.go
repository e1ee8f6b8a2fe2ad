package lineage

// DetailUnavailable is the sentinel stored in Record.Detail when the
// change detail for a found revision could not be produced. The walk
// still records the step, then stops: recovering the next content to
// search for requires detail text.
const DetailUnavailable = "diff not available"

// Record is one step of a reconstructed lineage: the revision that
// introduced or altered the tracked content, the exact content being
// tracked when that revision was found, and the raw change detail.
// Records are immutable once appended.
type Record struct {
	Revision string `json:"revision"`
	Content  string `json:"content"`
	Detail   string `json:"detail"`
}

// DetailAvailable reports whether the record carries real change detail.
func (r Record) DetailAvailable() bool {
	return r.Detail != DetailUnavailable
}

// Trace is the ordered lineage of a single line, newest-first (the
// order in which the backward walk discovers records). Its length
// never exceeds the step budget it was produced with, and consecutive
// records always name distinct revisions.
type Trace struct {
	Path    string   `json:"path"`
	Initial string   `json:"initial"`
	Records []Record `json:"records"`
}

// Len returns the number of recorded steps.
func (t *Trace) Len() int {
	return len(t.Records)
}
