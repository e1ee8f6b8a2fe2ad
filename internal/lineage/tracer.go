// Package lineage reconstructs the historical lineage of a single line
// of text by walking backward through a file's revision history.
//
// Each step finds the most recent revision whose change introduced the
// currently tracked content, recovers what that content replaced from
// the change detail, and repeats against strictly earlier history
// until no introducing revision exists or the step budget runs out.
package lineage

import (
	"context"
	"log/slog"

	"linelog/internal/gitquery"
)

// Tracer owns the iterative backward walk. It is stateless across
// calls; every Trace invocation threads its own tracingState and is
// independent of any other, so distinct traces may run concurrently
// as long as the underlying HistoryClient tolerates it.
type Tracer struct {
	client gitquery.HistoryClient
	logger *slog.Logger
}

// NewTracer creates a Tracer over the given history client.
func NewTracer(client gitquery.HistoryClient, logger *slog.Logger) *Tracer {
	return &Tracer{client: client, logger: logger}
}

// tracingState is the per-iteration walk state: the content currently
// being searched for and the upper bound of the next history search.
// It is constructed and discarded inside a single Trace call.
type tracingState struct {
	content string
	upper   string
}

// Trace walks backward from the repository head, reconstructing the
// lineage of initialContent within path. initialContent must already
// be trimmed; stepBudget bounds the number of iterations (0 or less
// yields an empty trace).
//
// Per-step conditions (no introducing revision, unavailable detail,
// unextractable prior content, query timeout) terminate the walk
// early and successfully; a partial lineage is a valid result. Only
// setup failures, such as an unresolvable head, return an error.
func (t *Tracer) Trace(ctx context.Context, path, initialContent string, stepBudget int) (*Trace, error) {
	trace := &Trace{Path: path, Initial: initialContent}
	if stepBudget <= 0 {
		return trace, nil
	}

	head, err := t.client.Head(ctx)
	if err != nil {
		return nil, err
	}

	st := tracingState{content: initialContent, upper: head}

	for step := 0; step < stepBudget; step++ {
		// Honor external cancellation between iterations.
		if ctx.Err() != nil {
			break
		}

		rev, found := t.client.FindIntroducingRevision(ctx, st.upper, path, st.content)
		if !found {
			// Presumed origin: nothing at or before the bound
			// introduces this content. Normal termination.
			break
		}

		detail, ok := t.client.GetChangeDetail(ctx, rev, path)
		if !ok {
			trace.Records = append(trace.Records, Record{
				Revision: rev,
				Content:  st.content,
				Detail:   DetailUnavailable,
			})
			t.logger.Debug("change detail unavailable, stopping walk",
				"path", path, "rev", rev, "step", step)
			break
		}

		trace.Records = append(trace.Records, Record{
			Revision: rev,
			Content:  st.content,
			Detail:   detail,
		})

		prev, ok := ExtractPrecedingLine(detail, st.content)
		if !ok {
			// The search may have matched removed or context text, or
			// the content opens its change detail. Either way there is
			// no well-defined prior content to continue from.
			t.logger.Debug("no prior content extractable, stopping walk",
				"path", path, "rev", rev, "step", step)
			break
		}

		parent, ok := t.client.Parent(ctx, rev)
		if !ok {
			// Root of history.
			break
		}

		// The next search is bounded strictly before the revision just
		// found: the revision that removed the prior content would
		// otherwise match it again.
		st.content = prev
		st.upper = parent
	}

	return trace, nil
}
