// Package gitquery answers revision-history questions for a single git
// repository by shelling out to the git executable.
//
// The lineage tracer depends only on the HistoryClient interface; this
// package's Client is the git-backed implementation. All queries are
// read-only.
package gitquery

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"linelog/internal/errors"
)

// HistoryClient is the revision-history query contract the lineage
// tracer consumes. Implementations may shell out to a version-control
// tool, use a library binding, or call a remote service.
//
// Per-query failures after setup (timeouts, transient git errors) are
// reported as not-found/unavailable rather than as errors; only the
// constructor of an implementation surfaces setup failures.
type HistoryClient interface {
	// Head resolves the repository's current head revision.
	Head(ctx context.Context) (string, error)

	// Parent returns the first parent of rev. ok is false when rev is
	// a root commit (or cannot be resolved), which ends a lineage walk.
	Parent(ctx context.Context, rev string) (parent string, ok bool)

	// FindIntroducingRevision returns the most recent revision, at or
	// before upper, whose change to path added or removed content as a
	// literal substring. Content appearing only in unmodified context
	// does not match. found is false when no ancestor qualifies.
	FindIntroducingRevision(ctx context.Context, upper, path, content string) (rev string, found bool)

	// GetChangeDetail returns the full patch-style text of the change
	// at rev, restricted to path. ok is false when the detail cannot
	// be produced (binary content, no textual change for the path).
	GetChangeDetail(ctx context.Context, rev, path string) (detail string, ok bool)
}

// Client implements HistoryClient against a local git repository.
type Client struct {
	repoRoot string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewClient verifies that git is runnable and that repoRoot is a git
// repository, then returns a Client. Both checks are setup failures
// surfaced once, per trace invocation, as typed errors.
func NewClient(repoRoot string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, errors.New(errors.GitUnavailable, "git executable not found", err,
			errors.FixAction{Command: "git --version", Description: "verify git is installed and on PATH"})
	}

	c := &Client{repoRoot: repoRoot, timeout: timeout, logger: logger}

	if _, err := c.executeGit(context.Background(), "rev-parse", "--git-dir"); err != nil {
		return nil, errors.New(errors.RepoInvalid, "not a git repository: "+repoRoot, err,
			errors.FixAction{Command: "git -C " + repoRoot + " status", Description: "check the repository location"})
	}

	return c, nil
}

// Head resolves HEAD to a full revision hash.
func (c *Client) Head(ctx context.Context) (string, error) {
	out, err := c.executeGit(ctx, "rev-parse", "HEAD")
	if err != nil {
		if errors.HasCode(err, errors.Timeout) {
			return "", err
		}
		return "", errors.New(errors.RepoInvalid, "cannot resolve HEAD (empty repository?)", err)
	}
	return strings.TrimSpace(out), nil
}

// Parent resolves the first parent of rev.
func (c *Client) Parent(ctx context.Context, rev string) (string, bool) {
	out, err := c.executeGit(ctx, "rev-parse", "--verify", rev+"^")
	if err != nil {
		// Root commits have no parent; any other resolution failure
		// equally means the walk has nowhere earlier to go.
		return "", false
	}
	return strings.TrimSpace(out), true
}

// FindIntroducingRevision runs a pickaxe search bounded by upper.
//
// -S without --pickaxe-regex matches the content literally, and the
// content is passed as a single argv element (no shell), so characters
// with pattern or shell meaning cannot corrupt the query.
func (c *Client) FindIntroducingRevision(ctx context.Context, upper, path, content string) (string, bool) {
	out, err := c.executeGit(ctx, "rev-list", "--max-count=1", "-S"+content, upper, "--", path)
	if err != nil {
		c.logger.Warn("history search failed, treating as not found",
			"upper", upper, "path", path, "error", err)
		return "", false
	}
	rev := strings.TrimSpace(out)
	if rev == "" {
		return "", false
	}
	return rev, true
}

// GetChangeDetail returns the patch text for rev limited to path.
func (c *Client) GetChangeDetail(ctx context.Context, rev, path string) (string, bool) {
	out, err := c.executeGit(ctx, "show", "--format=", "--no-color", rev, "--", path)
	if err != nil {
		c.logger.Warn("change detail retrieval failed, treating as unavailable",
			"rev", rev, "path", path, "error", err)
		return "", false
	}
	if strings.TrimSpace(out) == "" {
		return "", false
	}
	return out, true
}

// executeGit runs a git command in the repository root with the
// configured per-query timeout.
func (c *Client) executeGit(ctx context.Context, args ...string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.repoRoot

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.New(errors.Timeout, "git "+args[0]+" exceeded the query timeout", err)
		}
		return "", err
	}

	return string(output), nil
}
