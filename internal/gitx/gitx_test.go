package gitx

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	return NewClient(slog.New(slog.DiscardHandler))
}

func git(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

// initRepo creates a repository on branch main with one commit.
func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	git(t, dir, "init", "-b", "main")
	git(t, dir, "config", "user.email", "test@example.com")
	git(t, dir, "config", "user.name", "test")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("hello\n"), 0o644))
	git(t, dir, "add", ".")
	git(t, dir, "commit", "-m", "initial")
	return dir
}

func commitFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	git(t, dir, "add", name)
	git(t, dir, "commit", "-m", "add "+name)
}

func TestIsRepo(t *testing.T) {
	c := testClient(t)
	dir := initRepo(t)
	assert.True(t, c.IsRepo(dir))
	assert.False(t, c.IsRepo(t.TempDir()))
}

func TestCurrentBranch(t *testing.T) {
	c := testClient(t)
	dir := initRepo(t)

	branch, err := c.CurrentBranch(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	git(t, dir, "switch", "-c", "feature")
	branch, err = c.CurrentBranch(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "feature", branch)
}

func TestIsClean(t *testing.T) {
	c := testClient(t)
	dir := initRepo(t)
	ctx := context.Background()

	clean, err := c.IsClean(ctx, dir)
	require.NoError(t, err)
	assert.True(t, clean)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "dirty.txt"), []byte("x"), 0o644))
	clean, err = c.IsClean(ctx, dir)
	require.NoError(t, err)
	assert.False(t, clean)
}

func TestHasRemote(t *testing.T) {
	c := testClient(t)
	dir := initRepo(t)
	ctx := context.Background()

	has, err := c.HasRemote(ctx, dir)
	require.NoError(t, err)
	assert.False(t, has)

	git(t, dir, "remote", "add", "origin", "https://example.com/a/b.git")
	has, err = c.HasRemote(ctx, dir)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestDefaultBranchFallback(t *testing.T) {
	c := testClient(t)
	dir := initRepo(t)

	// no origin/HEAD ref: falls back to the local main branch
	branch, err := c.DefaultBranch(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)
}

func TestCloneAndDefaultBranch(t *testing.T) {
	c := testClient(t)
	origin := initRepo(t)
	ctx := context.Background()

	dest := filepath.Join(t.TempDir(), "sub", "clone")
	require.NoError(t, c.Clone(ctx, origin, dest))
	assert.True(t, c.IsRepo(dest))

	branch, err := c.DefaultBranch(ctx, dest)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)
}

func TestFastForward(t *testing.T) {
	c := testClient(t)
	origin := initRepo(t)
	ctx := context.Background()

	clone := filepath.Join(t.TempDir(), "clone")
	require.NoError(t, c.Clone(ctx, origin, clone))
	git(t, clone, "config", "user.email", "test@example.com")
	git(t, clone, "config", "user.name", "test")

	// nothing new upstream
	st, err := c.FastForward(ctx, clone, "main")
	require.NoError(t, err)
	assert.Equal(t, FFUpToDate, st)

	// upstream moves forward
	commitFile(t, origin, "a.txt", "a")
	require.NoError(t, c.Fetch(ctx, clone))
	st, err = c.FastForward(ctx, clone, "main")
	require.NoError(t, err)
	assert.Equal(t, FFFastForwarded, st)

	// histories diverge: refuse, do not rewrite
	commitFile(t, origin, "b.txt", "b")
	commitFile(t, clone, "c.txt", "c")
	require.NoError(t, c.Fetch(ctx, clone))
	st, err = c.FastForward(ctx, clone, "main")
	require.NoError(t, err)
	assert.Equal(t, FFDiverged, st)

	ahead, behind, err := c.AheadBehind(ctx, clone, "main")
	require.NoError(t, err)
	assert.Equal(t, 1, ahead)
	assert.Equal(t, 1, behind)
}

func TestMergedBranches(t *testing.T) {
	c := testClient(t)
	dir := initRepo(t)
	ctx := context.Background()

	git(t, dir, "branch", "done")
	merged, err := c.MergedBranches(ctx, dir)
	require.NoError(t, err)
	assert.Contains(t, merged, "done")
	assert.Contains(t, merged, "main")

	require.NoError(t, c.DeleteBranch(ctx, dir, "done"))
	merged, err = c.MergedBranches(ctx, dir)
	require.NoError(t, err)
	assert.NotContains(t, merged, "done")
}

func TestRunErrorCarriesStderr(t *testing.T) {
	c := testClient(t)
	dir := initRepo(t)

	_, err := c.CurrentBranch(context.Background(), filepath.Join(dir, "missing"))
	require.Error(t, err)

	_, err = c.run(context.Background(), dir, "definitely-not-a-subcommand")
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.NotEmpty(t, gerr.Stderr)
}
