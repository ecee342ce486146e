package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command in process with the given stdin.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		userEmail, servePort, configFile = "", 0, ""
		resetFlags(rootCmd)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags clears flag state left by a previous in-process run so required
// flags are checked again.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("RESUME_OPTIMIZER_DATABASE_DRIVER", "sqlite")
	t.Setenv("RESUME_OPTIMIZER_DATABASE_DSN", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("RESUME_OPTIMIZER_SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("RESUME_OPTIMIZER_PASSWORD_BCRYPT_COST", "10")
	t.Setenv("RESUME_OPTIMIZER_LOG_LEVEL", "error")
}

func TestExtractCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.txt")
	require.NoError(t, os.WriteFile(path, []byte("Experience: built X.\n\n\nSkills: Y.\n"), 0o600))

	out, err := runCLI(t, "", "extract", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Experience: built X.")
	assert.Contains(t, out, "Skills: Y.")
}

func TestExtractCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "letter.docx")
	require.NoError(t, os.WriteFile(binary, []byte{0x00, 0x01, 0x02, 0x03}, 0o600))

	_, err := runCLI(t, "", "extract", binary)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")

	_, err = runCLI(t, "", "extract", filepath.Join(dir, "missing.txt"))
	require.Error(t, err)

	_, err = runCLI(t, "", "extract")
	require.Error(t, err)
}

func TestMigrateCommand(t *testing.T) {
	setupEnv(t)

	out, err := runCLI(t, "", "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "applied")

	out, err = runCLI(t, "", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "up to date")

	out, err = runCLI(t, "", "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "applied")
	assert.NotContains(t, out, "pending")

	_, err = runCLI(t, "", "migrate", "down")
	require.Error(t, err)
}

func TestUserCommands(t *testing.T) {
	setupEnv(t)

	out, err := runCLI(t, "password1\n", "user", "create", "--email", "cli@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "created user cli@example.com")

	_, err = runCLI(t, "password1\n", "user", "create", "--email", "cli@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	_, err = runCLI(t, "\n", "user", "create", "--email", "other@example.com")
	require.Error(t, err)

	out, err = runCLI(t, "", "user", "delete", "--email", "cli@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted user cli@example.com")

	_, err = runCLI(t, "", "user", "delete", "--email", "cli@example.com")
	require.Error(t, err)

	_, err = runCLI(t, "", "user", "delete")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "email" not set`)
}

func TestServeCommand_InvalidConfig(t *testing.T) {
	t.Setenv("RESUME_OPTIMIZER_DATABASE_DSN", filepath.Join(t.TempDir(), "serve.db"))
	t.Setenv("RESUME_OPTIMIZER_SESSION_SECRET", "")
	t.Setenv("JWT_SECRET", "")

	_, err := runCLI(t, "", "serve", "--port", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session secret")
}

func TestReadPassword(t *testing.T) {
	pw, err := readPassword(strings.NewReader("s3cret-pass\r\nignored\n"), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "s3cret-pass", pw)

	pw, err = readPassword(strings.NewReader("no-newline"), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "no-newline", pw)

	_, err = readPassword(strings.NewReader(""), &bytes.Buffer{})
	require.Error(t, err)
}
