package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jonathan/resume-optimizer/internal/auth"
	"github.com/jonathan/resume-optimizer/internal/config"
	"github.com/jonathan/resume-optimizer/internal/db"
	"github.com/jonathan/resume-optimizer/internal/logging"
	"github.com/jonathan/resume-optimizer/internal/profile"
	"github.com/jonathan/resume-optimizer/internal/storage"
)

var userEmail string

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	Long:  "Create an account. The password is prompted for on a terminal, or read from the first line of stdin otherwise.",
	Args:  cobra.NoArgs,
	RunE:  runUserCreate,
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete an account and everything it owns",
	Args:  cobra.NoArgs,
	RunE:  runUserDelete,
}

func init() {
	for _, c := range []*cobra.Command{userCreateCmd, userDeleteCmd} {
		c.Flags().StringVar(&userEmail, "email", "", "Account email address (required)")
		if err := c.MarkFlagRequired("email"); err != nil {
			panic(fmt.Sprintf("failed to mark email flag as required: %v", err))
		}
		userCmd.AddCommand(c)
	}
	rootCmd.AddCommand(userCmd)
}

// accountEnv is what the user commands operate on.
type accountEnv struct {
	cfg    *config.Config
	logger logging.Logger
	port   db.Port
	auth   *auth.Service
}

func openAccountEnv(ctx context.Context) (*accountEnv, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	for _, validate := range []func() error{cfg.Database.Validate, cfg.Password.Validate, cfg.Session.Validate} {
		if err := validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	port, err := openDatabase(ctx, cfg, logger, cfg.Database.AutoMigrate)
	if err != nil {
		return nil, err
	}
	service, err := auth.NewService(port, &cfg.Password, cfg.Session)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return &accountEnv{cfg: cfg, logger: logger, port: port, auth: service}, nil
}

func runUserCreate(cmd *cobra.Command, _ []string) error {
	ctx := background(cmd)
	password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	env, err := openAccountEnv(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = env.port.Close() }()

	user, err := env.auth.Register(ctx, userEmail, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", user.Email, user.ID)
	return nil
}

func runUserDelete(cmd *cobra.Command, _ []string) error {
	ctx := background(cmd)
	env, err := openAccountEnv(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = env.port.Close() }()

	user, err := env.auth.GetUserByEmail(ctx, userEmail)
	if err != nil {
		return err
	}
	paths, err := profile.NewStore(env.port).StoredPaths(ctx, user.ID)
	if err != nil {
		return err
	}
	if err := env.auth.DeleteUser(ctx, user.ID); err != nil {
		return err
	}

	if len(paths) > 0 {
		blobs, err := storage.New(ctx, env.cfg.Storage)
		if err != nil {
			return fmt.Errorf("user deleted, but stored uploads could not be removed: %w", err)
		}
		for _, path := range paths {
			if err := blobs.Delete(ctx, path); err != nil {
				env.logger.Warn(ctx, "failed to delete stored upload", "location", path, "error", err)
			}
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted user %s and %d stored uploads\n", user.Email, len(paths))
	return nil
}

// readPassword prompts twice without echo when in is a terminal, and reads one
// line otherwise.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		first, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprint(prompt, "Repeat password: ")
		second, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		if string(first) != string(second) {
			return "", errors.New("passwords do not match")
		}
		return string(first), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("no password given on stdin")
	}
	return password, nil
}
