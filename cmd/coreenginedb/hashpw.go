package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raakeshmj/coreenginedb/internal/auth"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Print a password hash for config users or password_hash records",
	Long: `Reads a password (without echo when stdin is a terminal) and prints
{"salt":...,"iterations":...,"hash":...} for use as a config.json auth user
or as the metavalue of a password_hash / recovery record.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword()
		if err != nil {
			return err
		}
		if password == "" {
			return errors.New("empty password")
		}
		ph, err := auth.NewPasswordHash(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ph.String())
		return nil
	},
}

func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
