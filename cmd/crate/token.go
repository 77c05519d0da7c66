package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mmcdole/crate/internal/adapter"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Save the catalog API bearer token",
	Long: `Reads a bearer token from the terminal without echo, or from stdin when
piped, and stores it in the config file. An empty token clears it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		token, err := readToken()
		if err != nil {
			return err
		}

		if err := adapter.SaveToken(cfg, token); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}
		if token == "" {
			fmt.Fprintln(stdout, "Token cleared.")
		} else {
			fmt.Fprintln(stdout, "Token saved.")
		}
		return nil
	},
}

func readToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "API token: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
