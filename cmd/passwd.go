package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"loraset/core/auth"
)

var passwdCmd = &cobra.Command{
	Use:   "passwd [password]",
	Short: "Hash a reviewer password for REVIEW_PASSWORD_HASH",
	Long:  `Passwd prints the bcrypt hash of the password given as argument, or read from stdin.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := ""
		if len(args) == 1 {
			password = args[0]
		} else {
			fmt.Fprint(os.Stderr, "Password: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}
		hash, err := auth.HashReviewerPassword(password)
		if err != nil {
			return err
		}
		fmt.Printf("REVIEW_PASSWORD_HASH='%s'\n", hash)
		return nil
	},
}

func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

func init() {
	rootCmd.AddCommand(passwdCmd)
}
