package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhubert/parley/internal/config"
	"github.com/zhubert/parley/internal/logger"
)

var (
	skipConfirm bool
	cleanData   bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove log files, and optionally the local chat data",
	Long: `Removes the TUI and relay log files.

With --data it also deletes the embedded store and uploaded blobs in the
data directory. Accounts and chats stored there are lost. It will prompt
for confirmation before proceeding unless the --yes flag is used.`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVarP(&skipConfirm, "yes", "y", false, "Skip confirmation prompt")
	cleanCmd.Flags().BoolVar(&cleanData, "data", false, "Also delete the local store and blobs")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	return runCleanWithReader(cfg, os.Stdin, os.Stdout)
}

// runCleanWithReader allows injecting a reader for testing
func runCleanWithReader(cfg *config.Config, input io.Reader, out io.Writer) error {
	dataDir := cfg.GetDataDir()
	hasData := false
	if cleanData {
		if _, err := os.Stat(dataDir); err == nil {
			hasData = true
		}
	}

	// Print summary of what will be cleaned
	fmt.Fprintln(out, "This will clean:")
	fmt.Fprintln(out, "  - Log files in "+os.TempDir())
	if hasData {
		fmt.Fprintf(out, "  - Local store and blobs in %s\n", dataDir)
	}

	// Confirm unless --yes flag is set
	if !skipConfirm {
		if !confirm(input, out, "Continue?") {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	logsCleared, err := logger.ClearLogs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: error clearing logs: %v\n", err)
	}

	if hasData {
		if err := os.RemoveAll(dataDir); err != nil {
			return fmt.Errorf("error removing %s: %w", dataDir, err)
		}
	}

	// Print results
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Cleaned:")
	fmt.Fprintf(out, "  - %d log file(s) removed\n", logsCleared)
	if hasData {
		fmt.Fprintf(out, "  - %s removed\n", dataDir)
	}
	return nil
}

// confirm prompts the user for y/n confirmation
func confirm(input io.Reader, out io.Writer, prompt string) bool {
	reader := bufio.NewReader(input)
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}
