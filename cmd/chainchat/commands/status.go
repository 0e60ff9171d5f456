package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running node's status endpoint",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://localhost:8080", "node API base URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(statusAddr + "/api/v1/status")
	if err != nil {
		return fmt.Errorf("node unreachable: %w", err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			Sequence uint64 `json:"sequence"`
			Accounts int    `json:"accounts"`
			Records  int    `json:"records"`
			UptimeS  int64  `json:"uptime_seconds"`
		} `json:"data"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	if !envelope.Success {
		return fmt.Errorf("node error: %s", envelope.Error)
	}

	fmt.Printf("sequence: %d\n", envelope.Data.Sequence)
	fmt.Printf("accounts: %d\n", envelope.Data.Accounts)
	fmt.Printf("records:  %d\n", envelope.Data.Records)
	fmt.Printf("uptime:   %s\n", time.Duration(envelope.Data.UptimeS)*time.Second)
	return nil
}
